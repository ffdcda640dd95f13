// Copyright 2015 Google Inc. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"runtime"

	"github.com/jacobsa/fuse"

	"github.com/jtbeckha/mp3v0fs/fs"
)

func registerSIGINTHandler(mountPoint string) {
	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, os.Interrupt)

	go func() {
		for range signalChan {
			log.Println("Received SIGINT, attempting to unmount...")

			err := fuse.Unmount(mountPoint)
			if err != nil {
				log.Printf("Failed to unmount in response to SIGINT: %v", err)
			} else {
				log.Printf("Successfully unmounted %s in response to SIGINT.", mountPoint)
				return
			}
		}
	}()
}

// run mounts a FLAC source directory as a tree of virtual MP3 files and
// blocks until it is unmounted.
func run(args []string, fset *flag.FlagSet) (err error) {
	flags := populateFlagSet(fset)

	if err = fset.Parse(args); err != nil {
		return fmt.Errorf("parse flags: %w", err)
	}

	if fset.NArg() != 2 {
		return fmt.Errorf("usage: %s [flags] source-dir mountpoint", os.Args[0])
	}

	sourceDir := fset.Arg(0)
	mountPoint := fset.Arg(1)

	if _, statErr := os.Stat(sourceDir); statErr != nil {
		return fmt.Errorf("source dir: %w", statErr)
	}
	if _, statErr := os.Stat(mountPoint); statErr != nil {
		return fmt.Errorf("mountpoint: %w", statErr)
	}

	server, err := fs.NewServer(&fs.ServerConfig{
		SourceDir:      sourceDir,
		ReadChunkBytes: int(flags.ReadChunkBytes),
	})
	if err != nil {
		return fmt.Errorf("create server: %w", err)
	}

	mountCfg := &fuse.MountConfig{
		FSName:      "mp3v0fs",
		VolumeName:  "mp3v0fs",
		ReadOnly:    true,
		Options:     flags.MountOptions,
		DebugLogger: debugLogger(),
		ErrorLogger: log.New(os.Stderr, "mp3v0fs: ", log.LstdFlags),
	}

	mfs, err := fuse.Mount(mountPoint, server, mountCfg)
	if err != nil {
		return fmt.Errorf("mount: %w", err)
	}

	registerSIGINTHandler(mfs.Dir())

	if err = mfs.Join(context.Background()); err != nil {
		return fmt.Errorf("join: %w", err)
	}

	return nil
}

func main() {
	if runtime.GOOS == "windows" {
		fmt.Println("windows is not supported")
		os.Exit(1)
	}

	if err := run(os.Args[1:], flag.CommandLine); err != nil {
		log.Fatalf("%v", err)
	}
}

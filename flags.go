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
	"flag"
	"fmt"
	"strings"
)

type flagStorage struct {
	MountOptions   mountOptions
	ReadChunkBytes uint
}

// mountOptions accumulates repeated -o NAME[=VALUE] flags into the map
// fuse.MountConfig.Options expects.
type mountOptions map[string]string

func (o mountOptions) String() string {
	var parts []string
	for k, v := range o {
		if v == "" {
			parts = append(parts, k)
			continue
		}
		parts = append(parts, fmt.Sprintf("%s=%s", k, v))
	}
	return strings.Join(parts, ",")
}

func (o mountOptions) Set(s string) error {
	name, value, _ := strings.Cut(s, "=")
	o[name] = value
	return nil
}

// Add the flags accepted by run to the supplied flag set, returning the
// variables into which the flags will parse.
func populateFlagSet(fs *flag.FlagSet) (flags *flagStorage) {
	flags = &flagStorage{MountOptions: make(mountOptions)}

	fs.Var(
		flags.MountOptions,
		"o",
		"Additional system-specific mount options, e.g. -o allow_other. May be repeated.")

	fs.UintVar(
		&flags.ReadChunkBytes,
		"read_chunk_bytes",
		0,
		"Number of PCM sample pairs pulled from each FLAC source per encode step. "+
			"Zero selects the built-in default.")

	return
}

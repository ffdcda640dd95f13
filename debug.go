// Copyright 2015 Google Inc. All Rights Reserved.
// Author: jacobsa@google.com (Aaron Jacobs)

package main

import (
	"flag"
	"log"
	"os"
)

var enableDebugMessages = flag.Bool(
	"fuse_debug",
	false,
	"Write FUSE debugging messages to stderr.")

// debugLogger returns the *log.Logger to hand to fuse.MountConfig.DebugLogger
// when -fuse_debug is set, or nil to leave FUSE debug logging disabled.
func debugLogger() *log.Logger {
	if !*enableDebugMessages {
		return nil
	}
	return log.New(os.Stderr, "fuse: ", log.LstdFlags)
}

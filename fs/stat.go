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

package fs

import (
	"fmt"
	"os"
	"syscall"
	"time"

	"github.com/jacobsa/fuse/fuseops"
)

// statBacking synthesizes fuseops.InodeAttributes for realPath. When
// sizeOverride is non-nil, it replaces the real file's size (used for an
// entry being served as a synthesized MP3); otherwise the real file's own
// size is reported.
//
// permissions, timestamps, owner, and link count are copied from the
// backing file; creation time is mirrored from modification time, since
// this platform's stat has no separate birth time field exposed through
// syscall.Stat_t.
func statBacking(realPath string, sizeOverride *uint64) (attrs fuseops.InodeAttributes, err error) {
	fi, err := os.Lstat(realPath)
	if err != nil {
		return
	}

	sys, ok := fi.Sys().(*syscall.Stat_t)
	if !ok {
		err = fmt.Errorf("statBacking(%q): unsupported stat type", realPath)
		return
	}

	attrs = fuseops.InodeAttributes{
		Size:   uint64(fi.Size()),
		Nlink:  uint32(sys.Nlink),
		Mode:   fi.Mode(),
		Uid:    sys.Uid,
		Gid:    sys.Gid,
		Mtime:  fi.ModTime(),
		Ctime:  statCtime(sys),
		Crtime: fi.ModTime(),
	}

	if sizeOverride != nil {
		attrs.Size = *sizeOverride
	}

	return
}

func statCtime(sys *syscall.Stat_t) time.Time {
	return time.Unix(sys.Ctim.Sec, sys.Ctim.Nsec)
}

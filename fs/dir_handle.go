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
	"os"

	"github.com/jacobsa/fuse/fuseops"
	"github.com/jacobsa/fuse/fuseutil"

	"github.com/jtbeckha/mp3v0fs/internal/inodetable"
	"github.com/jtbeckha/mp3v0fs/internal/pathutil"
)

// dirHandle serves one opendir/readdir/releasedir lifecycle. The entire
// listing always fits the first reply (chunking is not required), so the
// handle just remembers which real directory it reads from; it does no
// offset bookkeeping of its own beyond what fuseops.ReadDirOp already
// carries.
type dirHandle struct {
	table  *inodetable.Table
	parent fuseops.InodeID
	real   string
}

func newDirHandle(table *inodetable.Table, parent fuseops.InodeID, real string) *dirHandle {
	return &dirHandle{table: table, parent: parent, real: real}
}

// ReadDir serves a readdir request. Offset zero lists; any other offset
// returns the empty terminator, since the whole listing was already
// delivered in the offset-zero reply.
func (dh *dirHandle) ReadDir(op *fuseops.ReadDirOp) error {
	if op.Offset != 0 {
		return nil
	}

	entries, err := dh.listEntries()
	if err != nil {
		return err
	}

	for _, entry := range entries {
		n := fuseutil.WriteDirent(op.Dst[op.BytesRead:], entry)
		if n == 0 {
			break
		}
		op.BytesRead += n
	}

	return nil
}

// listEntries reads the real directory, filters out everything but
// regular files, directories, and symlinks, rewrites flac extensions to
// mp3, and assigns each emitted name an inode.
func (dh *dirHandle) listEntries() ([]fuseutil.Dirent, error) {
	rawEntries, err := os.ReadDir(dh.real)
	if err != nil {
		return nil, err
	}

	var out []fuseutil.Dirent
	offset := fuseops.DirOffset(1)

	for _, raw := range rawEntries {
		direntType, emittedName, ok := dh.classify(raw)
		if !ok {
			continue
		}

		inode, _, err := dh.table.AddOrGet(uint64(dh.parent), emittedName)
		if err != nil {
			return nil, err
		}

		out = append(out, fuseutil.Dirent{
			Offset: offset,
			Inode:  fuseops.InodeID(inode),
			Name:   emittedName,
			Type:   direntType,
		})
		offset++
	}

	return out, nil
}

// classify maps a raw directory entry to its emitted fuse dirent type and
// name, applying the flac->mp3 rewrite to regular files and symlinks.
// Directories pass through unchanged. Anything else (and any regular
// file/symlink whose extension isn't flac) is filtered out.
func (dh *dirHandle) classify(raw os.DirEntry) (direntType fuseutil.DirentType, name string, ok bool) {
	if raw.IsDir() {
		return fuseutil.DT_Directory, raw.Name(), true
	}

	info, err := raw.Info()
	if err != nil {
		return 0, "", false
	}

	switch {
	case info.Mode().IsRegular():
		direntType = fuseutil.DT_File
	case info.Mode()&os.ModeSymlink != 0:
		direntType = fuseutil.DT_Link
	default:
		return 0, "", false
	}

	if pathutil.ParseExtension(raw.Name()) != flacExtension {
		return 0, "", false
	}

	return direntType, pathutil.ReplaceExtension(raw.Name(), mp3Extension), true
}

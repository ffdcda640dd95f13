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
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/jacobsa/fuse"
	"github.com/jacobsa/fuse/fuseops"
	"github.com/jacobsa/fuse/fuseutil"
	"github.com/jacobsa/gcloud/syncutil"

	"github.com/jtbeckha/mp3v0fs/internal/flacsource"
	"github.com/jtbeckha/mp3v0fs/internal/handleregistry"
	"github.com/jtbeckha/mp3v0fs/internal/inodetable"
	"github.com/jtbeckha/mp3v0fs/internal/pathutil"
	"github.com/jtbeckha/mp3v0fs/internal/transcode"
)

// flacExtension and mp3Extension are the only two extensions this
// filesystem's path aliasing ever substitutes for each other.
const (
	flacExtension = "flac"
	mp3Extension  = "mp3"
)

// attrValidity and entryValidity are the kernel cache TTLs for attribute
// and entry replies, respectively.
const (
	attrValidity  = time.Second
	entryValidity = time.Second
)

var logger = log.New(os.Stderr, "mp3v0fs: ", log.LstdFlags)

// ServerConfig configures a mount of a FLAC source directory as a tree of
// virtual MP3 files.
type ServerConfig struct {
	// SourceDir is the real directory this filesystem projects.
	SourceDir string

	// ReadChunkBytes is the number of PCM sample pairs pulled from the FLAC
	// source per encode step. Zero selects transcode.DefaultReadChunk.
	ReadChunkBytes int
}

// NewServer creates a fuse.Server that projects cfg.SourceDir's FLAC files
// as a tree of virtual MP3 files.
func NewServer(cfg *ServerConfig) (server fuse.Server, err error) {
	info, err := os.Stat(cfg.SourceDir)
	if err != nil {
		err = fmt.Errorf("stat source dir: %w", err)
		return
	}
	if !info.IsDir() {
		err = fmt.Errorf("source dir %q is not a directory", cfg.SourceDir)
		return
	}

	readChunk := cfg.ReadChunkBytes
	if readChunk == 0 {
		readChunk = transcode.DefaultReadChunk
	}

	fsys := &fileSystem{
		sourceDir:      cfg.SourceDir,
		readChunkBytes: readChunk,
		table:          inodetable.New(),
		openFiles:      handleregistry.New(),
		dirHandles:     make(map[fuseops.HandleID]*dirHandle),
	}
	fsys.mu = syncutil.NewInvariantMutex(fsys.checkInvariants)

	server = fuseutil.NewFileSystemServer(fsys)
	return
}

////////////////////////////////////////////////////////////////////////
// fileSystem type
////////////////////////////////////////////////////////////////////////

// LOCK ORDERING
//
// Let FS be the fileSystem lock (fs.mu). The inode table and the open-file
// handle registry each carry their own lock, acquired only for the
// duration of a single table/registry operation. fs.mu is acquired only to
// guard the directory-handle map; it is never held while blocking on
// backing-store I/O or on an encode step, so directory-handle bookkeeping
// never serializes behind a slow read of a different handle.
type fileSystem struct {
	fuseutil.NotImplementedFileSystem

	/////////////////////////
	// Dependencies
	/////////////////////////

	sourceDir      string
	readChunkBytes int

	table     *inodetable.Table
	openFiles *handleregistry.Registry

	/////////////////////////
	// Mutable state
	/////////////////////////

	// GUARDED_BY(mu)
	mu syncutil.InvariantMutex

	// GUARDED_BY(mu)
	dirHandles map[fuseops.HandleID]*dirHandle

	// GUARDED_BY(mu)
	nextDirHandleID fuseops.HandleID
}

func (fsys *fileSystem) checkInvariants() {
	for k := range fsys.dirHandles {
		if k >= fsys.nextDirHandleID {
			panic(fmt.Sprintf("illegal dir handle ID: %v", k))
		}
	}
}

////////////////////////////////////////////////////////////////////////
// Path resolution
////////////////////////////////////////////////////////////////////////

// realPath resolves a projected path (as seen through the mount) to its
// backing real path under sourceDir. If the projected path exists verbatim
// under the source it is used; otherwise its mp3 extension is rewritten to
// flac.
func (fsys *fileSystem) realPath(projected string) (real string, err error) {
	verbatim := filepath.Join(fsys.sourceDir, projected)
	if _, statErr := os.Lstat(verbatim); statErr == nil {
		return verbatim, nil
	}

	aliased := filepath.Join(fsys.sourceDir, pathutil.ReplaceExtension(projected, flacExtension))
	if _, statErr := os.Lstat(aliased); statErr == nil {
		return aliased, nil
	}

	return "", os.ErrNotExist
}

// isServedAsMP3 reports whether realPath's extension means it should be
// presented to readers as transcoded MP3 content rather than passed
// through verbatim.
func isServedAsMP3(real string) bool {
	return pathutil.ParseExtension(real) == flacExtension
}

////////////////////////////////////////////////////////////////////////
// fuse.FileSystem methods
////////////////////////////////////////////////////////////////////////

// LOCKS_EXCLUDED(fsys.mu)
func (fsys *fileSystem) Init(op *fuseops.InitOp) (err error) {
	return
}

// LOCKS_EXCLUDED(fsys.mu)
func (fsys *fileSystem) LookUpInode(op *fuseops.LookUpInodeOp) (err error) {
	inode, path, err := fsys.table.AddOrGet(uint64(op.Parent), op.Name)
	if err != nil {
		err = fuse.EIO
		return
	}

	real, err := fsys.realPath(path)
	if err != nil {
		err = fuse.ENOENT
		return
	}

	if _, lookupErr := fsys.table.Lookup(inode); lookupErr != nil {
		err = fuse.EIO
		return
	}

	attrs, err := fsys.statEntry(real)
	if err != nil {
		return
	}

	op.Entry = fuseops.ChildInodeEntry{
		Child:                fuseops.InodeID(inode),
		Attributes:           attrs,
		AttributesExpiration: time.Now().Add(attrValidity),
		EntryExpiration:      time.Now().Add(entryValidity),
	}

	return
}

// LOCKS_EXCLUDED(fsys.mu)
func (fsys *fileSystem) GetInodeAttributes(op *fuseops.GetInodeAttributesOp) (err error) {
	path, ok := fsys.table.GetPath(uint64(op.Inode))
	if !ok {
		err = fuse.EIO
		return
	}

	real, err := fsys.realPath(path)
	if err != nil {
		err = fuse.ENOENT
		return
	}

	op.Attributes, err = fsys.statEntry(real)
	if err != nil {
		return
	}

	op.AttributesExpiration = time.Now().Add(attrValidity)
	return
}

// LOCKS_EXCLUDED(fsys.mu)
func (fsys *fileSystem) ForgetInode(op *fuseops.ForgetInodeOp) (err error) {
	if forgetErr := fsys.table.Forget(uint64(op.Inode), uint64(op.N)); forgetErr != nil {
		logger.Printf("ForgetInode(%d, %d): %v", op.Inode, op.N, forgetErr)
	}
	return
}

// LOCKS_EXCLUDED(fsys.mu)
func (fsys *fileSystem) ReadSymlink(op *fuseops.ReadSymlinkOp) (err error) {
	path, ok := fsys.table.GetPath(uint64(op.Inode))
	if !ok {
		err = fuse.EIO
		return
	}

	real, err := fsys.realPath(path)
	if err != nil {
		err = fuse.ENOENT
		return
	}

	op.Target, err = os.Readlink(real)
	return
}

// LOCKS_EXCLUDED(fsys.mu)
func (fsys *fileSystem) OpenDir(op *fuseops.OpenDirOp) (err error) {
	path, ok := fsys.table.GetPath(uint64(op.Inode))
	if !ok {
		err = fuse.EIO
		return
	}

	real, err := fsys.realPath(path)
	if err != nil {
		err = fuse.ENOENT
		return
	}

	fsys.mu.Lock()
	defer fsys.mu.Unlock()

	handle := fsys.nextDirHandleID
	fsys.nextDirHandleID++

	fsys.dirHandles[handle] = newDirHandle(fsys.table, op.Inode, real)
	op.Handle = handle

	return
}

// LOCKS_EXCLUDED(fsys.mu)
func (fsys *fileSystem) ReadDir(op *fuseops.ReadDirOp) (err error) {
	fsys.mu.Lock()
	dh, ok := fsys.dirHandles[op.Handle]
	fsys.mu.Unlock()

	if !ok {
		err = fuse.EINVAL
		return
	}

	return dh.ReadDir(op)
}

// LOCKS_EXCLUDED(fsys.mu)
func (fsys *fileSystem) ReleaseDirHandle(op *fuseops.ReleaseDirHandleOp) (err error) {
	fsys.mu.Lock()
	defer fsys.mu.Unlock()

	delete(fsys.dirHandles, op.Handle)
	return
}

// LOCKS_EXCLUDED(fsys.mu)
func (fsys *fileSystem) OpenFile(op *fuseops.OpenFileOp) (err error) {
	path, ok := fsys.table.GetPath(uint64(op.Inode))
	if !ok {
		err = fuse.EIO
		return
	}

	real, err := fsys.realPath(path)
	if err != nil {
		err = fuse.ENOENT
		return
	}

	if !isServedAsMP3(real) {
		// Non-FLAC-backed regular files are filtered out of readdir and have
		// no business being opened; nothing else to serve them with.
		err = fuse.ENOENT
		return
	}

	src, err := flacsource.Open(real)
	if err != nil {
		err = fmt.Errorf("open flac source %q: %w", real, err)
		return
	}

	session, err := transcode.New(src, src.VorbisComments(), fsys.readChunkBytes)
	if err != nil {
		src.Close()
		err = fmt.Errorf("construct encoder session for %q: %w", real, err)
		return
	}

	handle := fuseops.HandleID(op.Inode)
	if regErr := fsys.openFiles.Register(uint64(handle), session); regErr != nil {
		session.Close()
		err = fuse.EIO
		return
	}

	op.Handle = handle
	op.KeepPageCache = false
	op.UseDirectIO = true

	return
}

// LOCKS_EXCLUDED(fsys.mu)
//
// The encoder session backing each handle is a forward-only stream (see
// internal/transcode), so op.Offset is trusted to track the handle's own
// read cursor rather than honored as random access; every caller observed
// in practice reads a FUSE file sequentially from offset zero.
func (fsys *fileSystem) ReadFile(op *fuseops.ReadFileOp) (err error) {
	data, err := fsys.openFiles.Read(uint64(op.Handle), len(op.Dst))
	if err != nil {
		logger.Printf("ReadFile(handle=%d): %v", op.Handle, err)
		err = fuse.EIO
		return
	}

	op.BytesRead = copy(op.Dst, data)
	return
}

// LOCKS_EXCLUDED(fsys.mu)
func (fsys *fileSystem) ReleaseFileHandle(op *fuseops.ReleaseFileHandleOp) (err error) {
	if relErr := fsys.openFiles.Release(uint64(op.Handle)); relErr != nil {
		logger.Printf("ReleaseFileHandle(handle=%d): %v", op.Handle, relErr)
	}
	return
}

// LOCKS_EXCLUDED(fsys.mu)
func (fsys *fileSystem) GetXattr(op *fuseops.GetXattrOp) (err error) {
	path, ok := fsys.table.GetPath(uint64(op.Inode))
	if !ok {
		err = fuse.EIO
		return
	}

	real, err := fsys.realPath(path)
	if err != nil {
		err = fuse.ENOENT
		return
	}

	value, err := getXattr(real, op.Name)
	if err != nil {
		return
	}

	op.BytesRead = len(value)
	if len(op.Dst) == 0 {
		// Size query phase: report how large the value is without copying it.
		return
	}
	if len(op.Dst) < len(value) {
		err = fuse.ERANGE
		return
	}

	copy(op.Dst, value)
	return
}

// LOCKS_EXCLUDED(fsys.mu)
func (fsys *fileSystem) ListXattr(op *fuseops.ListXattrOp) (err error) {
	path, ok := fsys.table.GetPath(uint64(op.Inode))
	if !ok {
		err = fuse.EIO
		return
	}

	real, err := fsys.realPath(path)
	if err != nil {
		err = fuse.ENOENT
		return
	}

	names, err := listXattr(real)
	if err != nil {
		return
	}

	op.BytesRead = len(names)
	if len(op.Dst) == 0 {
		return
	}
	if len(op.Dst) < len(names) {
		err = fuse.ERANGE
		return
	}

	copy(op.Dst, names)
	return
}

// statEntry synthesizes attributes for the projected entry backed by real:
// kind, permissions, timestamps, owner, and link count all come from the
// backing file, except size, which is overridden with the encoder's upper
// bound when the entry is served as MP3.
func (fsys *fileSystem) statEntry(real string) (attrs fuseops.InodeAttributes, err error) {
	if !isServedAsMP3(real) {
		return statBacking(real, nil)
	}

	info, err := os.Stat(real)
	if err != nil {
		return
	}
	if info.Mode()&fs.ModeType != 0 && !info.Mode().IsRegular() {
		// Symlinks to FLAC files are resolved to their target's attributes by
		// os.Stat already; anything else with a flac extension that isn't a
		// regular file is a directory, which is never extension-rewritten.
		return statBacking(real, nil)
	}

	size, sizeErr := mp3SizeUpperBound(real)
	if sizeErr != nil {
		err = sizeErr
		return
	}

	return statBacking(real, &size)
}

// mp3SizeUpperBound opens the FLAC source just far enough to read its
// stream info and computes the encoder session's calculate_size() upper
// bound, without transcoding anything.
func mp3SizeUpperBound(real string) (uint64, error) {
	src, err := flacsource.Open(real)
	if err != nil {
		return 0, err
	}

	session, err := transcode.New(src, src.VorbisComments(), 0)
	if err != nil {
		src.Close()
		return 0, err
	}
	defer session.Close()

	return session.CalculateSize(), nil
}

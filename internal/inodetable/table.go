// Package inodetable implements the bijection between inode numbers and
// projected paths that the filesystem layer hands out to the kernel, with
// reference-counted lifetimes driven by lookup/forget.
package inodetable

import (
	"fmt"
	"log"

	"github.com/jacobsa/gcloud/syncutil"
)

// RootInode is the mount root. It is eternal: it is seeded at construction
// with lookups == 1 and Forget is always a no-op for it.
const RootInode uint64 = 1

// entry is the (inode, lookups) tuple spec.md calls InodeEntry.
type entry struct {
	inode   uint64
	lookups uint64
}

// Table is the InodeTable of the specification: two coherent mappings,
// path -> entry and inode -> path, guarded by a single mutex. The reference
// deployment configures single-threaded FUSE dispatch, but the table is
// nonetheless safe for concurrent use so that multi-threaded dispatch
// remains correct.
type Table struct {
	mu syncutil.InvariantMutex

	// GUARDED_BY(mu)
	byPath map[string]*entry

	// GUARDED_BY(mu)
	byInode map[uint64]string

	// GUARDED_BY(mu)
	nextInode uint64
}

// New returns a table seeded with the root entry ("/", {inode: 1, lookups: 1}).
func New() *Table {
	t := &Table{
		byPath:    make(map[string]*entry),
		byInode:   make(map[uint64]string),
		nextInode: 2,
	}

	root := &entry{inode: RootInode, lookups: 1}
	t.byPath["/"] = root
	t.byInode[RootInode] = "/"

	t.mu = syncutil.NewInvariantMutex(t.checkInvariants)
	return t
}

func (t *Table) checkInvariants() {
	if len(t.byPath) != len(t.byInode) {
		panic(fmt.Sprintf(
			"inodetable: mapping size mismatch: %d paths, %d inodes",
			len(t.byPath), len(t.byInode)))
	}

	for path, e := range t.byPath {
		got, ok := t.byInode[e.inode]
		if !ok || got != path {
			panic(fmt.Sprintf(
				"inodetable: inconsistent mapping for path %q, inode %d", path, e.inode))
		}
	}

	root, ok := t.byPath["/"]
	if !ok || root.inode != RootInode {
		panic("inodetable: root entry missing or has the wrong inode")
	}
}

// AddOrGet implements InodeTable.add_or_get: computes path = parentPath/name
// under the parent inode, returning its existing inode if already present,
// or allocating and inserting a fresh one with lookups == 0.
//
// REQUIRES: parent is already present in the table.
func (t *Table) AddOrGet(parent uint64, name string) (inode uint64, path string, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	parentPath, ok := t.byInode[parent]
	if !ok {
		err = fmt.Errorf("inodetable: AddOrGet: unknown parent inode %d", parent)
		return
	}

	path = joinPath(parentPath, name)

	if e, ok := t.byPath[path]; ok {
		inode = e.inode
		return
	}

	inode = t.nextInode
	t.nextInode++

	t.byPath[path] = &entry{inode: inode, lookups: 0}
	t.byInode[inode] = path

	return
}

// Lookup implements InodeTable.lookup: increments the lookup count for inode
// and returns the new count. Fails if inode is unknown.
func (t *Table) Lookup(inode uint64) (newCount uint64, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	path, ok := t.byInode[inode]
	if !ok {
		err = fmt.Errorf("inodetable: Lookup: unknown inode %d", inode)
		return
	}

	e := t.byPath[path]
	e.lookups++
	newCount = e.lookups

	return
}

// Forget implements InodeTable.forget: a no-op for the root inode; otherwise
// subtracts n from the entry's lookups and, if it reaches zero, evicts the
// entry from both mappings.
func (t *Table) Forget(inode uint64, n uint64) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if inode == RootInode {
		return nil
	}

	path, ok := t.byInode[inode]
	if !ok {
		log.Printf("inodetable: Forget: unknown inode %d (ignored)", inode)
		return fmt.Errorf("inodetable: Forget: unknown inode %d", inode)
	}

	e := t.byPath[path]
	if n > e.lookups {
		return fmt.Errorf(
			"inodetable: Forget: n (%d) exceeds lookups (%d) for inode %d",
			n, e.lookups, inode)
	}

	e.lookups -= n
	if e.lookups == 0 {
		delete(t.byPath, path)
		delete(t.byInode, inode)
	}

	return nil
}

// GetPath implements InodeTable.get_path.
func (t *Table) GetPath(inode uint64) (path string, ok bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	path, ok = t.byInode[inode]
	return
}

// GetInode implements InodeTable.get_inode.
func (t *Table) GetInode(path string) (inode uint64, ok bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.byPath[path]
	if !ok {
		return 0, false
	}
	return e.inode, true
}

// joinPath appends name as a child of parent, a projected path, the way the
// table's callers (the filesystem layer) always address children: by
// parent inode and leaf name, never by a pre-joined path.
func joinPath(parent, name string) string {
	if parent == "/" {
		return "/" + name
	}
	return parent + "/" + name
}

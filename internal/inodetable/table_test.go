package inodetable

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootSeeded(t *testing.T) {
	tbl := New()

	path, ok := tbl.GetPath(RootInode)
	require.True(t, ok)
	assert.Equal(t, "/", path)

	inode, ok := tbl.GetInode("/")
	require.True(t, ok)
	assert.Equal(t, RootInode, inode)
}

func TestAddOrGetIsIdempotent(t *testing.T) {
	tbl := New()

	i1, p1, err := tbl.AddOrGet(RootInode, "C1.mp3")
	require.NoError(t, err)
	assert.Equal(t, "/C1.mp3", p1)
	assert.NotEqual(t, RootInode, i1)

	i2, p2, err := tbl.AddOrGet(RootInode, "C1.mp3")
	require.NoError(t, err)
	assert.Equal(t, i1, i2)
	assert.Equal(t, p1, p2)
}

func TestAddOrGetUnknownParentFails(t *testing.T) {
	tbl := New()
	_, _, err := tbl.AddOrGet(999, "nope.mp3")
	assert.Error(t, err)
}

func TestLookupRoundTrip(t *testing.T) {
	tbl := New()

	i, p, err := tbl.AddOrGet(RootInode, "C1.mp3")
	require.NoError(t, err)

	got, ok := tbl.GetPath(i)
	require.True(t, ok)
	assert.Equal(t, p, got)

	backInode, ok := tbl.GetInode(got)
	require.True(t, ok)
	assert.Equal(t, i, backInode)
}

func TestLookupIncrementsCount(t *testing.T) {
	tbl := New()
	i, _, err := tbl.AddOrGet(RootInode, "C1.mp3")
	require.NoError(t, err)

	c1, err := tbl.Lookup(i)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), c1)

	c2, err := tbl.Lookup(i)
	require.NoError(t, err)
	assert.Equal(t, c1+1, c2)
}

func TestForgetRootIsNoop(t *testing.T) {
	tbl := New()
	assert.NoError(t, tbl.Forget(RootInode, 1000))

	path, ok := tbl.GetPath(RootInode)
	require.True(t, ok)
	assert.Equal(t, "/", path)
}

func TestForgetToZeroEvicts(t *testing.T) {
	tbl := New()
	i, p, err := tbl.AddOrGet(RootInode, "C1.mp3")
	require.NoError(t, err)

	_, err = tbl.Lookup(i)
	require.NoError(t, err)

	require.NoError(t, tbl.Forget(i, 1))

	_, ok := tbl.GetPath(i)
	assert.False(t, ok)

	_, ok = tbl.GetInode(p)
	assert.False(t, ok)
}

package main

import (
	"flag"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRunRejectsWrongArgCount(t *testing.T) {
	err := run([]string{"onlyone"}, flag.NewFlagSet("test", flag.ContinueOnError))
	assert.Error(t, err)
}

func TestRunRejectsMissingSourceDir(t *testing.T) {
	dir := t.TempDir()
	err := run([]string{filepath.Join(dir, "does-not-exist"), dir}, flag.NewFlagSet("test", flag.ContinueOnError))
	assert.Error(t, err)
}

func TestRunRejectsMissingMountpoint(t *testing.T) {
	dir := t.TempDir()
	err := run([]string{dir, filepath.Join(dir, "does-not-exist")}, flag.NewFlagSet("test", flag.ContinueOnError))
	assert.Error(t, err)
}

func TestMountOptionsAccumulate(t *testing.T) {
	fset := flag.NewFlagSet("test", flag.ContinueOnError)
	flags := populateFlagSet(fset)

	err := fset.Parse([]string{"-o", "allow_other", "-o", "ro"})
	assert.NoError(t, err)
	assert.Len(t, flags.MountOptions, 2)
	assert.Contains(t, flags.MountOptions, "allow_other")
	assert.Contains(t, flags.MountOptions, "ro")
}

package handleregistry

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSession struct {
	reads  [][]byte
	closed bool
	err    error
}

func (f *fakeSession) Read(n int) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	if len(f.reads) == 0 {
		return nil, nil
	}
	out := f.reads[0]
	f.reads = f.reads[1:]
	return out, nil
}

func (f *fakeSession) Close() error {
	f.closed = true
	return nil
}

func TestRegisterThenRead(t *testing.T) {
	r := New()
	sess := &fakeSession{reads: [][]byte{{1, 2, 3}}}

	require.NoError(t, r.Register(5, sess))

	got, err := r.Read(5, 3)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, got)
}

func TestRegisterDuplicateFails(t *testing.T) {
	r := New()
	require.NoError(t, r.Register(1, &fakeSession{}))

	err := r.Register(1, &fakeSession{})
	assert.ErrorIs(t, err, ErrBusy)
}

func TestReadUnknownHandleFails(t *testing.T) {
	r := New()
	_, err := r.Read(42, 10)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestReleaseClosesAndRemoves(t *testing.T) {
	r := New()
	sess := &fakeSession{}
	require.NoError(t, r.Register(7, sess))

	require.NoError(t, r.Release(7))
	assert.True(t, sess.closed)

	_, err := r.Read(7, 1)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestReleaseUnknownHandleFails(t *testing.T) {
	r := New()
	err := r.Release(99)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestReadPropagatesSessionError(t *testing.T) {
	r := New()
	sentinel := errors.New("boom")
	require.NoError(t, r.Register(1, &fakeSession{err: sentinel}))

	_, err := r.Read(1, 10)
	assert.ErrorIs(t, err, sentinel)
}

func TestRegisterAfterReleaseSucceeds(t *testing.T) {
	r := New()
	require.NoError(t, r.Register(3, &fakeSession{}))
	require.NoError(t, r.Release(3))
	assert.NoError(t, r.Register(3, &fakeSession{}))
}

package pathutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseExtension(t *testing.T) {
	cases := map[string]string{
		"":                              "",
		"test":                         "",
		"/home/u/music/test":           "",
		"test.flac":                   "flac",
		"music/test.mp3":               "mp3",
		"/home/u/music/test.flac":      "flac",
	}

	for in, want := range cases {
		assert.Equal(t, want, ParseExtension(in), "input %q", in)
	}
}

func TestParseName(t *testing.T) {
	assert.Equal(t, "test.flac", ParseName("/home/u/music/test.flac"))
	assert.Equal(t, "test.flac", ParseName("test.flac"))
	assert.Equal(t, "", ParseName(""))
}

func TestReplaceExtension(t *testing.T) {
	cases := []struct {
		in, newExt, want string
	}{
		{"", "mp3", ""},
		{"test", "mp3", "test"},
		{"/home/u/music/test", "mp3", "/home/u/music/test"},
		{"/home/u/music/test.flac", "mp3", "/home/u/music/test.mp3"},
		{"music/test.flac", "mp3", "music/test.mp3"},
	}

	for _, c := range cases {
		assert.Equal(t, c.want, ReplaceExtension(c.in, c.newExt), "input %q", c.in)
	}
}

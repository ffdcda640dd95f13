package tags

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTranslate(t *testing.T) {
	cases := []struct {
		name      string
		vorbis    string
		value     string
		wantID    string
		wantText  string
		wantFound bool
	}{
		{"capitalized name", "Album", "X", "TALB", "X", true},
		{"lowercase name is case-insensitive", "album", "X", "TALB", "X", true},
		{"non-ascii value preserved verbatim", "Album", "नमस्ते", "TALB", "नमस्ते", true},
		{"title", "Title", "test_title", "TIT2", "test_title", true},
		{"albumartist", "AlbumArtist", "test_album_artist", "TPE2", "test_album_artist", true},
		{"artist", "Artist", "test_artist", "TPE1", "test_artist", true},
		{"tracknumber", "TrackNumber", "1", "TRCK", "1", true},
		{"year", "Year", "2001", "TYER", "2001", true},
		{"isrc", "Isrc", "US-S1Z-99-00001", "TSRC", "US-S1Z-99-00001", true},
		{"genre", "Genre", "Electronic", "TCON", "Electronic", true},
		{"comment", "Comment", "ripped with care", "COMM", "ripped with care", true},
		{"copyright", "Copyright", "(c) 2001", "TCOP", "(c) 2001", true},
		{"unrecognized name", "Not a tag", "", "", "", false},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			frame, ok := Translate(c.vorbis, c.value)
			assert.Equal(t, c.wantFound, ok)
			if c.wantFound {
				assert.Equal(t, c.wantID, frame.ID)
				assert.Equal(t, c.wantText, frame.Text)
			}
		})
	}
}

// Package tags maps Vorbis comment name/value pairs, as found in a FLAC
// stream's VORBIS_COMMENT metadata block, to ID3v2.3 text frames suitable
// for embedding in a synthesized MP3's tag.
package tags

import (
	"strings"

	id3v2 "github.com/bogem/id3v2/v2"
)

// Frame is a translated ID3v2.3 text frame: an identifier such as "TALB"
// paired with the frame's text content.
type Frame struct {
	ID   string
	Text string
}

// frameIDs maps an uppercased Vorbis comment name to the ID3v2.3 frame
// identifier it translates to. Every other name is unrecognized.
var frameIDs = map[string]string{
	"ALBUM":       "TALB",
	"TITLE":       "TIT2",
	"ALBUMARTIST": "TPE2",
	"ARTIST":      "TPE1",
	"TRACKNUMBER": "TRCK",
	"YEAR":        "TYER",
	"ISRC":        "TSRC",
	"GENRE":       "TCON",
	"COMMENT":     "COMM",
	"COPYRIGHT":   "TCOP",
}

// Translate maps a Vorbis comment name/value pair to an ID3v2.3 frame. The
// comparison on name is ASCII case-insensitive. Values, including non-ASCII
// UTF-8, are carried verbatim. Unrecognized names yield ok == false.
func Translate(name, value string) (frame Frame, ok bool) {
	id, recognized := frameIDs[strings.ToUpper(name)]
	if !recognized {
		return Frame{}, false
	}
	return Frame{ID: id, Text: value}, true
}

// AddFrame translates name/value and, if recognized, adds the resulting
// text frame to tag. It reports whether a frame was added.
//
// ID3v2.3 does not define a UTF-8 text encoding; EncodingUTF16 is used for
// every frame so that non-ASCII Vorbis values (e.g. a Japanese album title)
// round-trip correctly through a strictly-conformant ID3v2.3 reader.
func AddFrame(tag *id3v2.Tag, name, value string) (added bool) {
	frame, ok := Translate(name, value)
	if !ok {
		return false
	}

	tag.AddFrame(frame.ID, id3v2.TextFrame{
		Encoding: id3v2.EncodingUTF16,
		Text:     frame.Text,
	})
	return true
}

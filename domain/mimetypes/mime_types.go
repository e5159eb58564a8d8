package mimetypes

import "mime"

type MIME string

const (
	Unknown           MIME = "unknown"
	ApplicationOctets MIME = "application/octet-stream"

	ImagePNG  MIME = "image/png"
	ImageJPEG MIME = "image/jpeg"
	ImageGIF  MIME = "image/gif"
)

// ProfileImages are the formats accepted as profile picture input.
var ProfileImages = []MIME{ImageJPEG, ImagePNG, ImageGIF}

func Matches(detected string, expected MIME) (MIME, bool) {
	mt, _, err := mime.ParseMediaType(detected)
	if err != nil {
		return Unknown, false
	}
	return expected, mt == string(expected)
}

// MatchesAny returns the first accepted type equal to detected.
func MatchesAny(detected string, accepted []MIME) (MIME, bool) {
	for _, expected := range accepted {
		if mt, ok := Matches(detected, expected); ok {
			return mt, true
		}
	}
	return Unknown, false
}

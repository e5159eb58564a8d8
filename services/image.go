package services

import (
	"bytes"
	"chat-inbox/domain/mimetypes"
	"chat-inbox/errors"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"

	"github.com/gabriel-vasile/mimetype"
)

// DefaultImageQuality keeps profile pictures tiny on the wire.
const DefaultImageQuality = 5

// CompressImage re-encodes a JPEG, PNG or GIF picture as a JPEG of the given
// quality (1-100).
func CompressImage(data []byte, quality int) ([]byte, string, error) {
	if len(data) == 0 {
		return nil, "", fmt.Errorf("%w: no profile image selected", errors.ErrUnsupportedImage)
	}
	detected := mimetype.Detect(data)
	if _, ok := mimetypes.MatchesAny(detected.String(), mimetypes.ProfileImages); !ok {
		return nil, "", fmt.Errorf("%w: %s", errors.ErrUnsupportedImage, detected.String())
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %w", errors.ErrUnsupportedImage, err)
	}

	quality = max(1, min(quality, 100))
	var buf bytes.Buffer
	if err = jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, "", fmt.Errorf("jpeg encoding failed: %w", err)
	}
	return buf.Bytes(), string(mimetypes.ImageJPEG), nil
}

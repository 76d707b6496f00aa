// Package encode converts binary image resources into the base64 text
// form the backend expects inside JSON payloads. Size limits are the
// preprocessor's job; this package only reads and encodes.
package encode

import (
	"encoding/base64"
	"fmt"
	"os"

	clienterrors "github.com/menta2k/talisay-client/pkg/errors"
)

// Bytes encodes raw image bytes to standard base64.
func Bytes(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}

// File reads an image file and encodes it to base64. An unreadable file
// is an encoding failure.
func File(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", clienterrors.NewEncodingError(
			fmt.Sprintf("cannot read image %s", path), err)
	}
	return Bytes(data), nil
}

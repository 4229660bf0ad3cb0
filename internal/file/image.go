package file

import (
	"encoding/base64"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// MaxImageSize is the largest image that can be attached to a message.
const MaxImageSize = 20 << 20

// ImageExtensions accepted as attachments.
var ImageExtensions = []string{".png", ".jpg", ".jpeg", ".gif", ".webp"}

// Image is a base64 encoded image.
type Image struct {
	Path     string
	MimeType string
	Data     string
}

// ReadImage reads and encodes the image at path. The mime type is sniffed from the content.
func ReadImage(path string) (*Image, error) {
	path, err := ExpandPath(path)
	if err != nil {
		return nil, err
	}
	if !HasValidExtension(path, ImageExtensions) {
		return nil, errors.Errorf("%s is not an image, expected one of %s", filepath.Base(path), strings.Join(ImageExtensions, ", "))
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, errors.Wrap(err, "reading image info")
	}
	if info.Size() > MaxImageSize {
		return nil, errors.Errorf("%s is larger than %d bytes", filepath.Base(path), MaxImageSize)
	}
	bytes, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "reading image")
	}
	mimeType := http.DetectContentType(bytes)
	if !strings.HasPrefix(mimeType, "image/") {
		return nil, errors.Errorf("%s has content type %s", filepath.Base(path), mimeType)
	}
	return &Image{
		Path:     path,
		MimeType: mimeType,
		Data:     base64.StdEncoding.EncodeToString(bytes),
	}, nil
}

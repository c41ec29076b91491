package device

import (
	"fmt"
	"image"
	"sync"

	"github.com/phinze/switchdeck/internal/imagefile"
)

// KeyFaces keeps the up and down faces of every key for backends whose
// hardware only holds one image per key. The backend shows whatever Set and
// Press return.
type KeyFaces struct {
	mu      sync.Mutex
	size    image.Rectangle
	up      [KeyCount]image.Image
	down    [KeyCount]image.Image
	pressed [KeyCount]bool
}

// NewKeyFaces creates face storage for keys of the given size.
func NewKeyFaces(size image.Rectangle) *KeyFaces {
	return &KeyFaces{size: size}
}

// Load resolves an image path to a face of the key size. The empty path is
// the blank face.
func (f *KeyFaces) Load(path string) (image.Image, error) {
	if path == "" {
		return image.NewRGBA(f.size), nil
	}
	img, err := imagefile.LoadFit(path, f.size)
	if err != nil {
		return nil, fmt.Errorf("key face %q: %w", path, err)
	}
	return img, nil
}

// Set stores a face and returns the image to display if the visible face of
// the key changed.
func (f *KeyFaces) Set(key KeyID, state ImageState, img image.Image) (image.Image, bool) {
	if !key.Valid() {
		return nil, false
	}
	idx := int(key) - 1

	f.mu.Lock()
	defer f.mu.Unlock()

	switch state {
	case ImageUp:
		f.up[idx] = img
		if f.pressed[idx] && f.down[idx] != nil {
			return nil, false
		}
		return img, true
	case ImageDown:
		f.down[idx] = img
		if !f.pressed[idx] {
			return nil, false
		}
		return img, true
	}
	return nil, false
}

// Press records a physical press or release and returns the face to show.
func (f *KeyFaces) Press(key KeyID, down bool) (image.Image, bool) {
	if !key.Valid() {
		return nil, false
	}
	idx := int(key) - 1

	f.mu.Lock()
	defer f.mu.Unlock()

	f.pressed[idx] = down
	if down && f.down[idx] != nil {
		return f.down[idx], true
	}
	if f.up[idx] != nil {
		return f.up[idx], true
	}
	return nil, false
}

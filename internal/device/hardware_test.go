package device

import (
	"errors"
	"image"
	"testing"
)

type stubDeck struct {
	keys     byte
	keyRect  image.Rectangle
	keyErr   error
	strip    bool
	stripErr error
}

func (d stubDeck) GetModelName() string { return "Stub Deck" }
func (d stubDeck) GetKeyCount() byte    { return d.keys }

func (d stubDeck) GetKeyImageRectangle() (image.Rectangle, error) {
	return d.keyRect, d.keyErr
}

func (d stubDeck) GetTouchStripSupported() bool { return d.strip }

func (d stubDeck) GetTouchStripImageRectangle() (image.Rectangle, error) {
	return image.Rect(0, 0, 800, 100), d.stripErr
}

func TestQueryCapabilities(t *testing.T) {
	caps, err := queryCapabilities(stubDeck{keys: 32, keyRect: image.Rect(0, 0, 96, 96), strip: true})
	if err != nil {
		t.Fatalf("queryCapabilities: %v", err)
	}
	if caps.KeyCount != KeyCount {
		t.Fatalf("KeyCount = %d, want capped at %d", caps.KeyCount, KeyCount)
	}
	if !caps.HasPanel || caps.PanelSize != image.Rect(0, 0, 800, 100) {
		t.Fatalf("panel = %v %v", caps.HasPanel, caps.PanelSize)
	}
	if caps.Model != "Stub Deck" || caps.KeySize != image.Rect(0, 0, 96, 96) {
		t.Fatalf("caps = %+v", caps)
	}
}

func TestQueryCapabilitiesFailureIsNotAWriteError(t *testing.T) {
	cause := errors.New("usb gone")
	for _, d := range []stubDeck{
		{keys: 15, keyErr: cause},
		{keys: 8, strip: true, stripErr: cause},
	} {
		_, err := queryCapabilities(d)
		if !errors.Is(err, cause) {
			t.Fatalf("err = %v, want wrapped cause", err)
		}
		var we *WriteError
		if errors.As(err, &we) {
			t.Fatalf("query failure reported as WriteError: %v", err)
		}
	}
}

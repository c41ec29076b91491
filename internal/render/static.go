package render

import "image"

// StaticImage shows one fixed image. It has no timer; it is active from
// the moment its image was pushed by Start until Stop.
type StaticImage struct {
	lifecycle
	img   image.Image
	shown bool
}

// NewStaticImage returns a strategy that pushes img. The image must match
// the size of the surface it is attached to.
func NewStaticImage(img image.Image) *StaticImage {
	s := &StaticImage{img: img}
	s.drv = s
	return s
}

// Image returns the image this strategy shows.
func (s *StaticImage) Image() image.Image {
	return s.img
}

func (s *StaticImage) arm(surface *Surface, _ func(error)) error {
	if err := s.render(surface); err != nil {
		return err
	}
	s.shown = true
	return nil
}

func (s *StaticImage) disarm() {
	s.shown = false
}

func (s *StaticImage) armed() bool {
	return s.shown
}

func (s *StaticImage) render(surface *Surface) error {
	return surface.Push(s.img)
}

package preprocess

import (
	"image"
	"image/color"

	"gocv.io/x/gocv"
)

// Letterbox is the placement of a source image inside a backbone input of a
// different aspect ratio.  The source is scaled uniformly to fit and centred,
// the remaining border is padding
type Letterbox struct {
	// Src is the source image size
	Src image.Point
	// Input is the backbone input size
	Input image.Point
	// Content is the region of the input covered by the scaled source
	Content image.Rectangle
	// Scale maps source pixels to input pixels
	Scale float32
}

// NewLetterbox works out the letterbox placement of a srcWidth x srcHeight
// image in a inputWidth x inputHeight backbone input
func NewLetterbox(srcWidth, srcHeight, inputWidth, inputHeight int) Letterbox {

	scale := min(float32(inputWidth)/float32(srcWidth),
		float32(inputHeight)/float32(srcHeight))

	size := image.Pt(inputWidth, inputHeight)

	// the side that fills the input is kept exact to avoid a rounding gap
	if float32(inputWidth)/float32(srcWidth) > scale {
		size.X = int(float32(srcWidth) * scale)
	} else {
		size.Y = int(float32(srcHeight) * scale)
	}

	offset := image.Pt((inputWidth-size.X)/2, (inputHeight-size.Y)/2)

	return Letterbox{
		Src:     image.Pt(srcWidth, srcHeight),
		Input:   image.Pt(inputWidth, inputHeight),
		Content: image.Rectangle{Min: offset, Max: offset.Add(size)},
		Scale:   scale,
	}
}

// ToSource maps a backbone input pixel back to the source image pixel it
// was sampled from.  Padding pixels clamp to the nearest source edge
func (l Letterbox) ToSource(p image.Point) image.Point {

	x := int(float32(p.X-l.Content.Min.X) / l.Scale)
	y := int(float32(p.Y-l.Content.Min.Y) / l.Scale)

	return image.Pt(clamp(x, l.Src.X-1), clamp(y, l.Src.Y-1))
}

// ToInput maps a source image pixel to its backbone input pixel
func (l Letterbox) ToInput(p image.Point) image.Point {
	return image.Pt(
		l.Content.Min.X+int(float32(p.X)*l.Scale),
		l.Content.Min.Y+int(float32(p.Y)*l.Scale),
	)
}

func clamp(v, hi int) int {
	return max(0, min(v, hi))
}

// Resizer letterboxes source images with gocv and keeps the placement so
// refined masks can be mapped back to the source
type Resizer struct {
	Letterbox
	// scaled holds the resized source before padding
	scaled gocv.Mat
}

// NewResizer returns a resizer scaling srcWidth x srcHeight images into a
// inputWidth x inputHeight backbone input
func NewResizer(srcWidth, srcHeight, inputWidth, inputHeight int) *Resizer {
	return &Resizer{
		Letterbox: NewLetterbox(srcWidth, srcHeight, inputWidth, inputHeight),
		scaled:    gocv.NewMat(),
	}
}

// Close frees the scratch Mat
func (r *Resizer) Close() error {
	return r.scaled.Close()
}

// LetterBox resizes src into dest at the backbone input resolution keeping
// aspect, filling the borders with pad
func (r *Resizer) LetterBox(src gocv.Mat, dest *gocv.Mat, pad color.RGBA) {

	c := r.Content

	gocv.Resize(src, &r.scaled, c.Size(), 0, 0, gocv.InterpolationLinear)

	gocv.CopyMakeBorder(r.scaled, dest, c.Min.Y, r.Input.Y-c.Max.Y,
		c.Min.X, r.Input.X-c.Max.X, gocv.BorderConstant, pad)
}

// ContentRect returns the region of the backbone input holding the source
// image, excluding letterbox padding
func (r *Resizer) ContentRect() image.Rectangle {
	return r.Content
}

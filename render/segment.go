package render

import (
	"fmt"
	"image"

	"github.com/swdee/go-pointrend/tensor"
	"gocv.io/x/gocv"
	"golang.org/x/image/draw"
)

// ClassMask converts batch element b of a (B, classes, H, W) score map into a
// row-major mask holding the highest scoring class index of every cell
func ClassMask(scores *tensor.Tensor, b int) ([]uint8, error) {

	batch, c, h, w, err := scores.Spatial()

	if err != nil {
		return nil, err
	}

	if b < 0 || b >= batch {
		return nil, fmt.Errorf("%w: batch element %d out of range [0-%d)",
			tensor.ErrShapeMismatch, b, batch)
	}

	if c > 256 {
		return nil, fmt.Errorf("%w: %d classes do not fit a uint8 mask",
			tensor.ErrShapeMismatch, c)
	}

	plane := h * w
	base := b * c * plane
	mask := make([]uint8, plane)
	best := make([]float32, plane)

	copy(best, scores.Data[base:base+plane])

	for ch := 1; ch < c; ch++ {
		p := scores.Data[base+ch*plane : base+(ch+1)*plane]

		for i, v := range p {
			if v > best[i] {
				best[i] = v
				mask[i] = uint8(ch)
			}
		}
	}

	return mask, nil
}

// SegmentMask renders the class mask as a transparent overlay on top of the
// BGR image.  Background (class 0) pixels are left untouched
func SegmentMask(img *gocv.Mat, mask []uint8, alpha float32) error {

	width := img.Cols()
	height := img.Rows()

	if len(mask) != width*height {
		return fmt.Errorf("mask holds %d pixels, image is %dx%d", len(mask), width, height)
	}

	// it is too slow to manipulate pixel by pixel using GoCV due to slowness
	// over CGO.  So we copy the bytes from the source image and manipulate
	// the bytes directly before copying back to a Mat
	imgData := img.ToBytes()

	for idx, class := range mask {
		if class == 0 {
			continue
		}

		clr := ClassColor(class)
		pixelPos := idx * 3

		b, g, r := imgData[pixelPos+0], imgData[pixelPos+1], imgData[pixelPos+2]

		imgData[pixelPos+0] = uint8(float32(b)*(1-alpha) + float32(clr.B)*alpha)
		imgData[pixelPos+1] = uint8(float32(g)*(1-alpha) + float32(clr.G)*alpha)
		imgData[pixelPos+2] = uint8(float32(r)*(1-alpha) + float32(clr.R)*alpha)
	}

	tmpImg, err := gocv.NewMatFromBytes(height, width, gocv.MatTypeCV8UC3, imgData)

	if err != nil {
		return fmt.Errorf("error creating overlay Mat: %w", err)
	}

	defer tmpImg.Close()
	tmpImg.CopyTo(img)

	return nil
}

// ScaleMask crops the rect region out of a width x height class mask, such
// as the letterbox content area, and rescales it to dstW x dstH with nearest
// neighbour sampling so class indices are never blended
func ScaleMask(mask []uint8, width, height int, rect image.Rectangle,
	dstW, dstH int) ([]uint8, error) {

	if len(mask) != width*height {
		return nil, fmt.Errorf("mask holds %d pixels, expected %dx%d", len(mask), width, height)
	}

	bounds := image.Rect(0, 0, width, height)

	if !rect.In(bounds) || rect.Empty() {
		return nil, fmt.Errorf("crop %v outside mask bounds %v", rect, bounds)
	}

	src := &image.Gray{Pix: mask, Stride: width, Rect: bounds}
	dst := image.NewGray(image.Rect(0, 0, dstW, dstH))

	draw.NearestNeighbor.Scale(dst, dst.Bounds(), src, rect, draw.Src, nil)

	return dst.Pix, nil
}

// ColorMask converts a class mask to an RGBA image using the class palette
func ColorMask(mask []uint8, width, height int) *image.RGBA {

	img := image.NewRGBA(image.Rect(0, 0, width, height))

	for idx, class := range mask {
		img.SetRGBA(idx%width, idx/width, ClassColor(class))
	}

	return img
}

// PaintClassMapToFile writes the class mask coloured with the class palette
// to an image file
func PaintClassMapToFile(filename string, mask []uint8, width, height int) error {

	if len(mask) != width*height {
		return fmt.Errorf("mask holds %d pixels, expected %dx%d", len(mask), width, height)
	}

	img, err := gocv.ImageToMatRGB(ColorMask(mask, width, height))

	if err != nil {
		return fmt.Errorf("error converting mask to Mat: %w", err)
	}

	defer img.Close()

	if gocv.IMWrite(filename, img) {
		return nil
	}

	return fmt.Errorf("failed to write to file %s", filename)
}

package render

import "image/color"

var (
	Black = color.RGBA{R: 0, G: 0, B: 0, A: 255}
	White = color.RGBA{R: 255, G: 255, B: 255, A: 255}
)

// ClassColor returns the Pascal VOC palette colour of a class index.  The
// palette spreads the bits of the index over the high bits of each channel
// so neighbouring classes get distinct colours, and class 0 (background) is
// black
func ClassColor(class uint8) color.RGBA {

	var r, g, b uint8
	c := class

	for shift := 7; shift >= 0 && c > 0; shift-- {
		r |= (c & 1) << shift
		g |= ((c >> 1) & 1) << shift
		b |= ((c >> 2) & 1) << shift
		c >>= 3
	}

	return color.RGBA{R: r, G: g, B: b, A: 255}
}

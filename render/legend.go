package render

import (
	"image"
	"image/color"

	"gocv.io/x/gocv"
)

// Font defines the parameters for rendering text on an image using GoCV
type Font struct {
	Face      gocv.HersheyFont
	Scale     float64
	Color     color.RGBA
	Thickness int
	LineType  gocv.LineType
	// Pad is the spacing placed around each legend entry
	Pad int
}

// DefaultFont returns default font settings
func DefaultFont() Font {
	return Font{
		Face:      gocv.FontHersheySimplex,
		Scale:     0.5,
		Color:     White,
		Thickness: 1,
		LineType:  gocv.LineAA,
		Pad:       4,
	}
}

// PresentClasses returns the sorted class indices occurring in the mask,
// excluding background
func PresentClasses(mask []uint8) []uint8 {

	var seen [256]bool

	for _, class := range mask {
		seen[class] = true
	}

	classes := make([]uint8, 0)

	for class := 1; class < len(seen); class++ {
		if seen[class] {
			classes = append(classes, uint8(class))
		}
	}

	return classes
}

// Legend draws a colour swatch and class name for every non background class
// present in the mask, stacked down the top left corner of the image
func Legend(img *gocv.Mat, mask []uint8, classNames []string, font Font) {

	y := font.Pad

	for _, class := range PresentClasses(mask) {

		name := "unknown"

		if int(class) < len(classNames) {
			name = classNames[class]
		}

		textSize := gocv.GetTextSize(name, font.Face, font.Scale, font.Thickness)
		swatch := textSize.Y + font.Pad

		rect := image.Rect(font.Pad, y, font.Pad+swatch, y+swatch)
		gocv.Rectangle(img, rect, ClassColor(class), -1)

		textPos := image.Pt(rect.Max.X+font.Pad, rect.Max.Y-font.Pad/2)
		gocv.PutTextWithParams(img, name, textPos, font.Face, font.Scale,
			font.Color, font.Thickness, font.LineType, false)

		y += swatch + font.Pad
	}
}

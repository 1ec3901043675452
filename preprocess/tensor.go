package preprocess

import (
	"fmt"

	"github.com/swdee/go-pointrend/tensor"
	"gocv.io/x/gocv"
)

// Normalize defines the per channel (R, G, B) mean and standard deviation
// applied after scaling pixel values to [0,1]
type Normalize struct {
	Mean [3]float32
	Std  [3]float32
}

// ImageNetNormalize returns the normalisation DeepLabV3 backbones are
// trained with
func ImageNetNormalize() Normalize {
	return Normalize{
		Mean: [3]float32{0.485, 0.456, 0.406},
		Std:  [3]float32{0.229, 0.224, 0.225},
	}
}

// NoNormalize leaves pixel values scaled to [0,1]
func NoNormalize() Normalize {
	return Normalize{
		Std: [3]float32{1, 1, 1},
	}
}

// ImagesToTensor converts a batch of equally sized RGB CV8UC3 Mats into a
// (B, 3, H, W) float tensor
func ImagesToTensor(imgs []gocv.Mat, norm Normalize) (*tensor.Tensor, error) {

	if len(imgs) == 0 {
		return nil, fmt.Errorf("%w: no images given", tensor.ErrEmpty)
	}

	height := imgs[0].Rows()
	width := imgs[0].Cols()

	if height == 0 || width == 0 {
		return nil, fmt.Errorf("%w: image is %dx%d", tensor.ErrEmpty, width, height)
	}

	out := tensor.New(len(imgs), 3, height, width)
	plane := height * width

	for b, img := range imgs {

		if img.Rows() != height || img.Cols() != width || img.Type() != gocv.MatTypeCV8UC3 {
			return nil, fmt.Errorf("%w: image %d does not match batch shape %dx%dx3",
				tensor.ErrShapeMismatch, b, width, height)
		}

		// it is too slow to read pixel by pixel over CGO, so copy the bytes
		// out and work on the HWC buffer directly
		data := img.ToBytes()
		base := b * 3 * plane

		for i := 0; i < plane; i++ {
			for c := 0; c < 3; c++ {
				v := float32(data[i*3+c]) / 255
				out.Data[base+c*plane+i] = (v - norm.Mean[c]) / norm.Std[c]
			}
		}
	}

	return out, nil
}

package tensor

import "github.com/x448/float16"

var f16LookupTable [65536]float32

func init() {
	// precompute float16 lookup table for faster conversion to float32
	for i := range f16LookupTable {
		f16 := float16.Frombits(uint16(i))
		f16LookupTable[i] = f16.Float32()
	}
}

// FromFloat16 converts a buffer of IEEE 754 half precision values, such as
// those produced by an NPU backbone, into a float32 tensor of the given shape
func FromFloat16(buf []uint16, shape ...int) (*Tensor, error) {

	data := make([]float32, len(buf))

	for i, v := range buf {
		data[i] = f16LookupTable[v]
	}

	return FromData(data, shape...)
}

// ToFloat16 converts the tensor data to half precision bit patterns
func (t *Tensor) ToFloat16() []uint16 {

	out := make([]uint16, len(t.Data))

	for i, v := range t.Data {
		out[i] = float16.Fromfloat32(v).Bits()
	}

	return out
}

// Package halffloat converts between IEEE 754 binary16 and binary32.
// Reference modules use it only at the host/GPU staging boundary
// (write_sink decoding an f16 connector's bytes for image encoding);
// the GPU-side math always stays in the shader.
package halffloat

import "math"

// ToFloat32 decodes one IEEE 754 half-precision value.
func ToFloat32(h uint16) float32 {
	sign := uint32(h&0x8000) << 16
	exp := (h >> 10) & 0x1f
	frac := uint32(h & 0x3ff)

	switch exp {
	case 0:
		if frac == 0 {
			return math.Float32frombits(sign)
		}
		// subnormal: normalise by shifting the fraction into place.
		e := 1
		for frac&0x400 == 0 {
			frac <<= 1
			e--
		}
		frac &= 0x3ff
		bits := sign | uint32(int32(e+127-15))<<23 | frac<<13
		return math.Float32frombits(bits)
	case 0x1f:
		bits := sign | 0xff<<23 | frac<<13
		return math.Float32frombits(bits)
	default:
		bits := sign | (uint32(exp)+(127-15))<<23 | frac<<13
		return math.Float32frombits(bits)
	}
}

// FromFloat32 encodes f as IEEE 754 half-precision, rounding toward
// zero and saturating to infinity on overflow. Values below the
// smallest normal half are encoded as subnormals.
func FromFloat32(f float32) uint16 {
	bits := math.Float32bits(f)
	sign := uint16(bits>>16) & 0x8000
	exp := int32(bits>>23&0xff) - 127 + 15
	frac := bits & 0x7fffff

	switch {
	case exp <= 0:
		if exp < -10 {
			return sign
		}
		return sign | uint16((frac|0x800000)>>uint(14-exp))
	case exp >= 0x1f:
		return sign | 0x7c00
	default:
		return sign | uint16(exp)<<10 | uint16(frac>>13)
	}
}

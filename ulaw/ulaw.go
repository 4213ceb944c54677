// Package ulaw implements the 256 level mu-law companding used by LPCNet training data.
package ulaw

import "math"

const scale = 255.0 / 32768.0
const scale1 = 32768.0 / 255.0

var log256 = math.Log(256)

// Lin2Ulaw compresses a linear 16 bit sample value into a mu-law byte.
func Lin2Ulaw(x float64) uint8 {
	s := sign(x)
	x = math.Abs(x)
	u := s * (128 * math.Log(1+scale*x) / log256)
	u = 128 + math.RoundToEven(u)
	if u < 0 {
		u = 0
	}
	if u > 255 {
		u = 255
	}
	return uint8(u)
}

// Ulaw2Lin expands a mu-law byte into a linear 16 bit sample value.
func Ulaw2Lin(u uint8) float64 {
	v := float64(u) - 128
	s := sign(v)
	v = math.Abs(v)
	return s * scale1 * (math.Exp(v/128*log256) - 1)
}

// Lin2UlawSlice compresses all samples of in.
func Lin2UlawSlice(in []int16) (out []uint8) {
	out = make([]uint8, len(in))
	for i, v := range in {
		out[i] = Lin2Ulaw(float64(v))
	}
	return
}

// Ulaw2LinSlice expands all bytes of in.
func Ulaw2LinSlice(in []uint8) (out []float64) {
	out = make([]float64, len(in))
	for i, v := range in {
		out[i] = Ulaw2Lin(v)
	}
	return
}

func sign(x float64) float64 {
	switch {
	case x > 0:
		return 1
	case x < 0:
		return -1
	}
	return 0
}

package codec

import "math"

func f32bits(v float64) uint32 { return math.Float32bits(float32(v)) }

func f32float(bits uint32) float64 { return float64(math.Float32frombits(bits)) }

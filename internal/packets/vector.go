package packets

import "math"

const (
	vectorMin = -40.0
	vectorMax = 40.0
)

// Vector2 is a position or velocity on the map.
type Vector2 struct {
	X float32
	Y float32
}

// Lerp interpolates between a and b; t is clamped to [0, 1].
func Lerp(a, b, t float64) float64 {
	t = math.Max(0, math.Min(1, t))
	return a + (b-a)*t
}

// Unlerp returns where v sits between a and b, clamped to [0, 1].
func Unlerp(a, b, v float64) float64 {
	t := (v - a) / (b - a)
	return math.Max(0, math.Min(1, t))
}

func quantize(v float32) uint16 {
	return uint16(math.Round(Unlerp(vectorMin, vectorMax, float64(v)) * math.MaxUint16))
}

func dequantize(q uint16) float32 {
	return float32(Lerp(vectorMin, vectorMax, float64(q)/math.MaxUint16))
}

// EncodeVector2 returns the four-byte wire form of v.
func EncodeVector2(v Vector2) []byte {
	w := NewWriter()
	w.WriteVector2(v)
	return w.Bytes()
}

// DecodeVector2 decodes the first four bytes of b.
func DecodeVector2(b []byte) (Vector2, error) {
	return NewReader(b).ReadVector2()
}

func (w *Writer) WriteVector2(v Vector2) {
	w.WriteUint16(quantize(v.X))
	w.WriteUint16(quantize(v.Y))
}

func (r *Reader) ReadVector2() (Vector2, error) {
	x, err := r.ReadUint16()
	if err != nil {
		return Vector2{}, err
	}
	y, err := r.ReadUint16()
	if err != nil {
		return Vector2{}, err
	}
	return Vector2{X: dequantize(x), Y: dequantize(y)}, nil
}

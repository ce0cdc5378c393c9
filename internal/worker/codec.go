package worker

import (
	"encoding/binary"
	"math"

	"github.com/andresmejia3/facemap/internal/geometry"
	"github.com/andresmejia3/facemap/internal/landmarks"
	"github.com/andresmejia3/facemap/internal/types"
)

// payloadReader decodes big endian fields and remembers the first short read.
type payloadReader struct {
	buf []byte
	err error
}

func (r *payloadReader) take(n int) []byte {
	if r.err != nil {
		return nil
	}
	if n < 0 || len(r.buf) < n {
		r.err = transportErr("truncated payload")
		return nil
	}
	b := r.buf[:n]
	r.buf = r.buf[n:]
	return b
}

func (r *payloadReader) u16() int {
	if b := r.take(2); b != nil {
		return int(binary.BigEndian.Uint16(b))
	}
	return 0
}

func (r *payloadReader) u32() int {
	if b := r.take(4); b != nil {
		return int(binary.BigEndian.Uint32(b))
	}
	return 0
}

func (r *payloadReader) i32() int {
	if b := r.take(4); b != nil {
		return int(int32(binary.BigEndian.Uint32(b)))
	}
	return 0
}

func (r *payloadReader) f64() float64 {
	if b := r.take(8); b != nil {
		return math.Float64frombits(binary.BigEndian.Uint64(b))
	}
	return 0
}

func (r *payloadReader) str(n int) string {
	return string(r.take(n))
}

// count reads a u32 element count and rejects counts the remaining bytes
// cannot hold at minSize bytes per element.
func (r *payloadReader) count(minSize int) int {
	n := r.u32()
	if r.err == nil && n*minSize > len(r.buf) {
		r.err = transportErr("count %d exceeds payload", n)
		return 0
	}
	return n
}

func (r *payloadReader) done() error {
	if r.err == nil && len(r.buf) != 0 {
		return transportErr("%d trailing bytes", len(r.buf))
	}
	return r.err
}

func decodeError(payload []byte) (types.ErrorResult, error) {
	r := &payloadReader{buf: payload}
	msg := r.str(r.u32())
	return types.ErrorResult{Error: msg}, r.done()
}

// [u32 n] then n x [i32 top][i32 right][i32 bottom][i32 left]
func decodeBoxes(payload []byte) ([]geometry.DetectorBox, error) {
	r := &payloadReader{buf: payload}
	n := r.count(16)
	boxes := make([]geometry.DetectorBox, 0, n)
	for i := 0; i < n && r.err == nil; i++ {
		boxes = append(boxes, geometry.DetectorBox{Top: r.i32(), Right: r.i32(), Bottom: r.i32(), Left: r.i32()})
	}
	if err := r.done(); err != nil {
		return nil, err
	}
	return boxes, nil
}

// [u32 faces]; per face [u32 features]; per feature [u16 nameLen][name][u32 points][i32 x][i32 y]...
func decodeLandmarks(payload []byte) ([]landmarks.Set, error) {
	r := &payloadReader{buf: payload}
	faces := r.count(4)
	sets := make([]landmarks.Set, 0, faces)
	for f := 0; f < faces && r.err == nil; f++ {
		features := r.count(6)
		set := make(landmarks.Set, features)
		for i := 0; i < features && r.err == nil; i++ {
			name := landmarks.FeatureName(r.str(r.u16()))
			points := r.count(8)
			pts := make([]geometry.Point, 0, points)
			for p := 0; p < points && r.err == nil; p++ {
				pts = append(pts, geometry.Point{X: r.i32(), Y: r.i32()})
			}
			set[name] = pts
		}
		sets = append(sets, set)
	}
	if err := r.done(); err != nil {
		return nil, err
	}
	return sets, nil
}

// [u32 n]; per encoding [u32 dim] then dim x f64
func decodeEncodings(payload []byte) ([][]float64, error) {
	r := &payloadReader{buf: payload}
	n := r.count(4)
	out := make([][]float64, 0, n)
	for i := 0; i < n && r.err == nil; i++ {
		dim := r.count(8)
		vec := make([]float64, dim)
		for j := range vec {
			vec[j] = r.f64()
		}
		out = append(out, vec)
	}
	if err := r.done(); err != nil {
		return nil, err
	}
	return out, nil
}

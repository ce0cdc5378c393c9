// Package fingerprint derives deterministic identifiers from face identity encodings.
//
// A fingerprint is the hex sha256 of a canonical text form of the encoding.
// It is a compact label for an encoding, not a secret and not a similarity measure:
// two encodings of the same person almost never share a fingerprint.
package fingerprint

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"image"
	"strconv"
	"strings"
)

// IdentityEncoder returns identity vectors for the faces found in a crop.
// An empty result means no encoding; an error means the encoder failed.
type IdentityEncoder interface {
	EncodeIdentity(ctx context.Context, img image.Image) ([][]float64, error)
}

// Canonical renders vec as "[v0 v1 ...]" using the shortest representation that
// round-trips each float64. Bit-identical vectors always render identically.
func Canonical(vec []float64) string {
	var b strings.Builder
	b.WriteByte('[')
	for i, v := range vec {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(strconv.FormatFloat(v, 'g', -1, 64))
	}
	b.WriteByte(']')
	return b.String()
}

// Digest returns the fingerprint of vec.
func Digest(vec []float64) string {
	sum := sha256.Sum256([]byte(Canonical(vec)))
	return hex.EncodeToString(sum[:])
}

// Identity pairs an encoding with its fingerprint. The zero value is "absent".
// Fields are private so a fingerprint can never drift from its vector.
type Identity struct {
	vector      []float64
	fingerprint string
}

// New copies vec and computes its fingerprint.
func New(vec []float64) Identity {
	v := make([]float64, len(vec))
	copy(v, vec)
	return Identity{vector: v, fingerprint: Digest(v)}
}

// Vector returns a copy of the identity encoding.
func (id Identity) Vector() []float64 {
	v := make([]float64, len(id.vector))
	copy(v, id.vector)
	return v
}

// Fingerprint returns the digest, or "" for the zero Identity.
func (id Identity) Fingerprint() string { return id.fingerprint }

// Dim is the encoding length.
func (id Identity) Dim() int { return len(id.vector) }

// Valid reports whether the identity holds an encoding.
func (id Identity) Valid() bool { return id.fingerprint != "" }

// Fingerprinter runs an IdentityEncoder and fingerprints the result.
type Fingerprinter struct {
	Encoder IdentityEncoder
}

// Fingerprint encodes crop and fingerprints the first encoding.
// ok is false when the encoder found nothing.
func (f Fingerprinter) Fingerprint(ctx context.Context, crop image.Image) (id Identity, ok bool, err error) {
	vecs, err := f.Encoder.EncodeIdentity(ctx, crop)
	if err != nil {
		return Identity{}, false, err
	}
	if len(vecs) == 0 || len(vecs[0]) == 0 {
		return Identity{}, false, nil
	}
	return New(vecs[0]), true, nil
}

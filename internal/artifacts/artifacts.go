// Package artifacts writes feature maps, and optionally overlays and crops, to disk.
package artifacts

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"

	"github.com/andresmejia3/facemap/internal/pipeline"
	"github.com/disintegration/imaging"
)

// Mode selects how many feature maps are written per image.
type Mode int

const (
	// PerFace writes one feature map for every face that has one.
	PerFace Mode = iota
	// FirstOnly writes one feature map per image, from the first face that has one.
	FirstOnly
)

func (m Mode) String() string {
	if m == FirstOnly {
		return "first"
	}
	return "per-face"
}

// ParseMode accepts "per-face" or "first".
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(s) {
	case "per-face", "":
		return PerFace, nil
	case "first":
		return FirstOnly, nil
	}
	return PerFace, fmt.Errorf("invalid output mode %q (want per-face or first)", s)
}

// Writer saves the artifacts of processed images under Dir.
// Output names derive from the source file name. Sources whose names collide
// (same base name in different directories, or differing only in extension)
// get -2, -3 ... suffixes in the order they are first seen.
// A Writer is not safe for concurrent use.
type Writer struct {
	Dir          string
	Mode         Mode
	SaveOverlays bool
	SaveCrops    bool

	stems   map[string]string
	claimed map[string]bool
}

// Save writes the artifacts of src and returns the paths written, in order.
// Nothing is written for images without faces.
func (w *Writer) Save(src *pipeline.SourceImage) ([]string, error) {
	byFace, err := w.SaveFaces(src)
	var all []string
	for _, rec := range src.Faces {
		all = append(all, byFace[rec.Index]...)
	}
	return all, err
}

// SaveFaces is Save with the written paths grouped by face index.
func (w *Writer) SaveFaces(src *pipeline.SourceImage) (map[int][]string, error) {
	written := map[int][]string{}
	faces := w.selectFaces(src.Faces)
	if len(faces) == 0 {
		return written, nil
	}
	if err := os.MkdirAll(w.Dir, 0755); err != nil {
		return written, fmt.Errorf("create output dir: %w", err)
	}

	stem := w.stem(src.Path)
	for _, rec := range faces {
		name := fmt.Sprintf("%s_face%d", stem, rec.Index)
		if w.Mode == FirstOnly {
			name = stem
		}

		outputs := []struct {
			suffix string
			img    image.Image
			want   bool
		}{
			{"", rec.FeatureMap, rec.FeatureMap != nil},
			{"_overlay", rec.Overlay, w.SaveOverlays && rec.Overlay != nil},
			{"_crop", rec.Crop, w.SaveCrops && rec.Crop != nil},
		}
		for _, out := range outputs {
			if !out.want {
				continue
			}
			path := filepath.Join(w.Dir, name+out.suffix+".png")
			if err := imaging.Save(out.img, path); err != nil {
				return written, fmt.Errorf("save %s: %w", path, err)
			}
			written[rec.Index] = append(written[rec.Index], path)
		}
	}
	return written, nil
}

func (w *Writer) selectFaces(faces []*pipeline.Record) []*pipeline.Record {
	if w.Mode != FirstOnly {
		return faces
	}
	for _, rec := range faces {
		if rec.FeatureMap != nil {
			return []*pipeline.Record{rec}
		}
	}
	return nil
}

// stem returns the output name prefix for path, stable across calls.
func (w *Writer) stem(path string) string {
	if w.stems == nil {
		w.stems = map[string]string{}
		w.claimed = map[string]bool{}
	}
	abs := path
	if a, err := filepath.Abs(path); err == nil {
		abs = a
	}
	if stem, ok := w.stems[abs]; ok {
		return stem
	}

	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	stem := base
	// Case-insensitive so names stay distinct on macOS and Windows volumes.
	for n := 2; w.claimed[strings.ToLower(stem)]; n++ {
		stem = fmt.Sprintf("%s-%d", base, n)
	}
	w.claimed[strings.ToLower(stem)] = true
	w.stems[abs] = stem
	return stem
}

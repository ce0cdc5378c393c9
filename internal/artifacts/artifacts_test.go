package artifacts

import (
	"image"
	"os"
	"path/filepath"
	"testing"

	"github.com/andresmejia3/facemap/internal/pipeline"
	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func record(index int, withMap bool) *pipeline.Record {
	rec := &pipeline.Record{Index: index, Crop: image.NewNRGBA(image.Rect(0, 0, 8, 8))}
	if withMap {
		rec.FeatureMap = image.NewRGBA(image.Rect(0, 0, 20, 10))
		rec.Overlay = image.NewRGBA(image.Rect(0, 0, 8, 8))
	}
	return rec
}

func source(faces ...*pipeline.Record) *pipeline.SourceImage {
	src := pipeline.NewSourceImage("/photos/team.jpg", image.NewRGBA(image.Rect(0, 0, 20, 10)))
	src.Faces = faces
	return src
}

func names(paths []string) []string {
	var out []string
	for _, p := range paths {
		out = append(out, filepath.Base(p))
	}
	return out
}

func TestSavePerFace(t *testing.T) {
	dir := t.TempDir()
	w := Writer{Dir: dir}

	paths, err := w.Save(source(record(0, true), record(1, false), record(2, true)))
	require.NoError(t, err)
	assert.Equal(t, []string{"team_face0.png", "team_face2.png"}, names(paths))

	img, err := imaging.Open(paths[0])
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 20, 10), img.Bounds(), "feature map keeps source size")
}

func TestSaveFirstOnly(t *testing.T) {
	dir := t.TempDir()
	w := Writer{Dir: dir, Mode: FirstOnly}

	paths, err := w.Save(source(record(0, true), record(1, true)))
	require.NoError(t, err)
	assert.Equal(t, []string{"team.png"}, names(paths))

	t.Run("Skips leading faces without feature map", func(t *testing.T) {
		w := Writer{Dir: t.TempDir(), Mode: FirstOnly}
		byFace, err := w.SaveFaces(source(record(0, false), record(1, true), record(2, true)))
		require.NoError(t, err)
		assert.Empty(t, byFace[0])
		assert.Equal(t, []string{"team.png"}, names(byFace[1]))
		assert.Empty(t, byFace[2])
	})

	t.Run("No feature map at all writes nothing", func(t *testing.T) {
		w := Writer{Dir: t.TempDir(), Mode: FirstOnly, SaveCrops: true}
		paths, err := w.Save(source(record(0, false), record(1, false)))
		require.NoError(t, err)
		assert.Empty(t, paths)
	})
}

func TestSaveExtras(t *testing.T) {
	dir := t.TempDir()
	w := Writer{Dir: dir, SaveOverlays: true, SaveCrops: true}

	byFace, err := w.SaveFaces(source(record(0, true), record(1, false)))
	require.NoError(t, err)
	assert.Equal(t, []string{"team_face0.png", "team_face0_overlay.png", "team_face0_crop.png"}, names(byFace[0]))
	assert.Equal(t, []string{"team_face1_crop.png"}, names(byFace[1]), "crop is saved even without landmarks")
}

func TestSaveNoFaces(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")

	w := Writer{Dir: dir}
	paths, err := w.Save(source())
	require.NoError(t, err)
	assert.Empty(t, paths)

	_, err = os.Stat(dir)
	assert.True(t, os.IsNotExist(err), "no output dir is created for an empty image")
}

func TestSaveCollidingNames(t *testing.T) {
	dir := t.TempDir()
	w := Writer{Dir: dir}
	bounds := image.Rect(0, 0, 20, 10)

	var got []string
	for _, path := range []string{"trip1/IMG_0001.JPG", "trip2/IMG_0001.JPG", "trip2/IMG_0001.png"} {
		src := pipeline.NewSourceImage(path, image.NewRGBA(bounds))
		src.Faces = []*pipeline.Record{record(0, true)}
		paths, err := w.Save(src)
		require.NoError(t, err)
		got = append(got, names(paths)...)
	}
	assert.Equal(t, []string{"IMG_0001_face0.png", "IMG_0001-2_face0.png", "IMG_0001-3_face0.png"}, got)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 3, "no output overwrote another")

	t.Run("Same source keeps its name", func(t *testing.T) {
		src := pipeline.NewSourceImage("trip2/IMG_0001.JPG", image.NewRGBA(bounds))
		src.Faces = []*pipeline.Record{record(0, true)}
		paths, err := w.Save(src)
		require.NoError(t, err)
		assert.Equal(t, []string{"IMG_0001-2_face0.png"}, names(paths))
	})
}

func TestParseMode(t *testing.T) {
	for in, want := range map[string]Mode{"per-face": PerFace, "": PerFace, "FIRST": FirstOnly} {
		got, err := ParseMode(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseMode("all")
	assert.Error(t, err)
	assert.Equal(t, "first", FirstOnly.String())
}

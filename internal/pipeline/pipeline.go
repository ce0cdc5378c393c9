// Package pipeline runs the per-image face pipeline: locate, crop, landmarks, fingerprint.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"sync"

	"github.com/andresmejia3/facemap/internal/cropper"
	"github.com/andresmejia3/facemap/internal/fingerprint"
	"github.com/andresmejia3/facemap/internal/landmarks"
	"github.com/andresmejia3/facemap/internal/locator"
	"github.com/corona10/goimagehash"
)

// Pipeline wires the three model collaborators into the per-face stages.
type Pipeline struct {
	Locator       *locator.Locator
	Cropper       cropper.Cropper
	Landmarks     landmarks.LandmarkDetector
	Renderer      landmarks.Renderer
	Fingerprinter fingerprint.Fingerprinter
	Workers       int
	Logger        *slog.Logger
	// Progress, if set, is called by RunBatch after each path that did not stop the batch.
	Progress func(path string)
}

// New builds a Pipeline from cfg and the collaborators.
func New(cfg Config, det locator.FaceDetector, lm landmarks.LandmarkDetector, enc fingerprint.IdentityEncoder, logger *slog.Logger) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Pipeline{
		Locator:       locator.New(det, cfg.Padding),
		Cropper:       cropper.Cropper{Policy: cfg.Overflow},
		Landmarks:     lm,
		Renderer:      landmarks.NewRenderer(cfg.Stroke),
		Fingerprinter: fingerprint.Fingerprinter{Encoder: enc},
		Workers:       cfg.Workers,
		Logger:        logger,
	}, nil
}

func (p *Pipeline) logger() *slog.Logger {
	if p.Logger == nil {
		return slog.Default()
	}
	return p.Logger
}

// IsFatal reports whether err means no further image can be processed:
// cancellation, or a collaborator signalling it is unavailable through an
// Unavailable() bool method. Any other collaborator error concerns only the
// request that produced it.
func IsFatal(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var u interface{ Unavailable() bool }
	return errors.As(err, &u) && u.Unavailable()
}

// Run populates src.Faces. Per-face failures, including collaborator errors on
// a single crop, are recorded on the face and logged. The returned error means
// the image as a whole failed: detection errored, a collaborator became
// unavailable, or ctx was cancelled. src.Faces is then left empty.
func (p *Pipeline) Run(ctx context.Context, src *SourceImage) error {
	log := p.logger().With("image", src.Path)
	src.Faces = nil

	regions, err := p.Locator.Locate(ctx, src.Pixels)
	if err != nil {
		return fmt.Errorf("face detection failed: %w", err)
	}
	if len(regions) == 0 {
		log.Debug("no faces detected")
		return nil
	}

	// Build the survivor list fresh; nothing is ever removed from a slice being ranged over.
	records := make([]*Record, 0, len(regions))
	for i, region := range regions {
		crop, effective, err := p.Cropper.Crop(src.Pixels, region)
		if err != nil {
			log.Warn("face dropped", "face", i, "region", region.String(), "reason", err)
			continue
		}
		rec := &Record{Index: i, Requested: region, Region: effective, Crop: crop}
		if h, err := goimagehash.DifferenceHash(crop); err == nil {
			rec.CropHash = h.ToString()
		} else {
			log.Debug("crop hash failed", "face", i, "reason", err)
		}
		records = append(records, rec)
	}

	bounds := src.Bounds()
	err = p.forEach(ctx, records, func(ctx context.Context, rec *Record) error {
		return p.processFace(ctx, log, bounds, rec)
	})
	if err != nil {
		return err
	}

	src.Faces = records
	return nil
}

// processFace runs the landmark and fingerprint stages for one face.
// The caller guarantees rec is owned by this goroutine alone.
func (p *Pipeline) processFace(ctx context.Context, log *slog.Logger, bounds image.Rectangle, rec *Record) error {
	set, ok, err := landmarks.Extract(ctx, p.Landmarks, rec.Crop)
	switch {
	case err != nil && IsFatal(err):
		return fmt.Errorf("landmark detection failed for face %d: %w", rec.Index, err)
	case err != nil:
		rec.addIssue(fmt.Errorf("%w: %w", ErrLandmarkMissing, err))
		log.Warn("landmark detection failed", "face", rec.Index, "reason", err)
	case ok:
		rec.Landmarks = set
		rec.Overlay = p.Renderer.DrawOverlay(rec.Crop, set)
		rec.FeatureMap = p.Renderer.DrawFeatureMap(bounds, rec.Region, set)
	default:
		rec.addIssue(ErrLandmarkMissing)
		log.Warn("no landmarks", "face", rec.Index)
	}

	id, ok, err := p.Fingerprinter.Fingerprint(ctx, rec.Crop)
	switch {
	case err != nil && IsFatal(err):
		return fmt.Errorf("identity encoding failed for face %d: %w", rec.Index, err)
	case err != nil:
		rec.addIssue(fmt.Errorf("%w: %w", ErrEncodingMissing, err))
		log.Warn("identity encoding failed", "face", rec.Index, "reason", err)
	case ok:
		rec.identity = id
		log.Debug("face fingerprinted", "face", rec.Index, "fingerprint", id.Fingerprint())
	default:
		rec.addIssue(ErrEncodingMissing)
		log.Warn("no identity encoding", "face", rec.Index)
	}
	return nil
}

// forEach applies fn to every record with at most p.Workers goroutines.
// The first error cancels the remaining work and is returned.
func (p *Pipeline) forEach(parent context.Context, records []*Record, fn func(context.Context, *Record) error) error {
	if len(records) == 0 {
		return nil
	}
	workers := p.Workers
	if workers < 1 {
		workers = 1
	}
	if workers > len(records) {
		workers = len(records)
	}

	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	jobs := make(chan *Record)
	errChan := make(chan error, workers)
	var wg sync.WaitGroup

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for rec := range jobs {
				if err := fn(ctx, rec); err != nil {
					select {
					case errChan <- err:
					default:
					}
					cancel()
					return
				}
			}
		}()
	}

feed:
	for _, rec := range records {
		select {
		case jobs <- rec:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	select {
	case err := <-errChan:
		return err
	default:
	}
	return parent.Err()
}

package pipeline

import (
	"context"
	"fmt"
)

// FileError records an image that could not be processed.
type FileError struct {
	Path string
	Err  error
}

func (e FileError) Error() string { return fmt.Sprintf("%s: %v", e.Path, e.Err) }

func (e FileError) Unwrap() error { return e.Err }

// BatchReport summarizes a RunBatch call.
type BatchReport struct {
	Processed int
	Faces     int
	Failed    []FileError
}

// BatchFunc receives every image after Run. A returned error marks that image
// as failed without stopping the batch.
type BatchFunc func(ctx context.Context, src *SourceImage) error

// RunBatch loads and processes paths one at a time, in the given order.
// Files that fail to load or whose handler fails are reported and skipped.
// So are images whose detection failed. Only errors IsFatal accepts stop the
// batch and are returned.
func (p *Pipeline) RunBatch(ctx context.Context, paths []string, fn BatchFunc) (BatchReport, error) {
	var report BatchReport

	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if err := p.runOne(ctx, path, fn, &report); err != nil {
			return report, err
		}
		if p.Progress != nil {
			p.Progress(path)
		}
	}
	return report, nil
}

func (p *Pipeline) runOne(ctx context.Context, path string, fn BatchFunc, report *BatchReport) error {
	src, err := Load(path)
	if err != nil {
		p.logger().Warn("image skipped", "image", path, "reason", err)
		report.Failed = append(report.Failed, FileError{Path: path, Err: err})
		return nil
	}

	if err := p.Run(ctx, src); err != nil {
		if IsFatal(err) {
			return fmt.Errorf("%s: %w", path, err)
		}
		p.logger().Warn("image failed", "image", path, "reason", err)
		report.Failed = append(report.Failed, FileError{Path: path, Err: err})
		return nil
	}
	report.Processed++
	report.Faces += len(src.Faces)

	if fn != nil {
		if err := fn(ctx, src); err != nil {
			p.logger().Warn("image output failed", "image", path, "reason", err)
			report.Failed = append(report.Failed, FileError{Path: path, Err: err})
		}
	}
	return nil
}

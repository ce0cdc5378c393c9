package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/andresmejia3/facemap/internal/cropper"
	"github.com/andresmejia3/facemap/internal/haar"
	"github.com/andresmejia3/facemap/internal/landmarks"
	"github.com/andresmejia3/facemap/internal/locator"
	"github.com/andresmejia3/facemap/internal/pipeline"
	"github.com/andresmejia3/facemap/internal/utils"
	"github.com/andresmejia3/facemap/internal/worker"
	"github.com/spf13/cobra"
)

// addEngineFlags registers the pipeline and worker flags shared by process and inspect.
func addEngineFlags(cmd *cobra.Command, opts *Options) {
	defaults := worker.DefaultOptions()
	f := cmd.Flags()
	f.IntVarP(&opts.Padding, "padding", "p", locator.DefaultPadding, "Pixels added around every detected face")
	f.Float64Var(&opts.Stroke, "stroke", landmarks.DefaultStroke, "Landmark line width in pixels")
	f.StringVar(&opts.Overflow, "overflow", cropper.Clamp.String(), "What to do with padded faces past the image edge (clamp|reject)")
	f.IntVarP(&opts.FaceWorkers, "face-workers", "w", 1, "Faces of one image processed concurrently")
	f.StringVarP(&opts.WorkerTimeout, "worker-timeout", "T", defaults.Timeout.String(), "Maximum time to wait for one worker reply")
	f.StringVar(&opts.PythonPath, "python", envOr("FACEMAP_PYTHON", defaults.Python), "Python interpreter for the worker")
	f.StringVar(&opts.WorkerScript, "worker-script", envOr("FACEMAP_WORKER_SCRIPT", defaults.Script), "Path to the Python worker script")
	f.StringVar(&opts.Detector, "detector", "python", "Face detector backend (python|haar)")
	f.StringVar(&opts.CascadePath, "cascade", "", "Haar cascade XML, required with --detector haar")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// validateEngineFlags checks the shared flags before any process is started.
func validateEngineFlags(opts *Options) error {
	if opts.Padding < 0 {
		return fmt.Errorf("invalid padding: must be >= 0, got %d", opts.Padding)
	}
	if opts.Stroke <= 0 {
		return fmt.Errorf("invalid stroke: must be > 0, got %g", opts.Stroke)
	}
	if _, err := cropper.ParsePolicy(opts.Overflow); err != nil {
		return err
	}
	if opts.NumEngines < 1 {
		opts.NumEngines = 1
	}
	if opts.FaceWorkers < 1 {
		opts.FaceWorkers = 1
	}
	if d, err := time.ParseDuration(opts.WorkerTimeout); err != nil || d < 0 {
		return fmt.Errorf("invalid worker-timeout %q (use '60s', '2m')", opts.WorkerTimeout)
	}
	switch opts.Detector {
	case "python":
	case "haar":
		if opts.CascadePath == "" {
			return fmt.Errorf("--detector haar requires --cascade")
		}
		if _, err := os.Stat(opts.CascadePath); err != nil {
			return fmt.Errorf("cascade file: %w", err)
		}
	default:
		return fmt.Errorf("invalid detector %q (want python or haar)", opts.Detector)
	}
	return nil
}

// backend owns the worker processes and the optional Haar detector behind a pipeline.
type backend struct {
	pool *worker.Pool
	haar *haar.Detector
}

func startBackend(opts Options) (*backend, error) {
	timeout, _ := time.ParseDuration(opts.WorkerTimeout)
	pool, err := worker.NewPool(opts.NumEngines, worker.Options{
		Python:  opts.PythonPath,
		Script:  opts.WorkerScript,
		Timeout: timeout,
	})
	if err != nil {
		return nil, err
	}

	b := &backend{pool: pool}
	if opts.Detector == "haar" {
		det, err := haar.New(opts.CascadePath)
		if err != nil {
			pool.Close()
			return nil, err
		}
		b.haar = det
	}
	return b, nil
}

func (b *backend) detector() locator.FaceDetector {
	if b.haar != nil {
		return b.haar
	}
	return b.pool
}

// crashLogs returns the command whose stderr explains the last worker failure.
func (b *backend) crashLogs() *utils.SafeCommand {
	return b.pool.Failed()
}

func (b *backend) Close() {
	if b.haar != nil {
		b.haar.Close()
	}
	b.pool.Close()
}

func pipelineConfig(opts Options) (pipeline.Config, error) {
	policy, err := cropper.ParsePolicy(opts.Overflow)
	if err != nil {
		return pipeline.Config{}, err
	}
	cfg := pipeline.Config{
		Padding:  opts.Padding,
		Stroke:   opts.Stroke,
		Overflow: policy,
		Workers:  opts.FaceWorkers,
	}
	return cfg, cfg.Validate()
}

func newPipeline(opts Options, b *backend) (*pipeline.Pipeline, error) {
	cfg, err := pipelineConfig(opts)
	if err != nil {
		return nil, err
	}
	return pipeline.New(cfg, b.detector(), b.pool, b.pool, logger)
}

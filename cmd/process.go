package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/andresmejia3/facemap/internal/artifacts"
	"github.com/andresmejia3/facemap/internal/pipeline"
	"github.com/andresmejia3/facemap/internal/store"
	"github.com/andresmejia3/facemap/internal/utils"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var processOpts Options

var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Write landmark feature maps and fingerprints for a batch of photos",
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		return runProcess(cmd.Context(), processOpts)
	},
}

func init() {
	processCmd.Flags().StringVarP(&processOpts.InputPath, "input", "i", "", "Image file, directory or glob (e.g. 'photos/*.jpg')")
	processCmd.Flags().StringVarP(&processOpts.OutputDir, "output", "o", "output", "Directory for feature maps")
	processCmd.Flags().StringVarP(&processOpts.OutputMode, "output-mode", "m", artifacts.PerFace.String(), "Feature maps per image (per-face|first)")
	processCmd.Flags().IntVarP(&processOpts.NumEngines, "engines", "e", 1, "Number of parallel Python worker processes")
	processCmd.Flags().BoolVar(&processOpts.SaveOverlays, "save-overlays", false, "Also save each crop with its landmarks drawn on it")
	processCmd.Flags().BoolVar(&processOpts.SaveCrops, "save-crops", false, "Also save each face crop")
	addEngineFlags(processCmd, &processOpts)

	processCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(processCmd)
}

// runRecorder is the part of the ledger process needs.
type runRecorder interface {
	RecordRun(ctx context.Context, run store.ImageRun, faces []store.FaceArtifact) error
}

// runProcess orchestrates a batch: input expansion, worker pool, pipeline, outputs and ledger.
func runProcess(ctx context.Context, opts Options) error {
	if err := validateProcessFlags(&opts); err != nil {
		utils.ShowError("Invalid flags", err, nil)
		return err
	}

	paths, err := utils.ExpandGlob(opts.InputPath)
	if err != nil {
		utils.ShowError("No input images", err, nil)
		return err
	}
	mode, _ := artifacts.ParseMode(opts.OutputMode)
	writer := artifacts.Writer{
		Dir:          opts.OutputDir,
		Mode:         mode,
		SaveOverlays: opts.SaveOverlays,
		SaveCrops:    opts.SaveCrops,
	}

	fmt.Fprintf(os.Stderr, "🖼️  Found %d image(s)\n", len(paths))
	fmt.Fprintf(os.Stderr, "⚙️  Spawning %d Worker Engines...\n", opts.NumEngines)
	b, err := startBackend(opts)
	if err != nil {
		utils.ShowError("Worker startup failed", err, nil)
		return err
	}
	defer b.Close()

	p, err := newPipeline(opts, b)
	if err != nil {
		utils.ShowError("Invalid pipeline settings", err, nil)
		return err
	}

	var ledger runRecorder
	if DB != nil {
		ledger = DB
		fmt.Fprintln(os.Stderr, "🗄️  Recording runs to the ledger")
	}

	bar := progressbar.NewOptions(len(paths),
		progressbar.OptionSetDescription("🔍 Mapping faces"),
		progressbar.OptionSetWriter(os.Stderr), // Write bar to Stderr
		progressbar.OptionShowCount(),
	)

	report, err := processImages(ctx, p, paths, &writer, ledger, bar)
	bar.Finish()
	if err != nil {
		utils.ShowError("Processing aborted", err, b.crashLogs())
		return err
	}

	printSummary(report)
	if len(report.Failed) > 0 {
		return fmt.Errorf("%d of %d image(s) failed", len(report.Failed), len(paths))
	}
	return nil
}

// processImages runs the batch and writes every image's artifacts, then its ledger row.
func processImages(ctx context.Context, p *pipeline.Pipeline, paths []string, w *artifacts.Writer, ledger runRecorder, bar *progressbar.ProgressBar) (pipeline.BatchReport, error) {
	if bar != nil {
		p.Progress = func(string) { bar.Add(1) }
	}
	return p.RunBatch(ctx, paths, func(ctx context.Context, src *pipeline.SourceImage) error {
		written, err := w.SaveFaces(src)
		if err != nil {
			return err
		}
		if ledger == nil {
			return nil
		}
		run, faces := ledgerRows(src, written)
		return ledger.RecordRun(ctx, run, faces)
	})
}

// ledgerRows converts a processed image into its ledger rows.
func ledgerRows(src *pipeline.SourceImage, written map[int][]string) (store.ImageRun, []store.FaceArtifact) {
	run := store.ImageRun{ID: src.ID, Path: src.Path, FaceCount: len(src.Faces)}
	if run.ID == "" {
		run.ID = src.Path
	}
	if !src.TakenAt.IsZero() {
		t := src.TakenAt
		run.TakenAt = &t
	}

	faces := make([]store.FaceArtifact, 0, len(src.Faces))
	for _, rec := range src.Faces {
		fp, _ := rec.Fingerprint()
		faces = append(faces, store.FaceArtifact{
			FaceIndex:   rec.Index,
			Region:      []int32{int32(rec.Region.Left), int32(rec.Region.Top), int32(rec.Region.Right), int32(rec.Region.Bottom)},
			Fingerprint: fp,
			CropHash:    rec.CropHash,
			Features:    len(rec.Landmarks),
			Paths:       written[rec.Index],
		})
	}
	return run, faces
}

func printSummary(report pipeline.BatchReport) {
	fmt.Fprintf(os.Stderr, "\n🏁 Done. %d image(s) processed, %d face(s) mapped.\n", report.Processed, report.Faces)
	for _, f := range report.Failed {
		fmt.Fprintf(os.Stderr, "⚠️  %v\n", f)
	}
}

func validateProcessFlags(opts *Options) error {
	if opts.InputPath == "" {
		return fmt.Errorf("--input is required")
	}
	if opts.OutputDir == "" {
		return fmt.Errorf("--output must not be empty")
	}
	if _, err := artifacts.ParseMode(opts.OutputMode); err != nil {
		return err
	}
	return validateEngineFlags(opts)
}

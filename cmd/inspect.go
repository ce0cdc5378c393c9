package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/andresmejia3/facemap/internal/pipeline"
	"github.com/andresmejia3/facemap/internal/utils"
	"github.com/spf13/cobra"
)

var inspectOpts Options

var inspectCmd = &cobra.Command{
	Use:   "inspect <image_path>",
	Short: "Print what the pipeline finds for every face in one image",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		return runInspect(cmd.Context(), args[0], inspectOpts)
	},
}

func init() {
	addEngineFlags(inspectCmd, &inspectOpts)
	rootCmd.AddCommand(inspectCmd)
}

func runInspect(ctx context.Context, imagePath string, opts Options) error {
	if _, err := os.Stat(imagePath); os.IsNotExist(err) {
		utils.ShowError("Input file does not exist", err, nil)
		return err
	}
	// We use a single worker for this ad-hoc run
	opts.NumEngines = 1
	if err := validateEngineFlags(&opts); err != nil {
		utils.ShowError("Invalid flags", err, nil)
		return err
	}

	src, err := pipeline.Load(imagePath)
	if err != nil {
		utils.ShowError("Failed to read image file", err, nil)
		return err
	}

	fmt.Fprintln(os.Stderr, "🚀 Starting AI Engine...")
	b, err := startBackend(opts)
	if err != nil {
		utils.ShowError("Failed to start AI worker", err, nil)
		return err
	}
	defer b.Close()

	p, err := newPipeline(opts, b)
	if err != nil {
		utils.ShowError("Invalid pipeline settings", err, nil)
		return err
	}

	fmt.Fprintln(os.Stderr, "🔍 Analyzing faces...")
	if err := p.Run(ctx, src); err != nil {
		utils.ShowError("AI processing failed", err, b.crashLogs())
		return err
	}

	if len(src.Faces) == 0 {
		fmt.Println("❌ No faces detected in the provided image.")
		return nil
	}
	printFaceTable(os.Stdout, src)
	return nil
}

// printFaceTable writes one row per face of src.
func printFaceTable(out io.Writer, src *pipeline.SourceImage) {
	if !src.TakenAt.IsZero() {
		fmt.Fprintf(out, "Taken: %s\n", src.TakenAt.Format("2006-01-02 15:04:05"))
	}

	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "FACE\tREGION\tCLAMPED\tFEATURES\tFINGERPRINT\tCROP HASH\tISSUES")
	fmt.Fprintln(w, "----\t------\t-------\t--------\t-----------\t---------\t------")

	for _, rec := range src.Faces {
		fp, ok := rec.Fingerprint()
		if !ok {
			fp = "-"
		} else if len(fp) > 16 {
			fp = fp[:16]
		}

		clamped := "no"
		if rec.Region != rec.Requested {
			clamped = "yes"
		}

		var issues []string
		for _, err := range rec.Issues() {
			issues = append(issues, err.Error())
		}
		issue := "-"
		if len(issues) > 0 {
			issue = strings.Join(issues, "; ")
		}

		hash := rec.CropHash
		if hash == "" {
			hash = "-"
		}

		fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%s\t%s\t%s\n", rec.Index, rec.Region, clamped, len(rec.Landmarks), fp, hash, issue)
	}
	w.Flush()
}

package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/andresmejia3/facemap/internal/store"
	"github.com/andresmejia3/facemap/internal/utils"
	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list [image_id]",
	Short: "List processed images in the ledger, or the faces of one image",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		if err := requireDB(); err != nil {
			return err
		}
		if len(args) == 1 {
			return runListFaces(cmd.Context(), args[0])
		}
		return runList(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
}

func runList(ctx context.Context) error {
	runs, err := DB.ListImages(ctx)
	if err != nil {
		utils.ShowError("Failed to list images", err, nil)
		return err
	}

	if len(runs) == 0 {
		fmt.Println("No images found in the ledger.")
		return nil
	}
	printImageTable(os.Stdout, runs)
	return nil
}

func printImageTable(out io.Writer, runs []store.ImageRun) {
	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "ID\tPATH\tFACES\tTAKEN\tPROCESSED")
	fmt.Fprintln(w, "--\t----\t-----\t-----\t---------")

	for _, r := range runs {
		taken := "-"
		if r.TakenAt != nil {
			taken = r.TakenAt.Local().Format("2006-01-02 15:04")
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n", shortID(r.ID), r.Path, r.FaceCount, taken, r.ProcessedAt.Local().Format("2006-01-02 15:04"))
	}
	w.Flush()
}

func runListFaces(ctx context.Context, prefix string) error {
	runs, err := DB.ListImages(ctx)
	if err != nil {
		utils.ShowError("Failed to list images", err, nil)
		return err
	}
	id, err := matchImageID(runs, prefix)
	if err != nil {
		return err
	}

	faces, err := DB.ListFaces(ctx, id)
	if err != nil {
		utils.ShowError("Failed to list faces", err, nil)
		return err
	}
	if len(faces) == 0 {
		fmt.Println("No faces recorded for this image.")
		return nil
	}
	printLedgerFaces(os.Stdout, faces)
	return nil
}

// matchImageID resolves the short ID shown by list to a full image ID.
func matchImageID(runs []store.ImageRun, prefix string) (string, error) {
	var matches []string
	for _, r := range runs {
		if r.ID == prefix {
			return r.ID, nil
		}
		if strings.HasPrefix(r.ID, prefix) {
			matches = append(matches, r.ID)
		}
	}
	switch len(matches) {
	case 0:
		return "", fmt.Errorf("no image with ID %s", prefix)
	case 1:
		return matches[0], nil
	}
	return "", fmt.Errorf("ID %s is ambiguous (%d images)", prefix, len(matches))
}

func printLedgerFaces(out io.Writer, faces []store.FaceArtifact) {
	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "FACE\tREGION\tFEATURES\tFINGERPRINT\tFILES")
	fmt.Fprintln(w, "----\t------\t--------\t-----------\t-----")

	for _, f := range faces {
		fp := f.Fingerprint
		if fp == "" {
			fp = "-"
		} else if len(fp) > 16 {
			fp = fp[:16]
		}
		region := "-"
		if len(f.Region) == 4 {
			region = fmt.Sprintf("(%d,%d)-(%d,%d)", f.Region[0], f.Region[1], f.Region[2], f.Region[3])
		}
		fmt.Fprintf(w, "%d\t%s\t%d\t%s\t%s\n", f.FaceIndex, region, f.Features, fp, strings.Join(f.Paths, ","))
	}
	w.Flush()
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}

package cmd

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/andresmejia3/facemap/internal/utils"
	"github.com/spf13/cobra"
)

var (
	resetLedger bool
	resetFiles  bool
	resetDir    string
	resetYes    bool
)

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Reset system state (Ledger, Output Files)",
	Long:  "Clears stored data. By default, it resets everything that is configured. Use flags to clear specific components.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		// If no flags are set, default to clearing EVERYTHING
		all := !resetLedger && !resetFiles
		if all {
			resetLedger = DB != nil
			resetFiles = true
		}

		reader := bufio.NewReader(os.Stdin)

		if resetLedger {
			if err := requireDB(); err != nil {
				return err
			}
			if resetYes || confirm(os.Stdout, reader, "⚠️  Are you sure you want to DROP all ledger tables?") {
				fmt.Println("🗑️  Clearing Ledger...")
				if err := DB.Reset(cmd.Context()); err != nil {
					utils.ShowError("Failed to reset ledger", err, nil)
					return err
				}
			}
		}

		if resetFiles {
			if resetYes || confirm(os.Stdout, reader, fmt.Sprintf("⚠️  Are you sure you want to delete everything in %s?", resetDir)) {
				fmt.Println("🗑️  Clearing Output Files...")
				removeDir(resetDir)
			}
		}

		fmt.Println("✨ System Reset Complete.")
		return nil
	},
}

func init() {
	resetCmd.Flags().BoolVar(&resetLedger, "ledger", false, "Clear the PostgreSQL run ledger")
	resetCmd.Flags().BoolVar(&resetFiles, "files", false, "Clear generated feature maps, overlays and crops")
	resetCmd.Flags().StringVarP(&resetDir, "output", "o", "output", "Output directory to clear")
	resetCmd.Flags().BoolVarP(&resetYes, "yes", "y", false, "Do not ask for confirmation")
	rootCmd.AddCommand(resetCmd)
}

func confirm(out io.Writer, r *bufio.Reader, prompt string) bool {
	fmt.Fprintf(out, "%s [y/N]: ", prompt)
	res, _ := r.ReadString('\n')
	res = strings.TrimSpace(strings.ToLower(res))
	return res == "y" || res == "yes"
}

func removeDir(path string) {
	if err := os.RemoveAll(path); err != nil {
		fmt.Fprintf(os.Stderr, "⚠️  Failed to remove %s: %v\n", path, err)
	}
}

package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"os"
	"os/signal"
	"syscall"

	"github.com/andresmejia3/facemap/internal/store"
	"github.com/spf13/cobra"
)

// Options holds shared configuration for the process and inspect commands
type Options struct {
	InputPath     string
	OutputDir     string
	Padding       int
	Stroke        float64
	Overflow      string
	OutputMode    string
	NumEngines    int
	FaceWorkers   int
	WorkerTimeout string
	PythonPath    string
	WorkerScript  string
	Detector      string
	CascadePath   string
	SaveOverlays  bool
	SaveCrops     bool
}

var (
	// DB is the optional run ledger shared by subcommands. It stays nil when no
	// connection string is configured.
	DB *store.Store
	// dbURL is the connection string
	dbURL string
	// verbose lowers the log level to Debug
	verbose bool
	// logger is used by the pipeline for per-face diagnostics
	logger = slog.Default()
)

// Version is the application version.
const Version = "0.1.0"

var rootCmd = &cobra.Command{
	Use:     "facemap",
	Short:   "Face landmark feature maps and identity fingerprints for photos",
	Version: Version, // This enables the --version flag
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
		slog.SetDefault(logger)

		dsn := resolveDSN(dbURL, os.Getenv)
		if dsn == "" {
			return nil
		}

		// Initialize DB connection
		var err error
		// Use the command's context (which will be cancellable) for the connection
		DB, err = store.New(cmd.Context(), dsn)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if DB != nil {
			// Use Background here because the main context might be cancelled already (due to Ctrl+C)
			// and we still need to send the "Close" command to the DB.
			DB.Close(context.Background())
		}
	},
}

// resolveDSN prefers the --db flag, then the POSTGRES_* environment. An empty
// result means the ledger is disabled.
func resolveDSN(flag string, getenv func(string) string) string {
	if flag != "" {
		return flag
	}
	host := getenv("POSTGRES_HOST")
	if host == "" {
		return ""
	}
	user := getenv("POSTGRES_USER")
	pass := getenv("POSTGRES_PASSWORD")
	name := getenv("POSTGRES_DB")
	port := getenv("POSTGRES_PORT")
	if port == "" {
		port = "5432"
	}
	u := url.URL{Scheme: "postgres", Host: net.JoinHostPort(host, port), Path: "/" + name}
	if user != "" || pass != "" {
		u.User = url.UserPassword(user, pass)
	}
	return u.String()
}

// requireDB is used by commands that only make sense with a ledger.
func requireDB() error {
	if DB == nil {
		return fmt.Errorf("no ledger configured: pass --db or set POSTGRES_HOST")
	}
	return nil
}

func Execute() {
	// Create a context that listens for Ctrl+C (SIGINT) or Kill (SIGTERM)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// This tells Cobra not to print the version in the help text, which is cleaner.
	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbURL, "db", "", "PostgreSQL connection string for the run ledger (default: POSTGRES_* env, else disabled)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log per-face debug details")
}

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"photocat/internal/app"
	"photocat/internal/catalog"
	"photocat/internal/config"
	"photocat/internal/normalize"
	"photocat/internal/query"
)

// progressWidth is the width of the index progress bar in cells.
const progressWidth = 40

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// library resolves the data folder from -l/--library or the environment.
func library(cmd *cobra.Command) (string, error) {
	flag, _ := cmd.Flags().GetString("library")
	return app.ResolveLibrary(flag)
}

// newApp reads the library config, applies override and creates an App.
// The caller must defer app.Close().
func newApp(cmd *cobra.Command, opts app.Options, override func(*config.Config) error) (*app.App, error) {
	dataDir, err := library(cmd)
	if err != nil {
		return nil, err
	}

	cfg, err := config.Load(dataDir)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	if override != nil {
		if err := override(cfg); err != nil {
			return nil, err
		}
	}

	opts.Verbose, _ = cmd.Flags().GetBool("verbose")
	a, err := app.New(cmd.Context(), dataDir, cfg, opts)
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}
	return a, nil
}

// queryApp opens the catalog read-only for commands that only query it.
func queryApp(cmd *cobra.Command) (*app.App, error) {
	return newApp(cmd, app.Options{ReadOnly: true}, nil)
}

// parseMergeMode maps --meta-merge to a merge mode: true merges into the
// existing sidecar, false overwrites it.
func parseMergeMode(raw string) (catalog.MergeMode, error) {
	merge, err := strconv.ParseBool(raw)
	if err != nil {
		return 0, catalog.Configf("--meta-merge must be true or false, got %q", raw)
	}
	if merge {
		return catalog.MergeFields, nil
	}
	return catalog.MergeOverwrite, nil
}

// queryFromFlags builds a query from the shared date and filter flags.
func queryFromFlags(cmd *cobra.Command) (query.Query, error) {
	from, _ := cmd.Flags().GetString("from")
	to, _ := cmd.Flags().GetString("to")
	r, err := query.ParseRange(from, to)
	if err != nil {
		return query.Query{}, err
	}

	ids, _ := cmd.Flags().GetStringSlice("content-id")
	for _, id := range ids {
		if err := catalog.ValidateContentID(id); err != nil {
			return query.Query{}, catalog.Configf("--content-id: %v", err)
		}
	}
	url, _ := cmd.Flags().GetString("url")
	filename, _ := cmd.Flags().GetString("filename")

	return query.Query{Range: r, ContentIDs: ids, URL: url, Filename: filename}, nil
}

func addQueryFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("from", "d", "", "Only photos taken at or after this date")
	cmd.Flags().StringP("to", "D", "", "Only photos taken before this date (default now)")
	cmd.Flags().StringSliceP("content-id", "s", nil, "Only these content ids (comma-separated)")
	cmd.Flags().StringP("url", "u", "", "Only files whose URL contains this text")
	cmd.Flags().StringP("filename", "f", "", "Only files whose filename contains this text")
}

var rootCmd = &cobra.Command{
	Use:          "photocat",
	Short:        "Catalog photos by content and summarize their metadata",
	SilenceUsage: true,
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default configuration into the library",
	RunE: func(cmd *cobra.Command, args []string) error {
		dataDir, err := library(cmd)
		if err != nil {
			return err
		}

		path := filepath.Join(dataDir, config.FileName)
		if err := config.Init(path, config.NewConfig(dataDir)); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", path)
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		dataDir, err := library(cmd)
		if err != nil {
			return err
		}

		cfg, err := config.Load(dataDir)
		if err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}

		fmt.Printf("Configuration for %s:\n\n", dataDir)
		m := &config.Manager{}
		return m.Write(os.Stdout, cfg)
	},
}

// index command
var indexCmd = &cobra.Command{
	Use:   "index FOLDER...",
	Short: "Hash, extract and record every photo under the folders",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rawMerge, _ := cmd.Flags().GetString("meta-merge")
		mode, err := parseMergeMode(rawMerge)
		if err != nil {
			return err
		}

		var (
			opts     app.Options
			bar      *app.ProgressBar
			progress func(done, total int)
		)
		noProgress, _ := cmd.Flags().GetBool("no-progress")
		if !noProgress && term.IsTerminal(int(os.Stderr.Fd())) {
			bar = app.NewProgressBar(os.Stderr, progressWidth)
			opts.Stderr = bar
			progress = bar.Update
		}

		a, err := newApp(cmd, opts, func(cfg *config.Config) error {
			flags := cmd.Flags()
			if flags.Changed("meta-cmd") {
				cfg.Extractor.Type = "command"
				cfg.Extractor.Command, _ = flags.GetString("meta-cmd")
			}
			if flags.Changed("timeout") {
				timeout, _ := flags.GetDuration("timeout")
				if timeout <= 0 {
					return catalog.Configf("--timeout must be positive")
				}
				cfg.Extractor.Timeout.Duration = timeout
			}
			if flags.Changed("concurrency") {
				n, _ := flags.GetInt("concurrency")
				if n <= 0 {
					return catalog.Configf("--concurrency must be positive")
				}
				cfg.Concurrency = n
			}
			if flags.Changed("allowed-extensions") {
				cfg.AllowedExtensions, _ = flags.GetStringSlice("allowed-extensions")
			}
			return nil
		})
		if err != nil {
			return err
		}
		defer a.Close()

		summary, err := a.Index(cmd.Context(), args, mode, progress)
		if bar != nil {
			bar.Finish()
		}
		if summary != nil {
			fmt.Printf("Discovered %d file(s): %d indexed, %d unchanged, %d failed\n",
				summary.Discovered, summary.Indexed, summary.Unchanged, summary.Failed)
		}
		if err != nil {
			return fmt.Errorf("index failed: %w", err)
		}
		return nil
	},
}

// list command
var listCmd = &cobra.Command{
	Use:   "list FOLDER...",
	Short: "List the files index would process",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := queryApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		files, err := a.List(args)
		if err != nil {
			return err
		}
		for _, f := range files {
			fmt.Println(f)
		}
		return nil
	},
}

// show command
var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Print catalog rows with their metadata as CSV",
	RunE: func(cmd *cobra.Command, args []string) error {
		q, err := queryFromFlags(cmd)
		if err != nil {
			return err
		}
		q.Limit, _ = cmd.Flags().GetInt("limit")

		a, err := queryApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		columns, err := a.MetaColumns(cmd.Context())
		if err != nil {
			return err
		}

		w := query.NewCSVWriter(os.Stdout, columns)
		if err := w.WriteHeader(); err != nil {
			return err
		}
		err = a.Show(cmd.Context(), q, func(row *normalize.DerivedRow) error {
			return w.Write(row)
		})
		if flushErr := w.Flush(); err == nil {
			err = flushErr
		}
		return err
	},
}

// summarize command
var summarizeCmd = &cobra.Command{
	Use:   "summarize",
	Short: "Summarize the catalog as a calendar heatmap or value counts",
	RunE: func(cmd *cobra.Command, args []string) error {
		q, err := queryFromFlags(cmd)
		if err != nil {
			return err
		}
		spec, _ := cmd.Flags().GetString("summary-options")
		opts, err := query.ParseSummaryOptions(spec)
		if err != nil {
			return err
		}

		a, err := queryApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		res, err := a.Summarize(cmd.Context(), q, opts)
		if err != nil {
			return err
		}
		return query.WriteSummary(os.Stdout, res, lipgloss.NewRenderer(os.Stdout))
	},
}

// meta-columns command
var metaColumnsCmd = &cobra.Command{
	Use:   "meta-columns",
	Short: "List the metadata columns printed by show",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := queryApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		columns, err := a.MetaColumns(cmd.Context())
		if err != nil {
			return err
		}
		for _, c := range columns {
			fmt.Println(c)
		}
		return nil
	},
}

// history command
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "View index run history",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		a, err := queryApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		runs, err := a.History(cmd.Context(), limit)
		if err != nil {
			return err
		}

		if len(runs) == 0 {
			fmt.Println("No index runs recorded.")
			return nil
		}

		for _, run := range runs {
			duration := ""
			if !run.FinishedAt.IsZero() {
				duration = run.Duration().Truncate(time.Millisecond).String()
			}
			fmt.Printf("#%d  %-8s  %s  %-8s  indexed:%d unchanged:%d failed:%d  %s\n",
				run.ID,
				run.Operation,
				run.StartedAt.Format("2006-01-02 15:04:05"),
				run.Status,
				run.Indexed,
				run.Unchanged,
				run.Failed,
				duration,
			)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringP("library", "l", "", "Data folder holding the catalog (or $"+app.LibraryEnv+")")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Log debug messages")

	// config subcommands
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)
	rootCmd.AddCommand(configCmd)

	rootCmd.AddCommand(indexCmd)
	indexCmd.Flags().String("meta-cmd", "", "Metadata command reading the file on stdin and printing JSON (\"builtin\" for the in-process EXIF reader)")
	indexCmd.Flags().String("meta-merge", "false", "Merge new metadata into existing sidecars instead of overwriting them (true|false)")
	indexCmd.Flags().Bool("no-progress", false, "Do not draw the progress bar on a terminal")
	indexCmd.Flags().IntP("concurrency", "c", 0, "Files processed in parallel (default from config)")
	indexCmd.Flags().Duration("timeout", 0, "Timeout for one metadata command (default from config)")
	indexCmd.Flags().StringSlice("allowed-extensions", nil, "File extensions to index (default from config)")

	rootCmd.AddCommand(listCmd)

	rootCmd.AddCommand(showCmd)
	addQueryFlags(showCmd)
	showCmd.Flags().IntP("limit", "N", 0, "Maximum number of rows (0 for all)")

	rootCmd.AddCommand(summarizeCmd)
	addQueryFlags(summarizeCmd)
	summarizeCmd.Flags().String("summary-options", "", "Comma-separated directives: count:<field>[+<field>...], calendar, wrap")

	rootCmd.AddCommand(metaColumnsCmd)

	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().IntP("limit", "n", 50, "Maximum number of runs to show")
}

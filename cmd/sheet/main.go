package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/pbaille/sheet/internal/api"
	"github.com/pbaille/sheet/internal/config"
	"github.com/pbaille/sheet/internal/datamgmt"
	"github.com/pbaille/sheet/internal/domain"
	"github.com/pbaille/sheet/internal/fetcher"
	"github.com/pbaille/sheet/internal/logging"
	"github.com/pbaille/sheet/internal/migration"
	"github.com/pbaille/sheet/internal/skilltree"
	"github.com/pbaille/sheet/internal/storage"
	"github.com/pbaille/sheet/internal/store"
	"github.com/pbaille/sheet/internal/validation"
	"github.com/spf13/cobra"
)

var (
	dbPath     string
	configPath string
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "sheet",
		Short:         "Character sheet storage, export and import",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "database path (overrides config)")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "YAML config file")

	rootCmd.AddCommand(exportCmd())
	rootCmd.AddCommand(importCmd())
	rootCmd.AddCommand(deleteCmd())
	rootCmd.AddCommand(validateCmd())
	rootCmd.AddCommand(versionsCmd())
	rootCmd.AddCommand(keysCmd())
	rootCmd.AddCommand(getCmd())
	rootCmd.AddCommand(setCmd())
	rootCmd.AddCommand(rmCmd())
	rootCmd.AddCommand(skillCmd())
	rootCmd.AddCommand(serveCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// app is everything a command needs, built from config
type app struct {
	cfg      config.Config
	logger   *slog.Logger
	store    *store.Store
	adapter  *storage.Adapter
	registry *skilltree.Registry
	skills   *skilltree.Service
	data     *datamgmt.Service
	fetcher  *fetcher.Fetcher
}

func (a *app) Close() error {
	return a.store.Close()
}

func getApp() (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if dbPath != "" {
		cfg.DBPath = dbPath
	}

	logger := logging.New(cfg.LogLevel, cfg.LogFormat, os.Stderr)

	// Ensure directory exists
	if dir := filepath.Dir(cfg.DBPath); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}
	s, err := store.New(cfg.DBPath, store.WithMaxValueBytes(cfg.MaxValueBytes))
	if err != nil {
		return nil, err
	}

	calc, err := skilltree.NewCalculator(cfg.TreeBonusFormula)
	if err != nil {
		s.Close()
		return nil, err
	}
	engine, err := migration.NewEngine(cfg.SchemaVersion, logger, migration.Builtin()...)
	if err != nil {
		s.Close()
		return nil, err
	}

	adapter := storage.NewAdapter(s, logger)
	registry := skilltree.NewRegistry(adapter, logger)
	return &app{
		cfg:      cfg,
		logger:   logger,
		store:    s,
		adapter:  adapter,
		registry: registry,
		skills:   skilltree.NewService(adapter, registry, calc),
		data: datamgmt.New(adapter, registry, engine,
			datamgmt.WithLogger(logger),
			datamgmt.WithApplicationVersion(cfg.AppVersion),
		),
		fetcher: fetcher.New(cfg.FetchTimeout),
	}, nil
}

func exportCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export all character data to a JSON file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := getApp()
			if err != nil {
				return err
			}
			defer a.Close()

			var buf bytes.Buffer
			snap, err := a.data.ExportJSON(cmd.Context(), &buf)
			if err != nil {
				return err
			}

			if output == "-" {
				_, err := os.Stdout.Write(buf.Bytes())
				return err
			}
			if output == "" {
				output = datamgmt.SnapshotFilename(snap.Metadata.ExportDate, time.Now())
			}
			if err := os.WriteFile(output, buf.Bytes(), 0644); err != nil {
				return fmt.Errorf("write %s: %w", output, err)
			}

			fmt.Printf("Exported to %s\n", output)
			fmt.Printf("Version:  %s\n", snap.Metadata.Version)
			fmt.Printf("Export:   %s\n", snap.Metadata.ExportID)
			fmt.Printf("Checksum: %s\n", snap.Metadata.Checksum)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default character-data-<timestamp>.json, - for stdout)")
	return cmd
}

func importCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import [file|url]",
		Short: "Import character data from an export file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := getApp()
			if err != nil {
				return err
			}
			defer a.Close()

			r, err := a.open(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			report, err := a.data.ImportJSON(cmd.Context(), r)
			if err != nil {
				printValidation(err)
				return err
			}

			fmt.Printf("Imported %s (file version %s)\n", args[0], report.FromVersion)
			for _, step := range report.Migrated {
				fmt.Printf("  migrated %s\n", step)
			}
			for _, key := range report.Written {
				fmt.Printf("  + %s\n", key)
			}
			for _, w := range report.Warnings {
				fmt.Printf("  warning: %s\n", w)
			}
			if report.Partial() {
				for _, key := range report.Failed {
					fmt.Printf("  ! %s not written\n", key)
				}
				return fmt.Errorf("import incomplete: %d section(s) failed", len(report.Failed))
			}
			return nil
		},
	}
}

func deleteCmd() *cobra.Command {
	var restoreDefaults, yes bool

	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete all character data",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes && !confirm(cmd.InOrStdin(), "Delete all character data? This cannot be undone. [y/N] ") {
				fmt.Println("Aborted.")
				return nil
			}

			a, err := getApp()
			if err != nil {
				return err
			}
			defer a.Close()

			removed, err := a.data.DeleteAll(cmd.Context(), restoreDefaults)
			if err != nil {
				return err
			}

			fmt.Printf("Removed %d keys\n", removed)
			if restoreDefaults {
				fmt.Println("Default settings restored")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&restoreDefaults, "restore-defaults", false, "write default settings afterwards")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip confirmation")
	return cmd
}

func validateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate [file|url]",
		Short: "Check an export file without importing it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := getApp()
			if err != nil {
				return err
			}
			defer a.Close()

			r, err := a.open(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			result, err := a.data.Validate(r)
			if err != nil {
				return err
			}
			printIssues(result)
			if !result.IsValid {
				return fmt.Errorf("%d validation error(s)", len(result.Errors))
			}
			fmt.Println("Valid.")
			return nil
		},
	}
}

func versionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "versions",
		Short: "List known snapshot schema versions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := getApp()
			if err != nil {
				return err
			}
			defer a.Close()

			m := a.data.Migrator()
			for _, v := range m.Versions() {
				marker := " "
				if v == m.Current() {
					marker = "*"
				}
				fmt.Printf("%s %s\n", marker, v)
			}
			return nil
		},
	}
}

func keysCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "keys",
		Short: "List stored keys",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := getApp()
			if err != nil {
				return err
			}
			defer a.Close()

			items, err := a.store.ListItems(cmd.Context())
			if err != nil {
				return err
			}
			if len(items) == 0 {
				fmt.Println("No data stored yet.")
				return nil
			}
			for _, it := range items {
				fmt.Printf("%-24s %8d bytes  %s\n", it.Key, it.Bytes, it.UpdatedAt.Format("2006-01-02 15:04:05"))
			}
			return nil
		},
	}
}

func getCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get [key]",
		Short: "Print the JSON stored under a key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := getApp()
			if err != nil {
				return err
			}
			defer a.Close()

			raw, ok := a.adapter.GetRaw(cmd.Context(), args[0])
			if !ok {
				return fmt.Errorf("key not found: %s", args[0])
			}

			var out bytes.Buffer
			if err := json.Indent(&out, []byte(raw), "", "  "); err != nil {
				fmt.Println(raw)
				return nil
			}
			fmt.Println(out.String())
			return nil
		},
	}
}

func setCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set [key] [json]",
		Short: "Store a JSON value under a key",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := getApp()
			if err != nil {
				return err
			}
			defer a.Close()

			key, value := args[0], args[1]
			if err := a.setItem(cmd.Context(), key, value); err != nil {
				return err
			}

			fmt.Printf("Stored %s (%d bytes)\n", key, len(value))
			return nil
		},
	}
}

func rmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rm [key...]",
		Short: "Remove keys",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := getApp()
			if err != nil {
				return err
			}
			defer a.Close()

			for _, key := range args {
				if id, ok := domain.SkillTreeID(key); ok {
					if !a.registry.Remove(cmd.Context(), id) {
						return fmt.Errorf("could not remove %s", key)
					}
					continue
				}
				if _, err := a.data.DeleteKeys(cmd.Context(), key); err != nil {
					return err
				}
			}

			fmt.Printf("Removed %d keys\n", len(args))
			return nil
		},
	}
}

func serveCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the REST API server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := getApp()
			if err != nil {
				return err
			}
			defer a.Close()

			if addr == "" {
				addr = a.cfg.Addr
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			deps := api.Deps{
				Data:     a.data,
				Adapter:  a.adapter,
				Registry: a.registry,
				Skills:   a.skills,
				Logger:   a.logger,
			}
			if a.cfg.RemoteImport {
				deps.Fetcher = a.fetcher
			}
			return api.New(deps, addr).Run(ctx)
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", "", "server address (overrides config)")
	return cmd
}

// setItem stores a raw JSON value. Tree keys are indexed; the index itself
// cannot be written directly.
func (a *app) setItem(ctx context.Context, key, value string) error {
	if key == domain.KeySkillTreeIndex {
		return fmt.Errorf("%s is managed by sheet; use 'sheet skill' or import instead", key)
	}
	treeID, isTree := domain.SkillTreeID(key)
	if isTree {
		if err := skilltree.ValidateID(treeID); err != nil {
			return err
		}
	}
	if !json.Valid([]byte(value)) {
		return fmt.Errorf("value is not valid JSON")
	}
	if !a.adapter.SetRaw(ctx, key, value) {
		return fmt.Errorf("could not store %s", key)
	}
	if isTree && !a.registry.Add(ctx, treeID) {
		return fmt.Errorf("stored %s but could not index it", key)
	}
	return nil
}

// open returns the contents of a local file or a remote URL
func (a *app) open(ctx context.Context, src string) (io.Reader, error) {
	if fetcher.IsURL(src) {
		fmt.Print("Fetching... ")
		raw, err := a.fetcher.Fetch(ctx, src)
		if err != nil {
			fmt.Println("failed")
			return nil, err
		}
		fmt.Println("done")
		return bytes.NewReader(raw), nil
	}

	raw, err := os.ReadFile(src)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", src, err)
	}
	return bytes.NewReader(raw), nil
}

func confirm(in io.Reader, prompt string) bool {
	fmt.Print(prompt)
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	}
	return false
}

func printValidation(err error) {
	var verr *validation.Error
	if errors.As(err, &verr) {
		printIssues(verr.Result)
	}
}

func printIssues(result validation.Result) {
	for _, issue := range result.Errors {
		fmt.Printf("  error   %-40s %s (%s)\n", fieldOrRoot(issue.Field), issue.Message, issue.Code)
	}
	for _, issue := range result.Warnings {
		fmt.Printf("  warning %-40s %s\n", fieldOrRoot(issue.Field), issue.Message)
	}
}

func fieldOrRoot(field string) string {
	if field == "" {
		return "(root)"
	}
	return field
}

package main

import (
	"bufio"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "adjustdb [config.toml]",
	Short: "MariaDB schema and data synchronization tool",
	Long: `adjustdb compares the schema of two MariaDB databases (a source of truth
and a target) and interactively builds a reviewable SQL script that brings
the target into alignment. Removals are reported but never auto-applied.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSync,
}

var snapshotSide, snapshotOut string

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Save a schema snapshot to a local file",
	Long: `snapshot introspects one side of the configured comparison and saves the
schema to a local SQLite file. An endpoint of type "snapshot" can later be
diffed against that file without connecting to the original server.`,
	Args: cobra.NoArgs,
	RunE: runSnapshot,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to TOML config file")
	snapshotCmd.Flags().StringVar(&snapshotSide, "side", "source", "which endpoint to snapshot (source or target)")
	snapshotCmd.Flags().StringVar(&snapshotOut, "out", "", "output snapshot file (required)")
	snapshotCmd.MarkFlagRequired("out")
	rootCmd.AddCommand(snapshotCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func resolveConfigPath(args []string) (string, error) {
	path := configPath
	if len(args) > 0 {
		path = args[0]
	}
	if path == "" {
		return "", fmt.Errorf("config file required: adjustdb <config.toml> or adjustdb --config <config.toml>")
	}
	return path, nil
}

func runSync(cmd *cobra.Command, args []string) error {
	cfgPath, err := resolveConfigPath(args)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(cfgPath)
	if err != nil {
		return err
	}

	ctx := context.Background()
	start := time.Now()

	log.Printf("adjustdb: MariaDB schema synchronization")

	source, err := newEndpoint(cfg.Source)
	if err != nil {
		return fmt.Errorf("source: %w", err)
	}
	defer source.Close()

	target, err := newEndpoint(cfg.Target)
	if err != nil {
		return fmt.Errorf("target: %w", err)
	}
	defer target.Close()

	// The two snapshots are independent read-only fetches; diffing waits
	// for both.
	log.Printf("introspecting %q (source) and %q (target)...", source.Name(), target.Name())
	var (
		srcSnap, tgtSnap         *Snapshot
		srcExcluded, tgtExcluded []*MalformedMetadataError
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		srcSnap, srcExcluded, err = source.Snapshot(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		tgtSnap, tgtExcluded, err = target.Snapshot(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return err
	}
	log.Printf("found %d source tables, %d target tables", len(srcSnap.Tables), len(tgtSnap.Tables))

	excluded := append(srcExcluded, tgtExcluded...)
	for _, e := range excluded {
		log.Printf("  WARN: %v", e)
	}

	diffs := diffSnapshots(srcSnap, tgtSnap)
	buckets := classify(diffs)

	p := newTerminalPresenter(os.Stdout)
	p.AnalysisSummary(srcSnap.Name, tgtSnap.Name, buckets)

	if buckets.changeCount() == 0 {
		fmt.Println("Databases are already synchronized.")
		return nil
	}

	stdin := bufio.NewReader(os.Stdin)
	if !confirm(stdin, os.Stdout, fmt.Sprintf("%d differences found. Proceed with interactive selection?", buckets.changeCount()), false) {
		fmt.Println("Operation cancelled.")
		return nil
	}

	decisions, err := runSelection(selectable(diffs), p, newStdinInput(stdin, os.Stdout))
	if err != nil {
		if errors.Is(err, errSelectionAborted) {
			fmt.Println("Operation cancelled; no changes were generated.")
			return nil
		}
		return err
	}

	script, err := generateScript(diffs, decisions, GenerateOptions{
		SourceDB:          srcSnap.Name,
		TargetDB:          tgtSnap.Name,
		RowCountThreshold: cfg.RowCountThreshold,
	})
	if err != nil {
		return err
	}

	p.StatementPreview(script.Statements, 10)
	p.RunSummary(script, excluded)

	if confirm(stdin, os.Stdout, "Save SQL files?", true) {
		files, err := writeScriptFiles(cfg.Output, script, time.Now())
		if err != nil {
			return err
		}
		for _, f := range files {
			log.Printf("wrote %s", f)
		}
	}

	if cfg.Target.Type == "mariadb" {
		if confirm(stdin, os.Stdout, fmt.Sprintf("Apply changes to target %q now?", tgtSnap.Name), false) {
			if err := executeStatements(ctx, cfg.Target.DSN, script.Statements); err != nil {
				return err
			}
		} else {
			fmt.Println("Changes not applied; review the generated SQL files.")
		}
	}

	log.Printf("done in %s", time.Since(start).Round(time.Millisecond))
	return nil
}

func runSnapshot(cmd *cobra.Command, args []string) error {
	cfgPath, err := resolveConfigPath(nil)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(cfgPath)
	if err != nil {
		return err
	}

	var epCfg EndpointConfig
	switch snapshotSide {
	case "source":
		epCfg = cfg.Source
	case "target":
		epCfg = cfg.Target
	default:
		return fmt.Errorf("--side must be source or target")
	}

	ctx := context.Background()
	ep, err := newEndpoint(epCfg)
	if err != nil {
		return err
	}
	defer ep.Close()

	log.Printf("introspecting %q...", ep.Name())
	snap, excluded, err := ep.Snapshot(ctx)
	if err != nil {
		return err
	}
	for _, e := range excluded {
		log.Printf("  WARN: %v", e)
	}

	if err := saveSnapshot(ctx, snapshotOut, snap); err != nil {
		return err
	}
	log.Printf("saved snapshot of %q (%d tables) to %s", snap.Name, len(snap.Tables), snapshotOut)
	return nil
}

// confirm asks a yes/no question and returns the answer, using def when the
// user just presses enter.
func confirm(r *bufio.Reader, w io.Writer, prompt string, def bool) bool {
	hint := "y/n [n]"
	if def {
		hint = "y/n [y]"
	}
	fmt.Fprintf(w, "\n%s (%s): ", prompt, hint)
	line, err := r.ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	case "n", "no":
		return false
	default:
		return def
	}
}

// executeStatements runs the generated script against the target, one
// statement at a time, logging failures and continuing so a single bad
// statement never strands the FOREIGN_KEY_CHECKS re-enable at the end.
func executeStatements(ctx context.Context, dsn string, stmts []string) error {
	normalized, err := mysqlDSNWithReadOptions(dsn)
	if err != nil {
		return err
	}
	db, err := sql.Open("mysql", normalized)
	if err != nil {
		return fmt.Errorf("open target: %w", err)
	}
	defer db.Close()

	applied, failed := 0, 0
	for _, stmt := range stmts {
		if strings.HasPrefix(strings.TrimSpace(stmt), "--") || strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			log.Printf("  ERROR: %s: %v", truncate(stmt, 60), err)
			failed++
			continue
		}
		applied++
	}
	log.Printf("applied %d statements, %d failed", applied, failed)
	if failed > 0 {
		return fmt.Errorf("%d statements failed; target may be partially synchronized", failed)
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	prom "github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/archivist/internal/config"
	"git.home.luguber.info/inful/archivist/internal/convert"
	"git.home.luguber.info/inful/archivist/internal/drive"
	"git.home.luguber.info/inful/archivist/internal/metrics"
	"git.home.luguber.info/inful/archivist/internal/store"
	"git.home.luguber.info/inful/archivist/internal/updater"
	"git.home.luguber.info/inful/archivist/internal/version"
)

var CLI struct {
	Config  string           `short:"c" help:"Configuration file path" default:"archivist.yaml"`
	Verbose bool             `short:"v" help:"Enable verbose logging"`
	Version kong.VersionFlag `help:"Print version information and exit"`

	Convert struct {
		File string `arg:"" help:"Markup file to convert" type:"existingfile"`
	} `cmd:"" help:"Convert a markup file and print the plain text and style requests"`

	Patch struct {
		Old      string `arg:"" help:"File holding the previous plain text" type:"existingfile"`
		New      string `arg:"" help:"File holding the new plain text" type:"existingfile"`
		MinChunk int    `help:"Minimum chunk size for partial operations" default:"5"`
	} `cmd:"" help:"Compute a partial patch plan between two text files"`

	Push struct {
		DocID string `arg:"" help:"Target document ID"`
		File  string `arg:"" help:"Markup file to push" type:"existingfile"`
	} `cmd:"" help:"Run one update cycle against a live document"`

	Versions struct {
		DocID string `arg:"" help:"Document ID"`
		Limit int    `help:"Maximum versions to list" default:"10"`
	} `cmd:"" help:"List stored version snapshots for a document"`

	Revert struct {
		DocID     string `arg:"" help:"Document ID"`
		VersionID string `help:"Version snapshot to restore (defaults to the most recent)"`
	} `cmd:"" help:"Restore a document's content from a stored version snapshot"`

	Search struct {
		Query string `arg:"" help:"Substring to match against document titles and descriptions"`
	} `cmd:"" help:"Search stored document metadata"`

	List struct{} `cmd:"" help:"List the known folder document mappings"`

	Sync struct{} `cmd:"" help:"Synchronize the Drive folder mapping once"`

	Daemon struct{} `cmd:"" help:"Run the updater service (queue consumer, folder sync, metrics)"`

	Init struct {
		Force bool `help:"Overwrite existing configuration file"`
	} `cmd:"" help:"Initialize a new configuration file"`
}

func main() {
	ctx := kong.Parse(&CLI, kong.Vars{
		"version": fmt.Sprintf("archivist %s (commit %s, built %s)",
			version.Version, version.GitCommit, version.BuildTime),
	})

	logLevel := slog.LevelInfo
	if CLI.Verbose {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	})))

	var err error
	switch ctx.Command() {
	case "convert <file>":
		err = runConvert(CLI.Convert.File)
	case "patch <old> <new>":
		err = runPatch(CLI.Patch.Old, CLI.Patch.New, CLI.Patch.MinChunk)
	case "push <doc-id> <file>":
		err = runPush(CLI.Push.DocID, CLI.Push.File)
	case "versions <doc-id>":
		err = runVersions(CLI.Versions.DocID, CLI.Versions.Limit)
	case "revert <doc-id>":
		err = runRevert(CLI.Revert.DocID, CLI.Revert.VersionID)
	case "search <query>":
		err = runSearch(CLI.Search.Query)
	case "list":
		err = runList()
	case "sync":
		err = runSync()
	case "daemon":
		err = runDaemon()
	case "init":
		err = config.Init(CLI.Config, CLI.Init.Force)
	default:
		err = fmt.Errorf("unknown command: %s", ctx.Command())
	}
	if err != nil {
		slog.Error("Command failed", "command", ctx.Command(), "error", err)
		os.Exit(1)
	}
}

func runConvert(path string) error {
	source, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	conv := convert.ConvertMarkup(string(source))
	for _, c := range conv.Unsupported {
		slog.Warn("Unsupported construct passes through as plain text", "construct", string(c))
	}

	out := map[string]any{
		"plain_text": conv.PlainText,
		"requests":   conv.StyleRequests,
	}
	return printJSON(out)
}

func runPatch(oldPath, newPath string, minChunk int) error {
	oldText, err := os.ReadFile(oldPath)
	if err != nil {
		return err
	}
	newText, err := os.ReadFile(newPath)
	if err != nil {
		return err
	}

	// Preview only: the plan is computed locally and never submitted.
	engine := convert.NewEngine(nil, minChunk)
	plan := engine.ComputePartialPatch(string(oldText), string(newText))
	if plan == nil {
		slog.Info("Texts are identical, nothing to patch")
		return nil
	}

	out := map[string]any{
		"used_fallback": plan.UsedFallback,
		"batches":       plan.Batches,
	}
	if plan.UsedFallback {
		out["replacement"] = plan.Replacement
	}
	return printJSON(out)
}

func runPush(docID, path string) error {
	cfg, err := config.Load(CLI.Config)
	if err != nil {
		return err
	}
	source, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	client, err := drive.NewClient(ctx, cfg.Google.CredentialsPath)
	if err != nil {
		return err
	}
	engine := convert.NewEngine(client, cfg.Updater.MinChunk)

	live, err := client.DocumentText(ctx, docID)
	if err != nil {
		return err
	}

	res, err := engine.ApplyUpdate(ctx, docID, live, string(source))
	if err != nil {
		return err
	}

	slog.Info("Push complete",
		"doc_id", docID,
		"skipped", res.Skipped,
		"fallback", res.Fallback,
		"batches", res.Batches,
		"requests", res.Requests)
	return nil
}

func runVersions(docID string, limit int) error {
	cfg, err := config.Load(CLI.Config)
	if err != nil {
		return err
	}

	st, err := store.NewSQLiteStore(cfg.Store.Path)
	if err != nil {
		return err
	}
	defer st.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	versions, err := st.ListVersions(ctx, docID, limit)
	if err != nil {
		return err
	}
	if len(versions) == 0 {
		slog.Info("No versions stored", "doc_id", docID)
		return nil
	}

	for _, v := range versions {
		fmt.Printf("%s  %s  chars=%d messages=%d trigger=%s\n",
			v.CreatedAt.Format(time.RFC3339), v.ID, v.CharCount, v.MessageCount, v.TriggerType)
	}
	return nil
}

func runRevert(docID, versionID string) error {
	cfg, err := config.Load(CLI.Config)
	if err != nil {
		return err
	}
	st, err := store.NewSQLiteStore(cfg.Store.Path)
	if err != nil {
		return err
	}
	defer st.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	var v *store.Version
	if versionID == "" {
		if v, err = st.LatestVersion(ctx, docID); err != nil {
			return err
		}
	} else {
		versions, err := st.ListVersions(ctx, docID, 0)
		if err != nil {
			return err
		}
		for i := range versions {
			if versions[i].ID == versionID {
				v = &versions[i]
				break
			}
		}
	}
	if v == nil {
		return fmt.Errorf("no stored version to revert to for document %s", docID)
	}

	client, err := drive.NewClient(ctx, cfg.Google.CredentialsPath)
	if err != nil {
		return err
	}
	// The snapshot holds plain text; formatting is rebuilt by the next cycle.
	if err := client.ReplaceAll(ctx, docID, v.Content); err != nil {
		return err
	}

	slog.Info("Document reverted",
		"doc_id", docID,
		"version_id", v.ID,
		"created_at", v.CreatedAt.Format(time.RFC3339),
		"chars", v.CharCount)
	return nil
}

func runSearch(query string) error {
	cfg, err := config.Load(CLI.Config)
	if err != nil {
		return err
	}
	st, err := store.NewSQLiteStore(cfg.Store.Path)
	if err != nil {
		return err
	}
	defer st.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	results, err := st.SearchMetadata(ctx, query)
	if err != nil {
		return err
	}
	if len(results) == 0 {
		slog.Info("No documents matched", "query", query)
		return nil
	}
	for _, m := range results {
		fmt.Printf("%s  %s\n", m.DocID, m.Title)
	}
	return nil
}

func runList() error {
	cfg, err := config.Load(CLI.Config)
	if err != nil {
		return err
	}
	st, err := store.NewSQLiteStore(cfg.Store.Path)
	if err != nil {
		return err
	}
	defer st.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	mappings, err := st.ListMappings(ctx)
	if err != nil {
		return err
	}
	for _, m := range mappings {
		fmt.Printf("%s  %s  synced=%s\n", m.DocID, m.Name, m.SyncedAt.Format(time.RFC3339))
	}
	return nil
}

func runSync() error {
	cfg, err := config.Load(CLI.Config)
	if err != nil {
		return err
	}
	if cfg.Google.DriveFolderID == "" {
		return fmt.Errorf("google.drive_folder_id is required for sync")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	client, err := drive.NewClient(ctx, cfg.Google.CredentialsPath)
	if err != nil {
		return err
	}
	st, err := store.NewSQLiteStore(cfg.Store.Path)
	if err != nil {
		return err
	}
	defer st.Close()

	return updater.NewFolderSyncer(client, st, cfg.Google.DriveFolderID).SyncOnce(ctx)
}

func runDaemon() error {
	cfg, err := config.Load(CLI.Config)
	if err != nil {
		return err
	}
	configureLogging(cfg)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	client, err := drive.NewClient(ctx, cfg.Google.CredentialsPath)
	if err != nil {
		return err
	}
	st, err := store.NewSQLiteStore(cfg.Store.Path)
	if err != nil {
		return err
	}
	defer st.Close()

	var rec metrics.Recorder = metrics.NoopRecorder{}
	var metricsServer *http.Server
	if cfg.Metrics.Enabled {
		registry := prom.NewRegistry()
		rec = metrics.NewPrometheusRecorder(registry)
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.HTTPHandler(registry))
		metricsServer = &http.Server{Addr: cfg.Metrics.Addr, Handler: mux}
		go func() {
			slog.Info("Metrics endpoint listening", "addr", cfg.Metrics.Addr)
			if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				slog.Error("Metrics server failed", "error", err)
			}
		}()
	}

	policy, err := cfg.RetryPolicy()
	if err != nil {
		return err
	}
	engine := convert.NewEngine(client, cfg.Updater.MinChunk)
	service := updater.NewService(engine, client, st, cfg.Updater.CharThreshold, policy).WithRecorder(rec)
	if cfg.Google.DriveFolderID != "" {
		service = service.WithDirectory(client, cfg.Google.DriveFolderID)
	}

	consumer, err := updater.NewConsumer(cfg.Queue, service, rec)
	if err != nil {
		return err
	}
	defer consumer.Close()
	if err := consumer.Start(ctx); err != nil {
		return err
	}

	var syncer *updater.FolderSyncer
	if cfg.Google.DriveFolderID != "" {
		period, err := cfg.SyncPeriod()
		if err != nil {
			return err
		}
		syncer = updater.NewFolderSyncer(client, st, cfg.Google.DriveFolderID)
		if err := syncer.Schedule(ctx, period); err != nil {
			return err
		}
	}

	watcher, err := updater.NewConfigWatcher(CLI.Config, func(newCfg *config.Config) {
		// Thresholds and retry settings only apply to new service instances;
		// log so operators know a restart is needed for the rest.
		slog.Info("Configuration file changed",
			"char_threshold", newCfg.Updater.CharThreshold,
			"note", "restart required for connection-level changes")
	})
	if err != nil {
		slog.Warn("Config watching unavailable", "error", err)
	} else if err := watcher.Start(ctx); err != nil {
		slog.Warn("Config watching failed to start", "error", err)
	} else {
		defer watcher.Stop()
	}

	slog.Info("Updater daemon started, waiting for shutdown signal...")
	<-ctx.Done()
	slog.Info("Shutdown signal received, draining pending updates...")

	// Stop intake first: a message acked after the stacks are drained would
	// sit in a stack that never flushes.
	_ = consumer.Close()

	drainCtx, drainCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer drainCancel()

	if syncer != nil {
		if err := syncer.Stop(); err != nil {
			slog.Warn("Scheduler shutdown failed", "error", err)
		}
	}
	if err := service.FlushAll(drainCtx); err != nil {
		slog.Error("Draining pending updates failed", "error", err)
	}
	if metricsServer != nil {
		_ = metricsServer.Shutdown(drainCtx)
	}

	slog.Info("Daemon stopped")
	return nil
}

// configureLogging replaces the default handler with the configured level and
// format. The -v flag always wins over the file's level.
func configureLogging(cfg *config.Config) {
	level := slog.LevelInfo
	switch cfg.Logging.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	if CLI.Verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler = slog.NewTextHandler(os.Stderr, opts)
	if cfg.Logging.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

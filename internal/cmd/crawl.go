package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

var crawlCmd = &cobra.Command{
	Use:   "crawl",
	Short: "Crawl every configured site once",
	Long: `Rebuild the index of every configured site and wait for the crawl to
finish. Interrupting the command stops the crawl and marks unfinished sites
as failed. Statistics are printed when the crawl ends.`,
	RunE: runCrawl,
}

func runCrawl(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(true)
	if err != nil {
		return err
	}

	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	start := time.Now()
	if err := a.crawler.Start(ctx); err != nil {
		return fmt.Errorf("failed to start crawl: %w", err)
	}
	slog.Info("Crawl started", "sites", len(cfg.Sites))

	if err := a.crawler.Wait(ctx); err != nil {
		slog.Info("Interrupted, stopping crawl")
		stopCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := a.stopCrawl(stopCtx); err != nil {
			return fmt.Errorf("failed to stop crawl: %w", err)
		}
	}
	slog.Info("Crawl finished", "duration", time.Since(start).Round(time.Millisecond))

	st, err := a.stats.Statistics(context.Background())
	if err != nil {
		return err
	}
	return printYAML(cmd.OutOrStdout(), st)
}

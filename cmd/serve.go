package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/gaurav-prasanna/ordinancepipe/config"
	"github.com/gaurav-prasanna/ordinancepipe/crawl"
	"github.com/gaurav-prasanna/ordinancepipe/finder"
	"github.com/gaurav-prasanna/ordinancepipe/service"
)

var flagAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long: `Serve exposes the finder and background analyses over HTTP:

  POST /api/zoning        {"city": "..."}  -> ordinance link
  POST /api/analyze       {"link": "..."}  -> {"job_id": "..."}
  GET  /api/status/{id}                    -> {"state": "...", "result": {...}}
  GET  /health`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&flagAddr, "addr", "", "Listen address (default from HTTP_ADDR)")
}

func runServe(cmd *cobra.Command, args []string) error {
	if flagAddr != "" {
		cfg.Server.Addr = flagAddr
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	completer, err := newCompleter(ctx, cfg, false)
	if err != nil {
		return err
	}
	defer closeCompleter(completer)

	searcher, err := newCompleter(ctx, cfg, true)
	if err != nil {
		return err
	}
	defer closeCompleter(searcher)

	analyzer, err := newAnalyzer(cfg, completer)
	if err != nil {
		return err
	}

	rubrics := config.NewRubricStore(cfg.Rubric.BestPracticesPath, cfg.Rubric.ScoringWeightsPath, logger)
	if _, err := rubrics.Rubric(); err != nil {
		return fmt.Errorf("loading rubric: %w", err)
	}
	if err := rubrics.Watch(ctx); err != nil {
		logger.Warn("config.rubric_watch_disabled", "error", err)
	}

	srv := service.New(analyzer, finder.New(searcher, logger), rubrics,
		service.WithResolver(crawl.New(newFetcher(cfg), crawl.WithLogger(logger))),
		service.WithMaxConcurrentJobs(cfg.Server.MaxConcurrentJobs),
		service.WithLogger(logger),
		service.WithContext(ctx),
	)

	httpServer := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("service.listening", "addr", cfg.Server.Addr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	srv.Wait()
	logger.Info("service.stopped")
	return nil
}

package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"reverie/internal/analyze"
	"reverie/internal/calendar"
	"reverie/internal/config"
	"reverie/internal/llm"
	"reverie/internal/logger"
	"reverie/internal/notify"
	"reverie/internal/report"
	"reverie/internal/server"
	"reverie/internal/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API server",
	Long: `Starts the HTTP server exposing journal entries, calendar events,
report generation, and notification decisions.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe() error {
	log := logger.Get()

	st, err := store.NewStore(config.GetDataDirectory())
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer st.Close()

	client, err := llm.NewClient(config.GetGeminiModel())
	if err != nil {
		return fmt.Errorf("failed to create LLM client: %w", err)
	}
	defer client.Close()

	gen := client.WithOptions(llm.Options{
		MaxTokens:   config.GetGemini().MaxTokens,
		Temperature: config.GetGemini().Temperature,
	})

	pipeline := report.NewPipeline(gen, report.Options{
		MaxRetries:  config.GetReport().MaxRetries,
		CallTimeout: config.GetReport().CallTimeoutDuration(),
	})
	classifier := calendar.NewClassifier(gen)
	analyzer := analyze.NewAnalyzer(gen)
	notifier := notify.NewNotifier(gen)

	srv := server.New(st, pipeline, classifier, analyzer, notifier, config.GetServer())

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-stop:
		log.Info("received signal, shutting down", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(ctx)
}

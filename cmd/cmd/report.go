package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"reverie/internal/config"
	"reverie/internal/core"
	"reverie/internal/llm"
	"reverie/internal/render"
	"reverie/internal/report"
)

var (
	reportEntriesFile string
	reportPeriodStart string
	reportPeriodEnd   string
	reportOutputDir   string
	reportMarkdown    bool
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Generate a reflective report from journal entries",
	Long: `Reads journal entries from a JSON file, runs the full report pipeline
(insight extraction, composition, quality and safety judging), and
prints the result. With --markdown the report is also written to a
dated markdown file.

The entries file is a JSON array of objects with date, content, and
optional topic and emotion fields.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runReport()
	},
}

func init() {
	rootCmd.AddCommand(reportCmd)

	reportCmd.Flags().StringVarP(&reportEntriesFile, "entries", "e", "", "JSON file with journal entries (required)")
	reportCmd.Flags().StringVar(&reportPeriodStart, "start", "", "period start date (YYYY-MM-DD, default 7 days ago)")
	reportCmd.Flags().StringVar(&reportPeriodEnd, "end", "", "period end date (YYYY-MM-DD, default today)")
	reportCmd.Flags().StringVarP(&reportOutputDir, "output", "o", "reports", "output directory for markdown reports")
	reportCmd.Flags().BoolVarP(&reportMarkdown, "markdown", "m", false, "also write the report as a markdown file")
	reportCmd.MarkFlagRequired("entries")
}

func runReport() error {
	raw, err := os.ReadFile(reportEntriesFile)
	if err != nil {
		return fmt.Errorf("failed to read entries file: %w", err)
	}

	var entries []core.JournalEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return fmt.Errorf("failed to parse entries file: %w", err)
	}
	for i, entry := range entries {
		if entry.Emotion != "" && !entry.Emotion.Valid() {
			return fmt.Errorf("entry %d has unknown emotion %q", i, entry.Emotion)
		}
	}

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

	result := pipeline.GenerateWeekly(context.Background(), entries, reportPeriodStart, reportPeriodEnd)

	fmt.Print(render.Terminal(result))

	if reportMarkdown {
		path, err := render.WriteMarkdownReport(result, reportOutputDir)
		if err != nil {
			return err
		}
		fmt.Printf("report written to %s\n", path)
	}
	return nil
}

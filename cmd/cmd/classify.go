package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"reverie/internal/calendar"
	"reverie/internal/config"
	"reverie/internal/llm"
)

var classifyCmd = &cobra.Command{
	Use:   "classify [event title]",
	Short: "Classify a calendar event title",
	Long: `Classifies a calendar event title into one of the event types
(PERFORMANCE, SOCIAL, CELEBRATION, HEALTH, LEISURE, ROUTINE).`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runClassify(strings.Join(args, " "))
	},
}

func init() {
	rootCmd.AddCommand(classifyCmd)
}

func runClassify(title string) error {
	client, err := llm.NewClient(config.GetGeminiModel())
	if err != nil {
		return fmt.Errorf("failed to create LLM client: %w", err)
	}
	defer client.Close()

	gen := client.WithOptions(llm.Options{
		MaxTokens:   config.GetGemini().MaxTokens,
		Temperature: config.GetGemini().Temperature,
	})

	classifier := calendar.NewClassifier(gen)
	eventType := classifier.Classify(context.Background(), title)

	fmt.Printf("%s\n", eventType)
	return nil
}

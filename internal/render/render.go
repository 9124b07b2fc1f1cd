// Package render turns a pipeline result into terminal and markdown output.
package render

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"reverie/internal/core"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212")).Margin(1, 0, 0, 0)
	periodStyle  = lipgloss.NewStyle().Faint(true)
	reportStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(1, 2).Width(72)
	insightStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	footerStyle  = lipgloss.NewStyle().Faint(true).Margin(1, 0)
)

// Terminal renders a pipeline result for interactive display.
func Terminal(result core.PipelineResult) string {
	var out strings.Builder

	out.WriteString(titleStyle.Render(result.Summary))
	out.WriteString("\n")
	out.WriteString(periodStyle.Render(fmt.Sprintf("%s to %s", result.PeriodStart, result.PeriodEnd)))
	out.WriteString("\n")
	out.WriteString(reportStyle.Render(result.Report))
	out.WriteString("\n")

	if len(result.Insights) > 0 {
		out.WriteString("\n")
		for _, ins := range result.Insights {
			out.WriteString(insightStyle.Render("• " + ins.Gloss))
			out.WriteString("\n")
		}
	}

	out.WriteString(footerStyle.Render(fmt.Sprintf("score %.2f, attempt %d", result.EvalScore, result.Attempt)))
	out.WriteString("\n")
	return out.String()
}

// Markdown renders a pipeline result as a markdown document.
func Markdown(result core.PipelineResult) string {
	var md strings.Builder

	md.WriteString(fmt.Sprintf("# Weekly Report %s to %s\n\n", result.PeriodStart, result.PeriodEnd))
	md.WriteString(result.Report)
	md.WriteString("\n")

	if len(result.Insights) > 0 {
		md.WriteString("\n## Insights\n\n")
		for _, ins := range result.Insights {
			md.WriteString(fmt.Sprintf("- %s\n", ins.Gloss))
			if len(ins.DateReferences) > 0 {
				md.WriteString(fmt.Sprintf("  - dates: %s\n", strings.Join(ins.DateReferences, ", ")))
			}
		}
	}

	md.WriteString(fmt.Sprintf("\n---\n\n*score %.2f, attempt %d*\n", result.EvalScore, result.Attempt))
	return md.String()
}

// WriteMarkdownReport writes the markdown rendering to a dated file in
// outputDir and returns the file path.
func WriteMarkdownReport(result core.PipelineResult, outputDir string) (string, error) {
	if outputDir == "" {
		outputDir = "reports"
	}
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory %s: %w", outputDir, err)
	}

	filename := fmt.Sprintf("report_%s.md", result.PeriodEnd)
	filePath := filepath.Join(outputDir, filename)

	if err := os.WriteFile(filePath, []byte(Markdown(result)), 0644); err != nil {
		return "", fmt.Errorf("failed to write report file %s: %w", filePath, err)
	}
	return filePath, nil
}

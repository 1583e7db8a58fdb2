// Package cmd — analyze command.
// Runs the pipeline: fetch → extract → chunk → summarize → score → render → write.
package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/gaurav-prasanna/ordinancepipe/config"
	"github.com/gaurav-prasanna/ordinancepipe/core"
	"github.com/gaurav-prasanna/ordinancepipe/core/output"
	"github.com/gaurav-prasanna/ordinancepipe/core/render"
	"github.com/gaurav-prasanna/ordinancepipe/crawl"
)

// Flag variables.
var (
	flagPDF           bool
	flagMarkdown      bool
	flagJSON          bool
	flagXLSX          bool
	flagOutputDir     string
	flagBrowser       bool
	flagResolve       bool
	flagChunkStrategy string
	flagChunkSize     int
	flagBestPractices string
	flagWeights       string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <url>",
	Short: "Summarize and score the zoning ordinance at a URL",
	Long: `Analyze downloads a zoning ordinance, extracts its text, summarizes it and
scores the summary against the rubric. Without a format flag the result is
printed as JSON.

Examples:
  ordinancepipe analyze https://city.gov/zoning.pdf
  ordinancepipe analyze https://city.gov/zoning.pdf --markdown --pdf --output_dir ./out
  ordinancepipe analyze https://city.gov/planning --resolve --xlsx
  ordinancepipe analyze https://city.gov/zoning.pdf --browser --output_dir s3://bucket/reports`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	// Output format flags; any combination is allowed.
	analyzeCmd.Flags().BoolVar(&flagPDF, "pdf", false, "Write a PDF report")
	analyzeCmd.Flags().BoolVar(&flagMarkdown, "markdown", false, "Write a Markdown report")
	analyzeCmd.Flags().BoolVar(&flagJSON, "json", false, "Write a JSON report")
	analyzeCmd.Flags().BoolVar(&flagXLSX, "xlsx", false, "Write an Excel workbook")
	analyzeCmd.Flags().StringVar(&flagOutputDir, "output_dir", "", "Output directory or afs URL (default: current directory)")

	analyzeCmd.Flags().BoolVar(&flagBrowser, "browser", false, "Establish a headless browser session before downloading")
	analyzeCmd.Flags().BoolVar(&flagResolve, "resolve", false, "Treat the URL as a landing page and pick the best linked PDF")
	analyzeCmd.Flags().StringVar(&flagChunkStrategy, "chunk_strategy", "", "Chunking strategy: pages or fixed (default from CHUNK_STRATEGY)")
	analyzeCmd.Flags().IntVar(&flagChunkSize, "chunk_size", 0, "Words per chunk (pages) or characters per chunk (fixed)")
	analyzeCmd.Flags().StringVar(&flagBestPractices, "best_practices", "", "Best practices rubric file (default from BEST_PRACTICES_PATH)")
	analyzeCmd.Flags().StringVar(&flagWeights, "weights", "", "Scoring weights file (default from SCORING_WEIGHTS_PATH)")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	rawURL := args[0]

	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("invalid URL: %s (must include scheme, e.g. https://city.gov/zoning.pdf)", rawURL)
	}

	applyAnalyzeFlags(cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	renderers, err := selectRenderers()
	if err != nil {
		return err
	}

	rubric, err := config.LoadRubric(cfg.Rubric.BestPracticesPath, cfg.Rubric.ScoringWeightsPath)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	completer, err := newCompleter(ctx, cfg, false)
	if err != nil {
		return err
	}
	defer closeCompleter(completer)

	analyzer, err := newAnalyzer(cfg, completer)
	if err != nil {
		return err
	}

	if flagResolve {
		resolved, err := crawl.New(newFetcher(cfg), crawl.WithLogger(logger)).Resolve(ctx, rawURL)
		if err != nil {
			return fmt.Errorf("resolving %s: %w", rawURL, err)
		}
		fmt.Fprintf(os.Stdout, "Resolved document: %s\n", resolved)
		rawURL = resolved
	}

	analysis, err := analyzer.Run(ctx, rawURL, rubric)
	if err != nil {
		return err
	}

	if len(renderers) == 0 {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			Summary string           `json:"summary"`
			Scores  core.ScoreReport `json:"scores"`
		}{analysis.Summary, analysis.Scores})
	}

	writer, err := output.New(flagOutputDir)
	if err != nil {
		return fmt.Errorf("initializing output writer: %w", err)
	}
	for _, r := range renderers {
		dest, err := writer.Write(ctx, r, analysis)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stdout, "✓ Written: %s\n", dest)
	}
	return nil
}

func applyAnalyzeFlags(c *config.Config) {
	if flagBrowser {
		c.Fetch.Mode = "browser"
	}
	if flagChunkStrategy != "" {
		c.Chunk.Strategy = flagChunkStrategy
	}
	if flagChunkSize > 0 {
		c.Chunk.Size = flagChunkSize
	}
	if flagBestPractices != "" {
		c.Rubric.BestPracticesPath = flagBestPractices
	}
	if flagWeights != "" {
		c.Rubric.ScoringWeightsPath = flagWeights
	}
}

// selectRenderers returns one renderer per requested format.
func selectRenderers() ([]core.Renderer, error) {
	var formats []string
	if flagMarkdown {
		formats = append(formats, "markdown")
	}
	if flagJSON {
		formats = append(formats, "json")
	}
	if flagPDF {
		formats = append(formats, "pdf")
	}
	if flagXLSX {
		formats = append(formats, "xlsx")
	}

	renderers := make([]core.Renderer, 0, len(formats))
	for _, f := range formats {
		r, err := render.ForFormat(f)
		if err != nil {
			return nil, err
		}
		renderers = append(renderers, r)
	}
	return renderers, nil
}

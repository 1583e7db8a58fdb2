package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gaurav-prasanna/ordinancepipe/finder"
)

var findCmd = &cobra.Command{
	Use:   "find <city>",
	Short: "Find the link to a city's zoning ordinance",
	Long: `Find asks the configured model, with web search where available, for the
most recent zoning ordinance of a city and prints the result as JSON.

Examples:
  ordinancepipe find "Arlington, MA"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runFind,
}

func init() {
	rootCmd.AddCommand(findCmd)
}

func runFind(cmd *cobra.Command, args []string) error {
	city := strings.Join(args, " ")
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	completer, err := newCompleter(ctx, cfg, true)
	if err != nil {
		return err
	}
	defer closeCompleter(completer)

	res, err := finder.New(completer, logger).Find(ctx, city)
	if err != nil && !errors.Is(err, finder.ErrIncomplete) {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if encErr := enc.Encode(res); encErr != nil {
		return encErr
	}
	return err
}

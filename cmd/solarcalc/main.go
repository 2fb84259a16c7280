// Command solarcalc evaluates solar farm scenarios from the terminal.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/text/language"

	"solarfarm/internal/report"
	"solarfarm/internal/sunlight"
)

// cli holds state shared by every subcommand. It is filled in by the root
// command's PersistentPreRunE.
type cli struct {
	tablePath string
	lang      string
	logLevel  string

	logger    *slog.Logger
	table     *sunlight.Table
	formatter *report.Formatter
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	rootCmd := &cobra.Command{
		Use:           "solarcalc",
		Short:         "Estimate solar farm output, revenue and payoff period",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.setup(cmd)
		},
	}

	rootCmd.PersistentFlags().StringVar(&c.tablePath, "table", "", "sunlight table CSV (optionally zstd compressed); defaults to the built-in table")
	rootCmd.PersistentFlags().StringVar(&c.lang, "lang", "en", "language tag used for number formatting")
	rootCmd.PersistentFlags().StringVar(&c.logLevel, "log-level", "warn", "log level (debug, info, warn, error)")

	rootCmd.AddCommand(c.estimateCmd())
	rootCmd.AddCommand(c.sweepCmd())
	rootCmd.AddCommand(c.citiesCmd())
	rootCmd.AddCommand(c.paramsCmd())
	return rootCmd
}

func (c *cli) setup(cmd *cobra.Command) error {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.logLevel)); err != nil {
		return fmt.Errorf("invalid --log-level %q", c.logLevel)
	}
	c.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

	tag, err := language.Parse(c.lang)
	if err != nil {
		return fmt.Errorf("invalid --lang %q: %w", c.lang, err)
	}
	c.formatter = report.NewFormatter(tag)

	if c.tablePath == "" {
		c.table = sunlight.DefaultTable()
		return nil
	}

	table, res, err := sunlight.LoadTableFile(c.tablePath)
	if err != nil {
		return err
	}
	for _, le := range res.Errors {
		c.logger.Warn("skipped sunlight table row", "path", c.tablePath, "line", le.Line, "error", le.Err)
	}
	c.logger.Debug("sunlight table loaded", "path", c.tablePath, "cities", res.Loaded)
	c.table = table
	return nil
}

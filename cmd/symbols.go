package cmd

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"

	"github.com/rasnes/wikiviews/load"
	"github.com/rasnes/wikiviews/model"
	"github.com/rasnes/wikiviews/pipeline"
)

var symbolsCmd = &cobra.Command{
	Use:   "symbols",
	Short: "Manage the symbol table",
}

// symbolsPipeline opens only the store. The symbols commands never call the pageviews API.
func symbolsPipeline() (*pipeline.Pipeline, error) {
	cfg, log, err := initializeConfigAndLogger()
	if err != nil {
		return nil, err
	}

	store, err := load.NewStore(cfg, log)
	if err != nil {
		return nil, fmt.Errorf("error creating %s store: %w", cfg.Storage.Driver, err)
	}

	return &pipeline.Pipeline{Store: store, Logger: log}, nil
}

func newSymbolsLoadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "load [file.csv]",
		Short: "Loads id,ticker,wiki_title rows into the symbol table, replacing existing ids",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := symbolsPipeline()
			if err != nil {
				return err
			}
			defer p.Close()

			if _, err := p.LoadSymbolsFile(cmd.Context(), args[0]); err != nil {
				p.Logger.Error(fmt.Sprintf("Error loading symbols: %v", err))
				return err
			}
			return nil
		},
	}
}

func newSymbolsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Prints the symbol table",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := symbolsPipeline()
			if err != nil {
				return err
			}
			defer p.Close()

			symbols, err := p.Symbols(cmd.Context())
			if err != nil {
				return err
			}

			renderSymbols(cmd.OutOrStdout(), symbols)
			return nil
		},
	}
}

// renderSymbols writes symbols as a table padded by display width, so titles
// with wide characters stay aligned.
func renderSymbols(w io.Writer, symbols []model.Symbol) {
	table := [][]string{{"ID", "TICKER", "WIKI_TITLE"}}
	for _, s := range symbols {
		table = append(table, []string{strconv.FormatInt(s.ID, 10), s.Ticker, s.WikiTitle})
	}

	colWidths := make([]int, len(table[0]))
	for _, row := range table {
		for i, cell := range row {
			if width := runewidth.StringWidth(cell); width > colWidths[i] {
				colWidths[i] = width
			}
		}
	}

	for _, row := range table {
		var sb strings.Builder
		for i, cell := range row {
			if i == len(row)-1 {
				sb.WriteString(cell)
				break
			}
			sb.WriteString(runewidth.FillRight(cell, colWidths[i]))
			sb.WriteString("  ")
		}
		fmt.Fprintln(w, sb.String())
	}
}

package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rasnes/wikiviews/pipeline"
	"github.com/rasnes/wikiviews/transform"
	"github.com/rasnes/wikiviews/utils"
)

var viewsCmd = &cobra.Command{
	Use:   "views",
	Short: "Manage Wikipedia pageview data",
}

func acceptedDateFormats() string {
	var sb strings.Builder
	for _, f := range transform.DateFormats {
		sb.WriteString("  ")
		sb.WriteString(f.Pattern)
		sb.WriteString("\n")
	}
	return sb.String()
}

func newDailyCmd() *cobra.Command {
	var start, end string

	cmd := &cobra.Command{
		Use:   "daily",
		Short: "Inserts daily Wikipedia views for every symbol with a wiki title",
		Long: fmt.Sprintf(`Fetches daily pageviews between --start and --end (inclusive) and inserts
them into the views table. Rows already stored for a symbol and date are kept.

Without --start the range begins wikimedia.lookback_days before today. Without
--end it ends today. Dates are accepted in these formats, tried in order:
%s`, acceptedDateFormats()),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := initializeConfigAndLogger()
			if err != nil {
				return err
			}

			p, err := pipeline.NewPipeline(cfg, log, utils.RealTimeProvider{})
			if err != nil {
				return fmt.Errorf("error creating pipeline: %w", err)
			}
			defer p.Close()

			inserted, err := p.InsertDailyWikiViews(cmd.Context(), start, end)
			if err != nil {
				log.Error(fmt.Sprintf("Error running pipeline: %v", err))
				return err
			}
			log.Info(fmt.Sprintf("Batch job completed without errors. Inserted %d rows", inserted))
			return nil
		},
	}

	cmd.Flags().StringVar(&start, "start", "", "First date to fetch (default: lookback_days ago)")
	cmd.Flags().StringVar(&end, "end", "", "Last date to fetch (default: today)")

	return cmd
}

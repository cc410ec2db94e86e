package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/lead-hunter/internal/hunter"
)

var recommendCmd = &cobra.Command{
	Use:   "recommend",
	Short: "Rank permits into today's visit list",
	Long:  "Scores every open, geocoded permit and prints them ranked by visit priority, with the daily goal.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		format, _ := cmd.Flags().GetString("format")
		if err := checkFormat(format); err != nil {
			return err
		}

		env, err := initEnv(ctx, "recommend", nil)
		if err != nil {
			return err
		}
		defer env.Close()

		cities, _ := cmd.Flags().GetStringSlice("city")
		county, _ := cmd.Flags().GetString("county")
		limit, _ := cmd.Flags().GetInt("limit")

		res, err := env.Service.Recommend(ctx, hunter.Filter{Cities: cities, County: county}, limit)
		if err != nil {
			return eris.Wrap(err, "recommend")
		}

		zap.L().Info("recommendations generated",
			zap.Int("analyzed", res.Summary.TotalAnalyzed),
			zap.Int("high", res.Summary.HighPriority),
			zap.Int("hot_zones", res.Summary.HotZones),
		)

		path, _ := cmd.Flags().GetString("output")
		out, closeOut, err := openOutput(path)
		if err != nil {
			return err
		}
		if err := writeRecommendations(out, res, format); err != nil {
			_ = closeOut()
			return err
		}
		return closeOut()
	},
}

func init() {
	recommendCmd.Flags().StringSlice("city", nil, "only include permits in these cities (repeatable)")
	recommendCmd.Flags().String("county", "", "only include permits in this configured county")
	recommendCmd.Flags().Int("limit", 0, "max recommendations to show (0 = all)")
	recommendCmd.Flags().String("format", formatTable, "output format: table, csv or json")
	recommendCmd.Flags().String("output", "", "write to this file instead of stdout")
	rootCmd.AddCommand(recommendCmd)
}

package main

import (
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/lead-hunter/internal/hunter"
)

var clustersCmd = &cobra.Command{
	Use:   "clusters",
	Short: "List hot zones of nearby hot permits",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx, "recommend", nil)
		if err != nil {
			return err
		}
		defer env.Close()

		cities, _ := cmd.Flags().GetStringSlice("city")
		county, _ := cmd.Flags().GetString("county")

		clusters, err := env.Service.Clusters(ctx, hunter.Filter{Cities: cities, County: county})
		if err != nil {
			return eris.Wrap(err, "clusters")
		}

		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			return writeJSONTo(os.Stdout, clusters)
		}
		if len(clusters) == 0 {
			fmt.Fprintln(os.Stderr, "No hot zones found.")
			return nil
		}
		formatClusters(os.Stdout, clusters)
		return nil
	},
}

func init() {
	clustersCmd.Flags().StringSlice("city", nil, "only include permits in these cities (repeatable)")
	clustersCmd.Flags().String("county", "", "only include permits in this configured county")
	clustersCmd.Flags().Bool("json", false, "print clusters as JSON")
	rootCmd.AddCommand(clustersCmd)
}

package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/sells-group/lead-hunter/internal/service"
)

var routeCmd = &cobra.Command{
	Use:   "route",
	Short: "Sequence selected permits into a day route",
	Long: `Sequences the given permits in the order listed and checks the trip
against the daily time budget. Stops are not reordered.`,
	Example: `  lead-hunter route --permits p1,p2,p3 --start custom --start-address "1 Main St, Boston, MA" --end round_trip`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		format, _ := cmd.Flags().GetString("format")
		if format == formatCSV {
			return eris.New("route output supports table or json")
		}
		if err := checkFormat(format); err != nil {
			return err
		}

		ids, _ := cmd.Flags().GetStringSlice("permits")
		start, err := endpointFromFlags(cmd.Flags(), "start")
		if err != nil {
			return err
		}
		end, err := endpointFromFlags(cmd.Flags(), "end")
		if err != nil {
			return err
		}

		env, err := initEnv(ctx, "route", nil)
		if err != nil {
			return err
		}
		defer env.Close()

		plan, err := env.Service.PlanRoute(ctx, service.RouteRequest{
			PermitIDs: ids,
			Start:     start,
			End:       end,
		})
		if err != nil {
			return eris.Wrap(err, "route")
		}

		zap.L().Info("route planned",
			zap.Int("stops", len(plan.Stops)),
			zap.Int("minutes", plan.EstimatedDurationMinutes),
			zap.Bool("within_budget", plan.WithinBudget),
		)

		if format == formatJSON {
			return writeJSONTo(os.Stdout, plan)
		}
		formatRoute(os.Stdout, plan)
		return nil
	},
}

// endpointFromFlags reads --<prefix>, --<prefix>-address, --<prefix>-lat and
// --<prefix>-lng. Coordinates are only set when the flag was given.
func endpointFromFlags(fs *pflag.FlagSet, prefix string) (service.Endpoint, error) {
	var ep service.Endpoint
	var err error
	if ep.Mode, err = fs.GetString(prefix); err != nil {
		return ep, eris.Wrapf(err, "read --%s", prefix)
	}
	if ep.Address, err = fs.GetString(prefix + "-address"); err != nil {
		return ep, eris.Wrapf(err, "read --%s-address", prefix)
	}
	if fs.Changed(prefix + "-lat") {
		v, _ := fs.GetFloat64(prefix + "-lat")
		ep.Latitude = &v
	}
	if fs.Changed(prefix + "-lng") {
		v, _ := fs.GetFloat64(prefix + "-lng")
		ep.Longitude = &v
	}
	return ep, nil
}

func init() {
	routeCmd.Flags().StringSlice("permits", nil, "permit ids in visit order (at least two)")
	routeCmd.Flags().String("start", "current_location", "route start: current_location, first_stop or custom")
	routeCmd.Flags().String("start-address", "", "start address for --start custom")
	routeCmd.Flags().Float64("start-lat", 0, "start latitude")
	routeCmd.Flags().Float64("start-lng", 0, "start longitude")
	routeCmd.Flags().String("end", "last_stop", "route end: last_stop, round_trip or custom")
	routeCmd.Flags().String("end-address", "", "end address for --end custom")
	routeCmd.Flags().Float64("end-lat", 0, "end latitude")
	routeCmd.Flags().Float64("end-lng", 0, "end longitude")
	routeCmd.Flags().String("format", formatTable, "output format: table or json")
	_ = routeCmd.MarkFlagRequired("permits")
	rootCmd.AddCommand(routeCmd)
}

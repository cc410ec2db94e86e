package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"

	"github.com/sells-group/lead-hunter/internal/hunter"
)

const (
	formatTable = "table"
	formatCSV   = "csv"
	formatJSON  = "json"
)

func checkFormat(format string) error {
	switch format {
	case formatTable, formatCSV, formatJSON:
		return nil
	default:
		return eris.Errorf("unsupported format %q (want table, csv or json)", format)
	}
}

// openOutput returns stdout when path is empty.
func openOutput(path string) (io.Writer, func() error, error) {
	if path == "" {
		return os.Stdout, func() error { return nil }, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, eris.Wrapf(err, "create %s", path)
	}
	return f, f.Close, nil
}

func writeJSONTo(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// recommendationRow is the flat export shape of a recommendation.
type recommendationRow struct {
	Rank              int     `csv:"rank"`
	PermitID          string  `csv:"permit_id"`
	Priority          string  `csv:"priority"`
	Score             int     `csv:"score"`
	Status            string  `csv:"status"`
	Address           string  `csv:"address"`
	BuilderName       string  `csv:"builder_name"`
	BuilderPhone      string  `csv:"builder_phone"`
	PermitType        string  `csv:"permit_type"`
	Latitude          float64 `csv:"latitude"`
	Longitude         float64 `csv:"longitude"`
	ClusterSize       int     `csv:"cluster_size"`
	TimeOfDay         string  `csv:"time_of_day"`
	RecommendedAction string  `csv:"recommended_action"`
	Reasons           string  `csv:"reasons"`
}

func recommendationRows(recs []hunter.Recommendation) []recommendationRow {
	rows := make([]recommendationRow, 0, len(recs))
	for i, r := range recs {
		rows = append(rows, recommendationRow{
			Rank:              i + 1,
			PermitID:          r.PermitID,
			Priority:          string(r.Priority),
			Score:             r.Score,
			Status:            string(r.Permit.Status),
			Address:           r.Permit.FullAddress(),
			BuilderName:       r.Permit.BuilderName,
			BuilderPhone:      r.Permit.BuilderPhone,
			PermitType:        string(r.Permit.PermitType),
			Latitude:          r.Permit.Latitude,
			Longitude:         r.Permit.Longitude,
			ClusterSize:       r.ClusterSize,
			TimeOfDay:         string(r.TimeOfDay),
			RecommendedAction: r.RecommendedAction,
			Reasons:           strings.Join(r.Reasons, "; "),
		})
	}
	return rows
}

// writeRecommendations renders a recommendation result in the given format.
func writeRecommendations(out io.Writer, res *hunter.Result, format string) error {
	switch format {
	case formatJSON:
		return writeJSONTo(out, res)
	case formatCSV:
		rows := recommendationRows(res.Recommendations)
		if len(rows) == 0 {
			return nil
		}
		b, err := csvutil.Marshal(rows)
		if err != nil {
			return eris.Wrap(err, "encode recommendations csv")
		}
		_, err = out.Write(b)
		return err
	default:
		formatRecommendations(out, res)
		return nil
	}
}

// formatRecommendations writes the ranked list and summary as a table.
func formatRecommendations(out io.Writer, res *hunter.Result) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "#\tPERMIT\tPRIORITY\tSCORE\tSTATUS\tADDRESS\tWHEN\tACTION")
	_, _ = fmt.Fprintln(w, "-\t------\t--------\t-----\t------\t-------\t----\t------")
	for i, r := range res.Recommendations {
		_, _ = fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%s\t%s\t%s\t%s\n",
			i+1,
			r.PermitID,
			r.Priority,
			r.Score,
			r.Permit.Status,
			truncate(r.Permit.FullAddress(), 40),
			r.TimeOfDay,
			r.RecommendedAction,
		)
	}
	_ = w.Flush()

	s := res.Summary
	_, _ = fmt.Fprintf(out, "\nAnalyzed: %d  High: %d  Medium: %d  Low: %d  Excluded: %d  Hot zones: %d\n",
		s.TotalAnalyzed, s.HighPriority, s.MediumPriority, s.LowPriority, s.Excluded, s.HotZones)
	_, _ = fmt.Fprintf(out, "Goal: %s\n", s.DailyGoal)
}

// formatClusters writes hot zones as a table.
func formatClusters(out io.Writer, clusters []hunter.Cluster) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "#\tCOUNT\tCENTER\tMEMBERS")
	_, _ = fmt.Fprintln(w, "-\t-----\t------\t-------")
	for i, c := range clusters {
		_, _ = fmt.Fprintf(w, "%d\t%d\t%.5f,%.5f\t%s\n",
			i+1, c.Count, c.Center.Lat, c.Center.Lng, strings.Join(c.Members, ","))
	}
	_ = w.Flush()
}

// formatRoute writes the stop list, legs and verdict.
func formatRoute(out io.Writer, plan *hunter.RoutePlan) {
	_, _ = fmt.Fprintf(out, "Start: %s\n", plan.StartLocation)

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "SEQ\tPERMIT\tADDRESS")
	_, _ = fmt.Fprintln(w, "---\t------\t-------")
	for _, s := range plan.Stops {
		_, _ = fmt.Fprintf(w, "%d\t%s\t%s\n", s.Sequence, s.PermitID, s.Address)
	}
	_ = w.Flush()

	_, _ = fmt.Fprintf(out, "End: %s\n\n", plan.EndLocation)
	_, _ = fmt.Fprintf(out, "Distance: %.2f km  Travel: %.0f min  Dwell: %.0f min  Total: %d min (budget %d)\n",
		plan.TotalDistanceKm, plan.TravelMinutes, plan.DwellMinutes, plan.EstimatedDurationMinutes, plan.BudgetMinutes)
	if plan.WithinBudget {
		_, _ = fmt.Fprintln(out, "Verdict: fits the day")
	} else {
		_, _ = fmt.Fprintf(out, "Verdict: over budget by %d min\n", plan.OverBudgetMinutes)
	}
	for _, warn := range plan.Warnings {
		_, _ = fmt.Fprintf(out, "Warning: %s\n", warn)
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

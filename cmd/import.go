package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/lead-hunter/internal/fetcher"
	"github.com/sells-group/lead-hunter/internal/importer"
)

var importGeocode bool

var importCmd = &cobra.Command{
	Use:   "import <file-or-url>",
	Short: "Import permits from a CSV, XLSX or JSON file",
	Long: `Loads permits from a spreadsheet export and upserts them by id. The
source may be a local file or an http(s)/ftp URL; zipped exports are unpacked.
Rows without coordinates are geocoded when --geocode is set. Invalid rows are
skipped and listed.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx, "import", nil)
		if err != nil {
			return err
		}
		defer env.Close()
		if importGeocode && env.Geocoder == nil {
			zap.L().Warn("geocoding is disabled; rows without coordinates stay unplaced")
		}

		path, cleanup, err := resolveSource(ctx, args[0])
		if err != nil {
			return err
		}
		defer cleanup()

		im := importer.New(env.Store, importerOptions(env, importGeocode)...)
		report, err := im.Run(ctx, path)
		if err != nil {
			return eris.Wrap(err, "import")
		}

		zap.L().Info("import complete",
			zap.String("file", args[0]),
			zap.Int("read", report.Read),
			zap.Int64("imported", report.Imported),
			zap.Int("skipped", len(report.Skipped)),
			zap.Int("geocoded", report.Geocoded),
		)
		formatImportReport(os.Stdout, report)
		return nil
	},
}

var geocodeCmd = &cobra.Command{
	Use:   "geocode",
	Short: "Geocoding maintenance",
}

var geocodeBackfillCmd = &cobra.Command{
	Use:   "backfill",
	Short: "Geocode stored permits that have no coordinates",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx, "import", nil)
		if err != nil {
			return err
		}
		defer env.Close()
		if env.Geocoder == nil {
			return eris.New("geocode backfill: geocoding is disabled (set geocode.enabled)")
		}

		limit, _ := cmd.Flags().GetInt("limit")
		im := importer.New(env.Store, importerOptions(env, true)...)
		report, err := im.Backfill(ctx, limit)
		if err != nil {
			return eris.Wrap(err, "geocode backfill")
		}

		zap.L().Info("backfill complete",
			zap.Int("read", report.Read),
			zap.Int("geocoded", report.Geocoded),
			zap.Int("unmatched", report.Unmatched),
		)
		formatImportReport(os.Stdout, report)
		return nil
	},
}

// resolveSource downloads remote sources into a temp dir. cleanup removes it.
func resolveSource(ctx context.Context, src string) (string, func(), error) {
	if !fetcher.IsRemote(src) {
		return src, func() {}, nil
	}

	dir, err := os.MkdirTemp("", "lead-hunter-import-*")
	if err != nil {
		return "", nil, eris.Wrap(err, "import: create temp dir")
	}
	cleanup := func() { _ = os.RemoveAll(dir) }

	ic := cfg.Import
	path, err := fetcher.Fetch(ctx, src, dir, fetcher.Options{
		HTTP: fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
			UserAgent: ic.UserAgent,
			Timeout:   time.Duration(ic.TimeoutSecs) * time.Second,
			RateLimit: ic.RateLimit,
		}),
		FTP: fetcher.NewFTPFetcher(fetcher.FTPOptions{
			Timeout: time.Duration(ic.TimeoutSecs) * time.Second,
		}),
	})
	if err != nil {
		cleanup()
		return "", nil, eris.Wrap(err, "import")
	}
	return path, cleanup, nil
}

func importerOptions(env *appEnv, geocode bool) []importer.Option {
	opts := []importer.Option{
		importer.WithBatchSize(cfg.Geocode.BatchSize),
		importer.WithConcurrency(cfg.Geocode.Concurrency),
	}
	if geocode && env.Geocoder != nil {
		opts = append(opts, importer.WithGeocoder(env.Geocoder))
	}
	return opts
}

// formatImportReport writes counts and any skipped rows.
func formatImportReport(out io.Writer, r *importer.Report) {
	_, _ = fmt.Fprintf(out, "Read: %d  Imported: %d  Skipped: %d  Geocoded: %d  Unmatched: %d\n",
		r.Read, r.Imported, len(r.Skipped), r.Geocoded, r.Unmatched)
	if len(r.Skipped) == 0 {
		return
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "\nROW\tID\tERROR")
	_, _ = fmt.Fprintln(w, "---\t--\t-----")
	for _, s := range r.Skipped {
		_, _ = fmt.Fprintf(w, "%d\t%s\t%s\n", s.Row, s.ID, s.Err)
	}
	_ = w.Flush()
}

func init() {
	importCmd.Flags().BoolVar(&importGeocode, "geocode", false, "geocode rows without coordinates")
	geocodeBackfillCmd.Flags().Int("limit", 0, "max permits to geocode (0 = all)")

	geocodeCmd.AddCommand(geocodeBackfillCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(geocodeCmd)
}

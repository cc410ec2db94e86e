// Package importer loads permit exports into the permit store and backfills
// coordinates for permits that arrive without them.
package importer

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/lead-hunter/internal/model"
	"github.com/sells-group/lead-hunter/internal/store"
	"github.com/sells-group/lead-hunter/pkg/geocode"
)

// RowError describes a row that was skipped during import. Row is 1-based and
// counts the header, so it matches the line a spreadsheet shows.
type RowError struct {
	Row int    `json:"row"`
	ID  string `json:"id,omitempty"`
	Err string `json:"error"`
}

// Report summarizes an import or backfill run.
type Report struct {
	Read      int        `json:"read"`
	Imported  int64      `json:"imported"`
	Skipped   []RowError `json:"skipped,omitempty"`
	Geocoded  int        `json:"geocoded"`
	Unmatched int        `json:"unmatched"`
}

// Option configures an Importer.
type Option func(*Importer)

// WithGeocoder enables coordinate backfill with c.
func WithGeocoder(c geocode.Client) Option {
	return func(im *Importer) { im.geocoder = c }
}

// WithBatchSize sets how many addresses go into one geocode batch.
func WithBatchSize(n int) Option {
	return func(im *Importer) {
		if n > 0 {
			im.batchSize = n
		}
	}
}

// WithConcurrency sets how many geocode batches run at once.
func WithConcurrency(n int) Option {
	return func(im *Importer) {
		if n > 0 {
			im.concurrency = n
		}
	}
}

// WithClock overrides the clock used for rows without created_at.
func WithClock(now func() time.Time) Option {
	return func(im *Importer) { im.now = now }
}

// Importer reads permit files and upserts them into a store.
type Importer struct {
	store       store.PermitStore
	geocoder    geocode.Client
	batchSize   int
	concurrency int
	now         func() time.Time
}

// New creates an Importer. Without WithGeocoder, unplaced permits are stored
// as-is at (0,0).
func New(s store.PermitStore, opts ...Option) *Importer {
	im := &Importer{
		store:       s,
		batchSize:   1000,
		concurrency: 4,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(im)
	}
	return im
}

// Run imports the file at path.
func (im *Importer) Run(ctx context.Context, path string) (*Report, error) {
	log := zap.L().With(zap.String("path", path))

	records, err := ReadFile(path)
	if err != nil {
		return nil, err
	}
	log.Info("importer: read permits", zap.Int("rows", len(records)))

	return im.Import(ctx, records)
}

// Import converts records to permits, geocodes the unplaced ones and upserts
// the result. Rows that fail to parse or validate are skipped and reported.
func (im *Importer) Import(ctx context.Context, records []Record) (*Report, error) {
	report := &Report{Read: len(records)}

	permits := make([]model.Permit, 0, len(records))
	seen := make(map[string]int, len(records))
	for i, rec := range records {
		row := i + 2
		p, err := im.toPermit(rec)
		if err != nil {
			report.Skipped = append(report.Skipped, RowError{Row: row, ID: rec.ID, Err: err.Error()})
			continue
		}
		// Later rows replace earlier rows with the same id.
		if j, ok := seen[p.ID]; ok {
			permits[j] = p
			continue
		}
		seen[p.ID] = len(permits)
		permits = append(permits, p)
	}

	if err := im.geocodeUnplaced(ctx, permits, report); err != nil {
		return nil, err
	}

	if len(permits) > 0 {
		n, err := im.store.UpsertPermits(ctx, permits)
		if err != nil {
			return nil, eris.Wrap(err, "importer: upsert permits")
		}
		report.Imported = n
	}

	zap.L().Info("importer: import complete",
		zap.Int("read", report.Read),
		zap.Int64("imported", report.Imported),
		zap.Int("skipped", len(report.Skipped)),
		zap.Int("geocoded", report.Geocoded),
		zap.Int("unmatched", report.Unmatched),
	)
	return report, nil
}

// Backfill geocodes stored permits that still have no coordinates.
func (im *Importer) Backfill(ctx context.Context, limit int) (*Report, error) {
	if im.geocoder == nil {
		return nil, eris.New("importer: backfill requires a geocoder")
	}

	permits, err := im.store.ListPermits(ctx, store.PermitFilter{Unplaced: true, Limit: limit})
	if err != nil {
		return nil, eris.Wrap(err, "importer: list unplaced permits")
	}
	report := &Report{Read: len(permits)}
	if len(permits) == 0 {
		return report, nil
	}

	if err := im.geocodeUnplaced(ctx, permits, report); err != nil {
		return nil, err
	}

	placed := make([]model.Permit, 0, report.Geocoded)
	for _, p := range permits {
		if p.Placed() {
			placed = append(placed, p)
		}
	}
	if len(placed) > 0 {
		n, err := im.store.UpsertPermits(ctx, placed)
		if err != nil {
			return nil, eris.Wrap(err, "importer: upsert geocoded permits")
		}
		report.Imported = n
	}

	zap.L().Info("importer: backfill complete",
		zap.Int("candidates", report.Read),
		zap.Int("geocoded", report.Geocoded),
		zap.Int("unmatched", report.Unmatched),
	)
	return report, nil
}

// geocodeUnplaced fills coordinates in place for unplaced permits with an
// address. Batches run concurrently; each writes only its own indexes.
func (im *Importer) geocodeUnplaced(ctx context.Context, permits []model.Permit, report *Report) error {
	if im.geocoder == nil {
		return nil
	}

	var idx []int
	for i, p := range permits {
		if !p.Placed() && strings.TrimSpace(p.Address) != "" {
			idx = append(idx, i)
		}
	}
	if len(idx) == 0 {
		return nil
	}

	var (
		mu        sync.Mutex
		geocoded  int
		unmatched int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(im.concurrency)

	for start := 0; start < len(idx); start += im.batchSize {
		end := min(start+im.batchSize, len(idx))
		chunk := idx[start:end]

		g.Go(func() error {
			addrs := make([]geocode.AddressInput, len(chunk))
			for j, i := range chunk {
				p := permits[i]
				addrs[j] = geocode.AddressInput{ID: p.ID, Street: p.Address, City: p.City, State: p.State, ZipCode: p.Zip}
			}

			results, err := im.geocoder.BatchGeocode(gctx, addrs)
			if err != nil {
				return eris.Wrapf(err, "importer: geocode batch of %d", len(addrs))
			}

			hits := 0
			for j, i := range chunk {
				if j >= len(results) || !results[j].Matched {
					continue
				}
				permits[i].Latitude = results[j].Latitude
				permits[i].Longitude = results[j].Longitude
				hits++
			}

			mu.Lock()
			geocoded += hits
			unmatched += len(chunk) - hits
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	report.Geocoded += geocoded
	report.Unmatched += unmatched
	zap.L().Debug("importer: geocoded permits",
		zap.Int("candidates", len(idx)),
		zap.Int("matched", geocoded),
	)
	return nil
}

// toPermit parses and validates one record. Blank ids get a fresh UUID, blank
// status means new and a blank created_at means now.
func (im *Importer) toPermit(rec Record) (model.Permit, error) {
	p := model.Permit{
		ID:           strings.TrimSpace(rec.ID),
		Address:      strings.TrimSpace(rec.Address),
		City:         strings.TrimSpace(rec.City),
		State:        strings.ToUpper(strings.TrimSpace(rec.State)),
		Zip:          strings.TrimSpace(rec.Zip),
		BuilderName:  strings.TrimSpace(rec.BuilderName),
		BuilderPhone: strings.TrimSpace(rec.BuilderPhone),
		Notes:        strings.TrimSpace(rec.Notes),
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}

	p.Status = model.StatusNew
	if strings.TrimSpace(rec.Status) != "" {
		st, err := model.ParseStatus(rec.Status)
		if err != nil {
			return p, err
		}
		p.Status = st
	}

	pt, err := model.ParsePermitType(rec.PermitType)
	if err != nil {
		return p, err
	}
	p.PermitType = pt

	if p.Latitude, err = parseCoord("latitude", rec.Latitude); err != nil {
		return p, err
	}
	if p.Longitude, err = parseCoord("longitude", rec.Longitude); err != nil {
		return p, err
	}

	p.CreatedAt = im.now().UTC()
	if strings.TrimSpace(rec.CreatedAt) != "" {
		if p.CreatedAt, err = parseTime(rec.CreatedAt); err != nil {
			return p, err
		}
	}

	if err := p.Validate(); err != nil {
		return p, err
	}
	return p, nil
}

func parseCoord(field, raw string) (float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, &model.ValidationError{Field: field, Message: fmt.Sprintf("not a number: %q", raw)}
	}
	return f, nil
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
	"01/02/2006 15:04",
	"01/02/2006",
	"1/2/2006",
	"01-02-06",
}

// parseTime accepts the timestamp forms permit portals export. Naive times
// are read as UTC.
func parseTime(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, &model.ValidationError{Field: "created_at", Message: fmt.Sprintf("unrecognized date %q", raw)}
}

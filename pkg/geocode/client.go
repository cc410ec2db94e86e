// Package geocode resolves street addresses to coordinates via the Census
// Geocoder, with Google as an optional fallback.
package geocode

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/sells-group/lead-hunter/internal/resilience"
)

// Client geocodes addresses.
type Client interface {
	// Geocode resolves one address. An unmatched address is not an error:
	// the result has Matched=false.
	Geocode(ctx context.Context, addr AddressInput) (*Result, error)

	// BatchGeocode resolves addrs; results line up with addrs by index.
	BatchGeocode(ctx context.Context, addrs []AddressInput) ([]Result, error)
}

// AddressInput is an address to geocode. A free-form one-line address can be
// passed in Street alone.
type AddressInput struct {
	ID      string // correlates batch rows; assigned when empty
	Street  string
	City    string
	State   string
	ZipCode string
}

// Result holds the geocoding output for an address.
type Result struct {
	Latitude  float64
	Longitude float64
	Source    string // "census" or "google"
	Quality   string // "rooftop", "range", "centroid", "approximate"
	Matched   bool
}

// Option configures the geocoder.
type Option func(*geocoder)

// WithGoogleAPIKey enables Google Geocoding API as a fallback.
func WithGoogleAPIKey(key string) Option {
	return func(g *geocoder) {
		g.googleKey = key
	}
}

// WithHTTPClient sets the HTTP client for both Census and Google requests.
func WithHTTPClient(hc *http.Client) Option {
	return func(g *geocoder) {
		g.httpClient = hc
	}
}

// WithRateLimit sets the shared requests-per-second budget.
func WithRateLimit(rps float64) Option {
	return func(g *geocoder) {
		burst := int(rps)
		if burst < 1 {
			burst = 1
		}
		g.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithRetry overrides the retry policy for transient upstream failures.
func WithRetry(cfg resilience.RetryConfig) Option {
	return func(g *geocoder) {
		g.retry = cfg
	}
}

type geocoder struct {
	httpClient *http.Client
	googleKey  string
	limiter    *rate.Limiter
	retry      resilience.RetryConfig
	census     *gobreaker.CircuitBreaker
	google     *gobreaker.CircuitBreaker
}

// NewClient creates a geocoding Client with the given options.
func NewClient(opts ...Option) Client {
	g := &geocoder{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		limiter:    rate.NewLimiter(50, 50), // Census default: 50 req/s
		retry:      resilience.DefaultRetryConfig(),
	}
	for _, opt := range opts {
		opt(g)
	}
	g.init()
	return g
}

func (g *geocoder) init() {
	if g.census == nil {
		g.census = resilience.NewBreaker("geocode-census")
	}
	if g.google == nil {
		g.google = resilience.NewBreaker("geocode-google")
	}
}

// Geocode tries Census first, then Google if configured.
func (g *geocoder) Geocode(ctx context.Context, addr AddressInput) (*Result, error) {
	if formatOneLine(addr) == "" {
		return nil, eris.New("geocode: empty address")
	}

	result, censusErr := g.geocodeCensus(ctx, addr)
	if censusErr == nil && result.Matched {
		return result, nil
	}

	if g.googleKey != "" {
		googleResult, googleErr := g.geocodeGoogle(ctx, addr)
		if googleErr == nil && googleResult.Matched {
			return googleResult, nil
		}
		if censusErr != nil && googleErr != nil {
			return nil, eris.Wrap(censusErr, "geocode: all providers failed")
		}
	} else if censusErr != nil {
		return nil, censusErr
	}

	return &Result{Matched: false}, nil
}

// censusBatchMax is the Census batch endpoint's row limit.
const censusBatchMax = 10000

// BatchGeocode sends addrs to the Census batch API in chunks and falls back to
// single lookups when a chunk fails. Unmatched rows get a Google retry when a
// key is configured.
func (g *geocoder) BatchGeocode(ctx context.Context, addrs []AddressInput) ([]Result, error) {
	if len(addrs) == 0 {
		return nil, nil
	}

	for i := range addrs {
		if addrs[i].ID == "" {
			addrs[i].ID = fmt.Sprintf("%d", i)
		}
	}

	results := make([]Result, 0, len(addrs))
	for start := 0; start < len(addrs); start += censusBatchMax {
		end := min(start+censusBatchMax, len(addrs))
		chunk := addrs[start:end]

		got, err := g.batchGeocodeCensus(ctx, chunk)
		if err != nil {
			if ctx.Err() != nil {
				return nil, eris.Wrap(ctx.Err(), "geocode: batch canceled")
			}
			got = make([]Result, len(chunk))
			for i, addr := range chunk {
				r, geocodeErr := g.Geocode(ctx, addr)
				if geocodeErr != nil {
					continue
				}
				got[i] = *r
			}
			results = append(results, got...)
			continue
		}

		if g.googleKey != "" {
			for i, r := range got {
				if r.Matched {
					continue
				}
				googleResult, googleErr := g.geocodeGoogle(ctx, chunk[i])
				if googleErr == nil && googleResult.Matched {
					got[i] = *googleResult
				}
			}
		}
		results = append(results, got...)
	}

	return results, nil
}

// call rate-limits, retries and circuit-breaks one upstream request. build is
// invoked per attempt so request bodies are fresh.
func (g *geocoder) call(ctx context.Context, service string, cb *gobreaker.CircuitBreaker, build func(ctx context.Context) (*http.Request, error)) ([]byte, error) {
	cfg := g.retry
	if cfg.OnRetry == nil {
		cfg.OnRetry = resilience.RetryLogger("geocode", service)
	}
	return resilience.Do(ctx, cfg, func(ctx context.Context) ([]byte, error) {
		if err := g.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrapf(err, "geocode: %s rate limit", service)
		}
		return resilience.Execute(ctx, cb, func(ctx context.Context) ([]byte, error) {
			req, err := build(ctx)
			if err != nil {
				return nil, eris.Wrapf(err, "geocode: %s build request", service)
			}
			return g.fetch(req, service)
		})
	})
}

func (g *geocoder) fetch(req *http.Request, service string) ([]byte, error) {
	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, eris.Wrapf(err, "geocode: %s request", service)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		err := eris.Errorf("geocode: %s returned status %d", service, resp.StatusCode)
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return nil, resilience.NewTransientError(err, resp.StatusCode)
		}
		return nil, err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrapf(err, "geocode: %s read body", service)
	}
	return body, nil
}

// formatOneLine joins the non-empty address parts with ", ".
func formatOneLine(addr AddressInput) string {
	var parts []string
	for _, p := range []string{addr.Street, addr.City, addr.State, addr.ZipCode} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

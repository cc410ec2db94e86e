package geocode

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
)

const (
	censusOneLineURL = "https://geocoding.geo.census.gov/geocoder/locations/onelineaddress"
	censusBatchURL   = "https://geocoding.geo.census.gov/geocoder/locations/addressbatch"
	censusBenchmark  = "Public_AR_Current"
)

type censusOneLineResponse struct {
	Result struct {
		AddressMatches []censusAddressMatch `json:"addressMatches"`
	} `json:"result"`
}

type censusAddressMatch struct {
	Coordinates struct {
		X float64 `json:"x"` // longitude
		Y float64 `json:"y"` // latitude
	} `json:"coordinates"`
	MatchedAddress string `json:"matchedAddress"`
}

// geocodeCensus geocodes a single address using the Census one-line API.
func (g *geocoder) geocodeCensus(ctx context.Context, addr AddressInput) (*Result, error) {
	params := url.Values{
		"address":   {formatOneLine(addr)},
		"benchmark": {censusBenchmark},
		"format":    {"json"},
	}

	body, err := g.call(ctx, "census", g.census, func(ctx context.Context) (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, censusOneLineURL+"?"+params.Encode(), nil)
	})
	if err != nil {
		return nil, err
	}

	var resp censusOneLineResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, eris.Wrap(err, "geocode: census parse response")
	}
	if len(resp.Result.AddressMatches) == 0 {
		return &Result{Matched: false, Source: "census"}, nil
	}

	match := resp.Result.AddressMatches[0]
	return &Result{
		Latitude:  match.Coordinates.Y,
		Longitude: match.Coordinates.X,
		Source:    "census",
		Quality:   "rooftop",
		Matched:   true,
	}, nil
}

// batchGeocodeCensus geocodes up to censusBatchMax addresses in one upload.
func (g *geocoder) batchGeocodeCensus(ctx context.Context, addrs []AddressInput) ([]Result, error) {
	var rows bytes.Buffer
	w := csv.NewWriter(&rows)
	idToIdx := make(map[string]int, len(addrs))
	for i, addr := range addrs {
		idToIdx[addr.ID] = i
		if err := w.Write([]string{addr.ID, addr.Street, addr.City, addr.State, addr.ZipCode}); err != nil {
			return nil, eris.Wrap(err, "geocode: census batch write csv")
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, eris.Wrap(err, "geocode: census batch write csv")
	}
	upload := rows.Bytes()

	body, err := g.call(ctx, "census batch", g.census, func(ctx context.Context) (*http.Request, error) {
		var form bytes.Buffer
		mw := multipart.NewWriter(&form)
		if err := mw.WriteField("benchmark", censusBenchmark); err != nil {
			return nil, err
		}
		part, err := mw.CreateFormFile("addressFile", "addresses.csv")
		if err != nil {
			return nil, err
		}
		if _, err := part.Write(upload); err != nil {
			return nil, err
		}
		if err := mw.Close(); err != nil {
			return nil, err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, censusBatchURL, &form)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", mw.FormDataContentType())
		return req, nil
	})
	if err != nil {
		return nil, err
	}

	return parseCensusBatchResponse(body, idToIdx, len(addrs))
}

// parseCensusBatchResponse reads the batch CSV response. Rows are
// id, input address, Match|No_Match|Tie, Exact|Non_Exact, matched address,
// "lon,lat", tiger line id, side. Unmatched rows stop after the third column.
func parseCensusBatchResponse(body []byte, idToIdx map[string]int, total int) ([]Result, error) {
	results := make([]Result, total)
	for i := range results {
		results[i] = Result{Matched: false, Source: "census"}
	}

	r := csv.NewReader(bytes.NewReader(body))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.TrimLeadingSpace = true

	for {
		fields, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, eris.Wrap(err, "geocode: census batch parse response")
		}
		if len(fields) < 6 {
			continue
		}

		idx, ok := idToIdx[strings.TrimSpace(fields[0])]
		if !ok || !strings.EqualFold(strings.TrimSpace(fields[2]), "Match") {
			continue
		}

		lon, lat, err := parseCensusCoords(fields[5])
		if err != nil {
			continue
		}
		results[idx] = Result{
			Latitude:  lat,
			Longitude: lon,
			Source:    "census",
			Quality:   censusBatchQuality(fields[3]),
			Matched:   true,
		}
	}
	return results, nil
}

func censusBatchQuality(exactness string) string {
	if strings.EqualFold(strings.TrimSpace(exactness), "exact") {
		return "rooftop"
	}
	return "range"
}

// parseCensusCoords parses "lon,lat".
func parseCensusCoords(coords string) (lon, lat float64, err error) {
	lonStr, latStr, ok := strings.Cut(coords, ",")
	if !ok {
		return 0, 0, eris.Errorf("geocode: invalid census coords %q", coords)
	}
	lon, err = strconv.ParseFloat(strings.TrimSpace(lonStr), 64)
	if err != nil {
		return 0, 0, eris.Wrap(err, "geocode: parse census lon")
	}
	lat, err = strconv.ParseFloat(strings.TrimSpace(latStr), 64)
	if err != nil {
		return 0, 0, eris.Wrap(err, "geocode: parse census lat")
	}
	return lon, lat, nil
}

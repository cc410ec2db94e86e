package model

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// PermitStatus is the prospecting state of a permit in the lead hunter pipeline.
type PermitStatus string

const (
	StatusNew             PermitStatus = "new"
	StatusContacted       PermitStatus = "contacted"
	StatusConvertedToLead PermitStatus = "converted_to_lead"
	StatusRejected        PermitStatus = "rejected"
	StatusHot             PermitStatus = "hot"
	StatusCold            PermitStatus = "cold"
	StatusVisited         PermitStatus = "visited"
	StatusNotVisited      PermitStatus = "not_visited"
)

// AllStatuses lists every known permit status.
var AllStatuses = []PermitStatus{
	StatusNew,
	StatusContacted,
	StatusConvertedToLead,
	StatusRejected,
	StatusHot,
	StatusCold,
	StatusVisited,
	StatusNotVisited,
}

// Valid reports whether s is a known status.
func (s PermitStatus) Valid() bool {
	for _, known := range AllStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// Terminal reports whether the permit is finished and never worth a revisit.
func (s PermitStatus) Terminal() bool {
	return s == StatusRejected || s == StatusConvertedToLead
}

// Label returns a display form ("not visited").
func (s PermitStatus) Label() string {
	return strings.ReplaceAll(string(s), "_", " ")
}

// ParseStatus normalizes free text ("Not Visited", "converted-to-lead") into a PermitStatus.
func ParseStatus(raw string) (PermitStatus, error) {
	s := PermitStatus(normalizeEnum(raw))
	if !s.Valid() {
		return "", &ValidationError{Field: "status", Message: fmt.Sprintf("unknown status %q", raw)}
	}
	return s, nil
}

// PermitType distinguishes residential from commercial work.
type PermitType string

const (
	PermitResidential PermitType = "residential"
	PermitCommercial  PermitType = "commercial"
)

// ParsePermitType normalizes free text into a PermitType. Empty input is allowed
// and returns the zero value.
func ParsePermitType(raw string) (PermitType, error) {
	switch t := PermitType(normalizeEnum(raw)); t {
	case PermitResidential, PermitCommercial, "":
		return t, nil
	default:
		return "", &ValidationError{Field: "permit_type", Message: fmt.Sprintf("unknown permit type %q", raw)}
	}
}

func normalizeEnum(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = strings.ReplaceAll(s, "-", "_")
	return strings.Join(strings.Fields(s), "_")
}

// Permit is a building permit record used as a prospecting lead source.
type Permit struct {
	ID           string       `json:"id" csv:"id" db:"id"`
	Latitude     float64      `json:"latitude" csv:"latitude" db:"latitude"`
	Longitude    float64      `json:"longitude" csv:"longitude" db:"longitude"`
	Address      string       `json:"address" csv:"address" db:"address"`
	City         string       `json:"city" csv:"city" db:"city"`
	State        string       `json:"state" csv:"state" db:"state"`
	Zip          string       `json:"zip" csv:"zip" db:"zip"`
	BuilderName  string       `json:"builder_name,omitempty" csv:"builder_name" db:"builder_name"`
	BuilderPhone string       `json:"builder_phone,omitempty" csv:"builder_phone" db:"builder_phone"`
	PermitType   PermitType   `json:"permit_type" csv:"permit_type" db:"permit_type"`
	Status       PermitStatus `json:"status" csv:"status" db:"status"`
	Notes        string       `json:"notes,omitempty" csv:"notes" db:"notes"`
	CreatedAt    time.Time    `json:"created_at" csv:"created_at" db:"created_at"`
}

// Placed reports whether the permit has coordinates. (0,0) means "unplaced".
func (p Permit) Placed() bool {
	return !(p.Latitude == 0 && p.Longitude == 0)
}

// FullAddress joins the display address parts, skipping blanks.
func (p Permit) FullAddress() string {
	var parts []string
	for _, s := range []string{p.Address, p.City, strings.TrimSpace(p.State + " " + p.Zip)} {
		if s = strings.TrimSpace(s); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, ", ")
}

// Validate checks the hard-required fields: id, status, created_at and sane
// coordinates. Optional fields never fail validation.
func (p Permit) Validate() error {
	if strings.TrimSpace(p.ID) == "" {
		return &ValidationError{Field: "id", Message: "permit id is required"}
	}
	if !p.Status.Valid() {
		return &ValidationError{Field: "status", Message: fmt.Sprintf("permit %s has unknown status %q", p.ID, p.Status)}
	}
	if p.CreatedAt.IsZero() {
		return &ValidationError{Field: "created_at", Message: fmt.Sprintf("permit %s is missing created_at", p.ID)}
	}
	if !finite(p.Latitude) || !finite(p.Longitude) {
		return &ValidationError{Field: "coordinates", Message: fmt.Sprintf("permit %s has non-numeric coordinates", p.ID)}
	}
	if p.Latitude < -90 || p.Latitude > 90 || p.Longitude < -180 || p.Longitude > 180 {
		return &ValidationError{Field: "coordinates", Message: fmt.Sprintf("permit %s coordinates out of range (%f, %f)", p.ID, p.Latitude, p.Longitude)}
	}
	switch p.PermitType {
	case PermitResidential, PermitCommercial, "":
	default:
		return &ValidationError{Field: "permit_type", Message: fmt.Sprintf("permit %s has unknown permit type %q", p.ID, p.PermitType)}
	}
	return nil
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

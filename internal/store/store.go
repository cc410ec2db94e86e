// Package store persists permits for the recommendation engine. SQLite is the
// single-user default; Postgres backs shared deployments.
package store

import (
	"context"
	"strings"

	"github.com/sells-group/lead-hunter/internal/model"
)

// PermitFilter narrows ListPermits. The zero value lists every permit.
type PermitFilter struct {
	Statuses []model.PermitStatus `json:"statuses,omitempty"`
	// Unplaced selects only permits still at (0,0), i.e. awaiting geocoding.
	Unplaced bool `json:"unplaced,omitempty"`
	Limit    int  `json:"limit,omitempty"`
}

// PermitStore defines permit persistence.
type PermitStore interface {
	// ListPermits returns permits ordered by created_at, then id.
	ListPermits(ctx context.Context, filter PermitFilter) ([]model.Permit, error)
	// GetPermits returns the permits with the given ids in the order the ids
	// were given. Unknown ids are skipped.
	GetPermits(ctx context.Context, ids []string) ([]model.Permit, error)
	// UpsertPermits inserts or replaces permits by id.
	UpsertPermits(ctx context.Context, permits []model.Permit) (int64, error)

	Ping(ctx context.Context) error
	Migrate(ctx context.Context) error
	Close() error
}

var permitColumns = []string{
	"id", "latitude", "longitude", "address", "city", "state", "zip",
	"builder_name", "builder_phone", "permit_type", "status", "notes", "created_at",
}

var selectPermits = "SELECT " + strings.Join(permitColumns, ", ") + " FROM permits"

type scannable interface {
	Scan(dest ...any) error
}

func scanPermit(row scannable) (model.Permit, error) {
	var p model.Permit
	err := row.Scan(&p.ID, &p.Latitude, &p.Longitude, &p.Address, &p.City, &p.State, &p.Zip,
		&p.BuilderName, &p.BuilderPhone, &p.PermitType, &p.Status, &p.Notes, &p.CreatedAt)
	p.CreatedAt = p.CreatedAt.UTC()
	return p, err
}

func permitRow(p model.Permit) []any {
	return []any{
		p.ID, p.Latitude, p.Longitude, p.Address, p.City, p.State, p.Zip,
		p.BuilderName, p.BuilderPhone, string(p.PermitType), string(p.Status), p.Notes, p.CreatedAt.UTC(),
	}
}

// orderByIDs arranges permits in ids order, dropping ids with no permit.
func orderByIDs(ids []string, permits []model.Permit) []model.Permit {
	byID := make(map[string]model.Permit, len(permits))
	for _, p := range permits {
		byID[p.ID] = p
	}
	out := make([]model.Permit, 0, len(ids))
	for _, id := range ids {
		if p, ok := byID[id]; ok {
			out = append(out, p)
		}
	}
	return out
}

func statusStrings(statuses []model.PermitStatus) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}

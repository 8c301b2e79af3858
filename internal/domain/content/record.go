package content

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

const (
	StatusDraft     = "draft"
	StatusPublished = "published"
)

var (
	ErrNotFound   = errors.New("record not found")
	ErrSlugTaken  = errors.New("slug already in use")
	// ErrNotDeleted guards purge: only soft-deleted records can be removed.
	ErrNotDeleted = errors.New("record is not deleted")
)

// Record is one content entry. Fields holds the kind-specific payload and
// is flattened next to the core columns when encoded.
type Record struct {
	ID        string
	Kind      Kind
	Slug      string
	Status    string
	Position  int
	Fields    map[string]any
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt *time.Time
}

func (r Record) Deleted() bool {
	return r.DeletedAt != nil
}

func (r Record) Published() bool {
	return r.Status == StatusPublished
}

// reserved keys are owned by the record itself and never read from Fields.
var reserved = map[string]bool{
	"id":        true,
	"kind":      true,
	"slug":      true,
	"status":    true,
	"position":  true,
	"createdAt": true,
	"updatedAt": true,
	"deletedAt": true,
}

func IsReserved(key string) bool {
	return reserved[key]
}

func (r Record) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(r.Fields)+8)
	for k, v := range r.Fields {
		if !reserved[k] {
			out[k] = v
		}
	}

	out["id"] = r.ID
	out["kind"] = r.Kind
	out["status"] = r.Status
	out["position"] = r.Position
	out["createdAt"] = r.CreatedAt
	out["updatedAt"] = r.UpdatedAt
	if r.Slug != "" {
		out["slug"] = r.Slug
	}
	if r.DeletedAt != nil {
		out["deletedAt"] = r.DeletedAt
	}

	return json.Marshal(out)
}

func (r *Record) UnmarshalJSON(b []byte) error {
	var core struct {
		ID        string     `json:"id"`
		Kind      Kind       `json:"kind"`
		Slug      string     `json:"slug"`
		Status    string     `json:"status"`
		Position  int        `json:"position"`
		CreatedAt time.Time  `json:"createdAt"`
		UpdatedAt time.Time  `json:"updatedAt"`
		DeletedAt *time.Time `json:"deletedAt"`
	}
	if err := json.Unmarshal(b, &core); err != nil {
		return err
	}

	var all map[string]any
	if err := json.Unmarshal(b, &all); err != nil {
		return err
	}

	fields := make(map[string]any, len(all))
	for k, v := range all {
		if !reserved[k] {
			fields[k] = v
		}
	}

	*r = Record{
		ID:        core.ID,
		Kind:      core.Kind,
		Slug:      core.Slug,
		Status:    core.Status,
		Position:  core.Position,
		Fields:    fields,
		CreatedAt: core.CreatedAt,
		UpdatedAt: core.UpdatedAt,
		DeletedAt: core.DeletedAt,
	}
	return nil
}

// Clone returns a copy whose Fields map can be mutated independently.
func (r Record) Clone() Record {
	c := r
	c.Fields = make(map[string]any, len(r.Fields))
	for k, v := range r.Fields {
		c.Fields[k] = v
	}
	if r.DeletedAt != nil {
		t := *r.DeletedAt
		c.DeletedAt = &t
	}
	return c
}

// NewRecord builds a live record from validated input.
func NewRecord(kind Kind, in Input, now time.Time) Record {
	r := Record{
		ID:        uuid.NewString(),
		Kind:      kind,
		Status:    StatusPublished,
		Fields:    map[string]any{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	r.Apply(in, now)
	return r
}

// Apply merges in over r. Nil field values remove the key.
func (r *Record) Apply(in Input, now time.Time) {
	if in.Slug != nil {
		r.Slug = *in.Slug
	}
	if in.Status != nil {
		r.Status = *in.Status
	}
	if in.Position != nil {
		r.Position = *in.Position
	}
	if r.Fields == nil {
		r.Fields = map[string]any{}
	}
	for k, v := range in.Fields {
		if v == nil {
			delete(r.Fields, k)
			continue
		}
		r.Fields[k] = v
	}
	r.UpdatedAt = now
}

type ListFilter struct {
	Kind           Kind
	IncludeDrafts  bool
	IncludeDeleted bool
	Limit          int
	Offset         int
}

const (
	DefaultLimit = 50
	MaxLimit     = 100
)

// Normalize clamps Limit into 1..MaxLimit and Offset to >= 0.
func (f ListFilter) Normalize() ListFilter {
	if f.Limit <= 0 {
		f.Limit = DefaultLimit
	}
	if f.Limit > MaxLimit {
		f.Limit = MaxLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return f
}

// Visible reports whether r passes the filter, ignoring pagination.
func (f ListFilter) Visible(r Record) bool {
	if r.Kind != f.Kind {
		return false
	}
	if r.Deleted() && !f.IncludeDeleted {
		return false
	}
	if !r.Published() && !f.IncludeDrafts {
		return false
	}
	return true
}

package model

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/gestore-cpu/gestione-doc-security/metrics"
)

// Visibility values. A public document is exempt from all scoping.
const (
	VisibilityPublic  = "public"
	VisibilityPrivate = "private"
)

type Document struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	CompanyID   string `json:"company_id"`
	CompanyName string `json:"company_name"`
	// DepartmentTags is stored as written by the upload layer: either a
	// JSON-encoded list or a bare department name. Use Departments() to
	// read it.
	DepartmentTags string     `json:"department_tags"`
	Visibility     string     `json:"visibility"`
	IsCritical     bool       `json:"is_critical"`
	ExpiryDate     *time.Time `json:"expiry_date,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

// IsPublic reports whether the document is exempt from scoping.
func (d Document) IsPublic() bool {
	return d.Visibility == VisibilityPublic
}

// IsExpired reports whether the document has an expiry date in the past.
func (d Document) IsExpired(now time.Time) bool {
	return d.ExpiryDate != nil && d.ExpiryDate.Before(now)
}

// Departments returns the normalized department tag set.
func (d Document) Departments() []string {
	return DecodeDepartmentTags(d.DepartmentTags)
}

// DecodeDepartmentTags normalizes a stored department tag value. The
// upload layer writes either a JSON array, a JSON string, or a bare
// department name; older rows may hold any of the three. Decoding is
// deterministic and never fails: anything that is not a JSON array is
// treated as a single-element list. Empty input yields an empty list.
func DecodeDepartmentTags(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "null" {
		return nil
	}

	var tags []string
	if err := json.Unmarshal([]byte(raw), &tags); err == nil {
		return compactTags(tags)
	}

	var single string
	if err := json.Unmarshal([]byte(raw), &single); err == nil {
		return compactTags([]string{single})
	}

	// Not JSON at all: the raw string is the department name.
	metrics.DepartmentTagFallbacks.Inc()
	return compactTags([]string{raw})
}

func compactTags(tags []string) []string {
	out := tags[:0]
	for _, t := range tags {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// IntersectDepartments reports whether any document department tag is
// among the given membership names.
func IntersectDepartments(docTags, memberships []string) bool {
	if len(docTags) == 0 || len(memberships) == 0 {
		return false
	}
	set := make(map[string]struct{}, len(memberships))
	for _, m := range memberships {
		set[m] = struct{}{}
	}
	for _, t := range docTags {
		if _, ok := set[t]; ok {
			return true
		}
	}
	return false
}

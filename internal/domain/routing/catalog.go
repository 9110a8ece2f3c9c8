// Package routing validates department names returned by the categorical
// router against a closed catalog and maps them to stable identifiers.
package routing

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Department is one catalog entry.
type Department struct {
	ID   string `json:"department_id"`
	Name string `json:"name"`
}

// Catalog is an immutable mapping from normalized department name to
// identifier. Safe for concurrent reads.
type Catalog struct {
	byName map[string]Department
	names  []string
}

// NewCatalog builds a catalog. Names must be non-empty and unique after
// normalization; identifiers must be non-empty.
func NewCatalog(departments []Department) (*Catalog, error) {
	c := &Catalog{
		byName: make(map[string]Department, len(departments)),
		names:  make([]string, 0, len(departments)),
	}
	for _, d := range departments {
		key := Normalize(d.Name)
		id := strings.TrimSpace(d.ID)
		switch {
		case key == "":
			return nil, fmt.Errorf("%w: empty department name (id=%q)", ErrInvalidCatalog, d.ID)
		case id == "":
			return nil, fmt.Errorf("%w: empty id for department %q", ErrInvalidCatalog, d.Name)
		}
		if prev, ok := c.byName[key]; ok {
			return nil, fmt.Errorf("%w: %q and %q normalize to the same name", ErrInvalidCatalog, prev.Name, d.Name)
		}
		dep := Department{ID: id, Name: strings.TrimSpace(d.Name)}
		c.byName[key] = dep
		c.names = append(c.names, dep.Name)
	}
	sort.Strings(c.names)
	return c, nil
}

// Names returns the display names in sorted order. The slice is a copy.
func (c *Catalog) Names() []string {
	out := make([]string, len(c.names))
	copy(out, c.names)
	return out
}

// Departments returns all entries sorted by display name.
func (c *Catalog) Departments() []Department {
	out := make([]Department, 0, len(c.byName))
	for _, d := range c.byName {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Len returns the number of departments.
func (c *Catalog) Len() int { return len(c.byName) }

// Normalize canonicalizes a department name for lookup: NFC, lowercase,
// embedded line breaks removed, surrounding whitespace trimmed.
func Normalize(name string) string {
	s := norm.NFC.String(name)
	s = strings.ToLower(s)
	s = strings.NewReplacer("\r", "", "\n", "").Replace(s)
	return strings.TrimSpace(s)
}

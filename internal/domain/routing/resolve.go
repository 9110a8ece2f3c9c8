package routing

// Resolution is the tagged outcome of a catalog lookup: either Matched with
// the department ID, or unmatched with the raw router answer.
type Resolution struct {
	Matched bool
	ID      string
	Raw     string
}

// Err returns a *RoutingValidationError for an unmatched resolution.
func (r Resolution) Err() error {
	if r.Matched {
		return nil
	}
	return &RoutingValidationError{Raw: r.Raw}
}

// Lookup matches name exactly after normalization. No fuzzy matching.
func (c *Catalog) Lookup(name string) Resolution {
	if d, ok := c.byName[Normalize(name)]; ok {
		return Resolution{Matched: true, ID: d.ID, Raw: name}
	}
	return Resolution{Raw: name}
}

// Resolve returns the stable identifier for name, or a
// *RoutingValidationError carrying the raw name. It never falls back to a
// default department.
func Resolve(name string, catalog *Catalog) (string, error) {
	if catalog == nil {
		return "", ErrNoCatalog
	}
	res := catalog.Lookup(name)
	if err := res.Err(); err != nil {
		return "", err
	}
	return res.ID, nil
}

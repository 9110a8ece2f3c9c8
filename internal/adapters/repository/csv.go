package repository

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/okian/triage/internal/domain/routing"
)

// CSVCatalog loads departments from a CSV file with a header row that
// contains "name" and "department_id" columns (other columns are ignored).
type CSVCatalog struct {
	path string
}

// NewCSVCatalog returns a loader for path.
func NewCSVCatalog(path string) *CSVCatalog {
	return &CSVCatalog{path: path}
}

// LoadCatalog reads the file and builds a catalog.
func (c *CSVCatalog) LoadCatalog(_ context.Context) (*routing.Catalog, error) {
	deps, err := ReadDepartmentsCSV(c.path)
	if err != nil {
		return nil, err
	}
	return routing.NewCatalog(deps)
}

// ReadDepartmentsCSV parses the departments file at path.
func ReadDepartmentsCSV(path string) ([]routing.Department, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	defer func() { _ = f.Close() }()
	return parseDepartments(f)
}

func parseDepartments(r io.Reader) ([]routing.Department, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("%w: header: %w", ErrCatalogFile, err)
	}
	nameCol, idCol := -1, -1
	for i, h := range header {
		switch strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))) {
		case "name":
			nameCol = i
		case "department_id":
			idCol = i
		}
	}
	if nameCol < 0 || idCol < 0 {
		return nil, fmt.Errorf("%w: header %v lacks name and department_id", ErrCatalogFile, header)
	}

	var deps []routing.Department
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %w", ErrCatalogFile, line, err)
		}
		if len(rec) <= nameCol || len(rec) <= idCol {
			return nil, fmt.Errorf("%w: line %d has %d fields", ErrCatalogFile, line, len(rec))
		}
		deps = append(deps, routing.Department{ID: rec[idCol], Name: rec[nameCol]})
	}
	return deps, nil
}

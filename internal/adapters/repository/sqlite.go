package repository

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/okian/triage/internal/domain/model"
	"github.com/okian/triage/internal/domain/routing"
	"github.com/okian/triage/pkg/logger"
)

//go:embed sql/schema.sql
var schema string

// SQLiteStore keeps reports and the department table in one SQLite file.
type SQLiteStore struct {
	db        *sql.DB
	maxRecent int
	logger    logger.Logger
}

// OpenSQLite opens (creating if needed) the database at path.
func OpenSQLite(path string, opts ...Option) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema in %s: %w", path, err)
	}
	s := &SQLiteStore{db: db, maxRecent: 100, logger: logger.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Save inserts the report. Saving an existing ID fails.
func (s *SQLiteStore) Save(ctx context.Context, r model.RiskReport) error {
	if r.AssessmentID == "" {
		return ErrMissingID
	}
	body, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO risk_reports
			(assessment_id, risk_score, recommended_department, explainability, integrity_ok, residual, report_json, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.AssessmentID, r.RiskScore, r.RecommendedDepartment, r.Explainability,
		r.IntegrityOK, r.Residual, string(body), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert report %s: %w", r.AssessmentID, err)
	}
	return nil
}

// Get returns one report by assessment ID.
func (s *SQLiteStore) Get(ctx context.Context, id string) (StoredReport, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT assessment_id, integrity_ok, residual, report_json, created_at
		FROM risk_reports WHERE assessment_id = ?`, id)
	out, err := scanReport(row)
	if errors.Is(err, sql.ErrNoRows) {
		return StoredReport{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return out, err
}

// Recent returns up to limit reports, newest first.
func (s *SQLiteStore) Recent(ctx context.Context, limit int) ([]StoredReport, error) {
	if limit <= 0 || limit > s.maxRecent {
		return nil, fmt.Errorf("%w: %d (max %d)", ErrInvalidLimit, limit, s.maxRecent)
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT assessment_id, integrity_ok, residual, report_json, created_at
		FROM risk_reports ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent reports: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []StoredReport
	for rows.Next() {
		r, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanReport(sc scanner) (StoredReport, error) {
	var (
		id, body  string
		ok        bool
		residual  float64
		createdAt time.Time
	)
	if err := sc.Scan(&id, &ok, &residual, &body, &createdAt); err != nil {
		return StoredReport{}, err
	}
	var r model.RiskReport
	if err := json.Unmarshal([]byte(body), &r); err != nil {
		return StoredReport{}, fmt.Errorf("decode report %s: %w", id, err)
	}
	r.AssessmentID, r.IntegrityOK, r.Residual = id, ok, residual
	return StoredReport{Report: r, CreatedAt: createdAt}, nil
}

// LoadCatalog builds a catalog from the departments table.
func (s *SQLiteStore) LoadCatalog(ctx context.Context) (*routing.Catalog, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT department_id, name FROM departments`)
	if err != nil {
		return nil, fmt.Errorf("query departments: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var deps []routing.Department
	for rows.Next() {
		var d routing.Department
		if err := rows.Scan(&d.ID, &d.Name); err != nil {
			return nil, fmt.Errorf("scan department: %w", err)
		}
		deps = append(deps, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return routing.NewCatalog(deps)
}

// ReplaceDepartments atomically replaces the departments table.
func (s *SQLiteStore) ReplaceDepartments(ctx context.Context, deps []routing.Department) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM departments`); err != nil {
		return fmt.Errorf("clear departments: %w", err)
	}
	for _, d := range deps {
		if _, err := tx.ExecContext(ctx, `INSERT INTO departments (department_id, name) VALUES (?, ?)`, d.ID, d.Name); err != nil {
			return fmt.Errorf("insert department %q: %w", d.Name, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	s.logger.Info(ctx, "departments replaced", logger.Int("count", len(deps)))
	return nil
}

// CountDepartments returns the number of rows in the departments table.
func (s *SQLiteStore) CountDepartments(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM departments`).Scan(&n)
	return n, err
}

package database

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	apperrors "github.com/meetsmatch/swipeclient/internal/errors"
)

// IDSet is a list of candidate ids stored as a JSONB array
type IDSet []string

func (s IDSet) Value() (driver.Value, error) {
	if s == nil {
		return "[]", nil
	}
	data, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	// lib/pq sends []byte as bytea; jsonb needs text.
	return string(data), nil
}

func (s *IDSet) Scan(value interface{}) error {
	if value == nil {
		*s = nil
		return nil
	}

	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, s)
	case string:
		return json.Unmarshal([]byte(v), s)
	default:
		return fmt.Errorf("cannot scan %T into IDSet", value)
	}
}

// DecisionSet is one row of decision_sets
type DecisionSet struct {
	StorageKey   string    `json:"storage_key" db:"storage_key"`
	CandidateIDs IDSet     `json:"candidate_ids" db:"candidate_ids"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// Execer is satisfied by *sql.DB and *sql.Tx
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

type decisionQueries struct {
	load   string
	save   string
	delete string
}

var postgresQueries = decisionQueries{
	load: `SELECT candidate_ids FROM decision_sets WHERE storage_key = $1`,
	save: `
		INSERT INTO decision_sets (storage_key, candidate_ids, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (storage_key)
		DO UPDATE SET candidate_ids = EXCLUDED.candidate_ids, updated_at = EXCLUDED.updated_at
	`,
	delete: `DELETE FROM decision_sets WHERE storage_key = $1`,
}

var sqliteQueries = decisionQueries{
	load: `SELECT candidate_ids FROM decision_sets WHERE storage_key = ?`,
	save: `
		INSERT INTO decision_sets (storage_key, candidate_ids, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT (storage_key)
		DO UPDATE SET candidate_ids = excluded.candidate_ids, updated_at = excluded.updated_at
	`,
	delete: `DELETE FROM decision_sets WHERE storage_key = ?`,
}

// DecisionRepository persists decision sets in Postgres or SQLite
type DecisionRepository struct {
	db      Execer
	queries decisionQueries
}

// NewDecisionRepository stores decision sets in Postgres
func NewDecisionRepository(db Execer) *DecisionRepository {
	return &DecisionRepository{db: db, queries: postgresQueries}
}

// NewSQLiteDecisionRepository stores decision sets in a database from OpenSQLite
func NewSQLiteDecisionRepository(db Execer) *DecisionRepository {
	return &DecisionRepository{db: db, queries: sqliteQueries}
}

// LoadIDs returns the ids stored at key, or nil if there is no row
func (r *DecisionRepository) LoadIDs(ctx context.Context, key string) ([]string, error) {
	var set IDSet
	err := r.db.QueryRowContext(ctx, r.queries.load, key).Scan(&set)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, apperrors.NewDatabaseError("load_ids", err)
	}
	return set, nil
}

// SaveIDs upserts the ids at key
func (r *DecisionRepository) SaveIDs(ctx context.Context, key string, ids []string) error {
	_, err := r.db.ExecContext(ctx, r.queries.save, key, IDSet(ids), time.Now().UTC())
	if err != nil {
		return apperrors.NewDatabaseError("save_ids", err)
	}
	return nil
}

// Delete removes the rows for keys
func (r *DecisionRepository) Delete(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		if _, err := r.db.ExecContext(ctx, r.queries.delete, key); err != nil {
			return apperrors.NewDatabaseError("delete", err)
		}
	}
	return nil
}

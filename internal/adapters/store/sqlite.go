package store

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ahouse2/co-counsel-nexus-sub001/internal/core"
	_ "modernc.org/sqlite"
)

//go:embed migrations/001_initial_schema.sql
var migrationV1 string

// SQLiteStore implements core.ResultStore with SQLite storage.
type SQLiteStore struct {
	dbPath string
	db     *sql.DB // write connection
	readDB *sql.DB // read-only connection
}

// NewSQLiteStore opens (creating if needed) a result database at dbPath.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	s := &SQLiteStore{dbPath: dbPath}

	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("creating state directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening write database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)
	s.db = db

	readDB, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(1000)")
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("opening read database: %w", err)
	}
	readDB.SetMaxOpenConns(10)
	readDB.SetMaxIdleConns(5)
	readDB.SetConnMaxLifetime(5 * time.Minute)
	s.readDB = readDB

	if err := s.migrate(); err != nil {
		_ = db.Close()
		_ = readDB.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) migrate() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		applied_at TEXT NOT NULL
	)`)
	if err != nil {
		return fmt.Errorf("creating migrations table: %w", err)
	}

	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("reading schema version: %w", err)
	}

	if currentVersion < 1 {
		if _, err := s.db.Exec(migrationV1); err != nil {
			return fmt.Errorf("applying migration 1: %w", err)
		}
		if _, err := s.db.Exec(
			"INSERT INTO schema_migrations (version, applied_at) VALUES (?, ?)",
			1, time.Now().UTC().Format(time.RFC3339),
		); err != nil {
			return fmt.Errorf("recording migration 1: %w", err)
		}
	}

	return nil
}

// Write persists one consensus result.
func (s *SQLiteStore) Write(ctx context.Context, result *core.ConsensusResult) error {
	if result == nil {
		return core.ErrStore(fmt.Errorf("nil result"))
	}

	output, err := json.Marshal(result.FinalOutput)
	if err != nil {
		return core.ErrStore(fmt.Errorf("encoding final output: %w", err))
	}
	participating, err := json.Marshal(result.ParticipatingAgents)
	if err != nil {
		return core.ErrStore(fmt.Errorf("encoding participating agents: %w", err))
	}
	dissenting, err := json.Marshal(result.DissentingAgents)
	if err != nil {
		return core.ErrStore(fmt.Errorf("encoding dissenting agents: %w", err))
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO consensus_results
			(id, swarm_name, case_id, consensus_type, final_output, confidence,
			 participating_agents, dissenting_agents, iterations, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		result.ID, result.SwarmName, result.CaseID, result.ConsensusType,
		string(output), result.Confidence, string(participating), string(dissenting),
		result.Iterations, result.Timestamp.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return core.ErrStore(err).WithDetail("result_id", result.ID)
	}
	return nil
}

// Recent returns up to limit results, newest first. An empty caseID
// returns results across all cases.
func (s *SQLiteStore) Recent(ctx context.Context, caseID string, limit int) ([]*core.ConsensusResult, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, swarm_name, case_id, consensus_type, final_output, confidence,
		       participating_agents, dissenting_agents, iterations, created_at
		FROM consensus_results`
	args := []any{}
	if caseID != "" {
		query += " WHERE case_id = ?"
		args = append(args, caseID)
	}
	query += " ORDER BY created_at DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.readDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, core.ErrStoreRead(err)
	}
	defer rows.Close()

	var results []*core.ConsensusResult
	for rows.Next() {
		var (
			r             core.ConsensusResult
			output        string
			participating string
			dissenting    string
			createdAt     string
		)
		if err := rows.Scan(
			&r.ID, &r.SwarmName, &r.CaseID, &r.ConsensusType, &output,
			&r.Confidence, &participating, &dissenting, &r.Iterations, &createdAt,
		); err != nil {
			return nil, core.ErrStoreRead(fmt.Errorf("scanning result row: %w", err))
		}
		if err := json.Unmarshal([]byte(output), &r.FinalOutput); err != nil {
			return nil, core.ErrStoreRead(fmt.Errorf("decoding final output: %w", err)).WithDetail("result_id", r.ID)
		}
		if err := json.Unmarshal([]byte(participating), &r.ParticipatingAgents); err != nil {
			return nil, core.ErrStoreRead(fmt.Errorf("decoding participating agents: %w", err))
		}
		if err := json.Unmarshal([]byte(dissenting), &r.DissentingAgents); err != nil {
			return nil, core.ErrStoreRead(fmt.Errorf("decoding dissenting agents: %w", err))
		}
		if t, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
			r.Timestamp = t
		}
		results = append(results, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, core.ErrStoreRead(err)
	}

	return results, nil
}

// Close releases both database connections.
func (s *SQLiteStore) Close() error {
	var firstErr error
	if err := s.db.Close(); err != nil {
		firstErr = err
	}
	if err := s.readDB.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

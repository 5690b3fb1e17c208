package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/boristopalov/irrigation/pkg/agent"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS policies (
	seq          INTEGER PRIMARY KEY AUTOINCREMENT,
	version_id   TEXT NOT NULL UNIQUE,
	name         TEXT NOT NULL,
	created_at   TEXT NOT NULL,
	episodes     INTEGER NOT NULL,
	mean_reward  REAL NOT NULL,
	params_json  TEXT
);

CREATE INDEX IF NOT EXISTS policies_name ON policies(name);

CREATE TABLE IF NOT EXISTS q_values (
	version_id   TEXT NOT NULL,
	moisture     INTEGER NOT NULL,
	weather      INTEGER NOT NULL,
	phase        INTEGER NOT NULL,
	plant        INTEGER NOT NULL,
	action       INTEGER NOT NULL,
	value        REAL NOT NULL,
	PRIMARY KEY (version_id, moisture, weather, phase, plant, action),
	FOREIGN KEY (version_id) REFERENCES policies(version_id) ON DELETE CASCADE
);
`

// ErrPolicyNotFound is returned when no version of a named policy exists
var ErrPolicyNotFound = errors.New("policy not found")

// PolicyMeta describes how a Q-table was produced
type PolicyMeta struct {
	Episodes   int
	MeanReward float64
	Params     map[string]float64
}

// PolicyRecord is one saved version of a policy
type PolicyRecord struct {
	VersionID string
	Name      string
	CreatedAt time.Time
	States    int
	PolicyMeta
}

// PolicyStore persists learned Q-tables in SQLite
type PolicyStore struct {
	db *sql.DB
}

// NewStore opens a SQLite database and runs migrations
func NewStore(dbPath string) (*PolicyStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma fk: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &PolicyStore{db: db}, nil
}

func (s *PolicyStore) Close() error {
	return s.db.Close()
}

// SavePolicy stores q as a new version of the named policy and returns its version ID
func (s *PolicyStore) SavePolicy(ctx context.Context, name string, q agent.QTable, meta PolicyMeta) (string, error) {
	if name == "" {
		return "", errors.New("policy name is required")
	}
	paramsJSON, err := json.Marshal(meta.Params)
	if err != nil {
		return "", fmt.Errorf("marshal params: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	id := uuid.New().String()
	_, err = tx.ExecContext(ctx,
		`INSERT INTO policies (version_id, name, created_at, episodes, mean_reward, params_json)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		id, name, time.Now().UTC().Format(time.RFC3339Nano), meta.Episodes, meta.MeanReward, string(paramsJSON),
	)
	if err != nil {
		return "", fmt.Errorf("insert policy: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO q_values (version_id, moisture, weather, phase, plant, action, value)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return "", fmt.Errorf("prepare q_values: %w", err)
	}
	defer stmt.Close()

	for key, values := range q {
		for action, v := range values {
			if _, err := stmt.ExecContext(ctx, id, key.Moisture, key.Weather, key.Phase, key.Plant, action, v); err != nil {
				return "", fmt.Errorf("insert q value: %w", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit: %w", err)
	}
	return id, nil
}

// LoadPolicy returns the most recently saved version of the named policy
func (s *PolicyStore) LoadPolicy(ctx context.Context, name string) (agent.QTable, PolicyRecord, error) {
	var versionID string
	err := s.db.QueryRowContext(ctx,
		`SELECT version_id FROM policies WHERE name = ? ORDER BY seq DESC LIMIT 1`, name,
	).Scan(&versionID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, PolicyRecord{}, fmt.Errorf("%s: %w", name, ErrPolicyNotFound)
	}
	if err != nil {
		return nil, PolicyRecord{}, fmt.Errorf("find policy %s: %w", name, err)
	}
	return s.LoadVersion(ctx, versionID)
}

// LoadVersion returns a specific policy version
func (s *PolicyStore) LoadVersion(ctx context.Context, versionID string) (agent.QTable, PolicyRecord, error) {
	rec, err := s.getRecord(ctx, versionID)
	if err != nil {
		return nil, PolicyRecord{}, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT moisture, weather, phase, plant, action, value FROM q_values WHERE version_id = ?`, versionID)
	if err != nil {
		return nil, PolicyRecord{}, fmt.Errorf("query q_values: %w", err)
	}
	defer rows.Close()

	q := make(agent.QTable)
	for rows.Next() {
		var key agent.StateKey
		var action int
		var v float64
		if err := rows.Scan(&key.Moisture, &key.Weather, &key.Phase, &key.Plant, &action, &v); err != nil {
			return nil, PolicyRecord{}, fmt.Errorf("scan q value: %w", err)
		}
		if action < 0 || action >= len(agent.QValues{}) {
			return nil, PolicyRecord{}, fmt.Errorf("stored action %d out of range", action)
		}
		values := q[key]
		values[action] = v
		q[key] = values
	}
	if err := rows.Err(); err != nil {
		return nil, PolicyRecord{}, fmt.Errorf("iterate q_values: %w", err)
	}

	rec.States = len(q)
	return q, rec, nil
}

// ListPolicies returns the latest version of every stored policy, newest first
func (s *PolicyStore) ListPolicies(ctx context.Context) ([]PolicyRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT p.version_id, p.name, p.created_at, p.episodes, p.mean_reward, p.params_json,
		        (SELECT COUNT(DISTINCT moisture || ':' || weather || ':' || phase || ':' || plant)
		           FROM q_values q WHERE q.version_id = p.version_id)
		 FROM policies p
		 WHERE p.seq = (SELECT MAX(seq) FROM policies WHERE name = p.name)
		 ORDER BY p.seq DESC`)
	if err != nil {
		return nil, fmt.Errorf("list policies: %w", err)
	}
	defer rows.Close()

	var out []PolicyRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func (s *PolicyStore) getRecord(ctx context.Context, versionID string) (PolicyRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT version_id, name, created_at, episodes, mean_reward, params_json, 0
		 FROM policies WHERE version_id = ?`, versionID)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return PolicyRecord{}, fmt.Errorf("version %s: %w", versionID, ErrPolicyNotFound)
	}
	return rec, err
}

func scanRecord(row scanner) (PolicyRecord, error) {
	var rec PolicyRecord
	var createdStr string
	var paramsJSON sql.NullString
	err := row.Scan(&rec.VersionID, &rec.Name, &createdStr, &rec.Episodes, &rec.MeanReward, &paramsJSON, &rec.States)
	if err != nil {
		return PolicyRecord{}, fmt.Errorf("scan policy: %w", err)
	}
	rec.CreatedAt, err = time.Parse(time.RFC3339Nano, createdStr)
	if err != nil {
		return PolicyRecord{}, fmt.Errorf("parse created_at of %s: %w", rec.VersionID, err)
	}
	if paramsJSON.Valid && paramsJSON.String != "" {
		if err := json.Unmarshal([]byte(paramsJSON.String), &rec.Params); err != nil {
			return PolicyRecord{}, fmt.Errorf("unmarshal params: %w", err)
		}
	}
	return rec, nil
}

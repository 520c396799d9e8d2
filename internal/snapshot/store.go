package snapshot

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/spigell/job-recommender/internal/dataset"
	"github.com/spigell/job-recommender/internal/similarity"
)

// Fixed width keeps created_at lexically sortable.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

var schema = []string{
	`CREATE TABLE IF NOT EXISTS snapshots (
		id         TEXT PRIMARY KEY,
		created_at TEXT NOT NULL,
		weights    TEXT NOT NULL,
		rows       INTEGER NOT NULL,
		cols       INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS snapshot_users (
		snapshot_id TEXT NOT NULL,
		position    INTEGER NOT NULL,
		payload     TEXT NOT NULL,
		PRIMARY KEY (snapshot_id, position)
	)`,
	`CREATE TABLE IF NOT EXISTS snapshot_jobs (
		snapshot_id TEXT NOT NULL,
		position    INTEGER NOT NULL,
		payload     TEXT NOT NULL,
		PRIMARY KEY (snapshot_id, position)
	)`,
	`CREATE TABLE IF NOT EXISTS snapshot_rows (
		snapshot_id TEXT NOT NULL,
		position    INTEGER NOT NULL,
		data        BLOB NOT NULL,
		PRIMARY KEY (snapshot_id, position)
	)`,
}

// Store persists snapshots in a SQLite database.
type Store struct {
	db     *sql.DB
	logger *zap.Logger
}

// Open opens (or creates) the snapshot database at path.
func Open(ctx context.Context, path string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("snapshot store: mkdir %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("snapshot store: open db: %w", err)
	}
	db.SetMaxOpenConns(1)

	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("snapshot store: init schema: %w", err)
		}
	}

	return &Store{db: db, logger: logger}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Save writes the snapshot in a single transaction. A failed save leaves
// previously stored snapshots untouched.
func (s *Store) Save(ctx context.Context, snap *Snapshot) (err error) {
	if err := snap.Validate(); err != nil {
		return err
	}

	weights, err := json.Marshal(snap.Weights)
	if err != nil {
		return fmt.Errorf("encode weights: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("snapshot store: begin: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx,
		`INSERT INTO snapshots (id, created_at, weights, rows, cols) VALUES (?, ?, ?, ?, ?)`,
		snap.ID, snap.CreatedAt.UTC().Format(timeLayout), string(weights), snap.Matrix.Rows, snap.Matrix.Cols,
	); err != nil {
		return fmt.Errorf("snapshot store: insert header: %w", err)
	}

	if err = insertPayloads(ctx, tx, "snapshot_users", snap.ID, snap.Users.Items); err != nil {
		return err
	}
	if err = insertPayloads(ctx, tx, "snapshot_jobs", snap.ID, snap.Jobs.Items); err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO snapshot_rows (snapshot_id, position, data) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("snapshot store: prepare rows: %w", err)
	}
	defer stmt.Close()

	for row := 0; row < snap.Matrix.Rows; row++ {
		if _, err = stmt.ExecContext(ctx, snap.ID, row, encodeRow(snap.Matrix.Row(row))); err != nil {
			return fmt.Errorf("snapshot store: insert row %d: %w", row, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("snapshot store: commit: %w", err)
	}

	s.logger.Info("snapshot saved",
		zap.String("snapshot_id", snap.ID),
		zap.Int("users", snap.Users.Len()),
		zap.Int("jobs", snap.Jobs.Len()),
	)
	return nil
}

func insertPayloads[T any](ctx context.Context, tx *sql.Tx, table, id string, items []T) error {
	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(`INSERT INTO %s (snapshot_id, position, payload) VALUES (?, ?, ?)`, table))
	if err != nil {
		return fmt.Errorf("snapshot store: prepare %s: %w", table, err)
	}
	defer stmt.Close()

	for pos, item := range items {
		payload, err := json.Marshal(item)
		if err != nil {
			return fmt.Errorf("encode %s position %d: %w", table, pos, err)
		}
		if _, err := stmt.ExecContext(ctx, id, pos, string(payload)); err != nil {
			return fmt.Errorf("snapshot store: insert %s position %d: %w", table, pos, err)
		}
	}
	return nil
}

// Load reads a snapshot by id with both orderings exactly as saved.
func (s *Store) Load(ctx context.Context, id string) (*Snapshot, error) {
	var (
		createdAt string
		weights   string
		rows      int
		cols      int
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT created_at, weights, rows, cols FROM snapshots WHERE id = ?`, id,
	).Scan(&createdAt, &weights, &rows, &cols)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrSnapshotNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("snapshot store: read header: %w", err)
	}

	snap := &Snapshot{ID: id}
	if snap.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
		return nil, fmt.Errorf("snapshot %s: parse created_at: %w", id, err)
	}
	if err := json.Unmarshal([]byte(weights), &snap.Weights); err != nil {
		return nil, fmt.Errorf("snapshot %s: decode weights: %w", id, err)
	}

	users, err := loadPayloads[dataset.UserProfile](ctx, s.db, "snapshot_users", id)
	if err != nil {
		return nil, err
	}
	jobs, err := loadPayloads[dataset.JobPosting](ctx, s.db, "snapshot_jobs", id)
	if err != nil {
		return nil, err
	}
	snap.Users = &dataset.Users{Items: users}
	snap.Jobs = &dataset.Jobs{Items: jobs}

	if snap.Matrix, err = s.loadMatrix(ctx, id, rows, cols); err != nil {
		return nil, err
	}

	if err := snap.Validate(); err != nil {
		return nil, err
	}
	return snap, nil
}

// Latest loads the most recently created snapshot.
func (s *Store) Latest(ctx context.Context) (*Snapshot, error) {
	var id string
	err := s.db.QueryRowContext(ctx,
		`SELECT id FROM snapshots ORDER BY created_at DESC, rowid DESC LIMIT 1`,
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSnapshotNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("snapshot store: find latest: %w", err)
	}
	return s.Load(ctx, id)
}

// List returns summaries of all snapshots, newest first.
func (s *Store) List(ctx context.Context) ([]Summary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, created_at, weights, rows, cols FROM snapshots ORDER BY created_at DESC, rowid DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("snapshot store: list: %w", err)
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		var (
			summary   Summary
			createdAt string
			weights   string
		)
		if err := rows.Scan(&summary.ID, &createdAt, &weights, &summary.Users, &summary.Jobs); err != nil {
			return nil, fmt.Errorf("snapshot store: scan: %w", err)
		}
		if summary.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
			return nil, fmt.Errorf("snapshot %s: parse created_at: %w", summary.ID, err)
		}
		if err := json.Unmarshal([]byte(weights), &summary.Weights); err != nil {
			return nil, fmt.Errorf("snapshot %s: decode weights: %w", summary.ID, err)
		}
		out = append(out, summary)
	}
	return out, rows.Err()
}

// Delete removes a snapshot and its payload.
func (s *Store) Delete(ctx context.Context, id string) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("snapshot store: begin: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx, `DELETE FROM snapshots WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("snapshot store: delete header: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		err = fmt.Errorf("%w: %s", ErrSnapshotNotFound, id)
		return err
	}

	for _, table := range []string{"snapshot_users", "snapshot_jobs", "snapshot_rows"} {
		if _, err = tx.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE snapshot_id = ?`, table), id); err != nil {
			return fmt.Errorf("snapshot store: delete %s: %w", table, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("snapshot store: commit: %w", err)
	}
	s.logger.Info("snapshot deleted", zap.String("snapshot_id", id))
	return nil
}

func loadPayloads[T any](ctx context.Context, db *sql.DB, table, id string) ([]*T, error) {
	rows, err := db.QueryContext(ctx,
		fmt.Sprintf(`SELECT position, payload FROM %s WHERE snapshot_id = ? ORDER BY position`, table), id,
	)
	if err != nil {
		return nil, fmt.Errorf("snapshot store: read %s: %w", table, err)
	}
	defer rows.Close()

	var out []*T
	for rows.Next() {
		var (
			pos     int
			payload string
		)
		if err := rows.Scan(&pos, &payload); err != nil {
			return nil, fmt.Errorf("snapshot store: scan %s: %w", table, err)
		}
		if pos != len(out) {
			return nil, dataset.Shapef("snapshot %s: %s has a gap at position %d", id, table, len(out))
		}
		item := new(T)
		if err := json.Unmarshal([]byte(payload), item); err != nil {
			return nil, fmt.Errorf("snapshot %s: decode %s position %d: %w", id, table, pos, err)
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

func (s *Store) loadMatrix(ctx context.Context, id string, rowsCount, cols int) (*similarity.Matrix, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT position, data FROM snapshot_rows WHERE snapshot_id = ? ORDER BY position`, id,
	)
	if err != nil {
		return nil, fmt.Errorf("snapshot store: read matrix: %w", err)
	}
	defer rows.Close()

	m := similarity.NewMatrix(rowsCount, cols)
	next := 0
	for rows.Next() {
		var (
			pos  int
			data []byte
		)
		if err := rows.Scan(&pos, &data); err != nil {
			return nil, fmt.Errorf("snapshot store: scan matrix: %w", err)
		}
		if pos != next || pos >= rowsCount {
			return nil, dataset.Shapef("snapshot %s: unexpected matrix row %d", id, pos)
		}
		if err := decodeRow(data, m.Row(pos)); err != nil {
			return nil, fmt.Errorf("snapshot %s: row %d: %w", id, pos, err)
		}
		next++
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if next != rowsCount {
		return nil, dataset.Shapef("snapshot %s: matrix has %d rows, expected %d", id, next, rowsCount)
	}
	return m, nil
}

func encodeRow(row []float64) []byte {
	buf := make([]byte, 8*len(row))
	for i, v := range row {
		binary.LittleEndian.PutUint64(buf[i*8:], math.Float64bits(v))
	}
	return buf
}

func decodeRow(data []byte, dst []float64) error {
	if len(data) != 8*len(dst) {
		return dataset.Shapef("row holds %d bytes, expected %d", len(data), 8*len(dst))
	}
	for i := range dst {
		dst[i] = math.Float64frombits(binary.LittleEndian.Uint64(data[i*8:]))
	}
	return nil
}

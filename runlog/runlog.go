// Package runlog keeps a local SQLite history of training and evaluation
// runs so results can be compared across configurations.
package runlog

import (
	"database/sql"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"k8s.io/klog/v2"
)

// Record is one pipeline run. Losses are in scaled units, RMSE and MAE in
// original units. NaN is stored as NULL and read back as NaN.
type Record struct {
	ID        int64
	StartedAt time.Time
	Command   string // "train" or "evaluate"
	DataPath  string
	TargetCol string
	ModelPath string

	WindowSize int
	StepAhead  int
	Epochs     int

	ValidLoss    float64
	TestLoss     float64
	TestRMSE     float64
	TestMAE      float64
	SkippedTrain int
	SkippedEval  int

	Duration time.Duration
	Config   string // effective configuration as YAML
}

// Store persists run records.
type Store interface {
	Insert(rec *Record) (int64, error)
	Recent(limit int) ([]Record, error)
	Close() error
}

// SQLiteStore implements Store on a SQLite file.
type SQLiteStore struct {
	db       *sql.DB
	dbPath   string
	mutex    sync.Mutex
	prepared map[string]*sql.Stmt
}

var _ Store = (*SQLiteStore)(nil)

// Open opens (creating if needed) the run log at dbPath.
func Open(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal=WAL&_sync=NORMAL")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	s := &SQLiteStore{
		db:       db,
		dbPath:   dbPath,
		prepared: make(map[string]*sql.Stmt),
	}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize database schema: %w", err)
	}
	if err := s.prepareStatements(); err != nil {
		db.Close()
		return nil, fmt.Errorf("prepare statements: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		started_at DATETIME NOT NULL,
		command TEXT NOT NULL,
		data_path TEXT,
		target_col TEXT,
		model_path TEXT,
		window_size INTEGER,
		step_ahead INTEGER,
		epochs INTEGER,
		valid_loss REAL,
		test_loss REAL,
		test_rmse REAL,
		test_mae REAL,
		skipped_train INTEGER,
		skipped_eval INTEGER,
		duration_ms INTEGER,
		config TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteStore) prepareStatements() error {
	statements := map[string]string{
		"insert": `
			INSERT INTO runs (
				started_at, command, data_path, target_col, model_path,
				window_size, step_ahead, epochs,
				valid_loss, test_loss, test_rmse, test_mae,
				skipped_train, skipped_eval, duration_ms, config
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
		"recent": `
			SELECT id, started_at, command, data_path, target_col, model_path,
				   window_size, step_ahead, epochs,
				   valid_loss, test_loss, test_rmse, test_mae,
				   skipped_train, skipped_eval, duration_ms, config
			FROM runs
			ORDER BY id DESC
			LIMIT ?
		`,
	}
	for name, query := range statements {
		stmt, err := s.db.Prepare(query)
		if err != nil {
			return fmt.Errorf("prepare statement %s: %w", name, err)
		}
		s.prepared[name] = stmt
	}
	return nil
}

// Insert stores rec and returns its id.
func (s *SQLiteStore) Insert(rec *Record) (int64, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	res, err := s.prepared["insert"].Exec(
		rec.StartedAt.UTC(),
		rec.Command,
		rec.DataPath,
		rec.TargetCol,
		rec.ModelPath,
		rec.WindowSize,
		rec.StepAhead,
		rec.Epochs,
		nullable(rec.ValidLoss),
		nullable(rec.TestLoss),
		nullable(rec.TestRMSE),
		nullable(rec.TestMAE),
		rec.SkippedTrain,
		rec.SkippedEval,
		rec.Duration.Milliseconds(),
		rec.Config,
	)
	if err != nil {
		klog.V(2).InfoS("Failed to store run record", "error", err, "command", rec.Command)
		return 0, fmt.Errorf("store run: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	klog.V(3).InfoS("Stored run record", "id", id, "command", rec.Command)
	return id, nil
}

// Recent returns up to limit runs, newest first.
func (s *SQLiteStore) Recent(limit int) ([]Record, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	rows, err := s.prepared["recent"].Query(limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var (
			r                       Record
			dataPath, target, model sql.NullString
			config                  sql.NullString
			valid, test, rmse, mae  sql.NullFloat64
			durationMs              int64
		)
		if err := rows.Scan(
			&r.ID, &r.StartedAt, &r.Command, &dataPath, &target, &model,
			&r.WindowSize, &r.StepAhead, &r.Epochs,
			&valid, &test, &rmse, &mae,
			&r.SkippedTrain, &r.SkippedEval, &durationMs, &config,
		); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.DataPath = dataPath.String
		r.TargetCol = target.String
		r.ModelPath = model.String
		r.Config = config.String
		r.ValidLoss = fromNullable(valid)
		r.TestLoss = fromNullable(test)
		r.TestRMSE = fromNullable(rmse)
		r.TestMAE = fromNullable(mae)
		r.Duration = time.Duration(durationMs) * time.Millisecond
		out = append(out, r)
	}
	return out, rows.Err()
}

// Close releases the prepared statements and the database.
func (s *SQLiteStore) Close() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	for _, stmt := range s.prepared {
		stmt.Close()
	}
	return s.db.Close()
}

func nullable(v float64) any {
	if math.IsNaN(v) {
		return nil
	}
	return v
}

func fromNullable(v sql.NullFloat64) float64 {
	if !v.Valid {
		return math.NaN()
	}
	return v.Float64
}

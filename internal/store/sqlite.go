// Package store provides data persistence implementations.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	apperrors "kiwoom-trader/internal/errors"
	"kiwoom-trader/internal/models"
)

// SQLiteStore implements DataStore using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite-based data store, creating the parent
// directory if needed.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("%w: creating %s: %v", apperrors.ErrDatabaseError, dir, err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(time.Hour)

	store := &SQLiteStore{db: db}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// initSchema creates all required tables and indexes.
func (s *SQLiteStore) initSchema() error {
	schema := `
	-- Strategy runs
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		strategy TEXT NOT NULL,
		dry_run INTEGER NOT NULL DEFAULT 1,
		status TEXT NOT NULL,
		error TEXT,
		started_at DATETIME NOT NULL,
		finished_at DATETIME
	);

	-- Order attempts, accepted or not
	CREATE TABLE IF NOT EXISTS orders (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT,
		order_no TEXT,
		strategy TEXT,
		stock_code TEXT NOT NULL,
		exchange TEXT NOT NULL,
		side TEXT NOT NULL,
		order_type TEXT NOT NULL,
		quantity INTEGER NOT NULL,
		price INTEGER NOT NULL,
		dry_run INTEGER NOT NULL DEFAULT 1,
		status TEXT NOT NULL,
		message TEXT,
		placed_at DATETIME NOT NULL
	);

	-- After-hours ranking candidates
	CREATE TABLE IF NOT EXISTS scans (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT,
		stock_code TEXT NOT NULL,
		name TEXT,
		change_rate TEXT NOT NULL,
		price INTEGER NOT NULL,
		min_rate REAL NOT NULL,
		scanned_at DATETIME NOT NULL
	);

	-- Daily candles
	CREATE TABLE IF NOT EXISTS candles (
		stock_code TEXT NOT NULL,
		date DATETIME NOT NULL,
		open INTEGER NOT NULL,
		high INTEGER NOT NULL,
		low INTEGER NOT NULL,
		close INTEGER NOT NULL,
		volume INTEGER NOT NULL,
		value INTEGER NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (stock_code, date)
	);

	CREATE INDEX IF NOT EXISTS idx_runs_strategy ON runs(strategy);
	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);
	CREATE INDEX IF NOT EXISTS idx_orders_run ON orders(run_id);
	CREATE INDEX IF NOT EXISTS idx_orders_code ON orders(stock_code);
	CREATE INDEX IF NOT EXISTS idx_scans_run ON scans(run_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ============================================================================
// Runs Methods
// ============================================================================

// StartRun records a run in the RUNNING state.
func (s *SQLiteStore) StartRun(ctx context.Context, run *models.Run) error {
	if run.Status == "" {
		run.Status = models.RunRunning
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, strategy, dry_run, status, error, started_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, run.ID, run.Strategy, boolToInt(run.DryRun), run.Status, run.Error, run.StartedAt)
	if err != nil {
		return fmt.Errorf("%w: failed to start run: %v", apperrors.ErrDatabaseError, err)
	}
	return nil
}

// FinishRun stores the final status of a run.
func (s *SQLiteStore) FinishRun(ctx context.Context, runID string, status models.RunStatus, errMsg string, finishedAt time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE runs SET status = ?, error = ?, finished_at = ? WHERE id = ?
	`, status, errMsg, finishedAt, runID)
	if err != nil {
		return fmt.Errorf("%w: failed to finish run: %v", apperrors.ErrDatabaseError, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: run %s", apperrors.ErrDataNotFound, runID)
	}
	return nil
}

// GetRun retrieves a run by ID.
func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*models.Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, strategy, dry_run, status, error, started_at, finished_at
		FROM runs WHERE id = ?
	`, runID)

	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: run %s", apperrors.ErrDataNotFound, runID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return run, nil
}

// GetRuns retrieves runs, newest first.
func (s *SQLiteStore) GetRuns(ctx context.Context, filter RunFilter) ([]models.Run, error) {
	query := "SELECT id, strategy, dry_run, status, error, started_at, finished_at FROM runs WHERE 1=1"
	args := []interface{}{}

	if filter.Strategy != "" {
		query += " AND strategy = ?"
		args = append(args, filter.Strategy)
	}
	if filter.Status != "" {
		query += " AND status = ?"
		args = append(args, filter.Status)
	}
	if !filter.StartDate.IsZero() {
		query += " AND started_at >= ?"
		args = append(args, filter.StartDate)
	}
	if !filter.EndDate.IsZero() {
		query += " AND started_at <= ?"
		args = append(args, filter.EndDate)
	}

	query += " ORDER BY started_at DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []models.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, *run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating runs: %w", err)
	}

	return runs, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(row rowScanner) (*models.Run, error) {
	var (
		r        models.Run
		dryRun   int
		errMsg   sql.NullString
		finished sql.NullTime
	)
	if err := row.Scan(&r.ID, &r.Strategy, &dryRun, &r.Status, &errMsg, &r.StartedAt, &finished); err != nil {
		return nil, err
	}
	r.DryRun = dryRun != 0
	r.Error = errMsg.String
	if finished.Valid {
		r.FinishedAt = finished.Time
	}
	return &r, nil
}

// ============================================================================
// Orders Methods
// ============================================================================

// LogOrder journals an order attempt and sets record.ID.
func (s *SQLiteStore) LogOrder(ctx context.Context, record *models.OrderRecord) error {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO orders (run_id, order_no, strategy, stock_code, exchange, side, order_type, quantity, price, dry_run, status, message, placed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, record.RunID, record.OrderNumber, record.Strategy, record.StockCode, record.Exchange, record.Side, record.Type,
		record.Quantity, record.Price, boolToInt(record.DryRun), record.Status, record.Message, record.PlacedAt)
	if err != nil {
		return fmt.Errorf("%w: failed to log order: %v", apperrors.ErrDatabaseError, err)
	}
	if id, err := res.LastInsertId(); err == nil {
		record.ID = id
	}
	return nil
}

// GetOrders retrieves journaled orders, newest first.
func (s *SQLiteStore) GetOrders(ctx context.Context, filter OrderFilter) ([]models.OrderRecord, error) {
	query := `SELECT id, run_id, order_no, strategy, stock_code, exchange, side, order_type, quantity, price, dry_run, status, message, placed_at
		FROM orders WHERE 1=1`
	args := []interface{}{}

	if filter.RunID != "" {
		query += " AND run_id = ?"
		args = append(args, filter.RunID)
	}
	if filter.Strategy != "" {
		query += " AND strategy = ?"
		args = append(args, filter.Strategy)
	}
	if filter.StockCode != "" {
		query += " AND stock_code = ?"
		args = append(args, filter.StockCode)
	}
	if filter.Side != "" {
		query += " AND side = ?"
		args = append(args, filter.Side)
	}
	if filter.DryRun != nil {
		query += " AND dry_run = ?"
		args = append(args, boolToInt(*filter.DryRun))
	}

	query += " ORDER BY placed_at DESC, id DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	var records []models.OrderRecord
	for rows.Next() {
		var (
			o                     models.OrderRecord
			runID, orderNo, strat sql.NullString
			message               sql.NullString
			dryRun                int
		)
		if err := rows.Scan(&o.ID, &runID, &orderNo, &strat, &o.StockCode, &o.Exchange, &o.Side, &o.Type,
			&o.Quantity, &o.Price, &dryRun, &o.Status, &message, &o.PlacedAt); err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		o.RunID = runID.String
		o.OrderNumber = orderNo.String
		o.Strategy = strat.String
		o.Message = message.String
		o.DryRun = dryRun != 0
		records = append(records, o)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating orders: %w", err)
	}

	return records, nil
}

// ============================================================================
// Scans Methods
// ============================================================================

// SaveScan stores the candidates of one ranking scan.
func (s *SQLiteStore) SaveScan(ctx context.Context, records []models.ScanRecord) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO scans (run_id, stock_code, name, change_rate, price, min_rate, scanned_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, r := range records {
		if _, err := stmt.ExecContext(ctx, r.RunID, r.Code, r.Name, r.ChangeRate.String(), r.Price, r.MinRate, r.ScannedAt); err != nil {
			return fmt.Errorf("failed to insert scan: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// GetScans retrieves the candidates recorded for runID in ranking order.
func (s *SQLiteStore) GetScans(ctx context.Context, runID string) ([]models.ScanRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, stock_code, name, change_rate, price, min_rate, scanned_at
		FROM scans WHERE run_id = ?
		ORDER BY id ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query scans: %w", err)
	}
	defer rows.Close()

	var records []models.ScanRecord
	for rows.Next() {
		var (
			r    models.ScanRecord
			run  sql.NullString
			name sql.NullString
			rate string
		)
		if err := rows.Scan(&run, &r.Code, &name, &rate, &r.Price, &r.MinRate, &r.ScannedAt); err != nil {
			return nil, fmt.Errorf("failed to scan scan record: %w", err)
		}
		r.RunID = run.String
		r.Name = name.String
		r.ChangeRate, err = decimal.NewFromString(rate)
		if err != nil {
			return nil, fmt.Errorf("failed to parse change rate %q: %w", rate, err)
		}
		records = append(records, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating scans: %w", err)
	}

	return records, nil
}

// ============================================================================
// Candles Methods
// ============================================================================

// SaveCandles saves daily candles, replacing rows for the same date.
func (s *SQLiteStore) SaveCandles(ctx context.Context, code string, candles []models.Candle) error {
	if len(candles) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO candles (stock_code, date, open, high, low, close, volume, value)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, c := range candles {
		_, err := stmt.ExecContext(ctx, code, c.Date, c.Open, c.High, c.Low, c.Close, c.Volume, c.Value)
		if err != nil {
			return fmt.Errorf("failed to insert candle: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// GetCandles retrieves candles in ascending date order.
func (s *SQLiteStore) GetCandles(ctx context.Context, code string, from, to time.Time) ([]models.Candle, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT date, open, high, low, close, volume, value
		FROM candles
		WHERE stock_code = ? AND date >= ? AND date <= ?
		ORDER BY date ASC
	`, code, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query candles: %w", err)
	}
	defer rows.Close()

	var candles []models.Candle
	for rows.Next() {
		var c models.Candle
		if err := rows.Scan(&c.Date, &c.Open, &c.High, &c.Low, &c.Close, &c.Volume, &c.Value); err != nil {
			return nil, fmt.Errorf("failed to scan candle: %w", err)
		}
		candles = append(candles, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating candles: %w", err)
	}

	return candles, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

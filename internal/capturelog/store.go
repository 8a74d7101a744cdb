package capturelog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"wildcam/internal/config"
	"wildcam/internal/services"
)

// Store persists capture events in SQLite. It is safe for concurrent use by
// the pipeline worker and the dashboard.
type Store struct {
	db   *sql.DB
	path string
}

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

// Open initializes or connects to the capture database named by the config.
// Failures carry services.ErrStoreInit.
func Open(cfg *config.Config) (*Store, error) {
	if cfg == nil {
		return nil, services.Wrap(services.ErrStoreInit, "capturelog", "open", "config is nil", nil)
	}
	return OpenPath(cfg.Paths.DatabasePath)
}

// OpenPath opens the capture database at dbPath, creating it when missing.
func OpenPath(dbPath string) (*Store, error) {
	dbPath = strings.TrimSpace(dbPath)
	if dbPath == "" {
		return nil, services.Wrap(services.ErrStoreInit, "capturelog", "open", "database path is empty", nil)
	}
	if dir := filepath.Dir(dbPath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, services.Wrap(services.ErrStoreInit, "capturelog", "open", "ensure database directory", err)
		}
	}

	// busy_timeout must be set on every pooled connection, so it rides on the DSN.
	db, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, services.Wrap(services.ErrStoreInit, "capturelog", "open", "open sqlite db", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, services.Wrap(services.ErrStoreInit, "capturelog", "open", fmt.Sprintf("apply pragma %q", pragma), execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, services.Wrap(services.ErrStoreInit, "capturelog", "open", "initialize schema", err)
	}
	return store, nil
}

// OpenReadOnly opens an existing capture database without write access. It
// never creates the file or migrates the schema; readers such as the
// standalone viewer and status checks use it.
func OpenReadOnly(dbPath string) (*Store, error) {
	dbPath = strings.TrimSpace(dbPath)
	if dbPath == "" {
		return nil, services.Wrap(services.ErrStoreInit, "capturelog", "open", "database path is empty", nil)
	}
	if _, err := os.Stat(dbPath); err != nil {
		return nil, services.Wrap(services.ErrStoreInit, "capturelog", "open", "capture database not found (start the daemon first)", err)
	}
	db, err := sql.Open("sqlite", "file:"+dbPath+"?mode=ro&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, services.Wrap(services.ErrStoreInit, "capturelog", "open", "open sqlite db read-only", err)
	}
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		_ = db.Close()
		return nil, services.Wrap(services.ErrStoreInit, "capturelog", "open", "read schema version", err)
	}
	if version > schemaVersion {
		_ = db.Close()
		return nil, services.Wrap(services.ErrStoreInit, "capturelog", "open", "check schema version",
			fmt.Errorf("%w: database has version %d, this build understands %d", ErrSchemaMismatch, version, schemaVersion))
	}
	return &Store{db: db, path: dbPath}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

// Insert appends one event and returns its assigned id.
func (s *Store) Insert(ctx context.Context, evt Event) (int64, error) {
	ctx = ensureContext(ctx)
	if strings.TrimSpace(evt.Timestamp) == "" {
		return 0, errors.New("insert capture: timestamp is required")
	}
	if strings.TrimSpace(evt.Classification) == "" {
		return 0, errors.New("insert capture: classification is required")
	}

	var res sql.Result
	err := retryOnBusy(ctx, func() error {
		var execErr error
		res, execErr = s.db.ExecContext(ctx,
			`INSERT INTO captures (timestamp, classification, confidence, video_path, temp, humidity, battery, light_state)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			evt.Timestamp,
			evt.Classification,
			evt.Confidence,
			nullableString(evt.VideoPath),
			nullableFloat(evt.Temp),
			nullableFloat(evt.Humidity),
			nullableInt(evt.Battery),
			nullableInt(evt.LightState),
		)
		return execErr
	})
	if err != nil {
		return 0, fmt.Errorf("insert capture: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert capture: last insert id: %w", err)
	}
	return id, nil
}

const selectColumns = `id, timestamp, classification, confidence, video_path, temp, humidity, battery, light_state`

// List returns events newest first. A non-positive limit returns every row.
func (s *Store) List(ctx context.Context, limit int) ([]Event, error) {
	ctx = ensureContext(ctx)
	query := `SELECT ` + selectColumns + ` FROM captures ORDER BY id DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list captures: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		evt, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, evt)
	}
	return events, rows.Err()
}

// GetByID fetches a single event. It returns nil, nil when no row matches.
func (s *Store) GetByID(ctx context.Context, id int64) (*Event, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx, `SELECT `+selectColumns+` FROM captures WHERE id = ?`, id)
	evt, err := scanEvent(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &evt, nil
}

// Stats summarizes the log by classification.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx, `SELECT classification, COUNT(1) FROM captures GROUP BY classification`)
	if err != nil {
		return Stats{}, fmt.Errorf("capture stats: %w", err)
	}
	defer rows.Close()

	stats := Stats{ByLabel: make(map[string]int)}
	for rows.Next() {
		var label string
		var count int
		if err := rows.Scan(&label, &count); err != nil {
			return Stats{}, err
		}
		stats.ByLabel[label] = count
		stats.Total += count
		if label == FalsePositiveLabel {
			stats.FalsePositives += count
		} else {
			stats.Animals += count
		}
	}
	if err := rows.Err(); err != nil {
		return Stats{}, err
	}

	var last sql.NullString
	if err := s.db.QueryRowContext(ctx, `SELECT timestamp FROM captures ORDER BY id DESC LIMIT 1`).Scan(&last); err != nil && !errors.Is(err, sql.ErrNoRows) {
		return Stats{}, fmt.Errorf("capture stats: last timestamp: %w", err)
	}
	stats.LastTimestamp = last.String
	return stats, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(scanner rowScanner) (Event, error) {
	var (
		evt        Event
		confidence sql.NullFloat64
		videoPath  sql.NullString
		temp       sql.NullFloat64
		humidity   sql.NullFloat64
		battery    sql.NullInt64
		lightState sql.NullInt64
	)
	if err := scanner.Scan(
		&evt.ID,
		&evt.Timestamp,
		&evt.Classification,
		&confidence,
		&videoPath,
		&temp,
		&humidity,
		&battery,
		&lightState,
	); err != nil {
		return Event{}, err
	}
	evt.Confidence = confidence.Float64
	evt.VideoPath = videoPath.String
	if temp.Valid {
		evt.Temp = &temp.Float64
	}
	if humidity.Valid {
		evt.Humidity = &humidity.Float64
	}
	if battery.Valid {
		evt.Battery = &battery.Int64
	}
	if lightState.Valid {
		evt.LightState = &lightState.Int64
	}
	return evt, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableFloat(value *float64) any {
	if value == nil {
		return nil
	}
	return *value
}

func nullableInt(value *int64) any {
	if value == nil {
		return nil
	}
	return *value
}

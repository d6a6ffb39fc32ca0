package storage

import (
	"context"
	"database/sql"
	"database/sql/driver"
	stderrors "errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/JamesPrial/bed-occupancy-core/pkg/config"
	"github.com/JamesPrial/bed-occupancy-core/pkg/errors"
	"github.com/JamesPrial/bed-occupancy-core/pkg/logging"
	"github.com/JamesPrial/bed-occupancy-core/pkg/occupancy"
)

// sqliteDateFormat is fixed width so lexicographic order equals time order
const sqliteDateFormat = "2006-01-02T15:04:05.000Z"

const recordColumns = `id, hospital_id, ward_id, ward_type, bed_count, occupied_beds, record_date`

type SqliteBackend struct {
	db      *sql.DB
	path    string
	writeMu sync.Mutex
	logger  *slog.Logger
}

// NewSqliteBackend opens (creating if needed) the database file and
// initializes the schema. Opening an existing file keeps its records.
func NewSqliteBackend(ctx context.Context, cfg config.SqliteSettings) (*SqliteBackend, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, errors.Configuration("sqlite path is required")
	}

	if dir := filepath.Dir(cfg.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.Wrapf(err, errors.ErrCodeStorageConnection, "cannot create database directory %s", dir)
		}
	}

	db, err := sql.Open("sqlite3", sqliteDSN(cfg))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStorageConnection, "failed to open database")
	}

	return newSqliteBackend(ctx, db, cfg.Path)
}

// sqliteDSN builds the connection string with the driver's pragma flags
func sqliteDSN(cfg config.SqliteSettings) string {
	params := []string{"_foreign_keys=true", "_cache_size=1000"}
	if cfg.WALMode {
		params = append(params, "_journal_mode=WAL", "_synchronous=NORMAL")
	} else {
		params = append(params, "_synchronous=FULL")
	}
	if cfg.BusyTimeoutMs > 0 {
		params = append(params, "_busy_timeout="+strconv.Itoa(cfg.BusyTimeoutMs))
	}
	return cfg.Path + "?" + strings.Join(params, "&")
}

// newSqliteBackend verifies the connection and initializes the schema on an
// already opened handle. The handle is closed on failure.
func newSqliteBackend(ctx context.Context, db *sql.DB, path string) (*SqliteBackend, error) {
	logger := logging.GetGlobalLogger("storage.sqlite")

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, errors.Wrapf(err, errors.ErrCodeStorageConnection, "cannot open sqlite database %s", path)
	}

	backend := &SqliteBackend{db: db, path: path, logger: logger}

	if err := backend.initSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("SQLite backend ready", slog.String("path", path))
	return backend, nil
}

// initSchema creates the table and index; safe to run on every open
func (s *SqliteBackend) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS bed_occupancy (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		hospital_id TEXT NOT NULL,
		ward_id TEXT NOT NULL,
		ward_type TEXT NOT NULL DEFAULT '',
		bed_count INTEGER NOT NULL CHECK (bed_count >= 0),
		occupied_beds INTEGER NOT NULL CHECK (occupied_beds >= 0 AND occupied_beds <= bed_count),
		record_date TEXT NOT NULL,
		created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ', 'now'))
	);

	CREATE INDEX IF NOT EXISTS idx_bed_occupancy_ward_date
		ON bed_occupancy(hospital_id, ward_id, record_date);
	`

	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		classified := classifySqliteError(err, "init schema")
		if errors.IsUnavailable(classified) {
			return classified
		}
		return errors.Wrap(err, errors.ErrCodeStorageInitialization, "failed to initialize schema")
	}
	return nil
}

// Create inserts a single record inside a transaction
func (s *SqliteBackend) Create(ctx context.Context, in occupancy.RecordInput) (rec *occupancy.Record, err error) {
	timer := logging.StartTimer(ctx, s.logger, "sqlite.create")
	defer func() { timer.EndWithError(err) }()

	prepared, err := in.Prepare()
	if err != nil {
		return nil, err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, classifySqliteError(err, "begin transaction")
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO bed_occupancy (hospital_id, ward_id, ward_type, bed_count, occupied_beds, record_date)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		prepared.HospitalID,
		prepared.WardID,
		string(prepared.WardType),
		prepared.BedCount,
		prepared.OccupiedBeds,
		prepared.RecordDate.Format(sqliteDateFormat),
	)
	if err != nil {
		return nil, classifySqliteError(err, "insert record")
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, classifySqliteError(err, "read inserted id")
	}

	if err := tx.Commit(); err != nil {
		return nil, classifySqliteError(err, "commit")
	}

	record := prepared.ToRecord(strconv.FormatInt(id, 10))

	s.logger.DebugContext(ctx, "Record stored in sqlite",
		slog.String("id", record.ID),
		slog.String("hospital_id", record.HospitalID),
		slog.String("ward_id", record.WardID),
	)

	return &record, nil
}

// Get retrieves a single record by its decimal rowid
func (s *SqliteBackend) Get(ctx context.Context, id string) (*occupancy.Record, error) {
	rowID, err := strconv.ParseInt(strings.TrimSpace(id), 10, 64)
	if err != nil {
		return nil, errors.NotFound("occupancy record " + id)
	}

	row := s.db.QueryRowContext(ctx, `SELECT `+recordColumns+` FROM bed_occupancy WHERE id = ?`, rowID)
	record, err := scanRecord(row)
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, errors.NotFound("occupancy record " + id)
		}
		return nil, classifySqliteError(err, "get record")
	}
	return record, nil
}

// Query returns the ward's records within the optional inclusive bounds
func (s *SqliteBackend) Query(ctx context.Context, q occupancy.Query) (records []occupancy.Record, err error) {
	timer := logging.StartTimer(ctx, s.logger, "sqlite.query")
	defer func() { timer.EndWithError(err) }()

	q, err = q.Prepare()
	if err != nil {
		return nil, err
	}

	var sb strings.Builder
	sb.WriteString(`SELECT ` + recordColumns + ` FROM bed_occupancy WHERE hospital_id = ? AND ward_id = ?`)
	args := []interface{}{q.HospitalID, q.WardID}

	if q.Start != nil {
		sb.WriteString(` AND record_date >= ?`)
		args = append(args, q.Start.Format(sqliteDateFormat))
	}
	if q.End != nil {
		sb.WriteString(` AND record_date <= ?`)
		args = append(args, q.End.Format(sqliteDateFormat))
	}
	sb.WriteString(` ORDER BY record_date ASC, id ASC`)

	return s.queryRecords(ctx, sb.String(), args...)
}

// ListAll returns every stored record in date order
func (s *SqliteBackend) ListAll(ctx context.Context) ([]occupancy.Record, error) {
	return s.queryRecords(ctx, `SELECT `+recordColumns+` FROM bed_occupancy ORDER BY record_date ASC, id ASC`)
}

func (s *SqliteBackend) queryRecords(ctx context.Context, query string, args ...interface{}) ([]occupancy.Record, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, classifySqliteError(err, "query records")
	}
	defer rows.Close()

	records := make([]occupancy.Record, 0)
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, classifySqliteError(err, "scan record")
		}
		records = append(records, *record)
	}

	if err := rows.Err(); err != nil {
		return nil, classifySqliteError(err, "iterate records")
	}

	return records, nil
}

// Health pings the database and gathers statistics
func (s *SqliteBackend) Health(ctx context.Context) (*occupancy.HealthStatus, error) {
	if err := s.db.PingContext(ctx); err != nil {
		return nil, unreachable(ctx, err, "sqlite database is not reachable")
	}

	var stats occupancy.Statistics
	err := s.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COUNT(DISTINCT hospital_id),
			COUNT(DISTINCT ward_id),
			COALESCE(AVG(occupied_beds), 0),
			COALESCE(AVG(bed_count), 0)
		FROM bed_occupancy
	`).Scan(
		&stats.TotalRecords,
		&stats.UniqueHospitals,
		&stats.UniqueWards,
		&stats.AvgOccupiedBeds,
		&stats.AvgTotalBeds,
	)
	if err != nil {
		return nil, classifySqliteError(err, "collect statistics")
	}

	return &occupancy.HealthStatus{
		Backend:     BackendSQLite,
		Status:      occupancy.StatusConnected,
		Reachable:   true,
		RecordCount: stats.TotalRecords,
		Statistics:  stats,
		CheckedAt:   time.Now().UTC(),
	}, nil
}

// Close closes the database connection
func (s *SqliteBackend) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRecord(row rowScanner) (*occupancy.Record, error) {
	var (
		record   occupancy.Record
		id       int64
		wardType string
		date     string
	)

	if err := row.Scan(
		&id,
		&record.HospitalID,
		&record.WardID,
		&wardType,
		&record.BedCount,
		&record.OccupiedBeds,
		&date,
	); err != nil {
		return nil, err
	}

	parsed, err := time.Parse(sqliteDateFormat, date)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrCodeStorageCorrupt, "invalid record_date '%s' for record %d", date, id)
	}

	record.ID = strconv.FormatInt(id, 10)
	record.WardType = occupancy.WardType(wardType)
	record.RecordDate = parsed.UTC()
	return &record, nil
}

// classifySqliteError maps driver failures onto the error taxonomy:
// lock contention and unreachable files are Unavailable, everything else
// unexpected is internal.
func classifySqliteError(err error, op string) error {
	if err == nil {
		return nil
	}
	if _, ok := errors.As(err); ok {
		return err
	}
	if cerr := contextError(err); cerr != nil {
		return cerr
	}

	var sqliteErr sqlite3.Error
	if stderrors.As(err, &sqliteErr) {
		switch sqliteErr.Code {
		case sqlite3.ErrBusy, sqlite3.ErrLocked:
			return errors.Wrapf(err, errors.ErrCodeStorageLocked, "sqlite database is locked (%s)", op)
		case sqlite3.ErrCantOpen, sqlite3.ErrIoErr, sqlite3.ErrReadonly, sqlite3.ErrFull, sqlite3.ErrPerm:
			return errors.Wrapf(err, errors.ErrCodeStorageConnection, "sqlite database is unavailable (%s)", op)
		case sqlite3.ErrCorrupt, sqlite3.ErrNotADB:
			return errors.Wrapf(err, errors.ErrCodeStorageCorrupt, "sqlite database is corrupt (%s)", op)
		}
	}

	if stderrors.Is(err, sql.ErrConnDone) || stderrors.Is(err, driver.ErrBadConn) {
		return errors.Wrapf(err, errors.ErrCodeStorageConnection, "sqlite connection lost (%s)", op)
	}

	return errors.Wrap(err, errors.ErrCodeInternal, fmt.Sprintf("sqlite %s failed", op))
}

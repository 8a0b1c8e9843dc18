// Package sqlite provides a SQLite-backed task storage implementation.
//
// The store keeps no pooled handle: every operation opens its own
// connection to the database file, runs its statements, and closes the
// connection before returning. Cross-request coordination is left to
// SQLite's file locking.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/sqlscan"
	apperrors "github.com/louisbranch/tasks/internal/platform/errors"
	sqlitemigrate "github.com/louisbranch/tasks/internal/platform/storage/sqlitemigrate"
	"github.com/louisbranch/tasks/internal/services/tasks/storage"
	"github.com/louisbranch/tasks/internal/services/tasks/storage/sqlite/migrations"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
)

const tracerName = "github.com/louisbranch/tasks/internal/services/tasks/storage/sqlite"

const tasksTable = "tasks"

// Store persists tasks in a SQLite file.
type Store struct {
	dsn    string
	tracer trace.Tracer
}

type taskRow struct {
	ID        int64  `db:"id"`
	Task      string `db:"task"`
	Completed int64  `db:"completed"`
}

func (r taskRow) toTask() storage.Task {
	return storage.Task{
		ID:          r.ID,
		Description: r.Task,
		Completed:   r.Completed != 0,
	}
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

// Open returns a store bound to the SQLite file at path. The file is not
// touched until the first operation; call Initialize before serving.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	cleanPath := filepath.Clean(path)
	// _txlock=immediate takes the write lock at BEGIN so a check-then-write
	// transaction cannot interleave with another writer.
	dsn := cleanPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_txlock=immediate"
	return &Store{
		dsn:    dsn,
		tracer: otel.Tracer(tracerName),
	}, nil
}

// Initialize creates the tasks table when absent. Safe to call on every start.
func (s *Store) Initialize(ctx context.Context) (err error) {
	ctx, span := s.startSpan(ctx, "Initialize")
	defer func() { endSpan(span, err) }()

	sqlDB, err := s.connect(ctx)
	if err != nil {
		return err
	}
	defer closeDB(sqlDB)

	if err := sqlitemigrate.ApplyMigrations(ctx, sqlDB, migrations.FS, ""); err != nil {
		return apperrors.Wrap(apperrors.CodeStorageUnavailable, "initialize schema", err)
	}
	return nil
}

// ListTasks returns every task ordered by id ascending.
func (s *Store) ListTasks(ctx context.Context) (tasks []storage.Task, err error) {
	ctx, span := s.startSpan(ctx, "ListTasks")
	defer func() { endSpan(span, err) }()

	sqlDB, err := s.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer closeDB(sqlDB)

	query, args, err := sq.Select("id", "task", "completed").
		From(tasksTable).
		OrderBy("id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list query: %w", err)
	}

	var rows []taskRow
	if err := sqlscan.Select(ctx, sqlDB, &rows, query, args...); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeStorageUnavailable, "list tasks", err)
	}

	tasks = make([]storage.Task, 0, len(rows))
	for _, row := range rows {
		tasks = append(tasks, row.toTask())
	}
	span.SetAttributes(attribute.Int("tasks.count", len(tasks)))
	return tasks, nil
}

// InsertTask stores a new task and returns its assigned id.
func (s *Store) InsertTask(ctx context.Context, description string, completed bool) (id int64, err error) {
	ctx, span := s.startSpan(ctx, "InsertTask")
	defer func() { endSpan(span, err) }()

	sqlDB, err := s.connect(ctx)
	if err != nil {
		return 0, err
	}
	defer closeDB(sqlDB)

	query, args, err := sq.Insert(tasksTable).
		Columns("task", "completed").
		Values(description, boolToInt(completed)).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build insert query: %w", err)
	}

	result, err := sqlDB.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, apperrors.Wrap(classify(err, apperrors.CodeStorageWrite), "insert task", err)
	}
	id, err = result.LastInsertId()
	if err != nil {
		return 0, apperrors.Wrap(apperrors.CodeStorageWrite, "read inserted task id", err)
	}
	span.SetAttributes(attribute.Int64("task.id", id))
	return id, nil
}

// UpdateTask overwrites description and completed for id. It returns
// storage.ErrNotFound when no task has that id.
func (s *Store) UpdateTask(ctx context.Context, id int64, description string, completed bool) (err error) {
	ctx, span := s.startSpan(ctx, "UpdateTask", attribute.Int64("task.id", id))
	defer func() { endSpan(span, err) }()

	return s.withTx(ctx, "update task", func(tx *sql.Tx) error {
		if err := requireTask(ctx, tx, id); err != nil {
			return err
		}
		query, args, err := sq.Update(tasksTable).
			Set("task", description).
			Set("completed", boolToInt(completed)).
			Where(sq.Eq{"id": id}).
			ToSql()
		if err != nil {
			return fmt.Errorf("build update query: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return apperrors.Wrap(classify(err, apperrors.CodeStorageWrite), "update task", err)
		}
		return nil
	})
}

// DeleteTask removes the task with id. It returns storage.ErrNotFound when
// no task has that id.
func (s *Store) DeleteTask(ctx context.Context, id int64) (err error) {
	ctx, span := s.startSpan(ctx, "DeleteTask", attribute.Int64("task.id", id))
	defer func() { endSpan(span, err) }()

	return s.withTx(ctx, "delete task", func(tx *sql.Tx) error {
		if err := requireTask(ctx, tx, id); err != nil {
			return err
		}
		query, args, err := sq.Delete(tasksTable).
			Where(sq.Eq{"id": id}).
			ToSql()
		if err != nil {
			return fmt.Errorf("build delete query: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return apperrors.Wrap(classify(err, apperrors.CodeStorageWrite), "delete task", err)
		}
		return nil
	})
}

func requireTask(ctx context.Context, tx *sql.Tx, id int64) error {
	query, args, err := sq.Select("1").
		From(tasksTable).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build lookup query: %w", err)
	}
	var found int
	if err := tx.QueryRowContext(ctx, query, args...).Scan(&found); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.ErrNotFound
		}
		return apperrors.Wrap(classify(err, apperrors.CodeStorageWrite), "look up task", err)
	}
	return nil
}

// withTx runs fn in one transaction on a fresh connection, committing on
// success and rolling back otherwise.
func (s *Store) withTx(ctx context.Context, op string, fn func(tx *sql.Tx) error) error {
	sqlDB, err := s.connect(ctx)
	if err != nil {
		return err
	}
	defer closeDB(sqlDB)

	tx, err := sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return apperrors.Wrap(classify(err, apperrors.CodeStorageWrite), op+": begin transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return apperrors.Wrap(classify(err, apperrors.CodeStorageWrite), op+": commit", err)
	}
	return nil
}

// connect opens a single-connection handle to the store file.
func (s *Store) connect(ctx context.Context) (*sql.DB, error) {
	if s == nil || s.dsn == "" {
		return nil, apperrors.New(apperrors.CodeStorageUnavailable, "storage is not configured")
	}
	if err := ctx.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeStorageUnavailable, "open sqlite db", err)
	}
	sqlDB, err := sql.Open("sqlite", s.dsn)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeStorageUnavailable, "open sqlite db", err)
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(0)
	if err := sqlDB.PingContext(ctx); err != nil {
		closeDB(sqlDB)
		return nil, apperrors.Wrap(apperrors.CodeStorageUnavailable, "ping sqlite db", err)
	}
	return sqlDB, nil
}

func closeDB(sqlDB *sql.DB) {
	_ = sqlDB.Close()
}

// classify upgrades errors showing the database file itself is unusable to
// CodeStorageUnavailable; everything else keeps fallback.
func classify(err error, fallback apperrors.Code) apperrors.Code {
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() & 0xff {
		case sqlite3lib.SQLITE_CANTOPEN, sqlite3lib.SQLITE_NOTADB, sqlite3lib.SQLITE_CORRUPT:
			return apperrors.CodeStorageUnavailable
		}
	}
	return fallback
}

func (s *Store) startSpan(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	tracer := otel.Tracer(tracerName)
	if s != nil && s.tracer != nil {
		tracer = s.tracer
	}
	return tracer.Start(ctx, "tasks.storage."+op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(append(attrs, attribute.String("db.system", "sqlite"))...),
	)
}

func endSpan(span trace.Span, err error) {
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
	}
	span.End()
}

var _ storage.TaskStore = (*Store)(nil)

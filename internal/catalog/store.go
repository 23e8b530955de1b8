// Package catalog maintains the append-only frame index the viewer polls.
// Frames are deduplicated on filename, which is deterministic per
// (platform, acquisition time), so reprocessing a source file is a no-op.
package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/solarforecast/goes-viewer/internal/frame"
)

// Store is the frame index. All writes are atomic; reads see committed
// frames in chronological order.
type Store interface {
	// AddFrame records a published frame. Returns false when the frame was
	// already known.
	AddFrame(ctx context.Context, platform string, capturedAt time.Time, filename string) (added bool, err error)

	// HasFrame reports whether a frame with this filename is already indexed.
	HasFrame(ctx context.Context, filename string) (bool, error)

	// Frames returns all indexed frames ordered by acquisition time.
	Frames(ctx context.Context) ([]Frame, error)

	// SyncDir indexes any frame files already present in dir that the
	// catalog does not know about, parsing identity from their names.
	SyncDir(ctx context.Context, dir string) (added int, err error)

	// Close releases the database connections. Safe to call multiple times.
	Close() error
}

// SqliteStore implements Store on a local sqlite database.
type SqliteStore struct {
	dbPath string

	writeDB     *sql.DB
	writeDBOnce sync.Once
	writeDBErr  error

	readDB     *sql.DB
	readDBOnce sync.Once
	readDBErr  error

	closeOnce sync.Once
	closeErr  error
}

// NewSqliteStore creates a store backed by the sqlite database at dbPath.
// The schema is initialized on first write.
func NewSqliteStore(dbPath string) *SqliteStore {
	return &SqliteStore{dbPath: dbPath}
}

func (s *SqliteStore) getWriteDB() (*sql.DB, error) {
	s.writeDBOnce.Do(func() {
		db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?%s", s.dbPath, "_journal_mode=WAL&_synchronous=NORMAL"))
		if err != nil {
			s.writeDBErr = fmt.Errorf("opening write connection: %w", err)
			return
		}

		if _, err = db.Exec(initSchemaSQL); err != nil {
			_ = db.Close()
			s.writeDBErr = fmt.Errorf("initializing schema: %w", err)
			return
		}

		s.writeDB = db
	})

	return s.writeDB, s.writeDBErr
}

func (s *SqliteStore) getReadDB() (*sql.DB, error) {
	// The write connection creates the schema; make sure it exists before
	// a reader touches the file.
	if _, err := s.getWriteDB(); err != nil {
		return nil, err
	}

	s.readDBOnce.Do(func() {
		db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?%s", s.dbPath, "mode=ro"))
		if err != nil {
			s.readDBErr = fmt.Errorf("opening read connection: %w", err)
			return
		}
		s.readDB = db
	})

	return s.readDB, s.readDBErr
}

func (s *SqliteStore) AddFrame(ctx context.Context, platform string, capturedAt time.Time, filename string) (added bool, err error) {
	db, err := s.getWriteDB()
	if err != nil {
		return false, fmt.Errorf("getting write connection: %w", err)
	}

	stmt, err := db.PrepareContext(ctx, insertFrameSQL)
	if err != nil {
		return false, fmt.Errorf("preparing statement: %w", err)
	}
	defer closeWithError(stmt, &err)

	result, err := stmt.ExecContext(ctx, platform, capturedAt.UTC(), filename)
	if err != nil {
		return false, fmt.Errorf("inserting frame: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("checking insert result: %w", err)
	}
	return n > 0, nil
}

func (s *SqliteStore) HasFrame(ctx context.Context, filename string) (has bool, err error) {
	db, err := s.getReadDB()
	if err != nil {
		return false, fmt.Errorf("getting read connection: %w", err)
	}

	stmt, err := db.PrepareContext(ctx, hasFrameSQL)
	if err != nil {
		return false, fmt.Errorf("preparing statement: %w", err)
	}
	defer closeWithError(stmt, &err)

	var count int64
	if err = stmt.QueryRowContext(ctx, filename).Scan(&count); err != nil {
		return false, fmt.Errorf("querying frame: %w", err)
	}
	return count > 0, nil
}

func (s *SqliteStore) Frames(ctx context.Context) (frames []Frame, err error) {
	db, err := s.getReadDB()
	if err != nil {
		return nil, fmt.Errorf("getting read connection: %w", err)
	}

	rows, err := db.QueryContext(ctx, selectFramesSQL)
	if err != nil {
		return nil, fmt.Errorf("querying frames: %w", err)
	}
	defer closeWithError(rows, &err)

	for rows.Next() {
		var f Frame
		if err = rows.Scan(&f.ID, &f.Platform, &f.CapturedAt, &f.Name, &f.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning frame: %w", err)
		}
		f.CapturedAt = f.CapturedAt.UTC()
		frames = append(frames, f)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating frames: %w", err)
	}
	return frames, nil
}

func (s *SqliteStore) SyncDir(ctx context.Context, dir string) (added int, err error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("reading frames directory: %w", err)
	}

	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".png") {
			continue
		}

		platform, capturedAt, err := frame.ParseFilename(e.Name())
		if err != nil {
			// Foreign files in the output directory are not frames.
			continue
		}

		ok, err := s.AddFrame(ctx, platform, capturedAt, filepath.Base(e.Name()))
		if err != nil {
			return added, err
		}
		if ok {
			added++
		}
	}
	return added, nil
}

func (s *SqliteStore) Close() error {
	s.closeOnce.Do(func() {
		if s.writeDB != nil {
			s.closeErr = s.writeDB.Close()
		}
		if s.readDB != nil {
			if err := s.readDB.Close(); err != nil && s.closeErr == nil {
				s.closeErr = err
			}
		}
	})
	return s.closeErr
}

func closeWithError(cl interface{ Close() error }, err *error) {
	if cErr := cl.Close(); cErr != nil && *err == nil {
		*err = cErr
	}
}

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
)

// SqliteStore is the sqlite-backed Store implementation. Connections are
// opened lazily so creating a store is cheap until the first write.
type SqliteStore struct {
	dbPath string

	writeDB     *sql.DB
	writeDBOnce sync.Once
	writeDBErr  error

	closeOnce sync.Once
	closeErr  error
}

// NewSqliteStore creates a store backed by the database at dbPath. The
// schema is initialized on first use.
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

func (s *SqliteStore) CreateSession(ctx context.Context, dir string) (sessionID int64, err error) {
	return s.insert(ctx, insertSessionSQL, dir)
}

func (s *SqliteStore) CreateClip(ctx context.Context, sessionID int64, token string) (clipID int64, err error) {
	return s.insert(ctx, insertClipSQL, sessionID, token)
}

func (s *SqliteStore) AddClipFile(ctx context.Context, clipID int64, role, path string, records, sizeBytes int64) error {
	_, err := s.insert(ctx, insertClipFileSQL, clipID, role, path, records, sizeBytes)
	return err
}

func (s *SqliteStore) Clips(ctx context.Context, sessionID int64) (clips []Clip, err error) {
	db, err := s.getWriteDB()
	if err != nil {
		return nil, fmt.Errorf("getting connection: %w", err)
	}

	rows, err := db.QueryContext(ctx, selectClipsSQL, sessionID)
	if err != nil {
		return nil, fmt.Errorf("querying clips: %w", err)
	}
	defer closeWithError(rows, &err)

	for rows.Next() {
		var c Clip
		if err = rows.Scan(&c.ID, &c.SessionID, &c.Token, &c.StartTime); err != nil {
			return nil, fmt.Errorf("scanning clip: %w", err)
		}
		clips = append(clips, c)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating clips: %w", err)
	}

	for i := range clips {
		if clips[i].Files, err = s.clipFiles(ctx, db, clips[i].ID); err != nil {
			return nil, err
		}
	}

	return clips, nil
}

func (s *SqliteStore) clipFiles(ctx context.Context, db *sql.DB, clipID int64) (files []ClipFile, err error) {
	rows, err := db.QueryContext(ctx, selectClipFilesSQL, clipID)
	if err != nil {
		return nil, fmt.Errorf("querying clip files: %w", err)
	}
	defer closeWithError(rows, &err)

	for rows.Next() {
		var f ClipFile
		if err = rows.Scan(&f.ID, &f.ClipID, &f.Role, &f.Path, &f.Records, &f.SizeBytes); err != nil {
			return nil, fmt.Errorf("scanning clip file: %w", err)
		}
		files = append(files, f)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating clip files: %w", err)
	}

	return files, nil
}

func (s *SqliteStore) Close() error {
	s.closeOnce.Do(func() {
		var errs []error
		if s.writeDB != nil {
			if err := s.writeDB.Close(); err != nil {
				errs = append(errs, err)
			}
		}
		s.closeErr = errors.Join(errs...)
	})

	return s.closeErr
}

func (s *SqliteStore) insert(ctx context.Context, query string, args ...any) (id int64, err error) {
	db, err := s.getWriteDB()
	if err != nil {
		err = fmt.Errorf("getting write connection: %w", err)
		return
	}

	stmt, err := db.PrepareContext(ctx, query)
	if err != nil {
		err = fmt.Errorf("preparing statement: %w", err)
		return
	}
	defer closeWithError(stmt, &err)

	result, err := stmt.ExecContext(ctx, args...)
	if err != nil {
		err = fmt.Errorf("executing statement: %w", err)
		return
	}

	if id, err = result.LastInsertId(); err != nil {
		err = fmt.Errorf("getting last insert id: %w", err)
	}
	return
}

func closeWithError(cl interface{ Close() error }, err *error) {
	if cErr := cl.Close(); cErr != nil && *err == nil {
		*err = cErr
	}
}

package inventory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// LookupFile returns the stored record for path, or nil when none exists.
func (s *Store) LookupFile(ctx context.Context, path string) (*FileRecord, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx, `SELECT path, status, action, last_checked FROM files WHERE path = ?`, path)
	rec, err := scanFile(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lookup file %q: %w", path, err)
	}
	return rec, nil
}

// UpsertFile writes the record for path and stamps last_checked.
func (s *Store) UpsertFile(ctx context.Context, path string, status Status, action FileAction) error {
	err := s.exec(ctx, `
		INSERT INTO files (path, status, action, last_checked)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			status = excluded.status,
			action = excluded.action,
			last_checked = excluded.last_checked`,
		path, string(status), nullable(string(action)), s.timestamp())
	if err != nil {
		return fmt.Errorf("upsert file %q: %w", path, err)
	}
	return nil
}

// LookupDir returns the stored record for a directory, or nil when none exists.
func (s *Store) LookupDir(ctx context.Context, path string) (*DirRecord, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx, `SELECT path, archive_ref, subs_ref, action, last_checked FROM dirs WHERE path = ?`, path)
	rec, err := scanDir(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lookup dir %q: %w", path, err)
	}
	return rec, nil
}

// UpsertDir writes the record for a directory and stamps last_checked.
func (s *Store) UpsertDir(ctx context.Context, path, archiveRef, subsRef string, action DirAction) error {
	err := s.exec(ctx, `
		INSERT INTO dirs (path, archive_ref, subs_ref, action, last_checked)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			archive_ref = excluded.archive_ref,
			subs_ref = excluded.subs_ref,
			action = excluded.action,
			last_checked = excluded.last_checked`,
		path, nullable(archiveRef), nullable(subsRef), nullable(string(action)), s.timestamp())
	if err != nil {
		return fmt.Errorf("upsert dir %q: %w", path, err)
	}
	return nil
}

// ListFiles returns file records ordered by path. An empty status lists all.
func (s *Store) ListFiles(ctx context.Context, status Status) ([]FileRecord, error) {
	ctx = ensureContext(ctx)
	query := `SELECT path, status, action, last_checked FROM files`
	var args []any
	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, string(status))
	}
	query += ` ORDER BY path`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	defer rows.Close()

	var out []FileRecord
	for rows.Next() {
		rec, err := scanFile(rows)
		if err != nil {
			return nil, fmt.Errorf("scan file row: %w", err)
		}
		out = append(out, *rec)
	}
	return out, rows.Err()
}

// ListDirs returns directory records ordered by path. An empty action lists all.
func (s *Store) ListDirs(ctx context.Context, action DirAction) ([]DirRecord, error) {
	ctx = ensureContext(ctx)
	query := `SELECT path, archive_ref, subs_ref, action, last_checked FROM dirs`
	var args []any
	if action != DirActionNone {
		query += ` WHERE action = ?`
		args = append(args, string(action))
	}
	query += ` ORDER BY path`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list dirs: %w", err)
	}
	defer rows.Close()

	var out []DirRecord
	for rows.Next() {
		rec, err := scanDir(rows)
		if err != nil {
			return nil, fmt.Errorf("scan dir row: %w", err)
		}
		out = append(out, *rec)
	}
	return out, rows.Err()
}

// Stats counts records grouped by status and action.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	ctx = ensureContext(ctx)
	stats := Stats{
		ByStatus:    make(map[Status]int),
		ByAction:    make(map[FileAction]int),
		ByDirAction: make(map[DirAction]int),
	}

	rows, err := s.db.QueryContext(ctx, `SELECT status, COALESCE(action, ''), COUNT(*) FROM files GROUP BY status, action`)
	if err != nil {
		return stats, fmt.Errorf("file stats: %w", err)
	}
	for rows.Next() {
		var (
			status, action string
			count          int
		)
		if err := rows.Scan(&status, &action, &count); err != nil {
			rows.Close()
			return stats, fmt.Errorf("scan file stats: %w", err)
		}
		stats.Files += count
		stats.ByStatus[Status(status)] += count
		stats.ByAction[FileAction(action)] += count
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return stats, fmt.Errorf("file stats: %w", err)
	}

	rows, err = s.db.QueryContext(ctx, `SELECT COALESCE(action, ''), COUNT(*) FROM dirs GROUP BY action`)
	if err != nil {
		return stats, fmt.Errorf("dir stats: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			action string
			count  int
		)
		if err := rows.Scan(&action, &count); err != nil {
			return stats, fmt.Errorf("scan dir stats: %w", err)
		}
		stats.Dirs += count
		stats.ByDirAction[DirAction(action)] += count
	}
	return stats, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFile(row rowScanner) (*FileRecord, error) {
	var (
		rec         FileRecord
		status      string
		action      sql.NullString
		lastChecked string
	)
	if err := row.Scan(&rec.Path, &status, &action, &lastChecked); err != nil {
		return nil, err
	}
	rec.Status = Status(status)
	rec.Action = FileAction(action.String)
	rec.LastChecked = parseTimestamp(lastChecked)
	return &rec, nil
}

func scanDir(row rowScanner) (*DirRecord, error) {
	var (
		rec                 DirRecord
		archiveRef, subsRef sql.NullString
		action              sql.NullString
		lastChecked         string
	)
	if err := row.Scan(&rec.Path, &archiveRef, &subsRef, &action, &lastChecked); err != nil {
		return nil, err
	}
	rec.ArchiveRef = archiveRef.String
	rec.SubsRef = subsRef.String
	rec.Action = DirAction(action.String)
	rec.LastChecked = parseTimestamp(lastChecked)
	return &rec, nil
}

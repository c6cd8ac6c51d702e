// Package sqlite keeps the snapshot and sent history of local profile runs in a single sqlite file.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gocraft/dbr/v2"
	"github.com/gocraft/dbr/v2/dialect"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/spigell/job-alert/internal/history"
	"github.com/spigell/job-alert/internal/jobs"
	"github.com/spigell/job-alert/internal/snapshot"
)

const schema = `
CREATE TABLE IF NOT EXISTS snapshot_keys (
  profile TEXT NOT NULL,
  job_key TEXT NOT NULL,
  PRIMARY KEY (profile, job_key)
);
CREATE TABLE IF NOT EXISTS sent_jobs (
  profile TEXT NOT NULL,
  job_key TEXT NOT NULL,
  source TEXT NOT NULL DEFAULT '',
  url TEXT NOT NULL DEFAULT '',
  title TEXT NOT NULL DEFAULT '',
  company TEXT NOT NULL DEFAULT '',
  first_sent_at INTEGER NOT NULL,
  last_seen_at INTEGER NOT NULL,
  PRIMARY KEY (profile, job_key)
);
`

type Store struct {
	conn   *dbr.Connection
	sess   *dbr.Session
	logger *zap.Logger
	now    func() time.Time
}

// Open creates the database file and its tables when missing.
func Open(path string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create database dir: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	conn := &dbr.Connection{DB: db, Dialect: dialect.SQLite3, EventReceiver: &dbr.NullEventReceiver{}}
	logger.Debug("opened sqlite store", zap.String("path", path))
	return &Store{
		conn:   conn,
		sess:   conn.NewSession(nil),
		logger: logger,
		now:    time.Now,
	}, nil
}

func (s *Store) Close() error {
	return s.conn.Close()
}

// Snapshot returns the snapshot store of one profile.
func (s *Store) Snapshot(profile string) snapshot.Store {
	return &profileSnapshot{store: s, profile: profile}
}

// History returns the sent-history store of one profile.
func (s *Store) History(profile string) history.Store {
	return &profileHistory{store: s, profile: profile}
}

type profileSnapshot struct {
	store   *Store
	profile string
}

func (p *profileSnapshot) Load(ctx context.Context) (map[string]struct{}, error) {
	var keys []string
	_, err := p.store.sess.Select("job_key").
		From("snapshot_keys").
		Where("profile = ?", p.profile).
		LoadContext(ctx, &keys)
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}

	set := make(map[string]struct{}, len(keys))
	for _, key := range keys {
		set[key] = struct{}{}
	}
	return set, nil
}

// Save replaces the stored key set in one transaction.
func (p *profileSnapshot) Save(ctx context.Context, keys map[string]struct{}) error {
	tx, err := p.store.sess.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.RollbackUnlessCommitted()

	if _, err := tx.DeleteFrom("snapshot_keys").Where("profile = ?", p.profile).ExecContext(ctx); err != nil {
		return fmt.Errorf("clear snapshot: %w", err)
	}

	sorted := jobs.SortedKeys(keys)
	if len(sorted) > 0 {
		stmt := tx.InsertInto("snapshot_keys").Columns("profile", "job_key")
		for _, key := range sorted {
			stmt.Values(p.profile, key)
		}
		if _, err := stmt.ExecContext(ctx); err != nil {
			return fmt.Errorf("save snapshot: %w", err)
		}
	}
	return tx.Commit()
}

type profileHistory struct {
	store   *Store
	profile string
}

func (p *profileHistory) LoadSentKeys(ctx context.Context, maxAgeDays int) (map[string]struct{}, error) {
	cutoff := history.Cutoff(p.store.now(), maxAgeDays).Unix()

	var keys []string
	_, err := p.store.sess.Select("job_key").
		From("sent_jobs").
		Where("profile = ? AND last_seen_at >= ?", p.profile, cutoff).
		LoadContext(ctx, &keys)
	if err != nil {
		return nil, fmt.Errorf("load sent keys: %w", err)
	}

	set := make(map[string]struct{}, len(keys))
	for _, key := range keys {
		set[key] = struct{}{}
	}
	return set, nil
}

func (p *profileHistory) RecordSent(ctx context.Context, list jobs.List) (int, error) {
	tx, err := p.store.sess.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer tx.RollbackUnlessCommitted()

	now := p.store.now().Unix()
	recorded := 0
	for _, job := range list.Dedupe() {
		key := job.Key()
		if key == "" {
			continue
		}
		_, err := tx.InsertBySql(`
			INSERT INTO sent_jobs (profile, job_key, source, url, title, company, first_sent_at, last_seen_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (profile, job_key) DO UPDATE SET
			  source = CASE WHEN excluded.source != '' THEN excluded.source ELSE sent_jobs.source END,
			  url = CASE WHEN excluded.url != '' THEN excluded.url ELSE sent_jobs.url END,
			  title = CASE WHEN excluded.title != '' THEN excluded.title ELSE sent_jobs.title END,
			  company = CASE WHEN excluded.company != '' THEN excluded.company ELSE sent_jobs.company END,
			  last_seen_at = excluded.last_seen_at`,
			p.profile, key, job.Source, job.URL, job.Position, job.Company, now, now,
		).ExecContext(ctx)
		if err != nil {
			p.store.logger.Error("failed to record sent job", zap.String("key", key), zap.Error(err))
			return 0, fmt.Errorf("record sent: %w", err)
		}
		recorded++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return recorded, nil
}

// Records returns the stored history of a profile ordered by key.
func (s *Store) Records(ctx context.Context, profile string) ([]history.Record, error) {
	var rows []struct {
		Key         string `db:"job_key"`
		Source      string `db:"source"`
		URL         string `db:"url"`
		Title       string `db:"title"`
		Company     string `db:"company"`
		FirstSentAt int64  `db:"first_sent_at"`
		LastSeenAt  int64  `db:"last_seen_at"`
	}
	_, err := s.sess.Select("job_key", "source", "url", "title", "company", "first_sent_at", "last_seen_at").
		From("sent_jobs").
		Where("profile = ?", profile).
		OrderBy("job_key").
		LoadContext(ctx, &rows)
	if err != nil {
		return nil, fmt.Errorf("load records: %w", err)
	}

	records := make([]history.Record, 0, len(rows))
	for _, r := range rows {
		records = append(records, history.Record{
			Key:         r.Key,
			Source:      r.Source,
			URL:         r.URL,
			Title:       r.Title,
			Company:     r.Company,
			FirstSentAt: time.Unix(r.FirstSentAt, 0).UTC(),
			LastSeenAt:  time.Unix(r.LastSeenAt, 0).UTC(),
		})
	}
	return records, nil
}

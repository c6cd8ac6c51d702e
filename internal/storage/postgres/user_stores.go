package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spigell/job-alert/internal/history"
	"github.com/spigell/job-alert/internal/jobs"
	"github.com/spigell/job-alert/internal/snapshot"
	"github.com/spigell/job-alert/internal/storage"
)

// Snapshot returns the snapshot store of one user, backed by user_state.
func (s *Store) Snapshot(userID int64) snapshot.Store {
	return &userSnapshot{store: s, userID: userID}
}

// History returns the sent-history store of one user.
func (s *Store) History(userID int64) history.Store {
	return &userHistory{store: s, userID: userID}
}

type userSnapshot struct {
	store  *Store
	userID int64
}

func (u *userSnapshot) Load(ctx context.Context) (map[string]struct{}, error) {
	var data []byte
	err := u.store.pool.QueryRow(ctx,
		`SELECT current_job_keys_jsonb FROM user_state WHERE user_id = $1`, u.userID,
	).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return map[string]struct{}{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}

	keys := make(map[string]struct{})
	for _, key := range parseKeys(data) {
		if key != "" {
			keys[key] = struct{}{}
		}
	}
	return keys, nil
}

func (u *userSnapshot) Save(ctx context.Context, keys map[string]struct{}) error {
	data, err := json.Marshal(jobs.SortedKeys(keys))
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	_, err = u.store.pool.Exec(ctx,
		`INSERT INTO user_state (user_id, current_job_keys_jsonb, updated_at)
		 VALUES ($1, $2::jsonb, NOW())
		 ON CONFLICT (user_id) DO UPDATE SET
		   current_job_keys_jsonb = EXCLUDED.current_job_keys_jsonb,
		   updated_at = NOW()`,
		u.userID, string(data),
	)
	if err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

type userHistory struct {
	store  *Store
	userID int64
}

func (u *userHistory) LoadSentKeys(ctx context.Context, maxAgeDays int) (map[string]struct{}, error) {
	rows, err := u.store.pool.Query(ctx,
		`SELECT job_key FROM sent_job_records
		 WHERE user_id = $1 AND COALESCE(last_seen_at, first_sent_at) >= $2`,
		u.userID, history.Cutoff(time.Now().UTC(), maxAgeDays),
	)
	if err != nil {
		return nil, fmt.Errorf("loadSentKeys query: %w", err)
	}
	defer rows.Close()

	keys := make(map[string]struct{})
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("loadSentKeys scan: %w", err)
		}
		if key != "" {
			keys[key] = struct{}{}
		}
	}
	return keys, rows.Err()
}

func (u *userHistory) RecordSent(ctx context.Context, list jobs.List) (int, error) {
	batch := &pgx.Batch{}
	for _, job := range list.Dedupe() {
		key := job.Key()
		if key == "" {
			continue
		}
		batch.Queue(
			`INSERT INTO sent_job_records (
			   user_id, job_key, source, job_url, title, company, first_sent_at, last_seen_at
			 )
			 VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
			 ON CONFLICT (user_id, job_key) DO UPDATE SET
			   source = COALESCE(EXCLUDED.source, sent_job_records.source),
			   job_url = COALESCE(EXCLUDED.job_url, sent_job_records.job_url),
			   title = COALESCE(EXCLUDED.title, sent_job_records.title),
			   company = COALESCE(EXCLUDED.company, sent_job_records.company),
			   last_seen_at = NOW()`,
			u.userID, key, storage.NullString(job.Source), storage.NullString(job.URL), storage.NullString(job.Position), storage.NullString(job.Company),
		)
	}
	if batch.Len() == 0 {
		return 0, nil
	}

	if err := u.store.pool.SendBatch(ctx, batch).Close(); err != nil {
		return 0, fmt.Errorf("recordSent: %w", err)
	}
	return batch.Len(), nil
}

// Package postgres keeps users, their preferences and run state in PostgreSQL.
package postgres

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/spigell/job-alert/internal/storage"
)

//go:embed schema.sql
var schema string

type Store struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// New creates and verifies a connection pool.
func New(ctx context.Context, databaseURL string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if strings.TrimSpace(databaseURL) == "" {
		return nil, errors.New("database url is not configured")
	}

	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.New: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres ping failed: %w", err)
	}

	logger.Info("connected to postgres")
	return &Store{pool: pool, logger: logger}, nil
}

func (s *Store) Close() {
	s.pool.Close()
}

func (s *Store) InitSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("init schema: %w", err)
	}
	return nil
}

func (s *Store) UpsertUser(ctx context.Context, u storage.User) (storage.User, error) {
	var out storage.User
	var tz *string
	err := s.pool.QueryRow(ctx,
		`INSERT INTO users (username, email_to, is_active, timezone)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (username) DO UPDATE SET
		   email_to = EXCLUDED.email_to,
		   is_active = EXCLUDED.is_active,
		   timezone = EXCLUDED.timezone,
		   updated_at = NOW()
		 RETURNING id, username, email_to, is_active, timezone`,
		strings.TrimSpace(u.Username), strings.TrimSpace(u.EmailTo), u.Active, storage.NullString(u.Timezone),
	).Scan(&out.ID, &out.Username, &out.EmailTo, &out.Active, &tz)
	if err != nil {
		return out, fmt.Errorf("upsertUser: %w", err)
	}
	out.Timezone = deref(tz)
	return out, nil
}

func (s *Store) ListUsers(ctx context.Context, activeOnly bool) ([]storage.User, error) {
	query := `SELECT id, username, email_to, is_active, timezone FROM users`
	var args []any
	if activeOnly {
		query += ` WHERE is_active = $1`
		args = append(args, true)
	}
	query += ` ORDER BY username ASC`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listUsers query: %w", err)
	}
	defer rows.Close()

	users := make([]storage.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("listUsers scan: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (s *Store) UserByName(ctx context.Context, username string) (storage.User, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, username, email_to, is_active, timezone FROM users WHERE username = $1`,
		strings.TrimSpace(username),
	)
	u, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return u, fmt.Errorf("user %q: %w", username, storage.ErrNotFound)
	}
	if err != nil {
		return u, fmt.Errorf("userByName: %w", err)
	}
	return u, nil
}

func (s *Store) SetActive(ctx context.Context, username string, active bool) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE users SET is_active = $1, updated_at = NOW() WHERE username = $2`,
		active, strings.TrimSpace(username),
	)
	if err != nil {
		return fmt.Errorf("setActive: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("user %q: %w", username, storage.ErrNotFound)
	}
	return nil
}

func (s *Store) SetPreferences(ctx context.Context, p storage.Preferences) error {
	if err := p.Validate(); err != nil {
		return err
	}
	overrides, err := json.Marshal(p.Overrides)
	if err != nil {
		return fmt.Errorf("marshal overrides: %w", err)
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO user_preferences (
		   user_id, keyword, llm_input_limit, max_bullets,
		   remote_only, strict_senior_only, profile_overrides_jsonb, updated_at
		 )
		 VALUES ($1, $2, $3, $4, $5, $6, $7::jsonb, NOW())
		 ON CONFLICT (user_id) DO UPDATE SET
		   keyword = EXCLUDED.keyword,
		   llm_input_limit = EXCLUDED.llm_input_limit,
		   max_bullets = EXCLUDED.max_bullets,
		   remote_only = EXCLUDED.remote_only,
		   strict_senior_only = EXCLUDED.strict_senior_only,
		   profile_overrides_jsonb = EXCLUDED.profile_overrides_jsonb,
		   updated_at = NOW()`,
		p.UserID, storage.NullString(p.Keyword), p.LLMInputLimit, p.MaxBullets,
		p.RemoteOnly, p.StrictSeniorOnly, string(overrides),
	)
	if err != nil {
		return fmt.Errorf("setPreferences: %w", err)
	}
	return nil
}

// Preferences returns nil when the user has none stored.
func (s *Store) Preferences(ctx context.Context, userID int64) (*storage.Preferences, error) {
	var (
		p         storage.Preferences
		keyword   *string
		overrides []byte
	)
	err := s.pool.QueryRow(ctx,
		`SELECT user_id, keyword, llm_input_limit, max_bullets,
		        remote_only, strict_senior_only, profile_overrides_jsonb
		 FROM user_preferences WHERE user_id = $1`,
		userID,
	).Scan(&p.UserID, &keyword, &p.LLMInputLimit, &p.MaxBullets, &p.RemoteOnly, &p.StrictSeniorOnly, &overrides)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("preferences: %w", err)
	}

	p.Keyword = deref(keyword)
	if len(overrides) > 0 {
		if err := json.Unmarshal(overrides, &p.Overrides); err != nil {
			s.logger.Warn("ignoring malformed profile overrides", zap.Int64("user_id", userID), zap.Error(err))
		}
	}
	return &p, nil
}

// State returns nil when the user has never run.
func (s *Store) State(ctx context.Context, userID int64) (*storage.State, error) {
	var (
		st         storage.State
		keys       []byte
		status, ex *string
	)
	err := s.pool.QueryRow(ctx,
		`SELECT user_id, current_job_keys_jsonb, last_run_at, last_email_sent_at, last_status, last_error
		 FROM user_state WHERE user_id = $1`,
		userID,
	).Scan(&st.UserID, &keys, &st.LastRunAt, &st.LastEmailSentAt, &status, &ex)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("state: %w", err)
	}

	st.LastStatus, st.LastError = deref(status), deref(ex)
	st.CurrentKeys = parseKeys(keys)
	return &st, nil
}

func (s *Store) UpsertState(ctx context.Context, u storage.StateUpdate) error {
	var keys any
	if u.Keys != nil {
		data, err := json.Marshal(u.Keys)
		if err != nil {
			return fmt.Errorf("marshal keys: %w", err)
		}
		keys = string(data)
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO user_state (
		   user_id, current_job_keys_jsonb, last_run_at, last_email_sent_at,
		   last_status, last_error, updated_at
		 )
		 VALUES ($1, $2::jsonb, NOW(), CASE WHEN $3 THEN NOW() ELSE NULL END, $4, $5, NOW())
		 ON CONFLICT (user_id) DO UPDATE SET
		   current_job_keys_jsonb = COALESCE(EXCLUDED.current_job_keys_jsonb, user_state.current_job_keys_jsonb),
		   last_run_at = NOW(),
		   last_email_sent_at = CASE WHEN $3 THEN NOW() ELSE user_state.last_email_sent_at END,
		   last_status = EXCLUDED.last_status,
		   last_error = EXCLUDED.last_error,
		   updated_at = NOW()`,
		u.UserID, keys, u.EmailSent, u.Status, storage.NullString(u.Error),
	)
	if err != nil {
		return fmt.Errorf("upsertState: %w", err)
	}
	return nil
}

func (s *Store) InsertRunLog(ctx context.Context, l storage.RunLog) error {
	var sources any
	if l.Sources != nil {
		data, err := json.Marshal(l.Sources)
		if err != nil {
			return fmt.Errorf("marshal sources: %w", err)
		}
		sources = string(data)
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO run_logs (
		   user_id, run_type, status, fetched_jobs_count, keyword_jobs_count,
		   emailed_jobs_count, sources_used_jsonb, error_message, started_at, finished_at
		 )
		 VALUES ($1, $2, $3, $4, $5, $6, $7::jsonb, $8, NOW(), NOW())`,
		l.UserID, l.RunType, l.Status, l.Fetched, l.KeywordMatched, l.Emailed, sources, storage.NullString(l.Error),
	)
	if err != nil {
		return fmt.Errorf("insertRunLog: %w", err)
	}
	return nil
}

func scanUser(row pgx.Row) (storage.User, error) {
	var (
		u  storage.User
		tz *string
	)
	if err := row.Scan(&u.ID, &u.Username, &u.EmailTo, &u.Active, &tz); err != nil {
		return u, err
	}
	u.Timezone = deref(tz)
	return u, nil
}

func parseKeys(data []byte) []string {
	if len(data) == 0 {
		return nil
	}
	var keys []string
	if err := json.Unmarshal(data, &keys); err != nil {
		return nil
	}
	return keys
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

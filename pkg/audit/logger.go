// Package audit writes a per-call record of reasoning requests to a
// dedicated SQLite database. Bodies are stored only after sanitization and
// are size-capped.
package audit

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/silli-ai/reasoner/pkg/models"
)

// Logger writes and queries audit entries.
type Logger struct {
	db   *sql.DB
	cfg  models.AuditConfig
	done chan struct{}
	wg   sync.WaitGroup
}

// New opens the audit SQLite database and creates the schema.
func New(cfg models.AuditConfig) (*Logger, error) {
	db, err := sql.Open("sqlite", cfg.DBPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open audit db: %w", err)
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate audit db: %w", err)
	}

	l := &Logger{
		db:   db,
		cfg:  cfg,
		done: make(chan struct{}),
	}

	l.wg.Add(1)
	go l.retentionLoop()

	return l, nil
}

func migrate(db *sql.DB) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS reason_log (
		request_id    TEXT PRIMARY KEY,
		family_hash   TEXT NOT NULL,
		family_prefix TEXT NOT NULL,
		dyad          TEXT NOT NULL,
		model         TEXT,
		cache_status  TEXT NOT NULL,
		status        TEXT NOT NULL,
		request_body  TEXT,
		response_body TEXT,
		latency_ms    INTEGER,
		created_at    DATETIME NOT NULL DEFAULT (datetime('now'))
	)`)
	if err != nil {
		return err
	}
	_, err = db.Exec(`CREATE INDEX IF NOT EXISTS idx_reason_dyad ON reason_log(dyad)`)
	if err != nil {
		return err
	}
	_, err = db.Exec(`CREATE INDEX IF NOT EXISTS idx_reason_created ON reason_log(created_at)`)
	if err != nil {
		return err
	}
	_, err = db.Exec(`CREATE INDEX IF NOT EXISTS idx_reason_prefix ON reason_log(family_prefix)`)
	return err
}

// Log inserts an audit entry, truncating bodies to the configured cap.
func (l *Logger) Log(ctx context.Context, entry models.AuditEntry) error {
	if l == nil || l.db == nil {
		return nil
	}

	reqBody := entry.RequestBody
	respBody := entry.ResponseBody
	if l.cfg.MaxBodySize > 0 {
		if len(reqBody) > l.cfg.MaxBodySize {
			reqBody = reqBody[:l.cfg.MaxBodySize]
		}
		if len(respBody) > l.cfg.MaxBodySize {
			respBody = respBody[:l.cfg.MaxBodySize]
		}
	}

	_, err := l.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO reason_log
		(request_id, family_hash, family_prefix, dyad, model, cache_status,
		 status, request_body, response_body, latency_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.RequestID, entry.FamilyHash, entry.FamilyPrefix,
		entry.Dyad, entry.Model, entry.CacheStatus, entry.Status,
		reqBody, respBody, entry.LatencyMs, entry.CreatedAt,
	)
	return err
}

// Query returns audit entries matching the given options, newest first.
func (l *Logger) Query(ctx context.Context, opts models.AuditQueryOpts) ([]models.AuditEntry, error) {
	q := `SELECT request_id, family_hash, family_prefix, dyad, model, cache_status,
		status, request_body, response_body, latency_ms, created_at
		FROM reason_log WHERE 1=1`
	var args []any

	if opts.RequestID != "" {
		q += " AND request_id = ?"
		args = append(args, opts.RequestID)
	}
	if opts.Dyad != "" {
		q += " AND dyad = ?"
		args = append(args, opts.Dyad)
	}
	if opts.Model != "" {
		q += " AND model = ?"
		args = append(args, opts.Model)
	}
	if opts.CacheStatus != "" {
		q += " AND cache_status = ?"
		args = append(args, opts.CacheStatus)
	}
	if opts.FamilyPrefix != "" {
		q += " AND family_prefix = ?"
		args = append(args, opts.FamilyPrefix)
	}
	if !opts.Since.IsZero() {
		q += " AND created_at >= ?"
		args = append(args, opts.Since)
	}

	q += " ORDER BY created_at DESC"

	limit := opts.Limit
	if limit <= 0 {
		limit = 100
	}
	q += " LIMIT ?"
	args = append(args, limit)

	rows, err := l.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query audit: %w", err)
	}
	defer rows.Close()

	var entries []models.AuditEntry
	for rows.Next() {
		var e models.AuditEntry
		var model sql.NullString
		if err := rows.Scan(
			&e.RequestID, &e.FamilyHash, &e.FamilyPrefix, &e.Dyad,
			&model, &e.CacheStatus, &e.Status,
			&e.RequestBody, &e.ResponseBody, &e.LatencyMs, &e.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan audit row: %w", err)
		}
		e.Model = model.String
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Stats returns aggregate counts grouped by dyad and day.
func (l *Logger) Stats(ctx context.Context) ([]models.AuditStat, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT dyad, date(created_at) as day, count(*) as cnt
		 FROM reason_log GROUP BY dyad, day ORDER BY day DESC, dyad`)
	if err != nil {
		return nil, fmt.Errorf("audit stats: %w", err)
	}
	defer rows.Close()

	var stats []models.AuditStat
	for rows.Next() {
		var s models.AuditStat
		var day sql.NullString
		if err := rows.Scan(&s.Dyad, &day, &s.Count); err != nil {
			return nil, fmt.Errorf("scan audit stat: %w", err)
		}
		s.Day = day.String
		stats = append(stats, s)
	}
	return stats, rows.Err()
}

// Cleanup deletes entries older than the configured retention period.
func (l *Logger) Cleanup(ctx context.Context) (int64, error) {
	cutoff := time.Now().AddDate(0, 0, -l.cfg.RetentionDays)
	res, err := l.db.ExecContext(ctx,
		`DELETE FROM reason_log WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("audit cleanup: %w", err)
	}
	return res.RowsAffected()
}

// Close stops the retention goroutine and closes the database.
func (l *Logger) Close() error {
	close(l.done)
	l.wg.Wait()
	return l.db.Close()
}

func (l *Logger) retentionLoop() {
	defer l.wg.Done()
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-l.done:
			return
		case <-ticker.C:
			_, _ = l.Cleanup(context.Background())
		}
	}
}

// HashFamilyID returns the SHA-256 hex hash and 8-char prefix for a family
// identifier, so audit rows never store the raw ID.
func HashFamilyID(id string) (hash, prefix string) {
	h := sha256.Sum256([]byte(id))
	hash = hex.EncodeToString(h[:])
	if len(id) > 8 {
		prefix = id[:8]
	} else {
		prefix = id
	}
	return hash, prefix
}

package sqlite

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"dealwatch/pkg/errors"
	"dealwatch/pkg/logger"
)

const schema = `
CREATE TABLE IF NOT EXISTS seen_items (
	item_id    INTEGER PRIMARY KEY,
	first_seen INTEGER NOT NULL,
	rule_name  TEXT,
	title      TEXT
);

CREATE TABLE IF NOT EXISTS scraper_meta (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
`

const lastCycleKey = "last_cycle_completed_at"

// SeenStore is the durable ledger of already-processed listing ids. It is
// what makes "seen" meaningful across scheduler restarts: a listing marked
// here is never re-evaluated or re-notified by later cycles.
type SeenStore struct {
	db  *sqlx.DB
	log *logger.Logger
}

// Open opens (and if needed creates) the ledger database at path
func Open(path string) (*SeenStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.Wrap(err, "create ledger directory")
		}
	}

	db, err := sqlx.Connect("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, errors.Wrap(err, "open ledger database")
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "init ledger schema")
	}

	return &SeenStore{
		db:  db,
		log: logger.Get().With("component", "seen_store"),
	}, nil
}

// IsSeen reports whether an item id has already been processed. A storage
// error reads as "not seen"; duplicate notification is preferred over a
// silently dropped listing.
func (s *SeenStore) IsSeen(ctx context.Context, itemID int64) bool {
	var one int
	err := s.db.GetContext(ctx, &one, `SELECT 1 FROM seen_items WHERE item_id = ?`, itemID)
	if err == sql.ErrNoRows {
		return false
	}
	if err != nil {
		s.log.Errorw("seen lookup failed, assuming unseen", "item_id", itemID, "error", err)
		return false
	}
	return true
}

// MarkSeen records an item id as processed. Re-marking an already-seen id is
// a no-op and never an error; the first-seen time is preserved.
func (s *SeenStore) MarkSeen(ctx context.Context, itemID int64, ruleName, title string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO seen_items (item_id, first_seen, rule_name, title)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (item_id) DO NOTHING`,
		itemID, time.Now().Unix(), ruleName, title,
	)
	return errors.Wrapf(err, "mark item %d seen", itemID)
}

// Cleanup deletes records older than maxAge and returns the number removed
func (s *SeenStore) Cleanup(ctx context.Context, maxAge time.Duration) (int64, error) {
	cutoff := time.Now().Add(-maxAge).Unix()

	res, err := s.db.ExecContext(ctx, `DELETE FROM seen_items WHERE first_seen < ?`, cutoff)
	if err != nil {
		return 0, errors.Wrap(err, "cleanup seen items")
	}

	removed, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "cleanup rows affected")
	}
	return removed, nil
}

// Count returns the number of ledger records
func (s *SeenStore) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM seen_items`); err != nil {
		return 0, errors.Wrap(err, "count seen items")
	}
	return n, nil
}

// LastCompletedAt returns the completion time of the most recent cycle, if
// one has been recorded. Used to preserve poll cadence across restarts.
func (s *SeenStore) LastCompletedAt(ctx context.Context) (time.Time, bool) {
	var raw string
	err := s.db.GetContext(ctx, &raw, `SELECT value FROM scraper_meta WHERE key = ?`, lastCycleKey)
	if err != nil {
		if err != sql.ErrNoRows {
			s.log.Errorw("last cycle lookup failed", "error", err)
		}
		return time.Time{}, false
	}

	unix, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, false
	}
	return time.Unix(unix, 0), true
}

// SetLastCompletedAt records the completion time of a cycle
func (s *SeenStore) SetLastCompletedAt(ctx context.Context, t time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO scraper_meta (key, value) VALUES (?, ?)
		ON CONFLICT (key) DO UPDATE SET value = excluded.value`,
		lastCycleKey, strconv.FormatInt(t.Unix(), 10),
	)
	return errors.Wrap(err, "record cycle completion")
}

// Close closes the underlying database
func (s *SeenStore) Close() error {
	return s.db.Close()
}

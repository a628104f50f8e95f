package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/goccy/go-json"
	_ "modernc.org/sqlite"

	"sitebeep/internal/core/model"
)

const sqliteFileName = "state.db"

// Persisted keys, named as the extension names them in chrome.storage.
const (
	keyIsActive        = "isActive"
	keyURLList         = "urlList"
	keyVolume          = "volume"
	keyDisabledUntil   = "disabledUntil"
	keyLastVersionHash = "lastVersionHash"
)

const schema = `CREATE TABLE IF NOT EXISTS preferences (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
)`

// SQLiteStore keeps preferences as key/value rows.
type SQLiteStore struct {
	mu sync.Mutex
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the database at path.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create state directory: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open state database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create preferences table: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// CurrentState reads every key, falling back to defaults for missing ones.
func (store *SQLiteStore) CurrentState() (model.Preferences, error) {
	store.mu.Lock()
	defer store.mu.Unlock()
	if store.db == nil {
		return model.Preferences{}, ErrClosed
	}
	return store.load(store.db)
}

// Update applies mutate inside a transaction.
func (store *SQLiteStore) Update(mutate func(*model.Preferences)) error {
	store.mu.Lock()
	defer store.mu.Unlock()
	if store.db == nil {
		return ErrClosed
	}

	tx, err := store.db.Begin()
	if err != nil {
		return fmt.Errorf("begin update: %w", err)
	}
	defer tx.Rollback()

	prefs, err := store.load(tx)
	if err != nil {
		return err
	}
	mutate(&prefs)

	rows, err := encodeRows(prefs)
	if err != nil {
		return err
	}
	for key, value := range rows {
		if _, err := tx.Exec(
			`INSERT INTO preferences (key, value) VALUES (?, ?)
			 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
			key, value,
		); err != nil {
			return fmt.Errorf("write %s: %w", key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit update: %w", err)
	}
	return nil
}

// Close releases the database.
func (store *SQLiteStore) Close() error {
	store.mu.Lock()
	defer store.mu.Unlock()
	if store.db == nil {
		return nil
	}
	err := store.db.Close()
	store.db = nil
	return err
}

type queryer interface {
	Query(query string, args ...any) (*sql.Rows, error)
}

func (store *SQLiteStore) load(q queryer) (model.Preferences, error) {
	prefs := model.DefaultPreferences()

	rows, err := q.Query(`SELECT key, value FROM preferences`)
	if err != nil {
		return prefs, fmt.Errorf("query preferences: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return prefs, fmt.Errorf("scan preference: %w", err)
		}
		if err := decodeRow(&prefs, key, value); err != nil {
			return prefs, err
		}
	}
	if err := rows.Err(); err != nil {
		return prefs, fmt.Errorf("iterate preferences: %w", err)
	}
	return prefs, nil
}

func decodeRow(prefs *model.Preferences, key, value string) error {
	switch key {
	case keyIsActive:
		active, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("parse %s: %w", key, err)
		}
		prefs.Active = active
	case keyURLList:
		var urls []string
		if err := json.Unmarshal([]byte(value), &urls); err != nil {
			return fmt.Errorf("parse %s: %w", key, err)
		}
		if urls != nil {
			prefs.URLList = urls
		}
	case keyVolume:
		volume, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("parse %s: %w", key, err)
		}
		if model.ValidVolume(volume) {
			prefs.Volume = volume
		}
	case keyDisabledUntil:
		if err := prefs.Suppression.UnmarshalText([]byte(value)); err != nil {
			return fmt.Errorf("parse %s: %w", key, err)
		}
	case keyLastVersionHash:
		hash, err := strconv.ParseUint(value, 10, 32)
		if err != nil {
			return fmt.Errorf("parse %s: %w", key, err)
		}
		prefs.LastVersionHash = uint32(hash)
	}
	return nil
}

func encodeRows(prefs model.Preferences) (map[string]string, error) {
	urls := prefs.URLList
	if urls == nil {
		urls = []string{}
	}
	urlJSON, err := json.Marshal(urls)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", keyURLList, err)
	}
	disabledUntil, err := prefs.Suppression.MarshalText()
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", keyDisabledUntil, err)
	}
	return map[string]string{
		keyIsActive:        strconv.FormatBool(prefs.Active),
		keyURLList:         string(urlJSON),
		keyVolume:          strconv.Itoa(prefs.Volume),
		keyDisabledUntil:   string(disabledUntil),
		keyLastVersionHash: strconv.FormatUint(uint64(prefs.LastVersionHash), 10),
	}, nil
}

// Package settings persists the clock's user-adjustable configuration
// across power cycles.
package settings

import (
	"database/sql"
	"fmt"
	"strconv"

	_ "github.com/mattn/go-sqlite3"
)

const initDatabase = `
CREATE TABLE IF NOT EXISTS settings (key text not null primary key, value text not null);
`

// Settings holds everything the user can adjust from the front panel.
type Settings struct {
	Brightness int    // display dimming level, 0 through 15
	Timezone   string // IANA zone name for the clock face
	Hour24     bool   // 24-hour face instead of 12-hour
	FlashColon bool   // pulse the colon at one-second intervals
	WifiSSID   string // last network successfully joined
}

// Defaults are the settings a clock ships with.
func Defaults() Settings {
	return Settings{
		Brightness: 0,
		Timezone:   "America/Chicago",
		Hour24:     false,
		FlashColon: true,
	}
}

// Store reads and writes settings in a sqlite database.
type Store struct {
	db *sql.DB
}

// Open opens or creates the settings database at filename.
func Open(filename string) (*Store, error) {
	db, err := sql.Open("sqlite3", filename)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if _, err := db.Exec(initDatabase); err != nil {
		db.Close()
		return nil, fmt.Errorf("init database: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Load reads the stored settings.  Missing keys keep their defaults and
// values that don't parse are skipped, so a damaged database degrades to
// a usable clock instead of a crash.  On error, the defaults come back
// along with it.
func (s *Store) Load() (Settings, error) {
	out := Defaults()
	rows, err := s.db.Query("select key, value from settings")
	if err != nil {
		return out, fmt.Errorf("read settings: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return Defaults(), fmt.Errorf("scan settings row: %w", err)
		}
		switch key {
		case "brightness":
			if v, err := strconv.Atoi(value); err == nil && v >= 0 && v <= 15 {
				out.Brightness = v
			}
		case "timezone":
			if value != "" {
				out.Timezone = value
			}
		case "hour_24":
			if v, err := strconv.ParseBool(value); err == nil {
				out.Hour24 = v
			}
		case "flash_colon":
			if v, err := strconv.ParseBool(value); err == nil {
				out.FlashColon = v
			}
		case "wifi_ssid":
			out.WifiSSID = value
		}
	}
	if err := rows.Err(); err != nil {
		return Defaults(), fmt.Errorf("read settings: %w", err)
	}
	return out, nil
}

// Save writes cfg, replacing whatever was stored before.  The write is one
// transaction; a pulled power cord leaves either the old settings or the
// new ones, never a mix.
func (s *Store) Save(cfg Settings) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin save: %w", err)
	}
	defer tx.Rollback()
	stmt, err := tx.Prepare("insert into settings values(?, ?) on conflict(key) do update set value = excluded.value")
	if err != nil {
		return fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()
	for _, kv := range []struct{ key, value string }{
		{"brightness", strconv.Itoa(cfg.Brightness)},
		{"timezone", cfg.Timezone},
		{"hour_24", strconv.FormatBool(cfg.Hour24)},
		{"flash_colon", strconv.FormatBool(cfg.FlashColon)},
		{"wifi_ssid", cfg.WifiSSID},
	} {
		if _, err := stmt.Exec(kv.key, kv.value); err != nil {
			return fmt.Errorf("store %v: %w", kv.key, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save: %w", err)
	}
	return nil
}

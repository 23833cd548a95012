package database

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/kate8382/error-logger-viewer/config"
)

type sqlitePoolConfig struct {
	maxOpenConns int
	maxIdleConns int
	maxIdleSec   int
	maxLifeSec   int
}

// sanitizeSQLitePoolConfig clamps pool settings: at least one open
// connection, idle connections within [0, maxOpenConns], no negative durations.
func sanitizeSQLitePoolConfig(cfg sqlitePoolConfig) sqlitePoolConfig {
	if cfg.maxOpenConns < 1 {
		cfg.maxOpenConns = 1
	}
	if cfg.maxIdleConns < 0 {
		cfg.maxIdleConns = 0
	}
	if cfg.maxIdleConns > cfg.maxOpenConns {
		cfg.maxIdleConns = cfg.maxOpenConns
	}
	if cfg.maxIdleSec < 0 {
		cfg.maxIdleSec = 0
	}
	if cfg.maxLifeSec < 0 {
		cfg.maxLifeSec = 0
	}
	return cfg
}

func currentSQLitePoolConfig(settings *config.Config) sqlitePoolConfig {
	return sanitizeSQLitePoolConfig(sqlitePoolConfig{
		maxOpenConns: settings.SQLiteMaxOpenConns,
		maxIdleConns: settings.SQLiteMaxIdleConns,
		maxIdleSec:   settings.SQLiteConnMaxIdleSec,
		maxLifeSec:   settings.SQLiteConnMaxLifeSec,
	})
}

// sqlitePragmas lists the PRAGMAs implied by settings in the driver's
// "name(value)" form.
func sqlitePragmas(settings *config.Config) []string {
	if !settings.SQLitePragmasEnabled {
		return nil
	}

	var pragmas []string
	if settings.SQLiteBusyTimeoutMS > 0 {
		pragmas = append(pragmas, fmt.Sprintf("busy_timeout(%d)", settings.SQLiteBusyTimeoutMS))
	}
	if journalMode := normalizeSQLiteJournalMode(settings.SQLiteJournalMode); journalMode != "" {
		pragmas = append(pragmas, fmt.Sprintf("journal_mode(%s)", journalMode))
	}
	if synchronous := normalizeSQLiteSynchronous(settings.SQLiteSynchronous); synchronous != "" {
		pragmas = append(pragmas, fmt.Sprintf("synchronous(%s)", synchronous))
	}
	if settings.SQLiteForeignKeys {
		pragmas = append(pragmas, "foreign_keys(1)")
	} else {
		pragmas = append(pragmas, "foreign_keys(0)")
	}
	return pragmas
}

// buildSQLiteDSN appends the configured PRAGMAs to dbPath as _pragma query
// parameters, keeping any parameters already present.
func buildSQLiteDSN(dbPath string, settings *config.Config) string {
	base, rawQuery, _ := strings.Cut(dbPath, "?")
	query, _ := url.ParseQuery(rawQuery)

	for _, p := range sqlitePragmas(settings) {
		query.Add("_pragma", p)
	}

	if len(query) == 0 {
		return base
	}
	return base + "?" + query.Encode()
}

// normalizeSQLiteJournalMode returns the uppercased journal mode, or "" when
// SQLite would not accept it.
func normalizeSQLiteJournalMode(value string) string {
	value = strings.ToUpper(strings.TrimSpace(value))
	switch value {
	case "WAL", "DELETE", "TRUNCATE", "PERSIST", "MEMORY", "OFF":
		return value
	default:
		return ""
	}
}

// normalizeSQLiteSynchronous returns the uppercased synchronous level, or ""
// when SQLite would not accept it.
func normalizeSQLiteSynchronous(value string) string {
	value = strings.ToUpper(strings.TrimSpace(value))
	switch value {
	case "OFF", "NORMAL", "FULL", "EXTRA", "0", "1", "2", "3":
		return value
	default:
		return ""
	}
}

package config

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/kate8382/error-logger-viewer/version"
)

// Config holds the runtime configuration of the error logger.
type Config struct {
	LogLevel             string
	LogFilePath          string
	Host                 string
	Port                 int
	DocumentPath         string // JSON document holding the server's records
	WatchDocument        bool
	CORSOrigins          string
	DatabaseURL          string // SQLite file backing local mode
	LocalKey             string // key of the local record collection
	PendingKey           string // key of undelivered captured records
	SQLitePragmasEnabled bool
	SQLiteBusyTimeoutMS  int
	SQLiteJournalMode    string
	SQLiteSynchronous    string
	SQLiteForeignKeys    bool
	SQLiteMaxOpenConns   int
	SQLiteMaxIdleConns   int
	SQLiteConnMaxIdleSec int
	SQLiteConnMaxLifeSec int
	CLIMode              bool
	CLIServer            string // server name or URL for remote mode, empty for the configured default
	Mode                 string // initial access mode: remote or local

	// Tunable limits and timeouts
	HTTPClientTimeoutSeconds int
	MaxPendingErrors         int
	ChangeFeedBufferSize     int
}

// Settings is the global configuration instance populated from environment variables and flags.
var Settings *Config

func init() {
	Settings = &Config{
		LogLevel:             getEnv("LOG_LEVEL", "INFO"),
		LogFilePath:          getEnv("LOG_FILE", "./error-logger.log"),
		Host:                 getEnv("HOST", "0.0.0.0"),
		Port:                 getEnvInt("PORT", 3000),
		DocumentPath:         getEnv("DB_FILE", "db.json"),
		WatchDocument:        getEnvBool("WATCH_DOCUMENT", true),
		CORSOrigins:          getEnv("CORS_ORIGINS", "*"),
		DatabaseURL:          getEnv("LOCAL_DB", "local.db"),
		LocalKey:             getEnv("LOCAL_KEY", "demoErrors"),
		PendingKey:           getEnv("PENDING_KEY", "pendingErrors"),
		SQLitePragmasEnabled: getEnvBool("SQLITE_PRAGMAS_ENABLED", true),
		SQLiteBusyTimeoutMS:  getEnvInt("SQLITE_BUSY_TIMEOUT_MS", 5000),
		SQLiteJournalMode:    getEnv("SQLITE_JOURNAL_MODE", "WAL"),
		SQLiteSynchronous:    getEnv("SQLITE_SYNCHRONOUS", "NORMAL"),
		SQLiteForeignKeys:    getEnvBool("SQLITE_FOREIGN_KEYS", true),
		SQLiteMaxOpenConns:   getEnvInt("SQLITE_MAX_OPEN_CONNS", 1),
		SQLiteMaxIdleConns:   getEnvInt("SQLITE_MAX_IDLE_CONNS", 1),
		SQLiteConnMaxIdleSec: getEnvInt("SQLITE_CONN_MAX_IDLE_SECONDS", 300),
		SQLiteConnMaxLifeSec: getEnvInt("SQLITE_CONN_MAX_LIFETIME_SECONDS", 0),
		CLIMode:              getEnvBool("CLI_MODE", false),
		CLIServer:            getEnv("SERVER_URL", ""),
		Mode:                 getEnv("MODE", "remote"),

		HTTPClientTimeoutSeconds: getEnvInt("HTTP_CLIENT_TIMEOUT_SECONDS", 30),
		MaxPendingErrors:         getEnvInt("MAX_PENDING_ERRORS", 100),
		ChangeFeedBufferSize:     getEnvInt("CHANGE_FEED_BUFFER_SIZE", 256),
	}
}

// ParseFlags parses command-line flags and applies them over the environment defaults.
// It handles --help (prints usage and exits) and --version (prints build info and exits).
func ParseFlags() {
	flag.Usage = func() {
		out := flag.CommandLine.Output()
		fmt.Fprintf(out, "Error Logger - client error collector and viewer\n\n")
		fmt.Fprintf(out, "Usage: %s [options]\n\n", os.Args[0])
		fmt.Fprintln(out, "Options:")
		flag.PrintDefaults()
		fmt.Fprintln(out, "\nEnvironment variables:")
		fmt.Fprintln(out, "  LOG_LEVEL                         Log level (DEBUG, INFO, WARN, ERROR)")
		fmt.Fprintln(out, "  LOG_FILE                          Log file path, empty for stderr (default ./error-logger.log)")
		fmt.Fprintln(out, "  HOST                              HTTP bind host (default 0.0.0.0)")
		fmt.Fprintln(out, "  PORT                              HTTP server port (default 3000)")
		fmt.Fprintln(out, "  DB_FILE                           Record document path (default db.json)")
		fmt.Fprintln(out, "  WATCH_DOCUMENT                    Watch the document for external edits (true/false, default true)")
		fmt.Fprintln(out, "  CORS_ORIGINS                      Allowed origins, comma separated (default *)")
		fmt.Fprintln(out, "  LOCAL_DB                          SQLite file for local mode (default local.db)")
		fmt.Fprintln(out, "  LOCAL_KEY                         Key of the local record collection (default demoErrors)")
		fmt.Fprintln(out, "  PENDING_KEY                       Key of undelivered captured errors (default pendingErrors)")
		fmt.Fprintln(out, "  MODE                              Initial access mode for the console: remote or local (default remote)")
		fmt.Fprintln(out, "  CLI_MODE                          Run the operator console instead of the server (default false)")
		fmt.Fprintln(out, "  SERVER_URL                        Server name or URL for remote mode (default: default server in ~/.error-logger/config.yaml)")
		fmt.Fprintln(out, "  SQLITE_PRAGMAS_ENABLED            Enable SQLite PRAGMAs (true/false, default true)")
		fmt.Fprintln(out, "  SQLITE_BUSY_TIMEOUT_MS            SQLite busy_timeout in milliseconds (default 5000)")
		fmt.Fprintln(out, "  SQLITE_JOURNAL_MODE               SQLite journal_mode (default WAL)")
		fmt.Fprintln(out, "  SQLITE_SYNCHRONOUS                SQLite synchronous (default NORMAL)")
		fmt.Fprintln(out, "  SQLITE_FOREIGN_KEYS               Enable SQLite foreign_keys (true/false, default true)")
		fmt.Fprintln(out, "  SQLITE_MAX_OPEN_CONNS             SQLite MaxOpenConns (default 1)")
		fmt.Fprintln(out, "  SQLITE_MAX_IDLE_CONNS             SQLite MaxIdleConns (default 1)")
		fmt.Fprintln(out, "  SQLITE_CONN_MAX_IDLE_SECONDS      SQLite ConnMaxIdleTime in seconds (default 300)")
		fmt.Fprintln(out, "  SQLITE_CONN_MAX_LIFETIME_SECONDS  SQLite ConnMaxLifetime in seconds (default 0)")
		fmt.Fprintln(out, "  HTTP_CLIENT_TIMEOUT_SECONDS       Remote client timeout in seconds (default 30)")
		fmt.Fprintln(out, "  MAX_PENDING_ERRORS                Captured errors kept while the store is unreachable (default 100)")
		fmt.Fprintln(out, "  CHANGE_FEED_BUFFER_SIZE           Per-subscriber change feed buffer (default 256)")
	}

	host := flag.String("host", Settings.Host, "HTTP bind host (overrides HOST)")
	port := flag.Int("port", Settings.Port, "HTTP server port (overrides PORT)")
	document := flag.String("db", Settings.DocumentPath, "Record document path (overrides DB_FILE)")
	watch := flag.Bool("watch", Settings.WatchDocument, "Watch the document for external edits (overrides WATCH_DOCUMENT)")
	localDB := flag.String("local-db", Settings.DatabaseURL, "SQLite file for local mode (overrides LOCAL_DB)")
	localKey := flag.String("local-key", Settings.LocalKey, "Key of the local record collection (overrides LOCAL_KEY)")
	sqlitePragmasEnabled := flag.Bool("sqlite-pragmas", Settings.SQLitePragmasEnabled, "Enable SQLite PRAGMAs (overrides SQLITE_PRAGMAS_ENABLED)")
	sqliteBusyTimeoutMS := flag.Int("sqlite-busy-timeout-ms", Settings.SQLiteBusyTimeoutMS, "SQLite busy_timeout in milliseconds (overrides SQLITE_BUSY_TIMEOUT_MS)")
	sqliteJournalMode := flag.String("sqlite-journal-mode", Settings.SQLiteJournalMode, "SQLite journal_mode (overrides SQLITE_JOURNAL_MODE)")
	sqliteSynchronous := flag.String("sqlite-synchronous", Settings.SQLiteSynchronous, "SQLite synchronous (overrides SQLITE_SYNCHRONOUS)")
	sqliteForeignKeys := flag.Bool("sqlite-foreign-keys", Settings.SQLiteForeignKeys, "Enable SQLite foreign_keys PRAGMA (overrides SQLITE_FOREIGN_KEYS)")
	sqliteMaxOpenConns := flag.Int("sqlite-max-open-conns", Settings.SQLiteMaxOpenConns, "SQLite MaxOpenConns (overrides SQLITE_MAX_OPEN_CONNS)")
	sqliteMaxIdleConns := flag.Int("sqlite-max-idle-conns", Settings.SQLiteMaxIdleConns, "SQLite MaxIdleConns (overrides SQLITE_MAX_IDLE_CONNS)")
	sqliteConnMaxIdleSec := flag.Int("sqlite-conn-max-idle-seconds", Settings.SQLiteConnMaxIdleSec, "SQLite ConnMaxIdleTime in seconds (overrides SQLITE_CONN_MAX_IDLE_SECONDS)")
	sqliteConnMaxLifeSec := flag.Int("sqlite-conn-max-lifetime-seconds", Settings.SQLiteConnMaxLifeSec, "SQLite ConnMaxLifetime in seconds (overrides SQLITE_CONN_MAX_LIFETIME_SECONDS)")
	logLevel := flag.String("log-level", Settings.LogLevel, "Log level: DEBUG, INFO, WARN, ERROR (overrides LOG_LEVEL)")
	logFile := flag.String("log-file", Settings.LogFilePath, "Log file path (overrides LOG_FILE)")
	cliMode := flag.Bool("cli", Settings.CLIMode, "Run the operator console instead of the server")
	cliServer := flag.String("server", Settings.CLIServer, "Server name or URL for remote mode (overrides SERVER_URL)")
	mode := flag.String("mode", Settings.Mode, "Initial access mode: remote or local (overrides MODE)")

	showHelp := flag.Bool("help", false, "Show help and exit")
	showVersion := flag.Bool("version", false, "Show version and exit")

	flag.Parse()

	if *showVersion {
		fmt.Println(version.GetBuildInfo())
		os.Exit(0)
	}

	if *showHelp {
		flag.Usage()
		os.Exit(0)
	}

	Settings.Host = *host
	Settings.Port = *port
	Settings.DocumentPath = *document
	Settings.WatchDocument = *watch
	Settings.DatabaseURL = *localDB
	Settings.LocalKey = *localKey
	Settings.SQLitePragmasEnabled = *sqlitePragmasEnabled
	Settings.SQLiteBusyTimeoutMS = *sqliteBusyTimeoutMS
	Settings.SQLiteJournalMode = *sqliteJournalMode
	Settings.SQLiteSynchronous = *sqliteSynchronous
	Settings.SQLiteForeignKeys = *sqliteForeignKeys
	Settings.SQLiteMaxOpenConns = *sqliteMaxOpenConns
	Settings.SQLiteMaxIdleConns = *sqliteMaxIdleConns
	Settings.SQLiteConnMaxIdleSec = *sqliteConnMaxIdleSec
	Settings.SQLiteConnMaxLifeSec = *sqliteConnMaxLifeSec
	Settings.LogLevel = *logLevel
	Settings.LogFilePath = *logFile
	Settings.CLIMode = *cliMode
	Settings.CLIServer = *cliServer
	Settings.Mode = *mode
}

// Addr returns the listen address of the HTTP server.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// AllowedOrigins splits CORSOrigins into a list. A "*" entry allows every origin
// and is reported as an empty list.
func (c *Config) AllowedOrigins() []string {
	var origins []string
	for _, o := range strings.Split(c.CORSOrigins, ",") {
		o = strings.TrimSpace(o)
		if o == "*" {
			return nil
		}
		if o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

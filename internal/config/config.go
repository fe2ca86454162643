package config // package config loads application configuration from environment variables

import (
    "log"  // log is used to report configuration errors and halt execution
    "os"   // os provides access to environment variables
    "time" // time parses request and session durations
)

// Supported values for DB_DRIVER.
const (
    DriverMySQL  = "mysql"
    DriverSQLite = "sqlite3"
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.  MySQL connection fields are only required when
// DBDriver is "mysql"; the embedded SQLite store needs only SQLitePath.
type Config struct {
    Env             string        // application environment (e.g. "dev", "prod")
    Port            string        // HTTP port to listen on
    LogLevel        string        // slog level name (debug, info, warn, error)
    LogFile         string        // optional file the logger tees into
    DBDriver        string        // "mysql" or "sqlite3"
    DBUser          string        // database username
    DBPass          string        // database password (optional)
    DBHost          string        // database host address
    DBPort          string        // database port number
    DBName          string        // database name
    SQLitePath      string        // SQLite file path when DBDriver is sqlite3
    JWTSecret       string        // secret used to sign session credentials
    SessionTTLHours int           // session credential lifetime in hours
    BcryptCost      int           // bcrypt cost for admin secret hashing
    RequestTimeout  time.Duration // upper bound for a single request's store work
}

// SessionTTL returns the session lifetime as a duration.
func (c Config) SessionTTL() time.Duration {
    return time.Duration(c.SessionTTLHours) * time.Hour
}

// Load reads configuration values from environment variables and returns a
// Config.  Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message.
func Load() Config {
    cfg := Config{
        Env:             must("APP_ENV"),                        // environment (dev/test/prod)
        Port:            must("APP_PORT"),                       // port to bind the HTTP server
        LogLevel:        envStr("LOG_LEVEL", "info"),            // logger verbosity
        LogFile:         os.Getenv("LOG_FILE"),                  // empty disables file output
        DBDriver:        envStr("DB_DRIVER", DriverMySQL),       // store backend
        SQLitePath:      envStr("SQLITE_PATH", "data/parking.db"),
        JWTSecret:       must("JWT_SECRET"),                     // secret used for signing JWTs
        SessionTTLHours: envInt("SESSION_TTL_HOURS", 24),        // credential validity window
        BcryptCost:      envInt("BCRYPT_COST", 10),              // bcrypt cost factor
        RequestTimeout:  envDur("REQUEST_TIMEOUT", 5*time.Second),
    }
    switch cfg.DBDriver {
    case DriverMySQL:
        cfg.DBUser = must("DB_USER")
        cfg.DBPass = os.Getenv("DB_PASS") // empty allowed
        cfg.DBHost = must("DB_HOST")
        cfg.DBPort = must("DB_PORT")
        cfg.DBName = must("DB_NAME")
    case DriverSQLite:
    default:
        log.Fatalf("unsupported DB_DRIVER: %q", cfg.DBDriver)
    }
    if cfg.SessionTTLHours < 1 {
        cfg.SessionTTLHours = 24
    }
    return cfg
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
    v, ok := os.LookupEnv(key)
    if !ok || v == "" {
        log.Fatalf("missing required env var: %s", key)
    }
    return v
}

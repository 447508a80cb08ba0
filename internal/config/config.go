package config // package config loads application configuration from environment variables

import (
    "log"     // log reports configuration errors and halts execution
    "os"      // os provides access to environment variables
    "strconv" // strconv converts strings to other types
    "strings" // strings normalizes weekday names
    "time"    // time parses the auction timezone and durations

    "github.com/shopspring/decimal" // decimal parses the minimum increment exactly

    "github.com/weeklymint/nft-auction/internal/schedule" // the weekly rule the loader validates
)

// Config holds all runtime configuration values.  Each field corresponds
// to an environment variable.  The types reflect how the values are used:
// strings for identifiers and secrets, ints for durations and costs.
type Config struct {
    Env            string // application environment (e.g. "dev", "prod")
    Port           string // HTTP port to listen on
    DBUser         string // database username
    DBPass         string // database password (optional)
    DBHost         string // database host address
    DBPort         string // database port number
    DBName         string // database name
    JWTSecret      string // secret used to sign JWTs
    AccessTTLMin   int    // access token time-to-live in minutes
    RefreshTTLDays int    // refresh token time-to-live in days
    BcryptCost     int    // bcrypt cost for password hashing
    BidRetryBudget int    // bounded retry budget of the bid arbiter
    SweepInterval  time.Duration // how often the lifecycle sweep runs
}

// Load reads configuration values from environment variables and returns
// a Config.  Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message.
func Load() Config {
    return Config{
        Env:            must("APP_ENV"),      // environment (dev/test/prod)
        Port:           must("APP_PORT"),     // port to bind the HTTP server
        DBUser:         must("DB_USER"),      // database user
        DBPass:         os.Getenv("DB_PASS"), // database password (empty allowed)
        DBHost:         must("DB_HOST"),      // database host
        DBPort:         must("DB_PORT"),      // database port
        DBName:         must("DB_NAME"),      // database name
        JWTSecret:      must("JWT_SECRET"),   // secret used for signing JWTs
        AccessTTLMin:   mustInt("ACCESS_TOKEN_TTL_MIN"),   // TTL for access tokens in minutes
        RefreshTTLDays: mustInt("REFRESH_TOKEN_TTL_DAYS"), // TTL for refresh tokens in days
        BcryptCost:     mustInt("BCRYPT_COST"),            // bcrypt cost factor
        BidRetryBudget: envInt("BID_RETRY_BUDGET", 5),     // arbiter retry bound
        SweepInterval:  envDur("SWEEP_INTERVAL", 15*time.Second),
    }
}

// AuctionConfig carries the weekly schedule rule and the bidding
// parameters derived from it.  LoadAuction validates everything once at
// startup so the schedule calculator and the arbiter never re-validate.
type AuctionConfig struct {
    Rule         schedule.WeeklyRule // the fixed real-world weekly window
    MinIncrement decimal.Decimal     // default minimum increment for new auctions
}

// LoadAuction reads and validates the auction schedule rule.  Variables:
//   AUCTION_WEEKDAY       – weekday name the window opens (e.g. "Thursday")
//   AUCTION_START         – local start time "HH:MM"
//   AUCTION_DURATION_MIN  – window length in minutes
//   AUCTION_TZ            – IANA timezone the rule is anchored to
//   AUCTION_MIN_INCREMENT – default minimum bid increment (decimal)
// Invalid values abort startup; downstream code treats the rule as
// trusted input.
func LoadAuction() AuctionConfig {
    weekday, err := parseWeekday(must("AUCTION_WEEKDAY"))
    if err != nil {
        log.Fatalf("invalid AUCTION_WEEKDAY: %v", err)
    }
    hour, minute, err := parseClock(must("AUCTION_START"))
    if err != nil {
        log.Fatalf("invalid AUCTION_START: %v", err)
    }
    loc, err := time.LoadLocation(must("AUCTION_TZ"))
    if err != nil {
        log.Fatalf("invalid AUCTION_TZ: %v", err)
    }
    rule := schedule.WeeklyRule{
        Weekday:  weekday,
        Hour:     hour,
        Minute:   minute,
        Duration: time.Duration(mustInt("AUCTION_DURATION_MIN")) * time.Minute,
        Location: loc,
    }
    if err := rule.Validate(); err != nil {
        log.Fatalf("invalid auction schedule rule: %v", err)
    }
    inc, err := decimal.NewFromString(must("AUCTION_MIN_INCREMENT"))
    if err != nil || inc.Sign() <= 0 {
        log.Fatalf("invalid AUCTION_MIN_INCREMENT: %q", os.Getenv("AUCTION_MIN_INCREMENT"))
    }
    return AuctionConfig{Rule: rule, MinIncrement: inc}
}

// parseWeekday maps a weekday name (case-insensitive, full or three-letter
// form) to time.Weekday.
func parseWeekday(s string) (time.Weekday, error) {
    name := strings.ToLower(strings.TrimSpace(s))
    for d := time.Sunday; d <= time.Saturday; d++ {
        full := strings.ToLower(d.String())
        if name == full || name == full[:3] {
            return d, nil
        }
    }
    return 0, &invalidValueError{value: s}
}

// parseClock parses "HH:MM" into hour and minute components.
func parseClock(s string) (int, int, error) {
    t, err := time.Parse("15:04", strings.TrimSpace(s))
    if err != nil {
        return 0, 0, err
    }
    return t.Hour(), t.Minute(), nil
}

type invalidValueError struct{ value string }

func (e *invalidValueError) Error() string { return "unrecognized value " + strconv.Quote(e.value) }

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
    v, ok := os.LookupEnv(key)
    if !ok || v == "" {
        log.Fatalf("missing required env var: %s", key)
    }
    return v
}

// mustInt is like must() but converts the retrieved string into an
// integer.  If conversion fails, the application exits.
func mustInt(key string) int {
    s := must(key)
    n, err := strconv.Atoi(s)
    if err != nil {
        log.Fatalf("invalid int for %s: %q", key, s)
    }
    return n
}


package config

import (
    "os"
    "strconv"
    "strings"
    "time"
)

// CacheConfig tunes the Redis response cache that fronts the layout
// routes.  Floor-plan geometry only changes on an explicit admin
// activation, so a few minutes of staleness is acceptable there; the
// occupancy route is never cached and does not read this config.
//
// Methods restricts caching to the listed HTTP methods.  KeyStrategy
// selects which request parts feed the cache key, Prefix namespaces
// the Redis keys and MaxBodyBytes caps how large a response may be
// before it is skipped.
type CacheConfig struct {
    Enabled      bool
    Methods      map[string]bool
    TTL          time.Duration
    KeyStrategy  string
    Prefix       string
    MaxBodyBytes int
}

// LoadCacheConfig reads the cache settings from the environment,
// falling back to defaults suited to layout data.
func LoadCacheConfig() CacheConfig {
    return CacheConfig{
        Enabled:      getenv("CACHE_ENABLED", "true") == "true",
        Methods:      parseMethods(getenv("CACHE_METHODS", "GET")),
        TTL:          parseDur(getenv("CACHE_TTL", "5m")),
        KeyStrategy:  getenv("CACHE_KEY_STRATEGY", "route_query"),
        Prefix:       getenv("CACHE_PREFIX", "cache"),
        MaxBodyBytes: atoi(getenv("CACHE_MAX_BODY_BYTES", "1048576")),
    }
}

func parseMethods(s string) map[string]bool {
    m := make(map[string]bool)
    for _, p := range strings.Split(s, ",") {
        if p = strings.TrimSpace(strings.ToUpper(p)); p != "" {
            m[p] = true
        }
    }
    return m
}

func getenv(key, def string) string {
    if v := os.Getenv(key); v != "" {
        return v
    }
    return def
}

func atoi(s string) int {
    n, _ := strconv.Atoi(s)
    return n
}

// parseDur falls back to one second so a malformed duration disables
// caching in practice instead of panicking at startup.
func parseDur(s string) time.Duration {
    d, err := time.ParseDuration(s)
    if err != nil {
        return time.Second
    }
    return d
}

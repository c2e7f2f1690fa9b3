package config

import (
    "context"
    "crypto/tls"
    "os"
    "strconv"
    "strings"
    "time"

    "github.com/redis/go-redis/v9"
)

// NewRedisClient builds the Redis client backing the layout response
// cache and the rate limiter.  Address resolution order: REDIS_HOST +
// REDIS_PORT, then REDIS_ADDR, then localhost:6379.  REDIS_PASSWORD,
// REDIS_DB and REDIS_TLS are optional.
//
// Redis is a soft dependency here: when the ping fails the function
// returns nil and the caller runs without caching or throttling
// rather than refusing to serve the floor.
func NewRedisClient() *redis.Client {
    addr := os.Getenv("REDIS_ADDR")
    if host, port := os.Getenv("REDIS_HOST"), os.Getenv("REDIS_PORT"); host != "" && port != "" {
        addr = host + ":" + port
    }
    if addr == "" {
        addr = "localhost:6379"
    }

    db := 0
    if raw := os.Getenv("REDIS_DB"); raw != "" {
        if n, err := strconv.Atoi(raw); err == nil {
            db = n
        }
    }
    var tlsConf *tls.Config
    if v := os.Getenv("REDIS_TLS"); strings.EqualFold(v, "true") || v == "1" {
        tlsConf = &tls.Config{MinVersion: tls.VersionTLS12}
    }

    client := redis.NewClient(&redis.Options{
        Addr:      addr,
        Password:  os.Getenv("REDIS_PASSWORD"),
        DB:        db,
        TLSConfig: tlsConf,
    })

    ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
    defer cancel()
    if err := client.Ping(ctx).Err(); err != nil {
        _ = client.Close()
        return nil
    }
    return client
}

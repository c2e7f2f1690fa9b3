// Package database opens the MySQL pool the repositories run on.
package database

import (
    "context"
    "database/sql"
    "fmt"
    "time"

    _ "github.com/go-sql-driver/mysql"
)

// Pool sizing for the allocation workload: every write is a short
// SELECT ... FOR UPDATE transaction held only for the conflict check
// and insert, so a modest ceiling with few warm idle connections
// beats a large pool of mostly-sleeping sessions.  ConnMaxIdleTime
// returns connections during quiet hours between services.
const (
    maxOpenConns    = 16
    maxIdleConns    = 4
    connMaxLifetime = 15 * time.Minute
    connMaxIdleTime = 2 * time.Minute

    pingTimeout = 5 * time.Second
)

// Open connects to MySQL, configures the pool and verifies the
// connection with a bounded ping.
func Open(user, pass, host, port, name string) (*sql.DB, error) {
    db, err := sql.Open("mysql", dsn(user, pass, host, port, name))
    if err != nil {
        return nil, err
    }

    db.SetMaxOpenConns(maxOpenConns)
    db.SetMaxIdleConns(maxIdleConns)
    db.SetConnMaxLifetime(connMaxLifetime)
    db.SetConnMaxIdleTime(connMaxIdleTime)

    ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
    defer cancel()
    if err := db.PingContext(ctx); err != nil {
        return nil, err
    }
    return db, nil
}

// dsn builds the driver connection string.  parseTime maps DATETIME
// columns to time.Time, and loc=UTC keeps every scanned timestamp in
// the zone the allocation windows are compared in.
func dsn(user, pass, host, port, name string) string {
    auth := user
    if pass != "" {
        auth = user + ":" + pass
    }
    return fmt.Sprintf("%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=true&loc=UTC",
        auth, host, port, name)
}

package main

import (
    "context"
    "log"

    "github.com/joho/godotenv"
    "github.com/labstack/echo/v4"

    "github.com/tavolo/restaurant-seat-allocation/internal/allocation"
    "github.com/tavolo/restaurant-seat-allocation/internal/config"
    "github.com/tavolo/restaurant-seat-allocation/internal/database"
    "github.com/tavolo/restaurant-seat-allocation/internal/handler"
    "github.com/tavolo/restaurant-seat-allocation/internal/middleware"
    "github.com/tavolo/restaurant-seat-allocation/internal/model"
    "github.com/tavolo/restaurant-seat-allocation/internal/queue"
    "github.com/tavolo/restaurant-seat-allocation/internal/repository"
    "github.com/tavolo/restaurant-seat-allocation/internal/router"
    queuepublisher "github.com/tavolo/restaurant-seat-allocation/internal/service"
)

// occupantResolver bridges the two repos behind the export's
// occupant lookup.
type occupantResolver struct {
    reservations *repository.ReservationRepo
    waitlist     *repository.WaitlistRepo
}

func (o occupantResolver) ReservationByID(ctx context.Context, id uint64) (*model.Reservation, error) {
    return o.reservations.GetByID(ctx, id)
}

func (o occupantResolver) WaitlistByID(ctx context.Context, id uint64) (*model.WaitlistEntry, error) {
    return o.waitlist.GetByID(ctx, id)
}

func main() {
    // .env is optional; real deployments set the environment directly.
    _ = godotenv.Load()
    cfg := config.Load()

    db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
    if err != nil {
        log.Fatalf("database: %v", err)
    }
    defer db.Close()

    layouts := repository.NewLayoutRepo(db)
    reservations := repository.NewReservationRepo(db)
    waitlist := repository.NewWaitlistRepo(db)
    allocations := repository.NewAllocationRepo(db)

    engine := allocation.NewEngine(allocations)

    public := handler.NewPublicHandler(layouts, allocations)
    staff := handler.NewStaffHandler(engine, layouts, allocations, reservations, waitlist)
    if cfg.DefaultSeatingMin > 0 {
        staff.DefaultSeatingMin = uint32(cfg.DefaultSeatingMin)
    }
    staff.Publish = queuepublisher.PublishAllocationEvent
    admin := handler.NewAdminHandler(layouts)
    reports := handler.NewReportHandler(layouts, allocations,
        occupantResolver{reservations: reservations, waitlist: waitlist})

    // Consumer failures must not take the API down; the publisher
    // redials on the next event.
    go func() {
        if err := queue.StartAllocationConsumer(); err != nil {
            log.Printf("allocation consumer stopped: %v", err)
        }
    }()

    e := echo.New()

    // Redis is optional: without it the service runs uncached and
    // unthrottled rather than refusing to start.
    var layoutCache echo.MiddlewareFunc
    if rdb := config.NewRedisClient(); rdb != nil {
        e.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))
        layoutCache = middleware.NewRedisCache(config.LoadCacheConfig(), rdb)
    }

    router.RegisterRoutes(e)
    router.RegisterPublic(e, public, layoutCache)
    router.RegisterStaff(e, staff, cfg.JWTSecret)
    router.RegisterAdmin(e, admin, reports, cfg.JWTSecret)

    addr := ":" + cfg.Port
    log.Printf("listening on %s (env=%s)", addr, cfg.Env)
    if err := e.Start(addr); err != nil {
        log.Fatal(err)
    }
}

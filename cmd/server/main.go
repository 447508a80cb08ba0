package main // entry point for the auction API server

import (
    "context"
    "log"

    "github.com/joho/godotenv"
    "github.com/labstack/echo/v4"

    "github.com/weeklymint/nft-auction/internal/config"
    "github.com/weeklymint/nft-auction/internal/database"
    "github.com/weeklymint/nft-auction/internal/engine"
    "github.com/weeklymint/nft-auction/internal/handler"
    "github.com/weeklymint/nft-auction/internal/lifecycle"
    "github.com/weeklymint/nft-auction/internal/middleware"
    "github.com/weeklymint/nft-auction/internal/publisher"
    "github.com/weeklymint/nft-auction/internal/queue"
    "github.com/weeklymint/nft-auction/internal/repository"
    "github.com/weeklymint/nft-auction/internal/router"
)

func main() {
    // .env is optional; real deployments set the environment directly.
    _ = godotenv.Load()

    cfg := config.Load()
    auctionCfg := config.LoadAuction()

    db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
    if err != nil {
        log.Fatalf("database: %v", err)
    }
    defer db.Close()

    // Redis is optional: a nil client disables rate limiting and caching
    // but never blocks bidding.
    rdb := config.NewRedisClient()
    if rdb == nil {
        log.Println("redis unavailable; rate limiting and response cache disabled")
    }

    users := repository.NewUserRepo(db)
    tokens := repository.NewTokenRepo(db)
    auctions := repository.NewAuctionRepo(db)
    bids := repository.NewBidRepo(db)

    events := publisher.Events{}
    arbiter := engine.NewArbiter(auctions, bids, cfg.BidRetryBudget)
    manager := lifecycle.NewManager(auctions, events)

    // Settlement consumer drains auction.events; the sweep loop drives
    // SCHEDULED -> ACTIVE -> ENDED off the clock.
    go func() {
        if err := queue.StartSettlementConsumer(); err != nil {
            log.Printf("settlement consumer stopped: %v", err)
        }
    }()
    ctx, cancel := context.WithCancel(context.Background())
    defer cancel()
    go manager.Run(ctx, cfg.SweepInterval)

    e := echo.New()
    e.HideBanner = true

    cacheMW := middleware.NewRedisCache(config.LoadCacheConfig(), rdb)
    rateMW := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)

    authH := handler.NewAuthHandler(cfg, users, tokens)
    auctionH := handler.NewAuctionHandler(auctionCfg, auctions, bids, manager)
    bidH := handler.NewBidHandler(arbiter, auctions)

    router.RegisterRoutes(e)
    router.RegisterAuth(e, authH, cfg.JWTSecret)
    router.RegisterAuctions(e, auctionH, bidH, cfg.JWTSecret, cacheMW, rateMW)

    addr := ":" + cfg.Port
    log.Printf("listening on %s (env=%s)", addr, cfg.Env)
    if err := e.Start(addr); err != nil {
        log.Fatal(err)
    }
}

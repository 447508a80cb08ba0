package router // route registration for the auction API

import (
    "github.com/labstack/echo/v4"

    "github.com/weeklymint/nft-auction/internal/handler"
    "github.com/weeklymint/nft-auction/internal/middleware"
)

// RegisterRoutes registers routes that require no authentication or
// handler state.  Currently only the health check used by load balancers.
func RegisterRoutes(e *echo.Echo) {
    e.GET("/healthz", handler.Health)
}

// RegisterAuth registers the authentication endpoints.  Unauthenticated
// operations live under /v1/auth; the profile endpoint and the all-session
// logout require a valid access token.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
    g := e.Group("/v1/auth")
    g.POST("/register", a.Register)
    g.POST("/login", a.Login)
    g.POST("/refresh", a.Refresh)

    auth := e.Group("/v1")
    auth.Use(middleware.JWTAuth(jwtSecret))
    auth.Use(middleware.RequireRole("BIDDER", "OPERATOR"))
    auth.GET("/me", a.Me)
    auth.POST("/auth/logout", a.Logout)
}

// RegisterAuctions registers the auction endpoints.
//
// Reads are public and sit behind the Redis response cache: the schedule
// and current-auction payloads are identical for every caller and the TTL
// is short enough that a freshly accepted bid shows up within seconds.
//
// Bid submission requires a BIDDER or OPERATOR token and passes through
// the token-bucket rate limiter before reaching the arbiter.  Creating and
// cancelling auctions is restricted to OPERATOR.
func RegisterAuctions(e *echo.Echo, h *handler.AuctionHandler, b *handler.BidHandler, jwtSecret string, cache, rate echo.MiddlewareFunc) {
    e.GET("/v1/auctions/current", h.GetCurrent, cache)
    e.GET("/v1/auctions/:id", h.GetByID, cache)
    e.GET("/v1/auctions/:id/schedule", h.GetSchedule, cache)
    e.GET("/v1/auctions/:id/bids", h.ListBids)

    bid := e.Group("/v1/auctions/:id/bids")
    bid.Use(middleware.JWTAuth(jwtSecret))
    bid.Use(middleware.RequireRole("BIDDER", "OPERATOR"))
    bid.Use(rate)
    bid.POST("", b.PlaceBid)

    op := e.Group("/v1/auctions")
    op.Use(middleware.JWTAuth(jwtSecret))
    op.Use(middleware.RequireRole("OPERATOR"))
    op.POST("", h.Create)
    op.POST("/:id/cancel", h.Cancel)
}

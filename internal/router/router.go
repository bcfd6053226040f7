package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4" // import the Echo web framework to handle routing
	"github.com/redis/go-redis/v9"

	"github.com/MarkWasfy00/ARC-raiders-guide-sub001/internal/config"     // rate limit configuration
	"github.com/MarkWasfy00/ARC-raiders-guide-sub001/internal/handler"    // import the handlers that implement business logic
	"github.com/MarkWasfy00/ARC-raiders-guide-sub001/internal/middleware" // import middleware for JWT authentication and rate limiting
)

// RegisterRoutes registers routes that do not require authentication on the
// provided Echo instance.  Currently it exposes only a health check.
func RegisterRoutes(e *echo.Echo) {
	// Map the GET request at path "/healthz" to the Health handler.  This
	// endpoint can be used by load balancers or monitoring systems to verify
	// that the service is up and running.
	e.GET("/healthz", handler.Health)
}

// RegisterAuth registers the authentication routes.  Unauthenticated
// operations live under /v1/auth; the token issued there is what the
// rest of the /v1 surface requires.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler) {
	g := e.Group("/v1/auth")
	// Register a POST endpoint to handle user registration at /v1/auth/register.
	g.POST("/register", a.Register)
	// Register a POST endpoint to handle user login at /v1/auth/login.
	g.POST("/login", a.Login)
}

// RegisterMarket registers the protected trading surface.  All routes
// require a valid access token; mutating negotiation routes are
// additionally throttled by the Redis token bucket so a single client
// cannot hammer the state machine.
func RegisterMarket(e *echo.Echo, jwtSecret string, rdb *redis.Client,
	listings *handler.ListingHandler, chats *handler.ChatHandler,
	market *handler.MarketHandler, wsh *handler.WSHandler) {

	// Protected endpoints live under /v1.  The JWTAuth middleware runs
	// first and stores the user id in the request context.
	auth := e.Group("/v1")
	auth.Use(middleware.JWTAuth(jwtSecret))

	// Negotiation mutations share one token bucket.  The limiter fails
	// open when Redis is down so trading never stalls on the cache.
	limit := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)

	// Listing lifecycle.
	auth.POST("/listings", listings.Create, limit)
	// Register interest in a listing; opens (or returns conflict for) the chat.
	auth.POST("/listings/:id/interest", listings.ExpressInterest, limit)
	// Owner selects which chat becomes the active negotiation.
	auth.POST("/listings/:id/trader", listings.SelectTrader, limit)
	// Owner withdraws the listing; live chats are cancelled.
	auth.POST("/listings/:id/close", listings.Close, limit)

	// Per-chat negotiation steps.
	auth.POST("/chats/:id/lock", chats.LockIn, limit)
	auth.POST("/chats/:id/approve", chats.Approve, limit)
	auth.DELETE("/chats/:id", chats.Cancel, limit)
	auth.POST("/chats/:id/messages", chats.SendMessage, limit)
	auth.GET("/chats/:id/messages", chats.Transcript)

	// Read views over the caller's side of the market.
	auth.GET("/market/owned", market.Owned)
	auth.GET("/market/incoming", market.Incoming)

	// Websocket upgrade for event push.  No rate limit: the connection
	// itself is the resource, and the hub keeps one per user.
	auth.GET("/ws", wsh.Serve)
}

package main // Entry point package

import (
	"log" // Logging library

	"github.com/labstack/echo/v4" // Echo web framework

	"github.com/MarkWasfy00/ARC-raiders-guide-sub001/internal/config"      // Internal config loader
	"github.com/MarkWasfy00/ARC-raiders-guide-sub001/internal/database"    // MySQL connection pool
	"github.com/MarkWasfy00/ARC-raiders-guide-sub001/internal/event"       // AMQP event publisher and consumer
	"github.com/MarkWasfy00/ARC-raiders-guide-sub001/internal/handler"     // HTTP handlers
	"github.com/MarkWasfy00/ARC-raiders-guide-sub001/internal/negotiation" // negotiation engine and views
	"github.com/MarkWasfy00/ARC-raiders-guide-sub001/internal/repository"  // data access layer
	"github.com/MarkWasfy00/ARC-raiders-guide-sub001/internal/router"      // Internal router setup
	"github.com/MarkWasfy00/ARC-raiders-guide-sub001/internal/store"       // transactional store over the repositories
	"github.com/MarkWasfy00/ARC-raiders-guide-sub001/internal/ws"          // websocket hub
)

func main() {
	cfg := config.Load() // Load environment config

	// Open the MySQL pool; the service cannot run without it.
	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	// Redis backs the rate limiter and websocket presence.  A nil
	// client is tolerated everywhere: both consumers fail open.
	rdb := config.NewRedisClient()
	if rdb != nil {
		defer rdb.Close()
	}

	// Repositories and the per-listing transactional store.
	users := repository.NewUserRepo(db)
	listings := repository.NewListingRepo(db)
	st := store.NewSQLStore(db)

	// Event fan-out: in-process websocket push plus the durable AMQP
	// queue consumed by the audit logger below.
	hub := ws.NewHub(rdb)
	defer hub.Close()
	notifier := event.Multi{hub, event.NewAMQPPublisher()}

	engine := negotiation.NewEngine(st, notifier)
	views := negotiation.NewViews(st)

	// Drain the negotiation queue into the audit log in the background.
	go event.StartNegotiationConsumer()

	e := echo.New()
	router.RegisterRoutes(e) // health check
	router.RegisterAuth(e, handler.NewAuthHandler(cfg, users))
	router.RegisterMarket(e, cfg.JWTSecret, rdb,
		handler.NewListingHandler(listings, engine),
		handler.NewChatHandler(engine, views),
		handler.NewMarketHandler(views),
		handler.NewWSHandler(hub),
	)

	addr := ":" + cfg.Port                                // Address string with port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env) // Print startup info

	if err := e.Start(addr); err != nil { // Start HTTP server
		log.Fatal(err) // Log and exit if server fails
	}
}

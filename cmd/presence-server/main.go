package main

import (
	"log"

	"visitor-tracker-backend/internal/api"
	"visitor-tracker-backend/internal/api/router"
	"visitor-tracker-backend/internal/database"
	"visitor-tracker-backend/internal/enrich"
	"visitor-tracker-backend/internal/presence"
	"visitor-tracker-backend/internal/queue"
	apikeysvc "visitor-tracker-backend/internal/service/apikey"
	"visitor-tracker-backend/internal/store"
)

func main() {
	queueManager := queue.NewRequestQueueManager(10, 10)
	db, err := database.NewDatabase()
	if err != nil {
		log.Fatalf("db init failed: %v", err)
	}

	enricher := enrich.NewCached(enrich.NewRedisClient(), enrich.NewStatic(nil))

	presenceRouter := presence.NewRouter(
		store.NewDynamoStore(db),
		apikeysvc.New(db),
		presence.Config{},
	)
	handler := presence.NewHandler(presenceRouter, enricher)

	server := api.NewAPIServer(
		":83",
		queueManager,
		db,
		handler,
		router.UtilsRoutes("/api/ws/v1"),
		router.PresenceRoutes("/api/ws/v1"),
	)

	server.Run()
}

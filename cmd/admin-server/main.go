package main

import (
	"log"

	"visitor-tracker-backend/internal/api"
	"visitor-tracker-backend/internal/api/router"
	"visitor-tracker-backend/internal/database"
	"visitor-tracker-backend/internal/queue"
)

func main() {
	queueManager := queue.NewRequestQueueManager(10, 10)
	db, err := database.NewDatabase()
	if err != nil {
		log.Fatalf("db init failed: %v", err)
	}

	server := api.NewAPIServer(
		":81",
		queueManager,
		db,
		nil,
		router.UtilsRoutes("/api/client/v1"),
		router.AuthRoutes("/api/client/v1"),
		router.APIKeyRoutes("/api/client/v1"),
		router.ChangelogRoutes("/api/client/v1"),
	)

	server.Run()
}

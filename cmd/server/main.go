package main

import (
	"log"
	"net/http"
	"os"

	"github.com/gorilla/mux"
	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	"golang.org/x/time/rate"

	"podgraph/internal/db"
	"podgraph/internal/handlers"
	"podgraph/internal/middleware"
)

// CommitSHA is set at build time via ldflags
var CommitSHA = "unknown"

func main() {
	err := godotenv.Load()
	if err != nil {
		log.Println("Error loading .env file")
	}

	store, err := db.Connect(os.Getenv("DATABASE_URL"))
	if err != nil {
		log.Fatalf("could not connect to database: %v", err)
	}
	defer store.Close()

	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		redisAddr = "127.0.0.1:6379"
	}
	asynqClient := asynq.NewClient(asynq.RedisClientOpt{Addr: redisAddr})
	defer asynqClient.Close()

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	h := handlers.New(store, asynqClient)
	rateLimiter := middleware.NewRateLimiterMiddleware(rate.Limit(5), 10)

	r := mux.NewRouter()
	r.HandleFunc("/healthz", h.Healthz).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.Use(rateLimiter.Middleware)
	api.HandleFunc("/connections", h.GetHostConnections).Methods(http.MethodGet)
	api.HandleFunc("/tracking", h.GetTrackingSummary).Methods(http.MethodGet)
	api.HandleFunc("/tracking/{catalogID}", h.GetTrackingRecord).Methods(http.MethodGet)
	api.HandleFunc("/podcasts", h.RegisterPodcasts).Methods(http.MethodPost)

	log.Printf("Starting server on :%s (commit: %s)", port, CommitSHA)
	if err := http.ListenAndServe(":"+port, r); err != nil {
		log.Fatal(err)
	}
}

package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/nats-io/nats.go"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"history-service/config"
	"history-service/metrics"
	"history-service/store"
	"history-service/worker"
)

func main() {
	log.Println("Starting the history structuring worker")

	cfg := config.Load()
	metrics.Init("history-worker", "1.0", "production")

	mongoClient, err := mongo.Connect(context.Background(), options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		log.Fatal("Failed to connect to MongoDB:", err)
	}
	defer mongoClient.Disconnect(context.Background())

	db := mongoClient.Database(cfg.MongoDB)
	log.Println("Connected to MongoDB")

	events := store.NewEventStore(db, cfg.Languages)
	if err := events.EnsureIndexes(context.Background()); err != nil {
		log.Fatal("Failed to create indexes:", err)
	}
	catalog := store.NewSourceCatalog(db)

	nc, err := nats.Connect(cfg.NATSUrl)
	if err != nil {
		log.Fatal("Failed to connect to NATS:", err)
	}
	defer nc.Close()
	log.Println("Connected to NATS")

	w, err := worker.NewWorker(cfg, nc, events, catalog)
	if err != nil {
		log.Fatal("Failed to create worker:", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		log.Println("Received shutdown signal, stopping...")
		cancel()
	}()

	// Health check endpoint for the orchestrator.
	go func() {
		http.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`{"status":"healthy","service":"history-worker"}`))
		})
		if err := http.ListenAndServe(":8081", nil); err != nil {
			log.Printf("Health server stopped: %v", err)
		}
	}()

	if err := w.Start(ctx); err != nil && err != context.Canceled {
		log.Fatal("Worker stopped with error:", err)
	}
	log.Println("Worker shut down")
}

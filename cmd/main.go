package main

import (
	"context"
	"log"

	"github.com/nats-io/nats.go"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"history-service/api"
	"history-service/config"
	"history-service/metrics"
	"history-service/search"
	"history-service/store"
	"history-service/worker"
)

func main() {
	log.Println("Starting the history service (API)")

	cfg := config.Load()
	metrics.Init("history-service", "1.0", "production")

	client, err := mongo.Connect(context.Background(), options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		log.Fatal("MongoDB connection error:", err)
	}
	defer client.Disconnect(context.Background())

	db := client.Database(cfg.MongoDB)
	log.Printf("Connected to MongoDB, database: %s", cfg.MongoDB)

	events := store.NewEventStore(db, cfg.Languages)
	if err := events.EnsureIndexes(context.Background()); err != nil {
		log.Fatal("Failed to create indexes:", err)
	}
	catalog := store.NewSourceCatalog(db)

	engine := search.NewEngine(events, cfg.SearchWeights)

	// The async endpoint degrades gracefully when NATS is down; the rest of
	// the API does not need the queue.
	var publisher api.Publisher
	nc, err := nats.Connect(cfg.NATSUrl)
	if err != nil {
		log.Printf("NATS connection failed, async structuring disabled: %v", err)
	} else {
		defer nc.Close()
		p, err := worker.NewPublisher(nc)
		if err != nil {
			log.Printf("JetStream setup failed, async structuring disabled: %v", err)
		} else {
			publisher = p
		}
	}

	handler := api.NewEventsHandler(events, engine, catalog.LookupFunc(context.Background()), publisher)
	api.StartServer(handler, cfg.Port)
}

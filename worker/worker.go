// Package worker consumes structure requests from NATS JetStream, runs the
// structurer and persists the result, mirroring how drafts flow out of the
// synthesis pipeline in bulk.
package worker

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/nats-io/nats.go"

	"history-service/config"
	"history-service/metrics"
	"history-service/model"
	"history-service/store"
	"history-service/structurer"
)

const (
	SubjectStructureRequest = "history.structure.request"
	SubjectStructureResult  = "history.structure.result"
	streamName              = "HISTORY_STRUCTURE"
)

type Worker struct {
	config  *config.Config
	js      nats.JetStreamContext
	events  *store.EventStore
	catalog *store.SourceCatalog
}

func NewWorker(cfg *config.Config, nc *nats.Conn, events *store.EventStore, catalog *store.SourceCatalog) (*Worker, error) {
	js, err := nc.JetStream()
	if err != nil {
		return nil, err
	}

	if err := setupStreams(js); err != nil {
		return nil, err
	}

	return &Worker{config: cfg, js: js, events: events, catalog: catalog}, nil
}

func (w *Worker) Start(ctx context.Context) error {
	log.Printf("Starting structuring worker (maxAckPending=%d)", w.config.WorkerCount)

	_, err := w.js.Subscribe(SubjectStructureRequest, w.handleStructureRequest,
		nats.Durable("history-structure-workers"),
		nats.ManualAck(),
		nats.AckWait(w.config.AckWait),
		nats.MaxAckPending(w.config.WorkerCount),
	)
	if err != nil {
		return err
	}

	log.Println("Worker started successfully")

	<-ctx.Done()
	return ctx.Err()
}

func (w *Worker) handleStructureRequest(msg *nats.Msg) {
	var req model.StructureRequest
	if err := json.Unmarshal(msg.Data, &req); err != nil {
		log.Printf("Failed to unmarshal structure request: %v", err)
		metrics.NatsMessagesReceived.WithLabelValues(SubjectStructureRequest, "error").Inc()
		msg.Nak()
		return
	}
	metrics.NatsMessagesReceived.WithLabelValues(SubjectStructureRequest, "success").Inc()

	log.Printf("Processing structure request: event=%q group=%q lang=%s requestID=%s",
		req.Draft.EventName, req.BigEventName, req.Language, req.RequestID)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	result := model.StructureResult{
		Language:     req.Language,
		BigEventName: req.BigEventName,
		EventName:    req.Draft.EventName,
		ProcessedAt:  time.Now(),
		RequestID:    req.RequestID,
	}

	article, warnings, err := structurer.Structure(&req.Draft, w.catalog.LookupFunc(ctx))
	if err == nil {
		err = w.events.UpsertEvent(ctx, req.Language, req.BigEventName, article)
	}

	if err != nil {
		log.Printf("Structure request failed (requestID=%s): %v", req.RequestID, err)
		metrics.EventsStructured.WithLabelValues(req.Language, "error").Inc()
		result.Error = err.Error()
		w.publishResult(result)
		msg.Nak()
		return
	}

	for _, warning := range warnings {
		log.Printf("Structural warning (event=%q, para=%s): %s",
			req.Draft.EventName, warning.ParagraphID, warning.Message)
	}
	metrics.StructuralWarnings.Add(float64(len(warnings)))
	metrics.EventsStructured.WithLabelValues(req.Language, "success").Inc()

	result.Success = true
	result.WarningCount = len(warnings)
	w.publishResult(result)
	msg.Ack()
}

func (w *Worker) publishResult(result model.StructureResult) {
	data, err := json.Marshal(result)
	if err != nil {
		log.Printf("Failed to marshal structure result: %v", err)
		return
	}

	if _, err := w.js.Publish(SubjectStructureResult, data); err != nil {
		log.Printf("Failed to publish structure result: %v", err)
		metrics.NatsMessagesPublished.WithLabelValues(SubjectStructureResult, "error").Inc()
		return
	}
	metrics.NatsMessagesPublished.WithLabelValues(SubjectStructureResult, "success").Inc()
}

func setupStreams(js nats.JetStreamContext) error {
	_, err := js.AddStream(&nats.StreamConfig{
		Name:      streamName,
		Subjects:  []string{"history.structure.>"},
		Retention: nats.WorkQueuePolicy,
		MaxAge:    24 * time.Hour,
		Storage:   nats.FileStorage,
	})
	if err != nil && err != nats.ErrStreamNameAlreadyInUse {
		return err
	}

	log.Println("NATS streams configured successfully")
	return nil
}

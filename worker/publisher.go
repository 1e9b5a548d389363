package worker

import (
	"encoding/json"
	"log"

	"github.com/nats-io/nats.go"

	"history-service/metrics"
	"history-service/model"
)

// Publisher queues structure requests onto the JetStream work queue. The API
// uses it for the async structuring endpoint.
type Publisher struct {
	js nats.JetStreamContext
}

func NewPublisher(nc *nats.Conn) (*Publisher, error) {
	js, err := nc.JetStream()
	if err != nil {
		return nil, err
	}

	if err := setupStreams(js); err != nil {
		return nil, err
	}

	return &Publisher{js: js}, nil
}

func (p *Publisher) PublishStructureRequest(req model.StructureRequest) error {
	data, err := json.Marshal(req)
	if err != nil {
		return err
	}

	if _, err := p.js.Publish(SubjectStructureRequest, data); err != nil {
		metrics.NatsMessagesPublished.WithLabelValues(SubjectStructureRequest, "error").Inc()
		return err
	}
	metrics.NatsMessagesPublished.WithLabelValues(SubjectStructureRequest, "success").Inc()

	log.Printf("Queued structure request: event=%q group=%q lang=%s requestID=%s",
		req.Draft.EventName, req.BigEventName, req.Language, req.RequestID)
	return nil
}

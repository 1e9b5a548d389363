package api

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"history-service/metrics"
	"history-service/model"
	"history-service/search"
	"history-service/store"
	"history-service/structurer"
)

// EventStore is the persistence surface the handlers need.
type EventStore interface {
	All(ctx context.Context, language string) ([]model.EventGroup, error)
	ByPeriod(ctx context.Context, language, periodName string) (*model.EventGroup, error)
	UpsertEvent(ctx context.Context, language, bigEventName string, article *model.StructuredArticle) error
	Stats(ctx context.Context) ([]store.PartitionStats, error)
}

// Searcher answers ranked free-text queries over a language partition.
type Searcher interface {
	Search(ctx context.Context, query, language string) ([]search.Result, error)
}

// Publisher hands structure requests to the async pipeline.
type Publisher interface {
	PublishStructureRequest(req model.StructureRequest) error
}

type EventsHandler struct {
	store     EventStore
	searcher  Searcher
	lookup    structurer.SourceLookup
	publisher Publisher
}

func NewEventsHandler(store EventStore, searcher Searcher, lookup structurer.SourceLookup, publisher Publisher) *EventsHandler {
	return &EventsHandler{store: store, searcher: searcher, lookup: lookup, publisher: publisher}
}

func language(c *gin.Context) string {
	return c.DefaultQuery("language", "ar")
}

// GetAllEvents returns every event group for a language.
func (h *EventsHandler) GetAllEvents(c *gin.Context) {
	lang := language(c)

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	groups, err := h.store.All(ctx, lang)
	if err != nil {
		respondError(c, err)
		return
	}

	log.Printf("Returned %d event groups for language=%s", len(groups), lang)
	c.JSON(http.StatusOK, gin.H{"status": "success", "data": groups})
}

// GetEventsByPeriod returns the single event group named by the path param.
func (h *EventsHandler) GetEventsByPeriod(c *gin.Context) {
	lang := language(c)
	period := c.Param("period")

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	group, err := h.store.ByPeriod(ctx, lang, period)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "data": group})
}

// SearchEvents runs the tiered relevance search. An empty q is not an
// error, it just returns no results.
func (h *EventsHandler) SearchEvents(c *gin.Context) {
	start := time.Now()
	lang := language(c)
	query := c.Query("q")

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	results, err := h.searcher.Search(ctx, query, lang)
	if err != nil {
		respondError(c, err)
		return
	}

	metrics.SearchDuration.WithLabelValues(lang).Observe(time.Since(start).Seconds())
	log.Printf("Search q=%q lang=%s returned %d results in %v", query, lang, len(results), time.Since(start))

	c.JSON(http.StatusOK, gin.H{"status": "success", "data": results})
}

// GetStats returns group/event counts per language partition.
func (h *EventsHandler) GetStats(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	stats, err := h.store.Stats(ctx)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "data": stats, "timestamp": time.Now()})
}

type structureRequestBody struct {
	Language     string             `json:"language" binding:"required"`
	BigEventName string             `json:"bigEventName" binding:"required"`
	Draft        model.ArticleDraft `json:"draft" binding:"required"`
}

// StructureEvent structures one draft synchronously and persists the result.
// Structural warnings come back in the response, they do not fail the call.
func (h *EventsHandler) StructureEvent(c *gin.Context) {
	var body structureRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": err.Error()})
		return
	}

	article, warnings, err := structurer.Structure(&body.Draft, h.lookup)
	if err != nil {
		metrics.EventsStructured.WithLabelValues(body.Language, "error").Inc()
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": err.Error()})
		return
	}
	metrics.StructuralWarnings.Add(float64(len(warnings)))

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	if err := h.store.UpsertEvent(ctx, body.Language, body.BigEventName, article); err != nil {
		metrics.EventsStructured.WithLabelValues(body.Language, "error").Inc()
		respondError(c, err)
		return
	}
	metrics.EventsStructured.WithLabelValues(body.Language, "success").Inc()

	log.Printf("Structured event %q into group %q (lang=%s, %d warnings)",
		article.EventName, body.BigEventName, body.Language, len(warnings))

	c.JSON(http.StatusOK, gin.H{"status": "success", "data": article, "warnings": warnings})
}

// StructureEventAsync queues the draft for the background worker.
func (h *EventsHandler) StructureEventAsync(c *gin.Context) {
	if h.publisher == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "error", "message": "async pipeline not available"})
		return
	}

	var body structureRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": err.Error()})
		return
	}

	req := model.StructureRequest{
		Language:     body.Language,
		BigEventName: body.BigEventName,
		Draft:        body.Draft,
		Priority:     c.DefaultQuery("priority", "normal"),
		RequestID:    generateRequestID(body.Language),
	}

	if err := h.publisher.PublishStructureRequest(req); err != nil {
		log.Printf("Failed to queue structure request: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": "Failed to queue request"})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"status": "success", "requestId": req.RequestID})
}

func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, store.ErrInvalidLanguage):
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": err.Error()})
	case errors.Is(err, store.ErrPeriodNotFound):
		c.JSON(http.StatusNotFound, gin.H{"status": "error", "message": err.Error()})
	case errors.Is(err, search.ErrCorpusUnavailable):
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": "Search backend unavailable"})
	default:
		log.Printf("Request failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": "Internal server error"})
	}
}

func generateRequestID(language string) string {
	return language + "-api-" + time.Now().Format("20060102-150405.000")
}

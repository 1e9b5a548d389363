// Package store is the MongoDB persistence layer. Each language has its own
// collection (articles_ar, articles_en, ...); there is no cross-language
// querying.
package store

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"history-service/metrics"
	"history-service/model"
	"history-service/search"
)

var (
	ErrInvalidLanguage = errors.New("store: invalid language")
	ErrPeriodNotFound  = errors.New("store: period not found")
)

// EventStore holds the language-partitioned event-group collections.
type EventStore struct {
	db        *mongo.Database
	languages map[string]bool
}

func NewEventStore(db *mongo.Database, languages []string) *EventStore {
	langs := make(map[string]bool, len(languages))
	for _, l := range languages {
		langs[l] = true
	}
	return &EventStore{db: db, languages: langs}
}

func (s *EventStore) collection(language string) (*mongo.Collection, error) {
	if !s.languages[language] {
		return nil, fmt.Errorf("%w: %q", ErrInvalidLanguage, language)
	}
	return s.db.Collection("articles_" + language), nil
}

// Languages returns the configured partition codes.
func (s *EventStore) Languages() []string {
	langs := make([]string, 0, len(s.languages))
	for l := range s.languages {
		langs = append(langs, l)
	}
	return langs
}

// EnsureIndexes creates the text index backing indexed search on every
// language partition, plus a unique index on the group name.
func (s *EventStore) EnsureIndexes(ctx context.Context) error {
	textIndex := mongo.IndexModel{
		Keys: bson.D{
			{Key: "big_event_name", Value: "text"},
			{Key: "events.event_name", Value: "text"},
			{Key: "events.article_title", Value: "text"},
			{Key: "events.sections.subtitle", Value: "text"},
			{Key: "events.sections.paragraphs.text", Value: "text"},
		},
	}
	nameIndex := mongo.IndexModel{
		Keys:    bson.D{{Key: "big_event_name", Value: 1}},
		Options: options.Index().SetUnique(true),
	}

	for language := range s.languages {
		col := s.db.Collection("articles_" + language)
		if _, err := col.Indexes().CreateMany(ctx, []mongo.IndexModel{textIndex, nameIndex}); err != nil {
			return fmt.Errorf("creating indexes for %s: %w", language, err)
		}
		log.Printf("Ensured indexes on collection articles_%s", language)
	}
	return nil
}

// All returns every event group in the language partition.
func (s *EventStore) All(ctx context.Context, language string) ([]model.EventGroup, error) {
	col, err := s.collection(language)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	cursor, err := col.Find(ctx, bson.M{})
	observeMongo("find", col.Name(), start, err)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	groups := []model.EventGroup{}
	if err := cursor.All(ctx, &groups); err != nil {
		return nil, err
	}
	return groups, nil
}

// ByPeriod returns the single event group named periodName, or
// ErrPeriodNotFound.
func (s *EventStore) ByPeriod(ctx context.Context, language, periodName string) (*model.EventGroup, error) {
	col, err := s.collection(language)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	var group model.EventGroup
	err = col.FindOne(ctx, bson.M{"big_event_name": periodName}).Decode(&group)
	observeMongo("findOne", col.Name(), start, err)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("%w: %q", ErrPeriodNotFound, periodName)
	}
	if err != nil {
		return nil, err
	}
	return &group, nil
}

// UpsertEvent inserts or replaces one structured event inside its group,
// creating the group document if it does not exist yet.
func (s *EventStore) UpsertEvent(ctx context.Context, language, bigEventName string, article *model.StructuredArticle) error {
	col, err := s.collection(language)
	if err != nil {
		return err
	}

	filter := bson.M{"big_event_name": bigEventName}

	// Drop any previous version of this event, then append the new one.
	start := time.Now()
	_, err = col.UpdateOne(ctx, filter,
		bson.M{"$pull": bson.M{"events": bson.M{"event_name": article.EventName}}})
	observeMongo("update", col.Name(), start, err)
	if err != nil {
		return err
	}

	start = time.Now()
	_, err = col.UpdateOne(ctx, filter,
		bson.M{
			"$push":        bson.M{"events": article},
			"$setOnInsert": bson.M{"big_event_name": bigEventName},
		},
		options.Update().SetUpsert(true))
	observeMongo("update", col.Name(), start, err)
	return err
}

type scoredGroup struct {
	model.EventGroup `bson:",inline"`
	Score            float64 `bson:"score"`
}

// TextSearch runs the native $text query, ranked by the index's own
// relevance score.
func (s *EventStore) TextSearch(ctx context.Context, language, query string) ([]search.Result, error) {
	col, err := s.collection(language)
	if err != nil {
		return nil, err
	}

	opts := options.Find().
		SetProjection(bson.M{"score": bson.M{"$meta": "textScore"}}).
		SetSort(bson.M{"score": bson.M{"$meta": "textScore"}})

	start := time.Now()
	cursor, err := col.Find(ctx, bson.M{"$text": bson.M{"$search": query}}, opts)
	observeMongo("textSearch", col.Name(), start, err)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var scored []scoredGroup
	if err := cursor.All(ctx, &scored); err != nil {
		return nil, err
	}

	results := make([]search.Result, 0, len(scored))
	for _, sg := range scored {
		results = append(results, search.Result{Group: sg.EventGroup, Score: sg.Score})
	}
	return results, nil
}

// Scan returns the whole partition in stable insertion order, feeding the
// search engine's fallback scan.
func (s *EventStore) Scan(ctx context.Context, language string) ([]model.EventGroup, error) {
	col, err := s.collection(language)
	if err != nil {
		return nil, err
	}

	opts := options.Find().SetSort(bson.M{"_id": 1})

	start := time.Now()
	cursor, err := col.Find(ctx, bson.M{}, opts)
	observeMongo("scan", col.Name(), start, err)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	groups := []model.EventGroup{}
	if err := cursor.All(ctx, &groups); err != nil {
		return nil, err
	}
	return groups, nil
}

// PartitionStats summarizes one language partition.
type PartitionStats struct {
	Language   string `json:"language" bson:"language"`
	GroupCount int64  `json:"groupCount" bson:"groupCount"`
	EventCount int64  `json:"eventCount" bson:"eventCount"`
}

// Stats aggregates group and event counts across every partition.
func (s *EventStore) Stats(ctx context.Context) ([]PartitionStats, error) {
	var stats []PartitionStats
	for language := range s.languages {
		col := s.db.Collection("articles_" + language)

		pipeline := []bson.M{
			{"$group": bson.M{
				"_id":        nil,
				"groupCount": bson.M{"$sum": 1},
				"eventCount": bson.M{"$sum": bson.M{"$size": bson.M{"$ifNull": []interface{}{"$events", []interface{}{}}}}},
			}},
		}

		start := time.Now()
		cursor, err := col.Aggregate(ctx, pipeline)
		observeMongo("aggregate", col.Name(), start, err)
		if err != nil {
			return nil, err
		}

		var rows []PartitionStats
		if err := cursor.All(ctx, &rows); err != nil {
			cursor.Close(ctx)
			return nil, err
		}
		cursor.Close(ctx)

		ps := PartitionStats{Language: language}
		if len(rows) > 0 {
			ps.GroupCount = rows[0].GroupCount
			ps.EventCount = rows[0].EventCount
		}
		stats = append(stats, ps)
	}
	return stats, nil
}

func observeMongo(operation, collection string, start time.Time, err error) {
	status := "success"
	if err != nil && !errors.Is(err, mongo.ErrNoDocuments) {
		status = "error"
	}
	metrics.MongoOperationsTotal.WithLabelValues(operation, collection, status).Inc()
	metrics.MongoOperationDuration.WithLabelValues(operation, collection).Observe(time.Since(start).Seconds())
}

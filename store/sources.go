package store

import (
	"context"
	"errors"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"history-service/model"
	"history-service/structurer"
)

// SourceCatalog is the metadata store for citation sources, keyed by
// source uid in a single "sources" collection.
type SourceCatalog struct {
	col *mongo.Collection
}

func NewSourceCatalog(db *mongo.Database) *SourceCatalog {
	return &SourceCatalog{col: db.Collection("sources")}
}

// Lookup fetches the catalog record for uid. The bool reports whether the
// uid is known; other lookup failures come back as errors.
func (c *SourceCatalog) Lookup(ctx context.Context, uid string) (model.Source, bool, error) {
	start := time.Now()
	var src model.Source
	err := c.col.FindOne(ctx, bson.M{"source_uid": uid}).Decode(&src)
	observeMongo("findOne", c.col.Name(), start, err)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return model.Source{}, false, nil
	}
	if err != nil {
		return model.Source{}, false, err
	}
	return src, true, nil
}

// Upsert stores or refreshes one source record.
func (c *SourceCatalog) Upsert(ctx context.Context, src model.Source) error {
	start := time.Now()
	_, err := c.col.UpdateOne(ctx,
		bson.M{"source_uid": src.SourceUID},
		bson.M{"$set": src},
		options.Update().SetUpsert(true))
	observeMongo("update", c.col.Name(), start, err)
	return err
}

// LookupFunc adapts the catalog to the structurer's synchronous lookup
// contract. Lookup errors are logged and treated as not-found, which the
// structurer reports as a warning.
func (c *SourceCatalog) LookupFunc(ctx context.Context) structurer.SourceLookup {
	return func(uid string) (model.Source, bool) {
		src, found, err := c.Lookup(ctx, uid)
		if err != nil {
			log.Printf("Source catalog lookup failed for uid=%s: %v", uid, err)
			return model.Source{}, false
		}
		return src, found
	}
}

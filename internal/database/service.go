// Package database handles MongoDB database and collection introspection.
package database

import (
	"context"
	"fmt"
	"sort"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/peternagy/mongoscope/internal/connection"
	"github.com/peternagy/mongoscope/internal/schema"
	"github.com/peternagy/mongoscope/internal/types"
)

// schemaSampleSize bounds the document sample fed to schema inference.
const schemaSampleSize = 100

// Service introspects databases and collections over per-request clients.
type Service struct {
	logger *zap.Logger
}

// NewService creates a new database service.
func NewService(logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{logger: logger}
}

// ListCollections returns the collections of a database with their
// collStats summaries, sorted by name.
func (s *Service) ListCollections(ctx context.Context, uri, dbName string) ([]types.CollectionInfo, error) {
	if err := ValidateDatabaseName(dbName); err != nil {
		return nil, err
	}

	client, err := connection.Dial(ctx, uri)
	if err != nil {
		return nil, err
	}
	defer client.Disconnect(context.Background())

	db := client.Database(dbName)

	cursor, err := db.ListCollections(ctx, bson.D{})
	if err != nil {
		return nil, fmt.Errorf("failed to list collections: %w", err)
	}
	defer cursor.Close(ctx)

	var collections []types.CollectionInfo
	for cursor.Next(ctx) {
		var result bson.M
		if err := cursor.Decode(&result); err != nil {
			continue
		}

		name, _ := result["name"].(string)
		collType := "collection"
		if t, ok := result["type"].(string); ok {
			collType = t
		}

		info := types.CollectionInfo{Name: name, Type: collType}

		// Views have no collStats; leave their counters at zero.
		if collType == "collection" {
			if stats, err := s.collStats(ctx, db, name); err == nil {
				info.Documents = stats.Count
				info.Size = stats.Size
				info.AvgObjSize = stats.AvgObjSize
				info.StorageSize = stats.StorageSize
				info.Indexes = stats.IndexCount
				info.TotalIndexSize = stats.TotalIndexSize
			} else {
				s.logger.Debug("collStats failed", zap.String("collection", name), zap.Error(err))
			}
		}

		collections = append(collections, info)
	}

	sort.Slice(collections, func(i, j int) bool {
		return collections[i].Name < collections[j].Name
	})

	return collections, nil
}

// CollectionDetails returns storage statistics, index metadata and the
// inferred schema for a collection. The schema is computed over a bounded
// sample of documents.
func (s *Service) CollectionDetails(ctx context.Context, uri, dbName, collName string) (*types.CollectionDetails, error) {
	if err := ValidateDatabaseAndCollection(dbName, collName); err != nil {
		return nil, err
	}

	client, err := connection.Dial(ctx, uri)
	if err != nil {
		return nil, err
	}
	defer client.Disconnect(context.Background())

	db := client.Database(dbName)

	stats, err := s.collStats(ctx, db, collName)
	if err != nil {
		return nil, err
	}

	indexes, err := s.listIndexes(ctx, db, collName)
	if err != nil {
		return nil, err
	}

	sample, err := s.sampleDocuments(ctx, db, collName)
	if err != nil {
		return nil, err
	}

	return &types.CollectionDetails{
		Stats:   stats,
		Indexes: indexes,
		Schema:  schema.Infer(sample),
	}, nil
}

// collStats runs the collStats command and decodes the numeric fields,
// which the server reports as int32, int64 or double depending on size.
func (s *Service) collStats(ctx context.Context, db *mongo.Database, collName string) (*types.CollectionStats, error) {
	var result bson.M
	err := db.RunCommand(ctx, bson.D{{Key: "collStats", Value: collName}}).Decode(&result)
	if err != nil {
		return nil, fmt.Errorf("failed to get collection stats: %w", err)
	}

	stats := &types.CollectionStats{
		Namespace:      fmt.Sprintf("%s.%s", db.Name(), collName),
		Count:          asInt64(result["count"]),
		Size:           asInt64(result["size"]),
		StorageSize:    asInt64(result["storageSize"]),
		AvgObjSize:     asInt64(result["avgObjSize"]),
		IndexCount:     int(asInt64(result["nindexes"])),
		TotalIndexSize: asInt64(result["totalIndexSize"]),
	}
	if capped, ok := result["capped"].(bool); ok {
		stats.Capped = capped
	}

	return stats, nil
}

// listIndexes returns index definitions enriched with per-index sizes
// from collStats and usage counts from $indexStats. Both enrichments are
// best effort; a server that refuses either command still yields the
// plain definitions.
func (s *Service) listIndexes(ctx context.Context, db *mongo.Database, collName string) ([]types.IndexInfo, error) {
	coll := db.Collection(collName)

	cursor, err := coll.Indexes().List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list indexes: %w", err)
	}
	defer cursor.Close(ctx)

	indexSizes := make(map[string]int64)
	var collStats bson.M
	if err := db.RunCommand(ctx, bson.D{{Key: "collStats", Value: collName}}).Decode(&collStats); err == nil {
		if sizes, ok := collStats["indexSizes"].(bson.M); ok {
			for name, size := range sizes {
				indexSizes[name] = asInt64(size)
			}
		}
	}

	usageCounts := s.indexUsage(ctx, db, collName)

	var indexes []types.IndexInfo
	for cursor.Next(ctx) {
		var result bson.M
		if err := cursor.Decode(&result); err != nil {
			continue
		}

		name, _ := result["name"].(string)
		unique, _ := result["unique"].(bool)
		sparse, _ := result["sparse"].(bool)

		keys := make(map[string]int)
		if keyDoc, ok := result["key"].(bson.M); ok {
			for k, v := range keyDoc {
				if str, ok := v.(string); ok && str == "text" {
					keys[k] = 0 // text indexes carry "text" instead of a direction
					continue
				}
				keys[k] = int(asInt64(v))
			}
		}

		indexes = append(indexes, types.IndexInfo{
			Name:       name,
			Keys:       keys,
			Unique:     unique,
			Sparse:     sparse,
			TTL:        asInt64(result["expireAfterSeconds"]),
			Size:       indexSizes[name],
			UsageCount: usageCounts[name],
		})
	}

	return indexes, nil
}

// indexUsage collects per-index operation counts via $indexStats.
func (s *Service) indexUsage(ctx context.Context, db *mongo.Database, collName string) map[string]int64 {
	usage := make(map[string]int64)

	cmd := bson.D{
		{Key: "aggregate", Value: collName},
		{Key: "pipeline", Value: bson.A{bson.D{{Key: "$indexStats", Value: bson.D{}}}}},
		{Key: "cursor", Value: bson.D{}},
	}
	var result bson.M
	if err := db.RunCommand(ctx, cmd).Decode(&result); err != nil {
		return usage
	}

	cursorDoc, ok := result["cursor"].(bson.M)
	if !ok {
		return usage
	}
	firstBatch, ok := cursorDoc["firstBatch"].(bson.A)
	if !ok {
		return usage
	}

	for _, item := range firstBatch {
		doc, ok := item.(bson.M)
		if !ok {
			continue
		}
		name, _ := doc["name"].(string)
		if accesses, ok := doc["accesses"].(bson.M); ok {
			usage[name] = asInt64(accesses["ops"])
		}
	}

	return usage
}

// sampleDocuments fetches the schema inference sample.
func (s *Service) sampleDocuments(ctx context.Context, db *mongo.Database, collName string) ([]bson.M, error) {
	cursor, err := db.Collection(collName).Find(ctx, bson.M{},
		options.Find().SetLimit(schemaSampleSize))
	if err != nil {
		return nil, fmt.Errorf("failed to sample documents: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []bson.M
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode sample: %w", err)
	}
	return docs, nil
}

// asInt64 normalizes the numeric types MongoDB commands return.
func asInt64(v interface{}) int64 {
	switch n := v.(type) {
	case int32:
		return int64(n)
	case int64:
		return n
	case float64:
		return int64(n)
	default:
		return 0
	}
}

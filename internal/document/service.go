// Package document handles paginated document listing.
package document

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/peternagy/mongoscope/internal/connection"
	"github.com/peternagy/mongoscope/internal/database"
	"github.com/peternagy/mongoscope/internal/types"
)

const (
	defaultPageSize = 10
	maxPageSize     = 200
)

// Service lists collection documents with search and pagination.
type Service struct {
	logger *zap.Logger
}

// NewService creates a new document service.
func NewService(logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{logger: logger}
}

// FindDocuments returns one page of documents as Extended JSON strings.
// A non-empty search becomes a $text query, which requires a text index
// on the collection. Pages are 1-based; pageSize is clamped to
// [1, maxPageSize].
func (s *Service) FindDocuments(ctx context.Context, uri, dbName, collName, search string, page, pageSize int) (*types.DocumentPage, error) {
	if err := database.ValidateDatabaseAndCollection(dbName, collName); err != nil {
		return nil, err
	}

	page, pageSize = ClampPage(page, pageSize)

	client, err := connection.Dial(ctx, uri)
	if err != nil {
		return nil, err
	}
	defer client.Disconnect(context.Background())

	coll := client.Database(dbName).Collection(collName)

	filter := bson.M{}
	if search != "" {
		filter = bson.M{"$text": bson.M{"$search": search}}
	}

	total, err := coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to count documents: %w", err)
	}

	skip := int64(page-1) * int64(pageSize)
	cursor, err := coll.Find(ctx, filter,
		options.Find().SetSkip(skip).SetLimit(int64(pageSize)))
	if err != nil {
		return nil, fmt.Errorf("failed to find documents: %w", err)
	}
	defer cursor.Close(ctx)

	documents := make([]string, 0, pageSize)
	for cursor.Next(ctx) {
		var doc bson.M
		if err := cursor.Decode(&doc); err != nil {
			continue
		}
		jsonBytes, err := bson.MarshalExtJSON(doc, true, false)
		if err != nil {
			continue
		}
		documents = append(documents, string(jsonBytes))
	}

	return &types.DocumentPage{
		Documents:  documents,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: TotalPages(total, pageSize),
	}, nil
}

// ClampPage normalizes pagination inputs: pages are 1-based, page sizes
// fall back to the default and are capped.
func ClampPage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return page, pageSize
}

// TotalPages is ceil(total / pageSize).
func TotalPages(total int64, pageSize int) int {
	if total <= 0 {
		return 0
	}
	return int((total + int64(pageSize) - 1) / int64(pageSize))
}

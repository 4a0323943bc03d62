// Package connection dials MongoDB endpoints and validates connection strings.
package connection

import (
	"context"
	"fmt"
	"sort"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/peternagy/mongoscope/internal/core"
	"github.com/peternagy/mongoscope/internal/credential"
	"github.com/peternagy/mongoscope/internal/types"
)

// Dial connects to a MongoDB endpoint and verifies it with a ping.
// The caller owns the returned client and must Disconnect it.
func Dial(ctx context.Context, uri string) (*mongo.Client, error) {
	if !credential.HasMongoScheme(uri) {
		return nil, &core.InvalidURIError{URI: uri}
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping: %w", err)
	}

	return client, nil
}

// Service validates connection strings against live endpoints.
type Service struct {
	logger *zap.Logger
}

// NewService creates a new connection service.
func NewService(logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{logger: logger}
}

// Validate tests a connection string and returns the server's database
// summaries, sorted by name. One round trip; the client is torn down
// before returning.
func (s *Service) Validate(ctx context.Context, uri string) ([]types.DatabaseInfo, error) {
	client, err := Dial(ctx, uri)
	if err != nil {
		return nil, err
	}
	defer client.Disconnect(context.Background())

	result, err := client.ListDatabases(ctx, bson.D{})
	if err != nil {
		return nil, fmt.Errorf("failed to list databases: %w", err)
	}

	databases := make([]types.DatabaseInfo, 0, len(result.Databases))
	for _, db := range result.Databases {
		databases = append(databases, types.DatabaseInfo{
			Name:       db.Name,
			SizeOnDisk: db.SizeOnDisk,
			Empty:      db.Empty,
		})
	}

	sort.Slice(databases, func(i, j int) bool {
		return databases[i].Name < databases[j].Name
	})

	return databases, nil
}

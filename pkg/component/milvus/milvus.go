package milvus

import (
	"context"
	"fmt"
	"strconv"

	"github.com/milvus-io/milvus/client/v2/column"
	"github.com/milvus-io/milvus/client/v2/entity"
	"github.com/milvus-io/milvus/client/v2/milvusclient"

	milvusopts "github.com/kart-io/librarian/pkg/options/milvus"
)

// Client wraps the Milvus SDK client for read-only vector search.
// Collection creation and ingestion happen in a separate offline pipeline,
// so this client never writes.
type Client struct {
	client *milvusclient.Client
	opts   *milvusopts.Options
}

// New creates a new Milvus client.
func New(opts *milvusopts.Options) (*Client, error) {
	if opts == nil {
		return nil, fmt.Errorf("milvus options is nil")
	}

	ctx, cancel := context.WithTimeout(context.Background(), opts.Timeout)
	defer cancel()

	c, err := milvusclient.New(ctx, &milvusclient.ClientConfig{
		Address:  opts.Address,
		Username: opts.Username,
		Password: opts.Password,
		DBName:   opts.Database,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to milvus: %w", err)
	}

	return &Client{
		client: c,
		opts:   opts,
	}, nil
}

// Close closes the Milvus client connection.
func (c *Client) Close(ctx context.Context) error {
	return c.client.Close(ctx)
}

// RawClient returns the underlying Milvus client.
func (c *Client) RawClient() *milvusclient.Client {
	return c.client
}

// HasCollection reports whether the named collection exists.
func (c *Client) HasCollection(ctx context.Context, collectionName string) (bool, error) {
	exists, err := c.client.HasCollection(ctx, milvusclient.NewHasCollectionOption(collectionName))
	if err != nil {
		return false, fmt.Errorf("failed to check collection existence: %w", err)
	}
	return exists, nil
}

// LoadCollection loads the collection into memory and waits for completion.
func (c *Client) LoadCollection(ctx context.Context, collectionName string) error {
	loadTask, err := c.client.LoadCollection(ctx, milvusclient.NewLoadCollectionOption(collectionName))
	if err != nil {
		return fmt.Errorf("failed to load collection: %w", err)
	}
	if err := loadTask.Await(ctx); err != nil {
		return fmt.Errorf("failed to wait for collection loading: %w", err)
	}
	return nil
}

// SearchMatch represents a single nearest-neighbor hit.
type SearchMatch struct {
	// ID is the string primary key of the matched entity.
	ID string
	// Distance is the cosine distance to the query vector, smaller is closer.
	Distance float32
}

// SearchByVector performs a vector similarity search and returns hits ordered
// nearest-first. The collection uses the COSINE metric, for which the SDK
// reports similarity scores; they are converted to distance = 1 - similarity
// here so callers only ever see distances.
func (c *Client) SearchByVector(ctx context.Context, collectionName string, vector []float32, topK int) ([]SearchMatch, error) {
	if err := c.LoadCollection(ctx, collectionName); err != nil {
		return nil, err
	}

	searchVectors := []entity.Vector{entity.FloatVector(vector)}

	results, err := c.client.Search(ctx, milvusclient.NewSearchOption(
		collectionName,
		topK,
		searchVectors,
	).WithANNSField("embedding").
		WithSearchParam("nprobe", "16"))
	if err != nil {
		return nil, fmt.Errorf("failed to search: %w", err)
	}

	if len(results) == 0 {
		return []SearchMatch{}, nil
	}

	idCol, ok := results[0].IDs.(*column.ColumnVarChar)
	if !ok {
		return nil, fmt.Errorf("unexpected id column type %T", results[0].IDs)
	}

	matches := make([]SearchMatch, 0, results[0].ResultCount)
	for i := 0; i < results[0].ResultCount; i++ {
		matches = append(matches, SearchMatch{
			ID:       idCol.Data()[i],
			Distance: 1 - results[0].Scores[i],
		})
	}

	return matches, nil
}

// GetCollectionStats returns the number of entities in a collection.
func (c *Client) GetCollectionStats(ctx context.Context, collectionName string) (int64, error) {
	stats, err := c.client.GetCollectionStats(ctx, milvusclient.NewGetCollectionStatsOption(collectionName))
	if err != nil {
		return 0, fmt.Errorf("failed to get collection stats: %w", err)
	}

	if val, ok := stats["row_count"]; ok {
		return strconv.ParseInt(val, 10, 64)
	}
	return 0, nil
}

// Package qdrant implements driven.VectorIndex on a Qdrant collection over gRPC.
//
// Qdrant point IDs must be integers or UUIDs, so each record ID is mapped to a
// name-based UUID and the original ID is kept in the payload.
package qdrant

import (
	"context"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/custodia-labs/mmrag/internal/adapters/driven/storage/vecmath"
	"github.com/custodia-labs/mmrag/internal/core/domain"
	"github.com/custodia-labs/mmrag/internal/core/ports/driven"
	"github.com/custodia-labs/mmrag/internal/logger"
)

// Payload keys. Metadata keys come from domain.ChunkMetadata.ToMap.
const (
	payloadID       = "record_id"
	payloadDocument = "document"
)

// DefaultCollection is used when no collection name is configured.
const DefaultCollection = domain.DefaultCollection

// Ensure Index implements the interface.
var _ driven.VectorIndex = (*Index)(nil)

// Index is a VectorIndex backed by one Qdrant collection.
type Index struct {
	conn        *grpc.ClientConn
	points      pb.PointsClient
	collections pb.CollectionsClient
	collection  string
	dims        int
	maxBatch    int
}

// Config holds connection settings.
type Config struct {
	// Addr is the gRPC host:port, usually localhost:6334.
	Addr       string
	Collection string
	Dimensions int
	MaxBatch   int
}

// Open dials Qdrant and ensures the collection exists with the right vector size.
func Open(ctx context.Context, cfg Config) (*Index, error) {
	if cfg.Addr == "" {
		return nil, fmt.Errorf("%w: qdrant address is required", domain.ErrInvalidInput)
	}
	conn, err := grpc.NewClient(cfg.Addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("connecting to qdrant at %s: %w", cfg.Addr, err)
	}

	idx, err := newIndex(ctx, pb.NewPointsClient(conn), pb.NewCollectionsClient(conn), cfg)
	if err != nil {
		conn.Close()
		return nil, err
	}
	idx.conn = conn
	return idx, nil
}

func newIndex(ctx context.Context, points pb.PointsClient, collections pb.CollectionsClient, cfg Config) (*Index, error) {
	if cfg.Collection == "" {
		cfg.Collection = DefaultCollection
	}
	if cfg.Dimensions <= 0 {
		return nil, fmt.Errorf("%w: dimension must be positive, got %d", domain.ErrInvalidInput, cfg.Dimensions)
	}
	idx := &Index{
		points:      points,
		collections: collections,
		collection:  cfg.Collection,
		dims:        cfg.Dimensions,
		maxBatch:    cfg.MaxBatch,
	}
	if err := idx.ensureCollection(ctx); err != nil {
		return nil, err
	}
	return idx, nil
}

func (i *Index) ensureCollection(ctx context.Context) error {
	list, err := i.collections.List(ctx, &pb.ListCollectionsRequest{})
	if err != nil {
		return fmt.Errorf("listing qdrant collections: %w", err)
	}
	for _, c := range list.GetCollections() {
		if c.GetName() != i.collection {
			continue
		}
		info, err := i.collections.Get(ctx, &pb.GetCollectionInfoRequest{CollectionName: i.collection})
		if err != nil {
			return fmt.Errorf("reading qdrant collection %s: %w", i.collection, err)
		}
		size := info.GetResult().GetConfig().GetParams().GetVectorsConfig().GetParams().GetSize()
		if size != 0 && int(size) != i.dims {
			return fmt.Errorf("%w: collection %s holds %d-dimensional vectors, embedder produces %d",
				domain.ErrDimensionMismatch, i.collection, size, i.dims)
		}
		return nil
	}

	logger.Info("Creating qdrant collection %s (%d dimensions)", i.collection, i.dims)
	_, err = i.collections.Create(ctx, &pb.CreateCollection{
		CollectionName: i.collection,
		VectorsConfig: &pb.VectorsConfig{
			Config: &pb.VectorsConfig_Params{
				Params: &pb.VectorParams{
					Size:     uint64(i.dims),
					Distance: pb.Distance_Cosine,
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("creating qdrant collection %s: %w", i.collection, err)
	}
	return nil
}

// PointID maps a record ID to the UUID used as the Qdrant point ID.
func PointID(recordID string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(recordID)).String()
}

// Upsert writes the batch and waits for it to be applied.
func (i *Index) Upsert(ctx context.Context, records []domain.VectorRecord) error {
	if len(records) == 0 {
		return nil
	}
	if err := vecmath.CheckRecords(records, i.dims, i.maxBatch); err != nil {
		return err
	}

	points := make([]*pb.PointStruct, len(records))
	for n, r := range records {
		points[n] = &pb.PointStruct{
			Id: &pb.PointId{PointIdOptions: &pb.PointId_Uuid{Uuid: PointID(r.ID)}},
			Vectors: &pb.Vectors{
				VectorsOptions: &pb.Vectors_Vector{Vector: &pb.Vector{Data: r.Embedding}},
			},
			Payload: toPayload(r),
		}
	}

	wait := true
	_, err := i.points.Upsert(ctx, &pb.UpsertPoints{
		CollectionName: i.collection,
		Wait:           &wait,
		Points:         points,
	})
	if err != nil {
		return &domain.IndexWriteError{BatchIndex: -1, Size: len(records), Err: err}
	}
	return nil
}

// Query searches the collection. Qdrant reports cosine similarity, which is
// converted back to a distance.
func (i *Index) Query(ctx context.Context, embedding []float32, k int) ([]domain.VectorMatch, error) {
	if err := vecmath.CheckQuery(embedding, k, i.dims); err != nil {
		return nil, err
	}

	resp, err := i.points.Search(ctx, &pb.SearchPoints{
		CollectionName: i.collection,
		Vector:         embedding,
		Limit:          uint64(k),
		WithPayload: &pb.WithPayloadSelector{
			SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true},
		},
	})
	if err != nil {
		return nil, &domain.IndexReadError{Err: err}
	}

	matches := make([]domain.VectorMatch, 0, len(resp.GetResult()))
	for _, p := range resp.GetResult() {
		id, meta, doc := fromPayload(p.GetPayload())
		if id == "" {
			id = p.GetId().GetUuid()
		}
		matches = append(matches, domain.VectorMatch{
			ID:       id,
			Metadata: meta,
			Document: doc,
			Distance: 1 - float64(p.GetScore()),
		})
	}
	return matches, nil
}

// Count returns the exact number of points in the collection.
func (i *Index) Count(ctx context.Context) (int, error) {
	exact := true
	resp, err := i.points.Count(ctx, &pb.CountPoints{CollectionName: i.collection, Exact: &exact})
	if err != nil {
		return 0, &domain.IndexReadError{Err: err}
	}
	return int(resp.GetResult().GetCount()), nil
}

// Dimensions returns the declared vector dimension.
func (i *Index) Dimensions() int {
	return i.dims
}

// Close closes the gRPC connection.
func (i *Index) Close() error {
	if i.conn == nil {
		return nil
	}
	return i.conn.Close()
}

func toPayload(r domain.VectorRecord) map[string]*pb.Value {
	payload := map[string]*pb.Value{
		payloadID:       stringValue(r.ID),
		payloadDocument: stringValue(r.Document),
	}
	for k, v := range r.Metadata.ToMap() {
		payload[k] = stringValue(v)
	}
	return payload
}

func fromPayload(payload map[string]*pb.Value) (id string, meta domain.ChunkMetadata, doc string) {
	flat := make(map[string]string, len(payload))
	for k, v := range payload {
		switch kind := v.GetKind().(type) {
		case *pb.Value_StringValue:
			flat[k] = kind.StringValue
		case *pb.Value_IntegerValue:
			flat[k] = strconv.FormatInt(kind.IntegerValue, 10)
		}
	}
	return flat[payloadID], domain.ChunkMetadataFromMap(flat), flat[payloadDocument]
}

func stringValue(s string) *pb.Value {
	return &pb.Value{Kind: &pb.Value_StringValue{StringValue: s}}
}

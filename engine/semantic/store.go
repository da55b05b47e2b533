// Package semantic owns all vector-collection operations for the article
// index: existence checks, idempotent upserts, nearest-neighbor queries, and
// collection lifecycle.
package semantic

import (
	"context"
	"fmt"

	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// payload keys. "document" carries the embedding blob; the rest mirror the
// dataset metadata.
const (
	keyArticleID = "article_id"
	keyNum       = "num"
	keyCategory  = "category"
	keyURL       = "url"
	keyDocument  = "document"
)

// VectorStore is the sole owner of all Qdrant operations.
type VectorStore struct {
	conn        *grpc.ClientConn
	points      pb.PointsClient
	collections pb.CollectionsClient
	collection  string
}

// New creates a VectorStore connected to Qdrant at the given gRPC address.
func New(addr string, collection string) (*VectorStore, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("semantic: dial qdrant %s: %w", addr, err)
	}
	return &VectorStore{
		conn:        conn,
		points:      pb.NewPointsClient(conn),
		collections: pb.NewCollectionsClient(conn),
		collection:  collection,
	}, nil
}

// Close closes the underlying gRPC connection.
func (v *VectorStore) Close() error {
	return v.conn.Close()
}

// CollectionExists reports whether the collection has been created.
// Callers on the read path use this to surface an actionable "run indexing
// first" error instead of silently returning empty results.
func (v *VectorStore) CollectionExists(ctx context.Context) (bool, error) {
	list, err := v.collections.List(ctx, &pb.ListCollectionsRequest{})
	if err != nil {
		return false, fmt.Errorf("semantic: list collections: %w", err)
	}
	for _, c := range list.GetCollections() {
		if c.GetName() == v.collection {
			return true, nil
		}
	}
	return false, nil
}

// EnsureCollection creates the collection if it doesn't exist. Euclid distance
// keeps the returned score a true distance: lower is better, which the
// relevance threshold relies on.
func (v *VectorStore) EnsureCollection(ctx context.Context, dims int) error {
	exists, err := v.CollectionExists(ctx)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	d := uint64(dims)
	_, err = v.collections.Create(ctx, &pb.CreateCollection{
		CollectionName: v.collection,
		VectorsConfig: &pb.VectorsConfig{
			Config: &pb.VectorsConfig_Params{
				Params: &pb.VectorParams{
					Size:     d,
					Distance: pb.Distance_Euclid,
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("semantic: create collection %s: %w", v.collection, err)
	}
	return nil
}

// ExistingIDs returns the subset of the given article ids already present in
// the collection. This is the indexing pipeline's idempotency check.
func (v *VectorStore) ExistingIDs(ctx context.Context, articleIDs []string) (map[string]bool, error) {
	if len(articleIDs) == 0 {
		return map[string]bool{}, nil
	}

	byPoint := make(map[string]string, len(articleIDs))
	ids := make([]*pb.PointId, len(articleIDs))
	for i, id := range articleIDs {
		pid := PointID(id)
		byPoint[pid] = id
		ids[i] = &pb.PointId{PointIdOptions: &pb.PointId_Uuid{Uuid: pid}}
	}

	resp, err := v.points.Get(ctx, &pb.GetPoints{
		CollectionName: v.collection,
		Ids:            ids,
	})
	if err != nil {
		return nil, fmt.Errorf("semantic: get %d points: %w", len(ids), err)
	}

	existing := make(map[string]bool, len(resp.GetResult()))
	for _, p := range resp.GetResult() {
		if articleID, ok := byPoint[p.GetId().GetUuid()]; ok {
			existing[articleID] = true
		}
	}
	return existing, nil
}

// Upsert stores article records as one atomic batch. Point ids derive from
// the article id, so re-upserting an article overwrites rather than
// duplicates.
func (v *VectorStore) Upsert(ctx context.Context, records []Record) error {
	if len(records) == 0 {
		return nil
	}

	points := make([]*pb.PointStruct, len(records))
	for i, r := range records {
		points[i] = &pb.PointStruct{
			Id: &pb.PointId{
				PointIdOptions: &pb.PointId_Uuid{Uuid: PointID(r.ArticleID)},
			},
			Vectors: &pb.Vectors{
				VectorsOptions: &pb.Vectors_Vector{
					Vector: &pb.Vector{Data: r.Embedding},
				},
			},
			Payload: map[string]*pb.Value{
				keyArticleID: stringValue(r.Meta.ArticleID),
				keyNum:       stringValue(r.Meta.Num),
				keyCategory:  stringValue(r.Meta.Category),
				keyURL:       stringValue(r.Meta.URL),
				keyDocument:  stringValue(r.Document),
			},
		}
	}

	wait := true
	_, err := v.points.Upsert(ctx, &pb.UpsertPoints{
		CollectionName: v.collection,
		Wait:           &wait,
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("semantic: upsert %d points: %w", len(records), err)
	}
	return nil
}

// Query performs k-NN search and returns hits with document text, metadata,
// and distances.
func (v *VectorStore) Query(ctx context.Context, embedding []float32, topK int) ([]Hit, error) {
	// A non-positive limit would wrap around in the uint64 conversion.
	if topK < 1 {
		return nil, nil
	}
	resp, err := v.points.Search(ctx, &pb.SearchPoints{
		CollectionName: v.collection,
		Vector:         embedding,
		Limit:          uint64(topK),
		WithPayload:    &pb.WithPayloadSelector{SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true}},
	})
	if err != nil {
		return nil, fmt.Errorf("semantic: search: %w", err)
	}

	hits := make([]Hit, len(resp.GetResult()))
	for i, r := range resp.GetResult() {
		h := Hit{
			Score: float64(r.GetScore()),
			Meta:  make(map[string]string),
		}
		for k, val := range r.GetPayload() {
			s := val.GetStringValue()
			if k == keyDocument {
				h.Document = s
				continue
			}
			h.Meta[k] = s
		}
		hits[i] = h
	}
	return hits, nil
}

// Count returns the number of points in the collection.
func (v *VectorStore) Count(ctx context.Context) (uint64, error) {
	exact := true
	resp, err := v.points.Count(ctx, &pb.CountPoints{
		CollectionName: v.collection,
		Exact:          &exact,
	})
	if err != nil {
		return 0, fmt.Errorf("semantic: count: %w", err)
	}
	return resp.GetResult().GetCount(), nil
}

func stringValue(s string) *pb.Value {
	return &pb.Value{Kind: &pb.Value_StringValue{StringValue: s}}
}

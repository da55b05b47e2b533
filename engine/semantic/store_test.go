package semantic

import (
	"context"
	"testing"

	pb "github.com/qdrant/go-client/qdrant"
)

// panicPoints fails the test if any RPC is issued. The embedded nil interface
// panics on use, so only the guarded paths may reach it.
type panicPoints struct {
	pb.PointsClient
}

func TestQuery_NonPositiveLimit(t *testing.T) {
	v := &VectorStore{points: panicPoints{}, collection: "traffic_law_v1"}

	for _, k := range []int{0, -1} {
		hits, err := v.Query(context.Background(), []float32{0.1, 0.2}, k)
		if err != nil {
			t.Fatalf("k=%d: unexpected error: %v", k, err)
		}
		if len(hits) != 0 {
			t.Errorf("k=%d: expected no hits, got %d", k, len(hits))
		}
	}
}

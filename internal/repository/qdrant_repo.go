package repository

import (
	"context"
	"crypto/tls"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	pb "github.com/qdrant/go-client/qdrant"
	"github.com/timmy/gallery/internal/vectorindex"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
)

const (
	payloadPhotoID = "photo_id"
	payloadSlot    = "slot"
)

// slotNamespace derives stable point ids from slot numbers.
var slotNamespace = uuid.MustParse("6f1c2a4e-8d3b-4f5a-9c71-2b0e5d4a3c10")

// QdrantConnectionConfig holds configuration for Qdrant connection
type QdrantConnectionConfig struct {
	Host            string
	Port            int
	Collection      string
	APIKey          string // Qdrant Cloud API Key (enables TLS automatically)
	UseTLS          bool   // Explicitly enable TLS without API Key
	VectorDimension int
}

// apiKeyInterceptor creates a unary interceptor that adds API key to metadata
func apiKeyInterceptor(apiKey string) grpc.UnaryClientInterceptor {
	return func(ctx context.Context, method string, req, reply interface{}, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
		ctx = metadata.AppendToOutgoingContext(ctx, "api-key", apiKey)
		return invoker(ctx, method, req, reply, cc, opts...)
	}
}

// QdrantIndex is a vectorindex.Store backed by a Qdrant collection.
// Each point carries its slot and photo id in the payload; the slot
// sequence is kept dense by serializing appends.
type QdrantIndex struct {
	conn           *grpc.ClientConn
	pointsClient   pb.PointsClient
	collectClient  pb.CollectionsClient
	collectionName string
	dimension      int

	mu   sync.Mutex
	size int
}

var _ vectorindex.Store = (*QdrantIndex)(nil)

// NewQdrantIndex connects to Qdrant, ensures the collection exists and loads
// the current point count as the next slot.
// Supports both local Qdrant (insecure) and Qdrant Cloud (TLS + API Key)
func NewQdrantIndex(ctx context.Context, cfg *QdrantConnectionConfig) (*QdrantIndex, error) {
	if cfg.VectorDimension <= 0 {
		return nil, fmt.Errorf("qdrant: vector dimension must be positive")
	}
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	var opts []grpc.DialOption
	if cfg.UseTLS || cfg.APIKey != "" {
		creds := credentials.NewTLS(&tls.Config{MinVersion: tls.VersionTLS13})
		opts = append(opts, grpc.WithTransportCredentials(creds))
		if cfg.APIKey != "" {
			opts = append(opts, grpc.WithUnaryInterceptor(apiKeyInterceptor(cfg.APIKey)))
		}
	} else {
		opts = append(opts, grpc.WithTransportCredentials(insecure.NewCredentials()))
	}

	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to qdrant: %w", err)
	}

	idx := &QdrantIndex{
		conn:           conn,
		pointsClient:   pb.NewPointsClient(conn),
		collectClient:  pb.NewCollectionsClient(conn),
		collectionName: cfg.Collection,
		dimension:      cfg.VectorDimension,
	}

	if err := idx.ensureCollection(ctx); err != nil {
		conn.Close()
		return nil, err
	}

	exact := true
	resp, err := idx.pointsClient.Count(ctx, &pb.CountPoints{
		CollectionName: idx.collectionName,
		Exact:          &exact,
	})
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to count points: %w", err)
	}
	idx.size = int(resp.GetResult().GetCount())

	return idx, nil
}

// Close closes the gRPC connection
func (r *QdrantIndex) Close() error {
	return r.conn.Close()
}

// Dimension implements vectorindex.Store.
func (r *QdrantIndex) Dimension() int {
	return r.dimension
}

// Size implements vectorindex.Store.
func (r *QdrantIndex) Size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.size
}

// ensureCollection creates the collection if it doesn't exist
func (r *QdrantIndex) ensureCollection(ctx context.Context) error {
	info, err := r.collectClient.Get(ctx, &pb.GetCollectionInfoRequest{
		CollectionName: r.collectionName,
	})
	if err == nil {
		if size, ok := collectionVectorSize(info.GetResult()); ok && size != uint64(r.dimension) {
			return fmt.Errorf("%w: collection %s has vector size %d, expected %d",
				vectorindex.ErrDimensionMismatch, r.collectionName, size, r.dimension)
		}
		return nil
	}

	_, err = r.collectClient.Create(ctx, &pb.CreateCollection{
		CollectionName: r.collectionName,
		VectorsConfig: &pb.VectorsConfig{
			Config: &pb.VectorsConfig_Params{
				Params: &pb.VectorParams{
					Size:     uint64(r.dimension),
					Distance: pb.Distance_Euclid,
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}
	return nil
}

func collectionVectorSize(info *pb.CollectionInfo) (uint64, bool) {
	vectors := info.GetConfig().GetParams().GetVectorsConfig()
	if vectors == nil {
		return 0, false
	}

	if single := vectors.GetParams(); single != nil {
		if size := single.GetSize(); size > 0 {
			return size, true
		}
	}

	if paramsMap := vectors.GetParamsMap(); paramsMap != nil {
		for _, vectorParams := range paramsMap.GetMap() {
			if size := vectorParams.GetSize(); size > 0 {
				return size, true
			}
		}
	}

	return 0, false
}

// SlotPointID returns the point id stored for a slot.
func SlotPointID(collection string, slot int) string {
	return uuid.NewSHA1(slotNamespace, []byte(fmt.Sprintf("%s/%d", collection, slot))).String()
}

// Append implements vectorindex.Store. The upsert waits for the write to be
// applied before the slot is handed out.
func (r *QdrantIndex) Append(ctx context.Context, vector []float32, photoID string) (int, error) {
	if len(vector) != r.dimension {
		return 0, fmt.Errorf("%w: got %d, expected %d", vectorindex.ErrDimensionMismatch, len(vector), r.dimension)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	slot := r.size
	wait := true
	_, err := r.pointsClient.Upsert(ctx, &pb.UpsertPoints{
		CollectionName: r.collectionName,
		Wait:           &wait,
		Points: []*pb.PointStruct{
			{
				Id: &pb.PointId{
					PointIdOptions: &pb.PointId_Uuid{Uuid: SlotPointID(r.collectionName, slot)},
				},
				Vectors: &pb.Vectors{
					VectorsOptions: &pb.Vectors_Vector{
						Vector: &pb.Vector{Data: vector},
					},
				},
				Payload: map[string]*pb.Value{
					payloadPhotoID: {Kind: &pb.Value_StringValue{StringValue: photoID}},
					payloadSlot:    {Kind: &pb.Value_IntegerValue{IntegerValue: int64(slot)}},
				},
			},
		},
	})
	if err != nil {
		return 0, fmt.Errorf("failed to upsert point: %w", err)
	}

	r.size++
	return slot, nil
}

// Search implements vectorindex.Store. Qdrant reports Euclidean distance; it
// is squared so distances match the file-backed index.
func (r *QdrantIndex) Search(ctx context.Context, query []float32, limit int) ([]vectorindex.Hit, error) {
	if len(query) != r.dimension {
		return nil, fmt.Errorf("%w: got %d, expected %d", vectorindex.ErrDimensionMismatch, len(query), r.dimension)
	}
	if limit <= 0 {
		return []vectorindex.Hit{}, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.size == 0 {
		return []vectorindex.Hit{}, nil
	}

	resp, err := r.pointsClient.Search(ctx, &pb.SearchPoints{
		CollectionName: r.collectionName,
		Vector:         query,
		Limit:          uint64(limit),
		WithPayload: &pb.WithPayloadSelector{
			SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search: %w", err)
	}

	return scoredToHits(resp.GetResult()), nil
}

// scoredToHits converts scored points to hits ordered by distance then slot.
// Points without a photo id are skipped.
func scoredToHits(points []*pb.ScoredPoint) []vectorindex.Hit {
	hits := make([]vectorindex.Hit, 0, len(points))
	for _, p := range points {
		payload := p.GetPayload()
		photoID := payload[payloadPhotoID].GetStringValue()
		if photoID == "" {
			continue
		}
		hits = append(hits, vectorindex.Hit{
			Slot:     int(payload[payloadSlot].GetIntegerValue()),
			PhotoID:  photoID,
			Distance: p.GetScore() * p.GetScore(),
		})
	}
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Distance != hits[j].Distance {
			return hits[i].Distance < hits[j].Distance
		}
		return hits[i].Slot < hits[j].Slot
	})
	return hits
}

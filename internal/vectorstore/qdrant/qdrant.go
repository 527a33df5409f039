// Package qdrant implements the vector store read contract over Qdrant's
// gRPC API. Collection administration stays with whoever populated the
// collection; this client only issues similarity queries.
package qdrant

import (
	"context"
	"fmt"
	"time"

	"github.com/qdrant/go-client/qdrant"
	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"

	"research-rag/internal/domain"
	"research-rag/internal/retry"
)

// Config holds connection parameters for an already-populated collection.
type Config struct {
	Host       string
	Port       int
	Collection string
	Timeout    time.Duration
}

// Store is a search-only Qdrant client. Safe for concurrent use; the
// underlying gRPC connection multiplexes in-flight queries.
type Store struct {
	points     qdrant.PointsClient
	conn       *grpc.ClientConn
	collection string
	timeout    time.Duration
	log        *logrus.Entry
}

// New dials Qdrant and verifies the connection with a collection lookup.
func New(ctx context.Context, cfg Config, log *logrus.Entry) (*Store, error) {
	if cfg.Collection == "" {
		return nil, fmt.Errorf("qdrant collection name is empty")
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	entry := log.WithField("component", "vectorstore").WithField("address", addr)
	entry.Info("connecting to qdrant")

	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("dial qdrant: %w", err)
	}

	collections := qdrant.NewCollectionsClient(conn)
	hctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if _, err := collections.Get(hctx, &qdrant.GetCollectionInfoRequest{CollectionName: cfg.Collection}); err != nil {
		conn.Close()
		return nil, fmt.Errorf("collection %q not reachable: %w", cfg.Collection, err)
	}
	entry.WithField("collection", cfg.Collection).Info("qdrant collection ready")

	return &Store{
		points:     qdrant.NewPointsClient(conn),
		conn:       conn,
		collection: cfg.Collection,
		timeout:    timeout,
		log:        entry,
	}, nil
}

// Search returns up to limit nearest points by the collection's configured
// metric, ordered by descending score.
func (s *Store) Search(ctx context.Context, vector []float32, limit int) ([]domain.Hit, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("%w: limit must be positive", domain.ErrValidation)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	resp, err := s.points.Search(ctx, &qdrant.SearchPoints{
		CollectionName: s.collection,
		Vector:         vector,
		Limit:          uint64(limit),
		WithPayload: &qdrant.WithPayloadSelector{
			SelectorOptions: &qdrant.WithPayloadSelector_Enable{Enable: true},
		},
	})
	if err != nil {
		wrapped := fmt.Errorf("%w: %v", domain.ErrRetrieval, err)
		if transientCode(status.Code(err)) {
			return nil, retry.Transient(wrapped)
		}
		return nil, wrapped
	}

	hits := make([]domain.Hit, 0, len(resp.GetResult()))
	for _, p := range resp.GetResult() {
		hits = append(hits, domain.Hit{
			ID:      pointID(p),
			Title:   payloadString(p.GetPayload(), "title"),
			URL:     payloadString(p.GetPayload(), "url"),
			Excerpt: payloadString(p.GetPayload(), "abstract"),
			Score:   float64(p.GetScore()),
		})
	}
	s.log.WithField("hits", len(hits)).Debug("similarity search done")
	return hits, nil
}

// Close releases the gRPC connection.
func (s *Store) Close() error { return s.conn.Close() }

func transientCode(c codes.Code) bool {
	switch c {
	case codes.Unavailable, codes.DeadlineExceeded, codes.ResourceExhausted, codes.Aborted:
		return true
	}
	return false
}

func pointID(p *qdrant.ScoredPoint) string {
	id := p.GetId()
	if id == nil {
		return payloadString(p.GetPayload(), "doc_id")
	}
	if u := id.GetUuid(); u != "" {
		return u
	}
	return fmt.Sprintf("%d", id.GetNum())
}

func payloadString(payload map[string]*qdrant.Value, key string) string {
	v, ok := payload[key]
	if !ok {
		return ""
	}
	return v.GetStringValue()
}

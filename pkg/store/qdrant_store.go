package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/ragpipe/ragpipe/pkg/domain"
	"github.com/ragpipe/ragpipe/pkg/log"
)

const (
	defaultTimeout    = 30 * time.Second
	defaultVectorSize = 1536 // text-embedding-3-small default
	defaultDistance   = pb.Distance_Cosine
	defaultCollection = "ragpipe_documents"
)

// QdrantStore implements domain.VectorStore against a hosted Qdrant cluster
// over gRPC.
type QdrantStore struct {
	client         pb.PointsClient
	collectionName string
	conn           *grpc.ClientConn
	vectorSize     uint64
}

// NewQdrantStore connects to Qdrant at url and ensures the collection exists.
func NewQdrantStore(url string, collection string) (*QdrantStore, error) {
	if collection == "" {
		collection = defaultCollection
	}

	url = strings.TrimPrefix(url, "http://")
	url = strings.TrimPrefix(url, "https://")

	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	conn, err := grpc.NewClient(url, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Qdrant: %w", err)
	}

	pointsClient := pb.NewPointsClient(conn)
	collectionsClient := pb.NewCollectionsClient(conn)

	store := &QdrantStore{
		client:         pointsClient,
		collectionName: collection,
		conn:           conn,
		vectorSize:     defaultVectorSize,
	}

	if err := store.ensureCollection(ctx, collectionsClient, store.vectorSize); err != nil {
		_ = conn.Close()
		return nil, err
	}

	return store, nil
}

// ensureCollection creates the collection when missing and recreates it when
// the existing vector size does not match.
func (s *QdrantStore) ensureCollection(ctx context.Context, client pb.CollectionsClient, vectorSize uint64) error {
	listResp, err := client.List(ctx, &pb.ListCollectionsRequest{})
	if err != nil {
		return fmt.Errorf("failed to list collections: %w", err)
	}

	exists := false
	needsRecreate := false
	for _, col := range listResp.Collections {
		if col.Name == s.collectionName {
			exists = true
			info, err := client.Get(ctx, &pb.GetCollectionInfoRequest{
				CollectionName: s.collectionName,
			})
			if err == nil && info.Result != nil && info.Result.Config != nil && info.Result.Config.Params != nil {
				if vectorParams := info.Result.Config.Params.GetVectorsConfig(); vectorParams != nil {
					if params := vectorParams.GetParams(); params != nil {
						if params.Size != vectorSize {
							log.Warnf("collection %s has vector size %d, need %d, recreating", s.collectionName, params.Size, vectorSize)
							needsRecreate = true
						}
						s.vectorSize = params.Size
					}
				}
			}
			break
		}
	}

	if needsRecreate {
		_, err := client.Delete(ctx, &pb.DeleteCollection{
			CollectionName: s.collectionName,
		})
		if err != nil {
			return fmt.Errorf("failed to delete collection for recreation: %w", err)
		}
		exists = false
	}

	if !exists {
		_, err := client.Create(ctx, &pb.CreateCollection{
			CollectionName: s.collectionName,
			VectorsConfig: &pb.VectorsConfig{
				Config: &pb.VectorsConfig_Params{
					Params: &pb.VectorParams{
						Size:     vectorSize,
						Distance: defaultDistance,
					},
				},
			},
		})
		if err != nil {
			return fmt.Errorf("failed to create collection: %w", err)
		}
		s.vectorSize = vectorSize
		log.Infof("created Qdrant collection %s with vector size %d", s.collectionName, vectorSize)
	}

	return nil
}

// Store upserts chunk vectors into the collection.
func (s *QdrantStore) Store(ctx context.Context, chunks []domain.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	// Adjust collection size to the actual embedding dimension on first write.
	if len(chunks[0].Vector) > 0 {
		actualSize := uint64(len(chunks[0].Vector))
		if s.vectorSize != actualSize {
			collectionsClient := pb.NewCollectionsClient(s.conn)
			if err := s.ensureCollection(ctx, collectionsClient, actualSize); err != nil {
				return fmt.Errorf("failed to ensure collection with size %d: %w", actualSize, err)
			}
			s.vectorSize = actualSize
		}
	}

	points := make([]*pb.PointStruct, 0, len(chunks))

	for _, chunk := range chunks {
		chunkID := chunk.ID
		if chunkID == "" {
			chunkID = uuid.New().String()
		} else if _, err := uuid.Parse(chunkID); err != nil {
			// Qdrant point IDs must be UUIDs; derive one deterministically.
			chunkID = uuid.NewSHA1(uuid.NameSpaceOID, []byte(chunk.ID)).String()
		}

		embeddings := make([]float32, len(chunk.Vector))
		for i, v := range chunk.Vector {
			embeddings[i] = float32(v)
		}

		payload := map[string]*pb.Value{
			"content":  {Kind: &pb.Value_StringValue{StringValue: chunk.Content}},
			"doc_id":   {Kind: &pb.Value_StringValue{StringValue: chunk.DocumentID}},
			"chunk_id": {Kind: &pb.Value_StringValue{StringValue: chunk.ID}},
		}

		for k, v := range chunk.Metadata {
			if strVal, ok := v.(string); ok {
				payload[k] = &pb.Value{Kind: &pb.Value_StringValue{StringValue: strVal}}
			}
		}

		points = append(points, &pb.PointStruct{
			Id: &pb.PointId{
				PointIdOptions: &pb.PointId_Uuid{
					Uuid: chunkID,
				},
			},
			Vectors: &pb.Vectors{
				VectorsOptions: &pb.Vectors_Vector{
					Vector: &pb.Vector{
						Data: embeddings,
					},
				},
			},
			Payload: payload,
		})
	}

	_, err := s.client.Upsert(ctx, &pb.UpsertPoints{
		CollectionName: s.collectionName,
		Points:         points,
		Wait:           &waitTrue,
	})
	if err != nil {
		return fmt.Errorf("%w: upsert failed: %v", domain.ErrVectorStoreFailed, err)
	}

	return nil
}

// Search performs vector similarity search.
func (s *QdrantStore) Search(ctx context.Context, vector []float64, topK int) ([]domain.Chunk, error) {
	return s.SearchWithFilters(ctx, vector, topK, nil)
}

// SearchWithFilters performs vector similarity search restricted by payload
// equality conditions, e.g. version == "2.2".
func (s *QdrantStore) SearchWithFilters(ctx context.Context, vector []float64, topK int, filters map[string]interface{}) ([]domain.Chunk, error) {
	queryVector := make([]float32, len(vector))
	for i, v := range vector {
		queryVector[i] = float32(v)
	}

	var filter *pb.Filter
	if len(filters) > 0 {
		conditions := make([]*pb.Condition, 0, len(filters))
		for k, v := range filters {
			if strVal, ok := v.(string); ok {
				conditions = append(conditions, &pb.Condition{
					ConditionOneOf: &pb.Condition_Field{
						Field: &pb.FieldCondition{
							Key: k,
							Match: &pb.Match{
								MatchValue: &pb.Match_Keyword{
									Keyword: strVal,
								},
							},
						},
					},
				})
			}
		}

		if len(conditions) > 0 {
			filter = &pb.Filter{
				Must: conditions,
			}
		}
	}

	searchResp, err := s.client.Search(ctx, &pb.SearchPoints{
		CollectionName: s.collectionName,
		Vector:         queryVector,
		Filter:         filter,
		Limit:          uint64(topK),
		WithPayload: &pb.WithPayloadSelector{
			SelectorOptions: &pb.WithPayloadSelector_Enable{
				Enable: true,
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: search failed: %v", domain.ErrVectorStoreFailed, err)
	}

	results := make([]domain.Chunk, 0, len(searchResp.Result))
	for _, point := range searchResp.Result {
		chunk := domain.Chunk{
			ID:       point.Id.GetUuid(),
			Score:    float64(point.Score),
			Metadata: make(map[string]interface{}),
		}

		if payload := point.Payload; payload != nil {
			if v, ok := payload["content"]; ok {
				chunk.Content = v.GetStringValue()
			}
			if v, ok := payload["doc_id"]; ok {
				chunk.DocumentID = v.GetStringValue()
			}
			if v, ok := payload["chunk_id"]; ok {
				chunk.ID = v.GetStringValue()
			}

			for k, v := range payload {
				if k != "content" && k != "doc_id" && k != "chunk_id" {
					chunk.Metadata[k] = v.GetStringValue()
				}
			}
		}

		results = append(results, chunk)
	}

	return results, nil
}

// Delete removes all chunks belonging to a document.
func (s *QdrantStore) Delete(ctx context.Context, documentID string) error {
	if documentID == "" {
		return fmt.Errorf("%w: document ID cannot be empty", domain.ErrInvalidInput)
	}

	_, err := s.client.Delete(ctx, &pb.DeletePoints{
		CollectionName: s.collectionName,
		Points: &pb.PointsSelector{
			PointsSelectorOneOf: &pb.PointsSelector_Filter{
				Filter: &pb.Filter{
					Must: []*pb.Condition{
						{
							ConditionOneOf: &pb.Condition_Field{
								Field: &pb.FieldCondition{
									Key: "doc_id",
									Match: &pb.Match{
										MatchValue: &pb.Match_Keyword{
											Keyword: documentID,
										},
									},
								},
							},
						},
					},
				},
			},
		},
		Wait: &waitTrue,
	})
	if err != nil {
		return fmt.Errorf("%w: delete failed: %v", domain.ErrVectorStoreFailed, err)
	}

	return nil
}

// Reset drops and recreates the collection.
func (s *QdrantStore) Reset(ctx context.Context) error {
	collectionsClient := pb.NewCollectionsClient(s.conn)

	_, err := collectionsClient.Delete(ctx, &pb.DeleteCollection{
		CollectionName: s.collectionName,
	})
	if err != nil {
		log.Warnf("reset: delete collection: %v", err)
	}

	_, err = collectionsClient.Create(ctx, &pb.CreateCollection{
		CollectionName: s.collectionName,
		VectorsConfig: &pb.VectorsConfig{
			Config: &pb.VectorsConfig_Params{
				Params: &pb.VectorParams{
					Size:     s.vectorSize,
					Distance: defaultDistance,
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to recreate collection during reset: %w", err)
	}

	log.Infof("reset Qdrant collection %s", s.collectionName)
	return nil
}

func (s *QdrantStore) Close() error {
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}

var waitTrue = true

package semantic

import (
	"context"
	"errors"
	"testing"

	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
)

// --- Mocks ---

type mockPoints struct {
	pb.PointsClient

	upsertReq  *pb.UpsertPoints
	upsertResp *pb.PointsOperationResponse
	upsertErr  error
	searchReq  *pb.SearchPoints
	searchResp *pb.SearchResponse
	searchErr  error
}

func (m *mockPoints) Upsert(_ context.Context, req *pb.UpsertPoints, _ ...grpc.CallOption) (*pb.PointsOperationResponse, error) {
	m.upsertReq = req
	return m.upsertResp, m.upsertErr
}

func (m *mockPoints) Search(_ context.Context, req *pb.SearchPoints, _ ...grpc.CallOption) (*pb.SearchResponse, error) {
	m.searchReq = req
	return m.searchResp, m.searchErr
}

type mockCollections struct {
	pb.CollectionsClient

	listResp   *pb.ListCollectionsResponse
	listErr    error
	created    *pb.CreateCollection
	createErr  error
	deleted    *pb.DeleteCollection
	deleteErr  error
}

func (m *mockCollections) List(_ context.Context, _ *pb.ListCollectionsRequest, _ ...grpc.CallOption) (*pb.ListCollectionsResponse, error) {
	return m.listResp, m.listErr
}

func (m *mockCollections) Create(_ context.Context, req *pb.CreateCollection, _ ...grpc.CallOption) (*pb.CollectionOperationResponse, error) {
	m.created = req
	return &pb.CollectionOperationResponse{Result: true}, m.createErr
}

func (m *mockCollections) Delete(_ context.Context, req *pb.DeleteCollection, _ ...grpc.CallOption) (*pb.CollectionOperationResponse, error) {
	m.deleted = req
	return &pb.CollectionOperationResponse{Result: true}, m.deleteErr
}

// --- Tests ---

func TestEnsureCollection_AlreadyExists(t *testing.T) {
	cols := &mockCollections{
		listResp: &pb.ListCollectionsResponse{
			Collections: []*pb.CollectionDescription{{Name: "cars"}},
		},
	}
	vs := NewWithClients(&mockPoints{}, cols, "cars")
	if err := vs.EnsureCollection(context.Background(), 768); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cols.created != nil {
		t.Fatal("should not create an existing collection")
	}
}

func TestEnsureCollection_Creates(t *testing.T) {
	cols := &mockCollections{
		listResp: &pb.ListCollectionsResponse{},
	}
	vs := NewWithClients(&mockPoints{}, cols, "cars")
	if err := vs.EnsureCollection(context.Background(), 512); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cols.created == nil {
		t.Fatal("expected create call")
	}
	params := cols.created.GetVectorsConfig().GetParams()
	if params.GetSize() != 512 {
		t.Fatalf("expected dims 512, got %d", params.GetSize())
	}
	if params.GetDistance() != pb.Distance_Cosine {
		t.Fatalf("expected cosine distance, got %v", params.GetDistance())
	}
}

func TestEnsureCollection_ListError(t *testing.T) {
	cols := &mockCollections{listErr: errors.New("unreachable")}
	vs := NewWithClients(&mockPoints{}, cols, "cars")
	if err := vs.EnsureCollection(context.Background(), 768); err == nil {
		t.Fatal("expected error")
	}
}

func TestRecreate_DropsThenCreates(t *testing.T) {
	cols := &mockCollections{}
	vs := NewWithClients(&mockPoints{}, cols, "cars")
	if err := vs.Recreate(context.Background(), 768); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cols.deleted == nil || cols.deleted.GetCollectionName() != "cars" {
		t.Fatal("expected delete call")
	}
	if cols.created == nil {
		t.Fatal("expected create call")
	}
}

func TestUpsert_Empty(t *testing.T) {
	pts := &mockPoints{}
	vs := NewWithClients(pts, &mockCollections{}, "cars")
	if err := vs.Upsert(context.Background(), nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pts.upsertReq != nil {
		t.Fatal("empty upsert should not hit the store")
	}
}

func TestUpsert_PayloadConversion(t *testing.T) {
	pts := &mockPoints{upsertResp: &pb.PointsOperationResponse{}}
	vs := NewWithClients(pts, &mockCollections{}, "cars")

	rec := VectorRecord{
		ID:     "9f2c8e1a-0000-0000-0000-000000000001",
		Vector: []float32{0.1, 0.2},
		Payload: map[string]any{
			"label":      "Toyota Innova",
			"row":        7,
			"image_urls": []string{"a.jpg", "b.jpg"},
		},
	}
	if err := vs.Upsert(context.Background(), []VectorRecord{rec}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	pt := pts.upsertReq.GetPoints()[0]
	if pt.GetId().GetUuid() != rec.ID {
		t.Fatalf("bad id: %s", pt.GetId().GetUuid())
	}
	payload := pt.GetPayload()
	if payload["label"].GetStringValue() != "Toyota Innova" {
		t.Fatal("string payload lost")
	}
	if payload["row"].GetIntegerValue() != 7 {
		t.Fatal("int payload lost")
	}
	if got := payload["image_urls"].GetListValue().GetValues(); len(got) != 2 || got[1].GetStringValue() != "b.jpg" {
		t.Fatalf("list payload lost: %v", got)
	}
}

func TestUpsert_Error(t *testing.T) {
	pts := &mockPoints{upsertErr: errors.New("write failed")}
	vs := NewWithClients(pts, &mockCollections{}, "cars")
	err := vs.Upsert(context.Background(), []VectorRecord{{ID: "x", Vector: []float32{1}}})
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestSearch_MapsResults(t *testing.T) {
	pts := &mockPoints{
		searchResp: &pb.SearchResponse{
			Result: []*pb.ScoredPoint{
				{
					Id:    &pb.PointId{PointIdOptions: &pb.PointId_Uuid{Uuid: "id-1"}},
					Score: 0.93,
					Payload: map[string]*pb.Value{
						"label": {Kind: &pb.Value_StringValue{StringValue: "Toyota Innova"}},
						"image_urls": {Kind: &pb.Value_ListValue{ListValue: &pb.ListValue{
							Values: []*pb.Value{{Kind: &pb.Value_StringValue{StringValue: "a.jpg"}}},
						}}},
					},
				},
			},
		},
	}
	vs := NewWithClients(pts, &mockCollections{}, "cars")

	results, err := vs.Search(context.Background(), []float32{0.5, 0.5}, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	r := results[0]
	if r.ID != "id-1" || r.Score != 0.93 {
		t.Fatalf("bad result: %+v", r)
	}
	if r.Str("label") != "Toyota Innova" {
		t.Fatalf("bad label: %q", r.Str("label"))
	}
	if urls := r.Strs("image_urls"); len(urls) != 1 || urls[0] != "a.jpg" {
		t.Fatalf("bad image urls: %v", urls)
	}
	if pts.searchReq.GetLimit() != 3 {
		t.Fatalf("expected limit 3, got %d", pts.searchReq.GetLimit())
	}
}

func TestSearch_EmptyCollection(t *testing.T) {
	pts := &mockPoints{searchResp: &pb.SearchResponse{}}
	vs := NewWithClients(pts, &mockCollections{}, "cars")
	results, err := vs.Search(context.Background(), []float32{1}, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("expected empty results, got %d", len(results))
	}
}

func TestSearch_Error(t *testing.T) {
	pts := &mockPoints{searchErr: errors.New("unavailable")}
	vs := NewWithClients(pts, &mockCollections{}, "cars")
	if _, err := vs.Search(context.Background(), []float32{1}, 5); err == nil {
		t.Fatal("expected error")
	}
}

func TestClose_NoConn(t *testing.T) {
	vs := NewWithClients(&mockPoints{}, &mockCollections{}, "cars")
	if err := vs.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

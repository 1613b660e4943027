package server_test

import (
	"context"
	"encoding/base64"
	"net"
	"testing"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/joseph-ayodele/contracts-extractor/internal/server"
)

func dialContracts(t *testing.T) *grpc.ClientConn {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	srv, _ := server.NewGRPCServer(server.NewContractServer(newService(t), discardLogger()), discardLogger())
	go srv.Serve(lis)
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func call(t *testing.T, conn *grpc.ClientConn, method string, in map[string]any) (*structpb.Struct, error) {
	t.Helper()
	req, err := structpb.NewStruct(in)
	if err != nil {
		t.Fatalf("NewStruct: %v", err)
	}
	out := new(structpb.Struct)
	err = conn.Invoke(context.Background(), "/"+server.ContractServiceName+"/"+method, req, out)
	return out, err
}

func TestGRPC_ContractService(t *testing.T) {
	conn := dialContracts(t)

	up, err := call(t, conn, "Upload", map[string]any{
		"filename": "msa.pdf",
		"data":     base64.StdEncoding.EncodeToString(samplePDF),
	})
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	id := up.GetFields()["contract_id"].GetStringValue()
	if _, err := uuid.Parse(id); err != nil {
		t.Fatalf("contract_id = %q", id)
	}

	st, err := call(t, conn, "Status", map[string]any{"id": id})
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if got := st.GetFields()["status"].GetStringValue(); got != "pending" {
		t.Errorf("status = %q", got)
	}

	list, err := call(t, conn, "List", map[string]any{"limit": 5})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if got := list.GetFields()["total"].GetNumberValue(); got != 1 {
		t.Errorf("total = %v", got)
	}

	dl, err := call(t, conn, "Download", map[string]any{"id": id})
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	raw, _ := base64.StdEncoding.DecodeString(dl.GetFields()["data"].GetStringValue())
	if string(raw) != string(samplePDF) {
		t.Error("downloaded bytes differ")
	}

	if _, err := call(t, conn, "Export", map[string]any{"status": "pending"}); err != nil {
		t.Errorf("Export: %v", err)
	}
	if _, err := call(t, conn, "Delete", map[string]any{"id": id}); err != nil {
		t.Fatalf("Delete: %v", err)
	}
}

func TestGRPC_ErrorCodes(t *testing.T) {
	conn := dialContracts(t)
	up, err := call(t, conn, "Upload", map[string]any{
		"filename": "msa.pdf",
		"data":     base64.StdEncoding.EncodeToString(samplePDF),
	})
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	id := up.GetFields()["contract_id"].GetStringValue()

	tests := []struct {
		name   string
		method string
		in     map[string]any
		want   codes.Code
	}{
		{"empty upload", "Upload", map[string]any{"filename": "x.pdf"}, codes.InvalidArgument},
		{"bad base64", "Upload", map[string]any{"filename": "x.pdf", "data": "%%%"}, codes.InvalidArgument},
		{"missing id", "Status", map[string]any{}, codes.InvalidArgument},
		{"unknown id", "Status", map[string]any{"id": uuid.NewString()}, codes.NotFound},
		{"result not ready", "Result", map[string]any{"id": id}, codes.FailedPrecondition},
		{"reprocess pending", "Reprocess", map[string]any{"id": id}, codes.Aborted},
		{"bad limit", "List", map[string]any{"limit": 1000}, codes.InvalidArgument},
		{"bad status", "Export", map[string]any{"status": "archived"}, codes.InvalidArgument},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := call(t, conn, tc.method, tc.in)
			if got := status.Code(err); got != tc.want {
				t.Errorf("code = %v, want %v (%v)", got, tc.want, err)
			}
		})
	}
}

func TestGRPC_Health(t *testing.T) {
	conn := dialContracts(t)
	resp, err := healthpb.NewHealthClient(conn).Check(context.Background(), &healthpb.HealthCheckRequest{Service: server.ContractServiceName})
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		t.Errorf("status = %v", resp.GetStatus())
	}
}

package grpcstore

import (
	"context"
	"net"
	"testing"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/test/bufconn"

	"xdao.co/purse/storage"
	"xdao.co/purse/storage/localfs"
	"xdao.co/purse/storage/testkit"
)

func serve(t *testing.T, backing storage.Store) *Client {
	t.Helper()
	lis := bufconn.Listen(1024 * 1024)
	srv := grpc.NewServer(grpc.UnaryInterceptor(LoggingInterceptor(zap.NewNop())))
	RegisterStoreServer(srv, &Server{Store: backing})

	go func() {
		_ = srv.Serve(lis)
	}()
	t.Cleanup(srv.Stop)

	dialer := func(ctx context.Context, s string) (net.Conn, error) { return lis.Dial() }
	client, err := Dial("bufnet", DialOptions{Extra: []grpc.DialOption{grpc.WithContextDialer(dialer)}})
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	client.Timeout = 2 * time.Second
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestGRPCStore_Conformance(t *testing.T) {
	testkit.RunStoreConformance(t, func(t *testing.T) storage.Store {
		return serve(t, storage.NewMemStore())
	})
}

func TestGRPCStore_LocalFS_RoundTrip(t *testing.T) {
	backing, err := localfs.New(t.TempDir())
	if err != nil {
		t.Fatalf("localfs.New: %v", err)
	}
	client := serve(t, backing)
	ctx := context.Background()

	payload := []byte("hello grpcstore")
	if err := client.Write(ctx, payload, "purse", "notary", "nym", "instrument"); err != nil {
		t.Fatalf("Write: %v", err)
	}
	ok, err := client.Exists(ctx, "purse", "notary", "nym", "instrument")
	if err != nil || !ok {
		t.Fatalf("Exists: got (%v, %v) want (true, nil)", ok, err)
	}
	got, err := backing.Read(ctx, "purse", "notary", "nym", "instrument")
	if err != nil {
		t.Fatalf("backing Read: %v", err)
	}
	if string(got) != string(payload) {
		t.Fatalf("payload mismatch")
	}
}

func TestGRPCStore_WriteWithoutPathRejected(t *testing.T) {
	srv := &Server{Store: storage.NewMemStore()}
	if _, err := srv.Write(context.Background(), nil); err == nil {
		t.Fatalf("Write without path metadata should fail")
	}
}

package grpchealth

import (
	"context"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/test/bufconn"
)

const bufferSize = 1024 * 1024

type switchablePinger struct {
	mutex sync.Mutex
	err   error
}

func (pinger *switchablePinger) Ping(context.Context) error {
	pinger.mutex.Lock()
	defer pinger.mutex.Unlock()
	return pinger.err
}

func (pinger *switchablePinger) set(err error) {
	pinger.mutex.Lock()
	defer pinger.mutex.Unlock()
	pinger.err = err
}

func startHealthClient(test *testing.T, checker *Checker) healthpb.HealthClient {
	test.Helper()
	listener := bufconn.Listen(bufferSize)
	grpcServer := grpc.NewServer()
	checker.Register(grpcServer)
	go func() { _ = grpcServer.Serve(listener) }()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return listener.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		test.Fatalf("dial: %v", err)
	}
	test.Cleanup(func() {
		_ = conn.Close()
		grpcServer.Stop()
	})
	return healthpb.NewHealthClient(conn)
}

func TestProbeReflectsStoreReachability(test *testing.T) {
	test.Parallel()
	pinger := &switchablePinger{}
	checker := NewChecker(pinger, time.Minute, nil)
	client := startHealthClient(test, checker)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	response, err := client.Check(ctx, &healthpb.HealthCheckRequest{Service: ServiceName})
	if err != nil {
		test.Fatalf("check: %v", err)
	}
	if response.GetStatus() != healthpb.HealthCheckResponse_NOT_SERVING {
		test.Fatalf("expected NOT_SERVING before first probe, got %v", response.GetStatus())
	}

	if status := checker.Probe(ctx); status != healthpb.HealthCheckResponse_SERVING {
		test.Fatalf("expected SERVING, got %v", status)
	}
	response, err = client.Check(ctx, &healthpb.HealthCheckRequest{})
	if err != nil {
		test.Fatalf("check: %v", err)
	}
	if response.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		test.Fatalf("expected SERVING, got %v", response.GetStatus())
	}

	pinger.set(errors.New("database gone"))
	checker.Probe(ctx)
	response, err = client.Check(ctx, &healthpb.HealthCheckRequest{Service: ServiceName})
	if err != nil {
		test.Fatalf("check: %v", err)
	}
	if response.GetStatus() != healthpb.HealthCheckResponse_NOT_SERVING {
		test.Fatalf("expected NOT_SERVING, got %v", response.GetStatus())
	}
}

func TestRunStopsOnContextCancel(test *testing.T) {
	test.Parallel()
	checker := NewChecker(&switchablePinger{}, 10*time.Millisecond, nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		checker.Run(ctx)
		close(done)
	}()
	time.Sleep(30 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		test.Fatalf("expected Run to return after cancel")
	}
}

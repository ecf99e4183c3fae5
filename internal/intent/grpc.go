package intent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/connectivity"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/protobuf/types/known/structpb"
)

// DefaultMethod is the full gRPC method name of the extraction call.
const DefaultMethod = "/intent.v1.IntentService/Extract"

var (
	errConnectionShutdown       = errors.New("connection shutdown")
	errConnectionStateUnchanged = errors.New("connection state did not change")
)

// GrpcConfig holds configuration for the gRPC extractor.
type GrpcConfig struct {
	Address          string
	Method           string
	ConnectTimeout   time.Duration
	RequestTimeout   time.Duration
	KeepaliveTime    time.Duration
	KeepaliveTimeout time.Duration
	// DialOptions are appended to the defaults.
	DialOptions []grpc.DialOption
}

// DefaultGrpcConfig returns defaults for the given address.
func DefaultGrpcConfig(addr string) GrpcConfig {
	return GrpcConfig{
		Address:          addr,
		Method:           DefaultMethod,
		ConnectTimeout:   5 * time.Second,
		RequestTimeout:   3 * time.Second,
		KeepaliveTime:    2 * time.Minute,
		KeepaliveTimeout: 10 * time.Second,
	}
}

// GrpcExtractor calls the intent service with google.protobuf.Struct
// request and response messages.
type GrpcExtractor struct {
	conn   *grpc.ClientConn
	cfg    GrpcConfig
	logger *slog.Logger
}

// NewGrpcExtractor creates a client for the intent service. The connection
// is warmed up for ConnectTimeout, but an unreachable service is not fatal:
// the client keeps reconnecting and calls fail with ErrUnavailable until it
// is back.
func NewGrpcExtractor(cfg GrpcConfig, logger *slog.Logger) (*GrpcExtractor, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Method == "" {
		cfg.Method = DefaultMethod
	}

	kacp := keepalive.ClientParameters{
		Time:                cfg.KeepaliveTime,
		Timeout:             cfg.KeepaliveTimeout,
		PermitWithoutStream: false,
	}

	opts := append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithKeepaliveParams(kacp),
	}, cfg.DialOptions...)

	conn, err := grpc.NewClient(cfg.Address, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create intent client for %s: %w", cfg.Address, err)
	}

	if cfg.ConnectTimeout > 0 {
		connectCtx, cancel := context.WithTimeout(context.Background(), cfg.ConnectTimeout)
		defer cancel()
		if err := waitForReady(connectCtx, conn); err != nil {
			logger.Warn("Intent service not ready yet, calls use the fallback until it is",
				"address", cfg.Address, "error", err)
			return &GrpcExtractor{conn: conn, cfg: cfg, logger: logger}, nil
		}
	}

	logger.Info("Connected to intent service", "address", cfg.Address, "method", cfg.Method)
	return &GrpcExtractor{conn: conn, cfg: cfg, logger: logger}, nil
}

func waitForReady(ctx context.Context, conn *grpc.ClientConn) error {
	for {
		state := conn.GetState()
		switch state {
		case connectivity.Ready:
			return nil
		case connectivity.Idle:
			conn.Connect()
		case connectivity.Shutdown:
			return errConnectionShutdown
		}

		if !conn.WaitForStateChange(ctx, state) {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("%w from %s", errConnectionStateUnchanged, state)
		}
	}
}

// Extract sends the turn to the intent service and validates the reply.
func (g *GrpcExtractor) Extract(ctx context.Context, req Request) (Result, error) {
	if g.cfg.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.cfg.RequestTimeout)
		defer cancel()
	}

	in, err := structpb.NewStruct(map[string]any{
		"session_fields": Encode(req.Fields),
		"stage":          string(req.Stage),
		"step":           string(req.Step),
		"user_text":      req.Text,
		"event_kind":     string(req.Kind),
	})
	if err != nil {
		return Result{}, fmt.Errorf("encode intent request: %w", err)
	}

	out := &structpb.Struct{}
	if err := g.conn.Invoke(ctx, g.cfg.Method, in, out); err != nil {
		return Result{}, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return Decode(out.AsMap())
}

// Close closes the gRPC connection.
func (g *GrpcExtractor) Close() {
	if g.conn != nil {
		if err := g.conn.Close(); err != nil {
			g.logger.Warn("failed to close gRPC connection", "error", err)
		}
	}
}

var _ Extractor = (*GrpcExtractor)(nil)

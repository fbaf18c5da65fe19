package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"eventret/internal/backtest"
	"eventret/internal/catalog"
	"eventret/internal/domain"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "eventret.v1.Backtest"

// Messages are google.protobuf.Struct values carrying the same JSON documents
// as the REST API, so no generated code is needed.

// BacktestServer is the server API for the eventret.v1.Backtest service.
type BacktestServer interface {
	Run(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Catalogs(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Offsets(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Latest(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// BacktestService implements BacktestServer on top of a Service.
type BacktestService struct {
	svc *Service
}

// Compile-time interface check.
var _ BacktestServer = (*BacktestService)(nil)

// NewBacktestService creates the gRPC handler for svc.
func NewBacktestService(svc *Service) *BacktestService {
	return &BacktestService{svc: svc}
}

// Register adds the service to s.
func (b *BacktestService) Register(s *grpc.Server) {
	s.RegisterService(&backtestServiceDesc, b)
}

// Run decodes a RunRequest and returns a RunResponse.
func (b *BacktestService) Run(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req RunRequest
	if err := fromStruct(in, &req); err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "decoding request: %v", err)
	}
	resp, err := b.svc.Run(ctx, req)
	if err != nil {
		return nil, statusFor(err)
	}
	return toStruct(resp)
}

// Catalogs returns {"catalogs": [...]}.
func (b *BacktestService) Catalogs(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return toStruct(map[string]any{"catalogs": b.svc.Catalogs()})
}

// Offsets returns {"entry": [...], "exit": [...]}.
func (b *BacktestService) Offsets(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return toStruct(b.svc.Offsets())
}

// Latest returns the snapshot of the newest run.
func (b *BacktestService) Latest(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return toStruct(b.svc.Latest())
}

// statusFor maps the error taxonomy onto gRPC status codes.
func statusFor(err error) error {
	code := codes.Internal
	switch {
	case errors.Is(err, context.Canceled):
		code = codes.Canceled
	case errors.Is(err, context.DeadlineExceeded):
		code = codes.DeadlineExceeded
	case errors.Is(err, domain.ErrUnknownCatalog):
		code = codes.NotFound
	default:
		switch domain.Classify(err) {
		case "transport":
			code = codes.Unavailable
		case "malformed_data":
			code = codes.DataLoss
		case "date_not_in_series", "offset_out_of_range", "invalid_price", "empty_input":
			code = codes.FailedPrecondition
		case "bad_request":
			code = codes.InvalidArgument
		case "stale":
			code = codes.Aborted
		}
	}
	return status.Error(code, err.Error())
}

func toStruct(v any) (*structpb.Struct, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encoding response: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, status.Errorf(codes.Internal, "encoding response: %v", err)
	}
	st, err := structpb.NewStruct(m)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encoding response: %v", err)
	}
	return st, nil
}

func fromStruct(st *structpb.Struct, v any) error {
	b, err := json.Marshal(st.AsMap())
	if err != nil {
		return err
	}
	return json.Unmarshal(b, v)
}

func handler(call func(BacktestServer, context.Context, *structpb.Struct) (*structpb.Struct, error), method string) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(BacktestServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/" + method}
		return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
			return call(srv.(BacktestServer), ctx, req.(*structpb.Struct))
		})
	}
}

var backtestServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*BacktestServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Run", Handler: handler(BacktestServer.Run, "Run")},
		{MethodName: "Catalogs", Handler: handler(BacktestServer.Catalogs, "Catalogs")},
		{MethodName: "Offsets", Handler: handler(BacktestServer.Offsets, "Offsets")},
		{MethodName: "Latest", Handler: handler(BacktestServer.Latest, "Latest")},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "eventret/v1/backtest.proto",
}

// Client calls a remote eventret.v1.Backtest service.
type Client struct {
	conn grpc.ClientConnInterface
}

// NewClient wraps an established connection.
func NewClient(conn grpc.ClientConnInterface) *Client {
	return &Client{conn: conn}
}

func (c *Client) invoke(ctx context.Context, method string, in any, out any) error {
	req, err := toStruct(in)
	if err != nil {
		return err
	}
	resp := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, "/"+ServiceName+"/"+method, req, resp); err != nil {
		return err
	}
	if err := fromStruct(resp, out); err != nil {
		return fmt.Errorf("decoding %s response: %w", method, err)
	}
	return nil
}

// Run executes a backtest remotely.
func (c *Client) Run(ctx context.Context, req RunRequest) (*RunResponse, error) {
	var resp RunResponse
	if err := c.invoke(ctx, "Run", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Catalogs lists the server's catalogs.
func (c *Client) Catalogs(ctx context.Context) ([]CatalogView, error) {
	var resp struct {
		Catalogs []CatalogView `json:"catalogs"`
	}
	if err := c.invoke(ctx, "Catalogs", struct{}{}, &resp); err != nil {
		return nil, err
	}
	return resp.Catalogs, nil
}

// Offsets returns the server's enumerated offsets.
func (c *Client) Offsets(ctx context.Context) (catalog.Offsets, error) {
	var resp catalog.Offsets
	err := c.invoke(ctx, "Offsets", struct{}{}, &resp)
	return resp, err
}

// Latest returns the state of the server's newest run.
func (c *Client) Latest(ctx context.Context) (backtest.Snapshot, error) {
	var resp backtest.Snapshot
	err := c.invoke(ctx, "Latest", struct{}{}, &resp)
	return resp, err
}

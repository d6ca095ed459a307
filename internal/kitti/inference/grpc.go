package inference

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"image/color"
	"math"
	"time"

	"gonum.org/v1/gonum/mat"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/banshee-data/kittiscan/internal/monitoring"
)

// Wire protocol for the remote engine. Requests carry the raw little-endian
// float32 records of one scan; responses carry uint32 rows, uint32 cols and
// rows*cols little-endian float32 probabilities, row-major.
const (
	ServiceName  = "kittiscan.inference.v1.Inference"
	inferMethod  = "/" + ServiceName + "/Infer"
	modelPathKey = "x-model-path"
	recordBytes  = FloatsPerPoint * 4
)

// GRPCClient calls a remote segmentation engine.
type GRPCClient struct {
	conn      *grpc.ClientConn
	modelPath string
	timeout   time.Duration
	meta      Metadata
}

// DialGRPC creates a client for addr. The connection is established lazily
// on the first Infer call. timeout bounds each call; zero disables it.
func DialGRPC(addr, modelPath string, timeout time.Duration, meta Metadata, opts ...grpc.DialOption) (*GRPCClient, error) {
	dialOpts := append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)
	conn, err := grpc.NewClient(addr, dialOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create inference client for %s: %w", addr, err)
	}
	if meta.Names == nil {
		meta = DefaultMetadata()
	}
	monitoring.Logf("[inference] grpc backend target=%s model=%q", addr, modelPath)
	return &GRPCClient{conn: conn, modelPath: modelPath, timeout: timeout, meta: meta}, nil
}

// Infer sends the first n records of values to the engine.
func (c *GRPCClient) Infer(values []float32, n int) (*mat.Dense, error) {
	if err := checkBuffer(values, n); err != nil {
		return nil, err
	}

	ctx := context.Background()
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	if c.modelPath != "" {
		ctx = metadata.AppendToOutgoingContext(ctx, modelPathKey, c.modelPath)
	}

	req := wrapperspb.Bytes(encodeRecords(values, n))
	resp := new(wrapperspb.BytesValue)
	if err := c.conn.Invoke(ctx, inferMethod, req, resp); err != nil {
		return nil, fmt.Errorf("inference call failed: %w", err)
	}
	return decodeMatrix(resp.GetValue())
}

func (c *GRPCClient) LabelMap() map[int]string     { return copyNames(c.meta.Names) }
func (c *GRPCClient) ColorMap() map[int]color.RGBA { return copyColors(c.meta.Colors) }

// Close releases the underlying connection.
func (c *GRPCClient) Close() error {
	return c.conn.Close()
}

// InferenceServer is the server-side contract of the Inference service.
type InferenceServer interface {
	Infer(context.Context, *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error)
}

// RegisterServer exposes inf as the Inference service on s.
func RegisterServer(s grpc.ServiceRegistrar, inf Inferencer) {
	s.RegisterService(&serviceDesc, &server{inf: inf})
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*InferenceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Infer", Handler: inferHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "kittiscan/inference/v1/inference.proto",
}

func inferHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.BytesValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(InferenceServer).Infer(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: inferMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(InferenceServer).Infer(ctx, req.(*wrapperspb.BytesValue))
	}
	return interceptor(ctx, in, info, handler)
}

type server struct {
	inf Inferencer
}

func (s *server) Infer(ctx context.Context, req *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error) {
	values, n, err := decodeRecords(req.GetValue())
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if mp := md.Get(modelPathKey); len(mp) > 0 {
			monitoring.Logf("[inference] request model=%q points=%d", mp[0], n)
		}
	}

	m, err := s.inf.Infer(values, n)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return wrapperspb.Bytes(encodeMatrix(m)), nil
}

func encodeRecords(values []float32, n int) []byte {
	buf := make([]byte, n*recordBytes)
	for i, v := range values[:n*FloatsPerPoint] {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

func decodeRecords(b []byte) ([]float32, int, error) {
	if len(b)%recordBytes != 0 {
		return nil, 0, fmt.Errorf("record buffer length %d is not a multiple of %d", len(b), recordBytes)
	}
	values := make([]float32, len(b)/4)
	for i := range values {
		values[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return values, len(b) / recordBytes, nil
}

func encodeMatrix(m *mat.Dense) []byte {
	rows, cols := 0, 0
	if m != nil && !m.IsEmpty() {
		rows, cols = m.Dims()
	}
	buf := make([]byte, 8+rows*cols*4)
	binary.LittleEndian.PutUint32(buf[0:], uint32(rows))
	binary.LittleEndian.PutUint32(buf[4:], uint32(cols))
	off := 8
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			binary.LittleEndian.PutUint32(buf[off:], math.Float32bits(float32(m.At(r, c))))
			off += 4
		}
	}
	return buf
}

var errBadMatrix = errors.New("malformed class distribution")

func decodeMatrix(b []byte) (*mat.Dense, error) {
	if len(b) < 8 {
		return nil, fmt.Errorf("%w: %d byte payload", errBadMatrix, len(b))
	}
	rows := int(binary.LittleEndian.Uint32(b[0:]))
	cols := int(binary.LittleEndian.Uint32(b[4:]))
	if cols != 0 && rows > (len(b)-8)/4/cols {
		return nil, fmt.Errorf("%w: %dx%d exceeds %d byte payload", errBadMatrix, rows, cols, len(b))
	}
	if len(b) != 8+rows*cols*4 {
		return nil, fmt.Errorf("%w: %dx%d needs %d bytes, got %d", errBadMatrix, rows, cols, 8+rows*cols*4, len(b))
	}
	if rows == 0 || cols == 0 {
		return &mat.Dense{}, nil
	}
	data := make([]float64, rows*cols)
	for i := range data {
		data[i] = float64(math.Float32frombits(binary.LittleEndian.Uint32(b[8+i*4:])))
	}
	return mat.NewDense(rows, cols, data), nil
}

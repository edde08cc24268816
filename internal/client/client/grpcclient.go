package client

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/dmitrijs2005/blobvault/internal/common"
	"github.com/dmitrijs2005/blobvault/internal/filex"
	"github.com/dmitrijs2005/blobvault/internal/models"
	pb "github.com/dmitrijs2005/blobvault/internal/proto"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

type GRPCClient struct {
	endpointURL string
	conn        *grpc.ClientConn
	client      pb.BlobServiceClient
	accessToken string
	spoolDir    string
}

var _ Client = (*GRPCClient)(nil)

func withAccessToken(ctx context.Context, token string) context.Context {
	md, _ := metadata.FromOutgoingContext(ctx)
	md = md.Copy()
	if md == nil {
		md = metadata.MD{}
	}
	md.Delete(common.AccessTokenHeaderName)
	md.Set(common.AccessTokenHeaderName, token)

	return metadata.NewOutgoingContext(ctx, md)
}

func (s *GRPCClient) accessTokenInterceptor(
	ctx context.Context,
	method string,
	req, reply interface{},
	cc *grpc.ClientConn,
	invoker grpc.UnaryInvoker,
	opts ...grpc.CallOption,
) error {
	return invoker(withAccessToken(ctx, s.accessToken), method, req, reply, cc, opts...)
}

func (s *GRPCClient) accessTokenStreamInterceptor(
	ctx context.Context,
	desc *grpc.StreamDesc,
	cc *grpc.ClientConn,
	method string,
	streamer grpc.Streamer,
	opts ...grpc.CallOption,
) (grpc.ClientStream, error) {
	return streamer(withAccessToken(ctx, s.accessToken), desc, cc, method, opts...)
}

// NewBlobClient connects to endpointURL. Extra dial options are appended
// after the defaults (insecure transport, token interceptors).
func NewBlobClient(endpointURL, accessToken, spoolDir string, opts ...grpc.DialOption) (*GRPCClient, error) {
	c := &GRPCClient{endpointURL: endpointURL, accessToken: accessToken, spoolDir: spoolDir}
	if err := c.InitGRPCClient(opts...); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *GRPCClient) InitGRPCClient(opts ...grpc.DialOption) error {
	opts = append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUnaryInterceptor(s.accessTokenInterceptor),
		grpc.WithStreamInterceptor(s.accessTokenStreamInterceptor),
	}, opts...)

	conn, err := grpc.NewClient(s.endpointURL, opts...)
	if err != nil {
		return err
	}
	s.conn = conn
	s.client = pb.NewBlobServiceClient(conn)
	return nil
}

func (s *GRPCClient) Close() error {
	return s.conn.Close()
}

// result converts an envelope into a Result, decoding data on success.
func result[T any](reply *structpb.Struct, decode func(*structpb.Value) (T, error)) (common.Result[T], error) {
	env, err := pb.ParseEnvelope(reply)
	if err != nil {
		return common.Result[T]{}, fmt.Errorf("%w: %v", ErrProtocol, err)
	}

	if !env.Success {
		return common.FailWith[T](env.StatusCode, env.Message), nil
	}
	data, err := decode(env.Data)
	if err != nil {
		return common.Result[T]{}, fmt.Errorf("%w: %v", ErrProtocol, err)
	}
	return common.OK(data), nil
}

func decodeID(v *structpb.Value) (int64, error) {
	n, ok := v.GetKind().(*structpb.Value_NumberValue)
	if !ok {
		return 0, errors.New("id is not a number")
	}
	return int64(n.NumberValue), nil
}

func (s *GRPCClient) List(ctx context.Context, dataRecordID int64) (common.Result[[]*models.FileRecord], error) {
	reply, err := s.client.List(ctx, pb.FileKey{DataRecordID: dataRecordID}.Struct())
	if err != nil {
		return common.Result[[]*models.FileRecord]{}, s.mapError(err)
	}
	return result(reply, pb.FilesFromValue)
}

func (s *GRPCClient) Delete(ctx context.Context, dataRecordID, fileID int64) (common.Result[int64], error) {
	reply, err := s.client.Delete(ctx, pb.FileKey{DataRecordID: dataRecordID, FileID: fileID}.Struct())
	if err != nil {
		return common.Result[int64]{}, s.mapError(err)
	}
	return result(reply, decodeID)
}

// Upload sends the header frame followed by src in pb.ChunkSize frames. The
// stream is cancelled when src fails, so the server sees the upload abort.
func (s *GRPCClient) Upload(ctx context.Context, req UploadRequest, src io.Reader) (common.Result[*models.FileRecord], error) {
	var zero common.Result[*models.FileRecord]

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	stream, err := s.client.Upload(ctx)
	if err != nil {
		return zero, s.mapError(err)
	}

	header, err := pb.UploadHeader{
		FileID:       req.FileID,
		DataRecordID: req.DataRecordID,
		Name:         req.Name,
		BigFile:      req.BigFile,
	}.Frame()
	if err != nil {
		return zero, err
	}
	if err := stream.Send(header); err != nil {
		return zero, s.sendError(stream, err)
	}

	buf := make([]byte, pb.ChunkSize)
	for {
		n, rerr := io.ReadFull(src, buf)
		if n > 0 {
			chunk, err := pb.ChunkFrame(buf[:n])
			if err != nil {
				return zero, err
			}
			if err := stream.Send(chunk); err != nil {
				return zero, s.sendError(stream, err)
			}
		}
		if errors.Is(rerr, io.EOF) || errors.Is(rerr, io.ErrUnexpectedEOF) {
			break
		}
		if rerr != nil {
			return zero, fmt.Errorf("read upload source: %w", rerr)
		}
	}

	reply, err := stream.CloseAndRecv()
	if err != nil {
		return zero, s.mapError(err)
	}
	return result(reply, pb.FileFromValue)
}

// sendError returns the status that ended the stream. Send reports io.EOF
// when the server has already replied.
func (s *GRPCClient) sendError(stream pb.BlobService_UploadClient, err error) error {
	if errors.Is(err, io.EOF) {
		_, err = stream.CloseAndRecv()
	}
	return s.mapError(err)
}

// Download receives the envelope frame and, on success, spools the content
// frames to a local file before returning.
func (s *GRPCClient) Download(ctx context.Context, dataRecordID, fileID int64) (common.Result[*Download], error) {
	var zero common.Result[*Download]

	stream, err := s.client.Download(ctx, pb.FileKey{DataRecordID: dataRecordID, FileID: fileID}.Struct())
	if err != nil {
		return zero, s.mapError(err)
	}

	first, err := stream.Recv()
	if err != nil {
		return zero, s.mapError(err)
	}
	msg, err := pb.DecodeFrame(first)
	if err != nil {
		return zero, fmt.Errorf("%w: %v", ErrProtocol, err)
	}
	head, ok := msg.(*structpb.Struct)
	if !ok {
		return zero, fmt.Errorf("%w: download must start with an envelope", ErrProtocol)
	}

	res, err := result(head, func(v *structpb.Value) (*Download, error) {
		f, err := pb.FileFromValue(v)
		if err != nil {
			return nil, err
		}
		return &Download{File: f}, nil
	})
	if err != nil || !res.Success {
		return res, err
	}

	spool, err := filex.NewSpool(s.spoolDir, "download")
	if err != nil {
		return zero, err
	}
	if err := s.receiveContent(stream, spool); err != nil {
		_ = spool.Close()
		return zero, err
	}
	if err := spool.Rewind(); err != nil {
		_ = spool.Close()
		return zero, err
	}

	res.Data.Content = spool
	return res, nil
}

func (s *GRPCClient) receiveContent(stream pb.BlobService_DownloadClient, dst io.Writer) error {
	for {
		frame, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return s.mapError(err)
		}
		msg, err := pb.DecodeFrame(frame)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrProtocol, err)
		}
		chunk, ok := msg.(*wrapperspb.BytesValue)
		if !ok {
			return fmt.Errorf("%w: expected a content chunk", ErrProtocol)
		}
		if _, err := dst.Write(chunk.GetValue()); err != nil {
			return fmt.Errorf("write spool: %w", err)
		}
	}
}

func (s *GRPCClient) mapError(err error) error {
	if err == nil {
		return nil
	}
	st, _ := status.FromError(err)
	switch st.Code() {
	case codes.Unauthenticated:
		return fmt.Errorf("%w: %s", ErrUnauthorized, st.Message())
	case codes.PermissionDenied:
		return fmt.Errorf("%w: %s", ErrForbidden, st.Message())
	case codes.Unavailable, codes.DeadlineExceeded:
		return ErrUnavailable
	case codes.InvalidArgument:
		return fmt.Errorf("%w: %s", common.ErrorBadRequest, st.Message())
	default:
		return fmt.Errorf("rpc error: %w", err)
	}
}

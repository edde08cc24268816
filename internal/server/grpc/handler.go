package grpc

import (
	"context"
	"errors"
	"io"

	"github.com/dmitrijs2005/blobvault/internal/common"
	"github.com/dmitrijs2005/blobvault/internal/filex"
	pb "github.com/dmitrijs2005/blobvault/internal/proto"
	"github.com/dmitrijs2005/blobvault/internal/server/services"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

func envelope[T any](res common.Result[T], data func(T) *structpb.Value) *structpb.Struct {
	e := pb.Envelope{Success: res.Success, Message: res.Message, StatusCode: res.StatusCode}
	if res.Success {
		e.Data = data(res.Data)
	}
	return e.Struct()
}

func (s *GRPCServer) List(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	key, err := pb.ParseFileKey(req)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	if err := s.authorize(ctx, key.DataRecordID); err != nil {
		return nil, err
	}

	res := s.blobs.List(ctx, key.DataRecordID)
	return envelope(res, pb.FilesValue), nil
}

func (s *GRPCServer) Delete(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	key, err := pb.ParseFileKey(req)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	if err := s.authorize(ctx, key.DataRecordID); err != nil {
		return nil, err
	}

	res := s.blobs.Delete(ctx, key.DataRecordID, key.FileID)
	return envelope(res, func(id int64) *structpb.Value { return structpb.NewNumberValue(float64(id)) }), nil
}

// Upload reads the header frame, spools the content frames to a local file
// and stores the spooled content once the client has finished sending.
func (s *GRPCServer) Upload(stream pb.BlobService_UploadServer) error {
	ctx := stream.Context()

	first, err := stream.Recv()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return status.Error(codes.InvalidArgument, "missing upload header")
		}
		return err
	}
	msg, err := pb.DecodeFrame(first)
	if err != nil {
		return status.Error(codes.InvalidArgument, err.Error())
	}
	hdr, ok := msg.(*structpb.Struct)
	if !ok {
		return status.Error(codes.InvalidArgument, "first frame must be the upload header")
	}
	h, err := pb.ParseUploadHeader(hdr)
	if err != nil {
		return status.Error(codes.InvalidArgument, err.Error())
	}
	if err := s.authorize(ctx, h.DataRecordID); err != nil {
		return err
	}

	spool, err := filex.NewSpool(s.spoolDir, "upload")
	if err != nil {
		s.logger.Error(ctx, "spool file", "error", err)
		return status.Error(codes.Internal, "internal error")
	}
	defer func() {
		if err := spool.Close(); err != nil {
			s.logger.Warn(ctx, "remove spool file", "name", spool.Name(), "error", err)
		}
	}()

	for {
		frame, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}
		msg, err := pb.DecodeFrame(frame)
		if err != nil {
			return status.Error(codes.InvalidArgument, err.Error())
		}
		chunk, ok := msg.(*wrapperspb.BytesValue)
		if !ok {
			return status.Error(codes.InvalidArgument, "expected a content chunk")
		}
		if _, err := spool.Write(chunk.GetValue()); err != nil {
			s.logger.Error(ctx, "spool write", "error", err)
			return status.Error(codes.Internal, "internal error")
		}
	}

	if err := spool.Rewind(); err != nil {
		s.logger.Error(ctx, "spool rewind", "error", err)
		return status.Error(codes.Internal, "internal error")
	}

	s.logger.Debug(ctx, "upload spooled", "record_id", h.DataRecordID, "file_id", h.FileID, "bytes", spool.Size())

	res := s.blobs.Upload(ctx, services.UploadRequest{
		FileID:       h.FileID,
		DataRecordID: h.DataRecordID,
		Name:         h.Name,
		BigFile:      h.BigFile,
	}, spool)
	return stream.SendAndClose(envelope(res, pb.FileValue))
}

// Download sends an envelope frame with the file metadata and, on success,
// the content in chunks of pb.ChunkSize bytes.
func (s *GRPCServer) Download(req *structpb.Struct, stream pb.BlobService_DownloadServer) error {
	ctx := stream.Context()

	key, err := pb.ParseFileKey(req)
	if err != nil {
		return status.Error(codes.InvalidArgument, err.Error())
	}
	if err := s.authorize(ctx, key.DataRecordID); err != nil {
		return err
	}

	res := s.blobs.Download(ctx, key.DataRecordID, key.FileID)
	if res.Success {
		defer res.Data.Content.Close()
	}

	head, err := pb.StructFrame(envelope(res, func(d *services.Download) *structpb.Value { return pb.FileValue(d.File) }))
	if err != nil {
		return status.Error(codes.Internal, err.Error())
	}
	if err := stream.Send(head); err != nil {
		return err
	}
	if !res.Success {
		return nil
	}

	buf := make([]byte, pb.ChunkSize)
	for {
		n, err := io.ReadFull(res.Data.Content, buf)
		if n > 0 {
			chunk, cerr := pb.ChunkFrame(buf[:n])
			if cerr != nil {
				return status.Error(codes.Internal, cerr.Error())
			}
			if serr := stream.Send(chunk); serr != nil {
				return serr
			}
		}
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil
		}
		if err != nil {
			s.logger.Error(ctx, "download read", "record_id", key.DataRecordID, "file_id", key.FileID, "error", err)
			return status.Error(codes.Internal, "internal error")
		}
	}
}

// Package proto defines the blobvault.BlobService gRPC contract. Messages are
// protobuf well-known types: requests and envelopes are structpb.Struct,
// stream frames are anypb.Any holding either a Struct (header or envelope)
// or a wrapperspb.BytesValue (content chunk).
package proto

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/anypb"
	"google.golang.org/protobuf/types/known/structpb"
)

const ServiceName = "blobvault.BlobService"

const (
	BlobService_List_FullMethodName     = "/blobvault.BlobService/List"
	BlobService_Delete_FullMethodName   = "/blobvault.BlobService/Delete"
	BlobService_Upload_FullMethodName   = "/blobvault.BlobService/Upload"
	BlobService_Download_FullMethodName = "/blobvault.BlobService/Download"
)

type (
	BlobService_UploadClient   = grpc.ClientStreamingClient[anypb.Any, structpb.Struct]
	BlobService_DownloadClient = grpc.ServerStreamingClient[anypb.Any]
	BlobService_UploadServer   = grpc.ClientStreamingServer[anypb.Any, structpb.Struct]
	BlobService_DownloadServer = grpc.ServerStreamingServer[anypb.Any]
)

// BlobServiceClient is the client API for BlobService.
type BlobServiceClient interface {
	List(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	Delete(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	// Upload sends a header frame then content chunks and receives one envelope.
	Upload(ctx context.Context, opts ...grpc.CallOption) (BlobService_UploadClient, error)
	// Download receives an envelope frame, then content chunks on success.
	Download(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (BlobService_DownloadClient, error)
}

type blobServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewBlobServiceClient(cc grpc.ClientConnInterface) BlobServiceClient {
	return &blobServiceClient{cc}
}

func (c *blobServiceClient) List(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, BlobService_List_FullMethodName, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *blobServiceClient) Delete(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, BlobService_Delete_FullMethodName, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *blobServiceClient) Upload(ctx context.Context, opts ...grpc.CallOption) (BlobService_UploadClient, error) {
	stream, err := c.cc.NewStream(ctx, &BlobService_ServiceDesc.Streams[0], BlobService_Upload_FullMethodName, opts...)
	if err != nil {
		return nil, err
	}
	return &grpc.GenericClientStream[anypb.Any, structpb.Struct]{ClientStream: stream}, nil
}

func (c *blobServiceClient) Download(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (BlobService_DownloadClient, error) {
	stream, err := c.cc.NewStream(ctx, &BlobService_ServiceDesc.Streams[1], BlobService_Download_FullMethodName, opts...)
	if err != nil {
		return nil, err
	}
	x := &grpc.GenericClientStream[structpb.Struct, anypb.Any]{ClientStream: stream}
	if err := x.ClientStream.SendMsg(in); err != nil {
		return nil, err
	}
	if err := x.ClientStream.CloseSend(); err != nil {
		return nil, err
	}
	return x, nil
}

// BlobServiceServer is the server API for BlobService.
type BlobServiceServer interface {
	List(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Delete(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Upload(BlobService_UploadServer) error
	Download(*structpb.Struct, BlobService_DownloadServer) error
}

// UnimplementedBlobServiceServer can be embedded to have forward compatible implementations.
type UnimplementedBlobServiceServer struct{}

func (UnimplementedBlobServiceServer) List(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Errorf(codes.Unimplemented, "method List not implemented")
}
func (UnimplementedBlobServiceServer) Delete(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Errorf(codes.Unimplemented, "method Delete not implemented")
}
func (UnimplementedBlobServiceServer) Upload(BlobService_UploadServer) error {
	return status.Errorf(codes.Unimplemented, "method Upload not implemented")
}
func (UnimplementedBlobServiceServer) Download(*structpb.Struct, BlobService_DownloadServer) error {
	return status.Errorf(codes.Unimplemented, "method Download not implemented")
}

func RegisterBlobServiceServer(s grpc.ServiceRegistrar, srv BlobServiceServer) {
	s.RegisterService(&BlobService_ServiceDesc, srv)
}

func _BlobService_List_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(BlobServiceServer).List(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: BlobService_List_FullMethodName}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(BlobServiceServer).List(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func _BlobService_Delete_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(BlobServiceServer).Delete(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: BlobService_Delete_FullMethodName}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(BlobServiceServer).Delete(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func _BlobService_Upload_Handler(srv interface{}, stream grpc.ServerStream) error {
	return srv.(BlobServiceServer).Upload(&grpc.GenericServerStream[anypb.Any, structpb.Struct]{ServerStream: stream})
}

func _BlobService_Download_Handler(srv interface{}, stream grpc.ServerStream) error {
	m := new(structpb.Struct)
	if err := stream.RecvMsg(m); err != nil {
		return err
	}
	return srv.(BlobServiceServer).Download(m, &grpc.GenericServerStream[structpb.Struct, anypb.Any]{ServerStream: stream})
}

// BlobService_ServiceDesc is the grpc.ServiceDesc for BlobService.
var BlobService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*BlobServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "List", Handler: _BlobService_List_Handler},
		{MethodName: "Delete", Handler: _BlobService_Delete_Handler},
	},
	Streams: []grpc.StreamDesc{
		{StreamName: "Upload", Handler: _BlobService_Upload_Handler, ClientStreams: true},
		{StreamName: "Download", Handler: _BlobService_Download_Handler, ServerStreams: true},
	},
	Metadata: "blobvault.proto",
}

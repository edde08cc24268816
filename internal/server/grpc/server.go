// Package grpc exposes the blob service over gRPC: uploads are spooled to a
// local file before they reach the service, downloads are streamed back in
// chunks.
package grpc

import (
	"context"
	"net"

	"github.com/dmitrijs2005/blobvault/internal/logging"
	pb "github.com/dmitrijs2005/blobvault/internal/proto"
	"github.com/dmitrijs2005/blobvault/internal/server/repositories/records"
	"github.com/dmitrijs2005/blobvault/internal/server/services"
	"google.golang.org/grpc"
)

type GRPCServer struct {
	pb.UnimplementedBlobServiceServer
	address   string
	blobs     *services.BlobService
	records   records.Repository
	spoolDir  string
	logger    logging.Logger
	jwtSecret []byte
}

// NewGRPCServer wires the handlers. records is used for the ownership check
// and must not be bound to a transaction.
func NewGRPCServer(a string, l logging.Logger, blobs *services.BlobService, recs records.Repository, spoolDir, secretKey string) *GRPCServer {
	return &GRPCServer{
		address:   a,
		logger:    l.With("module", "grpc_server"),
		blobs:     blobs,
		records:   recs,
		spoolDir:  spoolDir,
		jwtSecret: []byte(secretKey),
	}
}

// NewServer builds a grpc.Server with the auth interceptors and the blob
// service registered.
func (s *GRPCServer) NewServer(opts ...grpc.ServerOption) *grpc.Server {
	opts = append(opts,
		grpc.ChainUnaryInterceptor(s.accessTokenInterceptor),
		grpc.ChainStreamInterceptor(s.accessTokenStreamInterceptor),
	)
	srv := grpc.NewServer(opts...)
	pb.RegisterBlobServiceServer(srv, s)
	return srv
}

func (s *GRPCServer) Run(ctx context.Context) error {

	// announces address
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	srv := s.NewServer()

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gPRC server...")
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", s.address)

	// starts accepting incoming connections
	if err := srv.Serve(listen); err != nil {
		return err
	}

	return nil
}

package grpc

import (
	"context"
	"errors"
	"time"

	"github.com/dmitrijs2005/blobvault/internal/common"
	"github.com/dmitrijs2005/blobvault/internal/server/auth"
	"github.com/dmitrijs2005/blobvault/internal/server/repositories/records"
	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

type ctxKey string

const (
	userIDKey    ctxKey = "userID"
	requestIDKey ctxKey = "requestID"
)

// UserIDFromContext returns the authenticated user id.
func UserIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userIDKey).(string)
	return id, ok && id != ""
}

func requestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// authenticate validates the access token from metadata and returns a
// context carrying the user id and a request id.
func (s *GRPCServer) authenticate(ctx context.Context) (context.Context, error) {
	md, _ := metadata.FromIncomingContext(ctx)

	reqID := ""
	if values := md.Get(common.RequestIDHeaderName); len(values) > 0 {
		reqID = values[0]
	}
	if reqID == "" {
		reqID = uuid.NewString()
	}
	ctx = context.WithValue(ctx, requestIDKey, reqID)

	var accessToken string
	if values := md.Get(common.AccessTokenHeaderName); len(values) > 0 {
		accessToken = values[0]
	}
	if len(accessToken) == 0 {
		return ctx, status.Error(codes.Unauthenticated, "missing token")
	}

	userID, err := auth.GetUserIDFromToken(accessToken, s.jwtSecret)
	if errors.Is(err, common.ErrTokenExpired) {
		return ctx, status.Error(codes.Unauthenticated, "token expired")
	}
	if err != nil {
		return ctx, status.Error(codes.Unauthenticated, "invalid token")
	}

	return context.WithValue(ctx, userIDKey, userID), nil
}

func (s *GRPCServer) accessTokenInterceptor(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
	start := time.Now()

	ctx, err := s.authenticate(ctx)
	_ = grpc.SetHeader(ctx, metadata.Pairs(common.RequestIDHeaderName, requestID(ctx)))
	if err != nil {
		s.logger.Warn(ctx, "rejected call", "method", info.FullMethod, "request_id", requestID(ctx), "error", err)
		return nil, err
	}

	resp, err := handler(ctx, req)
	s.logger.Info(ctx, "call", "method", info.FullMethod, "request_id", requestID(ctx),
		"code", status.Code(err).String(), "duration", time.Since(start))
	return resp, err
}

// authStream replaces the context of a server stream.
type authStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (s *authStream) Context() context.Context { return s.ctx }

func (s *GRPCServer) accessTokenStreamInterceptor(srv interface{}, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
	start := time.Now()

	ctx, err := s.authenticate(ss.Context())
	_ = ss.SetHeader(metadata.Pairs(common.RequestIDHeaderName, requestID(ctx)))
	if err != nil {
		s.logger.Warn(ctx, "rejected stream", "method", info.FullMethod, "request_id", requestID(ctx), "error", err)
		return err
	}

	err = handler(srv, &authStream{ServerStream: ss, ctx: ctx})
	s.logger.Info(ctx, "stream", "method", info.FullMethod, "request_id", requestID(ctx),
		"code", status.Code(err).String(), "duration", time.Since(start))
	return err
}

// authorize checks that the caller owns the data record. Missing records
// pass so the blob service can report them.
func (s *GRPCServer) authorize(ctx context.Context, recordID int64) error {
	userID, ok := UserIDFromContext(ctx)
	if !ok {
		return status.Error(codes.Unauthenticated, "unauthenticated")
	}

	owner, err := records.IsOwner(ctx, s.records, recordID, userID)
	if errors.Is(err, common.ErrorNotFound) {
		return nil
	}
	if err != nil {
		s.logger.Error(ctx, "ownership check failed", "record_id", recordID, "error", err)
		return status.Error(codes.Internal, "internal error")
	}
	if !owner {
		return status.Error(codes.PermissionDenied, "not the owner of this record")
	}
	return nil
}

package grpc

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dmitrijs2005/blobvault/internal/common"
	"github.com/dmitrijs2005/blobvault/internal/models"
	pb "github.com/dmitrijs2005/blobvault/internal/proto"
	"github.com/dmitrijs2005/blobvault/internal/server/auth"
	"github.com/dmitrijs2005/blobvault/internal/server/config"
	"github.com/dmitrijs2005/blobvault/internal/server/repositories/largeobjects/lotest"
	"github.com/dmitrijs2005/blobvault/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/blobvault/internal/server/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/anypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
	_ "modernc.org/sqlite"
)

const testSecret = "secret"

type harness struct {
	client   pb.BlobServiceClient
	recordID int64
	spoolDir string
	fakeS3   *lotest.FakeS3
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	ctx := context.Background()

	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "vault.db")+"?_pragma=busy_timeout(5000)")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	h := &harness{fakeS3: lotest.NewFakeS3(), spoolDir: t.TempDir()}
	rm := repomanager.NewSQLiteRepositoryManager(h.fakeS3, "vault")
	require.NoError(t, rm.RunMigrations(ctx, db))

	rec := &models.DataRecord{OwnerID: "alice", Title: "docs"}
	require.NoError(t, rm.Records(db).Create(ctx, rec))
	h.recordID = rec.ID

	cfg := &config.Config{BufferSize: 64, UseBufferingForBigFiles: true, MaxInlineSize: 16 << 20}
	blobs := services.NewBlobService(db, rm, cfg)

	s := NewGRPCServer("bufnet", nopLogger{}, blobs, rm.Records(db), h.spoolDir, testSecret)
	lis := bufconn.Listen(1 << 20)
	srv := s.NewServer()
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	h.client = pb.NewBlobServiceClient(conn)
	return h
}

func as(t *testing.T, userID string) context.Context {
	t.Helper()
	token, err := auth.GenerateToken(userID, []byte(testSecret), time.Minute)
	require.NoError(t, err)
	return metadata.AppendToOutgoingContext(context.Background(), common.AccessTokenHeaderName, token)
}

func (h *harness) upload(t *testing.T, ctx context.Context, hdr pb.UploadHeader, data []byte) pb.Envelope {
	t.Helper()
	stream, err := h.client.Upload(ctx)
	require.NoError(t, err)

	frame, err := hdr.Frame()
	require.NoError(t, err)
	require.NoError(t, stream.Send(frame))

	for len(data) > 0 {
		n := min(len(data), pb.ChunkSize)
		chunk, err := pb.ChunkFrame(data[:n])
		require.NoError(t, err)
		require.NoError(t, stream.Send(chunk))
		data = data[n:]
	}

	reply, err := stream.CloseAndRecv()
	require.NoError(t, err)
	env, err := pb.ParseEnvelope(reply)
	require.NoError(t, err)
	return env
}

func (h *harness) download(t *testing.T, ctx context.Context, fileID int64) (pb.Envelope, []byte) {
	t.Helper()
	stream, err := h.client.Download(ctx, pb.FileKey{DataRecordID: h.recordID, FileID: fileID}.Struct())
	require.NoError(t, err)

	first, err := stream.Recv()
	require.NoError(t, err)
	msg, err := pb.DecodeFrame(first)
	require.NoError(t, err)
	env, err := pb.ParseEnvelope(msg.(*structpb.Struct))
	require.NoError(t, err)

	var content bytes.Buffer
	for {
		frame, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		msg, err := pb.DecodeFrame(frame)
		require.NoError(t, err)
		content.Write(msg.(*wrapperspb.BytesValue).GetValue())
	}
	return env, content.Bytes()
}

func TestHandlers_RoundTrip(t *testing.T) {
	h := newHarness(t)
	ctx := as(t, "alice")

	for _, big := range []bool{false, true} {
		data := bytes.Repeat([]byte{0xAA}, 3*pb.ChunkSize+17)

		env := h.upload(t, ctx, pb.UploadHeader{DataRecordID: h.recordID, Name: "blob.bin", BigFile: big}, data)
		require.True(t, env.Success, env.Message)
		f, err := pb.FileFromValue(env.Data)
		require.NoError(t, err)
		assert.Equal(t, int64(len(data)), f.Size)
		assert.Equal(t, big, f.StorageMode == models.StorageExternal)

		got, content := h.download(t, ctx, f.ID)
		require.True(t, got.Success, got.Message)
		assert.Equal(t, data, content)

		listed, err := h.client.List(ctx, pb.FileKey{DataRecordID: h.recordID}.Struct())
		require.NoError(t, err)
		le, err := pb.ParseEnvelope(listed)
		require.NoError(t, err)
		files, err := pb.FilesFromValue(le.Data)
		require.NoError(t, err)
		assert.Len(t, files, 1)

		deleted, err := h.client.Delete(ctx, pb.FileKey{DataRecordID: h.recordID, FileID: f.ID}.Struct())
		require.NoError(t, err)
		de, err := pb.ParseEnvelope(deleted)
		require.NoError(t, err)
		assert.True(t, de.Success)
		assert.Equal(t, float64(f.ID), de.Data.GetNumberValue())
	}

	assert.Empty(t, h.fakeS3.Keys())
}

func TestHandlers_SpoolIsRemoved(t *testing.T) {
	h := newHarness(t)
	env := h.upload(t, as(t, "alice"), pb.UploadHeader{DataRecordID: h.recordID, Name: "a"}, []byte("hello"))
	require.True(t, env.Success, env.Message)

	entries, err := os.ReadDir(h.spoolDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestHandlers_DownloadMissingFile(t *testing.T) {
	h := newHarness(t)

	env, content := h.download(t, as(t, "alice"), 404)
	assert.False(t, env.Success)
	assert.Equal(t, http.StatusNotFound, env.StatusCode)
	assert.Nil(t, env.Data)
	assert.Empty(t, content)
}

func TestHandlers_UploadValidationTravelsInEnvelope(t *testing.T) {
	h := newHarness(t)

	env := h.upload(t, as(t, "alice"), pb.UploadHeader{DataRecordID: h.recordID + 100, Name: "a"}, []byte("x"))
	assert.False(t, env.Success)
	assert.Equal(t, http.StatusBadRequest, env.StatusCode)

	env = h.upload(t, as(t, "alice"), pb.UploadHeader{DataRecordID: h.recordID, FileID: 77, Name: "a"}, []byte("x"))
	assert.False(t, env.Success)
	assert.Equal(t, http.StatusNotFound, env.StatusCode)
}

func TestHandlers_OwnershipIsEnforced(t *testing.T) {
	h := newHarness(t)
	ctx := as(t, "mallory")

	_, err := h.client.List(ctx, pb.FileKey{DataRecordID: h.recordID}.Struct())
	assert.Equal(t, codes.PermissionDenied, status.Code(err))

	_, err = h.client.Delete(ctx, pb.FileKey{DataRecordID: h.recordID, FileID: 1}.Struct())
	assert.Equal(t, codes.PermissionDenied, status.Code(err))

	stream, err := h.client.Download(ctx, pb.FileKey{DataRecordID: h.recordID, FileID: 1}.Struct())
	require.NoError(t, err)
	_, err = stream.Recv()
	assert.Equal(t, codes.PermissionDenied, status.Code(err))
}

func TestHandlers_RequireToken(t *testing.T) {
	h := newHarness(t)

	_, err := h.client.List(context.Background(), pb.FileKey{DataRecordID: h.recordID}.Struct())
	assert.Equal(t, codes.Unauthenticated, status.Code(err))
}

func TestHandlers_BadRequests(t *testing.T) {
	h := newHarness(t)
	ctx := as(t, "alice")

	_, err := h.client.List(ctx, &structpb.Struct{})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	t.Run("upload without header", func(t *testing.T) {
		stream, err := h.client.Upload(ctx)
		require.NoError(t, err)
		_, err = stream.CloseAndRecv()
		assert.Equal(t, codes.InvalidArgument, status.Code(err))
	})

	t.Run("upload starting with a chunk", func(t *testing.T) {
		stream, err := h.client.Upload(ctx)
		require.NoError(t, err)
		chunk, err := pb.ChunkFrame([]byte("x"))
		require.NoError(t, err)
		require.NoError(t, stream.Send(chunk))
		_, err = stream.CloseAndRecv()
		assert.Equal(t, codes.InvalidArgument, status.Code(err))
	})

	t.Run("unknown frame type", func(t *testing.T) {
		stream, err := h.client.Upload(ctx)
		require.NoError(t, err)
		frame, err := anypb.New(wrapperspb.String("nope"))
		require.NoError(t, err)
		require.NoError(t, stream.Send(frame))
		_, err = stream.CloseAndRecv()
		assert.Equal(t, codes.InvalidArgument, status.Code(err))
	})
}

package proto

import (
	"testing"

	"github.com/dmitrijs2005/blobvault/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/types/known/anypb"
	"google.golang.org/protobuf/types/known/durationpb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

func TestUploadHeader_Frame(t *testing.T) {
	h := UploadHeader{FileID: 3, DataRecordID: 7, Name: "a.bin", BigFile: true}
	frame, err := h.Frame()
	require.NoError(t, err)

	msg, err := DecodeFrame(frame)
	require.NoError(t, err)
	s, ok := msg.(*structpb.Struct)
	require.True(t, ok)

	got, err := ParseUploadHeader(s)
	require.NoError(t, err)
	assert.Equal(t, h, got)
}

func TestChunkFrame(t *testing.T) {
	frame, err := ChunkFrame([]byte{0xAA, 0xBB})
	require.NoError(t, err)

	msg, err := DecodeFrame(frame)
	require.NoError(t, err)
	chunk, ok := msg.(*wrapperspb.BytesValue)
	require.True(t, ok)
	assert.Equal(t, []byte{0xAA, 0xBB}, chunk.GetValue())
}

func TestDecodeFrame_Rejects(t *testing.T) {
	_, err := DecodeFrame(nil)
	assert.ErrorIs(t, err, ErrBadFrame)

	other, err := anypb.New(durationpb.New(0))
	require.NoError(t, err)
	_, err = DecodeFrame(other)
	assert.ErrorIs(t, err, ErrBadFrame)

	_, err = DecodeFrame(&anypb.Any{TypeUrl: "type.googleapis.com/does.not.Exist"})
	assert.ErrorIs(t, err, ErrBadFrame)
}

func TestParseFileKey(t *testing.T) {
	key, err := ParseFileKey(FileKey{DataRecordID: 1, FileID: 2}.Struct())
	require.NoError(t, err)
	assert.Equal(t, FileKey{DataRecordID: 1, FileID: 2}, key)

	tests := map[string]*structpb.Struct{
		"missing record": {Fields: map[string]*structpb.Value{}},
		"string id":      {Fields: map[string]*structpb.Value{FieldDataRecordID: structpb.NewStringValue("1")}},
		"fraction":       {Fields: map[string]*structpb.Value{FieldDataRecordID: structpb.NewNumberValue(1.5)}},
		"negative":       {Fields: map[string]*structpb.Value{FieldDataRecordID: structpb.NewNumberValue(-1)}},
	}
	for name, s := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ParseFileKey(s)
			assert.ErrorIs(t, err, ErrBadFrame)
		})
	}

	// file id is optional
	key, err = ParseFileKey(&structpb.Struct{Fields: map[string]*structpb.Value{
		FieldDataRecordID: structpb.NewNumberValue(9),
	}})
	require.NoError(t, err)
	assert.Zero(t, key.FileID)
}

func TestEnvelope_WithFile(t *testing.T) {
	f := &models.FileRecord{ID: 5, DataRecordID: 7, Name: "x", Size: 1 << 40, StorageMode: models.StorageExternal,
		ExternalPointer: models.ExternalPointer{OID: 123}}

	e, err := ParseEnvelope(Envelope{Success: true, StatusCode: 200, Data: FileValue(f)}.Struct())
	require.NoError(t, err)
	assert.True(t, e.Success)
	assert.Equal(t, 200, e.StatusCode)

	got, err := FileFromValue(e.Data)
	require.NoError(t, err)
	want := *f
	want.ExternalPointer = models.ExternalPointer{}
	assert.Equal(t, &want, got)
}

func TestEnvelope_Failure(t *testing.T) {
	e, err := ParseEnvelope(Envelope{Message: "not found", StatusCode: 404}.Struct())
	require.NoError(t, err)
	assert.False(t, e.Success)
	assert.Equal(t, "not found", e.Message)
	assert.Nil(t, e.Data)

	_, err = ParseEnvelope(&structpb.Struct{})
	assert.ErrorIs(t, err, ErrBadFrame)
}

func TestFilesValue(t *testing.T) {
	files := []*models.FileRecord{
		{ID: 1, DataRecordID: 2, Name: "a", Size: 1},
		{ID: 2, DataRecordID: 2, Name: "b", Size: 2, StorageMode: models.StorageExternal},
	}
	got, err := FilesFromValue(FilesValue(files))
	require.NoError(t, err)
	assert.Equal(t, files, got)

	empty, err := FilesFromValue(FilesValue(nil))
	require.NoError(t, err)
	assert.Empty(t, empty)

	_, err = FilesFromValue(structpb.NewStringValue("x"))
	assert.ErrorIs(t, err, ErrBadFrame)
}

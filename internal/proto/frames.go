package proto

import (
	"errors"
	"fmt"
	"math"

	"github.com/dmitrijs2005/blobvault/internal/models"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/anypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// ChunkSize is the content size carried by one stream frame.
const ChunkSize = 1 << 20

// Field names shared by requests, headers and envelopes.
const (
	FieldFileID       = "file_id"
	FieldDataRecordID = "data_record_id"
	FieldName         = "name"
	FieldBigFile      = "big_file"
	FieldSize         = "size"
	FieldStorageMode  = "storage_mode"
	FieldID           = "id"
	FieldData         = "data"
	FieldSuccess      = "success"
	FieldMessage      = "message"
	FieldStatusCode   = "status_code"
)

var ErrBadFrame = errors.New("malformed frame")

// FileKey addresses a file (or, with FileID 0, a data record).
type FileKey struct {
	DataRecordID int64
	FileID       int64
}

func (k FileKey) Struct() *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		FieldDataRecordID: structpb.NewNumberValue(float64(k.DataRecordID)),
		FieldFileID:       structpb.NewNumberValue(float64(k.FileID)),
	}}
}

func ParseFileKey(s *structpb.Struct) (FileKey, error) {
	recordID, err := intField(s, FieldDataRecordID, true)
	if err != nil {
		return FileKey{}, err
	}
	fileID, err := intField(s, FieldFileID, false)
	if err != nil {
		return FileKey{}, err
	}
	return FileKey{DataRecordID: recordID, FileID: fileID}, nil
}

// UploadHeader is the first frame of an upload.
type UploadHeader struct {
	FileID       int64
	DataRecordID int64
	Name         string
	BigFile      bool
}

func (h UploadHeader) Frame() (*anypb.Any, error) {
	return anypb.New(&structpb.Struct{Fields: map[string]*structpb.Value{
		FieldFileID:       structpb.NewNumberValue(float64(h.FileID)),
		FieldDataRecordID: structpb.NewNumberValue(float64(h.DataRecordID)),
		FieldName:         structpb.NewStringValue(h.Name),
		FieldBigFile:      structpb.NewBoolValue(h.BigFile),
	}})
}

func ParseUploadHeader(s *structpb.Struct) (UploadHeader, error) {
	key, err := ParseFileKey(s)
	if err != nil {
		return UploadHeader{}, err
	}
	return UploadHeader{
		FileID:       key.FileID,
		DataRecordID: key.DataRecordID,
		Name:         s.GetFields()[FieldName].GetStringValue(),
		BigFile:      s.GetFields()[FieldBigFile].GetBoolValue(),
	}, nil
}

// ChunkFrame wraps content bytes.
func ChunkFrame(p []byte) (*anypb.Any, error) {
	return anypb.New(wrapperspb.Bytes(p))
}

// StructFrame wraps a header or envelope.
func StructFrame(s *structpb.Struct) (*anypb.Any, error) {
	return anypb.New(s)
}

// DecodeFrame unpacks a frame into a *structpb.Struct or a
// *wrapperspb.BytesValue.
func DecodeFrame(a *anypb.Any) (proto.Message, error) {
	if a == nil {
		return nil, ErrBadFrame
	}
	m, err := a.UnmarshalNew()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadFrame, err)
	}
	switch m.(type) {
	case *structpb.Struct, *wrapperspb.BytesValue:
		return m, nil
	default:
		return nil, fmt.Errorf("%w: unexpected %s", ErrBadFrame, a.GetTypeUrl())
	}
}

// Envelope is the wire form of common.Result.
type Envelope struct {
	Success    bool
	Message    string
	StatusCode int
	Data       *structpb.Value
}

func (e Envelope) Struct() *structpb.Struct {
	fields := map[string]*structpb.Value{
		FieldSuccess:    structpb.NewBoolValue(e.Success),
		FieldMessage:    structpb.NewStringValue(e.Message),
		FieldStatusCode: structpb.NewNumberValue(float64(e.StatusCode)),
	}
	if e.Data != nil {
		fields[FieldData] = e.Data
	} else {
		fields[FieldData] = structpb.NewNullValue()
	}
	return &structpb.Struct{Fields: fields}
}

func ParseEnvelope(s *structpb.Struct) (Envelope, error) {
	f := s.GetFields()
	if _, ok := f[FieldStatusCode]; !ok {
		return Envelope{}, fmt.Errorf("%w: envelope without %s", ErrBadFrame, FieldStatusCode)
	}
	e := Envelope{
		Success:    f[FieldSuccess].GetBoolValue(),
		Message:    f[FieldMessage].GetStringValue(),
		StatusCode: int(f[FieldStatusCode].GetNumberValue()),
	}
	if d, ok := f[FieldData]; ok {
		if _, isNull := d.GetKind().(*structpb.Value_NullValue); !isNull {
			e.Data = d
		}
	}
	return e, nil
}

// FileValue encodes file metadata; nil encodes as null.
func FileValue(f *models.FileRecord) *structpb.Value {
	if f == nil {
		return structpb.NewNullValue()
	}
	return structpb.NewStructValue(&structpb.Struct{Fields: map[string]*structpb.Value{
		FieldID:           structpb.NewNumberValue(float64(f.ID)),
		FieldDataRecordID: structpb.NewNumberValue(float64(f.DataRecordID)),
		FieldName:         structpb.NewStringValue(f.Name),
		FieldSize:         structpb.NewNumberValue(float64(f.Size)),
		FieldStorageMode:  structpb.NewStringValue(f.StorageMode.String()),
	}})
}

// FileFromValue decodes metadata written by FileValue. External pointers
// never leave the server.
func FileFromValue(v *structpb.Value) (*models.FileRecord, error) {
	s := v.GetStructValue()
	if s == nil {
		return nil, fmt.Errorf("%w: file is not an object", ErrBadFrame)
	}
	f := s.GetFields()
	mode := models.StorageInline
	if f[FieldStorageMode].GetStringValue() == models.StorageExternal.String() {
		mode = models.StorageExternal
	}
	return &models.FileRecord{
		ID:           int64(f[FieldID].GetNumberValue()),
		DataRecordID: int64(f[FieldDataRecordID].GetNumberValue()),
		Name:         f[FieldName].GetStringValue(),
		Size:         int64(f[FieldSize].GetNumberValue()),
		StorageMode:  mode,
	}, nil
}

// FilesValue encodes a file list.
func FilesValue(files []*models.FileRecord) *structpb.Value {
	values := make([]*structpb.Value, 0, len(files))
	for _, f := range files {
		values = append(values, FileValue(f))
	}
	return structpb.NewListValue(&structpb.ListValue{Values: values})
}

func FilesFromValue(v *structpb.Value) ([]*models.FileRecord, error) {
	list := v.GetListValue()
	if list == nil {
		return nil, fmt.Errorf("%w: files is not a list", ErrBadFrame)
	}
	files := make([]*models.FileRecord, 0, len(list.GetValues()))
	for _, item := range list.GetValues() {
		f, err := FileFromValue(item)
		if err != nil {
			return nil, err
		}
		files = append(files, f)
	}
	return files, nil
}

// intField reads a whole number. Numbers travel as doubles, so values past
// 2^53 are rejected.
func intField(s *structpb.Struct, name string, required bool) (int64, error) {
	v, ok := s.GetFields()[name]
	if !ok {
		if required {
			return 0, fmt.Errorf("%w: missing %s", ErrBadFrame, name)
		}
		return 0, nil
	}
	n, ok := v.GetKind().(*structpb.Value_NumberValue)
	if !ok {
		return 0, fmt.Errorf("%w: %s is not a number", ErrBadFrame, name)
	}
	f := n.NumberValue
	if f != math.Trunc(f) || f < 0 || f > 1<<53 {
		return 0, fmt.Errorf("%w: %s out of range", ErrBadFrame, name)
	}
	return int64(f), nil
}

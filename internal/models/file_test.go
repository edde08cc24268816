package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExternalPointer_IsZero(t *testing.T) {
	assert.True(t, ExternalPointer{}.IsZero())
	assert.False(t, ExternalPointer{OID: 16401}.IsZero())
	assert.False(t, ExternalPointer{Path: "files/1/2"}.IsZero())
}

func TestFileRecord_HasObject(t *testing.T) {
	tests := []struct {
		name string
		rec  FileRecord
		want bool
	}{
		{"inline", FileRecord{StorageMode: StorageInline}, false},
		{"inline with stale pointer", FileRecord{StorageMode: StorageInline, ExternalPointer: ExternalPointer{OID: 3}}, false},
		{"external shell", FileRecord{StorageMode: StorageExternal}, false},
		{"external", FileRecord{StorageMode: StorageExternal, ExternalPointer: ExternalPointer{OID: 3}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.rec.HasObject())
		})
	}
}

func TestStorageMode_String(t *testing.T) {
	assert.Equal(t, "inline", StorageInline.String())
	assert.Equal(t, "external", StorageExternal.String())
	assert.Equal(t, "unknown", StorageMode(7).String())
}

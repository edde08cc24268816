package files

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/dmitrijs2005/blobvault/internal/common"
	"github.com/dmitrijs2005/blobvault/internal/models"
	"github.com/dmitrijs2005/blobvault/internal/server/migrations"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func newSQLite(t *testing.T) (*sql.DB, int64) {
	t.Helper()
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "files.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, migrations.Up(context.Background(), db, migrations.BackendSQLite))

	var recordID int64
	err = db.QueryRow(`insert into data_records (owner_id, title) values ('u1', 'r') returning id`).Scan(&recordID)
	require.NoError(t, err)
	return db, recordID
}

func TestSQLiteRepository_RoundTrip(t *testing.T) {
	db, recordID := newSQLite(t)
	repo := NewSQLiteRepository(db)
	ctx := context.Background()

	list, err := repo.ListByRecord(ctx, recordID)
	require.NoError(t, err)
	require.Empty(t, list)

	f := &models.FileRecord{DataRecordID: recordID, Name: "hello.txt", Size: 5}
	require.NoError(t, repo.Insert(ctx, f, []byte("hello")))
	require.NotZero(t, f.ID)

	got, err := repo.Locate(ctx, recordID, f.ID)
	require.NoError(t, err)
	require.Equal(t, f, got)

	data, err := repo.ReadInline(ctx, f.ID, 5)
	require.NoError(t, err)
	require.Equal(t, []byte("hello"), data)

	data, err = repo.ReadInline(ctx, f.ID, 3)
	require.NoError(t, err)
	require.Equal(t, []byte("hel"), data)

	f.StorageMode = models.StorageExternal
	f.ExternalPointer = models.ExternalPointer{Path: "files/1/1"}
	f.Size = 0
	require.NoError(t, repo.Update(ctx, f, []byte("dropped")))
	require.NoError(t, repo.UpdateSize(ctx, f.ID, 1<<20))

	got, err = repo.Locate(ctx, recordID, f.ID)
	require.NoError(t, err)
	require.Equal(t, models.StorageExternal, got.StorageMode)
	require.Equal(t, "files/1/1", got.ExternalPointer.Path)
	require.Equal(t, int64(1<<20), got.Size)

	var content []byte
	require.NoError(t, db.QueryRow(`select content from files where id=?`, f.ID).Scan(&content))
	require.Nil(t, content)

	list, err = repo.ListByRecord(ctx, recordID)
	require.NoError(t, err)
	require.Len(t, list, 1)

	require.NoError(t, repo.Delete(ctx, recordID, f.ID))
	require.NoError(t, repo.Delete(ctx, recordID, f.ID))

	_, err = repo.Locate(ctx, recordID, f.ID)
	require.ErrorIs(t, err, common.ErrorNotFound)
}

func TestSQLiteRepository_UpdateMissing(t *testing.T) {
	db, recordID := newSQLite(t)
	repo := NewSQLiteRepository(db)

	err := repo.Update(context.Background(), &models.FileRecord{ID: 404, DataRecordID: recordID, Name: "x"}, nil)
	require.ErrorIs(t, err, common.ErrorNotFound)
	require.ErrorIs(t, repo.UpdateSize(context.Background(), 404, 1), common.ErrorNotFound)
}

func TestSQLiteRepository_EmptyInline(t *testing.T) {
	db, recordID := newSQLite(t)
	repo := NewSQLiteRepository(db)
	ctx := context.Background()

	f := &models.FileRecord{DataRecordID: recordID, Name: "empty"}
	require.NoError(t, repo.Insert(ctx, f, nil))

	data, err := repo.ReadInline(ctx, f.ID, 0)
	require.NoError(t, err)
	require.Empty(t, data)
}

func TestSQLiteRepository_StoresLargeObjectOID(t *testing.T) {
	db, recordID := newSQLite(t)
	repo := NewSQLiteRepository(db)
	ctx := context.Background()

	f := &models.FileRecord{DataRecordID: recordID, Name: "lo.bin", StorageMode: models.StorageExternal,
		ExternalPointer: models.ExternalPointer{OID: 16401}}
	require.NoError(t, repo.Insert(ctx, f, nil))

	got, err := repo.Locate(ctx, recordID, f.ID)
	require.NoError(t, err)
	require.Equal(t, models.ExternalPointer{OID: 16401}, got.ExternalPointer)
	require.True(t, got.HasObject())

	f.ExternalPointer = models.ExternalPointer{OID: 16402}
	require.NoError(t, repo.Update(ctx, f, nil))
	list, err := repo.ListByRecord(ctx, recordID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, int64(16402), list[0].ExternalPointer.OID)

	// going inline drops the pointer
	f.StorageMode = models.StorageInline
	require.NoError(t, repo.Update(ctx, f, []byte("x")))
	got, err = repo.Locate(ctx, recordID, f.ID)
	require.NoError(t, err)
	require.True(t, got.ExternalPointer.IsZero())
}

func TestSQLiteRepository_RejectsAmbiguousPointer(t *testing.T) {
	db, recordID := newSQLite(t)
	repo := NewSQLiteRepository(db)
	ctx := context.Background()

	f := &models.FileRecord{DataRecordID: recordID, Name: "both", StorageMode: models.StorageExternal,
		ExternalPointer: models.ExternalPointer{OID: 1, Path: "files/1/1"}}
	require.ErrorIs(t, repo.Insert(ctx, f, nil), ErrUnsupportedPointer)

	list, err := repo.ListByRecord(ctx, recordID)
	require.NoError(t, err)
	require.Empty(t, list)

	f.ID = 1
	require.ErrorIs(t, repo.Update(ctx, f, nil), ErrUnsupportedPointer)
}

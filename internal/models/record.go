package models

// DataRecord is the parent every file belongs to. Only the columns the blob
// layer needs are mapped here.
type DataRecord struct {
	ID      int64
	OwnerID string
	Title   string
}

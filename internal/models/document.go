package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Document is the relational record for an uploaded file. The raw text and
// derived vectors live elsewhere; this row tracks ownership and status.
type Document struct {
	DocID       uuid.UUID       `json:"doc_id" db:"doc_id"`
	UserID      string          `json:"user_id" db:"user_id"`
	Filename    string          `json:"filename" db:"filename"`
	FileType    string          `json:"file_type" db:"file_type"`
	FileSize    int64           `json:"file_size" db:"file_size"`
	Status      string          `json:"status" db:"status"`
	Metadata    json.RawMessage `json:"metadata" db:"metadata"`
	UploadedAt  time.Time       `json:"uploaded_at" db:"uploaded_at"`
	ProcessedAt *time.Time      `json:"processed_at,omitempty" db:"processed_at"`
}

// ChunkRecord is the audit copy of a chunk stored in the relational store.
type ChunkRecord struct {
	ChunkID    string          `json:"chunk_id" db:"chunk_id"`
	DocID      uuid.UUID       `json:"doc_id" db:"doc_id"`
	UserID     string          `json:"user_id" db:"user_id"`
	Text       string          `json:"text" db:"text"`
	ChunkIndex int             `json:"chunk_index" db:"chunk_index"`
	Metadata   json.RawMessage `json:"metadata" db:"metadata"`
	CreatedAt  time.Time       `json:"created_at" db:"created_at"`
}

const (
	DocStatusUploaded   = "uploaded"
	DocStatusProcessing = "processing"
	DocStatusCompleted  = "completed"
	DocStatusFailed     = "failed"
)

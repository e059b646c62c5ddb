package document

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/docuform/autofill-backend/internal/models"
)

// Service owns the relational document records and the local upload
// spool. The vector index is the source of truth for retrieval; these
// rows exist for listing, status polling and audit.
type Service struct {
	db        *pgxpool.Pool
	uploadDir string
}

func NewService(db *pgxpool.Pool, uploadDir string) *Service {
	return &Service{db: db, uploadDir: uploadDir}
}

// Create spools the uploaded file to disk and inserts the metadata row
// with status uploaded. It returns the document and the spool path the
// ingestion worker reads from.
func (s *Service) Create(ctx context.Context, userID, filename, fileType string, size int64, data io.Reader) (*models.Document, string, error) {
	docID := uuid.New()

	if err := os.MkdirAll(s.uploadDir, 0o755); err != nil {
		return nil, "", fmt.Errorf("create upload dir: %w", err)
	}

	path := filepath.Join(s.uploadDir, docID.String()+filepath.Ext(filename))
	f, err := os.Create(path)
	if err != nil {
		return nil, "", fmt.Errorf("spool upload: %w", err)
	}
	written, err := io.Copy(f, data)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(path)
		return nil, "", fmt.Errorf("write upload: %w", err)
	}
	if size <= 0 {
		size = written
	}

	var doc models.Document
	err = s.db.QueryRow(ctx,
		`INSERT INTO documents (doc_id, user_id, filename, file_type, file_size, status)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING doc_id, user_id, filename, file_type, file_size, status, metadata, uploaded_at, processed_at`,
		docID, userID, filename, fileType, size, models.DocStatusUploaded,
	).Scan(&doc.DocID, &doc.UserID, &doc.Filename, &doc.FileType, &doc.FileSize,
		&doc.Status, &doc.Metadata, &doc.UploadedAt, &doc.ProcessedAt)
	if err != nil {
		os.Remove(path)
		return nil, "", fmt.Errorf("insert document: %w", err)
	}

	return &doc, path, nil
}

func (s *Service) GetByID(ctx context.Context, userID string, docID uuid.UUID) (*models.Document, error) {
	var doc models.Document
	err := s.db.QueryRow(ctx,
		`SELECT doc_id, user_id, filename, file_type, file_size, status, metadata, uploaded_at, processed_at
		 FROM documents WHERE doc_id = $1 AND user_id = $2`,
		docID, userID,
	).Scan(&doc.DocID, &doc.UserID, &doc.Filename, &doc.FileType, &doc.FileSize,
		&doc.Status, &doc.Metadata, &doc.UploadedAt, &doc.ProcessedAt)
	if err != nil {
		return nil, fmt.Errorf("get document: %w", err)
	}
	return &doc, nil
}

func (s *Service) List(ctx context.Context, userID string, limit, offset int) ([]models.Document, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(ctx,
		`SELECT doc_id, user_id, filename, file_type, file_size, status, metadata, uploaded_at, processed_at
		 FROM documents WHERE user_id = $1 ORDER BY uploaded_at DESC LIMIT $2 OFFSET $3`,
		userID, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	var docs []models.Document
	for rows.Next() {
		var d models.Document
		if err := rows.Scan(&d.DocID, &d.UserID, &d.Filename, &d.FileType, &d.FileSize,
			&d.Status, &d.Metadata, &d.UploadedAt, &d.ProcessedAt); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

// UpdateStatus records a status transition; completed and failed also
// stamp processed_at.
func (s *Service) UpdateStatus(ctx context.Context, docID uuid.UUID, status string) error {
	var err error
	if status == models.DocStatusCompleted || status == models.DocStatusFailed {
		_, err = s.db.Exec(ctx,
			"UPDATE documents SET status = $1, processed_at = $2 WHERE doc_id = $3",
			status, time.Now().UTC(), docID)
	} else {
		_, err = s.db.Exec(ctx,
			"UPDATE documents SET status = $1 WHERE doc_id = $2", status, docID)
	}
	if err != nil {
		return fmt.Errorf("update status: %w", err)
	}
	return nil
}

// Delete removes the metadata row, chunk audit rows and the spooled
// file. Vector deletion is the caller's responsibility and runs first.
func (s *Service) Delete(ctx context.Context, userID string, docID uuid.UUID) error {
	doc, err := s.GetByID(ctx, userID, docID)
	if err != nil {
		return err
	}

	if _, err := s.db.Exec(ctx,
		"DELETE FROM vector_chunks WHERE doc_id = $1 AND user_id = $2", docID, userID); err != nil {
		return fmt.Errorf("delete chunk records: %w", err)
	}
	if _, err := s.db.Exec(ctx,
		"DELETE FROM documents WHERE doc_id = $1 AND user_id = $2", docID, userID); err != nil {
		return fmt.Errorf("delete document: %w", err)
	}

	spooled := filepath.Join(s.uploadDir, docID.String()+filepath.Ext(doc.Filename))
	_ = os.Remove(spooled)

	return nil
}

// RecordChunk writes one audit chunk row. Callers treat failures as
// non-fatal.
func (s *Service) RecordChunk(ctx context.Context, rec models.ChunkRecord) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO vector_chunks (chunk_id, doc_id, user_id, text, chunk_index, metadata)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (chunk_id) DO UPDATE SET text = $4, chunk_index = $5, metadata = $6`,
		rec.ChunkID, rec.DocID, rec.UserID, rec.Text, rec.ChunkIndex, rec.Metadata,
	)
	if err != nil {
		return fmt.Errorf("record chunk: %w", err)
	}
	return nil
}

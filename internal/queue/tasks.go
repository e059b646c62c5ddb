package queue

const (
	TypeDocumentIngest = "document:ingest"
)

// DocumentIngestPayload carries everything the worker needs to run the
// full extract, chunk, embed, index flow for one upload.
type DocumentIngestPayload struct {
	DocID    string `json:"doc_id"`
	UserID   string `json:"user_id"`
	FilePath string `json:"file_path"`
	Filename string `json:"filename"`
	FileType string `json:"file_type"`
}

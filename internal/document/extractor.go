package document

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/docuform/autofill-backend/pkg/textextract"
)

// Extractor turns a spooled file into plain text. Images go through
// OCR; PDFs use the text layer. Failures degrade to an empty-text
// result so downstream stages produce empty outputs instead of erroring.
type Extractor struct {
	ocr *OCRService
}

func NewExtractor() *Extractor {
	return &Extractor{ocr: NewOCRService()}
}

func (e *Extractor) Extract(ctx context.Context, path, fileType string) *textextract.ExtractedText {
	if fileType == "" {
		fileType = filepath.Ext(path)
	}

	if isImageType(fileType) {
		return e.extractImage(ctx, path)
	}

	text, err := e.extractFile(path, fileType)
	if err != nil {
		slog.Warn("text extraction failed, treating document as empty",
			"path", path, "file_type", fileType, "error", err)
		return &textextract.ExtractedText{Metadata: map[string]string{"type": fileType}}
	}
	if strings.TrimSpace(text.Content) == "" {
		slog.Warn("no text layer recovered", "path", path, "file_type", fileType)
	}
	return text
}

func (e *Extractor) extractFile(path, fileType string) (*textextract.ExtractedText, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat file: %w", err)
	}

	return textextract.Extract(f, info.Size(), fileType)
}

func (e *Extractor) extractImage(ctx context.Context, path string) *textextract.ExtractedText {
	if !e.ocr.IsAvailable() {
		slog.Warn("OCR backend unavailable, treating image as empty", "path", path)
		return &textextract.ExtractedText{Metadata: map[string]string{"type": "image"}}
	}

	text, err := e.ocr.ExtractText(ctx, path)
	if err != nil {
		slog.Warn("OCR failed, treating image as empty", "path", path, "error", err)
		return &textextract.ExtractedText{Metadata: map[string]string{"type": "image"}}
	}

	return &textextract.ExtractedText{
		Content: text,
		Pages:   []textextract.PageText{{PageNumber: 1, Text: text, Method: "ocr"}},
		Metadata: map[string]string{
			"type": "image",
		},
	}
}

func isImageType(fileType string) bool {
	switch strings.ToLower(strings.TrimPrefix(fileType, ".")) {
	case "png", "jpg", "jpeg":
		return true
	}
	return false
}

// Package files turns uploaded attachments into plain text that can be
// spliced into a chat prompt. Extraction is best effort: structured
// formats are flattened, binary formats the gateway cannot parse are
// rejected up front with ErrUnsupportedFormat.
package files

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

// ErrUnsupportedFormat is returned for file types the gateway does not
// extract. Callers map it to a client error, not a server fault.
var ErrUnsupportedFormat = errors.New("unsupported file format")

// ErrFileTooLarge is returned when the attachment exceeds the size limit.
var ErrFileTooLarge = errors.New("file too large")

// Extractor converts one attachment into prompt text.
type Extractor interface {
	// Extract reads the attachment and returns its textual content.
	// filename is used only for format detection.
	Extract(filename string, r io.Reader) (string, error)
}

// TextExtractor handles plain-text and CSV attachments. CSV rows are
// flattened to comma-joined lines so tabular data survives as readable
// prompt context.
type TextExtractor struct {
	// MaxBytes caps how much of the attachment is read. Zero means the
	// package default.
	MaxBytes int64
}

const defaultMaxBytes = 1 << 20 // 1 MiB

// NewTextExtractor returns an extractor with the default size cap.
func NewTextExtractor() *TextExtractor {
	return &TextExtractor{MaxBytes: defaultMaxBytes}
}

// Extract implements Extractor.
func (e *TextExtractor) Extract(filename string, r io.Reader) (string, error) {
	limit := e.MaxBytes
	if limit <= 0 {
		limit = defaultMaxBytes
	}

	switch ext := strings.ToLower(filepath.Ext(filename)); ext {
	case ".txt", ".md", ".log", ".json", ".yaml", ".yml":
		return readAll(r, limit)
	case ".csv":
		return flattenCSV(r, limit)
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
	}
}

func readAll(r io.Reader, limit int64) (string, error) {
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return "", fmt.Errorf("read attachment: %w", err)
	}
	if int64(len(data)) > limit {
		return "", fmt.Errorf("%w: limit %d bytes", ErrFileTooLarge, limit)
	}
	return string(data), nil
}

func flattenCSV(r io.Reader, limit int64) (string, error) {
	reader := csv.NewReader(io.LimitReader(r, limit))
	reader.FieldsPerRecord = -1 // ragged rows are common in user uploads

	var b strings.Builder
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("parse csv: %w", err)
		}
		b.WriteString(strings.Join(record, ", "))
		b.WriteByte('\n')
	}
	return b.String(), nil
}

// Package extract pulls plain text out of résumé documents.
package extract

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// ErrUnsupportedFormat is returned for file extensions without an extractor.
var ErrUnsupportedFormat = errors.New("unsupported format")

type extractor func(path string) (string, error)

var extractors = map[string]extractor{
	".pdf":  fromPDF,
	".docx": fromDOCX,
	".rtf":  fromRTF,
	".txt":  fromTXT,
}

// Formats lists the supported extensions.
func Formats() []string {
	return []string{".pdf", ".docx", ".rtf", ".txt"}
}

// Text returns the text of the document at path, chosen by its extension.
func Text(path string) (string, error) {
	ext := strings.ToLower(filepath.Ext(path))
	fn, ok := extractors[ext]
	if !ok {
		return "", fmt.Errorf("extract %s: format %q: %w", filepath.Base(path), ext, ErrUnsupportedFormat)
	}

	text, err := fn(path)
	if err != nil {
		return "", fmt.Errorf("extract %s: %w", filepath.Base(path), err)
	}
	return strings.TrimSpace(text), nil
}

func fromTXT(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	data = trimBOM(data)
	if utf8.Valid(data) {
		return string(data), nil
	}
	// Legacy Russian text files are usually Windows-1251.
	decoded, err := charmap.Windows1251.NewDecoder().Bytes(data)
	if err != nil {
		return "", fmt.Errorf("decode windows-1251: %w", err)
	}
	return string(decoded), nil
}

func trimBOM(data []byte) []byte {
	if len(data) >= 3 && data[0] == 0xEF && data[1] == 0xBB && data[2] == 0xBF {
		return data[3:]
	}
	return data
}

// joinNonEmpty joins lines that contain more than whitespace.
func joinNonEmpty(lines []string) string {
	kept := make([]string, 0, len(lines))
	for _, l := range lines {
		if strings.TrimSpace(l) != "" {
			kept = append(kept, l)
		}
	}
	return strings.Join(kept, "\n")
}

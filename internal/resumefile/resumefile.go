// Package resumefile checks resume files locally before they are uploaded.
package resumefile

import (
	"bytes"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"

	"talentmatch-client/internal/model"
)

type Kind string

const (
	KindPDF  Kind = "pdf"
	KindDOCX Kind = "docx"
	KindDOC  Kind = "doc"
	KindText Kind = "txt"
)

const (
	mimePDF  = "application/pdf"
	mimeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	mimeDOC  = "application/msword"
	mimeText = "text/plain"
)

// File is a resume that passed the pre-flight checks.
type File struct {
	Path     string
	Name     string
	Kind     Kind
	MIMEType string
	Size     int64
	Content  []byte
	// Text is the locally extracted text. It is empty for DOC files.
	Text string
}

// Inspect reads path, checks the size limit, matches the extension against the
// sniffed content and extracts text to prove the file is readable.
func Inspect(path string, maxSize int64) (*File, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrUnreadableFile, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", model.ErrUnreadableFile, path)
	}
	if maxSize > 0 && info.Size() > maxSize {
		return nil, fmt.Errorf("%w: %s is %d bytes, limit is %d", model.ErrFileTooLarge, filepath.Base(path), info.Size(), maxSize)
	}

	kind, err := kindFromExtension(filepath.Ext(path))
	if err != nil {
		return nil, err
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrUnreadableFile, err)
	}
	if len(content) == 0 {
		return nil, fmt.Errorf("%w: %s is empty", model.ErrUnreadableFile, filepath.Base(path))
	}

	sniffed := http.DetectContentType(content)
	if !sniffMatches(kind, sniffed) {
		return nil, fmt.Errorf("%w: %s looks like %s", model.ErrUnsupportedFile, filepath.Base(path), sniffed)
	}

	text, err := extractText(kind, content)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", model.ErrUnreadableFile, filepath.Base(path), err)
	}

	return &File{
		Path:     path,
		Name:     filepath.Base(path),
		Kind:     kind,
		MIMEType: MIMEType(kind),
		Size:     info.Size(),
		Content:  content,
		Text:     text,
	}, nil
}

func kindFromExtension(ext string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(ext)) {
	case ".pdf":
		return KindPDF, nil
	case ".docx":
		return KindDOCX, nil
	case ".doc":
		return KindDOC, nil
	case ".txt":
		return KindText, nil
	default:
		return "", fmt.Errorf("%w: extension %q (accepted: .pdf, .doc, .docx, .txt)", model.ErrUnsupportedFile, ext)
	}
}

// MIMEType is the content type sent with an upload of the given kind.
func MIMEType(kind Kind) string {
	switch kind {
	case KindPDF:
		return mimePDF
	case KindDOCX:
		return mimeDOCX
	case KindDOC:
		return mimeDOC
	case KindText:
		return mimeText
	default:
		return "application/octet-stream"
	}
}

func sniffMatches(kind Kind, sniffed string) bool {
	sniffed = strings.ToLower(sniffed)
	switch kind {
	case KindPDF:
		return strings.HasPrefix(sniffed, mimePDF)
	case KindDOCX:
		return strings.HasPrefix(sniffed, "application/zip")
	case KindText:
		return strings.HasPrefix(sniffed, "text/plain")
	default:
		return true
	}
}

func extractText(kind Kind, content []byte) (string, error) {
	switch kind {
	case KindPDF:
		return extractPDFText(content)
	case KindDOCX:
		return extractDocxText(content)
	case KindText:
		if !utf8.Valid(content) {
			return "", fmt.Errorf("text is not valid UTF-8")
		}
		return string(content), nil
	default:
		return "", nil
	}
}

func extractPDFText(content []byte) (text string, err error) {
	// The pdf reader panics on some malformed object streams.
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("malformed pdf: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("read pdf: %w", err)
	}

	var builder strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		builder.WriteString(pageText)
	}

	return builder.String(), nil
}

var docxTextRun = regexp.MustCompile(`<w:t(?:\s[^>]*)?>([^<]*)</w:t>`)

func extractDocxText(content []byte) (string, error) {
	doc, err := docx.ReadDocxFromMemory(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("parse docx: %w", err)
	}
	defer doc.Close()

	var parts []string
	for _, match := range docxTextRun.FindAllStringSubmatch(doc.Editable().GetContent(), -1) {
		parts = append(parts, match[1])
	}

	return strings.Join(parts, " "), nil
}

// DisplayName derives the resume name sent with an upload: the file name
// without its extension, with each non-alphanumeric character replaced by a
// space.
func DisplayName(filename string) string {
	base := filepath.Base(filename)
	stem := strings.TrimSuffix(base, filepath.Ext(base))

	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return ' '
	}, stem)

	return strings.TrimSpace(cleaned)
}

package resumefile

import (
	"archive/zip"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"talentmatch-client/internal/model"
)

func writeFile(t *testing.T, name string, content []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, content, 0o644))
	return path
}

// buildPDF renders a one page PDF with a single line of text.
func buildPDF(text string) []byte {
	content := fmt.Sprintf("BT /F1 12 Tf 72 720 Td (%s) Tj ET", text)
	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 5 0 R >> >> /Contents 4 0 R >>",
		fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content),
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>",
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(objects)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)

	return buf.Bytes()
}

func buildDocx(t *testing.T, paragraphs ...string) []byte {
	t.Helper()

	var body strings.Builder
	for _, p := range paragraphs {
		fmt.Fprintf(&body, `<w:p><w:r><w:t xml:space="preserve">%s</w:t></w:r></w:p>`, p)
	}

	files := map[string]string{
		"[Content_Types].xml":          `<?xml version="1.0" encoding="UTF-8"?><Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types"></Types>`,
		"word/_rels/document.xml.rels": `<?xml version="1.0" encoding="UTF-8"?><Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships"></Relationships>`,
		"word/document.xml":            `<?xml version="1.0" encoding="UTF-8"?><w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>` + body.String() + `</w:body></w:document>`,
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, name := range []string{"[Content_Types].xml", "word/_rels/document.xml.rels", "word/document.xml"} {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(files[name]))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())

	return buf.Bytes()
}

func TestInspect(t *testing.T) {
	t.Run("plain text", func(t *testing.T) {
		path := writeFile(t, "jane_doe.txt", []byte("Jane Doe\nGo, PostgreSQL, Kubernetes"))

		file, err := Inspect(path, 1024)
		require.NoError(t, err)
		assert.Equal(t, KindText, file.Kind)
		assert.Equal(t, "text/plain", file.MIMEType)
		assert.Equal(t, "jane_doe.txt", file.Name)
		assert.Contains(t, file.Text, "Kubernetes")
		assert.EqualValues(t, len(file.Content), file.Size)
	})

	t.Run("pdf", func(t *testing.T) {
		path := writeFile(t, "resume.pdf", buildPDF("Go developer"))

		file, err := Inspect(path, 1<<20)
		require.NoError(t, err)
		assert.Equal(t, KindPDF, file.Kind)
		assert.Equal(t, "application/pdf", file.MIMEType)
		assert.Contains(t, file.Text, "Go developer")
	})

	t.Run("docx", func(t *testing.T) {
		path := writeFile(t, "resume.DOCX", buildDocx(t, "John Smith", "Senior Go Engineer"))

		file, err := Inspect(path, 1<<20)
		require.NoError(t, err)
		assert.Equal(t, KindDOCX, file.Kind)
		assert.Contains(t, file.Text, "John Smith")
		assert.Contains(t, file.Text, "Senior Go Engineer")
	})

	t.Run("doc passes through", func(t *testing.T) {
		path := writeFile(t, "legacy.doc", []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1, 0x00})

		file, err := Inspect(path, 1<<20)
		require.NoError(t, err)
		assert.Equal(t, KindDOC, file.Kind)
		assert.Equal(t, "application/msword", file.MIMEType)
		assert.Empty(t, file.Text)
	})

	t.Run("too large", func(t *testing.T) {
		path := writeFile(t, "big.txt", bytes.Repeat([]byte("a"), 2048))

		_, err := Inspect(path, 1024)
		require.ErrorIs(t, err, model.ErrFileTooLarge)
	})

	t.Run("unsupported extension", func(t *testing.T) {
		path := writeFile(t, "photo.png", []byte("\x89PNG\r\n\x1a\n"))

		_, err := Inspect(path, 1024)
		require.ErrorIs(t, err, model.ErrUnsupportedFile)
	})

	t.Run("content does not match extension", func(t *testing.T) {
		path := writeFile(t, "fake.pdf", []byte("just some text"))

		_, err := Inspect(path, 1024)
		require.ErrorIs(t, err, model.ErrUnsupportedFile)
	})

	t.Run("broken pdf", func(t *testing.T) {
		path := writeFile(t, "broken.pdf", []byte("%PDF-1.4\nnot really a pdf"))

		_, err := Inspect(path, 1024)
		require.ErrorIs(t, err, model.ErrUnreadableFile)
	})

	t.Run("zip without a document", func(t *testing.T) {
		var buf bytes.Buffer
		zw := zip.NewWriter(&buf)
		w, err := zw.Create("readme.txt")
		require.NoError(t, err)
		_, _ = w.Write([]byte("hello"))
		require.NoError(t, zw.Close())

		path := writeFile(t, "empty.docx", buf.Bytes())

		_, err = Inspect(path, 1<<20)
		require.ErrorIs(t, err, model.ErrUnreadableFile)
	})

	t.Run("empty file", func(t *testing.T) {
		path := writeFile(t, "empty.txt", nil)

		_, err := Inspect(path, 1024)
		require.ErrorIs(t, err, model.ErrUnreadableFile)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := Inspect(filepath.Join(t.TempDir(), "nope.pdf"), 1024)
		require.ErrorIs(t, err, model.ErrUnreadableFile)
	})
}

func TestDisplayName(t *testing.T) {
	tests := map[string]string{
		"jane_doe-resume.pdf":       "jane doe resume",
		"/tmp/John Smith (2).docx":  "John Smith  2",
		"cv.final.v2.txt":           "cv final v2",
		"José_Álvarez.pdf":          "José Álvarez",
		"noextension":               "noextension",
	}

	for in, want := range tests {
		assert.Equal(t, want, DisplayName(in), in)
	}
}

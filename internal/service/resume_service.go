package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"unicode/utf8"

	"talentmatch-client/internal/client"
	"talentmatch-client/internal/model"
	"talentmatch-client/internal/resumefile"
	"talentmatch-client/pkg/apierror"
)

type ResumeService struct {
	api           API
	maxUploadSize int64
	logger        *slog.Logger
}

func NewResumeService(api API, maxUploadSize int64, logger *slog.Logger) *ResumeService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ResumeService{api: api, maxUploadSize: maxUploadSize, logger: logger}
}

type UploadInput struct {
	Path string
	// Name defaults to the file name cleaned by resumefile.DisplayName.
	Name           string
	Email          string
	Phone          string
	IdempotencyKey string
}

type UploadOptions struct {
	Email string
	Phone string
	// Idempotent sends a fresh Idempotency-Key with every file.
	Idempotent bool
}

// Upload checks the file locally and posts it as multipart form data.
func (s *ResumeService) Upload(ctx context.Context, in UploadInput) (*model.Resume, error) {
	resume, _, err := s.upload(ctx, in)
	return resume, err
}

func (s *ResumeService) upload(ctx context.Context, in UploadInput) (*model.Resume, *resumefile.File, error) {
	file, err := resumefile.Inspect(in.Path, s.maxUploadSize)
	if err != nil {
		return nil, nil, err
	}

	name := strings.TrimSpace(in.Name)
	if name == "" {
		name = resumefile.DisplayName(file.Name)
	}

	body, contentType, err := encodeUpload(file, map[string]string{
		"name":  name,
		"email": strings.TrimSpace(in.Email),
		"phone": strings.TrimSpace(in.Phone),
	})
	if err != nil {
		return nil, nil, err
	}

	var resume model.Resume
	req := client.Request{
		Method:         http.MethodPost,
		Path:           "/resumes/",
		Body:           body,
		ContentType:    contentType,
		IdempotencyKey: in.IdempotencyKey,
	}
	if err := s.api.DoJSON(ctx, req, &resume); err != nil {
		return nil, nil, err
	}

	return &resume, file, nil
}

func encodeUpload(file *resumefile.File, fields map[string]string) ([]byte, string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, escapeQuotes(file.Name)))
	header.Set("Content-Type", file.MIMEType)
	part, err := writer.CreatePart(header)
	if err != nil {
		return nil, "", fmt.Errorf("encode upload: %w", err)
	}
	if _, err := part.Write(file.Content); err != nil {
		return nil, "", fmt.Errorf("encode upload: %w", err)
	}

	for _, key := range []string{"name", "email", "phone"} {
		if fields[key] == "" {
			continue
		}
		if err := writer.WriteField(key, fields[key]); err != nil {
			return nil, "", fmt.Errorf("encode upload: %w", err)
		}
	}

	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("encode upload: %w", err)
	}

	return buf.Bytes(), writer.FormDataContentType(), nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}

// UploadMany uploads paths one after another and reports a result per file.
// A failed file does not stop the batch; cancelling ctx does.
func (s *ResumeService) UploadMany(ctx context.Context, paths []string, opts UploadOptions) []model.UploadResult {
	results := make([]model.UploadResult, 0, len(paths))

	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			results = append(results, model.UploadResult{File: path, Status: model.UploadStatusError, Message: err.Error()})
			continue
		}

		in := UploadInput{Path: path, Email: opts.Email, Phone: opts.Phone}
		if opts.Idempotent {
			in.IdempotencyKey = NewIdempotencyKey("resume")
		}

		resume, file, err := s.upload(ctx, in)
		if err != nil {
			s.logger.Warn("resume upload failed", "file", path, "error", err)
			results = append(results, model.UploadResult{File: path, Status: model.UploadStatusError, Message: uploadMessage(err)})
			continue
		}

		chars := utf8.RuneCountInString(strings.TrimSpace(file.Text))
		message := "Uploaded successfully"
		if chars == 0 && file.Kind != resumefile.KindDOC {
			message += " (no text found locally, the file may be a scan)"
		}

		results = append(results, model.UploadResult{
			File:           path,
			Status:         model.UploadStatusSuccess,
			Message:        message,
			ExtractedChars: chars,
			Resume:         resume,
		})
	}

	return results
}

func uploadMessage(err error) string {
	var apiErr *apierror.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return err.Error()
}

func (s *ResumeService) List(ctx context.Context, params model.ListParams) (model.Page[model.ResumeSummary], error) {
	var page model.Page[model.ResumeSummary]
	err := s.api.DoJSON(ctx, client.Request{Method: http.MethodGet, Path: "/resumes/", Query: listQuery(params)}, &page)
	return page, err
}

// Search is the filter search over resume fields and extracted text.
func (s *ResumeService) Search(ctx context.Context, q string, limit int, offset int) (model.Page[model.ResumeSummary], error) {
	if strings.TrimSpace(q) == "" {
		return model.Page[model.ResumeSummary]{}, fmt.Errorf("%w: search query is required", model.ErrInvalidInput)
	}
	return s.List(ctx, model.ListParams{Q: q, Limit: limit, Offset: offset})
}

func (s *ResumeService) Get(ctx context.Context, id string) (*model.Resume, error) {
	path, err := resourcePath("resumes", id)
	if err != nil {
		return nil, err
	}

	var resume model.Resume
	if err := s.api.DoJSON(ctx, client.Request{Method: http.MethodGet, Path: path}, &resume); err != nil {
		return nil, err
	}

	return &resume, nil
}

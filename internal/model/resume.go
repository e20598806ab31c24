package model

import "time"

type Resume struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Email         string    `json:"email"`
	Phone         string    `json:"phone"`
	File          string    `json:"file"`
	ExtractedText string    `json:"extracted_text,omitempty"`
	Skills        string    `json:"skills"`
	Experience    string    `json:"experience,omitempty"`
	Education     string    `json:"education,omitempty"`
	UploadedBy    *User     `json:"uploaded_by,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// ResumeSummary is the list representation of a resume.
type ResumeSummary struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	Skills    string    `json:"skills"`
	CreatedAt time.Time `json:"created_at"`
}

type UploadResult struct {
	File    string `json:"file"`
	Status  string `json:"status"`
	Message string `json:"message"`
	// ExtractedChars counts the text found in the file before sending it.
	ExtractedChars int     `json:"extracted_chars"`
	Resume         *Resume `json:"resume,omitempty"`
}

const (
	UploadStatusSuccess = "success"
	UploadStatusError   = "error"
)

type ListParams struct {
	Q      string
	Limit  int
	Offset int
}

// Page is the limit/offset pagination envelope used by list endpoints.
type Page[T any] struct {
	Count    int     `json:"count"`
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
	Results  []T     `json:"results"`
}

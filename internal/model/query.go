package model

import (
	"fmt"
	"strings"
)

const (
	DefaultAskK    = 5
	MaxAskK        = 20
	MaxQueryLength = 500
	DefaultTopN    = 10
	MaxTopN        = 50
)

type AskRequest struct {
	Query string `json:"query"`
	K     int    `json:"k"`
}

func (r AskRequest) Validate() error {
	query := strings.TrimSpace(r.Query)
	if query == "" {
		return fmt.Errorf("%w: query is required", ErrInvalidInput)
	}
	if len([]rune(query)) > MaxQueryLength {
		return fmt.Errorf("%w: query exceeds %d characters", ErrInvalidInput, MaxQueryLength)
	}
	if r.K < 1 || r.K > MaxAskK {
		return fmt.Errorf("%w: k must be between 1 and %d", ErrInvalidInput, MaxAskK)
	}

	return nil
}

type AskResult struct {
	ResumeID         string   `json:"resume_id"`
	Name             string   `json:"name"`
	Email            string   `json:"email"`
	SimilarityScore  float64  `json:"similarity_score"`
	EvidenceSnippets []string `json:"evidence_snippets"`
	MatchedSkills    string   `json:"matched_skills"`
}

type AskResponse struct {
	Query        string      `json:"query"`
	TotalResults int         `json:"total_results"`
	Results      []AskResult `json:"results"`
}

type MatchRequest struct {
	TopN int `json:"top_n"`
}

func (r MatchRequest) Validate() error {
	if r.TopN < 1 || r.TopN > MaxTopN {
		return fmt.Errorf("%w: top_n must be between 1 and %d", ErrInvalidInput, MaxTopN)
	}

	return nil
}

type Match struct {
	ResumeID            string   `json:"resume_id"`
	Name                string   `json:"name"`
	Email               string   `json:"email"`
	MatchScore          float64  `json:"match_score"`
	MatchedSkills       []string `json:"matched_skills"`
	MissingRequirements []string `json:"missing_requirements"`
	EvidenceSnippets    []string `json:"evidence_snippets"`
}

type MatchResponse struct {
	JobID        string  `json:"job_id"`
	JobTitle     string  `json:"job_title"`
	TotalMatches int     `json:"total_matches"`
	Matches      []Match `json:"matches"`
}

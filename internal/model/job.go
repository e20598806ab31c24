package model

import (
	"fmt"
	"strings"
	"time"
)

type Job struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Company      string    `json:"company"`
	Description  string    `json:"description"`
	Requirements string    `json:"requirements"`
	Location     string    `json:"location"`
	SalaryRange  string    `json:"salary_range"`
	CreatedBy    *User     `json:"created_by,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type JobSummary struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Company     string    `json:"company"`
	Location    string    `json:"location"`
	SalaryRange string    `json:"salary_range"`
	CreatedAt   time.Time `json:"created_at"`
}

type JobInput struct {
	Title        string `json:"title"`
	Company      string `json:"company"`
	Description  string `json:"description"`
	Requirements string `json:"requirements"`
	Location     string `json:"location,omitempty"`
	SalaryRange  string `json:"salary_range,omitempty"`
}

func (j JobInput) Validate() error {
	var missing []string
	if strings.TrimSpace(j.Title) == "" {
		missing = append(missing, "title")
	}
	if strings.TrimSpace(j.Company) == "" {
		missing = append(missing, "company")
	}
	if strings.TrimSpace(j.Description) == "" {
		missing = append(missing, "description")
	}
	if strings.TrimSpace(j.Requirements) == "" {
		missing = append(missing, "requirements")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrInvalidInput, strings.Join(missing, ", "))
	}

	return nil
}

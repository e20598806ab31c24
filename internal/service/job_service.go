package service

import (
	"context"
	"net/http"

	"talentmatch-client/internal/client"
	"talentmatch-client/internal/model"
)

type JobService struct {
	api API
}

func NewJobService(api API) *JobService {
	return &JobService{api: api}
}

// Create posts a job description. A non-empty idempotencyKey lets the server
// collapse resubmissions of the same form into one job.
func (s *JobService) Create(ctx context.Context, input model.JobInput, idempotencyKey string) (*model.Job, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	var job model.Job
	req := client.Request{Method: http.MethodPost, Path: "/jobs/", JSON: input, IdempotencyKey: idempotencyKey}
	if err := s.api.DoJSON(ctx, req, &job); err != nil {
		return nil, err
	}

	return &job, nil
}

func (s *JobService) List(ctx context.Context, params model.ListParams) (model.Page[model.JobSummary], error) {
	var page model.Page[model.JobSummary]
	err := s.api.DoJSON(ctx, client.Request{Method: http.MethodGet, Path: "/jobs/", Query: listQuery(params)}, &page)
	return page, err
}

func (s *JobService) Get(ctx context.Context, id string) (*model.Job, error) {
	path, err := resourcePath("jobs", id)
	if err != nil {
		return nil, err
	}

	var job model.Job
	if err := s.api.DoJSON(ctx, client.Request{Method: http.MethodGet, Path: path}, &job); err != nil {
		return nil, err
	}

	return &job, nil
}

// Match ranks stored resumes against a job. topN of zero uses the server
// default.
func (s *JobService) Match(ctx context.Context, id string, topN int) (*model.MatchResponse, error) {
	path, err := resourcePath("jobs", id, "match")
	if err != nil {
		return nil, err
	}

	if topN == 0 {
		topN = model.DefaultTopN
	}
	req := model.MatchRequest{TopN: topN}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var resp model.MatchResponse
	if err := s.api.DoJSON(ctx, client.Request{Method: http.MethodPost, Path: path, JSON: req}, &resp); err != nil {
		return nil, err
	}

	return &resp, nil
}

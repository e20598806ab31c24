package service

import (
	"context"

	"golang.org/x/sync/errgroup"

	"talentmatch-client/internal/model"
)

const dashboardLimit = 5

type Summary struct {
	Resumes model.Page[model.ResumeSummary] `json:"resumes"`
	Jobs    model.Page[model.JobSummary]    `json:"jobs"`
}

type DashboardService struct {
	resumes *ResumeService
	jobs    *JobService
}

func NewDashboardService(resumes *ResumeService, jobs *JobService) *DashboardService {
	return &DashboardService{resumes: resumes, jobs: jobs}
}

// Summary fetches the latest resumes and jobs concurrently. The first failure
// cancels the other request.
func (s *DashboardService) Summary(ctx context.Context) (*Summary, error) {
	var summary Summary
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		page, err := s.resumes.List(gctx, model.ListParams{Limit: dashboardLimit})
		summary.Resumes = page
		return err
	})
	g.Go(func() error {
		page, err := s.jobs.List(gctx, model.ListParams{Limit: dashboardLimit})
		summary.Jobs = page
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &summary, nil
}

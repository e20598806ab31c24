package service

import (
	"context"
	"net/http"
	"strings"

	"talentmatch-client/internal/client"
	"talentmatch-client/internal/model"
)

// QueryService runs natural language questions against the resume index.
type QueryService struct {
	api API
}

func NewQueryService(api API) *QueryService {
	return &QueryService{api: api}
}

func (s *QueryService) Ask(ctx context.Context, query string, k int) (*model.AskResponse, error) {
	if k == 0 {
		k = model.DefaultAskK
	}
	req := model.AskRequest{Query: strings.TrimSpace(query), K: k}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var resp model.AskResponse
	if err := s.api.DoJSON(ctx, client.Request{Method: http.MethodPost, Path: "/ask/", JSON: req}, &resp); err != nil {
		return nil, err
	}

	return &resp, nil
}

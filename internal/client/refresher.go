package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"talentmatch-client/internal/model"
	"talentmatch-client/pkg/apierror"
)

const RefreshPath = "/auth/token/refresh/"

// TokenRefresher exchanges a refresh token at the token-refresh endpoint. It
// talks to the server directly, so it never attaches a bearer token and never
// retries.
type TokenRefresher struct {
	baseURL string
	http    *http.Client
}

func NewTokenRefresher(baseURL string, timeout time.Duration, httpClient *http.Client) *TokenRefresher {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if timeout > 0 {
		copied := *httpClient
		copied.Timeout = timeout
		httpClient = &copied
	}

	return &TokenRefresher{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		http:    httpClient,
	}
}

func (r *TokenRefresher) Refresh(ctx context.Context, refreshToken string) (model.RefreshResponse, error) {
	payload, err := json.Marshal(model.RefreshRequest{Refresh: refreshToken})
	if err != nil {
		return model.RefreshResponse{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+RefreshPath, bytes.NewReader(payload))
	if err != nil {
		return model.RefreshResponse{}, fmt.Errorf("build refresh request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := r.http.Do(req)
	if err != nil {
		return model.RefreshResponse{}, fmt.Errorf("send refresh request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return model.RefreshResponse{}, fmt.Errorf("read refresh response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return model.RefreshResponse{}, apierror.FromResponse(resp.StatusCode, body, resp.Header.Get(requestIDHeader))
	}

	var out model.RefreshResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return model.RefreshResponse{}, fmt.Errorf("decode refresh response: %w", err)
	}

	return out, nil
}

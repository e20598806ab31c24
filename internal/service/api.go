package service

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"talentmatch-client/internal/client"
	"talentmatch-client/internal/model"
)

// API is the part of the session client the services depend on.
type API interface {
	DoJSON(ctx context.Context, req client.Request, out any) error
}

// NewIdempotencyKey returns a key for one user action, such as a form
// submission: <prefix>-<unix millis>-<8 hex chars>.
func NewIdempotencyKey(prefix string) string {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = "req"
	}
	return fmt.Sprintf("%s-%d-%s", prefix, time.Now().UnixMilli(), uuid.NewString()[:8])
}

func listQuery(params model.ListParams) url.Values {
	query := url.Values{}
	if q := strings.TrimSpace(params.Q); q != "" {
		query.Set("q", q)
	}
	if params.Limit > 0 {
		query.Set("limit", strconv.Itoa(params.Limit))
	}
	if params.Offset > 0 {
		query.Set("offset", strconv.Itoa(params.Offset))
	}
	return query
}

func resourcePath(collection string, id string, suffix ...string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", fmt.Errorf("%w: id is required", model.ErrInvalidInput)
	}

	path := "/" + collection + "/" + url.PathEscape(id) + "/"
	for _, part := range suffix {
		path += part + "/"
	}
	return path, nil
}

//go:build integration

package integration

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"talentmatch-client/internal/apitest"
	"talentmatch-client/internal/app"
	"talentmatch-client/internal/client"
	"talentmatch-client/internal/config"
	"talentmatch-client/internal/service"
	"talentmatch-client/internal/session"
)

var quietLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

type stack struct {
	server      *apitest.Server
	sessionFile string
	store       *session.FileStore
	manager     *session.Manager
	client      *client.Client
	expired     atomic.Int32

	auth    *service.AuthService
	resumes *service.ResumeService
	jobs    *service.JobService
	query   *service.QueryService
}

func newStack(t *testing.T) *stack {
	t.Helper()

	s := &stack{
		server:      apitest.New(t),
		sessionFile: filepath.Join(t.TempDir(), "session.json"),
	}
	s.server.AddUser("recruiter", "Password123!")

	store, err := session.NewFileStore(s.sessionFile)
	require.NoError(t, err)
	s.store = store

	s.manager, err = session.NewManager(store, client.NewTokenRefresher(s.server.BaseURL(), 5*time.Second, nil),
		session.WithLogger(quietLogger),
		session.WithOnExpired(func(error) { s.expired.Add(1) }),
	)
	require.NoError(t, err)

	s.client, err = client.New(client.Options{
		BaseURL: s.server.BaseURL(),
		Timeout: 5 * time.Second,
		Session: s.manager,
		Logger:  quietLogger,
	})
	require.NoError(t, err)

	s.auth = service.NewAuthService(s.client, s.manager)
	s.resumes = service.NewResumeService(s.client, 10<<20, quietLogger)
	s.jobs = service.NewJobService(s.client)
	s.query = service.NewQueryService(s.client)

	return s
}

func (s *stack) login(t *testing.T) {
	t.Helper()
	_, err := s.auth.Login(context.Background(), "recruiter", "Password123!")
	require.NoError(t, err)
}

func (s *stack) storedCredentials(t *testing.T) session.Credentials {
	t.Helper()
	creds, err := s.store.Load()
	require.NoError(t, err)
	return creds
}

// runCLI runs one tmctl invocation against the stack's server and session file.
func (s *stack) runCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()

	cfg := &config.Config{
		APIBaseURL:     s.server.BaseURL(),
		RequestTimeout: 5 * time.Second,
		SessionFile:    s.sessionFile,
		MaxUploadSize:  10 << 20,
		LogLevel:       "error",
		OutputFormat:   config.OutputTable,
	}

	var stdout, stderr bytes.Buffer
	application, err := app.New(cfg, &stdout, &stderr, app.WithLogger(quietLogger))
	require.NoError(t, err)

	code := application.Run(context.Background(), args)
	return code, stdout.String(), stderr.String()
}

func writeFile(t *testing.T, name string, content []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, content, 0o644))
	return path
}

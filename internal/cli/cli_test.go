package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"talentmatch-client/internal/apitest"
	"talentmatch-client/internal/client"
	"talentmatch-client/internal/config"
	"talentmatch-client/internal/model"
	"talentmatch-client/internal/service"
	"talentmatch-client/internal/session"
)

type harness struct {
	server  *apitest.Server
	manager *session.Manager
	stdout  *bytes.Buffer
	stderr  *bytes.Buffer
	stdin   *bytes.Buffer
	cli     *CLI
}

func newHarness(t *testing.T, format string) *harness {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	server := apitest.New(t)
	manager, err := session.NewManager(session.NewMemoryStore(session.Credentials{}), client.NewTokenRefresher(server.BaseURL(), 5*time.Second, nil), session.WithLogger(logger))
	require.NoError(t, err)

	c, err := client.New(client.Options{BaseURL: server.BaseURL(), Timeout: 5 * time.Second, Session: manager, Logger: logger})
	require.NoError(t, err)

	resumes := service.NewResumeService(c, 1<<20, logger)
	jobs := service.NewJobService(c)

	h := &harness{
		server:  server,
		manager: manager,
		stdout:  &bytes.Buffer{},
		stderr:  &bytes.Buffer{},
		stdin:   &bytes.Buffer{},
	}
	h.cli = New(Services{
		Auth:      service.NewAuthService(c, manager),
		Resumes:   resumes,
		Jobs:      jobs,
		Query:     service.NewQueryService(c),
		Dashboard: service.NewDashboardService(resumes, jobs),
	}, h.stdin, h.stdout, h.stderr, format)

	return h
}

func (h *harness) run(args ...string) int {
	h.stdout.Reset()
	h.stderr.Reset()
	return h.cli.Run(context.Background(), args)
}

func (h *harness) login(t *testing.T) {
	t.Helper()
	h.server.AddUser("alice", "Password123!")
	require.Equal(t, ExitOK, h.run("login", "-username", "alice", "-password", "Password123!"))
}

func TestLoginPromptsForMissingCredentials(t *testing.T) {
	h := newHarness(t, config.OutputTable)
	h.server.AddUser("alice", "Password123!")
	h.stdin.WriteString("alice\nPassword123!\n")

	code := h.run("login")
	require.Equal(t, ExitOK, code, h.stderr.String())
	assert.Contains(t, h.stdout.String(), "Logged in as alice")
	assert.Contains(t, h.stderr.String(), "Password: ")
	assert.NotEmpty(t, h.manager.AccessToken())
}

func TestLoginFailureShowsServerMessage(t *testing.T) {
	h := newHarness(t, config.OutputTable)
	h.server.AddUser("alice", "Password123!")

	code := h.run("login", "-username", "alice", "-password", "nope")
	assert.Equal(t, ExitError, code)
	assert.Contains(t, h.stderr.String(), "Invalid username or password")
	assert.Contains(t, h.stderr.String(), "INVALID_CREDENTIALS")
}

func TestStatusAndLogout(t *testing.T) {
	h := newHarness(t, config.OutputTable)

	require.Equal(t, ExitOK, h.run("status"))
	assert.Contains(t, h.stdout.String(), "Authenticated:")
	assert.Contains(t, h.stdout.String(), "no")

	h.login(t)
	require.Equal(t, ExitOK, h.run("-o", "json", "status"))

	var status session.Status
	require.NoError(t, json.Unmarshal(h.stdout.Bytes(), &status))
	assert.True(t, status.Authenticated)
	assert.Equal(t, "alice", status.Username)

	require.Equal(t, ExitOK, h.run("logout"))
	assert.Empty(t, h.manager.AccessToken())
}

func TestSessionExpiryExitCode(t *testing.T) {
	h := newHarness(t, config.OutputTable)
	h.login(t)
	h.server.ExpireAccessTokens()
	h.server.RevokeRefreshTokens()

	code := h.run("jobs")
	assert.Equal(t, ExitSessionExpired, code)
	assert.Equal(t, "session expired, please log in again\n", h.stderr.String())
	assert.Empty(t, h.manager.AccessToken())
	assert.Empty(t, h.manager.RefreshToken())
}

func TestExpiredAccessTokenIsRefreshedTransparently(t *testing.T) {
	h := newHarness(t, config.OutputTable)
	h.login(t)
	h.server.SeedJob(model.JobInput{Title: "Platform Engineer", Company: "Acme", Description: "d", Requirements: "go"})
	h.server.ExpireAccessTokens()

	code := h.run("jobs")
	require.Equal(t, ExitOK, code, h.stderr.String())
	assert.Contains(t, h.stdout.String(), "Platform Engineer")
	assert.Equal(t, 1, h.server.RefreshCalls())
}

func TestUploadCommand(t *testing.T) {
	h := newHarness(t, config.OutputTable)
	dir := t.TempDir()
	good := filepath.Join(dir, "jane_doe.txt")
	bad := filepath.Join(dir, "photo.png")
	require.NoError(t, os.WriteFile(good, []byte("Jane Doe, Go"), 0o644))
	require.NoError(t, os.WriteFile(bad, []byte("\x89PNG\r\n\x1a\n"), 0o644))

	code := h.run("upload", "-email", "jane@example.com", good, bad)
	assert.Equal(t, ExitError, code)
	assert.Contains(t, h.stdout.String(), "success")
	assert.Contains(t, h.stdout.String(), "error")
	assert.Contains(t, h.stderr.String(), "1 of 2 uploads failed")

	requests := h.server.RequestsTo(http.MethodPost, "/resumes/")
	require.Len(t, requests, 1)
	assert.NotEmpty(t, requests[0].Header.Get("Idempotency-Key"))

	assert.Equal(t, ExitError, h.run("upload"))
	assert.Contains(t, h.stderr.String(), "usage: tmctl upload")
}

func TestResumeCommands(t *testing.T) {
	h := newHarness(t, config.OutputTable)
	h.login(t)
	jane := h.server.SeedResume("Jane Doe", "jane@example.com", "go, kubernetes", "Built Go services")
	h.server.SeedResume("John Smith", "john@example.com", "python", "Django")

	require.Equal(t, ExitOK, h.run("resumes"))
	assert.Contains(t, h.stdout.String(), "Jane Doe")
	assert.Contains(t, h.stdout.String(), "John Smith")
	assert.Contains(t, h.stdout.String(), "Showing 2 of 2")

	require.Equal(t, ExitOK, h.run("search", "kubernetes"))
	assert.Contains(t, h.stdout.String(), "Jane Doe")
	assert.NotContains(t, h.stdout.String(), "John Smith")

	require.Equal(t, ExitOK, h.run("resume", jane.ID))
	assert.Contains(t, h.stdout.String(), "jane@example.com")

	assert.Equal(t, ExitError, h.run("resume", "missing"))
	assert.Contains(t, h.stderr.String(), "404")
}

func TestJobCommands(t *testing.T) {
	h := newHarness(t, config.OutputJSON)
	h.login(t)
	h.server.SeedResume("Jane Doe", "jane@example.com", "go, kubernetes", "")

	code := h.run("job-create", "-title", "Backend Engineer", "-company", "Acme", "-description", "APIs", "-requirements", "go, kubernetes")
	require.Equal(t, ExitOK, code, h.stderr.String())

	var job model.Job
	require.NoError(t, json.Unmarshal(h.stdout.Bytes(), &job))
	assert.Equal(t, "Backend Engineer", job.Title)

	requests := h.server.RequestsTo(http.MethodPost, "/jobs/")
	require.Len(t, requests, 1)
	assert.True(t, strings.HasPrefix(requests[0].Header.Get("Idempotency-Key"), "job-"))

	require.Equal(t, ExitOK, h.run("job", job.ID))
	require.Equal(t, ExitOK, h.run("match", "-top", "5", job.ID))

	var matches model.MatchResponse
	require.NoError(t, json.Unmarshal(h.stdout.Bytes(), &matches))
	require.Len(t, matches.Matches, 1)
	assert.Equal(t, "Jane Doe", matches.Matches[0].Name)

	assert.Equal(t, ExitError, h.run("match", "-top", "99", job.ID))
	assert.Contains(t, h.stderr.String(), "top_n")

	assert.Equal(t, ExitError, h.run("job-create", "-title", "Only a title"))
	assert.Empty(t, h.server.RequestsTo(http.MethodPost, "/jobs/")[1:])
}

func TestAskAndDashboard(t *testing.T) {
	h := newHarness(t, config.OutputTable)
	h.login(t)
	h.server.SeedResume("Jane Doe", "jane@example.com", "go, kubernetes", "Kubernetes operator work")
	h.server.SeedJob(model.JobInput{Title: "SRE", Company: "Acme", Description: "d", Requirements: "go"})

	require.Equal(t, ExitOK, h.run("ask", "who", "knows", "kubernetes"))
	assert.Contains(t, h.stdout.String(), `results for "who knows kubernetes"`)
	assert.Contains(t, h.stdout.String(), "Jane Doe")

	require.Equal(t, ExitOK, h.run("dashboard"))
	assert.Contains(t, h.stdout.String(), "Resumes (1 total)")
	assert.Contains(t, h.stdout.String(), "Jobs (1 total)")
	assert.Contains(t, h.stdout.String(), "SRE")
}

func TestUsage(t *testing.T) {
	h := newHarness(t, config.OutputTable)

	assert.Equal(t, ExitError, h.run())
	assert.Contains(t, h.stderr.String(), "Usage: tmctl")

	assert.Equal(t, ExitOK, h.run("help"))
	assert.Contains(t, h.stderr.String(), "job-create")

	assert.Equal(t, ExitError, h.run("frobnicate"))
	assert.Contains(t, h.stderr.String(), `unknown command "frobnicate"`)

	assert.Equal(t, ExitError, h.run("-o", "yaml", "status"))
	assert.Contains(t, h.stderr.String(), "unsupported output format")

	require.Equal(t, ExitOK, h.run("version"))
	assert.Contains(t, h.stdout.String(), "tmctl "+Version)
}

func TestProtectedCommandWithoutLogin(t *testing.T) {
	h := newHarness(t, config.OutputTable)

	assert.Equal(t, ExitSessionExpired, h.run("jobs"))
	assert.Equal(t, "not logged in, run 'tmctl login' first\n", h.stderr.String())
	assert.Equal(t, 0, h.server.RefreshCalls())
}

func TestLoginFromRedirectedStdinFile(t *testing.T) {
	h := newHarness(t, config.OutputTable)
	h.server.AddUser("alice", "Password123!")

	path := filepath.Join(t.TempDir(), "credentials")
	require.NoError(t, os.WriteFile(path, []byte("alice\nPassword123!\n"), 0o600))
	stdin, err := os.Open(path)
	require.NoError(t, err)
	defer stdin.Close()

	cli := New(h.cli.services, stdin, h.stdout, h.stderr, config.OutputTable)
	assert.Nil(t, cli.tty)
	assert.Nil(t, terminal(&bytes.Buffer{}))

	require.Equal(t, ExitOK, cli.Run(context.Background(), []string{"login"}), h.stderr.String())
	assert.Contains(t, h.stdout.String(), "Logged in as alice")
	assert.NotEmpty(t, h.manager.AccessToken())
}

// Package apitest runs an in-memory stand-in for the resume matching API so the
// client can be exercised end to end over real HTTP.
package apitest

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"talentmatch-client/internal/model"
)

type RecordedRequest struct {
	Method string
	Path   string
	Header http.Header
}

type account struct {
	user         model.User
	passwordHash []byte
}

type failure struct {
	status    int
	remaining int
}

type Server struct {
	*httptest.Server

	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration

	mu            sync.Mutex
	accounts      map[string]account
	nextUserID    int
	accessTokens  map[string]string
	refreshTokens map[string]string
	rotateRefresh bool
	resumes       []model.Resume
	resumeText    map[string]string
	jobs          []model.Job
	idempotency   map[string]string
	failures      map[string]*failure
	refreshCalls  int
	requests      []RecordedRequest
}

// New starts a server and registers its shutdown with t. The API is mounted
// under /api, so clients use BaseURL() as their base URL.
func New(t testing.TB) *Server {
	t.Helper()

	s := &Server{
		secret:        []byte("apitest-" + uuid.NewString()),
		accessTTL:     5 * time.Minute,
		refreshTTL:    24 * time.Hour,
		accounts:      map[string]account{},
		nextUserID:    1,
		accessTokens:  map[string]string{},
		refreshTokens: map[string]string{},
		resumeText:    map[string]string{},
		idempotency:   map[string]string{},
		failures:      map[string]*failure{},
	}
	s.Server = httptest.NewServer(s.routes())
	t.Cleanup(s.Close)

	return s
}

// BaseURL is the API base URL, including the /api prefix.
func (s *Server) BaseURL() string {
	return s.Server.URL + "/api"
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(recovery)
	r.Use(s.record)
	r.Use(s.injectFailures)

	r.Route("/api", func(api chi.Router) {
		api.Route("/auth", func(auth chi.Router) {
			auth.Post("/login/", s.login)
			auth.Post("/register/", s.register)
			auth.Post("/token/refresh/", s.refresh)
		})

		api.With(s.optionalAuth).Post("/resumes/", s.createResume)
		api.With(s.requireAuth).Get("/resumes/", s.listResumes)
		api.With(s.requireAuth).Get("/resumes/{id}/", s.getResume)

		api.With(s.requireAuth).Post("/jobs/", s.createJob)
		api.With(s.requireAuth).Get("/jobs/", s.listJobs)
		api.With(s.requireAuth).Get("/jobs/{id}/", s.getJob)
		api.With(s.requireAuth).Post("/jobs/{id}/match/", s.matchJob)

		api.With(s.requireAuth).Post("/ask/", s.ask)
	})

	return r
}

// AddUser creates an account that can log in with password.
func (s *Server) AddUser(username string, password string) model.User {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		panic(err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.addAccountLocked(model.User{Username: username}, hash)
}

func (s *Server) addAccountLocked(user model.User, hash []byte) model.User {
	user.ID = s.nextUserID
	s.nextUserID++
	s.accounts[strings.ToLower(user.Username)] = account{user: user, passwordHash: hash}
	return user
}

// ExpireAccessTokens makes every access token issued so far invalid, as if
// they had all reached their expiry.
func (s *Server) ExpireAccessTokens() {
	s.mu.Lock()
	s.accessTokens = map[string]string{}
	s.mu.Unlock()
}

// RevokeRefreshTokens makes every refresh token issued so far invalid.
func (s *Server) RevokeRefreshTokens() {
	s.mu.Lock()
	s.refreshTokens = map[string]string{}
	s.mu.Unlock()
}

// RotateRefreshTokens makes the refresh endpoint return a new refresh token
// and revoke the presented one.
func (s *Server) RotateRefreshTokens(enabled bool) {
	s.mu.Lock()
	s.rotateRefresh = enabled
	s.mu.Unlock()
}

// FailNext makes the next times requests to method+path answer with status.
func (s *Server) FailNext(method string, path string, status int, times int) {
	s.mu.Lock()
	s.failures[method+" "+path] = &failure{status: status, remaining: times}
	s.mu.Unlock()
}

func (s *Server) RefreshCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refreshCalls
}

// Requests returns the recorded requests, oldest first.
func (s *Server) Requests() []RecordedRequest {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]RecordedRequest, len(s.requests))
	copy(out, s.requests)
	return out
}

// RequestsTo returns the recorded requests for method and path.
func (s *Server) RequestsTo(method string, path string) []RecordedRequest {
	var out []RecordedRequest
	for _, req := range s.Requests() {
		if req.Method == method && req.Path == path {
			out = append(out, req)
		}
	}
	return out
}

// SeedResume stores a resume as if it had been uploaded and parsed.
func (s *Server) SeedResume(name string, email string, skills string, text string) model.Resume {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	resume := model.Resume{
		ID:            uuid.NewString(),
		Name:          name,
		Email:         email,
		File:          "/media/resumes/" + strings.ReplaceAll(strings.ToLower(name), " ", "_") + ".pdf",
		ExtractedText: text,
		Skills:        skills,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	s.resumes = append([]model.Resume{resume}, s.resumes...)
	s.resumeText[resume.ID] = text

	return resume
}

func (s *Server) SeedJob(input model.JobInput) model.Job {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.addJobLocked(input, nil)
}

func (s *Server) addJobLocked(input model.JobInput, createdBy *model.User) model.Job {
	now := time.Now().UTC()
	job := model.Job{
		ID:           uuid.NewString(),
		Title:        input.Title,
		Company:      input.Company,
		Description:  input.Description,
		Requirements: input.Requirements,
		Location:     input.Location,
		SalaryRange:  input.SalaryRange,
		CreatedBy:    createdBy,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	s.jobs = append([]model.Job{job}, s.jobs...)
	return job
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := strings.TrimPrefix(r.URL.Path, "/api")

		s.mu.Lock()
		s.requests = append(s.requests, RecordedRequest{Method: r.Method, Path: path, Header: r.Header.Clone()})
		if path == "/auth/token/refresh/" {
			s.refreshCalls++
		}
		s.mu.Unlock()

		if requestID := r.Header.Get("X-Request-ID"); requestID != "" {
			w.Header().Set("X-Request-ID", requestID)
		}

		next.ServeHTTP(w, r)
	})
}

// recovery turns a handler panic into the INTERNAL_ERROR envelope.
func recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if recovered := recover(); recovered != nil {
				writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", fmt.Sprintf("Unexpected server error: %v", recovered), "")
			}
		}()

		next.ServeHTTP(w, r)
	})
}

func (s *Server) injectFailures(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Method + " " + strings.TrimPrefix(r.URL.Path, "/api")

		s.mu.Lock()
		f, exists := s.failures[key]
		status := 0
		if exists && f.remaining > 0 {
			f.remaining--
			status = f.status
		}
		s.mu.Unlock()

		if status != 0 {
			writeError(w, status, "INJECTED_FAILURE", http.StatusText(status), "")
			return
		}

		next.ServeHTTP(w, r)
	})
}

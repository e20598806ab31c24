package apitest

import (
	"encoding/json"
	"io"
	"net/http"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"talentmatch-client/internal/model"
)

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code string, message string, field string) {
	body := map[string]any{"code": code, "message": message}
	if field != "" {
		body["field"] = field
	}
	writeJSON(w, status, map[string]any{"error": body})
}

func writeDetail(w http.ResponseWriter, status int, code string, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail, "code": code})
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	var payload model.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || payload.Username == "" || payload.Password == "" {
		writeError(w, http.StatusBadRequest, "FIELD_REQUIRED", "Username and password are required", "username/password")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	acct, exists := s.accounts[strings.ToLower(payload.Username)]
	if !exists || bcrypt.CompareHashAndPassword(acct.passwordHash, []byte(payload.Password)) != nil {
		writeError(w, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid username or password", "")
		return
	}

	access, refresh, err := s.issueLocked(acct.user)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "SERVER_ERROR", err.Error(), "")
		return
	}

	writeJSON(w, http.StatusOK, model.AuthResponse{User: acct.user, Access: access, Refresh: refresh})
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	var payload model.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Registration failed", "")
		return
	}

	if strings.TrimSpace(payload.Username) == "" || payload.Password == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": map[string]any{
			"code":    "VALIDATION_ERROR",
			"message": "Registration failed",
			"details": map[string][]string{"username": {"This field is required."}},
		}})
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(payload.Password), bcrypt.MinCost)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "SERVER_ERROR", err.Error(), "")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.accounts[strings.ToLower(payload.Username)]; exists {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": map[string]any{
			"code":    "VALIDATION_ERROR",
			"message": "Registration failed",
			"details": map[string][]string{"username": {"A user with that username already exists."}},
		}})
		return
	}

	user := s.addAccountLocked(model.User{
		Username:  payload.Username,
		Email:     payload.Email,
		FirstName: payload.FirstName,
		LastName:  payload.LastName,
	}, hash)

	access, refresh, err := s.issueLocked(user)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "SERVER_ERROR", err.Error(), "")
		return
	}

	writeJSON(w, http.StatusCreated, model.AuthResponse{User: user, Access: access, Refresh: refresh})
}

func (s *Server) refresh(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	var payload model.RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || payload.Refresh == "" {
		writeJSON(w, http.StatusBadRequest, map[string][]string{"refresh": {"This field is required."}})
		return
	}

	user, err := s.userForToken(payload.Refresh, "refresh")
	if err != nil {
		writeDetail(w, http.StatusUnauthorized, "token_not_valid", "Token is invalid or expired")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	access, err := s.signLocked(user, "access", s.accessTTL)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "SERVER_ERROR", err.Error(), "")
		return
	}

	resp := model.RefreshResponse{Access: access}
	if s.rotateRefresh {
		delete(s.refreshTokens, payload.Refresh)
		rotated, err := s.signLocked(user, "refresh", s.refreshTTL)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "SERVER_ERROR", err.Error(), "")
			return
		}
		s.refreshTokens[rotated] = strings.ToLower(user.Username)
		resp.Refresh = rotated
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) createResume(w http.ResponseWriter, r *http.Request) {
	key := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
	if key != "" {
		if existing, ok := s.resumeByIdempotencyKey(key); ok {
			writeJSON(w, http.StatusOK, existing)
			return
		}
	}

	if err := r.ParseMultipartForm(8 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "FIELD_REQUIRED", "Resume file is required", "file")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "FIELD_REQUIRED", "Resume file is required", "file")
		return
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil || len(content) == 0 {
		writeError(w, http.StatusBadRequest, "FILE_PROCESSING_ERROR", "Failed to process file: empty upload", "")
		return
	}

	name := strings.TrimSpace(r.FormValue("name"))
	if name == "" {
		name = strings.TrimSuffix(header.Filename, filepath.Ext(header.Filename))
	}

	uploader := &model.User{Username: "anonymous_hackathon_user"}
	if user, ok := userFromContext(r.Context()); ok {
		uploader = &user
	}

	now := time.Now().UTC()
	resume := model.Resume{
		ID:         uuid.NewString(),
		Name:       name,
		Email:      r.FormValue("email"),
		Phone:      r.FormValue("phone"),
		File:       "/media/resumes/" + header.Filename,
		UploadedBy: uploader,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	s.mu.Lock()
	s.resumes = append([]model.Resume{resume}, s.resumes...)
	s.resumeText[resume.ID] = string(content)
	if key != "" {
		s.idempotency["resume:"+key] = resume.ID
	}
	s.mu.Unlock()

	writeJSON(w, http.StatusCreated, resume)
}

func (s *Server) resumeByIdempotencyKey(key string) (model.Resume, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, exists := s.idempotency["resume:"+key]
	if !exists {
		return model.Resume{}, false
	}
	for _, resume := range s.resumes {
		if resume.ID == id {
			return resume, true
		}
	}
	return model.Resume{}, false
}

func (s *Server) listResumes(w http.ResponseWriter, r *http.Request) {
	query := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("q")))

	s.mu.Lock()
	summaries := make([]model.ResumeSummary, 0, len(s.resumes))
	for _, resume := range s.resumes {
		if query != "" && !resumeContains(resume, s.resumeText[resume.ID], query) {
			continue
		}
		summaries = append(summaries, model.ResumeSummary{
			ID:        resume.ID,
			Name:      resume.Name,
			Email:     resume.Email,
			Phone:     resume.Phone,
			Skills:    resume.Skills,
			CreatedAt: resume.CreatedAt,
		})
	}
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, paginate(r, summaries))
}

func resumeContains(resume model.Resume, text string, query string) bool {
	for _, field := range []string{resume.Name, resume.Email, resume.Skills, text} {
		if strings.Contains(strings.ToLower(field), query) {
			return true
		}
	}
	return false
}

func (s *Server) getResume(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, resume := range s.resumes {
		if resume.ID == id {
			writeJSON(w, http.StatusOK, resume)
			return
		}
	}

	writeDetail(w, http.StatusNotFound, "not_found", "No Resume matches the given query.")
}

func (s *Server) createJob(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	var input model.JobInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid data provided", "")
		return
	}
	if input.Validate() != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid data provided", "")
		return
	}

	user, _ := userFromContext(r.Context())
	key := strings.TrimSpace(r.Header.Get("Idempotency-Key"))

	s.mu.Lock()
	defer s.mu.Unlock()

	if key != "" {
		if id, exists := s.idempotency["job:"+key]; exists {
			for _, job := range s.jobs {
				if job.ID == id {
					writeJSON(w, http.StatusCreated, job)
					return
				}
			}
		}
	}

	job := s.addJobLocked(input, &user)
	if key != "" {
		s.idempotency["job:"+key] = job.ID
	}

	writeJSON(w, http.StatusCreated, job)
}

func (s *Server) listJobs(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	summaries := make([]model.JobSummary, 0, len(s.jobs))
	for _, job := range s.jobs {
		summaries = append(summaries, model.JobSummary{
			ID:          job.ID,
			Title:       job.Title,
			Company:     job.Company,
			Location:    job.Location,
			SalaryRange: job.SalaryRange,
			CreatedAt:   job.CreatedAt,
		})
	}
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, paginate(r, summaries))
}

func (s *Server) findJob(id string) (model.Job, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, job := range s.jobs {
		if job.ID == id {
			return job, true
		}
	}
	return model.Job{}, false
}

func (s *Server) getJob(w http.ResponseWriter, r *http.Request) {
	job, exists := s.findJob(chi.URLParam(r, "id"))
	if !exists {
		writeDetail(w, http.StatusNotFound, "not_found", "No Job matches the given query.")
		return
	}

	writeJSON(w, http.StatusOK, job)
}

func (s *Server) matchJob(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	job, exists := s.findJob(chi.URLParam(r, "id"))
	if !exists {
		writeDetail(w, http.StatusNotFound, "not_found", "No Job matches the given query.")
		return
	}

	payload := model.MatchRequest{TopN: model.DefaultTopN}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil && err != io.EOF {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid parameters", "")
		return
	}
	if payload.Validate() != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid parameters", "top_n")
		return
	}

	requirements := terms(job.Requirements)

	s.mu.Lock()
	matches := make([]model.Match, 0, len(s.resumes))
	for _, resume := range s.resumes {
		skills := terms(resume.Skills)
		var matched, missing []string
		for _, requirement := range requirements {
			if contains(skills, requirement) {
				matched = append(matched, requirement)
			} else {
				missing = append(missing, requirement)
			}
		}
		if len(matched) == 0 {
			continue
		}
		matches = append(matches, model.Match{
			ResumeID:            resume.ID,
			Name:                resume.Name,
			Email:               resume.Email,
			MatchScore:          float64(len(matched)) / float64(len(requirements)),
			MatchedSkills:       matched,
			MissingRequirements: missing,
			EvidenceSnippets:    []string{},
		})
	}
	s.mu.Unlock()

	sort.SliceStable(matches, func(i, j int) bool { return matches[i].MatchScore > matches[j].MatchScore })
	if len(matches) > payload.TopN {
		matches = matches[:payload.TopN]
	}

	writeJSON(w, http.StatusOK, model.MatchResponse{
		JobID:        job.ID,
		JobTitle:     job.Title,
		TotalMatches: len(matches),
		Matches:      matches,
	})
}

func (s *Server) ask(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	payload := model.AskRequest{K: model.DefaultAskK}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || payload.Validate() != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid query parameters", "")
		return
	}

	words := terms(payload.Query)

	s.mu.Lock()
	results := make([]model.AskResult, 0, len(s.resumes))
	for _, resume := range s.resumes {
		haystack := strings.ToLower(resume.Skills + " " + s.resumeText[resume.ID])
		hits := 0
		var snippets []string
		for _, word := range words {
			if strings.Contains(haystack, word) {
				hits++
				snippets = append(snippets, word)
			}
		}
		if hits == 0 {
			continue
		}
		results = append(results, model.AskResult{
			ResumeID:         resume.ID,
			Name:             resume.Name,
			Email:            resume.Email,
			SimilarityScore:  float64(hits) / float64(len(words)),
			EvidenceSnippets: snippets,
			MatchedSkills:    resume.Skills,
		})
	}
	s.mu.Unlock()

	sort.SliceStable(results, func(i, j int) bool { return results[i].SimilarityScore > results[j].SimilarityScore })
	total := len(results)
	if len(results) > payload.K {
		results = results[:payload.K]
	}

	writeJSON(w, http.StatusOK, model.AskResponse{Query: payload.Query, TotalResults: total, Results: results})
}

func terms(raw string) []string {
	fields := strings.FieldsFunc(strings.ToLower(raw), func(r rune) bool {
		return r == ',' || r == ' ' || r == ';' || r == '\n'
	})
	out := make([]string, 0, len(fields))
	for _, field := range fields {
		if field = strings.TrimSpace(field); field != "" && !contains(out, field) {
			out = append(out, field)
		}
	}
	return out
}

func contains(values []string, target string) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}

func paginate[T any](r *http.Request, items []T) model.Page[T] {
	limit := len(items)
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			limit = v
		}
	}
	offset := 0
	if raw := r.URL.Query().Get("offset"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			offset = v
		}
	}

	page := model.Page[T]{Count: len(items), Results: []T{}}
	if offset >= len(items) {
		return page
	}

	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	page.Results = items[offset:end]

	if end < len(items) {
		next := r.URL.Path + "?limit=" + strconv.Itoa(limit) + "&offset=" + strconv.Itoa(end)
		page.Next = &next
	}
	if offset > 0 {
		previous := r.URL.Path + "?limit=" + strconv.Itoa(limit) + "&offset=" + strconv.Itoa(max(offset-limit, 0))
		page.Previous = &previous
	}

	return page
}

package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/SRIKRISHNAN-TR/ai-interview-agent/internal/interview"
	"github.com/SRIKRISHNAN-TR/ai-interview-agent/internal/store"
)

const (
	// defaultCallLimit is how many journal calls are returned when the
	// caller omits the ?limit= query parameter.
	defaultCallLimit = 20

	// multipartMemory is the in-memory part of a parsed resume upload.
	multipartMemory = 1 << 20
)

type deps struct {
	svc            *interview.Service
	journal        store.Journal
	wsHandler      http.Handler
	maxResumeBytes int64
	models         modelCatalog
}

// modelCatalog describes the configured LLM engines for GET /api/models.
type modelCatalog struct {
	active      string
	engines     []string
	ollamaModel string
	ollama      interface {
		Models(ctx context.Context) ([]string, error)
	}
}

// registerRoutes wires all HTTP endpoints to the shared mux.
func registerRoutes(mux *http.ServeMux, d deps) {
	mux.Handle("/ws/session", d.wsHandler)
	mux.HandleFunc("/health", handleHealth)
	mux.HandleFunc("GET /api/models", d.handleModels)
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /api/vapi/generate", handleGenerateLiveness)
	mux.HandleFunc("POST /api/vapi/generate", d.handleGenerate)
	mux.HandleFunc("POST /api/vapi/resume", d.handleResume)
	mux.HandleFunc("POST /api/feedback", d.handleFeedback)
	mux.HandleFunc("GET /api/interviews", d.handleInterviewsByUser)
	mux.HandleFunc("GET /api/interviews/latest", d.handleLatestInterviews)
	mux.HandleFunc("GET /api/interviews/{id}", d.handleInterview)
	mux.HandleFunc("GET /api/interviews/{id}/feedback", d.handleInterviewFeedback)
	registerCallRoutes(mux, d.journal)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func (d deps) handleModels(w http.ResponseWriter, r *http.Request) {
	var installed []string
	if d.models.ollama != nil {
		var err error
		installed, err = d.models.ollama.Models(r.Context())
		if err != nil {
			slog.Warn("list ollama models", "error", err)
			installed = []string{d.models.ollamaModel}
		}
	}
	writeOK(w, map[string]any{
		"llm": map[string]any{
			"active":  d.models.active,
			"engines": d.models.engines,
			"ollama":  installed,
		},
	})
}

func handleGenerateLiveness(w http.ResponseWriter, r *http.Request) {
	writeOK(w, map[string]any{"data": "Interview generation endpoint active"})
}

func (d deps) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req interview.GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	res, err := d.svc.Generate(r.Context(), req)
	if err != nil {
		writeServiceError(w, "generate", err)
		return
	}
	writeOK(w, map[string]any{"interviewId": res.InterviewID, "questions": res.Questions})
}

func (d deps) handleResume(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, d.maxResumeBytes+multipartMemory)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		writeError(w, http.StatusBadRequest, "No file uploaded")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "No file uploaded")
		return
	}
	defer file.Close()

	content, err := io.ReadAll(io.LimitReader(file, d.maxResumeBytes+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, "could not read file")
		return
	}
	if int64(len(content)) > d.maxResumeBytes {
		writeError(w, http.StatusRequestEntityTooLarge, "file too large")
		return
	}

	res, err := d.svc.AnalyzeResume(r.Context(), interview.ResumeRequest{
		Filename: header.Filename,
		Content:  content,
		UserID:   r.FormValue("userId"),
	})
	if err != nil {
		writeServiceError(w, "resume", err)
		return
	}
	writeOK(w, map[string]any{
		"interviewId":        res.InterviewID,
		"questions":          res.Questions,
		"resumeImprovements": res.Improvements,
	})
}

func (d deps) handleFeedback(w http.ResponseWriter, r *http.Request) {
	var req interview.FeedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	res, err := d.svc.ScoreFeedback(r.Context(), req)
	if err != nil {
		writeServiceError(w, "feedback", err)
		return
	}
	writeOK(w, map[string]any{"feedbackId": res.FeedbackID})
}

func (d deps) handleInterviewsByUser(w http.ResponseWriter, r *http.Request) {
	ivs, err := d.svc.InterviewsByUser(r.Context(), r.URL.Query().Get("userId"))
	if err != nil {
		writeServiceError(w, "interviews", err)
		return
	}
	writeOK(w, map[string]any{"interviews": ivs})
}

func (d deps) handleLatestInterviews(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", store.DefaultLatestLimit)
	ivs, err := d.svc.LatestInterviews(r.Context(), r.URL.Query().Get("userId"), limit)
	if err != nil {
		writeServiceError(w, "latest", err)
		return
	}
	writeOK(w, map[string]any{"interviews": ivs})
}

func (d deps) handleInterview(w http.ResponseWriter, r *http.Request) {
	iv, err := d.svc.InterviewByID(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, "interview", err)
		return
	}
	writeOK(w, map[string]any{"interview": iv})
}

func (d deps) handleInterviewFeedback(w http.ResponseWriter, r *http.Request) {
	fb, err := d.svc.FeedbackByInterview(r.Context(), r.PathValue("id"), r.URL.Query().Get("userId"))
	if err != nil {
		writeServiceError(w, "interview feedback", err)
		return
	}
	writeOK(w, map[string]any{"feedback": fb})
}

func registerCallRoutes(mux *http.ServeMux, journal store.Journal) {
	mux.HandleFunc("GET /api/calls", func(w http.ResponseWriter, r *http.Request) {
		if journal == nil {
			writeError(w, http.StatusNotFound, "call journal disabled")
			return
		}
		limit := queryInt(r, "limit", defaultCallLimit)
		offset := queryInt(r, "offset", 0)
		calls, total, err := journal.ListCalls(r.Context(), limit, offset)
		if err != nil {
			writeServiceError(w, "calls", err)
			return
		}
		writeOK(w, map[string]any{"calls": calls, "total": total})
	})

	mux.HandleFunc("GET /api/calls/{id}/events", func(w http.ResponseWriter, r *http.Request) {
		if journal == nil {
			writeError(w, http.StatusNotFound, "call journal disabled")
			return
		}
		events, err := journal.CallEvents(r.Context(), r.PathValue("id"))
		if err != nil {
			writeServiceError(w, "call events", err)
			return
		}
		writeOK(w, map[string]any{"events": events})
	})
}

// writeOK writes the success envelope with the given fields.
func writeOK(w http.ResponseWriter, fields map[string]any) {
	body := map[string]any{"success": true}
	for k, v := range fields {
		body[k] = v
	}
	writeJSON(w, http.StatusOK, body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"success": false, "error": msg})
}

// writeServiceError maps service errors onto HTTP statuses.
func writeServiceError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, interview.ErrMissingField), errors.Is(err, interview.ErrEmptyDocument):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		slog.Error(op+" failed", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func queryInt(r *http.Request, key string, fallback int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

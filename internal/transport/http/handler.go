package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"break-the-query/internal/app"
	"break-the-query/internal/domain"
	"break-the-query/internal/export"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"go.uber.org/zap"
)

const maxBodyBytes = 1 << 20

// Handler is the request gateway: it decodes and validates requests and
// routes them to the event service.
type Handler struct {
	service  *app.EventService
	validate *validator.Validate
	log      *zap.Logger
}

func NewHandler(service *app.EventService, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{
		service:  service,
		validate: newValidator(),
		log:      log,
	}
}

// RouteOptions configures the outer router.
type RouteOptions struct {
	// StaticDir, when set, is served at / for the browser pages.
	StaticDir   string
	CORSOrigins []string
}

// Routes builds the router with logging and CORS applied.
func (h *Handler) Routes(opts RouteOptions) http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}).Methods(http.MethodGet)

	// Coordinator
	r.HandleFunc("/start", h.startRound).Methods(http.MethodPost)
	r.HandleFunc("/clear-submissions", h.clearSubmissions).Methods(http.MethodPost)
	r.HandleFunc("/show-leaderboard", h.showLeaderboard).Methods(http.MethodPost)
	r.HandleFunc("/hide-leaderboard", h.hideLeaderboard).Methods(http.MethodPost)

	// Students
	r.HandleFunc("/question", h.poll).Methods(http.MethodGet)
	r.HandleFunc("/submit", h.submit).Methods(http.MethodPost)

	// Judges
	r.HandleFunc("/submissions", h.listSubmissions).Methods(http.MethodGet)
	r.HandleFunc("/submissions/{id}", h.getSubmission).Methods(http.MethodGet)
	r.HandleFunc("/update-marks", h.setMarks).Methods(http.MethodPost)

	// Teams
	r.HandleFunc("/register-team", h.registerTeam).Methods(http.MethodPost)
	r.HandleFunc("/teams", h.listTeams).Methods(http.MethodGet)

	r.HandleFunc("/leaderboard", h.leaderboard).Methods(http.MethodGet)
	r.HandleFunc("/leaderboard/export", h.exportLeaderboard).Methods(http.MethodGet)

	if opts.StaticDir != "" {
		r.PathPrefix("/").Handler(http.FileServer(http.Dir(opts.StaticDir))).Methods(http.MethodGet, http.MethodHead)
	}

	origins := opts.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	c := cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
		AllowedHeaders: []string{"Content-Type"},
	})
	return h.logRequests(c.Handler(r))
}

func (h *Handler) startRound(w http.ResponseWriter, r *http.Request) {
	var req startRoundRequest
	if !h.decode(w, r, &req, false) {
		return
	}
	round, err := h.service.StartRound(r.Context(), app.StartRoundInput{
		Text:            req.Text,
		Schema:          req.Schema,
		DurationSeconds: req.Duration,
		Label:           req.Round,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "started",
		"round":     round.Label,
		"startedAt": round.StartedAt,
	})
}

func (h *Handler) clearSubmissions(w http.ResponseWriter, r *http.Request) {
	if err := h.service.ClearSubmissions(r.Context()); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

func (h *Handler) showLeaderboard(w http.ResponseWriter, r *http.Request) {
	var req showLeaderboardRequest
	if !h.decode(w, r, &req, true) {
		return
	}
	round := h.service.ShowLeaderboard(r.Context(), req.Round)
	writeJSON(w, http.StatusOK, map[string]string{"status": "shown", "round": round})
}

func (h *Handler) hideLeaderboard(w http.ResponseWriter, r *http.Request) {
	h.service.HideLeaderboard(r.Context())
	writeJSON(w, http.StatusOK, map[string]string{"status": "hidden"})
}

func (h *Handler) poll(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, h.service.Poll(r.Context()))
}

func (h *Handler) submit(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if !h.decode(w, r, &req, false) {
		return
	}
	sub, err := h.service.Submit(r.Context(), req.TeamID, req.Answer)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "submitted", "id": sub.ID})
}

func (h *Handler) listSubmissions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.service.Submissions(r.Context()))
}

func (h *Handler) getSubmission(w http.ResponseWriter, r *http.Request) {
	sub, err := h.service.Submission(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sub)
}

func (h *Handler) setMarks(w http.ResponseWriter, r *http.Request) {
	var req setMarksRequest
	if !h.decode(w, r, &req, false) {
		return
	}
	marks, err := domain.ParseMarks(req.Marks)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if _, err := h.service.SetMarks(r.Context(), req.ID, marks); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

func (h *Handler) registerTeam(w http.ResponseWriter, r *http.Request) {
	var req registerTeamRequest
	if !h.decode(w, r, &req, false) {
		return
	}
	err := h.service.RegisterTeam(r.Context(), domain.Team{
		ID:         req.TeamID,
		Name:       req.TeamName,
		LeaderName: req.Leader,
		College:    req.College,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "registered"})
}

func (h *Handler) listTeams(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.service.Teams(r.Context()))
}

func (h *Handler) leaderboard(w http.ResponseWriter, r *http.Request) {
	lb, err := h.service.Leaderboard(r.Context(), r.URL.Query().Get("round"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, lb)
}

func (h *Handler) exportLeaderboard(w http.ResponseWriter, r *http.Request) {
	exporter, err := export.For(export.Format(r.URL.Query().Get("format")))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	lb, err := h.service.Leaderboard(r.Context(), r.URL.Query().Get("round"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", exporter.ContentType())
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", "leaderboard-"+lb.Round+"."+exporter.Extension()))
	if err := exporter.Export(r.Context(), lb, w); err != nil {
		// Headers are gone by now; all we can do is log.
		h.log.Error("export leaderboard", zap.String("round", lb.Round), zap.Error(err))
	}
}

// decode reads a JSON body into dst and validates it. An empty body is
// accepted only when optional is set.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any, optional bool) bool {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		if !(optional && errors.Is(err, io.EOF)) {
			h.writeError(w, r, domain.Invalid("", "malformed JSON body"))
			return false
		}
	}
	if err := h.validate.Struct(dst); err != nil {
		h.writeError(w, r, validationError(err))
		return false
	}
	return true
}

type errorResponse struct {
	Error string      `json:"error"`
	Kind  domain.Kind `json:"kind"`
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind := domain.KindOf(err)
	status := statusFor(kind)
	message := err.Error()
	if !domain.IsClientFault(err) {
		h.log.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("kind", string(kind)),
			zap.Error(err))
		message = "internal error"
		if kind == domain.KindPersistence {
			message = domain.ErrPersistence.Error()
		}
	}
	writeJSON(w, status, errorResponse{Error: message, Kind: kind})
}

func statusFor(kind domain.Kind) int {
	switch kind {
	case domain.KindValidation, domain.KindUnknownTeam, domain.KindNoActiveRound, domain.KindWindowClosed:
		return http.StatusBadRequest
	case domain.KindSubmissionNotFound:
		return http.StatusNotFound
	case domain.KindDuplicateTeam:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func (h *Handler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		h.log.Info("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("duration", time.Since(start)))
	})
}

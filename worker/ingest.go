package worker

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"
)

// maxSubmitBytes bounds the body of POST /questions.
const maxSubmitBytes = 64 << 10

// submitRequest is the body of POST /questions.
type submitRequest struct {
	Question string `json:"question"`
	Force    bool   `json:"force"`
}

type submitResponse struct {
	ID             string  `json:"id,omitempty"`
	Score          float64 `json:"score"`
	Redundancy     float64 `json:"redundancy"`
	Implausibility float64 `json:"implausibility"`
	Error          string  `json:"error,omitempty"`
}

// Ingestor exposes question submission and status over HTTP.
type Ingestor struct {
	orch *Orchestrator
}

func NewIngestor(orch *Orchestrator) *Ingestor {
	return &Ingestor{orch: orch}
}

// Register mounts POST /questions and GET /status on mux.
func (i *Ingestor) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /questions", i.handleSubmit)
	mux.HandleFunc("GET /status", i.handleStatus)
}

func (i *Ingestor) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxSubmitBytes)).Decode(&req); err != nil {
		status := http.StatusBadRequest
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		http.Error(w, err.Error(), status)
		return
	}
	q, score, err := i.orch.Submit(r.Context(), req.Question, req.Force)
	resp := submitResponse{Score: score.Value, Redundancy: score.Redundancy, Implausibility: score.Implausibility}
	status := http.StatusCreated
	switch {
	case errors.Is(err, ErrNotNovel):
		status = http.StatusConflict
		resp.Error = err.Error()
	case errors.Is(err, ErrInvalidQuestion):
		status = http.StatusBadRequest
		resp.Error = err.Error()
	case err != nil:
		i.orch.logger.Error("question submission failed", zap.Error(err))
		status = http.StatusInternalServerError
		resp.Error = err.Error()
	default:
		resp.ID = q.ID
	}
	writeJSON(w, status, resp)
}

func (i *Ingestor) handleStatus(w http.ResponseWriter, r *http.Request) {
	summary, err := i.orch.Summary(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

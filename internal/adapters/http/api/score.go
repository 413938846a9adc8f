package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"

	"github.com/okian/hiscore/internal/domain/model"
)

const maxScoreBody = 1 << 16

// ScoreDependencies defines the interface for score submission.
type ScoreDependencies interface {
	Submit(ctx context.Context, name string, score int64) (model.SubmitResult, error)
}

// ScoreHandler handles score submissions.
type ScoreHandler struct {
	deps ScoreDependencies
}

// NewScoreHandler creates a new score handler.
func NewScoreHandler(deps ScoreDependencies) *ScoreHandler {
	return &ScoreHandler{deps: deps}
}

// scoreRequest keeps the raw score so non-integers can be told apart from
// a missing value.
type scoreRequest struct {
	Name  string          `json:"name"`
	Score json.RawMessage `json:"score"`
}

type scoreResponse struct {
	OK      bool   `json:"ok"`
	Name    string `json:"name"`
	Score   int64  `json:"score"`
	Updated bool   `json:"updated"`
}

// HandlePostScore handles POST /api/score requests.
func (h *ScoreHandler) HandlePostScore(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_score"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}

	var req scoreRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxScoreBody)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", WrapKind(op, model.ErrInvalidInput, err))
		return
	}
	if err := model.ValidateName(req.Name); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", Wrap(op, err))
		return
	}
	score, err := parseScore(req.Score)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", Wrap(op, err))
		return
	}

	res, err := h.deps.Submit(r.Context(), req.Name, score)
	if err != nil {
		writeDomainError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, scoreResponse{
		OK:      true,
		Name:    res.Entry.Name,
		Score:   res.Entry.Score,
		Updated: res.Updated,
	})
}

// parseScore accepts JSON numbers with an integral value that fits int64.
func parseScore(raw json.RawMessage) (int64, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return 0, fmt.Errorf("%w: missing score", model.ErrInvalidInput)
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return 0, fmt.Errorf("%w: score: %w", model.ErrInvalidInput, err)
	}
	num, ok := v.(json.Number)
	if !ok {
		return 0, fmt.Errorf("%w: score must be a number", model.ErrInvalidInput)
	}

	if n, err := strconv.ParseInt(num.String(), 10, 64); err == nil {
		return n, nil
	}
	f, err := num.Float64()
	if err != nil || math.Trunc(f) != f || f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, fmt.Errorf("%w: score must be an integer", model.ErrInvalidInput)
	}
	return int64(f), nil
}

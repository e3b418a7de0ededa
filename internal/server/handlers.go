package server

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/vinylscout/vinylscout-api/internal/acquire"
	"github.com/vinylscout/vinylscout-api/internal/recommend"
	"github.com/vinylscout/vinylscout-api/internal/shelf"
)

// rawResponseBytes bounds the model text echoed back on a parse failure.
const rawResponseBytes = 500

type intentRequest struct {
	Query string `json:"query" validate:"required"`
}

type recommendRequest struct {
	Query  string            `json:"query" validate:"required"`
	Albums []recommend.Album `json:"albums" validate:"required,min=1,dive"`
}

// handleAnalyzeIntent is the strict path: every failure is an error status.
func (s *Server) handleAnalyzeIntent(w http.ResponseWriter, r *http.Request) {
	var req intentRequest
	if err := s.decodeBody(w, r, &req); err != nil {
		requestLogger(r).Debug("intent: bad request", zap.Error(err))
		writeError(w, http.StatusBadRequest, "Missing or empty 'query' parameter")
		return
	}

	out := s.deps.Intent.Analyze(r.Context(), req.Query)
	switch {
	case out.OK() && out.Empty:
		writeError(w, http.StatusBadGateway, "Empty response from Gemini")
	case out.OK():
		writeJSON(w, http.StatusOK, out.Decoded.Value)
	default:
		status, body := intentFailure(out.Failure, out.Diagnostics)
		requestLogger(r).Warn("intent: failed",
			zap.String("kind", string(out.Failure.Kind)),
			zap.Int("status", status),
		)
		writeJSON(w, status, body)
	}
}

func intentFailure(f *acquire.Failure, diag *acquire.Diagnostics) (int, map[string]string) {
	switch f.Kind {
	case acquire.FailureInput:
		return http.StatusBadRequest, map[string]string{"error": f.Message}
	case acquire.FailureConfig, acquire.FailureInternal:
		return http.StatusInternalServerError, map[string]string{"error": f.Message}
	case acquire.FailureDecode:
		body := map[string]string{"error": "Failed to parse AI response"}
		if diag != nil {
			body["raw_response"] = acquire.Preview(diag.ResponsePreview, rawResponseBytes)
		}
		return http.StatusBadGateway, body
	default:
		return http.StatusBadGateway, map[string]string{"error": "Gemini API error", "details": f.Message}
	}
}

// handleSmartRecommend is best-effort: once the request is valid and a model
// is configured, the response is always 200.
func (s *Server) handleSmartRecommend(w http.ResponseWriter, r *http.Request) {
	var req recommendRequest
	if err := s.decodeBody(w, r, &req); err != nil {
		requestLogger(r).Debug("recommend: bad request", zap.Error(err))
		writeError(w, http.StatusBadRequest, "Missing 'query' or 'albums' array")
		return
	}

	out := s.deps.Recommend.Recommend(r.Context(), req.Query, req.Albums)
	if f := out.Failure; f != nil {
		switch f.Kind {
		case acquire.FailureInput:
			writeError(w, http.StatusBadRequest, f.Message)
			return
		case acquire.FailureConfig:
			writeError(w, http.StatusInternalServerError, f.Message)
			return
		}
	}
	writeJSON(w, http.StatusOK, recommend.Shape(out, req.Albums))
}

// handleProcessVinyls always answers 200; errors travel in the body.
func (s *Server) handleProcessVinyls(w http.ResponseWriter, r *http.Request) {
	var req shelf.Request
	if err := s.decodeBody(w, r, &req); err != nil {
		requestLogger(r).Debug("shelf: bad request", zap.Error(err))
		writeJSON(w, http.StatusOK, shelf.Result{Albums: []shelf.Album{}, Error: "imageUrl is required"})
		return
	}

	res := s.deps.Shelf.Process(r.Context(), req)
	requestLogger(r).Info("shelf: processed",
		zap.Int("albums", len(res.Albums)),
		zap.String("model", res.Model),
		zap.Float64("processing_time", res.ProcessingTime),
		zap.Bool("failed", res.Error != ""),
	)
	writeJSON(w, http.StatusOK, res)
}

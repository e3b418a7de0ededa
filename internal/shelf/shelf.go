// Package shelf reads album spines from a photo of a record shelf.
package shelf

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/vinylscout/vinylscout-api/internal/acquire"
	"github.com/vinylscout/vinylscout-api/internal/fetcher"
)

// Album is one spine read from the photo. Positions count from the left,
// starting at 1. Spine coordinates are fractions of the image width.
type Album struct {
	Position    int      `json:"position"`
	Artist      string   `json:"artist"`
	Title       string   `json:"title"`
	Year        *int     `json:"year,omitempty"`
	Confidence  *float64 `json:"confidence,omitempty"`
	SpineXStart *float64 `json:"spine_x_start,omitempty"`
	SpineXEnd   *float64 `json:"spine_x_end,omitempty"`
}

type albums struct {
	Albums []Album `json:"albums"`
}

// Schema is the shape a shelf response must have.
var Schema = acquire.Schema{
	Name: "albums",
	Records: &acquire.RecordSet{
		Key: "albums",
		Fields: []acquire.Field{
			{Name: "position", Kind: acquire.FieldInteger, Required: true},
			{Name: "artist", Kind: acquire.FieldString, Required: true},
			{Name: "title", Kind: acquire.FieldString, Required: true},
			{Name: "year", Kind: acquire.FieldInteger, Nullable: true},
			{Name: "confidence", Kind: acquire.FieldNumber},
			{Name: "spine_x_start", Kind: acquire.FieldNumber},
			{Name: "spine_x_end", Kind: acquire.FieldNumber},
		},
	},
}

// SpineCoord is the horizontal extent of a spine from an earlier pass.
type SpineCoord struct {
	XStart float64 `json:"xStart"`
	XEnd   float64 `json:"xEnd"`
}

// Request is a process-vinyls call. When ReanalyzePositions and SpineCoords
// are both set only those positions are read again.
type Request struct {
	ImageURL           string             `json:"imageUrl" validate:"required"`
	ReanalyzePositions []int              `json:"reanalyzePositions,omitempty"`
	SpineCoords        map[int]SpineCoord `json:"spineCoords,omitempty"`
}

// Reanalyze reports whether r asks for the focused prompt.
func (r Request) Reanalyze() bool {
	return len(r.ReanalyzePositions) > 0 && r.SpineCoords != nil
}

// Result is the process-vinyls response body. On failure only Error and
// Albums are set.
type Result struct {
	Albums         []Album              `json:"albums"`
	ProcessingTime float64              `json:"processingTime,omitempty"`
	Model          string               `json:"model,omitempty"`
	ImageURL       string               `json:"imageUrl,omitempty"`
	Debug          *acquire.Diagnostics `json:"_debug,omitempty"`
	Error          string               `json:"error,omitempty"`
}

// ErrNotConfigured is the failure message when no model can be called.
const ErrNotConfigured = "GEMINI_API_KEY not configured"

// Service reads shelf photos.
type Service struct {
	engine     *acquire.Engine
	fetcher    fetcher.Fetcher
	candidates []acquire.Candidate
	now        func() time.Time
}

// NewService creates a Service that downloads photos with f.
func NewService(engine *acquire.Engine, f fetcher.Fetcher, candidates []acquire.Candidate) *Service {
	return &Service{engine: engine, fetcher: f, candidates: candidates, now: time.Now}
}

func failed(msg string) Result {
	return Result{Albums: []Album{}, Error: msg}
}

// Process downloads the photo and reads it. It never returns an error:
// every failure is reported in Result.Error. The time budget includes the
// download.
func (s *Service) Process(ctx context.Context, req Request) Result {
	start := s.now()
	if req.ImageURL == "" {
		return failed("imageUrl is required")
	}
	if len(s.candidates) == 0 {
		return failed(ErrNotConfigured)
	}

	img, err := s.fetcher.Fetch(ctx, req.ImageURL, nil)
	if err != nil {
		zap.L().Warn("shelf: image download failed", zap.String("image_url", req.ImageURL), zap.Error(err))
		return failed(fmt.Sprintf("image download failed: %v", err))
	}

	prompt := fullPrompt
	if req.Reanalyze() {
		prompt = reanalyzePrompt(req.ReanalyzePositions, req.SpineCoords)
	}
	zap.L().Info("shelf: processing",
		zap.Bool("reanalyze", req.Reanalyze()),
		zap.Int("prompt_chars", len(prompt)),
		zap.Float64("image_kb", float64(len(img.Data))/1024),
	)

	out := acquire.Acquire[albums](ctx, s.engine, acquire.Job{
		Start:      start,
		Candidates: s.candidates,
		Request: acquire.Request{
			Prompt: prompt,
			Media:  &acquire.Media{MIMEType: img.ContentType, Data: img.Data},
		},
		Schema: Schema,
	})
	return shape(out, req.ImageURL)
}

// shape builds the response. A call that succeeded but could not be decoded
// is still a zero-album success with diagnostics.
func shape(out acquire.Outcome[albums], imageURL string) Result {
	if out.Failure != nil && out.Failure.Kind != acquire.FailureDecode {
		return failed(out.Failure.Message)
	}

	res := Result{
		Albums:         []Album{},
		ProcessingTime: out.Elapsed.Seconds(),
		Model:          out.Model,
		ImageURL:       imageURL,
	}
	if out.Decoded != nil && len(out.Decoded.Value.Albums) > 0 {
		res.Albums = out.Decoded.Value.Albums
	}
	if len(res.Albums) == 0 {
		res.Debug = out.Diagnostics
	}
	return res
}

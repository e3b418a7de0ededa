package acquire

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// FailureKind classifies why an acquisition produced no value.
type FailureKind string

const (
	FailureConfig          FailureKind = "config"
	FailureInput           FailureKind = "input"
	FailureExhausted       FailureKind = "exhausted"
	FailureBudgetExhausted FailureKind = "budget_exhausted"
	FailureFatal           FailureKind = "fatal"
	FailureDecode          FailureKind = "decode"
	FailureInternal        FailureKind = "internal"
)

// Failure is a classified acquisition failure.
type Failure struct {
	Kind    FailureKind
	Message string
}

func (f *Failure) Error() string {
	return fmt.Sprintf("%s: %s", f.Kind, f.Message)
}

// DiagEmptyResponse marks a call that succeeded without content.
const DiagEmptyResponse = "empty_response"

// rawDataBytes bounds the envelope preview attached to empty responses.
const rawDataBytes = 2000

// Diagnostics is attached to any outcome a client may want to debug. All
// text fields are bounded previews.
type Diagnostics struct {
	Error           string   `json:"error,omitempty"`
	FinishReason    string   `json:"finishReason,omitempty"`
	ResponsePreview string   `json:"responsePreview,omitempty"`
	RawData         string   `json:"rawData,omitempty"`
	ParseError      string   `json:"parseError,omitempty"`
	Tier            string   `json:"tier,omitempty"`
	Dropped         int      `json:"dropped,omitempty"`
	Attempts        []string `json:"attempts,omitempty"`
}

// Outcome is the result of one acquisition. Exactly one of Decoded and
// Failure is set.
type Outcome[T any] struct {
	Decoded *Decoded[T]
	// Model and Provider name the candidate that produced Decoded.
	Model    string
	Provider string
	// Empty is set when the chosen call returned no content. Decoded then
	// holds the zero value with no records.
	Empty       bool
	Elapsed     time.Duration
	Attempts    []Attempt
	Failure     *Failure
	Diagnostics *Diagnostics
}

// OK reports whether the outcome carries a value.
func (o Outcome[T]) OK() bool {
	return o.Failure == nil && o.Decoded != nil
}

// Err returns the failure as an error, or nil.
func (o Outcome[T]) Err() error {
	if o.Failure == nil {
		return nil
	}
	return o.Failure
}

// Failed builds a failure outcome for problems found before any model call.
func Failed[T any](kind FailureKind, msg string) Outcome[T] {
	return Outcome[T]{Failure: &Failure{Kind: kind, Message: msg}}
}

// Assemble combines a scheduler run and the decode of its chosen envelope
// into an Outcome. It never panics.
func Assemble[T any](run Run, schema Schema, previewBytes int) (out Outcome[T]) {
	out = Outcome[T]{Elapsed: run.Elapsed, Attempts: run.Attempts}
	defer func() {
		if r := recover(); r != nil {
			zap.L().Error("acquire: panic during assembly",
				zap.String("schema", schema.Name),
				zap.Any("panic", r),
			)
			out.Decoded = nil
			out.Empty = false
			out.Failure = &Failure{Kind: FailureInternal, Message: fmt.Sprint(r)}
		}
	}()

	if err := run.Err(); err != nil {
		out.Failure = &Failure{Kind: failureKindFor(run), Message: err.Error()}
		out.Diagnostics = &Diagnostics{Attempts: attemptReasons(run.Attempts)}
		return out
	}

	chosen := run.Chosen
	out.Model = chosen.Candidate.Model
	out.Provider = chosen.Candidate.Provider

	p := Unwrap(chosen.Envelope)
	if p.Empty {
		out.Empty = true
		out.Decoded = &Decoded[T]{Tier: TierStrict}
		out.Diagnostics = &Diagnostics{
			Error:        DiagEmptyResponse,
			FinishReason: p.FinishReason,
			RawData:      Preview(string(chosen.Envelope.Raw), rawDataBytes),
		}
		return out
	}

	d, err := decodeWithPreview[T](p, schema, previewBytes)
	if err != nil {
		diag := &Diagnostics{FinishReason: p.FinishReason, ParseError: err.Error()}
		var de *DecodeError
		if errors.As(err, &de) {
			diag.ResponsePreview = de.Preview
			if last := de.Last(); last != nil {
				diag.ParseError = last.Error()
			}
		}
		out.Failure = &Failure{Kind: FailureDecode, Message: err.Error()}
		out.Diagnostics = diag
		return out
	}

	out.Decoded = &d
	if d.Tier > TierStrict || d.Records == 0 {
		out.Diagnostics = &Diagnostics{
			FinishReason:    p.FinishReason,
			ResponsePreview: Preview(payloadText(p), previewBytes),
			Tier:            d.Tier.String(),
			Dropped:         d.Dropped,
		}
	}
	return out
}

func failureKindFor(run Run) FailureKind {
	switch run.State {
	case StateBudgetExhausted:
		return FailureBudgetExhausted
	case StateAborted:
		return FailureFatal
	default:
		if len(run.Attempts) == 0 {
			return FailureConfig
		}
		return FailureExhausted
	}
}

func attemptReasons(attempts []Attempt) []string {
	out := make([]string, 0, len(attempts))
	for _, a := range attempts {
		out = append(out, a.Reason())
	}
	return out
}

func payloadText(p Payload) string {
	if len(p.Structured) > 0 {
		return string(p.Structured)
	}
	return p.Text
}

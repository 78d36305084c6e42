package ai

import (
	"context"
	"log/slog"
	"strings"

	"github.com/hrygo/divinecanvas/plugin/ai"
	"github.com/hrygo/divinecanvas/plugin/ai/digest"
	apierrors "github.com/hrygo/divinecanvas/server/internal/errors"
)

// DigestRequest asks for a pre-digestion of a long document.
type DigestRequest struct {
	Text        string          `json:"text"`
	Concurrency int             `json:"concurrency,omitempty"`
	ModelConfig *ai.ModelConfig `json:"model_config,omitempty"`
}

// DigestStreamer relays digest results as client events.
type DigestStreamer struct {
	service     *digest.Service
	concurrency int
}

// NewDigestStreamer creates a streamer with a default concurrency.
func NewDigestStreamer(service *digest.Service, concurrency int) *DigestStreamer {
	return &DigestStreamer{service: service, concurrency: concurrency}
}

// Validate rejects a request before the stream opens.
func (d *DigestStreamer) Validate(req *DigestRequest) error {
	if strings.TrimSpace(req.Text) == "" {
		return apierrors.InvalidRequest("text is required")
	}
	return nil
}

// Stream emits one doc_analysis per chunk in completion order, then one
// doc_final. A failed synthesis becomes an error event.
func (d *DigestStreamer) Stream(ctx context.Context, req *DigestRequest, sink EventSink) error {
	concurrency := req.Concurrency
	if concurrency <= 0 || concurrency > d.concurrency {
		concurrency = d.concurrency
	}

	// Cancelling releases the workers if the client goes away mid-stream.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	for r := range d.service.Summarize(ctx, req.Text, concurrency, req.ModelConfig) {
		var err error
		switch {
		case !r.IsFinal:
			err = sink.Send(EventDocAnalysis, DocAnalysisPayload{Index: r.Index, Content: r.Content})
		case r.Err != nil:
			slog.Warn("digest synthesis failed", slog.String("error", r.Err.Error()))
			err = sink.Send(EventError, ErrorPayload{Message: r.Err.Error()})
		default:
			err = sink.Send(EventDocFinal, ContentPayload{Content: r.Content})
		}
		if err != nil {
			return err
		}
	}
	return ctx.Err()
}

// Package digest pre-digests long documents into a synthesis suitable as
// diagram context. Chunks are summarized concurrently behind a counting
// gate and reported as they finish.
package digest

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/hrygo/divinecanvas/plugin/ai"
)

// FinalIndex tags the synthesis result.
const FinalIndex = -1

const (
	// DefaultChunkSize is the chunk length in runes.
	DefaultChunkSize = 20000
	// DefaultConcurrency is the gate width when none is given.
	DefaultConcurrency = 3
)

// Result is one pipeline output. Chunk results carry their original index;
// the last result has Index FinalIndex and IsFinal set.
type Result struct {
	Index   int    `json:"index"`
	Content string `json:"content"`
	IsFinal bool   `json:"is_final,omitempty"`
	// Err is set on the final result when synthesis failed.
	Err error `json:"-"`
}

// Service runs the pipeline.
type Service struct {
	llm       ai.LLMService
	chunkSize int
	now       func() time.Time
}

// NewService creates a digest service.
func NewService(llm ai.LLMService, chunkSize int) *Service {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &Service{llm: llm, chunkSize: chunkSize, now: time.Now}
}

// Chunk splits text into runs of at most size runes.
func Chunk(text string, size int) []string {
	runes := []rune(text)
	var chunks []string
	for start := 0; start < len(runes); start += size {
		end := min(start+size, len(runes))
		chunks = append(chunks, string(runes[start:end]))
	}
	return chunks
}

// Summarize starts the pipeline and returns its results. The channel yields
// chunk results in completion order, then exactly one final result, then
// closes. Cancelling ctx stops admitting chunks; the final result still
// arrives unless the reader has gone away.
func (s *Service) Summarize(ctx context.Context, text string, concurrency int, model *ai.ModelConfig) <-chan Result {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	chunks := Chunk(text, s.chunkSize)
	out := make(chan Result)

	go func() {
		defer close(out)
		start := time.Now()

		summaries := make([]string, len(chunks))
		results := make(chan Result)
		gate := semaphore.NewWeighted(int64(concurrency))

		var g errgroup.Group
		for i, chunk := range chunks {
			g.Go(func() error {
				if err := gate.Acquire(ctx, 1); err != nil {
					results <- Result{Index: i, Content: chunkError(i)}
					return nil
				}
				defer gate.Release(1)
				results <- Result{Index: i, Content: s.summarizeChunk(ctx, i, len(chunks), chunk, model)}
				return nil
			})
		}
		go func() {
			_ = g.Wait()
			close(results)
		}()

		for r := range results {
			summaries[r.Index] = r.Content
			select {
			case out <- r:
			case <-ctx.Done():
			}
		}

		final := Result{Index: FinalIndex, IsFinal: true}
		switch len(chunks) {
		case 0:
		case 1:
			final.Content = summaries[0]
		default:
			final.Content, final.Err = s.synthesize(ctx, summaries, model)
		}

		slog.Info("digest finished",
			"chunks", len(chunks),
			"concurrency", concurrency,
			"duration_ms", time.Since(start).Milliseconds(),
		)
		select {
		case out <- final:
		case <-ctx.Done():
		}
	}()
	return out
}

func (s *Service) summarizeChunk(ctx context.Context, index, total int, chunk string, model *ai.ModelConfig) string {
	content, err := s.llm.Chat(ctx, &ai.ChatRequest{
		Messages: []ai.Message{
			ai.SystemPrompt(chunkPrompt + timeNote(s.now())),
			ai.UserMessage(fmt.Sprintf("Text chunk %d/%d:\n\n%s", index+1, total, chunk)),
		},
		Model: model,
	})
	if err != nil {
		slog.Error("digest chunk failed", "chunk", index+1, "error", err)
		return chunkError(index)
	}
	return content
}

func (s *Service) synthesize(ctx context.Context, summaries []string, model *ai.ModelConfig) (string, error) {
	var parts []string
	for _, summary := range summaries {
		if summary != "" {
			parts = append(parts, summary)
		}
	}
	content, err := s.llm.Chat(ctx, &ai.ChatRequest{
		Messages: []ai.Message{
			ai.SystemPrompt(synthesisPrompt + timeNote(s.now())),
			ai.UserMessage("Partial Summaries:\n\n" + strings.Join(parts, "\n\n---\n\n")),
		},
		Model: model,
	})
	if err != nil {
		slog.Error("digest synthesis failed", "error", err)
		return "", err
	}
	return content, nil
}

func chunkError(index int) string {
	return fmt.Sprintf("[Error in chunk %d]", index+1)
}

func timeNote(now time.Time) string {
	return fmt.Sprintf("\n\nCurrent time: %s (%s).", now.Format("2006-01-02 15:04 MST"), now.Weekday())
}

const chunkPrompt = `You are a data extraction specialist. Turn the text into a dense Markdown summary that a diagramming assistant will build flowcharts, mind maps and timelines from.

Extract precisely:
1. Dates, times, durations and chronological order.
2. People, organisations, systems and specialised terms.
3. How entities relate: causes, dependencies, hierarchy.
4. Figures: measurements, percentages, money, technical specs.
5. Procedures: steps, decision points, conditional paths.`

const synthesisPrompt = `You merge partial summaries of one document into a single master document for a diagram generator.

- Merge overlapping facts.
- Keep processes and history in chronological order.
- Keep specific details, metrics and dates.
- Structure with nested headings, lists and tables so the content maps onto diagrams.`

package digest

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/divinecanvas/plugin/ai"
)

func drain(ch <-chan Result) []Result {
	var out []Result
	for r := range ch {
		out = append(out, r)
	}
	return out
}

func TestChunk(t *testing.T) {
	tests := []struct {
		name string
		text string
		size int
		want []string
	}{
		{"empty", "", 3, nil},
		{"exact", "abcdef", 3, []string{"abc", "def"}},
		{"remainder", "abcdefg", 3, []string{"abc", "def", "g"}},
		{"runes", "日本語テキスト", 4, []string{"日本語テ", "キスト"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Chunk(tt.text, tt.size))
		})
	}
}

func TestSummarizeSingleChunk(t *testing.T) {
	llm := ai.NewMockLLMService(ai.TextScript("summary one"))
	results := drain(NewService(llm, 100).Summarize(context.Background(), "short text", 2, nil))

	require.Len(t, results, 2)
	assert.Equal(t, Result{Index: 0, Content: "summary one"}, results[0])
	assert.Equal(t, Result{Index: FinalIndex, Content: "summary one", IsFinal: true}, results[1])
	assert.Len(t, llm.Requests(), 1)
}

func TestSummarizeEmptyText(t *testing.T) {
	results := drain(NewService(ai.NewMockLLMService(), 10).Summarize(context.Background(), "", 2, nil))
	require.Len(t, results, 1)
	assert.True(t, results[0].IsFinal)
	assert.Empty(t, results[0].Content)
}

func TestSummarizeBoundedConcurrency(t *testing.T) {
	var (
		inFlight, peak atomic.Int32
		mu             sync.Mutex
		synthInput     string
	)
	llm := &ai.MockLLMService{Handler: func(req *ai.ChatRequest) ai.MockScript {
		user := req.Messages[1].Content
		if strings.HasPrefix(user, "Partial Summaries") {
			mu.Lock()
			synthInput = user
			mu.Unlock()
			return ai.TextScript("master")
		}
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		inFlight.Add(-1)
		if strings.Contains(user, "Text chunk 3/5") {
			return ai.MockScript{StartErr: errors.New("rate limited")}
		}
		return ai.TextScript("sum:" + user[len("Text chunk "):len("Text chunk ")+3])
	}}

	results := drain(NewService(llm, 4).Summarize(context.Background(), strings.Repeat("x", 18), 2, nil))
	require.Len(t, results, 6)

	seen := map[int]string{}
	for _, r := range results[:5] {
		assert.False(t, r.IsFinal)
		seen[r.Index] = r.Content
	}
	assert.Len(t, seen, 5)
	assert.Equal(t, "[Error in chunk 3]", seen[2])
	assert.Equal(t, "sum:1/5", seen[0])

	final := results[5]
	assert.Equal(t, FinalIndex, final.Index)
	assert.True(t, final.IsFinal)
	assert.Equal(t, "master", final.Content)
	assert.NoError(t, final.Err)

	assert.LessOrEqual(t, peak.Load(), int32(2))
	assert.Contains(t, synthInput, "sum:1/5\n\n---\n\nsum:2/5\n\n---\n\n[Error in chunk 3]")
}

func TestSummarizeSynthesisFailure(t *testing.T) {
	llm := &ai.MockLLMService{Handler: func(req *ai.ChatRequest) ai.MockScript {
		if strings.HasPrefix(req.Messages[1].Content, "Partial Summaries") {
			return ai.MockScript{StartErr: errors.New("down")}
		}
		return ai.TextScript("part")
	}}
	results := drain(NewService(llm, 2).Summarize(context.Background(), "abcd", 1, nil))
	require.Len(t, results, 3)
	assert.Error(t, results[2].Err)
	assert.True(t, results[2].IsFinal)
}

func TestSummarizeModelOverride(t *testing.T) {
	llm := ai.NewMockLLMService(ai.TextScript("s"))
	override := &ai.ModelConfig{Model: "m"}
	drain(NewService(llm, 10).Summarize(context.Background(), "abc", 1, override))
	assert.Equal(t, override, llm.Requests()[0].Model)
}

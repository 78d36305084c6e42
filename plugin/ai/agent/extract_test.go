package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractArtifact(t *testing.T) {
	tests := []struct {
		name   string
		raw    string
		format ArtifactFormat
		want   string
	}{
		{
			name:   "tagged json",
			raw:    "<design_concept>Bar chart.</design_concept>\n<code>\n{\"series\":[]}\n</code>",
			format: FormatJSON,
			want:   `{"series":[]}`,
		},
		{
			name:   "json with surrounding prose",
			raw:    "Sure! Here it is: {\"nodes\":[{\"label\":\"a } b\"}],\"edges\":[]} enjoy",
			format: FormatJSON,
			want:   `{"nodes":[{"label":"a } b"}],"edges":[]}`,
		},
		{
			name:   "json code envelope",
			raw:    `{"code": "{\"series\":[1]}"}`,
			format: FormatJSON,
			want:   `{"series":[1]}`,
		},
		{
			name:   "fenced json",
			raw:    "```json\n{\"xAxis\":{}}\n```",
			format: FormatJSON,
			want:   `{"xAxis":{}}`,
		},
		{
			name:   "think block stripped",
			raw:    "<think>let me plan { not json</think>{\"series\":[]}",
			format: FormatJSON,
			want:   `{"series":[]}`,
		},
		{
			name:   "unclosed think before markmap",
			raw:    "<think>plan the branches\nstart broad\n# Root\n## Branch",
			format: FormatText,
			want:   "# Root\n## Branch",
		},
		{
			name:   "unclosed think before fenced json",
			raw:    "<thinking>bars for revenue {maybe}\n```json\n{\"series\":[]}\n```",
			format: FormatJSON,
			want:   `{"series":[]}`,
		},
		{
			name:   "unclosed think with no artifact",
			raw:    "<think>I could not decide",
			format: FormatXML,
			want:   "",
		},
		{
			name:   "think block only",
			raw:    "<think>I could not decide</think>",
			format: FormatXML,
			want:   "",
		},
		{
			name:   "unterminated code element",
			raw:    "<code>\ngraph TD\nA-->B",
			format: FormatText,
			want:   "graph TD\nA-->B",
		},
		{
			name:   "xml element",
			raw:    "Diagram:\n<?xml version=\"1.0\"?><mxfile><diagram><mxfile-ish/></diagram></mxfile> trailing",
			format: FormatXML,
			want:   "<mxfile><diagram><mxfile-ish/></diagram></mxfile>",
		},
		{
			name:   "xml with quoted angle bracket",
			raw:    `<mxfile><mxCell value="a > b"/></mxfile>`,
			format: FormatXML,
			want:   `<mxfile><mxCell value="a > b"/></mxfile>`,
		},
		{
			name:   "xml inside code envelope",
			raw:    `{"code":"<mxfile><diagram/></mxfile>"}`,
			format: FormatXML,
			want:   "<mxfile><diagram/></mxfile>",
		},
		{
			name:   "mermaid braces stay",
			raw:    "graph TD\nA{decision} --> B",
			format: FormatText,
			want:   "graph TD\nA{decision} --> B",
		},
		{
			name:   "fenced mermaid",
			raw:    "```mermaid\ngraph LR\nA-->B\n```",
			format: FormatText,
			want:   "graph LR\nA-->B",
		},
		{
			name:   "plain text",
			raw:    "  Hello there  ",
			format: FormatText,
			want:   "Hello there",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractArtifact(tt.raw, tt.format))
		})
	}
}

func TestBalancedJSONSpanUnbalanced(t *testing.T) {
	_, ok := balancedJSONSpan(`{"a": [1, 2}`)
	assert.False(t, ok)
	_, ok = balancedJSONSpan("no json here")
	assert.False(t, ok)
}

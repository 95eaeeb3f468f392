package markdown

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderHTML(t *testing.T) {
	tests := []struct {
		name     string
		source   string
		contains []string
	}{
		{
			name:     "heading and emphasis",
			source:   "# Recall\n\nRemember *this*.",
			contains: []string{"<h1>Recall</h1>", "<em>this</em>"},
		},
		{
			name:     "gfm table",
			source:   "| a | b |\n|---|---|\n| 1 | 2 |",
			contains: []string{"<table>", "<td>1</td>"},
		},
		{
			name:     "task list",
			source:   "- [x] read\n- [ ] review",
			contains: []string{`type="checkbox"`, "read"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			html, err := RenderHTML(tt.source)
			require.NoError(t, err)
			for _, want := range tt.contains {
				assert.Contains(t, html, want)
			}
		})
	}
}

func TestRenderHTMLDropsRawHTML(t *testing.T) {
	html, err := RenderHTML("<script>alert(1)</script>\n\nsafe")
	require.NoError(t, err)
	assert.NotContains(t, html, "<script>")
	assert.Contains(t, html, "safe")
}

func TestRenderHTMLEmpty(t *testing.T) {
	html, err := RenderHTML("  \n")
	require.NoError(t, err)
	assert.Empty(t, html)
}

func TestExcerpt(t *testing.T) {
	source := "# Title\n\nFirst *line* here\nsecond line.\n\n```\ncode\n```\n"
	assert.Equal(t, "Title First line here second line. code", Excerpt(source, 0))
	assert.Equal(t, "Title…", Excerpt(source, 6))
	assert.Equal(t, "", Excerpt("", 10))
}

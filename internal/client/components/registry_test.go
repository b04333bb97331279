package components

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func render(html string) Factory {
	return func(*Instance) (string, error) { return html, nil }
}

func TestDefine(t *testing.T) {
	r := NewRegistry()

	require.NoError(t, r.Define("blog-toc", render("<nav></nav>")))
	assert.True(t, r.Has("blog-toc"))

	f, ok := r.Get("blog-toc")
	require.True(t, ok)
	out, err := f(&Instance{ID: "1"})
	require.NoError(t, err)
	assert.Equal(t, "<nav></nav>", out)

	err = r.Define("blog-toc", render("<p></p>"))
	assert.ErrorIs(t, err, ErrAlreadyDefined)

	assert.False(t, r.Has("blog-missing"))
	assert.Equal(t, []string{"blog-toc"}, r.Tags())
}

func TestDefineRejectsInvalidTags(t *testing.T) {
	tests := []struct {
		tag   string
		valid bool
	}{
		{"blog-progress", true},
		{"x-1", true},
		{"my-widget.v2", true},
		{"progress", false},
		{"Blog-Progress", false},
		{"1-blog", false},
		{"-blog", false},
		{"", false},
		{"blog progress", false},
	}

	for _, tt := range tests {
		t.Run(tt.tag, func(t *testing.T) {
			err := NewRegistry().Define(tt.tag, render(""))
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalidTag)
			}
		})
	}

	assert.ErrorIs(t, NewRegistry().Define("blog-nil", nil), ErrInvalidTag)
}

package chunker

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/textsplitter"
)

// rebuild reverses a window split by dropping the shared prefix of every
// chunk after the first.
func rebuild(chunks []string, overlap int) string {
	var b strings.Builder
	for i, c := range chunks {
		if i == 0 {
			b.WriteString(c)
			continue
		}
		b.WriteString(string([]rune(c)[overlap:]))
	}
	return b.String()
}

func assertWindowInvariants(t *testing.T, text string, chunks []string, size, overlap int) {
	t.Helper()
	require.NotEmpty(t, chunks)
	for i, c := range chunks {
		assert.LessOrEqual(t, utf8.RuneCountInString(c), size, "chunk %d too long", i)
		if i == 0 {
			continue
		}
		prev := []rune(chunks[i-1])
		cur := []rune(c)
		assert.Equal(t, string(prev[len(prev)-overlap:]), string(cur[:overlap]), "overlap between %d and %d", i-1, i)
	}
	assert.Equal(t, text, rebuild(chunks, overlap))
}

func TestWindowSplitText(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		size    int
		overlap int
		want    []string
	}{
		{
			name:    "short text is a single chunk",
			text:    "The cat sat on the mat.",
			size:    1000,
			overlap: 100,
			want:    []string{"The cat sat on the mat."},
		},
		{
			name:    "exactly one window",
			text:    strings.Repeat("a", 1000),
			size:    1000,
			overlap: 100,
			want:    []string{strings.Repeat("a", 1000)},
		},
		{
			name:    "hard cut without boundaries",
			text:    strings.Repeat("a", 2500),
			size:    1000,
			overlap: 100,
			want: []string{
				strings.Repeat("a", 1000),
				strings.Repeat("a", 1000),
				strings.Repeat("a", 700),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Window{Size: tt.size, Overlap: tt.overlap}.SplitText(tt.text)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assertWindowInvariants(t, tt.text, got, tt.size, tt.overlap)
		})
	}
}

func TestWindowSentenceBoundaries(t *testing.T) {
	text := strings.Repeat("Hello world. ", 200)
	r := []rune(text)

	got, err := Window{Size: 1000, Overlap: 100}.SplitText(text)
	require.NoError(t, err)

	require.Len(t, got, 3)
	assert.Equal(t, string(r[0:988]), got[0])
	assert.Equal(t, string(r[888:1885]), got[1])
	assert.Equal(t, string(r[1785:]), got[2])
	assertWindowInvariants(t, text, got, 1000, 100)
}

func TestWindowPrefersParagraphs(t *testing.T) {
	first := strings.Repeat("word ", 140) + "\n\n"
	text := first + strings.Repeat("Another sentence here. ", 60)

	got, err := Window{Size: 1000, Overlap: 100}.SplitText(text)
	require.NoError(t, err)

	assert.Equal(t, first, got[0])
	assertWindowInvariants(t, text, got, 1000, 100)
}

func TestWindowIgnoresEarlyBoundaries(t *testing.T) {
	// a paragraph break this early would make a tiny chunk
	text := "Intro.\n\n" + strings.Repeat("Body sentence. ", 120)

	got, err := Window{Size: 1000, Overlap: 100}.SplitText(text)
	require.NoError(t, err)

	assert.Greater(t, utf8.RuneCountInString(got[0]), 500)
	assert.True(t, strings.HasSuffix(got[0], ". "), "cut at a sentence end: %q", got[0][len(got[0])-10:])
	assertWindowInvariants(t, text, got, 1000, 100)
}

func TestWindowCountsRunes(t *testing.T) {
	text := strings.Repeat("é", 1500)

	got, err := Window{Size: 1000, Overlap: 100}.SplitText(text)
	require.NoError(t, err)

	require.Len(t, got, 2)
	assert.Equal(t, 1000, utf8.RuneCountInString(got[0]))
	assert.Equal(t, 600, utf8.RuneCountInString(got[1]))
}

func TestWindowDeterministic(t *testing.T) {
	text := strings.Repeat("Lorem ipsum dolor sit amet.\nConsectetur adipiscing elit! ", 80)
	w := Window{Size: 1000, Overlap: 100}

	a, err := w.SplitText(text)
	require.NoError(t, err)
	b, err := w.SplitText(text)
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assertWindowInvariants(t, text, a, 1000, 100)
}

func TestWindowEmptyText(t *testing.T) {
	got, err := Window{Size: 1000, Overlap: 100}.SplitText("")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestNew(t *testing.T) {
	tests := []struct {
		name     string
		strategy string
		size     int
		overlap  int
		wantErr  bool
	}{
		{name: "window", strategy: "window", size: 1000, overlap: 100},
		{name: "default strategy", strategy: "", size: 1000, overlap: 100},
		{name: "recursive", strategy: "recursive", size: 200, overlap: 20},
		{name: "overlap too large", strategy: "window", size: 100, overlap: 100, wantErr: true},
		{name: "zero size", strategy: "recursive", size: 0, overlap: 0, wantErr: true},
		{name: "unknown", strategy: "semantic", size: 100, overlap: 10, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := New(tt.strategy, tt.size, tt.overlap)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, s)
		})
	}
}

func TestRecursiveStrategy(t *testing.T) {
	s, err := New("recursive", 200, 20)
	require.NoError(t, err)
	_, ok := s.(textsplitter.RecursiveCharacter)
	require.True(t, ok)

	text := strings.Repeat("Paragraph text goes on for a while.\n\n", 20)
	chunks, err := Split(s, text)
	require.NoError(t, err)

	require.Greater(t, len(chunks), 1)
	for i, c := range chunks {
		assert.Equal(t, i, c.Index)
		assert.NotEmpty(t, c.Content)
		assert.LessOrEqual(t, utf8.RuneCountInString(c.Content), 200)
	}
}

func TestSplitNumbersChunks(t *testing.T) {
	chunks, err := Split(Window{Size: 1000, Overlap: 100}, strings.Repeat("Hello world. ", 200))
	require.NoError(t, err)

	require.Len(t, chunks, 3)
	for i, c := range chunks {
		assert.Equal(t, i, c.Index)
	}
}

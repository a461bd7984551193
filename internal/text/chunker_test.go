package text

import (
	"strings"
	"testing"
)

func chunkLines(t *testing.T, limit int, lines ...string) []Chunk {
	t.Helper()
	c, err := NewChunker(limit)
	if err != nil {
		t.Fatalf("NewChunker(%d) failed: %v", limit, err)
	}
	for _, line := range lines {
		c.AddLine(line)
	}
	return c.Chunks()
}

func TestNewChunker_InvalidLimit(t *testing.T) {
	for _, limit := range []int{0, -1, -4990} {
		if _, err := NewChunker(limit); err == nil {
			t.Errorf("NewChunker(%d): expected error, got nil", limit)
		}
	}
}

func TestChunker_UnbreakableLongLine(t *testing.T) {
	// 6000 runes with no boundary characters must produce exactly two
	// chunks: 4990 and 1010.
	line := strings.Repeat("a", 6000)
	chunks := chunkLines(t, 4990, line)

	if len(chunks) != 2 {
		t.Fatalf("Expected 2 chunks, got %d", len(chunks))
	}
	if got := len([]rune(chunks[0].Content)); got != 4990 {
		t.Errorf("Expected first chunk length 4990, got %d", got)
	}
	if got := len([]rune(chunks[1].Content)); got != 1010 {
		t.Errorf("Expected second chunk length 1010, got %d", got)
	}
	if chunks[0].Content+chunks[1].Content != line {
		t.Error("Concatenated chunks do not reproduce the input")
	}
}

func TestChunker_SplitsAtSentenceBoundary(t *testing.T) {
	chunks := chunkLines(t, 20, "Hello world. This is a test.")

	want := []string{"Hello world.", "This is a test."}
	if len(chunks) != len(want) {
		t.Fatalf("Expected %d chunks, got %d: %v", len(want), len(chunks), chunks)
	}
	for i, w := range want {
		if chunks[i].Content != w {
			t.Errorf("Chunk %d: expected %q, got %q", i, w, chunks[i].Content)
		}
	}
}

func TestChunker_AccumulatesWholeLines(t *testing.T) {
	// Three 2000-rune lines with limit 4990: the first two share a chunk,
	// the third starts its own.
	line := strings.Repeat("b", 2000)
	chunks := chunkLines(t, 4990, line, line, line)

	if len(chunks) != 2 {
		t.Fatalf("Expected 2 chunks, got %d", len(chunks))
	}
	if got := len([]rune(chunks[0].Content)); got != 4000 {
		t.Errorf("Expected first chunk length 4000, got %d", got)
	}
	if got := len([]rune(chunks[1].Content)); got != 2000 {
		t.Errorf("Expected second chunk length 2000, got %d", got)
	}
}

func TestBoundaryCut(t *testing.T) {
	tests := []struct {
		name   string
		window string
		want   int
	}{
		{"period_beats_later_comma", "ab.cd,ef gh", 2},
		{"comma_beats_later_space", "ab,cd ef", 2},
		{"last_occurrence_wins", "a.b.c.d", 5},
		{"space_as_last_resort", "abc def", 3},
		{"boundary_at_zero_ignored", ".abcdef", -1},
		{"no_boundary", "abcdefgh", -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := boundaryCut([]rune(tt.window)); got != tt.want {
				t.Errorf("boundaryCut(%q) = %d, want %d", tt.window, got, tt.want)
			}
		})
	}
}

func TestChunker_BoundaryAtIndexZeroIgnored(t *testing.T) {
	// The only boundary sits at window index 0 once the tail is reached;
	// it must not produce an empty segment or loop forever.
	line := "." + strings.Repeat("x", 10)
	chunks := chunkLines(t, 5, line)

	var total int
	for _, ch := range chunks {
		if ch.Content == "" {
			t.Fatal("Produced an empty chunk")
		}
		if got := len([]rune(ch.Content)); got > 5 {
			t.Errorf("Chunk %d exceeds limit: %d runes", ch.Index, got)
		}
		total += len([]rune(ch.Content))
	}
	if total != len([]rune(line)) {
		t.Errorf("Expected %d runes across chunks, got %d", len([]rune(line)), total)
	}
}

func TestChunker_RoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		limit int
		lines []string
	}{
		{"single_short_line", 50, []string{"short line"}},
		{"multiple_lines", 25, []string{"first line", "second line", "third line"}},
		{"long_line_with_boundaries", 30, []string{
			"alpha, beta, gamma, delta, epsilon, zeta, eta, theta",
		}},
		{"long_line_no_boundaries", 10, []string{strings.Repeat("z", 35)}},
		{"cyrillic_runes", 15, []string{"привет, мир, это проверка длинной строки"}},
		{"blank_lines_skipped", 20, []string{"", "content", ""}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunks := chunkLines(t, tt.limit, tt.lines...)

			var joined strings.Builder
			for i, ch := range chunks {
				if ch.Index != i {
					t.Errorf("Expected contiguous index %d, got %d", i, ch.Index)
				}
				if ch.Content == "" {
					t.Error("Produced an empty chunk")
				}
				if got := len([]rune(ch.Content)); got > tt.limit {
					t.Errorf("Chunk %d exceeds limit %d: %d runes", i, tt.limit, got)
				}
				joined.WriteString(ch.Content)
			}

			// Boundary splits may absorb whitespace, so compare the
			// space-stripped concatenation: every non-space rune must
			// survive in order.
			want := strings.ReplaceAll(strings.Join(tt.lines, ""), " ", "")
			got := strings.ReplaceAll(joined.String(), " ", "")
			if got != want {
				t.Errorf("Round trip altered content:\nwant %q\ngot  %q", want, got)
			}
		})
	}
}

func TestChunker_EmptyInput(t *testing.T) {
	chunks := chunkLines(t, 4990)
	if len(chunks) != 0 {
		t.Errorf("Expected no chunks for empty input, got %d", len(chunks))
	}
}

func TestChunker_DoesNotSplitMidWord(t *testing.T) {
	line := "aaa bbb ccc ddd eee fff"
	chunks := chunkLines(t, 10, line)

	for _, ch := range chunks {
		for _, w := range strings.Fields(ch.Content) {
			trimmed := strings.Trim(w, ".;:, ")
			if trimmed != "aaa" && trimmed != "bbb" && trimmed != "ccc" &&
				trimmed != "ddd" && trimmed != "eee" && trimmed != "fff" {
				t.Errorf("Word severed across chunks: %q in chunk %d", w, ch.Index)
			}
		}
	}
}

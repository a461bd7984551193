// Package text implements the preprocessing and chunking core of the
// synthesis pipeline: it turns an arbitrarily long document into an ordered
// sequence of bounded-length chunks that a length-limited speech-synthesis
// provider can accept, without severing words or losing content.
package text

import (
	"errors"
	"fmt"
)

// DefaultChunkLimit is the default maximum chunk length in runes.
// Google and Yandex cap synthesis request text at 5000 characters; 4990
// leaves a small safety margin.
const DefaultChunkLimit = 4990

// boundaryRunes are the characters considered safe split points inside an
// oversized line, in priority order: a sentence or clause boundary is
// preferred over a plain space.
var boundaryRunes = []rune{'.', ';', ':', ',', ' '}

// ErrInvalidChunkLimit is returned when a Chunker is constructed with a
// non-positive limit.
var ErrInvalidChunkLimit = errors.New("chunk limit must be positive")

// Chunk is a contiguous run of preprocessed text. Index is 0-based and
// defines assembly order.
type Chunk struct {
	Index   int
	Content string
}

// Chunker accumulates preprocessed lines into chunks of at most limit runes.
// Feed lines with AddLine, then call Chunks for the ordered result.
type Chunker struct {
	limit int
	done  []Chunk
	cur   []rune
}

// NewChunker creates a Chunker with the given rune limit.
func NewChunker(limit int) (*Chunker, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("%w, got %d", ErrInvalidChunkLimit, limit)
	}
	return &Chunker{limit: limit}, nil
}

// AddLine accumulates one line, already stripped of its line terminator.
// A line that fits in the current chunk is appended; a line that fits on its
// own starts a fresh chunk; a line longer than the limit is split internally
// at boundary characters.
func (c *Chunker) AddLine(line string) {
	runes := []rune(line)
	switch {
	case len(runes) == 0:
		// Blank lines carry no speech content.
	case len(c.cur)+len(runes) <= c.limit:
		c.cur = append(c.cur, runes...)
	case len(runes) > c.limit:
		c.splitLong(runes)
	default:
		c.flush()
		c.cur = append(c.cur, runes...)
	}
}

// Chunks closes the current chunk and returns the ordered sequence produced
// so far. Indices are contiguous starting at 0 and no chunk is empty.
func (c *Chunker) Chunks() []Chunk {
	c.flush()
	return c.done
}

// flush closes the current chunk, if non-empty, and starts a new one.
func (c *Chunker) flush() {
	if len(c.cur) == 0 {
		return
	}
	c.done = append(c.done, Chunk{Index: len(c.done), Content: string(c.cur)})
	c.cur = c.cur[:0]
}

// splitLong consumes a line longer than the limit. Each step takes the
// largest prefix of the remaining runes that fits in one chunk, cutting at
// the last boundary character inside the window; when no boundary exists
// before the limit the cut falls at the limit itself, the only case where a
// token may be severed. A segment that would overflow the open chunk's
// remaining capacity starts a new chunk instead.
func (c *Chunker) splitLong(runes []rune) {
	c.flush()
	for index := 0; index < len(runes); {
		end := index + c.limit
		if end > len(runes) {
			end = len(runes)
		}
		window := runes[index:end]
		cut := boundaryCut(window)
		if cut < 0 {
			cut = len(window) - 1
		}
		seg := window[:cut+1]
		index += len(seg)

		if len(c.cur)+len(seg) > c.limit {
			c.flush()
		}
		if len(c.cur) == 0 {
			// The split boundary absorbs whitespace: a chunk never opens
			// with the space that separated it from the previous one.
			for len(seg) > 0 && seg[0] == ' ' {
				seg = seg[1:]
			}
			if len(seg) == 0 {
				continue
			}
		}
		c.cur = append(c.cur, seg...)
	}
}

// boundaryCut returns the index of the best split position inside window,
// or -1 when no usable boundary exists. Boundary characters are tried in
// priority order and only the last occurrence of each is considered. A
// boundary at index 0 counts as not found: cutting there would emit an
// empty segment and stall the consuming loop.
func boundaryCut(window []rune) int {
	for _, b := range boundaryRunes {
		for i := len(window) - 1; i > 0; i-- {
			if window[i] == b {
				return i
			}
		}
	}
	return -1
}

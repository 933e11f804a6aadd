// Package chunker splits normalized document text into overlapping spans
// sized for embedding.
package chunker

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
)

// Config controls chunk size and overlap, both measured in runes
type Config struct {
	ChunkSize int
	Overlap   int
}

// DefaultConfig matches the store's default chunking parameters
func DefaultConfig() Config {
	return Config{ChunkSize: 1000, Overlap: 200}
}

// Validate reports whether the configuration can produce a covering,
// terminating sequence of chunks.
func (c Config) Validate() error {
	if c.ChunkSize <= 0 {
		return errors.New("chunk size must be positive")
	}
	if c.Overlap < 0 {
		return errors.New("overlap cannot be negative")
	}
	if c.Overlap >= c.ChunkSize {
		return fmt.Errorf("overlap %d must be smaller than chunk size %d", c.Overlap, c.ChunkSize)
	}
	return nil
}

// Span is one chunk of text with its sequence index. Start is the byte
// offset of the span in the input text, usable against section offsets.
type Span struct {
	Index int
	Start int
	Text  string
}

// Split cuts text into overlapping spans. Consecutive spans share exactly
// Overlap runes, so concatenating spans with the overlap removed
// reconstructs the input losslessly. Text shorter than one chunk size
// yields exactly one span; empty text yields none.
func (c Config) Split(text string) ([]Span, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	if text == "" {
		return nil, nil
	}

	runes := []rune(text)
	// byte offset of each rune boundary
	byteOffset := make([]int, len(runes)+1)
	for i, r := range runes {
		byteOffset[i+1] = byteOffset[i] + len(string(r))
	}

	step := c.ChunkSize - c.Overlap
	var spans []Span
	for start := 0; ; start += step {
		end := start + c.ChunkSize
		if end > len(runes) {
			end = len(runes)
		}
		spans = append(spans, Span{
			Index: len(spans),
			Start: byteOffset[start],
			Text:  string(runes[start:end]),
		})
		if end == len(runes) {
			break
		}
	}
	return spans, nil
}

// Join reverses Split: it concatenates spans dropping the leading overlap
// of every span after the first.
func (c Config) Join(spans []Span) string {
	var runes []rune
	for i, s := range spans {
		r := []rune(s.Text)
		if i > 0 && len(r) >= c.Overlap {
			r = r[c.Overlap:]
		}
		runes = append(runes, r...)
	}
	return string(runes)
}

// Hash returns the content hash used for chunk-level dedup in the store
func Hash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:8])
}

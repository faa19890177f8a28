// Package chunk splits document segments into overlapping fixed-size
// windows, the unit stored in and retrieved from the vector store.
package chunk

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"

	"github.com/lorekeep/lorekeep/internal/document"
)

// Metadata keys attached to every chunk.
const (
	// MetaSource is the absolute path of the originating file.
	MetaSource = "source"

	// MetaStartIndex is the rune offset of the chunk within its segment.
	MetaStartIndex = "start_index"
)

// Chunk is a bounded slice of a segment's text. Meta holds only flat string
// values because the vector store cannot represent nested structures.
type Chunk struct {
	ID      string
	Content string
	Source  string
	Meta    map[string]string
}

// Chunker splits segment text into overlapping windows of Size runes,
// advancing Size-Overlap runes per window.
type Chunker struct {
	Size    int
	Overlap int
}

// New returns a Chunker, falling back to a 1000/200 window when the
// arguments are unusable.
func New(size, overlap int) *Chunker {
	if size <= 0 {
		size = 1000
	}
	if overlap < 0 || overlap >= size {
		overlap = size / 5
	}
	return &Chunker{Size: size, Overlap: overlap}
}

// Split chunks every segment in order. Consecutive chunks within one segment
// start exactly Size-Overlap runes apart; the final chunk may be shorter.
func (c *Chunker) Split(segments []document.Segment) []Chunk {
	var chunks []Chunk
	for _, seg := range segments {
		chunks = append(chunks, c.splitSegment(seg, len(chunks))...)
	}
	return chunks
}

func (c *Chunker) splitSegment(seg document.Segment, ordinalBase int) []Chunk {
	runes := []rune(seg.Content)
	if len(runes) == 0 {
		return nil
	}

	step := c.Size - c.Overlap
	var chunks []Chunk
	for start := 0; ; start += step {
		end := start + c.Size
		if end > len(runes) {
			end = len(runes)
		}

		meta := flattenMetadata(seg.Metadata)
		meta[MetaSource] = seg.Source
		meta[MetaStartIndex] = strconv.Itoa(start)

		chunks = append(chunks, Chunk{
			ID:      chunkID(seg.Source, ordinalBase+len(chunks)),
			Content: string(runes[start:end]),
			Source:  seg.Source,
			Meta:    meta,
		})

		if end == len(runes) {
			break
		}
	}

	return chunks
}

// flattenMetadata keeps only primitive-typed values, rendering them as
// strings. Anything structured (slices, maps, structs) is dropped.
func flattenMetadata(meta map[string]any) map[string]string {
	out := make(map[string]string, len(meta)+2)
	for k, v := range meta {
		switch val := v.(type) {
		case string:
			out[k] = val
		case bool:
			out[k] = strconv.FormatBool(val)
		case int:
			out[k] = strconv.Itoa(val)
		case int32:
			out[k] = strconv.FormatInt(int64(val), 10)
		case int64:
			out[k] = strconv.FormatInt(val, 10)
		case float32:
			out[k] = strconv.FormatFloat(float64(val), 'f', -1, 32)
		case float64:
			out[k] = strconv.FormatFloat(val, 'f', -1, 64)
		}
	}
	return out
}

// chunkID derives a stable ID from the source path and chunk ordinal, so
// reindexing the same file produces the same IDs.
func chunkID(source string, ordinal int) string {
	hash := sha256.Sum256([]byte(source))
	return fmt.Sprintf("%s#%d", hex.EncodeToString(hash[:16]), ordinal)
}

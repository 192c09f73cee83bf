package audio

import (
	"fmt"
	"strings"

	"podcast-digest/pkg/domain"
)

// MaxUploadBytes is the largest payload the transcription service accepts.
const MaxUploadBytes = 25 * 1024 * 1024

// searchWindow bounds how far before a hard cut we look for a frame boundary.
const searchWindow = 64 * 1024

// Chunk splits data into ordered, contiguous segments of at most maxBytes.
// Data that already fits is returned as a single segment. Cuts land on an
// MPEG audio frame header when one sits close to the limit, otherwise exactly
// at the limit. Segments share the backing array of data.
func Chunk(data []byte, maxBytes int) ([][]byte, error) {
	if maxBytes <= 0 {
		return nil, fmt.Errorf("%w: chunk size must be positive, got %d", domain.ErrInvalidConfig, maxBytes)
	}
	if len(data) == 0 {
		return nil, nil
	}
	if len(data) <= maxBytes {
		return [][]byte{data}, nil
	}

	segments := make([][]byte, 0, len(data)/maxBytes+1)
	start := 0
	for len(data)-start > maxBytes {
		end := cutPoint(data, start, start+maxBytes)
		segments = append(segments, data[start:end:end])
		start = end
	}
	segments = append(segments, data[start:])

	return segments, nil
}

// cutPoint picks the end of the segment starting at start, never past limit.
func cutPoint(data []byte, start, limit int) int {
	window := searchWindow
	if half := (limit - start) / 2; window > half {
		window = half
	}

	for i := limit; i > limit-window && i > start; i-- {
		if isFrameSync(data, i) {
			return i
		}
	}
	return limit
}

// isFrameSync reports whether an MPEG audio frame header starts at i
// (11 set sync bits followed by a valid version and layer).
func isFrameSync(data []byte, i int) bool {
	if i+1 >= len(data) {
		return false
	}
	if data[i] != 0xFF || data[i+1]&0xE0 != 0xE0 {
		return false
	}
	version := (data[i+1] >> 3) & 0x03
	layer := (data[i+1] >> 1) & 0x03
	return version != 0x01 && layer != 0x00
}

// Join concatenates per-segment transcripts in segment order.
func Join(texts []string) string {
	parts := make([]string, 0, len(texts))
	for _, t := range texts {
		if t = strings.TrimSpace(t); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, " ")
}

package timeline

import (
	"fmt"

	"autodub/internal/chunking"
)

// EntryKind distinguishes speech clips from silence fill.
type EntryKind string

const (
	KindSpeech  EntryKind = "speech"
	KindSilence EntryKind = "silence"
)

// Entry is one ordered element of the concatenation list the renderer
// consumes: a fixed duration of either a fitted speech clip or silence.
type Entry struct {
	Kind     EntryKind
	Duration float64
	// Source is the clip path for speech entries; silence entries are
	// sliced from the shared silence base and carry no source.
	Source string
}

// Build walks chunks in order and produces the gap-filled timeline. An
// absolute cursor tracks position on the original timeline so per-entry
// rounding can never accumulate: every duration is a difference of absolute
// positions, bounding total drift by a single entry's rounding error.
//
// Chunks without processed audio contribute silence for their slot. After
// the last chunk the remainder up to videoDuration becomes trailing silence.
func Build(chunks []chunking.Chunk, videoDuration, tolerance float64) ([]Entry, error) {
	if videoDuration < 0 {
		return nil, fmt.Errorf("build timeline: negative video duration %v", videoDuration)
	}
	if tolerance < 0 {
		tolerance = 0
	}

	entries := make([]Entry, 0, len(chunks)*2+1)
	cursor := 0.0

	for _, chunk := range chunks {
		if chunk.End <= chunk.Start {
			return nil, fmt.Errorf("build timeline: chunk %d has empty slot [%v,%v)", chunk.Index, chunk.Start, chunk.End)
		}
		if chunk.Start < cursor-tolerance {
			return nil, fmt.Errorf("build timeline: chunk %d starts at %v before cursor %v", chunk.Index, chunk.Start, cursor)
		}

		if gap := chunk.Start - cursor; gap > tolerance {
			entries = append(entries, Entry{Kind: KindSilence, Duration: gap})
			cursor = chunk.Start
		}

		duration := chunk.End - cursor
		if chunk.ProcessedAudio != "" {
			entries = append(entries, Entry{Kind: KindSpeech, Duration: duration, Source: chunk.ProcessedAudio})
		} else {
			entries = append(entries, Entry{Kind: KindSilence, Duration: duration})
		}
		cursor = chunk.End
	}

	if tail := videoDuration - cursor; tail > tolerance {
		entries = append(entries, Entry{Kind: KindSilence, Duration: tail})
	}
	return entries, nil
}

// TotalDuration sums entry durations; used to verify the drift invariant.
func TotalDuration(entries []Entry) float64 {
	total := 0.0
	for _, entry := range entries {
		total += entry.Duration
	}
	return total
}

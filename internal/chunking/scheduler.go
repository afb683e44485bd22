package chunking

import "strings"

// Segment is one transcript span produced by the transcriber: start < end,
// ordered by start, non-overlapping.
type Segment struct {
	Start float64
	End   float64
	Text  string
}

// Chunk is the unit of translation and synthesis: one or more merged
// segments plus the original time slot they must occupy after dubbing.
type Chunk struct {
	Index          int
	Start          float64
	End            float64
	Text           string
	TranslatedText string
	// ProcessedAudio is the path to the fitted clip, set only after
	// successful synthesis and fitting.
	ProcessedAudio string
	// ImperfectFit marks chunks whose clip had to be truncated to fit.
	ImperfectFit bool
}

// Duration returns the chunk's slot length in seconds.
func (c Chunk) Duration() float64 {
	return c.End - c.Start
}

// Limits bounds how far consecutive segments may merge.
type Limits struct {
	// MaxDuration caps the accumulated slot length in seconds.
	MaxDuration float64
	// MaxChars caps the accumulated text length.
	MaxChars int
	// SceneBreak is the inter-segment gap in seconds that forces a chunk
	// boundary; a long silence signals a natural split point.
	SceneBreak float64
}

// DefaultLimits matches the service configuration defaults.
func DefaultLimits() Limits {
	return Limits{MaxDuration: 20, MaxChars: 450, SceneBreak: 10}
}

// Schedule greedily merges consecutive segments into chunks while the
// accumulated duration and text stay under their limits and the gap to the
// next segment does not exceed the scene-break threshold. A single segment
// that alone exceeds a limit is emitted as its own chunk. Output preserves
// source order and never overlaps.
func Schedule(segments []Segment, limits Limits) []Chunk {
	if limits.MaxDuration <= 0 || limits.MaxChars <= 0 || limits.SceneBreak <= 0 {
		defaults := DefaultLimits()
		if limits.MaxDuration <= 0 {
			limits.MaxDuration = defaults.MaxDuration
		}
		if limits.MaxChars <= 0 {
			limits.MaxChars = defaults.MaxChars
		}
		if limits.SceneBreak <= 0 {
			limits.SceneBreak = defaults.SceneBreak
		}
	}

	var chunks []Chunk
	var cur *Chunk

	flush := func() {
		if cur == nil {
			return
		}
		cur.Index = len(chunks)
		chunks = append(chunks, *cur)
		cur = nil
	}

	for _, seg := range segments {
		text := strings.TrimSpace(seg.Text)
		if text == "" || seg.End <= seg.Start {
			continue
		}

		if cur != nil {
			gap := seg.Start - cur.End
			merged := len(cur.Text) + 1 + len(text)
			duration := seg.End - cur.Start
			if gap > limits.SceneBreak || duration > limits.MaxDuration || merged > limits.MaxChars {
				flush()
			}
		}

		if cur == nil {
			cur = &Chunk{Start: seg.Start, End: seg.End, Text: text}
			continue
		}
		cur.End = seg.End
		cur.Text += " " + text
	}
	flush()
	return chunks
}

package chunking_test

import (
	"strings"
	"testing"

	"autodub/internal/chunking"
)

func TestScheduleSceneBreakForcesSplit(t *testing.T) {
	segments := []chunking.Segment{
		{Start: 0, End: 4, Text: "a"},
		{Start: 4, End: 5, Text: "b"},
		{Start: 30, End: 34, Text: "c"},
	}
	limits := chunking.Limits{MaxDuration: 20, MaxChars: 450, SceneBreak: 10}

	chunks := chunking.Schedule(segments, limits)
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d: %#v", len(chunks), chunks)
	}
	first, second := chunks[0], chunks[1]
	if first.Start != 0 || first.End != 5 || first.Text != "a b" {
		t.Fatalf("unexpected first chunk: %#v", first)
	}
	if second.Start != 30 || second.End != 34 || second.Text != "c" {
		t.Fatalf("unexpected second chunk: %#v", second)
	}
}

func TestScheduleRespectsDurationLimit(t *testing.T) {
	segments := []chunking.Segment{
		{Start: 0, End: 12, Text: "one"},
		{Start: 12, End: 24, Text: "two"},
		{Start: 24, End: 30, Text: "three"},
	}
	limits := chunking.Limits{MaxDuration: 20, MaxChars: 450, SceneBreak: 10}

	chunks := chunking.Schedule(segments, limits)
	for _, c := range chunks {
		if c.Duration() > limits.MaxDuration {
			t.Fatalf("chunk %d duration %v exceeds limit", c.Index, c.Duration())
		}
	}
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
}

func TestScheduleRespectsCharLimit(t *testing.T) {
	long := strings.Repeat("x", 40)
	segments := []chunking.Segment{
		{Start: 0, End: 1, Text: long},
		{Start: 1, End: 2, Text: long},
		{Start: 2, End: 3, Text: long},
	}
	limits := chunking.Limits{MaxDuration: 60, MaxChars: 85, SceneBreak: 10}

	chunks := chunking.Schedule(segments, limits)
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	for _, c := range chunks {
		if len(c.Text) > limits.MaxChars {
			t.Fatalf("chunk %d text length %d exceeds limit", c.Index, len(c.Text))
		}
	}
}

func TestScheduleOversizeSegmentEmittedAlone(t *testing.T) {
	segments := []chunking.Segment{
		{Start: 0, End: 45, Text: "a very long monologue"},
		{Start: 45, End: 46, Text: "ok"},
	}
	limits := chunking.Limits{MaxDuration: 20, MaxChars: 450, SceneBreak: 10}

	chunks := chunking.Schedule(segments, limits)
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	if chunks[0].Duration() != 45 {
		t.Fatalf("oversize segment should keep its slot, got %v", chunks[0].Duration())
	}
	if chunks[1].Text != "ok" {
		t.Fatalf("oversize segment must not absorb its neighbor: %#v", chunks[1])
	}
}

func TestScheduleOrderAndNonOverlap(t *testing.T) {
	segments := []chunking.Segment{
		{Start: 0, End: 3, Text: "a"},
		{Start: 3.5, End: 6, Text: "b"},
		{Start: 20, End: 22, Text: "c"},
		{Start: 22, End: 25, Text: "d"},
		{Start: 40, End: 41, Text: "e"},
	}
	chunks := chunking.Schedule(segments, chunking.DefaultLimits())

	for i, c := range chunks {
		if c.Index != i {
			t.Fatalf("chunk index %d out of order (want %d)", c.Index, i)
		}
		if c.Start >= c.End {
			t.Fatalf("chunk %d has empty slot: %#v", i, c)
		}
		if i > 0 && c.Start < chunks[i-1].End {
			t.Fatalf("chunk %d overlaps previous: %#v", i, c)
		}
	}
}

func TestScheduleSkipsEmptySegments(t *testing.T) {
	segments := []chunking.Segment{
		{Start: 0, End: 1, Text: "   "},
		{Start: 2, End: 2, Text: "zero width"},
		{Start: 3, End: 4, Text: "kept"},
	}
	chunks := chunking.Schedule(segments, chunking.DefaultLimits())
	if len(chunks) != 1 || chunks[0].Text != "kept" {
		t.Fatalf("expected only the valid segment, got %#v", chunks)
	}
}

func TestScheduleEmptyInput(t *testing.T) {
	if chunks := chunking.Schedule(nil, chunking.DefaultLimits()); len(chunks) != 0 {
		t.Fatalf("expected no chunks for empty input, got %d", len(chunks))
	}
}

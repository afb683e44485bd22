package render

import (
	"fmt"
	"os"
	"strings"

	"autodub/internal/services"
	"autodub/internal/timeline"
)

// WriteConcatFile renders the timeline as an ffconcat listing. Speech
// entries reference their fitted clips whole; silence entries are sliced
// from the shared silence base with inpoint/outpoint, split into multiple
// slices when a gap outlasts the base.
func WriteConcatFile(entries []timeline.Entry, silencePath string, silenceBaseSeconds float64, path string) error {
	if silenceBaseSeconds <= 0 {
		return services.Wrap(services.ErrValidation, "render", "concat file", "Silence base duration must be positive", nil)
	}

	var builder strings.Builder
	builder.WriteString("ffconcat version 1.0\n")
	for _, entry := range entries {
		switch entry.Kind {
		case timeline.KindSpeech:
			if entry.Source == "" {
				return services.Wrap(services.ErrValidation, "render", "concat file", "Speech entry without source", nil)
			}
			fmt.Fprintf(&builder, "file %s\n", quoteConcatPath(entry.Source))
		case timeline.KindSilence:
			remaining := entry.Duration
			for remaining > 0 {
				slice := remaining
				if slice > silenceBaseSeconds {
					slice = silenceBaseSeconds
				}
				fmt.Fprintf(&builder, "file %s\n", quoteConcatPath(silencePath))
				builder.WriteString("inpoint 0\n")
				fmt.Fprintf(&builder, "outpoint %s\n", formatSeconds(slice))
				remaining -= slice
			}
		default:
			return services.Wrap(services.ErrValidation, "render", "concat file", fmt.Sprintf("Unknown entry kind %q", entry.Kind), nil)
		}
	}

	if err := os.WriteFile(path, []byte(builder.String()), 0o644); err != nil {
		return services.Wrap(services.ErrTransient, "render", "concat file", "Failed to write concat file", err)
	}
	return nil
}

// quoteConcatPath escapes a path for the concat demuxer, which reads
// single-quoted strings with '\'' escapes.
func quoteConcatPath(path string) string {
	return "'" + strings.ReplaceAll(path, "'", `'\''`) + "'"
}

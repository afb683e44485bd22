package render

import (
	"fmt"
	"os"
	"strings"
	"time"

	"autodub/internal/chunking"
	"autodub/internal/services"
)

// WriteSRT emits the translated chunks as a SubRip file. Chunks without any
// text are skipped; numbering stays contiguous over what is emitted.
func WriteSRT(chunks []chunking.Chunk, path string) error {
	var builder strings.Builder
	index := 0
	for _, chunk := range chunks {
		text := strings.TrimSpace(chunk.TranslatedText)
		if text == "" {
			text = strings.TrimSpace(chunk.Text)
		}
		if text == "" {
			continue
		}
		index++
		fmt.Fprintf(&builder, "%d\n%s --> %s\n%s\n\n",
			index,
			formatSRTTimestamp(chunk.Start),
			formatSRTTimestamp(chunk.End),
			text,
		)
	}
	if index == 0 {
		return services.Wrap(services.ErrValidation, "render", "subtitles", "No subtitle text to write", nil)
	}
	if err := os.WriteFile(path, []byte(builder.String()), 0o644); err != nil {
		return services.Wrap(services.ErrTransient, "render", "subtitles", "Failed to write subtitle file", err)
	}
	return nil
}

func formatSRTTimestamp(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	d := time.Duration(seconds * float64(time.Second))
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	secs := int(d.Seconds()) % 60
	millis := int(d.Milliseconds()) % 1000
	return fmt.Sprintf("%02d:%02d:%02d,%03d", hours, minutes, secs, millis)
}

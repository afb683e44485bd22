package render

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"autodub/internal/services"
	"autodub/internal/timeline"
)

// FitClip transforms the synthesized clip so it occupies slotDuration
// exactly, writing the result next to the input with a _fit.wav suffix.
// The boolean reports whether speech had to be truncated to make the slot.
func (r *Renderer) FitClip(ctx context.Context, clipPath string, slotDuration float64) (string, bool, error) {
	clipDuration, err := r.probe(ctx, clipPath)
	if err != nil {
		return "", false, services.Wrap(services.ErrExternalTool, "tts", "probe clip", "Failed to measure synthesized clip", err)
	}

	plan, err := timeline.PlanFit(clipDuration, slotDuration, r.cfg.Timeline.MaxCompression, r.cfg.Timeline.ToleranceSeconds)
	if err != nil {
		return "", false, services.Wrap(services.ErrValidation, "tts", "plan fit", "Cannot fit clip into slot", err)
	}

	outPath := fitOutputPath(clipPath)
	args := []string{
		"-y", "-v", "error",
		"-i", clipPath,
	}
	if filter := buildFitFilter(plan); filter != "" {
		args = append(args, "-filter:a", filter)
	}
	// -t pins the output to the slot: it applies the truncation for
	// beyond-cap plans and bounds apad's otherwise infinite padding.
	args = append(args,
		"-t", formatSeconds(slotDuration),
		"-ar", fmt.Sprintf("%d", r.cfg.Timeline.SampleRate),
		"-ac", "1",
		"-c:a", "pcm_s16le",
		outPath,
	)
	if err := r.run(ctx, r.cfg.FFmpegBinary(), args...); err != nil {
		return "", false, services.Wrap(services.ErrExternalTool, "tts", "fit clip", "Failed to fit clip into slot", err)
	}
	return outPath, plan.ImperfectFit, nil
}

// buildFitFilter renders a FitPlan as an ffmpeg audio filter chain. atempo
// only accepts factors up to 2 per instance, so larger tempos chain.
func buildFitFilter(plan timeline.FitPlan) string {
	var filters []string
	tempo := plan.Tempo
	for tempo > 2 {
		filters = append(filters, "atempo=2")
		tempo /= 2
	}
	if tempo > 1 {
		filters = append(filters, fmt.Sprintf("atempo=%s", formatSeconds(tempo)))
	}
	if plan.PadSilence > 0 {
		filters = append(filters, "apad")
	}
	return strings.Join(filters, ",")
}

func fitOutputPath(clipPath string) string {
	base := strings.TrimSuffix(clipPath, filepath.Ext(clipPath))
	return base + "_fit.wav"
}

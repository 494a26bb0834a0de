// Package vad segments a recorded WAV chunk into speech windows sized for
// transcription: short windows are merged across small silence gaps, long
// windows are split into equal sub-windows.
package vad

import (
	"context"
	"math"
	"time"
)

// Tuning constants from the segmentation contract.
const (
	MinChunkSeconds    = 3.0
	MaxChunkSeconds    = 15.0
	SilenceGapSeconds  = 0.5
)

// Range is a speech window within a WAV file, in seconds from the start.
type Range struct {
	Start time.Duration
	End   time.Duration
}

// Segmenter decides how a recorded chunk should be split before
// transcription. Segment returns an empty, non-nil slice to signal "drop
// the chunk entirely" (e.g. no speech detected).
type Segmenter interface {
	Segment(ctx context.Context, wavPath string) ([]Range, error)
}

// NoopSegmenter returns the whole file as a single range, used when VAD is
// disabled.
type NoopSegmenter struct {
	// Duration reports the length of a WAV file. Injectable for tests.
	Duration func(wavPath string) (time.Duration, error)
}

var _ Segmenter = (*NoopSegmenter)(nil)

func (n *NoopSegmenter) Segment(_ context.Context, wavPath string) ([]Range, error) {
	d, err := n.Duration(wavPath)
	if err != nil {
		return nil, err
	}
	return []Range{{Start: 0, End: d}}, nil
}

// windows are raw speech/silence spans detected by an energy-based VAD
// implementation before merge/split normalization is applied.
type window struct {
	start, end float64 // seconds
}

// normalize applies the segmentation contract to a set of raw speech
// windows, already sorted by start time: merge windows separated by less
// than silenceGapSeconds, then split any window longer than
// maxChunkSeconds into ceil(duration/max) equal parts. Windows shorter than
// minChunkSeconds are merged into their neighbor rather than dropped,
// unless they are the only window, in which case they are kept as-is.
func normalize(windows []window, minChunkSeconds, maxChunkSeconds, silenceGapSeconds float64) []Range {
	if len(windows) == 0 {
		return nil
	}

	merged := []window{windows[0]}
	for _, w := range windows[1:] {
		last := &merged[len(merged)-1]
		gap := w.start - last.end
		short := (last.end - last.start) < minChunkSeconds
		if gap < silenceGapSeconds || short {
			if w.end > last.end {
				last.end = w.end
			}
			continue
		}
		merged = append(merged, w)
	}

	// A final pass to fold any remaining too-short trailing window into its
	// predecessor, since the loop above only looks backward mid-stream.
	for i := len(merged) - 1; i > 0; i-- {
		if merged[i].end-merged[i].start < minChunkSeconds {
			if merged[i].end > merged[i-1].end {
				merged[i-1].end = merged[i].end
			}
			merged = append(merged[:i], merged[i+1:]...)
		}
	}

	var ranges []Range
	for _, w := range merged {
		duration := w.end - w.start
		if duration <= maxChunkSeconds {
			ranges = append(ranges, Range{
				Start: secondsToDuration(w.start),
				End:   secondsToDuration(w.end),
			})
			continue
		}
		parts := int(math.Ceil(duration / maxChunkSeconds))
		step := duration / float64(parts)
		for i := 0; i < parts; i++ {
			s := w.start + float64(i)*step
			e := s + step
			if i == parts-1 {
				e = w.end
			}
			ranges = append(ranges, Range{
				Start: secondsToDuration(s),
				End:   secondsToDuration(e),
			})
		}
	}
	return ranges
}

func secondsToDuration(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

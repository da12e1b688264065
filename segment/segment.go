// Package segment splits a recording into speech-bearing sample ranges
// using energy-based silence detection.
package segment

import (
	"math"
	"sort"
	"time"
)

// Segment is a half-open sample range into an audio buffer.
type Segment struct {
	Start int
	End   int
}

// Params tunes the splitter.
type Params struct {
	// MinSilence is the shortest pause treated as a cut candidate.
	MinSilence time.Duration
	// MinSegment is the shortest span a cut may produce.
	MinSegment time.Duration
	// MaxSegment caps segment length; 0 means unbounded.
	MaxSegment time.Duration
	// Padding expands each segment on both sides, clamped to the buffer.
	Padding time.Duration
	// RMSThreshold fixes the silence threshold; 0 derives one from the
	// 10th-percentile noise floor.
	RMSThreshold float64
}

// DefaultParams returns the tuning used for dictation recordings.
func DefaultParams() Params {
	return Params{
		MinSilence: 500 * time.Millisecond,
		MinSegment: time.Second,
		Padding:    150 * time.Millisecond,
	}
}

const frameDuration = 20 * time.Millisecond

// Split walks the buffer start to end, cutting at the latest qualifying
// silence midpoint before each target end. It is a pure function of its
// input: same buffer and params, same segments.
func Split(samples []float32, sampleRate int, p Params) []Segment {
	n := len(samples)
	if n == 0 {
		return nil
	}

	frameSize := max(1, int(float64(sampleRate)*frameDuration.Seconds()))
	rms := frameRMS(samples, frameSize)
	if len(rms) == 0 {
		return []Segment{{Start: 0, End: n}}
	}

	threshold := p.RMSThreshold
	if threshold <= 0 {
		threshold = math.Max(percentile(rms, 0.10)*2.5, 0.003)
	}

	silences := silenceRuns(rms, threshold, minFrames(p.MinSilence, sampleRate, frameSize))
	for i := range silences {
		silences[i].Start *= frameSize
		silences[i].End = min(silences[i].End*frameSize, n)
	}

	minSeg := max(1, int(p.MinSegment.Seconds()*float64(sampleRate)))
	maxSeg := n
	if p.MaxSegment > 0 {
		maxSeg = max(minSeg, int(p.MaxSegment.Seconds()*float64(sampleRate)))
	}
	pad := max(0, int(p.Padding.Seconds()*float64(sampleRate)))

	var segments []Segment
	start := 0
	for start < n {
		targetEnd := min(start+maxSeg, n)
		end := targetEnd
		// Latest silence midpoint in (start+minSeg, targetEnd] wins;
		// switching to earliest changes output non-trivially.
		for _, s := range silences {
			mid := (s.Start + s.End) / 2
			if mid <= start || mid-start < minSeg {
				continue
			}
			if mid > targetEnd {
				break
			}
			end = mid
		}
		if end <= start {
			end = min(start+maxSeg, n)
			if end <= start {
				break
			}
		}
		segments = append(segments, Segment{
			Start: max(0, start-pad),
			End:   min(n, end+pad),
		})
		start = end
	}
	return segments
}

func frameRMS(samples []float32, frameSize int) []float64 {
	var out []float64
	for idx := 0; idx < len(samples); idx += frameSize {
		frame := samples[idx:min(idx+frameSize, len(samples))]
		if len(frame) == 0 {
			continue
		}
		var sum float64
		for _, s := range frame {
			sum += float64(s) * float64(s)
		}
		out = append(out, math.Sqrt(sum/float64(len(frame))))
	}
	return out
}

func minFrames(d time.Duration, sampleRate, frameSize int) int {
	return max(1, int(d.Seconds()*float64(sampleRate)/float64(frameSize)))
}

// silenceRuns collapses consecutive sub-threshold frames into runs,
// keeping only runs of at least minRun frames. Ranges are in frames.
func silenceRuns(rms []float64, threshold float64, minRun int) []Segment {
	var runs []Segment
	runStart := -1
	for i, v := range rms {
		silent := v < threshold
		switch {
		case silent && runStart < 0:
			runStart = i
		case !silent && runStart >= 0:
			if i-runStart >= minRun {
				runs = append(runs, Segment{Start: runStart, End: i})
			}
			runStart = -1
		}
	}
	if runStart >= 0 && len(rms)-runStart >= minRun {
		runs = append(runs, Segment{Start: runStart, End: len(rms)})
	}
	return runs
}

// percentile computes a linearly interpolated percentile, q in [0, 1].
func percentile(values []float64, q float64) float64 {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	if len(sorted) == 1 {
		return sorted[0]
	}
	rank := q * float64(len(sorted)-1)
	lo := int(rank)
	if lo >= len(sorted)-1 {
		return sorted[len(sorted)-1]
	}
	frac := rank - float64(lo)
	return sorted[lo] + frac*(sorted[lo+1]-sorted[lo])
}

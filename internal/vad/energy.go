package vad

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"time"
)

// EnergySegmenter implements Segmenter with a simple RMS-energy threshold
// over a mono 16-bit PCM WAV file: frames above Threshold are speech,
// consecutive speech frames form a raw window, and the result is then
// merged/split per the segmentation contract via normalize.
//
// This stands in for a model-based VAD (no pure-Go Silero binding is
// available); it is deliberately simple and tuned for a ceiling-mic meeting
// room, not for noisy environments.
type EnergySegmenter struct {
	// Threshold is the minimum RMS amplitude (0..32767 range) for a frame
	// to be considered speech. Zero selects a sane default.
	Threshold float64
	// FrameDuration is the analysis frame size. Zero selects 20ms.
	FrameDuration time.Duration
}

var _ Segmenter = (*EnergySegmenter)(nil)

const defaultEnergyThreshold = 400.0
const defaultFrameDuration = 20 * time.Millisecond

func (e *EnergySegmenter) Segment(_ context.Context, wavPath string) ([]Range, error) {
	samples, sampleRate, err := readMonoPCM16(wavPath)
	if err != nil {
		return nil, err
	}
	if len(samples) == 0 {
		return []Range{}, nil
	}

	threshold := e.Threshold
	if threshold <= 0 {
		threshold = defaultEnergyThreshold
	}
	frameDuration := e.FrameDuration
	if frameDuration <= 0 {
		frameDuration = defaultFrameDuration
	}
	frameSize := int(frameDuration.Seconds() * float64(sampleRate))
	if frameSize <= 0 {
		frameSize = 1
	}

	var windows []window
	var cur *window
	for start := 0; start < len(samples); start += frameSize {
		end := start + frameSize
		if end > len(samples) {
			end = len(samples)
		}
		rms := rmsAmplitude(samples[start:end])
		frameStart := float64(start) / float64(sampleRate)
		frameEnd := float64(end) / float64(sampleRate)

		if rms >= threshold {
			if cur == nil {
				windows = append(windows, window{start: frameStart, end: frameEnd})
				cur = &windows[len(windows)-1]
			} else {
				cur.end = frameEnd
			}
		} else {
			cur = nil
		}
	}

	if len(windows) == 0 {
		return []Range{}, nil
	}
	return normalize(windows, MinChunkSeconds, MaxChunkSeconds, SilenceGapSeconds), nil
}

func rmsAmplitude(samples []int16) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sumSq float64
	for _, s := range samples {
		v := float64(s)
		sumSq += v * v
	}
	mean := sumSq / float64(len(samples))
	if mean <= 0 {
		return 0
	}
	return math.Sqrt(mean)
}

// readMonoPCM16 parses a canonical RIFF/WAVE file with a single "data"
// chunk of 16-bit PCM samples and returns the samples plus the sample
// rate. Multi-channel data is downmixed to mono (capture always records
// mono); only the basic PCM fields of the fmt chunk are read.
func readMonoPCM16(path string) ([]int16, int, error) {
	f, err := os.Open(path) // #nosec G304 -- path is produced by our own capture stage
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()

	var riffHeader [12]byte
	if _, err := f.Read(riffHeader[:]); err != nil {
		return nil, 0, fmt.Errorf("read riff header: %w", err)
	}
	if string(riffHeader[0:4]) != "RIFF" || string(riffHeader[8:12]) != "WAVE" {
		return nil, 0, fmt.Errorf("not a WAVE file: %s", path)
	}

	var sampleRate int
	var bitsPerSample uint16
	var numChannels uint16

	for {
		var chunkHeader [8]byte
		n, err := f.Read(chunkHeader[:])
		if n < 8 || err != nil {
			return nil, 0, fmt.Errorf("unexpected end of WAVE chunks in %s", path)
		}
		chunkID := string(chunkHeader[0:4])
		chunkSize := binary.LittleEndian.Uint32(chunkHeader[4:8])

		if chunkID == "fmt " {
			body := make([]byte, chunkSize)
			if _, err := f.Read(body); err != nil {
				return nil, 0, fmt.Errorf("read fmt chunk: %w", err)
			}
			numChannels = binary.LittleEndian.Uint16(body[2:4])
			sampleRate = int(binary.LittleEndian.Uint32(body[4:8]))
			bitsPerSample = binary.LittleEndian.Uint16(body[14:16])
			continue
		}
		if chunkID == "data" {
			raw := make([]byte, chunkSize)
			if _, err := f.Read(raw); err != nil {
				return nil, 0, fmt.Errorf("read data chunk: %w", err)
			}
			if bitsPerSample != 16 {
				return nil, 0, fmt.Errorf("unsupported bits per sample %d in %s", bitsPerSample, path)
			}
			samples := make([]int16, len(raw)/2)
			for i := range samples {
				samples[i] = int16(binary.LittleEndian.Uint16(raw[i*2 : i*2+2])) // #nosec G115 -- two's complement reinterpretation is intended
			}
			if numChannels > 1 {
				samples = downmixToMono(samples, int(numChannels))
			}
			return samples, sampleRate, nil
		}

		// Skip any other chunk (e.g. LIST), padded to an even size.
		skip := int64(chunkSize)
		if chunkSize%2 == 1 {
			skip++
		}
		if _, err := f.Seek(skip, 1); err != nil {
			return nil, 0, fmt.Errorf("seek past chunk %s: %w", chunkID, err)
		}
	}
}

func downmixToMono(samples []int16, channels int) []int16 {
	mono := make([]int16, len(samples)/channels)
	for i := range mono {
		var sum int32
		for c := 0; c < channels; c++ {
			sum += int32(samples[i*channels+c])
		}
		mono[i] = int16(sum / int32(channels))
	}
	return mono
}

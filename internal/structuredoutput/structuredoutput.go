// Package structuredoutput batches translation records in memory and
// periodically rewrites a JSON transcript and an SRT subtitle file.
package structuredoutput

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/meetloop/meetloop/internal/format"
)

const flushInterval = 30 * time.Second

// lastCueTail is the duration given to the final subtitle cue, which has
// no following entry to derive an end time from.
const lastCueTail = 10 * time.Second

// Record is one transcribed (and possibly translated) utterance.
type Record struct {
	Timestamp      time.Time
	RelativeSeconds float64
	Text           string
	Translation    string
}

type jsonRecord struct {
	Timestamp       string  `json:"timestamp"`
	RelativeSeconds float64 `json:"relative_seconds"`
	Text            string  `json:"text"`
	Translation     string  `json:"translation"`
}

type jsonDocument struct {
	MeetingStart string       `json:"meeting_start"`
	Records      []jsonRecord `json:"records"`
}

// Sink holds the in-memory record log and flushes it to outputDir on a
// dirty-flag + time-interval basis.
type Sink struct {
	mu sync.Mutex

	outputDir    string
	meetingStart time.Time
	records      []Record
	dirty        bool
	lastFlush    time.Time

	now func() time.Time
}

// Option configures a Sink.
type Option func(*Sink)

// WithClock overrides the time source (for testing).
func WithClock(now func() time.Time) Option {
	return func(s *Sink) { s.now = now }
}

// New creates a Sink rooted at outputDir, with meetingStart recorded as
// the JSON document's meeting_start field.
func New(outputDir string, meetingStart time.Time, opts ...Option) *Sink {
	s := &Sink{
		outputDir:    outputDir,
		meetingStart: meetingStart,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.lastFlush = s.now()
	return s
}

// Append adds a record and flushes if at least flushInterval has elapsed
// since the last flush.
func (s *Sink) Append(r Record) error {
	s.mu.Lock()
	s.records = append(s.records, r)
	s.dirty = true
	due := s.now().Sub(s.lastFlush) >= flushInterval
	s.mu.Unlock()

	if due {
		return s.Flush()
	}
	return nil
}

// Flush rewrites the JSON transcript and SRT subtitle files if there are
// unflushed changes. Safe to call unconditionally (e.g. on shutdown).
func (s *Sink) Flush() error {
	s.mu.Lock()
	if !s.dirty {
		s.mu.Unlock()
		return nil
	}
	records := make([]Record, len(s.records))
	copy(records, s.records)
	meetingStart := s.meetingStart
	s.dirty = false
	s.lastFlush = s.now()
	s.mu.Unlock()

	if err := writeJSON(filepath.Join(s.outputDir, "transcript.json"), meetingStart, records); err != nil {
		return fmt.Errorf("write transcript.json: %w", err)
	}
	if err := writeSRT(filepath.Join(s.outputDir, "transcript.srt"), records); err != nil {
		return fmt.Errorf("write transcript.srt: %w", err)
	}
	return nil
}

func writeJSON(path string, meetingStart time.Time, records []Record) error {
	doc := jsonDocument{
		MeetingStart: meetingStart.Format(time.RFC3339),
		Records:      make([]jsonRecord, len(records)),
	}
	for i, r := range records {
		doc.Records[i] = jsonRecord{
			Timestamp:       r.Timestamp.Format(time.RFC3339),
			RelativeSeconds: r.RelativeSeconds,
			Text:            r.Text,
			Translation:     r.Translation,
		}
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644) // #nosec G306 -- transcript output, not secret
}

func writeSRT(path string, records []Record) error {
	var buf []byte
	for i, r := range records {
		start := time.Duration(r.RelativeSeconds * float64(time.Second))
		var end time.Duration
		if i+1 < len(records) {
			end = time.Duration(records[i+1].RelativeSeconds * float64(time.Second))
		} else {
			end = start + lastCueTail
		}

		text := r.Translation
		if text == "" {
			text = r.Text
		}

		buf = append(buf, []byte(fmt.Sprintf(
			"%d\n%s --> %s\n%s\n\n",
			i+1, srtTimestamp(start), srtTimestamp(end), text,
		))...)
	}
	return os.WriteFile(path, buf, 0644) // #nosec G306 -- transcript output, not secret
}

// srtTimestamp formats a duration as HH:MM:SS,mmm, building on
// internal/format.Duration for the HH:MM:SS portion.
func srtTimestamp(d time.Duration) string {
	base := format.Duration(d)
	if len(base) == 5 { // MM:SS, no hour component
		base = "00:" + base
	}
	ms := int(d.Milliseconds()) % 1000
	return fmt.Sprintf("%s,%03d", base, ms)
}

// Package meeting defines the persistent meeting record produced by capture
// sessions and the stores that hold one durable record per meeting.
package meeting

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle phase of a meeting. Transitions are monotonic:
// recording → processing → completed, never backwards.
type Status string

const (
	StatusRecording  Status = "recording"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
)

var statusRank = map[Status]int{
	StatusRecording:  0,
	StatusProcessing: 1,
	StatusCompleted:  2,
}

// Segment is one transcribed span of a meeting. Offset is seconds from the
// session start. Speaker fields stay empty when identity resolution misses.
type Segment struct {
	ID          string  `json:"id"`
	Offset      float64 `json:"offset"`
	Text        string  `json:"text"`
	SpeakerID   string  `json:"speaker_id,omitempty"`
	SpeakerName string  `json:"speaker_name,omitempty"`
	Final       bool    `json:"final"`
}

// Meeting is one captured session with its ordered segments.
type Meeting struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	StartedAt    time.Time `json:"started_at"`
	Duration     float64   `json:"duration"`
	Status       Status    `json:"status"`
	Segments     []Segment `json:"segments"`
	Participants []string  `json:"participants,omitempty"`

	// Summary and ActionItems are filled in by an external post-processing
	// step, never by the capture pipeline.
	Summary     string   `json:"summary,omitempty"`
	ActionItems []string `json:"action_items,omitempty"`
}

// New creates a meeting in the recording state.
func New(title string) *Meeting {
	return &Meeting{
		ID:        uuid.NewString(),
		Title:     title,
		StartedAt: time.Now(),
		Status:    StatusRecording,
	}
}

// SetStatus advances the meeting status. Reverse transitions are rejected.
func (m *Meeting) SetStatus(s Status) error {
	to, ok := statusRank[s]
	if !ok {
		return fmt.Errorf("meeting: unknown status %q", s)
	}
	if to < statusRank[m.Status] {
		return fmt.Errorf("meeting: status cannot move back from %q to %q", m.Status, s)
	}
	m.Status = s
	return nil
}

// AppendSegment adds a segment, enforcing non-decreasing offsets.
func (m *Meeting) AppendSegment(seg Segment) error {
	if seg.Offset < 0 {
		return fmt.Errorf("meeting: negative segment offset %v", seg.Offset)
	}
	if n := len(m.Segments); n > 0 && seg.Offset < m.Segments[n-1].Offset {
		return fmt.Errorf("meeting: segment offset %v precedes last offset %v",
			seg.Offset, m.Segments[n-1].Offset)
	}
	if seg.ID == "" {
		seg.ID = uuid.NewString()
	}
	m.Segments = append(m.Segments, seg)
	return nil
}

// Finalize records the total duration, marks every segment final and clamps
// segment offsets into [0, duration], then completes the meeting.
func (m *Meeting) Finalize(duration float64) error {
	if duration < 0 {
		duration = 0
	}
	m.Duration = duration
	for i := range m.Segments {
		if m.Segments[i].Offset > duration {
			m.Segments[i].Offset = duration
		}
		m.Segments[i].Final = true
	}
	return m.SetStatus(StatusCompleted)
}

package meeting_test

import (
	"testing"

	"github.com/sonoscribe/sonoscribe/pkg/meeting"
)

func TestStatusMonotonic(t *testing.T) {
	m := meeting.New("standup")
	if m.Status != meeting.StatusRecording {
		t.Fatalf("initial status = %q, want recording", m.Status)
	}
	if err := m.SetStatus(meeting.StatusProcessing); err != nil {
		t.Fatalf("recording→processing: %v", err)
	}
	if err := m.SetStatus(meeting.StatusCompleted); err != nil {
		t.Fatalf("processing→completed: %v", err)
	}
	if err := m.SetStatus(meeting.StatusRecording); err == nil {
		t.Fatal("completed→recording accepted, want rejection")
	}
	if m.Status != meeting.StatusCompleted {
		t.Fatalf("status changed on rejected transition: %q", m.Status)
	}
}

func TestAppendSegmentOrdering(t *testing.T) {
	m := meeting.New("sync")
	if err := m.AppendSegment(meeting.Segment{Offset: 1.5, Text: "a"}); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := m.AppendSegment(meeting.Segment{Offset: 1.5, Text: "b"}); err != nil {
		t.Fatalf("append equal offset: %v", err)
	}
	if err := m.AppendSegment(meeting.Segment{Offset: 0.5, Text: "c"}); err == nil {
		t.Fatal("out-of-order append accepted")
	}
	if err := m.AppendSegment(meeting.Segment{Offset: -1, Text: "d"}); err == nil {
		t.Fatal("negative offset accepted")
	}
	if len(m.Segments) != 2 {
		t.Fatalf("segments = %d, want 2", len(m.Segments))
	}
	if m.Segments[0].ID == "" {
		t.Fatal("segment id not assigned")
	}
}

func TestFinalize(t *testing.T) {
	m := meeting.New("review")
	m.AppendSegment(meeting.Segment{Offset: 2, Text: "a"})
	m.AppendSegment(meeting.Segment{Offset: 9, Text: "b"})

	if err := m.Finalize(5); err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if m.Status != meeting.StatusCompleted {
		t.Fatalf("status = %q, want completed", m.Status)
	}
	for _, seg := range m.Segments {
		if !seg.Final {
			t.Fatal("segment not marked final")
		}
		if seg.Offset > m.Duration {
			t.Fatalf("offset %v exceeds duration %v", seg.Offset, m.Duration)
		}
	}
}

// Package session owns the dictation state machine. A single coordinator
// goroutine serializes hotkey events, capture lifecycle, and pipeline
// completions; everything else talks to it through commands and the event
// bus, so no state is shared across goroutines.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/sonoscribe/sonoscribe/pkg/audio"
	"github.com/sonoscribe/sonoscribe/pkg/audio/resampler"
	"github.com/sonoscribe/sonoscribe/pkg/config"
	"github.com/sonoscribe/sonoscribe/pkg/engine"
	"github.com/sonoscribe/sonoscribe/pkg/hotkey"
	"github.com/sonoscribe/sonoscribe/pkg/meeting"
	"github.com/sonoscribe/sonoscribe/pkg/voiceprint"
)

// State is the coordinator's lifecycle state.
type State int32

const (
	StateIdle State = iota
	StateRecording
	StateProcessing
	StateError
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRecording:
		return "recording"
	case StateProcessing:
		return "processing"
	case StateError:
		return "error"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Capture is an open microphone session.
type Capture interface {
	Stop() ([]float32, resampler.Format, error)
	Abort()
}

// CaptureOpener starts a capture session. onLevel receives amplitude
// levels from the audio callback and must not block.
type CaptureOpener func(onLevel func(float32)) (Capture, error)

// Inserter places finished text at the focus point.
type Inserter interface {
	Deliver(text string) error
}

// Deps wires the coordinator's collaborators explicitly.
type Deps struct {
	Config      *config.Config
	Open        CaptureOpener
	Transcriber engine.Transcriber
	Diarizer    engine.Diarizer // nil disables speaker attribution
	Registry    *voiceprint.Registry
	Inserter    Inserter
	Meetings    meeting.Store // nil disables history
	Bus         *Bus
	Logger      *slog.Logger
}

type cmdKind int

const (
	cmdHotkey cmdKind = iota
	cmdCancel
	cmdDone
)

type command struct {
	kind   cmdKind
	hk     hotkey.Event
	gen    uint64
	result *pipelineResult
}

type pipelineResult struct {
	text      string
	meetingID string
	err       error
}

// Coordinator runs the dictation session state machine.
type Coordinator struct {
	deps Deps
	mode hotkey.Mode
	log  *slog.Logger

	cmds  chan command
	state atomic.Int32
	gen   uint64 // incremented to orphan in-flight pipelines

	capture Capture
	started time.Time
	abandon context.CancelFunc // cancels the in-flight pipeline
}

// New builds a coordinator. The hotkey mode is fixed from the config at
// construction time.
func New(deps Deps) (*Coordinator, error) {
	if deps.Config == nil || deps.Open == nil || deps.Transcriber == nil || deps.Inserter == nil {
		return nil, errors.New("session: missing required dependency")
	}
	mode, err := hotkey.ParseMode(deps.Config.Hotkey.Mode)
	if err != nil {
		return nil, err
	}
	if deps.Bus == nil {
		deps.Bus = NewBus()
	}
	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Coordinator{
		deps: deps,
		mode: mode,
		log:  log.With("component", "session"),
		cmds: make(chan command, 16),
	}, nil
}

// State returns the current state. Safe from any goroutine.
func (c *Coordinator) State() State {
	return State(c.state.Load())
}

// Bus returns the coordinator's event bus.
func (c *Coordinator) Bus() *Bus {
	return c.deps.Bus
}

// HandleHotkey feeds a hotkey edge into the state machine.
func (c *Coordinator) HandleHotkey(ev hotkey.Event) {
	c.cmds <- command{kind: cmdHotkey, hk: ev}
}

// Cancel aborts whatever is in flight and returns to idle. A pipeline
// already running is abandoned, not awaited; its result is discarded.
func (c *Coordinator) Cancel() {
	c.cmds <- command{kind: cmdCancel}
}

// Run processes commands until ctx is done. It owns all mutable state.
func (c *Coordinator) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			if c.State() == StateRecording && c.capture != nil {
				c.capture.Abort()
			}
			return
		case cmd := <-c.cmds:
			switch cmd.kind {
			case cmdHotkey:
				c.onHotkey(ctx, cmd.hk)
			case cmdCancel:
				c.onCancel()
			case cmdDone:
				c.onDone(cmd)
			}
		}
	}
}

func (c *Coordinator) setState(to State) {
	from := c.State()
	if from == to {
		return
	}
	c.state.Store(int32(to))
	c.log.Info("state", "from", from.String(), "to", to.String())
	c.deps.Bus.Publish(StateEvent{From: from, To: to})
}

func (c *Coordinator) onHotkey(ctx context.Context, ev hotkey.Event) {
	switch c.mode {
	case hotkey.ModePushToTalk:
		if ev.Type == hotkey.Press {
			c.startRecording()
		} else if c.State() == StateRecording {
			c.stopAndProcess(ctx)
		}
	case hotkey.ModeToggle:
		if ev.Type != hotkey.Press {
			return
		}
		if c.State() == StateRecording {
			c.stopAndProcess(ctx)
		} else {
			c.startRecording()
		}
	}
}

func (c *Coordinator) startRecording() {
	if s := c.State(); s != StateIdle {
		c.log.Warn("start rejected", "state", s.String())
		return
	}
	sess, err := c.deps.Open(func(level float32) {
		c.deps.Bus.Publish(LevelEvent{Level: level})
	})
	if err != nil {
		c.fail(fmt.Errorf("open capture: %w", err))
		return
	}
	c.capture = sess
	c.started = time.Now()
	c.setState(StateRecording)
}

func (c *Coordinator) stopAndProcess(ctx context.Context) {
	sess := c.capture
	c.capture = nil
	samples, srcFmt, err := sess.Stop()
	if err != nil {
		c.fail(fmt.Errorf("stop capture: %w", err))
		return
	}
	duration := time.Since(c.started)
	c.setState(StateProcessing)
	gen := c.gen
	pctx, cancel := context.WithCancel(ctx)
	c.abandon = cancel
	go func() {
		res := c.process(pctx, samples, srcFmt, duration)
		select {
		case c.cmds <- command{kind: cmdDone, gen: gen, result: res}:
		case <-pctx.Done():
			// Run has stopped or the session was cancelled; nobody is
			// waiting for this result.
		}
	}()
}

func (c *Coordinator) onCancel() {
	switch c.State() {
	case StateRecording:
		if c.capture != nil {
			c.capture.Abort()
			c.capture = nil
		}
		c.log.Info("recording cancelled")
	case StateProcessing:
		c.gen++ // orphan the in-flight pipeline
		if c.abandon != nil {
			c.abandon()
			c.abandon = nil
		}
		c.log.Info("processing cancelled")
	default:
		return
	}
	c.setState(StateIdle)
}

func (c *Coordinator) onDone(cmd command) {
	if cmd.gen != c.gen {
		c.log.Debug("stale pipeline result dropped")
		return
	}
	if c.abandon != nil {
		c.abandon()
		c.abandon = nil
	}
	if cmd.result.err != nil {
		c.fail(cmd.result.err)
		return
	}
	if cmd.result.text != "" {
		c.deps.Bus.Publish(DeliveredEvent{Text: cmd.result.text})
	}
	if cmd.result.meetingID != "" {
		c.deps.Bus.Publish(SavedEvent{MeetingID: cmd.result.meetingID})
	}
	c.setState(StateIdle)
}

func (c *Coordinator) fail(err error) {
	c.log.Error("session failed", "error", err)
	c.setState(StateError)
	c.deps.Bus.Publish(ErrorEvent{Err: err})
	c.setState(StateIdle)
}

// process runs the capture-to-delivery pipeline. It touches no coordinator
// state; the result is posted back to the Run loop.
func (c *Coordinator) process(ctx context.Context, samples []float32, srcFmt resampler.Format, duration time.Duration) *pipelineResult {
	norm, err := resampler.Normalize(samples, srcFmt)
	if err != nil {
		return &pipelineResult{err: fmt.Errorf("normalize: %w", err)}
	}
	if dir := c.deps.Config.DebugAudioDir; dir != "" {
		c.dumpDebugAudio(dir, norm)
	}

	if !c.deps.Transcriber.Ready() {
		return &pipelineResult{err: engine.ErrTranscriberNotReady}
	}
	text, err := c.deps.Transcriber.Transcribe(ctx, norm)
	if err != nil {
		return &pipelineResult{err: fmt.Errorf("transcribe: %w", err)}
	}
	text = strings.TrimSpace(text)

	var diar *engine.DiarizationResult
	if c.deps.Diarizer != nil && c.deps.Config.Diarization {
		if !c.deps.Diarizer.Ready() {
			return &pipelineResult{err: engine.ErrModelsNotLoaded}
		}
		known := map[string][]float32{}
		if c.deps.Registry != nil {
			known = c.deps.Registry.Embeddings()
		}
		if err := c.deps.Diarizer.LoadSpeakers(ctx, known); err != nil {
			return &pipelineResult{err: fmt.Errorf("load speakers: %w", err)}
		}
		diar, err = c.deps.Diarizer.Diarize(ctx, norm)
		if err != nil {
			return &pipelineResult{err: fmt.Errorf("diarize: %w", err)}
		}
	}

	// A cancelled session must not reach the focus point or the store.
	if err := ctx.Err(); err != nil {
		return &pipelineResult{err: err}
	}

	speakerID, speakerName := c.resolveSpeaker(diar)

	delivered := text
	if speakerName != "" {
		delivered = speakerName + ": " + text
	}
	if delivered != "" {
		if err := c.deps.Inserter.Deliver(delivered); err != nil {
			// Insertion has its own escalation path; the record still persists.
			c.log.Warn("delivery failed", "error", err)
		}
	}

	res := &pipelineResult{text: delivered}
	if c.deps.Meetings != nil && c.deps.Config.HistoryEnabled {
		m := meeting.New("Dictation " + time.Now().Format("2006-01-02 15:04"))
		if err := m.SetStatus(meeting.StatusProcessing); err != nil {
			return &pipelineResult{err: err}
		}
		if text != "" {
			seg := meeting.Segment{Offset: 0, Text: text, SpeakerID: speakerID, SpeakerName: speakerName}
			if err := m.AppendSegment(seg); err != nil {
				return &pipelineResult{err: fmt.Errorf("append segment: %w", err)}
			}
		}
		if speakerID != "" {
			m.Participants = []string{speakerID}
		}
		if err := m.Finalize(duration.Seconds()); err != nil {
			return &pipelineResult{err: err}
		}
		if err := c.deps.Meetings.Save(ctx, m); err != nil {
			return &pipelineResult{err: fmt.Errorf("save meeting: %w", err)}
		}
		res.meetingID = m.ID
	}
	return res
}

// resolveSpeaker maps the first diarized speaker onto an enrolled profile
// by direct id lookup. Unknown speakers stay anonymous.
func (c *Coordinator) resolveSpeaker(diar *engine.DiarizationResult) (id, name string) {
	if diar == nil || len(diar.Segments) == 0 || c.deps.Registry == nil {
		return "", ""
	}
	ids := make([]string, 0, len(diar.Segments))
	for _, seg := range diar.Segments {
		if seg.SpeakerID != "" {
			ids = append(ids, seg.SpeakerID)
		}
	}
	sort.Strings(ids)
	for _, sid := range ids {
		if p, ok := c.deps.Registry.Get(sid); ok {
			return p.ID, p.Name
		}
	}
	return "", ""
}

func (c *Coordinator) dumpDebugAudio(dir string, samples []float32) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		c.log.Warn("debug audio dir", "error", err)
		return
	}
	path := filepath.Join(dir, time.Now().Format("20060102-150405")+".wav")
	if err := audio.WriteWAV(path, samples, audio.SampleRate); err != nil {
		c.log.Warn("debug audio dump", "error", err)
		return
	}
	c.log.Debug("debug audio written", "path", path)
}

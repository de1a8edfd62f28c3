package capture

// LevelMeter accumulates samples into fixed-size chunks and reports the peak
// absolute amplitude of each chunk, driving real-time level displays.
type LevelMeter struct {
	chunk   int
	pending int
	peak    float32
	emit    func(float32)
}

// NewLevelMeter creates a meter that calls emit with the peak of every chunk
// samples. A nil emit disables the meter.
func NewLevelMeter(chunk int, emit func(float32)) *LevelMeter {
	if chunk < 1 {
		chunk = 1
	}
	return &LevelMeter{chunk: chunk, emit: emit}
}

// Feed consumes samples, emitting once per completed chunk. A trailing
// partial chunk stays pending until the next call fills it.
func (m *LevelMeter) Feed(samples []float32) {
	if m.emit == nil {
		return
	}
	for _, s := range samples {
		if s < 0 {
			s = -s
		}
		if s > m.peak {
			m.peak = s
		}
		m.pending++
		if m.pending >= m.chunk {
			m.emit(m.peak)
			m.pending = 0
			m.peak = 0
		}
	}
}

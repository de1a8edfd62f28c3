package resampler

// Format describes the layout of source audio handed to the normalizer.
// Samples are always 32-bit floats; stereo sources are interleaved L/R.
type Format struct {
	// SampleRate is the source sample rate in Hz (e.g., 44100, 48000).
	SampleRate int

	// Stereo indicates stereo (2 channels) if true, mono (1 channel) if false.
	Stereo bool
}

func (f Format) channels() int {
	if f.Stereo {
		return 2
	}
	return 1
}

// Frames returns the number of frames represented by n interleaved samples.
func (f Format) Frames(n int) int {
	return n / f.channels()
}

// Package resampler normalizes captured audio into the canonical engine
// format: mono, 16kHz, 32-bit float PCM.
//
// It supports:
//   - Sample rate conversion (e.g., 48000Hz to 16000Hz)
//   - Stereo to mono downmix
//   - Streaming conversion from a chunked source
//
// Conversion is all-or-nothing: a failure mid-stream discards any partial
// output so downstream consumers never see a truncated buffer.
//
// Example usage:
//
//	src := resampler.Format{SampleRate: 48000, Stereo: true}
//	out, err := resampler.Normalize(samples, src)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	// out is mono float32 at audio.SampleRate
package resampler

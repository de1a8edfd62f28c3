package resampler

import (
	"errors"
	"fmt"
	"io"
	"math"

	resampling "github.com/tphakala/go-audio-resampling"

	"github.com/sonoscribe/sonoscribe/pkg/audio"
)

// ErrConversionFailed is returned when format negotiation fails or the
// source errors mid-stream. Partial output is never delivered.
var ErrConversionFailed = errors.New("resampler: conversion failed")

const (
	// chunkFrames is the number of frames pulled from the source per step.
	chunkFrames = 1024

	// guardFrames is the extra headroom added to the computed target frame
	// count when sizing the output buffer.
	guardFrames = 256

	// drainChunks bounds the zero-fed drain loop that flushes the
	// converter's internal latency after the source is exhausted.
	drainChunks = 64
)

// Source yields successive chunks of interleaved float32 samples in the
// source format. It returns io.EOF when the stream is exhausted; the chunk
// returned alongside io.EOF is processed.
type Source func() ([]float32, error)

// SliceSource returns a Source that walks samples in fixed-size chunks.
func SliceSource(samples []float32, f Format) Source {
	step := chunkFrames * f.channels()
	pos := 0
	return func() ([]float32, error) {
		if pos >= len(samples) {
			return nil, io.EOF
		}
		end := pos + step
		if end > len(samples) {
			end = len(samples)
		}
		chunk := samples[pos:end]
		pos = end
		if pos >= len(samples) {
			return chunk, io.EOF
		}
		return chunk, nil
	}
}

// Normalize converts interleaved samples in the source format to canonical
// mono float32 at [audio.SampleRate]. See Convert for failure semantics.
func Normalize(samples []float32, src Format) ([]float32, error) {
	return Convert(SliceSource(samples, src), src, src.Frames(len(samples)))
}

// Convert pulls chunks from next until the end-of-stream sentinel, feeding
// them through a rate converter into a single output buffer sized to
//
//	ceil(srcFrames × targetRate / srcRate) + guard
//
// frames. A source error or converter failure discards all partial output
// and returns an error wrapping ErrConversionFailed.
func Convert(next Source, src Format, srcFrames int) ([]float32, error) {
	if src.SampleRate <= 0 {
		return nil, fmt.Errorf("%w: invalid source rate %d", ErrConversionFailed, src.SampleRate)
	}

	target := int(math.Ceil(float64(srcFrames) * float64(audio.SampleRate) / float64(src.SampleRate)))

	if src.SampleRate == audio.SampleRate {
		out := make([]float32, 0, target+guardFrames)
		for {
			chunk, err := next()
			out = append(out, downmix(chunk, src)...)
			if err == io.EOF {
				return out, nil
			}
			if err != nil {
				return nil, fmt.Errorf("%w: read source: %v", ErrConversionFailed, err)
			}
		}
	}

	rs, err := resampling.New(&resampling.Config{
		InputRate:  float64(src.SampleRate),
		OutputRate: float64(audio.SampleRate),
		Channels:   1,
		Quality:    resampling.QualitySpec{Preset: resampling.QualityHigh},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: create converter: %v", ErrConversionFailed, err)
	}

	out := make([]float32, 0, target+guardFrames)
	in := make([]float64, 0, chunkFrames)
	for {
		chunk, srcErr := next()
		if srcErr != nil && srcErr != io.EOF {
			return nil, fmt.Errorf("%w: read source: %v", ErrConversionFailed, srcErr)
		}

		mono := downmix(chunk, src)
		in = in[:0]
		for _, s := range mono {
			in = append(in, float64(s))
		}
		if len(in) > 0 {
			got, err := rs.Process(in)
			if err != nil {
				return nil, fmt.Errorf("%w: process: %v", ErrConversionFailed, err)
			}
			out = appendSamples(out, got)
		}

		if srcErr == io.EOF {
			break
		}
	}

	// Flush the converter's internal latency with silence until the target
	// frame count is reached.
	zeros := make([]float64, chunkFrames)
	for i := 0; i < drainChunks && len(out) < target; i++ {
		got, err := rs.Process(zeros)
		if err != nil {
			return nil, fmt.Errorf("%w: drain: %v", ErrConversionFailed, err)
		}
		if len(got) == 0 {
			break
		}
		out = appendSamples(out, got)
	}
	if len(out) > target {
		out = out[:target]
	}
	return out, nil
}

func appendSamples(dst []float32, src []float64) []float32 {
	for _, s := range src {
		dst = append(dst, float32(s))
	}
	return dst
}

// downmix averages L/R pairs for stereo sources; mono passes through.
func downmix(chunk []float32, f Format) []float32 {
	if !f.Stereo {
		return chunk
	}
	mono := make([]float32, len(chunk)/2)
	for i := range mono {
		mono[i] = (chunk[i*2] + chunk[i*2+1]) / 2
	}
	return mono
}

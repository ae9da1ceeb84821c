// Package wavcheck inspects WAV files written by the transcoder and checks
// them against the target format. It also writes small PCM test signals
// for the self-check.
package wavcheck

import (
	"errors"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// WAV format tags accepted as integer PCM.
const (
	formatPCM        = 1
	formatExtensible = 0xFFFE
)

var (
	// ErrInvalidWAV is returned when the file is not a readable RIFF/WAVE file.
	ErrInvalidWAV = errors.New("not a valid WAV file")
	// ErrFormatMismatch is returned when a valid WAV has the wrong layout.
	ErrFormatMismatch = errors.New("WAV format mismatch")
)

// Target is the PCM layout an output must have.
type Target struct {
	Channels   int
	SampleRate int
	BitDepth   int
}

func (t Target) String() string {
	return fmt.Sprintf("%dch %d Hz %d-bit", t.Channels, t.SampleRate, t.BitDepth)
}

// Info describes an inspected WAV file.
type Info struct {
	Channels   int
	SampleRate int
	BitDepth   int
	Format     int
	PCMBytes   int64
	Duration   time.Duration
}

// Inspect reads the header of the WAV file at path and locates its data
// chunk.
func Inspect(path string) (Info, error) {
	f, err := os.Open(path)
	if err != nil {
		return Info{}, err
	}
	defer f.Close()

	d := wav.NewDecoder(f)
	if !d.IsValidFile() {
		return Info{}, fmt.Errorf("%w: %s", ErrInvalidWAV, path)
	}
	d.ReadInfo()
	if err := d.Err(); err != nil {
		return Info{}, fmt.Errorf("%w: %s: %v", ErrInvalidWAV, path, err)
	}
	if err := d.FwdToPCM(); err != nil {
		return Info{}, fmt.Errorf("%w: %s: %v", ErrInvalidWAV, path, err)
	}

	info := Info{
		Channels:   int(d.NumChans),
		SampleRate: int(d.SampleRate),
		BitDepth:   int(d.BitDepth),
		Format:     int(d.WavAudioFormat),
		PCMBytes:   d.PCMLen(),
	}
	if frame := int64(info.Channels) * int64(info.BitDepth/8) * int64(info.SampleRate); frame > 0 {
		info.Duration = time.Duration(info.PCMBytes * int64(time.Second) / frame)
	}
	return info, nil
}

// Verify inspects path and checks it is integer PCM in the want layout.
func Verify(path string, want Target) (Info, error) {
	info, err := Inspect(path)
	if err != nil {
		return info, err
	}
	if info.Format != formatPCM && info.Format != formatExtensible {
		return info, fmt.Errorf("%w: %s: audio format %d is not PCM", ErrFormatMismatch, path, info.Format)
	}
	got := Target{Channels: info.Channels, SampleRate: info.SampleRate, BitDepth: info.BitDepth}
	if got != want {
		return info, fmt.Errorf("%w: %s: got %s, want %s", ErrFormatMismatch, path, got, want)
	}
	return info, nil
}

// WriteSine writes a 16-bit PCM WAV at path holding a 440 Hz tone of the
// given length, duplicated across channels.
func WriteSine(path string, channels, sampleRate int, length time.Duration) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}

	frames := int(int64(sampleRate) * int64(length) / int64(time.Second))
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: channels, SampleRate: sampleRate},
		Data:           make([]int, frames*channels),
		SourceBitDepth: 16,
	}
	for i := 0; i < frames; i++ {
		v := int(math.Sin(2*math.Pi*440*float64(i)/float64(sampleRate)) * 0.5 * math.MaxInt16)
		for c := 0; c < channels; c++ {
			buf.Data[i*channels+c] = v
		}
	}

	enc := wav.NewEncoder(f, sampleRate, 16, channels, formatPCM)
	if err := enc.Write(buf); err != nil {
		_ = f.Close()
		return fmt.Errorf("write PCM: %w", err)
	}
	if err := enc.Close(); err != nil {
		_ = f.Close()
		return fmt.Errorf("finalize WAV: %w", err)
	}
	return f.Close()
}

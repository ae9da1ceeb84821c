package probe

import (
	"fmt"
	"strconv"
)

// FormatInfo holds container-level metadata from ffprobe's format section.
type FormatInfo struct {
	Filename       string
	NbStreams      int
	FormatName     string
	FormatLongName string
	Duration       float64
	Size           int64
	BitRate        int64
	Tags           map[string]string
}

// AudioStream holds the parsed properties of a single audio stream.
type AudioStream struct {
	Index         int
	Codec         string
	SampleFmt     string
	Channels      int
	ChannelLayout string
	SampleRate    int
	BitsPerSample int
	BitRate       int64
	Duration      float64
	Language      string
	IsDefault     bool
}

// ProbeResult is the parsed output of a single ffprobe JSON call. HasVideo
// ignores attached pictures such as cover art.
type ProbeResult struct {
	Format       FormatInfo
	AudioStreams []AudioStream
	HasVideo     bool
}

// PrimaryAudio returns the default audio stream, else the first one, else nil.
func (p *ProbeResult) PrimaryAudio() *AudioStream {
	for i := range p.AudioStreams {
		if p.AudioStreams[i].IsDefault {
			return &p.AudioStreams[i]
		}
	}
	if len(p.AudioStreams) > 0 {
		return &p.AudioStreams[0]
	}
	return nil
}

// AudioBitRate returns the primary audio stream bitrate in bits/sec,
// falling back to the format-level bitrate when the stream value is
// unavailable or zero.
func (p *ProbeResult) AudioBitRate() int64 {
	if a := p.PrimaryAudio(); a != nil && a.BitRate > 0 {
		return a.BitRate
	}
	return p.Format.BitRate
}

// Summary is a one-line description for debug logs, e.g.
// "wav pcm_s16le 8000 Hz 1ch 12.50s".
func (p *ProbeResult) Summary() string {
	a := p.PrimaryAudio()
	if a == nil {
		return p.Format.FormatName + " (no audio)"
	}
	rate := "? Hz"
	if a.SampleRate > 0 {
		rate = strconv.Itoa(a.SampleRate) + " Hz"
	}
	return fmt.Sprintf("%s %s %s %dch %.2fs", p.Format.FormatName, a.Codec, rate, a.Channels, p.Format.Duration)
}

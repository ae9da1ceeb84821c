package probe

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

// ffprobe JSON for an MP3 with cover art:
//   - 1 mjpeg attached pic (must not count as video)
//   - 1 MP3 stereo audio stream (44100 Hz)
const sampleMP3 = `{
  "streams": [
    {
      "index": 0,
      "codec_name": "mp3",
      "codec_type": "audio",
      "sample_fmt": "fltp",
      "channels": 2,
      "channel_layout": "stereo",
      "sample_rate": "44100",
      "bits_per_sample": 0,
      "bit_rate": "320000",
      "duration": "215.432000",
      "disposition": { "default": 0, "attached_pic": 0 },
      "tags": {}
    },
    {
      "index": 1,
      "codec_name": "mjpeg",
      "codec_type": "video",
      "disposition": { "default": 0, "attached_pic": 1 },
      "tags": { "comment": "Cover (front)" }
    }
  ],
  "format": {
    "filename": "/music/Song.mp3",
    "nb_streams": 2,
    "format_name": "mp3",
    "format_long_name": "MP2/3 (MPEG audio layer 2/3)",
    "duration": "215.432000",
    "size": "8617280",
    "bit_rate": "320000",
    "tags": { "title": "Song" }
  }
}`

// A converted output: mono 8 kHz signed 16-bit PCM.
const sampleWAV = `{
  "streams": [
    {
      "index": 0,
      "codec_name": "pcm_s16le",
      "codec_type": "audio",
      "sample_fmt": "s16",
      "channels": 1,
      "channel_layout": "mono",
      "sample_rate": "8000",
      "bits_per_sample": 16,
      "bit_rate": "128000",
      "duration": "12.500000"
    }
  ],
  "format": {
    "filename": "/music/output/Song.wav",
    "nb_streams": 1,
    "format_name": "wav",
    "duration": "12.500000",
    "size": "200078",
    "bit_rate": "128049"
  }
}`

// A video file with two audio tracks, the second marked default.
const sampleVideo = `{
  "streams": [
    { "index": 0, "codec_name": "h264", "codec_type": "video", "disposition": { "attached_pic": 0 } },
    { "index": 1, "codec_name": "aac", "codec_type": "audio", "channels": 6, "sample_rate": "48000",
      "disposition": { "default": 0 }, "tags": { "language": "eng" } },
    { "index": 2, "codec_name": "ac3", "codec_type": "audio", "channels": 2, "sample_rate": "48000",
      "disposition": { "default": 1 }, "tags": { "language": "jpn" } }
  ],
  "format": { "filename": "/media/clip.mkv", "nb_streams": 3, "format_name": "matroska,webm" }
}`

func TestParseJSON_MP3WithCoverArt(t *testing.T) {
	pr, err := ParseJSON([]byte(sampleMP3))
	if err != nil {
		t.Fatalf("ParseJSON: %v", err)
	}

	if pr.Format.Filename != "/music/Song.mp3" {
		t.Errorf("filename: got %q", pr.Format.Filename)
	}
	if pr.Format.NbStreams != 2 {
		t.Errorf("nb_streams: got %d, want 2", pr.Format.NbStreams)
	}
	if pr.Format.Duration < 215.43 || pr.Format.Duration > 215.44 {
		t.Errorf("duration: got %f, want 215.432", pr.Format.Duration)
	}
	if pr.Format.Size != 8617280 {
		t.Errorf("size: got %d", pr.Format.Size)
	}
	if pr.Format.Tags["title"] != "Song" {
		t.Errorf("tags: got %v", pr.Format.Tags)
	}
	if pr.HasVideo {
		t.Error("attached pic should not count as video")
	}

	if len(pr.AudioStreams) != 1 {
		t.Fatalf("audio streams: got %d, want 1", len(pr.AudioStreams))
	}
	a := pr.AudioStreams[0]
	if a.Codec != "mp3" || a.Channels != 2 || a.SampleRate != 44100 {
		t.Errorf("audio: codec=%q ch=%d sr=%d", a.Codec, a.Channels, a.SampleRate)
	}
	if a.SampleFmt != "fltp" {
		t.Errorf("sample_fmt: got %q", a.SampleFmt)
	}
	if pr.AudioBitRate() != 320000 {
		t.Errorf("audio bitrate: got %d", pr.AudioBitRate())
	}
}

func TestParseJSON_ConvertedWAV(t *testing.T) {
	pr, err := ParseJSON([]byte(sampleWAV))
	if err != nil {
		t.Fatalf("ParseJSON: %v", err)
	}
	a := pr.PrimaryAudio()
	if a == nil {
		t.Fatal("PrimaryAudio is nil")
	}
	if a.Codec != "pcm_s16le" || a.Channels != 1 || a.SampleRate != 8000 || a.BitsPerSample != 16 {
		t.Errorf("audio: %+v", *a)
	}
	if got, want := pr.Summary(), "wav pcm_s16le 8000 Hz 1ch 12.50s"; got != want {
		t.Errorf("summary: got %q, want %q", got, want)
	}
}

func TestParseJSON_DefaultAudioWins(t *testing.T) {
	pr, err := ParseJSON([]byte(sampleVideo))
	if err != nil {
		t.Fatalf("ParseJSON: %v", err)
	}
	if !pr.HasVideo {
		t.Error("HasVideo: got false")
	}
	a := pr.PrimaryAudio()
	if a == nil || a.Index != 2 || a.Language != "jpn" {
		t.Fatalf("primary audio: got %+v", a)
	}
	// No stream bitrate: falls back to the (zero) format bitrate.
	if pr.AudioBitRate() != 0 {
		t.Errorf("audio bitrate: got %d, want 0", pr.AudioBitRate())
	}
}

func TestParseJSON_MinimalFile(t *testing.T) {
	pr, err := ParseJSON([]byte(`{"streams": [], "format": {"format_name": "tty"}}`))
	if err != nil {
		t.Fatalf("ParseJSON: %v", err)
	}
	if pr.PrimaryAudio() != nil {
		t.Error("PrimaryAudio should be nil without audio streams")
	}
	if got := pr.Summary(); got != "tty (no audio)" {
		t.Errorf("summary: got %q", got)
	}
}

func TestParseJSON_Invalid(t *testing.T) {
	if _, err := ParseJSON([]byte(`{not json`)); err == nil {
		t.Error("expected error for malformed JSON")
	}
}

func TestParseHelpers(t *testing.T) {
	tests := []struct {
		in   string
		want int64
	}{
		{"", 0},
		{" 42 ", 42},
		{"N/A", 0},
		{"9000000000", 9000000000},
	}
	for _, tt := range tests {
		if got := parseInt64(tt.in); got != tt.want {
			t.Errorf("parseInt64(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestProbe_FakeBinary(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts not supported on windows")
	}
	dir := t.TempDir()
	jsonPath := filepath.Join(dir, "out.json")
	if err := os.WriteFile(jsonPath, []byte(sampleWAV), 0o644); err != nil {
		t.Fatal(err)
	}
	bin := filepath.Join(dir, "ffprobe")
	script := "#!/bin/sh\ncat '" + jsonPath + "'\n"
	if err := os.WriteFile(bin, []byte(script), 0o755); err != nil {
		t.Fatal(err)
	}

	pr, err := Probe(context.Background(), bin, "/music/output/Song.wav")
	if err != nil {
		t.Fatalf("Probe: %v", err)
	}
	if pr.Format.FormatName != "wav" {
		t.Errorf("format: got %q", pr.Format.FormatName)
	}

	failing := filepath.Join(dir, "ffprobe-fail")
	if err := os.WriteFile(failing, []byte("#!/bin/sh\necho bad >&2\nexit 1\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	if _, err := Probe(context.Background(), failing, "x"); err == nil {
		t.Error("expected error from failing prober")
	}
}

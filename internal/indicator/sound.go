package indicator

import (
	"context"
	"fmt"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/izyuumi/koe/internal/config"
	"github.com/jfreymuth/pulse"
)

type cueKind int

const (
	cueStart cueKind = iota + 1
	cueStop
	cueError
)

func (k cueKind) String() string {
	switch k {
	case cueStart:
		return "start"
	case cueStop:
		return "stop"
	case cueError:
		return "error"
	default:
		return "unknown"
	}
}

const (
	cueSampleRate  = 16000
	cueVolume      = 0.18
	cueGap         = 22 * time.Millisecond
	cueFileTimeout = 4 * time.Second
)

// tone is one sine segment of a cue.
type tone struct {
	hz float64
	d  time.Duration
}

// Rising for start, single low note for stop, falling triad for errors.
var cueTones = map[cueKind][]tone{
	cueStart: {{hz: 880, d: 70 * time.Millisecond}, {hz: 1175, d: 70 * time.Millisecond}},
	cueStop:  {{hz: 620, d: 120 * time.Millisecond}},
	cueError: {{hz: 480, d: 75 * time.Millisecond}, {hz: 360, d: 75 * time.Millisecond}, {hz: 300, d: 110 * time.Millisecond}},
}

var cuePCM = func() map[cueKind][]int16 {
	out := make(map[cueKind][]int16, len(cueTones))
	for kind, tones := range cueTones {
		out[kind] = renderTones(tones, cueVolume)
	}
	return out
}()

// emitCue plays the configured cue file, falling back to the synthesized tone
// when no file is set or the file cannot be played.
func emitCue(ctx context.Context, kind cueKind, cfg config.IndicatorConfig) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if path := cuePath(kind, cfg); path != "" {
		if err := playCueFile(ctx, path); err == nil {
			return nil
		}
	}

	pcm := cuePCM[kind]
	if len(pcm) == 0 {
		return nil
	}
	return playPCM(ctx, kind, pcm)
}

func cuePath(kind cueKind, cfg config.IndicatorConfig) string {
	files := map[cueKind]string{
		cueStart: cfg.SoundStartFile,
		cueStop:  cfg.SoundStopFile,
		cueError: cfg.SoundErrorFile,
	}
	raw := strings.TrimSpace(files[kind])
	if raw == "" {
		return ""
	}
	if raw == "~" || strings.HasPrefix(raw, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(raw, "~"))
		}
	}
	return raw
}

func playCueFile(ctx context.Context, path string) error {
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("stat cue file %q: %w", path, err)
	}

	ctx, cancel := context.WithTimeout(ctx, cueFileTimeout)
	defer cancel()

	if err := exec.CommandContext(ctx, "pw-play", "--media-role", "Notification", path).Run(); err != nil {
		return fmt.Errorf("play cue file %q: %w", path, err)
	}
	return nil
}

// playPCM streams mono 16 kHz samples to the default PulseAudio/PipeWire sink.
// Cancelling ctx stops playback early.
func playPCM(ctx context.Context, kind cueKind, pcm []int16) error {
	client, err := pulse.NewClient(
		pulse.ClientApplicationName("koe"),
		pulse.ClientApplicationIconName("audio-input-microphone"),
	)
	if err != nil {
		return fmt.Errorf("connect pulse server: %w", err)
	}
	defer client.Close()

	src := &pcmSource{samples: pcm}
	stream, err := client.NewPlayback(
		pulse.Int16Reader(src.read),
		pulse.PlaybackMono,
		pulse.PlaybackSampleRate(cueSampleRate),
		pulse.PlaybackLatency(0.02),
		pulse.PlaybackMediaName("koe "+kind.String()+" cue"),
	)
	if err != nil {
		return fmt.Errorf("create pulse playback stream: %w", err)
	}
	defer stream.Close()

	drained := make(chan struct{})
	stream.Start()
	go func() {
		stream.Drain()
		close(drained)
	}()

	select {
	case <-drained:
	case <-ctx.Done():
		// The deferred Close ends the stream and releases Drain.
		return ctx.Err()
	}
	if err := stream.Error(); err != nil {
		return fmt.Errorf("play %s cue: %w", kind, err)
	}
	return nil
}

// pcmSource feeds a fixed buffer to pulse and then signals end of data.
type pcmSource struct {
	samples []int16
	pos     int
}

func (s *pcmSource) read(buf []int16) (int, error) {
	n := copy(buf, s.samples[s.pos:])
	s.pos += n
	if s.pos >= len(s.samples) {
		return n, pulse.EndOfData
	}
	return n, nil
}

// renderTones concatenates tones with a short silence between them.
func renderTones(tones []tone, volume float64) []int16 {
	gap := sampleCount(cueGap)
	var pcm []int16
	for i, t := range tones {
		if i > 0 {
			pcm = append(pcm, make([]int16, gap)...)
		}
		pcm = append(pcm, renderTone(t, volume)...)
	}
	return pcm
}

// renderTone is a sine with a linear fade in and out of at most 5 ms so
// segment edges do not click.
func renderTone(t tone, volume float64) []int16 {
	n := sampleCount(t.d)
	if n <= 0 || t.hz <= 0 || volume <= 0 {
		return nil
	}

	ramp := max(1, min(n/10, cueSampleRate/200))
	pcm := make([]int16, n)
	for i := range pcm {
		gain := min(1.0, float64(i)/float64(ramp), float64(n-1-i)/float64(ramp))
		phase := 2 * math.Pi * t.hz * float64(i) / cueSampleRate
		pcm[i] = int16(math.Round(math.Sin(phase) * volume * gain * math.MaxInt16))
	}
	return pcm
}

func sampleCount(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int(math.Round(d.Seconds() * cueSampleRate))
}

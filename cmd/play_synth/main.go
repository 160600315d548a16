package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/cbegin/wavesynth-go"
	intfilter "github.com/cbegin/wavesynth-go/internal/filter"
	intlfo "github.com/cbegin/wavesynth-go/internal/lfo"
	intvoice "github.com/cbegin/wavesynth-go/internal/voice"
)

// errFinished ends the errgroup when playback ran its course.
var errFinished = errors.New("playback finished")

type sweepConfig struct {
	waveform intlfo.Waveform
	enabled  bool
	rateHz   float64
	low      float64
	high     float64
	interval time.Duration
}

func main() {
	var (
		sampleRate = flag.Int("sample-rate", 48000, "output sample rate")
		block      = flag.Int("block", 512, "largest processing block in frames")
		seqText    = flag.String("seq", "", `step sequence "hz:ms,rest:ms,..." (default: built-in phrase)`)
		oscText    = flag.String("osc", "", `oscillators "kind:multiplier,..." (kinds: sine|square|triangle|saw)`)
		free       = flag.Bool("free", false, "ignore the sequence and hold -base")
		base       = flag.Float64("base", 440, "base frequency in Hz")
		cutoff     = flag.Float64("cutoff", 1000, "filter cutoff in Hz")
		gain       = flag.Float64("gain", 1, "filter output gain")
		noFilter   = flag.Bool("no-filter", false, "start with the filter bypassed")
		sweepName  = flag.String("sweep", "ramp", "cutoff sweep: none|ramp|saw|triangle|square|random")
		sweepRate  = flag.Float64("sweep-rate", 0.25, "cutoff sweep rate in Hz")
		sweepLow   = flag.Float64("sweep-low", intfilter.MinCutoff, "lowest swept cutoff in Hz")
		sweepHigh  = flag.Float64("sweep-high", 1500, "highest swept cutoff in Hz")
		update     = flag.Duration("update", 16*time.Millisecond, "control update interval")
		duration   = flag.Duration("duration", 0, "stop after this much audio (0 = until interrupted; -out defaults to 6s)")
		outPath    = flag.String("out", "", "render to this WAV file instead of playing")
	)
	flag.Parse()

	steps, err := parseSequence(*seqText)
	if err != nil {
		log.Fatal(err)
	}
	oscs, err := parseOscillators(*oscText)
	if err != nil {
		log.Fatal(err)
	}
	sweep := sweepConfig{
		rateHz:   *sweepRate,
		low:      *sweepLow,
		high:     *sweepHigh,
		interval: *update,
	}
	if *sweepName != "none" {
		sweep.waveform, err = intlfo.ParseWaveform(*sweepName)
		if err != nil {
			log.Fatal(err)
		}
		sweep.enabled = true
	}
	if sweep.interval <= 0 {
		log.Fatal("-update must be positive")
	}

	params := intvoice.DefaultParams()
	params.Steps = steps
	params.Sequenced = !*free
	params.Bank.BaseFrequency = float32(*base)
	params.Bank.Samplers = oscs
	params.Filter.CutoffHz = float32(*cutoff)
	params.Filter.Gain = float32(*gain)
	params.Filter.Enabled = !*noFilter

	if *outPath != "" {
		d := *duration
		if d <= 0 {
			d = 6 * time.Second
		}
		if err := render(*outPath, *sampleRate, *block, params, sweep, d); err != nil {
			log.Fatal(err)
		}
		fmt.Printf("wrote %s (%s)\n", *outPath, d)
		return
	}

	if err := play(*sampleRate, *block, params, sweep, *duration); err != nil {
		if errors.Is(err, wavesynth.ErrStreamStopped) {
			log.Fatalf("fatal: %v", err)
		}
		log.Fatal(err)
	}
}

func play(sampleRate, block int, params intvoice.Params, sweep sweepConfig, duration time.Duration) error {
	pl, err := wavesynth.NewPlayer(sampleRate,
		wavesynth.WithVoiceParams(params),
		wavesynth.WithBlockFrames(block),
		wavesynth.WithDuration(duration),
	)
	if err != nil {
		return err
	}
	if err := pl.Play(); err != nil {
		return err
	}
	defer pl.Stop()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := pl.Monitor(ctx, 50*time.Millisecond); err != nil {
			return err
		}
		return errFinished
	})
	if sweep.enabled {
		g.Go(func() error {
			return runSweep(ctx, pl.Controller, sweep)
		})
	}
	if err := g.Wait(); err != nil && !errors.Is(err, errFinished) {
		return err
	}
	return nil
}

// runSweep pushes a new cutoff every interval until ctx is done.
func runSweep(ctx context.Context, c *wavesynth.Controller, sweep sweepConfig) error {
	s := intlfo.NewSweep(sweep.low, sweep.high, sweep.rateHz, sweep.waveform)
	t := time.NewTicker(sweep.interval)
	defer t.Stop()
	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-t.C:
			c.SetCutoff(float32(s.Advance(now.Sub(last).Seconds())))
			last = now
		}
	}
}

// render drives the same control loop against render time instead of the
// wall clock.
func render(path string, sampleRate, block int, params intvoice.Params, sweep sweepConfig, d time.Duration) error {
	r, err := wavesynth.NewRenderer(sampleRate,
		wavesynth.WithVoiceParams(params),
		wavesynth.WithBlockFrames(block),
	)
	if err != nil {
		return err
	}
	total := int(d.Seconds() * float64(sampleRate))
	chunk := max(1, int(sweep.interval.Seconds()*float64(sampleRate)))
	s := intlfo.NewSweep(sweep.low, sweep.high, sweep.rateHz, sweep.waveform)
	out := make([]float32, total*intvoice.Channels)
	for pos := 0; pos < total; pos += chunk {
		n := min(chunk, total-pos)
		if sweep.enabled {
			r.SetCutoff(float32(s.Advance(float64(n) / float64(sampleRate))))
		}
		r.Process(out[pos*intvoice.Channels : (pos+n)*intvoice.Channels])
	}
	return wavesynth.WriteWAVFile(path, out, sampleRate, intvoice.Channels)
}

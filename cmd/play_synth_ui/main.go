package main

import (
	"flag"
	"fmt"
	"image"
	"image/color"
	"log"
	"math"
	"sync"

	"github.com/cbegin/wavesynth-go"
	intfilter "github.com/cbegin/wavesynth-go/internal/filter"
	intvoice "github.com/cbegin/wavesynth-go/internal/voice"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
)

const (
	windowW      = 900
	windowH      = 600
	minWindowW   = 720
	minWindowH   = 520
	uiSampleRate = 48000

	textScale = 2
	charW     = 7 * textScale
	lineH     = 14 * textScale

	sliderLabelW = 190
)

var (
	bgColor      = color.RGBA{192, 192, 192, 255}
	panelColor   = color.RGBA{192, 192, 192, 255}
	borderColor  = color.RGBA{128, 128, 128, 255}
	bevelLight   = color.RGBA{255, 255, 255, 255}
	bevelDarker  = color.RGBA{64, 64, 64, 255}
	sunkenBg     = color.RGBA{24, 24, 32, 255}
	sliderFill   = color.RGBA{0, 0, 128, 255}
	buttonActive = color.RGBA{0, 0, 128, 255}
)

const (
	scopeSamples = 2048
	ringBufLen   = 65536
)

// analyzer keeps the most recent mono samples for the scope.
type analyzer struct {
	mu          sync.Mutex
	ring        []float32
	writePos    int
	totalTapped int64
}

func newAnalyzer() *analyzer {
	return &analyzer{ring: make([]float32, ringBufLen)}
}

// Tap runs on the audio thread.
func (a *analyzer) Tap(samples []float32) {
	a.mu.Lock()
	for i := 0; i+1 < len(samples); i += 2 {
		a.ring[a.writePos] = (samples[i] + samples[i+1]) * 0.5
		a.writePos = (a.writePos + 1) % ringBufLen
		a.totalTapped++
	}
	a.mu.Unlock()
}

// Snapshot copies n samples lined up with playbackPos, the frame the
// device is playing now.
func (a *analyzer) Snapshot(n int, playbackPos int64) []float32 {
	n = min(n, ringBufLen)
	out := make([]float32, n)
	a.mu.Lock()
	delay := int(a.totalTapped - playbackPos)
	delay = max(0, min(delay, ringBufLen-n))
	start := (a.writePos - delay - n + ringBufLen*2) % ringBufLen
	for i := range out {
		out[i] = a.ring[(start+i)%ringBufLen]
	}
	a.mu.Unlock()
	return out
}

type slider int

const (
	sliderNone slider = iota
	sliderCutoff
	sliderGain
)

type game struct {
	player   *wavesynth.Player
	analyzer *analyzer
	scopeImg *ebiten.Image
	wavePeak float64

	playing  bool
	dragging slider

	status    string
	statusErr bool

	textCache map[string]*ebiten.Image
	viewW     int
	viewH     int
}

func newGame(params intvoice.Params) (*game, error) {
	a := newAnalyzer()
	pl, err := wavesynth.NewPlayer(uiSampleRate,
		wavesynth.WithVoiceParams(params),
		wavesynth.WithSampleTap(a.Tap),
	)
	if err != nil {
		return nil, err
	}
	return &game{
		player:    pl,
		analyzer:  a,
		status:    "Ready",
		textCache: make(map[string]*ebiten.Image, 256),
		viewW:     windowW,
		viewH:     windowH,
	}, nil
}

// Update ends the game loop with the stream fault, if any.
func (g *game) Update() error {
	if err := g.player.Err(); err != nil {
		return err
	}
	g.handleMouse()
	return nil
}

func (g *game) Draw(screen *ebiten.Image) {
	screen.Fill(bgColor)
	l := g.layoutRects()

	g.drawScope(screen, l.scope)
	g.drawButton(screen, l.play, g.playLabel(), g.playing)
	g.drawButton(screen, l.filter, onOff("Filter", g.player.FilterEnabled()), g.player.FilterEnabled())
	g.drawButton(screen, l.osc, onOff("Osc", g.player.OscillatorEnabled()), g.player.OscillatorEnabled())
	g.drawButton(screen, l.restart, "Restart", false)
	g.drawSlider(screen, l.cutoff, fmt.Sprintf("Cut %5.0fHz", g.player.Cutoff()), cutoffToPos(g.player.Cutoff()))
	g.drawSlider(screen, l.gain, fmt.Sprintf("Gain %3d%%", int(g.player.Gain()*100+0.5)), float64(g.player.Gain()))
	g.drawSunkenPanel(screen, l.status)
	g.drawStatus(screen, l.status)
}

func (g *game) Layout(outsideW, outsideH int) (int, int) {
	g.viewW = max(outsideW, minWindowW)
	g.viewH = max(outsideH, minWindowH)
	return g.viewW, g.viewH
}

func (g *game) Close() { _ = g.player.Stop() }

type uiLayout struct {
	scope, play, filter, osc, restart image.Rectangle
	cutoff, gain, status              image.Rectangle
}

func (g *game) layoutRects() uiLayout {
	const pad = 12
	w, h := g.viewW, g.viewH
	statusH := lineH + 12
	rowH := lineH + 20

	status := image.Rect(pad, h-pad-statusH, w-pad, h-pad)
	gain := image.Rect(pad, status.Min.Y-pad-rowH, w-pad, status.Min.Y-pad)
	cutoff := image.Rect(pad, gain.Min.Y-pad-rowH, w-pad, gain.Min.Y-pad)
	buttonsY := cutoff.Min.Y - pad - rowH
	bw := (w - pad*5) / 4
	button := func(i int) image.Rectangle {
		x := pad + i*(bw+pad)
		return image.Rect(x, buttonsY, x+bw, buttonsY+rowH)
	}
	return uiLayout{
		scope:   image.Rect(pad, pad, w-pad, buttonsY-pad),
		play:    button(0),
		filter:  button(1),
		osc:     button(2),
		restart: button(3),
		cutoff:  cutoff,
		gain:    gain,
		status:  status,
	}
}

func (g *game) handleMouse() {
	mx, my := ebiten.CursorPosition()
	l := g.layoutRects()

	if inpututil.IsMouseButtonJustPressed(ebiten.MouseButtonLeft) {
		switch {
		case pointInRect(mx, my, l.play):
			g.togglePlayPause()
		case pointInRect(mx, my, l.filter):
			on := !g.player.FilterEnabled()
			g.player.SetFilterEnabled(on)
			g.setStatus(onOff("Filter", on))
		case pointInRect(mx, my, l.osc):
			on := !g.player.OscillatorEnabled()
			g.player.SetOscillatorEnabled(on)
			g.setStatus(onOff("Oscillators", on))
		case pointInRect(mx, my, l.restart):
			g.player.RestartSequence()
			g.setStatus("Sequence restarted")
		case pointInRect(mx, my, l.cutoff):
			g.dragging = sliderCutoff
		case pointInRect(mx, my, l.gain):
			g.dragging = sliderGain
		}
	}
	if !ebiten.IsMouseButtonPressed(ebiten.MouseButtonLeft) {
		g.dragging = sliderNone
	}
	switch g.dragging {
	case sliderCutoff:
		if v, ok := sliderValue(mx, l.cutoff); ok {
			g.player.SetCutoff(posToCutoff(v))
		}
	case sliderGain:
		if v, ok := sliderValue(mx, l.gain); ok {
			g.player.SetGain(float32(v))
		}
	}
}

func (g *game) togglePlayPause() {
	if g.playing {
		g.player.Pause()
		g.playing = false
		g.setStatus("Paused")
		return
	}
	if err := g.player.Play(); err != nil {
		g.setError(err.Error())
		return
	}
	g.playing = true
	g.setStatus("Playing")
}

func (g *game) playLabel() string {
	if g.playing {
		return "Pause"
	}
	return "Play"
}

func onOff(name string, on bool) string {
	if on {
		return name + " on"
	}
	return name + " off"
}

// cutoffToPos maps a cutoff onto a logarithmic slider position in [0, 1].
func cutoffToPos(hz float32) float64 {
	lo, hi := math.Log(intfilter.MinCutoff), math.Log(intfilter.MaxCutoff)
	return clamp((math.Log(float64(intfilter.ClampCutoff(hz)))-lo)/(hi-lo), 0, 1)
}

func posToCutoff(pos float64) float32 {
	lo, hi := math.Log(intfilter.MinCutoff), math.Log(intfilter.MaxCutoff)
	return float32(math.Exp(lo + clamp(pos, 0, 1)*(hi-lo)))
}

func sliderTrack(rect image.Rectangle) (x, w int) {
	return rect.Min.X + sliderLabelW, rect.Dx() - sliderLabelW - 16
}

func sliderValue(mx int, rect image.Rectangle) (float64, bool) {
	x, w := sliderTrack(rect)
	if w <= 0 {
		return 0, false
	}
	return clamp(float64(mx-x)/float64(w), 0, 1), true
}

func (g *game) drawScope(screen *ebiten.Image, rect image.Rectangle) {
	ebitenutil.DrawRect(screen, float64(rect.Min.X), float64(rect.Min.Y), float64(rect.Dx()), float64(rect.Dy()), color.RGBA{0, 0, 0, 255})
	drawSunkenBorder(screen, rect)

	inner := rect.Inset(8)
	width, height := inner.Dx(), inner.Dy()
	if width < 2 || height < 4 {
		return
	}
	if g.scopeImg == nil || g.scopeImg.Bounds().Dx() != width || g.scopeImg.Bounds().Dy() != height {
		g.scopeImg = ebiten.NewImage(width, height)
	}
	g.scopeImg.Fill(color.RGBA{14, 16, 22, 255})
	snap := g.analyzer.Snapshot(scopeSamples, g.player.PlaybackPosition())
	g.drawWaveform(g.scopeImg, snap, width, height)

	op := &ebiten.DrawImageOptions{}
	op.GeoM.Translate(float64(inner.Min.X), float64(inner.Min.Y))
	screen.DrawImage(g.scopeImg, op)
}

func (g *game) drawWaveform(dst *ebiten.Image, samples []float32, width, height int) {
	if len(samples) < 2 {
		return
	}
	midY := height / 2
	ebitenutil.DrawRect(dst, 0, float64(midY), float64(width), 1, color.RGBA{40, 44, 58, 100})

	// Auto-gain: fast attack, slow release.
	peak := 0.0
	for _, s := range samples {
		peak = math.Max(peak, math.Abs(float64(s)))
	}
	target := math.Max(peak, 0.01)
	if target > g.wavePeak {
		g.wavePeak = g.wavePeak*0.3 + target*0.7
	} else {
		g.wavePeak = g.wavePeak*0.995 + target*0.005
	}
	g.wavePeak = math.Max(g.wavePeak, 0.01)
	gain := float64(midY-2) / g.wavePeak

	trigger := findZeroCrossing(samples, len(samples)/4)
	visible := max(2, len(samples)-trigger)
	waveColor := color.RGBA{80, 200, 255, 220}
	prevX, prevY := 0, midY-int(float64(samples[trigger])*gain)
	for px := 1; px < width; px++ {
		si := min(trigger+px*visible/width, len(samples)-1)
		y := midY - int(float64(samples[si])*gain)
		ebitenutil.DrawLine(dst, float64(prevX), float64(prevY), float64(px), float64(y), waveColor)
		prevX, prevY = px, y
	}
}

// findZeroCrossing returns the first rising zero crossing within searchLen.
func findZeroCrossing(samples []float32, searchLen int) int {
	searchLen = min(searchLen, len(samples)-2)
	for i := 1; i < searchLen; i++ {
		if samples[i-1] <= 0 && samples[i] > 0 {
			return i
		}
	}
	return 0
}

func (g *game) drawSlider(screen *ebiten.Image, rect image.Rectangle, label string, pos float64) {
	g.drawPanel(screen, rect)
	g.drawText(screen, label, rect.Min.X+8, rect.Min.Y+(rect.Dy()-lineH)/2)

	trackX, trackW := sliderTrack(rect)
	trackY := rect.Min.Y + rect.Dy()/2 - 4
	if trackW < 20 {
		return
	}
	ebitenutil.DrawRect(screen, float64(trackX), float64(trackY), float64(trackW), 8, bevelDarker)
	ebitenutil.DrawRect(screen, float64(trackX), float64(trackY), float64(trackW-1), 1, borderColor)
	ebitenutil.DrawRect(screen, float64(trackX), float64(trackY), 1, 7, borderColor)
	fillW := int(float64(trackW) * clamp(pos, 0, 1))
	if fillW > 2 {
		ebitenutil.DrawRect(screen, float64(trackX+1), float64(trackY+1), float64(fillW-1), 6, sliderFill)
	}
	knobX := max(trackX-5, min(trackX+fillW-5, trackX+trackW-5))
	knob := image.Rect(knobX, trackY-4, knobX+10, trackY+12)
	ebitenutil.DrawRect(screen, float64(knob.Min.X), float64(knob.Min.Y), float64(knob.Dx()), float64(knob.Dy()), panelColor)
	drawBorder(screen, knob)
}

func (g *game) drawStatus(screen *ebiten.Image, rect image.Rectangle) {
	msg := fmt.Sprintf("%s  step %d  loop %d  dropped %d", g.status, g.player.Step(), g.player.Loops(), g.player.Dropped())
	if g.statusErr {
		msg = "ERROR - " + g.status
	}
	maxChars := max(8, (rect.Dx()-16)/charW)
	if r := []rune(msg); len(r) > maxChars {
		msg = string(r[:maxChars-3]) + "..."
	}
	g.drawText(screen, msg, rect.Min.X+8, rect.Min.Y+6)
}

func (g *game) setError(msg string) {
	g.status = msg
	g.statusErr = true
}

func (g *game) setStatus(msg string) {
	g.status = msg
	g.statusErr = false
}

func (g *game) drawPanel(screen *ebiten.Image, rect image.Rectangle) {
	ebitenutil.DrawRect(screen, float64(rect.Min.X), float64(rect.Min.Y), float64(rect.Dx()), float64(rect.Dy()), panelColor)
	drawBorder(screen, rect)
}

func (g *game) drawSunkenPanel(screen *ebiten.Image, rect image.Rectangle) {
	ebitenutil.DrawRect(screen, float64(rect.Min.X), float64(rect.Min.Y), float64(rect.Dx()), float64(rect.Dy()), sunkenBg)
	drawSunkenBorder(screen, rect)
}

func (g *game) drawButton(screen *ebiten.Image, rect image.Rectangle, label string, active bool) {
	fill := color.Color(panelColor)
	if active {
		fill = buttonActive
	}
	ebitenutil.DrawRect(screen, float64(rect.Min.X), float64(rect.Min.Y), float64(rect.Dx()), float64(rect.Dy()), fill)
	if active {
		drawSunkenBorder(screen, rect)
	} else {
		drawBorder(screen, rect)
	}
	labelW := len([]rune(label)) * charW
	g.drawText(screen, label, rect.Min.X+(rect.Dx()-labelW)/2, rect.Min.Y+(rect.Dy()-lineH)/2)
}

// drawBorder draws a raised bevel.
func drawBorder(screen *ebiten.Image, rect image.Rectangle) {
	x, y := float64(rect.Min.X), float64(rect.Min.Y)
	w, h := float64(rect.Dx()), float64(rect.Dy())
	ebitenutil.DrawRect(screen, x, y, w-1, 1, bevelLight)
	ebitenutil.DrawRect(screen, x, y+1, 1, h-2, bevelLight)
	ebitenutil.DrawRect(screen, x, y+h-1, w, 1, bevelDarker)
	ebitenutil.DrawRect(screen, x+w-1, y, 1, h, bevelDarker)
	ebitenutil.DrawRect(screen, x+1, y+h-2, w-3, 1, borderColor)
	ebitenutil.DrawRect(screen, x+w-2, y+1, 1, h-3, borderColor)
}

// drawSunkenBorder draws a sunken bevel.
func drawSunkenBorder(screen *ebiten.Image, rect image.Rectangle) {
	x, y := float64(rect.Min.X), float64(rect.Min.Y)
	w, h := float64(rect.Dx()), float64(rect.Dy())
	ebitenutil.DrawRect(screen, x, y, w-1, 1, borderColor)
	ebitenutil.DrawRect(screen, x, y+1, 1, h-2, borderColor)
	ebitenutil.DrawRect(screen, x, y+h-1, w, 1, bevelLight)
	ebitenutil.DrawRect(screen, x+w-1, y, 1, h, bevelLight)
	ebitenutil.DrawRect(screen, x+1, y+1, w-3, 1, bevelDarker)
	ebitenutil.DrawRect(screen, x+1, y+2, 1, h-4, bevelDarker)
}

func (g *game) drawText(screen *ebiten.Image, msg string, x, y int) {
	if msg == "" {
		return
	}
	img := g.textCache[msg]
	if img == nil {
		img = ebiten.NewImage(max(1, len([]rune(msg))*7), 14)
		ebitenutil.DebugPrintAt(img, msg, 0, 0)
		if len(g.textCache) > 1000 {
			g.textCache = make(map[string]*ebiten.Image, 256)
		}
		g.textCache[msg] = img
	}
	shadow := &ebiten.DrawImageOptions{}
	shadow.GeoM.Scale(textScale, textScale)
	shadow.GeoM.Translate(float64(x+2), float64(y+2))
	shadow.ColorScale.Scale(0, 0, 0, 1)
	screen.DrawImage(img, shadow)
	op := &ebiten.DrawImageOptions{}
	op.GeoM.Scale(textScale, textScale)
	op.GeoM.Translate(float64(x), float64(y))
	screen.DrawImage(img, op)
}

func clamp(v, minV, maxV float64) float64 {
	if v < minV {
		return minV
	}
	if v > maxV {
		return maxV
	}
	return v
}

func pointInRect(x, y int, rect image.Rectangle) bool {
	return image.Pt(x, y).In(rect)
}

func main() {
	var (
		cutoff = flag.Float64("cutoff", 1000, "initial filter cutoff in Hz")
		gain   = flag.Float64("gain", 0.8, "initial filter gain")
		free   = flag.Bool("free", false, "hold the base frequency instead of sequencing")
	)
	flag.Parse()

	params := intvoice.DefaultParams()
	params.Filter.CutoffHz = float32(*cutoff)
	params.Filter.Gain = float32(*gain)
	params.Sequenced = !*free

	g, err := newGame(params)
	if err != nil {
		log.Fatal(err)
	}
	defer g.Close()

	ebiten.SetWindowSize(windowW, windowH)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	ebiten.SetWindowSizeLimits(minWindowW, minWindowH, -1, -1)
	ebiten.SetWindowTitle("wavesynth-go")
	if err := ebiten.RunGame(g); err != nil {
		log.Fatal(err)
	}
}

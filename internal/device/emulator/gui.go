package emulator

import (
	"fmt"
	"image"
	"image/color"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/phinze/switchdeck/internal/device"
)

// Window layout: two rows of five keys at 2x, the panel at native size below.
const (
	keyDisplaySize = 144
	keysPerRow     = 5
	keyRows        = 2
	marginX        = 20
	marginY        = 20
	headerHeight   = 30
	panelMarginY   = 30
	footerHeight   = 40

	keySpacing    = (panelWidth - keysPerRow*keyDisplaySize) / (keysPerRow + 1)
	keyAreaHeight = keyRows*keyDisplaySize + (keyRows-1)*keySpacing
	keysStartX    = marginX + keySpacing
	keysStartY    = headerHeight + marginY
	panelStartX   = marginX
	panelStartY   = keysStartY + keyAreaHeight + panelMarginY
	windowWidth   = 2*marginX + panelWidth
	windowHeight  = panelStartY + panelHeight + footerHeight
)

// Touch classification thresholds.
const (
	tapSlop      = 20
	longPressMin = 500 * time.Millisecond
)

// keyRect returns the on-screen rectangle of a key.
func keyRect(key device.KeyID) image.Rectangle {
	i := int(key) - 1
	x := keysStartX + (i%keysPerRow)*(keyDisplaySize+keySpacing)
	y := keysStartY + (i/keysPerRow)*(keyDisplaySize+keySpacing)
	return image.Rect(x, y, x+keyDisplaySize, y+keyDisplaySize)
}

// keyAt returns the key under a window position.
func keyAt(p image.Point) (device.KeyID, bool) {
	for k := device.KEY_1; k <= device.KEY_10; k++ {
		if p.In(keyRect(k)) {
			return k, true
		}
	}
	return 0, false
}

var panelRect = image.Rect(panelStartX, panelStartY, panelStartX+panelWidth, panelStartY+panelHeight)

// panelPoint converts a window position to panel coordinates, clamped to
// the panel.
func panelPoint(p image.Point) image.Point {
	p = p.Sub(panelRect.Min)
	p.X = min(max(p.X, 0), panelWidth-1)
	p.Y = min(max(p.Y, 0), panelHeight-1)
	return p
}

// classify turns a finished touch into a gesture.
func classify(start, end image.Point, d time.Duration) device.Gesture {
	delta := end.Sub(start)
	if delta.X*delta.X+delta.Y*delta.Y < tapSlop*tapSlop {
		t := device.GestureTap
		if d > longPressMin {
			t = device.GesturePress
		}
		return device.Gesture{Type: t, Point: start, End: start, Duration: d}
	}
	return device.Gesture{Type: device.GestureSwipe, Point: start, End: end, Duration: d}
}

// RunGUI starts the Ebitengine GUI loop. This MUST be called from the main goroutine
// on macOS due to Cocoa threading requirements. This method blocks until the window is closed.
func (e *Emulator) RunGUI() error {
	e.mu.Lock()
	if !e.open {
		e.mu.Unlock()
		return fmt.Errorf("emulator: %w", device.ErrNotOpen)
	}
	e.game = &game{emu: e, focused: true}
	g := e.game
	e.mu.Unlock()

	ebiten.SetWindowSize(windowWidth, windowHeight)
	ebiten.SetWindowTitle("Switchdeck Emulator")
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeDisabled)
	ebiten.SetRunnableOnUnfocused(true)

	err := ebiten.RunGame(g)

	// Signal Listen() to unblock
	close(e.guiDone)
	return err
}

// game implements ebiten.Game for the emulator.
type game struct {
	emu *Emulator

	focused bool

	pressedKey device.KeyID
	touching   bool
	touchStart image.Point
	touchTime  time.Time
}

func (g *game) Update() error {
	select {
	case <-g.emu.stopCh:
		return ebiten.Termination
	default:
	}

	if f := ebiten.IsFocused(); f != g.focused {
		g.focused = f
		g.emu.sendFocus(f)
	}

	g.handleInput()
	return nil
}

func (g *game) handleInput() {
	mx, my := ebiten.CursorPosition()
	cursor := image.Pt(mx, my)

	if inpututil.IsMouseButtonJustPressed(ebiten.MouseButtonLeft) {
		if key, ok := keyAt(cursor); ok {
			g.pressedKey = key
			g.emu.sendKey(key, device.KeyDown)
			return
		}
		if cursor.In(panelRect) {
			g.touching = true
			g.touchStart = panelPoint(cursor)
			g.touchTime = time.Now()
		}
	}

	if !inpututil.IsMouseButtonJustReleased(ebiten.MouseButtonLeft) {
		return
	}
	if g.pressedKey != 0 {
		// The key is released wherever the cursor ended up.
		g.emu.sendKey(g.pressedKey, device.KeyUp)
		g.pressedKey = 0
	}
	if g.touching {
		g.touching = false
		g.emu.sendGesture(classify(g.touchStart, panelPoint(cursor), time.Since(g.touchTime)))
	}
}

func (g *game) Draw(screen *ebiten.Image) {
	screen.Fill(color.RGBA{30, 30, 30, 255})

	g.emu.mu.RLock()
	defer g.emu.mu.RUnlock()

	brightness := float32(g.emu.brightness) / 100

	ebitenutil.DebugPrintAt(screen, "Switchdeck Emulator", windowWidth/2-60, 8)

	for k := device.KEY_1; k <= device.KEY_10; k++ {
		r := keyRect(k)
		border := color.RGBA{60, 60, 60, 255}
		if k == g.pressedKey {
			border = color.RGBA{120, 160, 220, 255}
		}
		drawRect(screen, r.Min.X-2, r.Min.Y-2, r.Dx()+4, r.Dy()+4, border)

		// Clean 2x scale with the default nearest filter.
		op := &ebiten.DrawImageOptions{}
		op.GeoM.Scale(keyDisplaySize/keySize, keyDisplaySize/keySize)
		op.GeoM.Translate(float64(r.Min.X), float64(r.Min.Y))
		op.ColorScale.Scale(brightness, brightness, brightness, 1)
		screen.DrawImage(ebiten.NewImageFromImage(g.emu.keyImages[k-1]), op)
	}

	drawRect(screen, panelRect.Min.X-2, panelRect.Min.Y-2, panelWidth+4, panelHeight+4, color.RGBA{60, 60, 60, 255})
	op := &ebiten.DrawImageOptions{}
	op.GeoM.Translate(float64(panelRect.Min.X), float64(panelRect.Min.Y))
	op.ColorScale.Scale(brightness, brightness, brightness, 1)
	screen.DrawImage(ebiten.NewImageFromImage(g.emu.panelImage), op)

	ebitenutil.DebugPrintAt(screen, "Click keys | Click, hold or drag on the panel", 10, windowHeight-18)
}

func (g *game) Layout(outsideWidth, outsideHeight int) (int, int) {
	return windowWidth, windowHeight
}

// Helper function to draw a filled rectangle
func drawRect(screen *ebiten.Image, x, y, w, h int, c color.Color) {
	rect := ebiten.NewImage(w, h)
	rect.Fill(c)
	op := &ebiten.DrawImageOptions{}
	op.GeoM.Translate(float64(x), float64(y))
	screen.DrawImage(rect, op)
}

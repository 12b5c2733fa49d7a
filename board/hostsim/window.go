package hostsim

import (
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"

	"github.com/richardbraun/x1/internal/buildinfo"
)

// Window is an optional desktop visualizer: a small ebiten game loop
// that polls Status once per frame and prints it to the window, so the
// demo harness can watch the kernel run without needing a real
// console. Window has no dependency on the kernel itself — Status is
// supplied by the caller — so it cannot create an import cycle back
// into kernel/sched/timer.
type Window struct {
	// Status is polled once per frame; its return value is drawn as the
	// window's only content. May be nil, in which case a static banner
	// is shown.
	Status func() string
}

// Run opens the window and blocks until it is closed.
func (win *Window) Run() error {
	ebiten.SetWindowTitle("x1 (" + buildinfo.Short() + ")")
	ebiten.SetWindowSize(480, 270)
	ebiten.SetTPS(60)
	return ebiten.RunGame(&game{status: win.Status})
}

type game struct {
	status func() string
}

func (g *game) Update() error {
	return nil
}

func (g *game) Draw(screen *ebiten.Image) {
	s := "x1 kernel demo"
	if g.status != nil {
		s = g.status()
	}
	ebitenutil.DebugPrint(screen, s)
}

func (g *game) Layout(outsideWidth, outsideHeight int) (int, int) {
	return 480, 270
}

package term

import (
	"context"
	"fmt"
	"log/slog"

	bridge "github.com/atdiar/particlebridge"
	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
)

// App steps through a sequence of batches in a terminal. Key n applies the
// next batch, q quits.
//
// Batches are posted to the renderer's dispatcher, which is drained on the
// tview event goroutine, so that tree nodes are never mutated while drawn.
type App struct {
	app     *tview.Application
	tree    *tview.TreeView
	root    *Element
	r       *bridge.Renderer
	batches []bridge.Batch
	next    int
	log     *slog.Logger
}

// NewApp mounts a new root for componentID and returns an app replaying
// batches into it. A nil screen means the terminal.
func NewApp(r *bridge.Renderer, componentID int, batches []bridge.Batch, screen tcell.Screen, log *slog.Logger) *App {
	if log == nil {
		log = slog.Default()
	}
	a := &App{
		app:     tview.NewApplication(),
		root:    NewRoot(""),
		r:       r,
		batches: batches,
		log:     log,
	}
	r.Mount(componentID, a.root)
	a.status()
	a.tree = tview.NewTreeView().SetRoot(a.root.node).SetCurrentNode(a.root.node)
	a.tree.SetBorder(true).SetTitle(" shadowctl ")
	if screen != nil {
		a.app.SetScreen(screen)
	}
	a.app.SetRoot(a.tree, true).SetInputCapture(a.capture)
	return a
}

// Root returns the host container the batches render into.
func (a *App) Root() *Element { return a.root }

// Run runs the terminal application until q is pressed or ctx is done.
func (a *App) Run(ctx context.Context) error {
	stop := context.AfterFunc(ctx, a.app.Stop)
	defer stop()
	return a.app.Run()
}

func (a *App) capture(ev *tcell.EventKey) *tcell.EventKey {
	if ev.Key() != tcell.KeyRune {
		return ev
	}
	switch ev.Rune() {
	case 'n':
		defer func() {
			if r := recover(); r != nil {
				a.fail(fmt.Errorf("%v", r))
			}
		}()
		if _, err := a.Next(context.Background()); err != nil {
			a.fail(err)
		}
		return nil
	case 'q':
		a.app.Stop()
		return nil
	}
	return ev
}

// Next applies the next batch. It reports false once every batch has been
// applied. It must be called from the tview event goroutine, or before Run.
func (a *App) Next(ctx context.Context) (bool, error) {
	if a.next >= len(a.batches) {
		return false, nil
	}
	b := a.batches[a.next]
	a.next++

	d := a.r.Dispatcher()
	var err error
	if perr := d.Post(func(ctx context.Context) { err = a.r.UpdateDisplay(ctx, b) }); perr != nil {
		return false, perr
	}
	d.Drain(ctx)
	a.status()
	if err != nil {
		return true, fmt.Errorf("batch %d: %w", a.next, err)
	}
	a.log.DebugContext(ctx, "batch displayed", "batch", a.next, "of", len(a.batches))
	return true, nil
}

func (a *App) status() {
	a.root.node.SetText(fmt.Sprintf("batch %d/%d", a.next, len(a.batches)))
}

func (a *App) fail(err error) {
	a.log.Error("batch failed", "error", err)
	m := tview.NewModal().
		SetText("An error occured while applying a batch.\n" + err.Error()).
		AddButtons([]string{"Quit"}).
		SetDoneFunc(func(int, string) { a.app.Stop() })
	a.app.SetRoot(m, false)
}

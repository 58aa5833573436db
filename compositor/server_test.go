package compositor

import (
	"errors"
	"testing"
	"time"

	"github.com/mstarongithub/strata/config"
	"github.com/mstarongithub/strata/eventbus"
	"github.com/mstarongithub/strata/geom"
	"github.com/mstarongithub/strata/input"
	"github.com/mstarongithub/strata/ipc"
	"github.com/mstarongithub/strata/output"
	"github.com/mstarongithub/strata/scene"
	"github.com/mstarongithub/strata/view"
)

type fakeDevice struct {
	name     string
	mode     output.Mode
	attached bool
	renders  int
}

func (d *fakeDevice) Name() string                                     { return d.name }
func (d *fakeDevice) PreferredMode() (output.Mode, bool)               { return d.mode, true }
func (d *fakeDevice) Modes() []output.Mode                             { return []output.Mode{d.mode} }
func (d *fakeDevice) Commit(m output.Mode, _ bool) (output.Mode, bool) { return m, true }
func (d *fakeDevice) Nested() bool                                     { return false }
func (d *fakeDevice) DisableHardwareCursors()                          {}
func (d *fakeDevice) Attach()                                          { d.attached = true }
func (d *fakeDevice) Detach()                                          { d.attached = false }
func (d *fakeDevice) Render(time.Time)                                 { d.renders++ }

type fakeSeat struct {
	focused *view.View
}

func (s *fakeSeat) SetKeyboard(*input.Keyboard)                {}
func (s *fakeSeat) KeyboardKey(uint32, uint32, bool)           {}
func (s *fakeSeat) KeyboardModifiers(*input.Keyboard)          {}
func (s *fakeSeat) PointerEnter(*scene.Node, float64, float64) {}
func (s *fakeSeat) PointerMotion(uint32, float64, float64)     {}
func (s *fakeSeat) PointerClear()                              {}
func (s *fakeSeat) PointerButton(uint32, uint32, bool)         {}
func (s *fakeSeat) PointerAxis(uint32, input.AxisEvent)        {}
func (s *fakeSeat) PointerFrame()                              {}
func (s *fakeSeat) KeyboardEnter(v *view.View)                 { s.focused = v }
func (s *fakeSeat) KeyboardClear()                             { s.focused = nil }

type fakeCursor struct {
	x, y float64
}

func (c *fakeCursor) Position() (float64, float64) { return c.x, c.y }
func (c *fakeCursor) SetDefaultImage()             {}

type fakeToplevel struct {
	title  string
	geo    geom.Box
	closed bool
	serial uint32
}

func (t *fakeToplevel) Title() string      { return t.title }
func (t *fakeToplevel) AppID() string      { return "test." + t.title }
func (t *fakeToplevel) Geometry() geom.Box { return t.geo }
func (t *fakeToplevel) SetActivated(bool)  {}
func (t *fakeToplevel) SetSize(w, h int) uint32 {
	t.serial++
	return t.serial
}
func (t *fakeToplevel) SetMaximized(bool) uint32  { t.serial++; return t.serial }
func (t *fakeToplevel) SetFullscreen(bool) uint32 { t.serial++; return t.serial }
func (t *fakeToplevel) Close()                    { t.closed = true }

type fakeLayerClient struct {
	configures int
	closed     bool
}

func (c *fakeLayerClient) Configure(int, int) uint32 { c.configures++; return uint32(c.configures) }
func (c *fakeLayerClient) Close()                    { c.closed = true }

type fixture struct {
	srv    *Server
	seat   *fakeSeat
	cursor *fakeCursor
	quits  int
}

func newFixture(t *testing.T, mutate func(*config.Config)) *fixture {
	t.Helper()
	cfg := config.Default()
	if mutate != nil {
		mutate(&cfg)
	}
	f := &fixture{seat: &fakeSeat{}, cursor: &fakeCursor{}}
	srv, err := New(cfg, Options{
		Seat:   f.seat,
		Cursor: f.cursor,
		Quit:   func() { f.quits++ },
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(srv.Close)
	f.srv = srv
	return f
}

func (f *fixture) addOutput(name string, w, h int) *fakeDevice {
	dev := &fakeDevice{name: name, mode: output.Mode{Width: w, Height: h, Refresh: 60000, Preferred: true}}
	f.srv.NewOutput(dev)
	return dev
}

func (f *fixture) openWindow(title string, w, h int) (*view.View, *fakeToplevel) {
	tl := &fakeToplevel{title: title, geo: geom.Box{Width: w, Height: h}}
	v := f.srv.NewToplevel(tl, nil)
	f.srv.MapView(v)
	return v, tl
}

func (f *fixture) collect(name string) *[]eventbus.Event {
	var got []eventbus.Event
	f.srv.Bus.Subscribe(name, func(ev eventbus.Event) { got = append(got, ev) })
	return &got
}

func TestNewRejectsBadConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Tiling.FocusedColor = "blue"
	if _, err := New(cfg, Options{Seat: &fakeSeat{}, Cursor: &fakeCursor{}}); err == nil {
		t.Error("expected an invalid colour to be rejected")
	}
	cfg = config.Default()
	cfg.Input.Modifier = "hyper"
	if _, err := New(cfg, Options{Seat: &fakeSeat{}, Cursor: &fakeCursor{}}); err == nil {
		t.Error("expected an unknown modifier to be rejected")
	}
}

func TestOutputAnnouncedOnce(t *testing.T) {
	f := newFixture(t, nil)
	added := f.collect(eventbus.OutputAdded)
	dev := f.addOutput("WL-1", 1280, 720)

	if !dev.attached {
		t.Error("device not attached")
	}
	if len(*added) != 1 {
		t.Fatalf("expected one output_added, got %d", len(*added))
	}
	ev := (*added)[0]
	if ev.Payload["name"] != "WL-1" || ev.Payload["width"] != 1280 || ev.Payload["height"] != 720 {
		t.Errorf("unexpected payload %v", ev.Payload)
	}

	f.srv.OutputResized(dev, 1600, 900)
	if len(*added) != 1 {
		t.Errorf("resize announced the output again")
	}
	if box, _ := f.srv.Layers.Usable("WL-1"); box.Width != 1600 || box.Height != 900 {
		t.Errorf("usable area not updated after resize: %v", box)
	}

	f.srv.OutputFrame(dev, time.Now())
	if dev.renders != 1 {
		t.Errorf("expected a render per frame, got %d", dev.renders)
	}
}

func TestOutputRemovalClosesLayerSurfaces(t *testing.T) {
	f := newFixture(t, nil)
	removed := f.collect(eventbus.OutputRemoved)
	dev := f.addOutput("WL-1", 1280, 720)
	client := &fakeLayerClient{}
	if ls := f.srv.NewLayerSurface("", "top", "panel", client, nil); ls == nil || ls.Output != "WL-1" {
		t.Fatalf("layer surface not bound to the primary output: %+v", ls)
	}

	f.srv.OutputDestroyed(dev)
	if len(*removed) != 1 || (*removed)[0].Payload["name"] != "WL-1" {
		t.Errorf("expected output_removed for WL-1, got %v", *removed)
	}
	if !client.closed {
		t.Error("layer surface survived its output")
	}
}

func TestLayerSurfaceWithoutOutputIsClosed(t *testing.T) {
	f := newFixture(t, nil)
	client := &fakeLayerClient{}
	if ls := f.srv.NewLayerSurface("", "top", "panel", client, nil); ls != nil {
		t.Error("expected no layer surface without outputs")
	}
	if !client.closed {
		t.Error("client was not closed")
	}
}

func TestNewWindowCentredOnOutput(t *testing.T) {
	f := newFixture(t, nil)
	f.addOutput("WL-1", 1200, 800)
	created := f.collect(eventbus.WindowCreated)
	v, _ := f.openWindow("term", 400, 200)

	if box := v.Geometry(); box.X != 400 || box.Y != 300 {
		t.Errorf("window not centred: %v", box)
	}
	if f.seat.focused != v {
		t.Error("new window did not get keyboard focus")
	}
	if len(*created) != 1 {
		t.Errorf("expected one window_created, got %d", len(*created))
	}

	// Remapping keeps the window where it is
	v.Node.SetPosition(10, 10)
	f.srv.UnmapView(v)
	f.srv.MapView(v)
	if box := v.Geometry(); box.X != 10 || box.Y != 10 {
		t.Errorf("remapped window was placed again: %v", box)
	}
}

func TestTilingUsesAreaLeftByPanel(t *testing.T) {
	f := newFixture(t, func(c *config.Config) { c.Tiling.Enabled = true })
	f.addOutput("WL-1", 1200, 800)

	panel := &fakeLayerClient{}
	ls := f.srv.NewLayerSurface("WL-1", "top", "panel", panel, nil)
	f.srv.CommitLayerSurface(ls, scene.LayerState{
		Anchor:        scene.AnchorTop | scene.AnchorLeft | scene.AnchorRight,
		ExclusiveZone: 30,
		Height:        30,
	})
	f.srv.MapLayerSurface(ls)
	if box, _ := f.srv.Layers.Usable("WL-1"); box != (geom.Box{Y: 30, Width: 1200, Height: 770}) {
		t.Fatalf("unexpected usable area %v", box)
	}

	a, _ := f.openWindow("a", 300, 300)
	b, _ := f.openWindow("b", 300, 300)

	// Most recently focused window is the master
	if got := b.Geometry(); got.X != 10 || got.Y != 40 {
		t.Errorf("master tile at %v", got)
	}
	if got := a.Geometry(); got.Y != 40 || got.Bottom() != 790 {
		t.Errorf("stack tile at %v", got)
	}
	if !a.Is(view.StateTiled) || !b.Is(view.StateTiled) {
		t.Error("windows not marked as tiled")
	}

	f.srv.UnmapLayerSurface(ls)
	if got := b.Geometry(); got.Y != 10 {
		t.Errorf("tiles did not grow back after the panel left: %v", got)
	}
}

func TestTilingSkipsMaximizedWindow(t *testing.T) {
	f := newFixture(t, func(c *config.Config) { c.Tiling.Enabled = true })
	f.addOutput("WL-1", 1200, 800)
	a, _ := f.openWindow("a", 300, 300)
	b, _ := f.openWindow("b", 300, 300)

	f.srv.RequestMaximize(b, true)
	if !b.Is(view.StateMaximized) {
		t.Fatal("window not maximized")
	}
	if got := a.Geometry(); got != (geom.Box{X: 10, Y: 10, Width: 1180, Height: 780}) {
		t.Errorf("remaining window should fill the area, got %v", got)
	}
}

func TestClientStateRequests(t *testing.T) {
	f := newFixture(t, nil)
	f.addOutput("WL-1", 1200, 800)
	a, _ := f.openWindow("a", 300, 200)
	before := a.Geometry()

	f.srv.RequestFullscreen(a, true)
	if !a.Is(view.StateFullscreen) || a.Node.Layer() != scene.LayerFullscreen {
		t.Fatal("fullscreen request not honoured")
	}
	if got := a.Geometry(); got != (geom.Box{Width: 1200, Height: 800}) {
		t.Errorf("fullscreen window should cover the output, got %v", got)
	}
	f.srv.RequestFullscreen(a, false)
	if a.Is(view.StateFullscreen) || a.Geometry() != before {
		t.Errorf("leaving fullscreen gave %v, want %v", a.Geometry(), before)
	}

	f.srv.RequestMinimize(a)
	if a.Visible() {
		t.Error("minimize request not honoured")
	}

	unmapped := f.srv.NewToplevel(&fakeToplevel{title: "late", geo: geom.Box{Width: 10, Height: 10}}, nil)
	f.srv.RequestMaximize(unmapped, true)
	f.srv.RequestFullscreen(unmapped, true)
	if unmapped.Is(view.StateMaximized) || unmapped.Is(view.StateFullscreen) {
		t.Error("requests on an unmapped window must be ignored")
	}
}

func TestShortcutRequest(t *testing.T) {
	f := newFixture(t, nil)
	f.addOutput("WL-1", 1200, 800)
	changed := f.collect(eventbus.TilingChanged)

	f.srv.Bus.Deliver(eventbus.Event{Name: eventbus.ShortcutActivate, Payload: eventbus.Payload{"name": "toggle-tiling"}})
	if !f.srv.Tiler.Enabled() {
		t.Error("tiling not enabled by shortcut request")
	}
	if len(*changed) != 1 || (*changed)[0].Payload["enabled"] != true {
		t.Errorf("expected tiling_changed, got %v", *changed)
	}

	f.srv.Bus.Deliver(eventbus.Event{Name: eventbus.ShortcutActivate, Payload: eventbus.Payload{"name": "no-such-thing"}})
	if !f.srv.Tiler.Enabled() {
		t.Error("unknown shortcut changed state")
	}

	f.srv.Bus.Deliver(eventbus.Event{Name: eventbus.ShortcutActivate, Payload: eventbus.Payload{"name": "quit"}})
	if f.quits != 1 {
		t.Errorf("expected quit to be requested, got %d", f.quits)
	}
}

func TestOverviewToggleAndClick(t *testing.T) {
	f := newFixture(t, nil)
	f.addOutput("WL-1", 1200, 800)
	changed := f.collect(eventbus.MultitaskChanged)
	a, _ := f.openWindow("a", 1000, 700)
	b, _ := f.openWindow("b", 1000, 700)
	a.Node.SetPosition(0, 0)
	before := a.Geometry()

	f.srv.Bus.Deliver(eventbus.Event{Name: eventbus.MultitaskToggle})
	if !f.srv.Overview.Active() {
		t.Fatal("overview not shown")
	}
	if a.Node.Scale() >= 1 {
		t.Errorf("thumbnail not scaled down: %v", a.Node.Scale())
	}

	// Interactive grabs are refused while the overview is up
	f.srv.RequestMove(b)
	if f.srv.Input.Grabbed() != nil {
		t.Error("grab started during overview")
	}

	box := a.Node.VisibleBox()
	f.cursor.x, f.cursor.y = float64(box.X+1), float64(box.Y+1)
	f.srv.PointerButton(0, 272, true)
	if f.srv.Overview.Active() {
		t.Error("click did not leave the overview")
	}
	if f.srv.Views.Focused() != a {
		t.Error("clicked window not focused")
	}
	if got := a.Geometry(); got.X != before.X || got.Y != before.Y {
		t.Errorf("window not restored: %v, want %v", got, before)
	}
	if len(*changed) != 2 {
		t.Errorf("expected two multitask_changed events, got %d", len(*changed))
	}
}

func TestOverviewNeedsOutput(t *testing.T) {
	f := newFixture(t, nil)
	f.srv.ToggleOverview()
	if f.srv.Overview.Active() {
		t.Error("overview shown without any output")
	}
}

func TestGrabReleaseRearranges(t *testing.T) {
	f := newFixture(t, func(c *config.Config) { c.Tiling.Enabled = true })
	f.addOutput("WL-1", 1200, 800)
	v, _ := f.openWindow("a", 300, 300)
	tile := v.Geometry()

	f.cursor.x, f.cursor.y = float64(tile.X+5), float64(tile.Y+5)
	f.srv.PointerMotion(0)
	f.srv.RequestMove(v)
	if f.srv.Input.Grabbed() != v {
		t.Fatal("move grab not started")
	}
	f.cursor.x, f.cursor.y = 600, 500
	f.srv.PointerMotion(1)
	if v.Geometry() == tile {
		t.Fatal("window did not follow the pointer")
	}

	f.srv.PointerButton(2, 272, false)
	if f.srv.Input.Grabbed() != nil {
		t.Fatal("grab not released")
	}
	if got := v.Geometry(); got != tile {
		t.Errorf("window not put back into its tile: %v, want %v", got, tile)
	}
}

func TestKeyboardActions(t *testing.T) {
	f := newFixture(t, nil)
	f.addOutput("WL-1", 1200, 800)
	a, _ := f.openWindow("a", 300, 300)
	b, tb := f.openWindow("b", 300, 300)

	f.srv.RunAction(input.ActionMinimize)
	if !b.Is(view.StateMinimized) || f.srv.Views.Focused() != a {
		t.Error("minimize did not move focus on")
	}
	f.srv.RunAction(input.ActionRestoreAll)
	if b.Is(view.StateMinimized) {
		t.Error("restore-all left a window minimized")
	}

	f.srv.Views.FocusView(b)
	f.srv.RunAction(input.ActionFullscreen)
	if !b.Is(view.StateFullscreen) || b.Geometry() != (geom.Box{Width: 1200, Height: 800}) {
		t.Errorf("fullscreen did not cover the output: %v", b.Geometry())
	}
	f.srv.RunAction(input.ActionFullscreen)
	if b.Is(view.StateFullscreen) {
		t.Error("fullscreen did not toggle off")
	}

	f.srv.RunAction(input.ActionClose)
	if !tb.closed {
		t.Error("focused window not asked to close")
	}
	if f.srv.RunAction(input.ActionNone) {
		t.Error("no-op action reported as applied")
	}
}

func TestDestroyFocusesNext(t *testing.T) {
	f := newFixture(t, nil)
	f.addOutput("WL-1", 1200, 800)
	destroyed := f.collect(eventbus.WindowDestroyed)
	a, _ := f.openWindow("a", 300, 300)
	b, _ := f.openWindow("b", 300, 300)

	f.srv.DestroyView(b)
	if f.srv.Views.Focused() != a || f.seat.focused != a {
		t.Error("focus did not fall back to the remaining window")
	}
	if len(*destroyed) != 1 {
		t.Errorf("expected window_destroyed, got %d", len(*destroyed))
	}
	if _, err := f.srv.Views.Get(b.ID); !errors.Is(err, view.ErrUnknownView) {
		t.Errorf("destroyed view still known: %v", err)
	}
}

func TestQueries(t *testing.T) {
	f := newFixture(t, nil)
	f.addOutput("WL-1", 1200, 800)
	f.addOutput("WL-2", 800, 600)
	v, _ := f.openWindow("term", 400, 200)

	res, err := f.srv.QueryOutputs(ipc.OutputRequest{IncludeModes: true})
	if err != nil {
		t.Fatalf("QueryOutputs: %v", err)
	}
	if res.OutputsFound != 2 || len(res.OutputModes["WL-2"]) != 1 {
		t.Errorf("unexpected response %+v", res)
	}
	if res.Outputs[1].X != 1200 {
		t.Errorf("second output not placed right of the first: %+v", res.Outputs[1])
	}

	_, err = f.srv.QueryOutputs(ipc.OutputRequest{SpecifiesOutput: true, TargetOutput: "HDMI-9"})
	if !errors.Is(err, ipc.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	wins := f.srv.QueryWindows()
	if len(wins.Windows) != 1 {
		t.Fatalf("expected one window, got %d", len(wins.Windows))
	}
	w := wins.Windows[0]
	if w.ID != uint64(v.ID) || w.Title != "term" || !w.Focused || w.State != "mapped" {
		t.Errorf("unexpected window info %+v", w)
	}
}

func TestWindowAction(t *testing.T) {
	f := newFixture(t, nil)
	f.addOutput("WL-1", 1200, 800)
	v, _ := f.openWindow("term", 400, 200)

	if err := f.srv.WindowAction(uint64(v.ID), ipc.ACTION_MAXIMIZE); err != nil {
		t.Fatalf("maximize: %v", err)
	}
	if !v.Is(view.StateMaximized) {
		t.Error("window not maximized")
	}
	if err := f.srv.WindowAction(uint64(v.ID), ipc.ACTION_UNMAXIMIZE); err != nil || v.Is(view.StateMaximized) {
		t.Errorf("unmaximize failed: %v", err)
	}
	if err := f.srv.WindowAction(uint64(v.ID), "explode"); !errors.Is(err, ipc.ErrBadRequest) {
		t.Errorf("expected ErrBadRequest, got %v", err)
	}
	if err := f.srv.WindowAction(9999, ipc.ACTION_FOCUS); !errors.Is(err, ipc.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	f.srv.UnmapView(v)
	if err := f.srv.WindowAction(uint64(v.ID), ipc.ACTION_FOCUS); !errors.Is(err, ipc.ErrNotFound) {
		t.Errorf("unmapped windows should not be addressable, got %v", err)
	}
}

package ipc

import (
	"context"
	"errors"
	"fmt"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/mstarongithub/strata/eventbus"
)

type fakeProvider struct {
	actions []string
}

func (p *fakeProvider) QueryOutputs(req OutputRequest) (OutputResponse, error) {
	all := []OutputInfo{
		{Name: "WL-1", Enabled: true, Nested: true, Width: 1280, Height: 720, RefreshRate: 60000},
		{Name: "WL-2", Enabled: true, Nested: true, X: 1280, Width: 800, Height: 600},
	}
	res := OutputResponse{}
	for _, o := range all {
		if req.SpecifiesOutput && o.Name != req.TargetOutput {
			continue
		}
		res.Outputs = append(res.Outputs, o)
	}
	if len(res.Outputs) == 0 {
		return res, fmt.Errorf("output %q: %w", req.TargetOutput, ErrNotFound)
	}
	if req.IncludeModes {
		res.OutputModes = map[string][]OutputMode{}
		for _, o := range res.Outputs {
			res.OutputModes[o.Name] = []OutputMode{{Width: o.Width, Height: o.Height, RefreshRate: 60000, Preferred: true}}
		}
	}
	res.OutputsFound = len(res.Outputs)
	return res, nil
}

func (p *fakeProvider) QueryWindows() WindowsResponse {
	return WindowsResponse{Windows: []WindowInfo{
		{ID: 2, Title: "foot", AppID: "foot", Focused: true},
		{ID: 1, Title: "firefox", AppID: "firefox"},
	}}
}

func (p *fakeProvider) WindowAction(id uint64, action string) error {
	if id != 1 && id != 2 {
		return fmt.Errorf("window %d: %w", id, ErrNotFound)
	}
	if action == "explode" {
		return fmt.Errorf("%w: unknown action %q", ErrBadRequest, action)
	}
	p.actions = append(p.actions, fmt.Sprintf("%d:%s", id, action))
	return nil
}

func directExec(ctx context.Context, fn func() error) error {
	return fn()
}

func newTestServer(t *testing.T) (*Client, *fakeProvider, *eventbus.Bus) {
	t.Helper()
	bus := eventbus.New()
	t.Cleanup(bus.Close)
	provider := &fakeProvider{}
	srv := NewServer(provider, bus, directExec)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return newClientWith(ts.Client(), ts.URL), provider, bus
}

func TestOutputs(t *testing.T) {
	c, _, _ := newTestServer(t)
	ctx := context.Background()

	res, err := c.Outputs(ctx, OutputRequest{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.OutputsFound != 2 || res.OutputModes != nil {
		t.Errorf("unexpected response %+v", res)
	}

	res, err = c.Outputs(ctx, OutputRequest{IncludeModes: true, SpecifiesOutput: true, TargetOutput: "WL-2"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.OutputsFound != 1 || res.Outputs[0].X != 1280 || len(res.OutputModes["WL-2"]) != 1 {
		t.Errorf("unexpected response %+v", res)
	}

	_, err = c.Outputs(ctx, OutputRequest{SpecifiesOutput: true, TargetOutput: "HDMI-A-1"})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestWindowsAndActions(t *testing.T) {
	c, provider, _ := newTestServer(t)
	ctx := context.Background()

	res, err := c.Windows(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Windows) != 2 || !res.Windows[0].Focused {
		t.Errorf("unexpected windows %+v", res.Windows)
	}

	if err := c.WindowAction(ctx, 1, ACTION_FOCUS); err != nil {
		t.Errorf("focus failed: %v", err)
	}
	if err := c.WindowAction(ctx, 9, ACTION_CLOSE); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if err := c.WindowAction(ctx, 2, "explode"); !errors.Is(err, ErrBadRequest) {
		t.Errorf("expected ErrBadRequest, got %v", err)
	}
	if len(provider.actions) != 1 || provider.actions[0] != "1:focus" {
		t.Errorf("unexpected actions %v", provider.actions)
	}
}

func TestRequestsReachTheBus(t *testing.T) {
	c, _, bus := newTestServer(t)
	got := make(chan eventbus.Event, 2)
	bus.Subscribe(eventbus.ShortcutActivate, func(ev eventbus.Event) { got <- ev })
	bus.Subscribe(eventbus.MultitaskToggle, func(ev eventbus.Event) { got <- ev })
	go bus.ServeRequests(func(fn func()) error {
		fn()
		return nil
	})

	ctx := context.Background()
	if err := c.Shortcut(ctx, "toggle-tiling"); err != nil {
		t.Fatalf("shortcut failed: %v", err)
	}
	if err := c.ToggleMultitask(ctx); err != nil {
		t.Fatalf("multitask toggle failed: %v", err)
	}

	for _, want := range []string{eventbus.ShortcutActivate, eventbus.MultitaskToggle} {
		select {
		case ev := <-got:
			if ev.Name != want {
				t.Errorf("got %s, want %s", ev.Name, want)
			}
			if want == eventbus.ShortcutActivate && ev.Payload["name"] != "toggle-tiling" {
				t.Errorf("unexpected payload %v", ev.Payload)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("request %s never arrived", want)
		}
	}
}

func TestEventStream(t *testing.T) {
	c, _, bus := newTestServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	received := make(chan eventbus.Event, 16)
	done := make(chan error, 1)
	go func() {
		done <- c.Events(ctx, []string{eventbus.WindowFocused}, func(ev eventbus.Event) {
			received <- ev
		})
	}()

	// the subscription is set up asynchronously, keep publishing until it shows up
	ticker := time.NewTicker(20 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case ev := <-received:
			if ev.Name != eventbus.WindowFocused {
				t.Fatalf("filter let %s through", ev.Name)
			}
			cancel()
			if err := <-done; err != nil {
				t.Errorf("stream ended with %v", err)
			}
			return
		case <-ticker.C:
			bus.Publish(eventbus.WindowCreated, eventbus.Payload{"id": uint64(1)})
			bus.Publish(eventbus.WindowFocused, eventbus.Payload{"id": uint64(1)})
		case <-ctx.Done():
			t.Fatal("no event received")
		}
	}
}

func TestUnknownRoute(t *testing.T) {
	c, _, _ := newTestServer(t)
	err := c.do(context.Background(), "GET", "/nope", nil)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestListenReplacesStaleSocket(t *testing.T) {
	bus := eventbus.New()
	defer bus.Close()
	path := filepath.Join(t.TempDir(), "strata.sock")

	first := NewServer(&fakeProvider{}, bus, directExec)
	if err := first.Listen(path); err != nil {
		t.Fatalf("listen failed: %v", err)
	}
	// simulate a crashed compositor leaving its socket behind
	first.listener.(interface{ SetUnlinkOnClose(bool) }).SetUnlinkOnClose(false)
	first.listener.Close()

	second := NewServer(&fakeProvider{}, bus, directExec)
	if err := second.Listen(path); err != nil {
		t.Fatalf("listen over stale socket failed: %v", err)
	}
	go second.Serve()
	defer second.Close(context.Background())

	c := NewClient(path)
	if _, err := c.Windows(context.Background()); err != nil {
		t.Errorf("request over unix socket failed: %v", err)
	}
}

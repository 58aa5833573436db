package scene

import "testing"

type recordingSink struct {
	name    string
	log     *[]string
	x, y    int
	enabled bool
}

func (s *recordingSink) SetPosition(x, y int)    { s.x, s.y = x, y }
func (s *recordingSink) SetEnabled(enabled bool) { s.enabled = enabled }
func (s *recordingSink) RaiseToTop()             { *s.log = append(*s.log, s.name) }
func (s *recordingSink) Destroy()                { *s.log = append(*s.log, "destroy "+s.name) }

func viewNode(name string, log *[]string, x, y, w, h int) *Node {
	n := NewNode(NodeView, name, &recordingSink{name: name, log: log})
	n.SetPosition(x, y)
	n.SetSize(w, h)
	n.SetEnabled(true)
	return n
}

func TestParseLayerFallsBackToTop(t *testing.T) {
	cases := map[string]Layer{
		"background": LayerBackground,
		"bottom":     LayerBottom,
		"top":        LayerTop,
		"overlay":    LayerOverlay,
		"lock":       LayerLock,
		"dock":       LayerTop,
		"":           LayerTop,
	}
	for name, want := range cases {
		if got := ParseLayer(name); got != want {
			t.Errorf("ParseLayer(%q) = %s, want %s", name, got, want)
		}
	}
}

func TestAtPrefersHigherLayersAndTopmostNode(t *testing.T) {
	var log []string
	g := New()
	a := viewNode("a", &log, 0, 0, 100, 100)
	b := viewNode("b", &log, 50, 50, 100, 100)
	panel := NewNode(NodeLayerSurface, "panel", nil)
	panel.SetSize(200, 20)
	panel.SetEnabled(true)

	g.Attach(LayerWindows, a)
	g.Attach(LayerWindows, b)
	g.Attach(LayerTop, panel)

	if n, _, _ := g.At(10, 10); n != panel {
		t.Errorf("expected panel on top, got %v", n)
	}
	n, sx, sy := g.At(60, 60)
	if n != b {
		t.Fatalf("expected b, got %v", n)
	}
	if sx != 10 || sy != 10 {
		t.Errorf("expected local (10,10), got (%v,%v)", sx, sy)
	}

	g.RaiseToTop(a)
	if n, _, _ := g.At(60, 60); n != a {
		t.Errorf("expected a after raise, got %v", n)
	}

	a.SetEnabled(false)
	if n, _, _ := g.At(60, 60); n != b {
		t.Errorf("disabled node must not be hit, got %v", n)
	}
	if n, _, _ := g.At(500, 500); n != nil {
		t.Errorf("expected no hit, got %v", n)
	}
}

func TestAttachMovesBetweenLayers(t *testing.T) {
	var log []string
	g := New()
	n := viewNode("v", &log, 0, 0, 10, 10)
	g.Attach(LayerWindows, n)
	g.Attach(LayerFullscreen, n)

	if len(g.Nodes(LayerWindows)) != 0 {
		t.Error("node still in windows layer")
	}
	if len(g.Nodes(LayerFullscreen)) != 1 || n.Layer() != LayerFullscreen {
		t.Error("node not in fullscreen layer")
	}
}

func TestRestackRaisesSinksInPaintOrder(t *testing.T) {
	var log []string
	g := New()
	a := viewNode("a", &log, 0, 0, 10, 10)
	b := viewNode("b", &log, 0, 0, 10, 10)
	bg := viewNode("bg", &log, 0, 0, 10, 10)
	g.Attach(LayerWindows, a)
	g.Attach(LayerWindows, b)
	g.Attach(LayerBackground, bg)

	log = nil
	g.RaiseToTop(a)
	want := []string{"bg", "b", "a"}
	if len(log) != len(want) {
		t.Fatalf("expected %v, got %v", want, log)
	}
	for i := range want {
		if log[i] != want[i] {
			t.Errorf("expected %v, got %v", want, log)
			break
		}
	}
}

func TestChildrenFollowParent(t *testing.T) {
	var log []string
	g := New()
	parent := viewNode("p", &log, 100, 100, 50, 50)
	border := NewNode(NodeBorder, nil, &recordingSink{name: "border", log: &log})
	border.SetPosition(-2, -2)
	border.SetSize(54, 2)
	border.SetEnabled(true)
	parent.AddChild(border)
	g.Attach(LayerWindows, parent)

	if b := border.Box(); b.X != 98 || b.Y != 98 {
		t.Errorf("unexpected border box %s", b)
	}
	// Borders are decoration, never hit
	if n, _, _ := g.At(98.5, 98.5); n != nil {
		t.Errorf("border was hit: %v", n)
	}
	parent.SetEnabled(false)
	if border.Visible() {
		t.Error("child visible under disabled parent")
	}

	log = nil
	g.Detach(parent)
	if len(log) != 2 || log[0] != "destroy border" || log[1] != "destroy p" {
		t.Errorf("unexpected destroy order %v", log)
	}
	if parent.Attached() {
		t.Error("parent still attached")
	}
}

func TestScaledNodeHitTest(t *testing.T) {
	var log []string
	g := New()
	n := viewNode("v", &log, 0, 0, 400, 200)
	g.Attach(LayerWindows, n)
	n.SetScale(0.5)

	if hit, _, _ := g.At(300, 50); hit != nil {
		t.Error("point outside the scaled box hit the node")
	}
	hit, sx, sy := g.At(100, 50)
	if hit != n {
		t.Fatal("expected scaled node to be hit")
	}
	if sx != 200 || sy != 100 {
		t.Errorf("expected unscaled local (200,100), got (%v,%v)", sx, sy)
	}
}

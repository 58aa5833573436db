// Copyright (c) 2024 mStar
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package scene

import (
	"github.com/mstarongithub/strata/geom"
	"github.com/sirupsen/logrus"
)

// Anchor values match zwlr_layer_surface_v1.anchor
type Anchor uint32

const (
	AnchorTop    Anchor = 1
	AnchorBottom Anchor = 2
	AnchorLeft   Anchor = 4
	AnchorRight  Anchor = 8
)

type Margins struct {
	Top    int
	Right  int
	Bottom int
	Left   int
}

// LayerState is the double buffered state a layer surface client commits
type LayerState struct {
	Anchor Anchor
	// > 0 reserves space, 0 avoids other exclusive zones, -1 ignores them
	ExclusiveZone int
	Margin        Margins
	// Desired size, 0 stretches along an axis anchored on both ends
	Width  int
	Height int
}

// LayerClient is the protocol side of a layer surface
type LayerClient interface {
	// Configure proposes a size and returns the configure serial
	Configure(width, height int) uint32
	Close()
}

type LayerSurface struct {
	Output    string
	Layer     Layer
	Namespace string
	State     LayerState
	Mapped    bool
	// Geometry computed by the last arrangement, in layout coordinates
	Geo  geom.Box
	Node *Node

	client                   LayerClient
	configuredW, configuredH int
	configured               bool
}

// Arrangement order, the upper layers claim exclusive space first
var arrangeOrder = []Layer{LayerOverlay, LayerTop, LayerBottom, LayerBackground}

// Shell manages the layer surfaces of every output and the usable area they leave
type Shell struct {
	graph    *Graph
	surfaces map[string][]*LayerSurface
	full     map[string]geom.Box
	usable   map[string]geom.Box

	// Called when arranging changed an output's usable area
	OnUsableChange func(output string, usable geom.Box)
}

func NewShell(g *Graph) *Shell {
	return &Shell{
		graph:    g,
		surfaces: make(map[string][]*LayerSurface),
		full:     make(map[string]geom.Box),
		usable:   make(map[string]geom.Box),
	}
}

// CreateLayerSurface registers a new layer surface on output. The requested layer name is
// resolved to one of the fixed layers, unknown names fall back to the top layer.
// The surface stays hidden until mapped
func (s *Shell) CreateLayerSurface(output, layer, namespace string, client LayerClient, sink Sink) *LayerSurface {
	ls := &LayerSurface{
		Output:    output,
		Layer:     ParseLayer(layer),
		Namespace: namespace,
		client:    client,
	}
	ls.Node = NewNode(NodeLayerSurface, ls, sink)
	s.graph.Attach(ls.Layer, ls.Node)
	s.surfaces[output] = append(s.surfaces[output], ls)

	logrus.WithFields(logrus.Fields{
		"output":    output,
		"layer":     ls.Layer,
		"requested": layer,
		"namespace": namespace,
	}).Debugln("New layer surface")
	return ls
}

// Commit applies newly committed client state and re-arranges the output if anything
// affecting placement changed
func (s *Shell) Commit(ls *LayerSurface, state LayerState) {
	changed := state != ls.State
	ls.State = state
	if !ls.configured {
		// Initial commit, the client waits for a configure before it may map
		changed = true
	}
	if changed {
		s.rearrange(ls.Output)
	}
}

// SetLayer moves the surface to another layer, as requested by the client
func (s *Shell) SetLayer(ls *LayerSurface, layer string) {
	l := ParseLayer(layer)
	if l == ls.Layer {
		return
	}
	ls.Layer = l
	s.graph.Attach(l, ls.Node)
	s.rearrange(ls.Output)
}

func (s *Shell) Map(ls *LayerSurface) {
	if ls.Mapped {
		return
	}
	ls.Mapped = true
	ls.Node.SetEnabled(true)
	s.rearrange(ls.Output)
}

func (s *Shell) Unmap(ls *LayerSurface) {
	if !ls.Mapped {
		return
	}
	ls.Mapped = false
	ls.Node.SetEnabled(false)
	s.rearrange(ls.Output)
}

// Destroy forgets the surface and gives its reserved space back
func (s *Shell) Destroy(ls *LayerSurface) {
	list := s.surfaces[ls.Output]
	for i, other := range list {
		if other == ls {
			s.surfaces[ls.Output] = append(list[:i], list[i+1:]...)
			break
		}
	}
	s.graph.Detach(ls.Node)
	if ls.Mapped {
		ls.Mapped = false
		s.rearrange(ls.Output)
	}
}

// RemoveOutput closes all surfaces bound to a disappearing output
func (s *Shell) RemoveOutput(output string) {
	for _, ls := range s.surfaces[output] {
		s.graph.Detach(ls.Node)
		ls.Mapped = false
		if ls.client != nil {
			ls.client.Close()
		}
	}
	delete(s.surfaces, output)
	delete(s.full, output)
	delete(s.usable, output)
}

func (s *Shell) Surfaces(output string) []*LayerSurface {
	return append([]*LayerSurface(nil), s.surfaces[output]...)
}

// Usable returns the usable area of output from the last arrangement
func (s *Shell) Usable(output string) (geom.Box, bool) {
	box, ok := s.usable[output]
	return box, ok
}

func (s *Shell) rearrange(output string) {
	full, ok := s.full[output]
	if !ok {
		// Output not arranged yet, it will be once it gets a size
		return
	}
	s.ArrangeOutput(output, full)
}

// ArrangeOutput places every surface of output inside full and returns the usable area left over.
// Arrangement always starts from the full output box, so running it again without
// surface changes yields the same result
func (s *Shell) ArrangeOutput(output string, full geom.Box) geom.Box {
	s.full[output] = full
	usable := full

	// Exclusive surfaces first so the others see the reduced area
	for _, exclusive := range []bool{true, false} {
		for _, layer := range arrangeOrder {
			for _, ls := range s.surfaces[output] {
				if ls.Layer != layer || (ls.State.ExclusiveZone > 0) != exclusive {
					continue
				}
				if !ls.Mapped && ls.configured {
					continue
				}
				bounds := usable
				if ls.State.ExclusiveZone == -1 {
					bounds = full
				}
				ls.Geo = place(ls.State, bounds)
				ls.Node.SetPosition(ls.Geo.X, ls.Geo.Y)
				ls.Node.SetSize(ls.Geo.Width, ls.Geo.Height)
				s.configure(ls)
				if ls.Mapped {
					usable = reserve(usable, ls.State)
				}
			}
		}
	}

	old, had := s.usable[output]
	s.usable[output] = usable
	if (!had || old != usable) && s.OnUsableChange != nil {
		s.OnUsableChange(output, usable)
	}
	return usable
}

func (s *Shell) configure(ls *LayerSurface) {
	if ls.configured && ls.configuredW == ls.Geo.Width && ls.configuredH == ls.Geo.Height {
		return
	}
	ls.configured = true
	ls.configuredW = ls.Geo.Width
	ls.configuredH = ls.Geo.Height
	if ls.client != nil {
		ls.client.Configure(ls.Geo.Width, ls.Geo.Height)
	}
}

// place computes the surface box inside bounds from its anchors, desired size and margins
func place(st LayerState, bounds geom.Box) geom.Box {
	box := geom.Box{Width: st.Width, Height: st.Height}
	m := st.Margin

	both := AnchorLeft | AnchorRight
	switch {
	case box.Width == 0 && st.Anchor&both == both:
		box.X = bounds.X + m.Left
		box.Width = bounds.Width - m.Left - m.Right
	case st.Anchor&AnchorLeft != 0:
		box.X = bounds.X + m.Left
	case st.Anchor&AnchorRight != 0:
		box.X = bounds.Right() - box.Width - m.Right
	default:
		box.X = bounds.X + bounds.Width/2 - box.Width/2
	}

	both = AnchorTop | AnchorBottom
	switch {
	case box.Height == 0 && st.Anchor&both == both:
		box.Y = bounds.Y + m.Top
		box.Height = bounds.Height - m.Top - m.Bottom
	case st.Anchor&AnchorTop != 0:
		box.Y = bounds.Y + m.Top
	case st.Anchor&AnchorBottom != 0:
		box.Y = bounds.Bottom() - box.Height - m.Bottom
	default:
		box.Y = bounds.Y + bounds.Height/2 - box.Height/2
	}

	box.Width = max(box.Width, 0)
	box.Height = max(box.Height, 0)
	return box
}

// reserve shrinks usable by the surface's exclusive zone. Only surfaces anchored to one edge,
// optionally stretched along it, reserve space
func reserve(usable geom.Box, st LayerState) geom.Box {
	if st.ExclusiveZone <= 0 {
		return usable
	}
	zone := st.ExclusiveZone
	a := st.Anchor
	horizontal := AnchorLeft | AnchorRight
	vertical := AnchorTop | AnchorBottom

	switch {
	case a == AnchorTop || a == AnchorTop|horizontal:
		zone += st.Margin.Top
		usable.Y += zone
		usable.Height -= zone
	case a == AnchorBottom || a == AnchorBottom|horizontal:
		usable.Height -= zone + st.Margin.Bottom
	case a == AnchorLeft || a == AnchorLeft|vertical:
		zone += st.Margin.Left
		usable.X += zone
		usable.Width -= zone
	case a == AnchorRight || a == AnchorRight|vertical:
		usable.Width -= zone + st.Margin.Right
	}
	usable.Width = max(usable.Width, 0)
	usable.Height = max(usable.Height, 0)
	return usable
}

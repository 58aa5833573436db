// Copyright (c) 2024 mStar
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package scene is the desktop z-order model: a fixed stack of layers owning renderable nodes.
// The backend renderer is kept in sync through each node's Sink.
package scene

import (
	"github.com/mstarongithub/strata/geom"
)

type Layer int

// Paint order, bottom first
const (
	LayerBackground Layer = iota
	LayerBottom
	LayerWindows
	LayerTop
	LayerOverlay
	LayerFullscreen
	LayerLock
	layerCount
)

var layerNames = [layerCount]string{
	"background",
	"bottom",
	"windows",
	"top",
	"overlay",
	"fullscreen",
	"lock",
}

func (l Layer) String() string {
	if l < 0 || l >= layerCount {
		return "unknown"
	}
	return layerNames[l]
}

// Layers returns all layers in paint order
func Layers() []Layer {
	layers := make([]Layer, 0, layerCount)
	for l := LayerBackground; l < layerCount; l++ {
		layers = append(layers, l)
	}
	return layers
}

// ParseLayer resolves a requested layer name. Unknown names land in the top layer
func ParseLayer(name string) Layer {
	for l, n := range layerNames {
		if n == name {
			return Layer(l)
		}
	}
	return LayerTop
}

type NodeKind int

const (
	NodeView NodeKind = iota
	NodeLayerSurface
	NodeBorder
)

// Sink is the backend counterpart of a node
type Sink interface {
	// SetPosition moves the node, relative to its parent
	SetPosition(x, y int)
	SetEnabled(enabled bool)
	RaiseToTop()
	Destroy()
}

// Scaler is implemented by sinks that can draw their content scaled
type Scaler interface {
	SetScale(scale float64)
}

// Colorer and Sizer are implemented by sinks drawing a solid rectangle
type Colorer interface {
	SetColor(c Color)
}

type Sizer interface {
	SetSize(width, height int)
}

type Node struct {
	Kind NodeKind
	// Owner of the node, used to resolve hit test results
	Data any

	x, y          int
	width, height int
	scale         float64
	enabled       bool

	layer    Layer
	graph    *Graph
	parent   *Node
	children []*Node
	sink     Sink
}

// NewNode creates a detached, disabled node. sink may be nil
func NewNode(kind NodeKind, data any, sink Sink) *Node {
	return &Node{
		Kind:  kind,
		Data:  data,
		scale: 1,
		sink:  sink,
	}
}

func (n *Node) Layer() Layer {
	if n.parent != nil {
		return n.parent.Layer()
	}
	return n.layer
}

// Attached reports whether the node is part of a graph
func (n *Node) Attached() bool {
	if n.parent != nil {
		return n.parent.Attached()
	}
	return n.graph != nil
}

func (n *Node) Sink() Sink {
	return n.sink
}

// SetPosition moves the node. Coordinates are relative to the parent, or layout coordinates for top level nodes
func (n *Node) SetPosition(x, y int) {
	n.x = x
	n.y = y
	if n.sink != nil {
		n.sink.SetPosition(x, y)
	}
}

func (n *Node) Position() (int, int) {
	return n.x, n.y
}

// SetSize records the node size used for hit testing. Sinks drawing rectangles are resized along
func (n *Node) SetSize(width, height int) {
	n.width = width
	n.height = height
	if s, ok := n.sink.(Sizer); ok {
		s.SetSize(width, height)
	}
}

func (n *Node) Size() (int, int) {
	return n.width, n.height
}

// Box returns the unscaled node rectangle in layout coordinates
func (n *Node) Box() geom.Box {
	x, y := n.x, n.y
	for p := n.parent; p != nil; p = p.parent {
		x += p.x
		y += p.y
	}
	return geom.Box{X: x, Y: y, Width: n.width, Height: n.height}
}

// VisibleBox returns the rectangle the node covers on screen, with its scale applied
func (n *Node) VisibleBox() geom.Box {
	b := n.Box()
	b.Width = int(float64(b.Width) * n.scale)
	b.Height = int(float64(b.Height) * n.scale)
	return b
}

func (n *Node) SetEnabled(enabled bool) {
	if n.enabled == enabled {
		return
	}
	n.enabled = enabled
	if n.sink != nil {
		n.sink.SetEnabled(enabled)
	}
}

func (n *Node) Enabled() bool {
	return n.enabled
}

// Visible reports whether the node and all its parents are enabled
func (n *Node) Visible() bool {
	for p := n; p != nil; p = p.parent {
		if !p.enabled {
			return false
		}
	}
	return true
}

// SetScale sets the factor content is drawn at. 1 means unscaled
func (n *Node) SetScale(scale float64) {
	if scale <= 0 {
		scale = 1
	}
	n.scale = scale
	if s, ok := n.sink.(Scaler); ok {
		s.SetScale(scale)
	}
}

func (n *Node) Scale() float64 {
	return n.scale
}

// AddChild makes child part of n's subtree, painted above n
func (n *Node) AddChild(child *Node) {
	if child.parent != nil {
		child.parent.removeChild(child)
	}
	child.parent = n
	n.children = append(n.children, child)
}

func (n *Node) Children() []*Node {
	return n.children
}

func (n *Node) removeChild(child *Node) {
	for i, c := range n.children {
		if c == child {
			n.children = append(n.children[:i], n.children[i+1:]...)
			child.parent = nil
			return
		}
	}
}

func (n *Node) destroy() {
	for _, c := range n.children {
		c.destroy()
	}
	n.children = nil
	if n.sink != nil {
		n.sink.Destroy()
		n.sink = nil
	}
}

// Graph owns the layer stacks
type Graph struct {
	layers [layerCount][]*Node
}

func New() *Graph {
	return &Graph{}
}

// Attach puts n on top of layer. A node already attached somewhere is moved,
// so a node is always reachable from exactly one layer
func (g *Graph) Attach(layer Layer, n *Node) {
	if n.graph != nil {
		n.graph.unlink(n)
	}
	if n.parent != nil {
		n.parent.removeChild(n)
	}
	n.graph = g
	n.layer = layer
	g.layers[layer] = append(g.layers[layer], n)
	g.restack()
}

// Reparent moves an attached node to another layer, keeping it alive
func (g *Graph) Reparent(n *Node, layer Layer) {
	if n.graph != g || n.layer == layer {
		return
	}
	g.Attach(layer, n)
}

// Detach removes n from the graph and destroys it and its children
func (g *Graph) Detach(n *Node) {
	if n.parent != nil {
		n.parent.removeChild(n)
	} else if n.graph == g {
		g.unlink(n)
	}
	n.destroy()
}

func (g *Graph) unlink(n *Node) {
	nodes := g.layers[n.layer]
	for i, other := range nodes {
		if other == n {
			g.layers[n.layer] = append(nodes[:i], nodes[i+1:]...)
			break
		}
	}
	n.graph = nil
}

// RaiseToTop moves n above every other node of its layer
func (g *Graph) RaiseToTop(n *Node) {
	if n.graph != g {
		return
	}
	nodes := g.layers[n.layer]
	if len(nodes) > 0 && nodes[len(nodes)-1] == n {
		return
	}
	g.unlink(n)
	n.graph = g
	g.layers[n.layer] = append(g.layers[n.layer], n)
	g.restack()
}

// Nodes returns the nodes of layer in paint order, bottom first
func (g *Graph) Nodes(layer Layer) []*Node {
	return append([]*Node(nil), g.layers[layer]...)
}

// restack pushes the paint order to the backend. Raising every sink bottom to top
// leaves the backend in the same order as the graph
func (g *Graph) restack() {
	for _, nodes := range g.layers {
		for _, n := range nodes {
			raise(n)
		}
	}
}

func raise(n *Node) {
	if n.sink != nil {
		n.sink.RaiseToTop()
	}
	for _, c := range n.children {
		raise(c)
	}
}

// At returns the topmost visible view or layer surface node under the layout point,
// with the point translated into the node's unscaled local coordinates
func (g *Graph) At(x, y float64) (*Node, float64, float64) {
	for l := layerCount - 1; l >= 0; l-- {
		nodes := g.layers[l]
		for i := len(nodes) - 1; i >= 0; i-- {
			n := nodes[i]
			if n.Kind == NodeBorder || !n.enabled {
				continue
			}
			box := n.VisibleBox()
			if box.Contains(x, y) {
				return n, (x - float64(box.X)) / n.scale, (y - float64(box.Y)) / n.scale
			}
		}
	}
	return nil, 0, 0
}

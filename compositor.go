package chipview

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/gogpu/chipview/gpucore"
	"github.com/gogpu/gg"
	"golang.org/x/image/math/f32"
)

// frameState tracks where the compositor is in the frame sequence
// NewFrame -> Begin -> Draw* -> End.
type frameState uint8

const (
	stateReady frameState = iota
	statePass
	stateShutdown
)

func (s frameState) String() string {
	switch s {
	case stateReady:
		return "ready"
	case statePass:
		return "pass"
	case stateShutdown:
		return "shut down"
	default:
		return "invalid"
	}
}

// clearColor is the color every render pass starts from.
var clearColor = gpucore.Color{R: 0, G: 0, B: 0, A: 1}

// Compositor draws the layer meshes of a chip with per-node highlight
// state under a pannable, zoomable camera.
//
// A Compositor is created by New and lives until Shutdown. Each frame is
// driven as:
//
//	c.NewFrame(w, h)  // update camera aspect, apply highlight policy
//	// collaborators call SetNodeHighlight / SetOffset / AddScale ...
//	c.Begin()         // clear to opaque black
//	c.Draw()          // upload node states, draw visible layers
//	c.End()           // submit
//
// Calls out of this order return an error wrapping ErrContractViolation.
// A Compositor is not safe for concurrent use; drive it from the frame
// loop goroutine only.
type Compositor struct {
	dev    gpucore.Device
	res    *resources
	bounds Bounds
	policy HighlightPolicy
	camera *Camera
	cfg    blendConfig
	nodes  nodeStates
	state  frameState

	// scratch holds the encoded uniform block of the current draw.
	scratch []byte

	frame uint64
	log   *slog.Logger
}

// New creates a Compositor drawing through dev. It uploads every
// non-empty layer mesh and creates both layer pipelines and the node-state
// texture.
//
// New returns an error wrapping ErrContractViolation for a nil device or
// an invalid cfg, and one wrapping ErrResourceExhausted when the device
// or cfg.Limits cannot hold the resources. In both cases nothing is left
// allocated on dev.
func New(dev gpucore.Device, cfg *Config) (*Compositor, error) {
	if dev == nil {
		return nil, violation("New", "nil device")
	}
	c, err := cfg.validate()
	if err != nil {
		return nil, err
	}

	log := Logger()
	propagateLogger(dev, log)

	res, err := newResources(dev, &c)
	if err != nil {
		log.Warn("chipview: initialization failed", "backend", dev.Name(), "err", err)
		return nil, err
	}

	comp := &Compositor{
		dev:     dev,
		res:     res,
		bounds:  c.Bounds,
		policy:  c.HighlightPolicy,
		camera:  NewCamera(),
		cfg:     blendConfig{blend: gpucore.BlendAlpha, palette: DefaultPalette()},
		scratch: make([]byte, 0, gpucore.LayerUniformsSize),
		log:     log,
	}
	log.Info("chipview: initialized",
		"backend", dev.Name(),
		"layers", c.meshCount(),
		"bounds", fmt.Sprintf("%d,%d-%d,%d", c.Bounds.MinX, c.Bounds.MinY, c.Bounds.MaxX, c.Bounds.MaxY),
		"highlight", c.HighlightPolicy.String())
	return comp, nil
}

// Shutdown ends an open render pass, destroys every device object and
// moves the compositor to its terminal state. A second Shutdown returns
// an error wrapping ErrContractViolation.
func (c *Compositor) Shutdown() error {
	if c.state == stateShutdown {
		return violation("Shutdown", "already shut down")
	}
	var passErr error
	if c.state == statePass {
		c.log.Warn("chipview: shutdown with an open render pass")
		passErr = c.dev.EndPass()
	}
	c.res.release()
	c.state = stateShutdown
	c.log.Info("chipview: shut down", "backend", c.dev.Name(), "frames", c.frame)
	if passErr != nil {
		return fmt.Errorf("chipview: end pass on shutdown: %w", passErr)
	}
	return nil
}

// require returns a contract violation unless the compositor is in want.
func (c *Compositor) require(op string, want frameState) error {
	if c.state != want {
		return violation(op, "compositor is %s, want %s", c.state, want)
	}
	return nil
}

// alive returns a contract violation after Shutdown.
func (c *Compositor) alive(op string) error {
	if c.state == stateShutdown {
		return violation(op, "compositor is shut down")
	}
	return nil
}

// NewFrame starts a frame for a framebuffer of width x height pixels.
// It updates the camera aspect ratio and, under HighlightPerFrame, resets
// every node state to NodeStateNone.
func (c *Compositor) NewFrame(width, height float32) error {
	if err := c.require("NewFrame", stateReady); err != nil {
		return err
	}
	if !(width > 0 && height > 0) || math.IsInf(float64(width), 0) || math.IsInf(float64(height), 0) {
		return violation("NewFrame", "display size %vx%v must be positive and finite", width, height)
	}
	c.camera.BeginFrame(width, height)
	if c.policy == HighlightPerFrame {
		c.nodes.clear()
	}
	c.frame++
	return nil
}

// Begin starts a render pass that clears the target to opaque black.
func (c *Compositor) Begin() error {
	if err := c.require("Begin", stateReady); err != nil {
		return err
	}
	size := c.camera.DisplaySize()
	err := c.dev.BeginPass(gpucore.PassAction{
		ClearColor: clearColor,
		Width:      uint32(size[0]),
		Height:     uint32(size[1]),
	})
	if err != nil {
		return fmt.Errorf("chipview: begin pass: %w", err)
	}
	c.state = statePass
	return nil
}

// Draw uploads the whole node-state buffer to the lookup texture, then
// draws every visible layer that has a mesh, in ascending layer order,
// with the current palette and blend mode.
func (c *Compositor) Draw() error {
	if err := c.require("Draw", statePass); err != nil {
		return err
	}
	if err := c.dev.WriteTexture(c.res.nodeTexture, c.nodes[:]); err != nil {
		return fmt.Errorf("chipview: upload node states: %w", err)
	}
	c.dev.ApplyPipeline(c.res.pipeline(c.cfg.blend))

	draws := 0
	for i := range c.res.layers {
		m := &c.res.layers[i]
		if !m.visible || !m.hasMesh() {
			continue
		}
		if m.buffer == gpucore.InvalidID {
			panic(fmt.Sprintf("chipview: layer %d has %d elements but no buffer", i, m.elements))
		}
		c.dev.ApplyBindings(gpucore.Bindings{
			VertexBuffer: m.buffer,
			Texture:      c.res.nodeTexture,
		})
		u := c.layerUniforms(LayerIndex(i))
		c.scratch = u.Append(c.scratch[:0])
		c.dev.ApplyUniforms(c.scratch)
		c.dev.Draw(0, m.elements, 1)
		draws++
	}
	c.log.Debug("chipview: draw", "frame", c.frame, "blend", c.cfg.blend.String(), "draws", draws)
	return nil
}

// End ends the render pass and submits the frame. It does not wait for
// the device to finish.
func (c *Compositor) End() error {
	if err := c.require("End", statePass); err != nil {
		return err
	}
	c.state = stateReady
	if err := c.dev.EndPass(); err != nil {
		return fmt.Errorf("chipview: end pass: %w", err)
	}
	if err := c.dev.Commit(); err != nil {
		return fmt.Errorf("chipview: commit: %w", err)
	}
	return nil
}

// layerUniforms builds the uniform block of layer i from the current
// bounds, camera and palette.
func (c *Compositor) layerUniforms(i LayerIndex) gpucore.LayerUniforms {
	return gpucore.LayerUniforms{
		HalfSize: c.bounds.HalfSize(),
		Offset:   c.camera.Offset(),
		Scale:    c.camera.ScaleXY(),
		Color:    c.cfg.palette.vec4(i),
	}
}

// Camera returns the view transform. Picking collaborators read it to
// map pointer positions into model space.
func (c *Compositor) Camera() *Camera { return c.camera }

// Bounds returns the model-space domain the compositor was created with.
func (c *Compositor) Bounds() Bounds { return c.bounds }

// DisplaySize returns the framebuffer size of the current frame.
func (c *Compositor) DisplaySize() f32.Vec2 { return c.camera.DisplaySize() }

// Offset returns the camera pan offset.
func (c *Compositor) Offset() f32.Vec2 { return c.camera.Offset() }

// SetOffset replaces the camera pan offset.
func (c *Compositor) SetOffset(o f32.Vec2) { c.camera.SetOffset(o) }

// Aspect returns the camera aspect ratio.
func (c *Compositor) Aspect() float32 { return c.camera.Aspect() }

// Scale returns the camera zoom factor.
func (c *Compositor) Scale() float32 { return c.camera.Scale() }

// AddScale zooms by delta, clamped to [MinScale, MaxScale].
func (c *Compositor) AddScale(delta float32) { c.camera.AddScale(delta) }

// ScreenToModel maps a framebuffer pixel to model units using the
// compositor's bounds and camera.
func (c *Compositor) ScreenToModel(p gg.Point) gg.Point {
	return c.camera.ScreenToModel(c.bounds, p)
}

// SetLayerPalette replaces the palette and the blend mode together.
func (c *Compositor) SetLayerPalette(blend gpucore.BlendMode, p Palette) error {
	if err := c.alive("SetLayerPalette"); err != nil {
		return err
	}
	if blend != gpucore.BlendAlpha && blend != gpucore.BlendAdditive {
		return violation("SetLayerPalette", "unknown blend mode %d", blend)
	}
	c.cfg = blendConfig{blend: blend, palette: p}
	return nil
}

// LayerPalette returns the current blend mode and palette.
func (c *Compositor) LayerPalette() (gpucore.BlendMode, Palette) {
	return c.cfg.blend, c.cfg.palette
}

// ToggleLayerVisibility flips whether layer i is drawn.
func (c *Compositor) ToggleLayerVisibility(i LayerIndex) error {
	m, err := c.layer("ToggleLayerVisibility", i)
	if err != nil {
		return err
	}
	m.visible = !m.visible
	return nil
}

// LayerVisible reports whether layer i is drawn.
func (c *Compositor) LayerVisible(i LayerIndex) (bool, error) {
	m, err := c.layer("LayerVisible", i)
	if err != nil {
		return false, err
	}
	return m.visible, nil
}

// LayerElements returns the number of vertices of layer i, zero for an
// empty slot.
func (c *Compositor) LayerElements(i LayerIndex) (uint32, error) {
	m, err := c.layer("LayerElements", i)
	if err != nil {
		return 0, err
	}
	return m.elements, nil
}

func (c *Compositor) layer(op string, i LayerIndex) (*layerMesh, error) {
	if err := c.alive(op); err != nil {
		return nil, err
	}
	if !i.Valid() {
		return nil, violation(op, "layer index %d out of range [0, %d)", i, MaxLayers)
	}
	return &c.res.layers[i], nil
}

// SetNodeHighlight marks node i as highlighted. Under HighlightSticky the
// highlight stays until the node state is overwritten.
func (c *Compositor) SetNodeHighlight(i NodeIndex) error {
	return c.setNodeState("SetNodeHighlight", i, NodeStateHighlighted)
}

// SetNodeState sets the state code of node i.
func (c *Compositor) SetNodeState(i NodeIndex, s NodeState) error {
	return c.setNodeState("SetNodeState", i, s)
}

func (c *Compositor) setNodeState(op string, i NodeIndex, s NodeState) error {
	if err := c.alive(op); err != nil {
		return err
	}
	if !i.Valid() {
		return violation(op, "node index %d out of range [0, %d)", i, MaxNodes)
	}
	c.nodes[i] = byte(s)
	return nil
}

// NodeState returns the state code of node i.
func (c *Compositor) NodeState(i NodeIndex) (NodeState, error) {
	if err := c.alive("NodeState"); err != nil {
		return NodeStateNone, err
	}
	if !i.Valid() {
		return NodeStateNone, violation("NodeState", "node index %d out of range [0, %d)", i, MaxNodes)
	}
	return NodeState(c.nodes[i]), nil
}

// ClearNodeStates resets every node to NodeStateNone.
func (c *Compositor) ClearNodeStates() error {
	if err := c.alive("ClearNodeStates"); err != nil {
		return err
	}
	c.nodes.clear()
	return nil
}

// NodeStates returns the live node-state buffer, MaxNodes bytes, one
// NodeState code per node. Writes through the slice are uploaded by the
// next Draw. The slice must not be used after Shutdown, which returns nil.
func (c *Compositor) NodeStates() []byte {
	if c.state == stateShutdown {
		return nil
	}
	return c.nodes[:]
}

// Frame returns the number of frames started with NewFrame.
func (c *Compositor) Frame() uint64 { return c.frame }

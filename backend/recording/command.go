// Package recording provides a gpucore.Device that records device calls.
//
// The recording device draws nothing. Every call becomes a typed
// [Command] in an in-memory log, so tests and dry runs can inspect the
// exact sequence a compositor issues: which pipeline was applied, which
// layers were bound, what uniform block each draw saw and what the
// node-state upload contained.
//
// # Example
//
//	dev := recording.New(recording.Options{})
//	c, _ := chipview.New(dev, cfg)
//	c.NewFrame(800, 600)
//	c.Begin()
//	c.Draw()
//	c.End()
//	for _, cmd := range dev.Commands() {
//		fmt.Println(cmd)
//	}
//
// Resource exhaustion and backend failures can be injected with
// [Options.Capacity] and [Options.FailOp].
package recording

import (
	"fmt"

	"github.com/gogpu/chipview/gpucore"
)

// Op identifies the device call a Command records.
type Op uint8

const (
	OpNone Op = iota

	// Resource commands
	OpCreateBuffer
	OpDestroyBuffer
	OpCreatePipeline
	OpDestroyPipeline
	OpCreateTexture
	OpDestroyTexture
	OpWriteTexture

	// Pass commands
	OpBeginPass
	OpApplyPipeline
	OpApplyBindings
	OpApplyUniforms
	OpDraw
	OpEndPass
	OpCommit
)

// opNames maps Op values to their string representation.
var opNames = [...]string{
	OpNone:            "None",
	OpCreateBuffer:    "CreateBuffer",
	OpDestroyBuffer:   "DestroyBuffer",
	OpCreatePipeline:  "CreatePipeline",
	OpDestroyPipeline: "DestroyPipeline",
	OpCreateTexture:   "CreateTexture",
	OpDestroyTexture:  "DestroyTexture",
	OpWriteTexture:    "WriteTexture",
	OpBeginPass:       "BeginPass",
	OpApplyPipeline:   "ApplyPipeline",
	OpApplyBindings:   "ApplyBindings",
	OpApplyUniforms:   "ApplyUniforms",
	OpDraw:            "Draw",
	OpEndPass:         "EndPass",
	OpCommit:          "Commit",
}

// String returns the name of the op.
func (o Op) String() string {
	if int(o) < len(opNames) {
		return opNames[o]
	}
	return fmt.Sprintf("Op(%d)", uint8(o))
}

// Command is one recorded device call. Only the fields relevant to Op
// are set.
type Command struct {
	Op    Op
	Label string

	// ID is the resource the command creates, destroys or uses. For
	// ApplyBindings it is the vertex buffer.
	ID uint64

	// Texture is the texture bound by ApplyBindings.
	Texture uint64

	// Blend is the blend mode of CreatePipeline.
	Blend gpucore.BlendMode

	// Data is a copy of buffer, texture or uniform bytes.
	Data []byte

	// Clear, Width and Height describe BeginPass.
	Clear  gpucore.Color
	Width  uint32
	Height uint32

	// Base, Count and Instances describe Draw. CreateTexture stores the
	// texture byte size in Count.
	Base      uint32
	Count     uint32
	Instances uint32
}

// Uniforms decodes Data of an ApplyUniforms command.
func (c *Command) Uniforms() (gpucore.LayerUniforms, error) {
	if c.Op != OpApplyUniforms {
		return gpucore.LayerUniforms{}, fmt.Errorf("recording: %s carries no uniforms", c.Op)
	}
	return gpucore.DecodeLayerUniforms(c.Data)
}

// String returns a short human-readable description.
func (c Command) String() string {
	switch c.Op {
	case OpDraw:
		return fmt.Sprintf("Draw(%d, %d, %d)", c.Base, c.Count, c.Instances)
	case OpBeginPass:
		return fmt.Sprintf("BeginPass(%dx%d)", c.Width, c.Height)
	case OpApplyUniforms, OpWriteTexture, OpCreateBuffer:
		return fmt.Sprintf("%s(%q, %d bytes)", c.Op, c.Label, len(c.Data))
	case OpEndPass, OpCommit:
		return c.Op.String()
	default:
		return fmt.Sprintf("%s(%q)", c.Op, c.Label)
	}
}

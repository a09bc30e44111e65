package gpucore

import "errors"

// ErrResourceExhausted is returned (wrapped) when a device or a resource
// pool cannot hold another object. It is recoverable: the caller may free
// resources or pick smaller inputs and retry.
var ErrResourceExhausted = errors.New("gpucore: resource exhausted")

// Device abstracts over the graphics backends able to draw layer meshes.
//
// The interface is deliberately small: immutable vertex buffers, two kinds
// of pipeline, one streaming lookup texture, and a sokol-style immediate
// draw sequence inside a single render pass. Implementations are driven
// from one goroutine (the host frame loop) and need no internal locking
// for that use.
//
// Resource lifecycle:
//   - Resources are created via Create* methods
//   - Resources must be explicitly destroyed via Destroy* methods
//   - Destroying a resource while in use is undefined behavior
//   - IDs become invalid after destruction and must not be reused
//
// Pass lifecycle:
//
//	BeginPass -> (ApplyPipeline | ApplyBindings | ApplyUniforms | Draw)* -> EndPass -> Commit
//
// Apply* and Draw never fail synchronously. A device that cannot honour
// one of them remembers the first failure and reports it from EndPass.
type Device interface {
	// Name returns the backend identifier (e.g., "native", "software").
	Name() string

	// CreateVertexBuffer creates an immutable vertex buffer holding data.
	CreateVertexBuffer(label string, data []byte) (BufferID, error)

	// DestroyBuffer releases a vertex buffer.
	DestroyBuffer(id BufferID)

	// CreateRenderPipeline creates a triangle-list pipeline running the
	// backend's layer shader with the requested blend equation.
	CreateRenderPipeline(desc *RenderPipelineDesc) (RenderPipelineID, error)

	// DestroyRenderPipeline releases a render pipeline.
	DestroyRenderPipeline(id RenderPipelineID)

	// CreateTexture creates a sampled texture. Stream textures start
	// zero-filled.
	CreateTexture(desc *TextureDesc) (TextureID, error)

	// DestroyTexture releases a texture.
	DestroyTexture(id TextureID)

	// WriteTexture replaces the full contents of a texture. len(data) must
	// equal the texture's byte size.
	WriteTexture(id TextureID, data []byte) error

	// BeginPass starts a render pass that clears the color target.
	BeginPass(action PassAction) error

	// ApplyPipeline selects the pipeline for subsequent draws.
	ApplyPipeline(id RenderPipelineID)

	// ApplyBindings selects the vertex buffer and lookup texture.
	ApplyBindings(b Bindings)

	// ApplyUniforms sets the uniform block for the next draw. data is
	// copied; the caller may reuse it immediately.
	ApplyUniforms(data []byte)

	// Draw issues a non-indexed triangle draw of count elements starting
	// at base.
	Draw(base, count, instances uint32)

	// EndPass ends the render pass and reports the first error recorded
	// since BeginPass.
	EndPass() error

	// Commit submits the recorded frame. It does not wait for completion.
	Commit() error
}

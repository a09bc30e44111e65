package software

import (
	"bytes"
	"errors"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gogpu/chipview"
	"github.com/gogpu/chipview/gpucore"
	"golang.org/x/image/math/f32"
)

const (
	fbW = 32
	fbH = 24
)

// fullScreen maps the unorm16 domain [0,1] onto clip space [-1,1].
func fullScreen(c f32.Vec4) []byte {
	u := gpucore.LayerUniforms{
		HalfSize: f32.Vec2{0.5, 0.5},
		Scale:    f32.Vec2{2, 2},
		Color:    c,
	}
	return u.Append(nil)
}

// quad returns two triangles covering the domain, addressing texel node
// of a width-texel lookup texture.
func quad(node, width int) []byte {
	tc := gpucore.TexelCenter(node, width)
	var b []byte
	for _, p := range [][2]uint16{{0, 0}, {65535, 0}, {65535, 65535}, {0, 0}, {65535, 65535}, {0, 65535}} {
		b = gpucore.Vertex{X: p[0], Y: p[1], U: tc, V: 32768}.Append(b)
	}
	return b
}

type fixture struct {
	dev   *Device
	alpha gpucore.RenderPipelineID
	add   gpucore.RenderPipelineID
	tex   gpucore.TextureID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	d := New(Options{Width: fbW, Height: fbH})
	t.Cleanup(func() { _ = d.Close() })

	f := &fixture{dev: d}
	var err error
	if f.alpha, err = d.CreateRenderPipeline(&gpucore.RenderPipelineDesc{Blend: gpucore.BlendAlpha, Layout: gpucore.LayerVertexLayout()}); err != nil {
		t.Fatal(err)
	}
	if f.add, err = d.CreateRenderPipeline(&gpucore.RenderPipelineDesc{Blend: gpucore.BlendAdditive, Layout: gpucore.LayerVertexLayout()}); err != nil {
		t.Fatal(err)
	}
	if f.tex, err = d.CreateTexture(&gpucore.TextureDesc{Width: 4, Height: 1, Format: gpucore.TextureFormatR8Unorm}); err != nil {
		t.Fatal(err)
	}
	return f
}

// frame draws mesh once per uniform block with pipe and returns the
// framebuffer pixel at (x, y).
func (f *fixture) frame(t *testing.T, pipe gpucore.RenderPipelineID, mesh []byte, x, y int, uniforms ...[]byte) color.RGBA {
	t.Helper()
	buf, err := f.dev.CreateVertexBuffer("mesh", mesh)
	if err != nil {
		t.Fatal(err)
	}
	defer f.dev.DestroyBuffer(buf)

	if err := f.dev.BeginPass(gpucore.PassAction{ClearColor: gpucore.Color{A: 1}}); err != nil {
		t.Fatal(err)
	}
	f.dev.ApplyPipeline(pipe)
	f.dev.ApplyBindings(gpucore.Bindings{VertexBuffer: buf, Texture: f.tex})
	for _, u := range uniforms {
		f.dev.ApplyUniforms(u)
		f.dev.Draw(0, uint32(len(mesh)/gpucore.VertexStride), 1)
	}
	if err := f.dev.EndPass(); err != nil {
		t.Fatal(err)
	}
	if err := f.dev.Commit(); err != nil {
		t.Fatal(err)
	}
	return f.dev.Image().RGBAAt(x, y)
}

func near(got, want uint8) bool {
	d := int(got) - int(want)
	return d >= -1 && d <= 1
}

func TestAlphaBlend(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name  string
		color f32.Vec4
		want  color.RGBA
	}{
		{"opaque red", f32.Vec4{1, 0, 0, 1}, color.RGBA{255, 0, 0, 255}},
		{"half green", f32.Vec4{0, 1, 0, 0.5}, color.RGBA{0, 128, 0, 255}},
		{"transparent", f32.Vec4{0, 0, 1, 0}, color.RGBA{0, 0, 0, 255}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := f.frame(t, f.alpha, quad(1, 4), fbW/2, fbH/2, fullScreen(tt.color))
			if !near(got.R, tt.want.R) || !near(got.G, tt.want.G) || !near(got.B, tt.want.B) || got.A != tt.want.A {
				t.Errorf("pixel = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAdditiveBlend(t *testing.T) {
	f := newFixture(t)
	half := fullScreen(f32.Vec4{0.5, 0, 0, 1})

	got := f.frame(t, f.add, quad(0, 4), fbW/2, fbH/2, half)
	if !near(got.R, 128) {
		t.Errorf("one draw: R = %d, want 128", got.R)
	}
	got = f.frame(t, f.add, quad(0, 4), fbW/2, fbH/2, half, half)
	if got.R < 254 {
		t.Errorf("two draws: R = %d, want 255", got.R)
	}
	// Alpha scales the added color.
	got = f.frame(t, f.add, quad(0, 4), fbW/2, fbH/2, fullScreen(f32.Vec4{1, 0, 0, 0.25}))
	if !near(got.R, 64) {
		t.Errorf("quarter alpha: R = %d, want 64", got.R)
	}
}

func TestOverlappingTriangles(t *testing.T) {
	f := newFixture(t)
	tri := func(pts ...[2]uint16) []byte {
		var b []byte
		for _, p := range pts {
			b = gpucore.Vertex{X: p[0], Y: p[1], U: gpucore.TexelCenter(0, 4), V: 32768}.Append(b)
		}
		return b
	}
	ccw := tri([2]uint16{0, 0}, [2]uint16{65535, 0}, [2]uint16{0, 65535})
	cw := tri([2]uint16{0, 0}, [2]uint16{0, 65535}, [2]uint16{65535, 0})

	tests := []struct {
		name  string
		mesh  []byte
		pipe  gpucore.RenderPipelineID
		color f32.Vec4
		want  uint8
	}{
		{"additive mixed winding", append(append([]byte{}, ccw...), cw...), f.add, f32.Vec4{1, 0, 0, 0.25}, 128},
		{"additive same winding", append(append([]byte{}, ccw...), ccw...), f.add, f32.Vec4{1, 0, 0, 0.25}, 128},
		{"alpha mixed winding", append(append([]byte{}, cw...), ccw...), f.alpha, f32.Vec4{1, 0, 0, 0.5}, 192},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := f.frame(t, tt.pipe, tt.mesh, 2, fbH-3, fullScreen(tt.color))
			if !near(got.R, tt.want) {
				t.Errorf("R = %d, want %d", got.R, tt.want)
			}
		})
	}
}

func TestNodeStateHighlight(t *testing.T) {
	f := newFixture(t)
	states := []byte{0, 0, 0xFF, 0x80}
	if err := f.dev.WriteTexture(f.tex, states); err != nil {
		t.Fatal(err)
	}
	red := fullScreen(f32.Vec4{1, 0, 0, 1})

	if got := f.frame(t, f.alpha, quad(1, 4), fbW/2, fbH/2, red); got != (color.RGBA{255, 0, 0, 255}) {
		t.Errorf("no state: %v", got)
	}
	if got := f.frame(t, f.alpha, quad(2, 4), fbW/2, fbH/2, red); got != (color.RGBA{255, 255, 255, 255}) {
		t.Errorf("highlighted: %v", got)
	}
	got := f.frame(t, f.alpha, quad(3, 4), fbW/2, fbH/2, red)
	if got.R != 255 || !near(got.G, 128) || !near(got.B, 128) {
		t.Errorf("active: %v, want halfway to white", got)
	}
}

func TestScreenOrientation(t *testing.T) {
	f := newFixture(t)
	// Lower-left half of the domain: model y up, screen y down.
	var mesh []byte
	for _, p := range [][2]uint16{{0, 0}, {65535, 0}, {0, 65535}} {
		mesh = gpucore.Vertex{X: p[0], Y: p[1], U: gpucore.TexelCenter(0, 4), V: 32768}.Append(mesh)
	}
	red := fullScreen(f32.Vec4{1, 0, 0, 1})

	if got := f.frame(t, f.alpha, mesh, 2, fbH-3, red); got.R != 255 {
		t.Errorf("bottom-left pixel = %v, want red", got)
	}
	if got := f.frame(t, f.alpha, mesh, fbW-3, 2, red); got.R != 0 {
		t.Errorf("top-right pixel = %v, want background", got)
	}
}

func TestPassErrors(t *testing.T) {
	f := newFixture(t)
	d := f.dev

	if err := d.EndPass(); !errors.Is(err, ErrPassState) {
		t.Errorf("EndPass outside pass = %v", err)
	}
	buf, err := d.CreateVertexBuffer("tri", quad(0, 4)[:3*gpucore.VertexStride])
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		run  func()
		want string
	}{
		{"unknown pipeline", func() { d.ApplyPipeline(77) }, "pipeline 77"},
		{"unknown texture", func() { d.ApplyBindings(gpucore.Bindings{VertexBuffer: buf, Texture: 99}) }, "texture 99"},
		{"no pipeline", func() { d.Draw(0, 3, 1) }, "without a pipeline"},
		{"out of range", func() {
			d.ApplyPipeline(f.alpha)
			d.ApplyBindings(gpucore.Bindings{VertexBuffer: buf, Texture: f.tex})
			d.ApplyUniforms(fullScreen(f32.Vec4{}))
			d.Draw(0, 6, 1)
		}, "exceeds 3 vertices"},
		{"short uniforms", func() {
			d.ApplyPipeline(f.alpha)
			d.ApplyBindings(gpucore.Bindings{VertexBuffer: buf, Texture: f.tex})
			d.ApplyUniforms([]byte{1, 2})
			d.Draw(0, 3, 1)
		}, "uniform block is 2 bytes"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := d.BeginPass(gpucore.PassAction{}); err != nil {
				t.Fatal(err)
			}
			tt.run()
			err := d.EndPass()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("EndPass = %v, want %q", err, tt.want)
			}
			if err := d.Commit(); err != nil {
				t.Errorf("Commit = %v", err)
			}
		})
	}
	if d.Frames() != 0 {
		t.Errorf("failed passes committed %d frames", d.Frames())
	}
}

func TestResourceValidation(t *testing.T) {
	d := New(Options{})
	if _, err := d.CreateVertexBuffer("odd", make([]byte, 5)); err == nil {
		t.Error("odd-sized vertex buffer accepted")
	}
	if _, err := d.CreateRenderPipeline(&gpucore.RenderPipelineDesc{Blend: 5, Layout: gpucore.LayerVertexLayout()}); err == nil {
		t.Error("unknown blend accepted")
	}
	if _, err := d.CreateTexture(&gpucore.TextureDesc{Width: 4, Height: 1}); err == nil {
		t.Error("texture without format accepted")
	}
	if err := d.WriteTexture(3, nil); !errors.Is(err, ErrUnknownResource) {
		t.Errorf("WriteTexture unknown = %v", err)
	}
	if err := d.BeginPass(gpucore.PassAction{}); err == nil {
		t.Error("BeginPass without any size succeeded")
	}
	if d.Image() != nil {
		t.Error("Image before first pass is not nil")
	}
	if err := d.Close(); err != nil {
		t.Fatal(err)
	}
	if _, err := d.CreateVertexBuffer("late", quad(0, 4)); !errors.Is(err, ErrClosed) {
		t.Errorf("create after Close = %v", err)
	}
}

func TestCompositorFrame(t *testing.T) {
	dev := New(Options{})
	t.Cleanup(func() { _ = dev.Close() })

	cfg := &chipview.Config{Bounds: chipview.Bounds{MaxX: 8192, MaxY: 8192}}
	var mesh []byte
	for _, p := range [][2]uint16{{0, 0}, {8192, 0}, {4096, 8192}} {
		mesh = chipview.AppendVertex(mesh, p[0], p[1], 5)
	}
	cfg.LayerVertices[0] = mesh

	c, err := chipview.New(dev, cfg)
	if err != nil {
		t.Fatal(err)
	}
	if err := c.SetNodeHighlight(5); err != nil {
		t.Fatal(err)
	}
	if err := c.NewFrame(64, 64); err != nil {
		t.Fatal(err)
	}
	if err := c.Begin(); err != nil {
		t.Fatal(err)
	}
	if err := c.Draw(); err != nil {
		t.Fatal(err)
	}
	if err := c.End(); err != nil {
		t.Fatal(err)
	}
	if dev.Frames() != 1 {
		t.Errorf("Frames() = %d", dev.Frames())
	}

	// Highlighted nodes render white somewhere in the frame.
	img := dev.Image()
	white := false
	for i := 0; i+3 < len(img.Pix) && !white; i += 4 {
		white = img.Pix[i] == 255 && img.Pix[i+1] == 255 && img.Pix[i+2] == 255
	}
	if !white {
		t.Error("highlighted mesh not drawn white")
	}

	var png bytes.Buffer
	if err := dev.EncodePNG(&png); err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(png.Bytes(), []byte("\x89PNG")) {
		t.Error("EncodePNG output is not a PNG")
	}
	path := filepath.Join(t.TempDir(), "chip.png")
	if err := dev.SavePNG(path); err != nil {
		t.Fatal(err)
	}
	if fi, err := os.Stat(path); err != nil || fi.Size() == 0 {
		t.Errorf("SavePNG wrote nothing: %v", err)
	}

	if err := c.Shutdown(); err != nil {
		t.Fatal(err)
	}
	if dev.Live() != 0 {
		t.Errorf("Live() after Shutdown = %d", dev.Live())
	}
}

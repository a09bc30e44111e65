package main

import (
	"math"
	"strings"
	"testing"

	"github.com/gogpu/chipview"
	"github.com/gogpu/chipview/gpucore"
)

func TestParseViewer(t *testing.T) {
	v, err := ParseViewer([]byte(`
bounds: {min_x: 1, min_y: 2, max_x: 300, max_y: 400}
palette:
  blend: additive
  colors: ["#112233", "#44556680"]
highlight: per_frame
`))
	if err != nil {
		t.Fatal(err)
	}
	cfg, err := v.config()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Bounds != (chipview.Bounds{MinX: 1, MinY: 2, MaxX: 300, MaxY: 400}) {
		t.Errorf("bounds = %+v", cfg.Bounds)
	}
	if cfg.HighlightPolicy != chipview.HighlightPerFrame {
		t.Errorf("policy = %v", cfg.HighlightPolicy)
	}
	if b, _ := v.blend(); b != gpucore.BlendAdditive {
		t.Errorf("blend = %v", b)
	}

	p, err := v.palette()
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(p[0].R-0x11/255.0) > 1e-9 || p[0].A != 1 {
		t.Errorf("color 0 = %+v", p[0])
	}
	if math.Abs(p[1].A-0x80/255.0) > 1e-9 {
		t.Errorf("color 1 alpha = %v", p[1].A)
	}
	if p[2] != chipview.DefaultPalette()[2] {
		t.Errorf("unlisted color changed: %+v", p[2])
	}
}

func TestViewerDefaults(t *testing.T) {
	v, err := ParseViewer(nil)
	if err != nil {
		t.Fatal(err)
	}
	cfg, err := v.config()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.HighlightPolicy != chipview.HighlightSticky {
		t.Errorf("policy = %v", cfg.HighlightPolicy)
	}
	for i, data := range cfg.LayerVertices {
		if len(data) == 0 {
			t.Errorf("test pattern layer %d is empty", i)
		}
	}
	if b, _ := v.blend(); b != gpucore.BlendAlpha {
		t.Errorf("blend = %v", b)
	}
}

func TestViewerErrors(t *testing.T) {
	tests := []struct {
		name string
		yml  string
		want string
	}{
		{"bad yaml", "layers: [", "parse viewer"},
		{"too many layers", "layers: [a, b, c, d, e, f, g]", "at most 6"},
		{"too many colors", `palette: {colors: ["#000000", "#000000", "#000000", "#000000", "#000000", "#000000", "#000000"]}`, "at most 6"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseViewer([]byte(tt.yml))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("err = %v, want %q", err, tt.want)
			}
		})
	}

	semantic := []struct {
		name string
		yml  string
		run  func(*Viewer) error
		want string
	}{
		{"blend", "palette: {blend: multiply}", func(v *Viewer) error { _, err := v.blend(); return err }, "unknown blend"},
		{"color length", `palette: {colors: ["#12345"]}`, func(v *Viewer) error { _, err := v.palette(); return err }, "want #rrggbb"},
		{"color digit", `palette: {colors: ["#12345z"]}`, func(v *Viewer) error { _, err := v.palette(); return err }, "invalid hex digit"},
		{"policy", "highlight: sometimes", func(v *Viewer) error { _, err := v.config(); return err }, "unknown highlight policy"},
		{"layers without bounds", "layers: [a.bin]", func(v *Viewer) error { _, err := v.config(); return err }, "no bounds"},
		{"missing layer file", "layers: [missing.bin]\nbounds: {max_x: 1, max_y: 1}", func(v *Viewer) error { _, err := v.config(); return err }, "layer 0"},
	}
	for _, tt := range semantic {
		t.Run(tt.name, func(t *testing.T) {
			v, err := ParseViewer([]byte(tt.yml))
			if err != nil {
				t.Fatal(err)
			}
			v.dir = t.TempDir()
			if err := tt.run(v); err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("err = %v, want %q", err, tt.want)
			}
		})
	}
}

func TestTestPatternFitsLimits(t *testing.T) {
	cfg := testPattern()
	for i, data := range cfg.LayerVertices {
		if len(data)%gpucore.VertexStride != 0 {
			t.Errorf("layer %d has %d bytes", i, len(data))
		}
		for off := 0; off < len(data); off += gpucore.VertexStride {
			v := gpucore.DecodeVertex(data[off:])
			if v.X > cfg.Bounds.MaxX || v.Y > cfg.Bounds.MaxY {
				t.Fatalf("layer %d vertex (%d, %d) outside bounds", i, v.X, v.Y)
			}
			if n := chipview.VertexNode(data[off:]); !n.Valid() {
				t.Fatalf("layer %d vertex addresses node %d", i, n)
			}
		}
	}
}

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gogpu/chipview"
	"github.com/gogpu/chipview/gpucore"
	"github.com/gogpu/gg"
	"gopkg.in/yaml.v3"
)

// maxViewerSize caps the viewer file size.
const maxViewerSize = 1024 * 1024

// Viewer is the YAML viewer file.
type Viewer struct {
	// Layers lists baked vertex blobs, one per layer slot. Relative paths
	// resolve against the viewer file's directory.
	Layers []string `yaml:"layers"`

	Bounds    *ViewerBounds `yaml:"bounds"`
	Palette   ViewerPalette `yaml:"palette"`
	Highlight string        `yaml:"highlight"` // sticky | per_frame

	// Hidden lists layer slots toggled off before the first frame.
	Hidden []int `yaml:"hidden"`

	Camera ViewerCamera `yaml:"camera"`

	dir string
}

// ViewerBounds is the model domain of the layer blobs.
type ViewerBounds struct {
	MinX uint16 `yaml:"min_x"`
	MinY uint16 `yaml:"min_y"`
	MaxX uint16 `yaml:"max_x"`
	MaxY uint16 `yaml:"max_y"`
}

// ViewerPalette selects the blend mode and per-layer colors.
type ViewerPalette struct {
	Blend  string   `yaml:"blend"`  // alpha | additive
	Colors []string `yaml:"colors"` // "#rrggbb" or "#rrggbbaa"
}

// ViewerCamera sets the initial view.
type ViewerCamera struct {
	Scale  *float32   `yaml:"scale"`
	Offset *[2]float32 `yaml:"offset"`
}

// LoadViewer reads and parses a viewer file.
func LoadViewer(path string) (*Viewer, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.Size() > maxViewerSize {
		return nil, fmt.Errorf("viewer file %s is %d bytes, limit %d", path, info.Size(), maxViewerSize)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	v, err := ParseViewer(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	v.dir = filepath.Dir(path)
	return v, nil
}

// ParseViewer parses viewer YAML.
func ParseViewer(data []byte) (*Viewer, error) {
	var v Viewer
	if err := yaml.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("parse viewer: %w", err)
	}
	if len(v.Layers) > chipview.MaxLayers {
		return nil, fmt.Errorf("viewer lists %d layers, at most %d", len(v.Layers), chipview.MaxLayers)
	}
	if len(v.Palette.Colors) > chipview.MaxLayers {
		return nil, fmt.Errorf("palette lists %d colors, at most %d", len(v.Palette.Colors), chipview.MaxLayers)
	}
	return &v, nil
}

// blend returns the palette blend mode; empty means alpha.
func (v *Viewer) blend() (gpucore.BlendMode, error) {
	switch v.Palette.Blend {
	case "", "alpha":
		return gpucore.BlendAlpha, nil
	case "additive":
		return gpucore.BlendAdditive, nil
	default:
		return 0, fmt.Errorf("unknown blend %q", v.Palette.Blend)
	}
}

// palette returns the default palette with the listed colors applied in
// layer order.
func (v *Viewer) palette() (chipview.Palette, error) {
	p := chipview.DefaultPalette()
	for i, s := range v.Palette.Colors {
		c, err := parseColor(s)
		if err != nil {
			return p, fmt.Errorf("palette color %d: %w", i, err)
		}
		p[i] = c
	}
	return p, nil
}

// parseColor accepts #rrggbb and #rrggbbaa.
func parseColor(s string) (gg.RGBA, error) {
	hex := strings.TrimPrefix(s, "#")
	if len(hex) != 6 && len(hex) != 8 {
		return gg.RGBA{}, fmt.Errorf("color %q: want #rrggbb or #rrggbbaa", s)
	}
	for _, r := range hex {
		if !strings.ContainsRune("0123456789abcdefABCDEF", r) {
			return gg.RGBA{}, fmt.Errorf("color %q: invalid hex digit %q", s, r)
		}
	}
	return gg.Hex(hex), nil
}

func (v *Viewer) policy() (chipview.HighlightPolicy, error) {
	switch v.Highlight {
	case "", chipview.HighlightSticky.String():
		return chipview.HighlightSticky, nil
	case chipview.HighlightPerFrame.String():
		return chipview.HighlightPerFrame, nil
	default:
		return 0, fmt.Errorf("unknown highlight policy %q", v.Highlight)
	}
}

// config builds the compositor config. Without layer files the test
// pattern fills all six slots.
func (v *Viewer) config() (*chipview.Config, error) {
	policy, err := v.policy()
	if err != nil {
		return nil, err
	}
	if len(v.Layers) == 0 {
		cfg := testPattern()
		cfg.HighlightPolicy = policy
		if v.Bounds != nil {
			cfg.Bounds = chipview.Bounds(*v.Bounds)
		}
		return cfg, nil
	}

	if v.Bounds == nil {
		return nil, fmt.Errorf("viewer lists layer files but no bounds")
	}
	cfg := &chipview.Config{
		Bounds:          chipview.Bounds(*v.Bounds),
		HighlightPolicy: policy,
	}
	for i, name := range v.Layers {
		if name == "" {
			continue
		}
		if !filepath.IsAbs(name) {
			name = filepath.Join(v.dir, name)
		}
		data, err := os.ReadFile(name)
		if err != nil {
			return nil, fmt.Errorf("layer %d: %w", i, err)
		}
		cfg.LayerVertices[i] = data
	}
	return cfg, nil
}

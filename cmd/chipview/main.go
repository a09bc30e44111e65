// Command chipview renders baked chip layer meshes headlessly.
//
// It loads a YAML viewer file (or synthesizes a six-layer test pattern),
// drives a number of frames through the chosen backend and can write the
// last frame as a PNG:
//
//	chipview -backend software -highlight 3,17 -o chip.png
//	chipview -config viewer.yaml -backend native -frames 60 -v
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/gogpu/chipview"
	"github.com/gogpu/chipview/backend"
	_ "github.com/gogpu/chipview/backend/native"
	"github.com/gogpu/chipview/backend/recording"
	"github.com/gogpu/chipview/backend/software"
	"github.com/gogpu/chipview/gpucore"
	"github.com/gogpu/gg"
	"golang.org/x/image/math/f32"
)

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		log.Fatalf("chipview: %v", err)
	}
}

type options struct {
	config    string
	backend   string
	width     int
	height    int
	frames    int
	highlight string
	additive  bool
	output    string
	verbose   bool
}

func parseFlags(args []string, stderr io.Writer) (*options, error) {
	fs := flag.NewFlagSet("chipview", flag.ContinueOnError)
	fs.SetOutput(stderr)

	o := &options{}
	fs.StringVar(&o.config, "config", "", "viewer YAML file")
	fs.StringVar(&o.backend, "backend", "", "backend: "+strings.Join([]string{backend.Native, backend.Software, backend.Recording}, "|")+" (default: best available)")
	fs.IntVar(&o.width, "width", 800, "framebuffer width")
	fs.IntVar(&o.height, "height", 600, "framebuffer height")
	fs.IntVar(&o.frames, "frames", 1, "number of frames to render")
	fs.StringVar(&o.highlight, "highlight", "", "comma-separated node indices to highlight")
	fs.BoolVar(&o.additive, "additive", false, "use additive blending")
	fs.StringVar(&o.output, "o", "", "write the last frame to this PNG file")
	fs.BoolVar(&o.verbose, "v", false, "debug logging")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if o.width <= 0 || o.height <= 0 {
		return nil, fmt.Errorf("invalid size %dx%d", o.width, o.height)
	}
	if o.frames < 1 {
		return nil, fmt.Errorf("-frames must be at least 1, got %d", o.frames)
	}
	return o, nil
}

func parseNodes(s string) ([]chipview.NodeIndex, error) {
	if s == "" {
		return nil, nil
	}
	var nodes []chipview.NodeIndex
	for _, f := range strings.Split(s, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(f))
		if err != nil {
			return nil, fmt.Errorf("highlight %q: %w", f, err)
		}
		nodes = append(nodes, chipview.NodeIndex(n))
	}
	return nodes, nil
}

func openDevice(o *options) (gpucore.Device, error) {
	opts := backend.Options{Width: o.width, Height: o.height, AllowNoop: true}
	if o.backend == "" {
		return backend.Default(opts)
	}
	return backend.Open(o.backend, opts)
}

func run(args []string, stdout, stderr io.Writer) error {
	o, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}

	level := slog.LevelInfo
	if o.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))
	chipview.SetLogger(logger)
	defer chipview.SetLogger(nil)

	viewer := &Viewer{}
	if o.config != "" {
		if viewer, err = LoadViewer(o.config); err != nil {
			return err
		}
	}
	cfg, err := viewer.config()
	if err != nil {
		return err
	}
	blend, err := viewer.blend()
	if err != nil {
		return err
	}
	if o.additive {
		blend = gpucore.BlendAdditive
	}
	palette, err := viewer.palette()
	if err != nil {
		return err
	}
	nodes, err := parseNodes(o.highlight)
	if err != nil {
		return err
	}

	dev, err := openDevice(o)
	if err != nil {
		return err
	}
	defer func() { _ = backend.Close(dev) }()

	c, err := chipview.New(dev, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = c.Shutdown() }()

	if err := c.SetLayerPalette(blend, palette); err != nil {
		return err
	}
	for _, i := range viewer.Hidden {
		if err := c.ToggleLayerVisibility(chipview.LayerIndex(i)); err != nil {
			return err
		}
	}
	if s := viewer.Camera.Scale; s != nil {
		c.AddScale(*s - c.Scale())
	}
	if off := viewer.Camera.Offset; off != nil {
		c.SetOffset(f32.Vec2(*off))
	}

	for range o.frames {
		if err := c.NewFrame(float32(o.width), float32(o.height)); err != nil {
			return err
		}
		for _, n := range nodes {
			if err := c.SetNodeHighlight(n); err != nil {
				return err
			}
		}
		if err := c.Begin(); err != nil {
			return err
		}
		if err := c.Draw(); err != nil {
			return err
		}
		if err := c.End(); err != nil {
			return err
		}
	}

	if o.output != "" {
		if err := snapshot(dev, o.output); err != nil {
			return err
		}
	}

	fmt.Fprintf(stdout, "%s: %d frame(s) at %dx%d, %s blend\n", dev.Name(), c.Frame(), o.width, o.height, blend)
	if rec, ok := dev.(*recording.Device); ok {
		fmt.Fprintf(stdout, "recorded %d commands\n", len(rec.Commands()))
	}
	if o.output != "" {
		fmt.Fprintf(stdout, "wrote %s\n", o.output)
	}
	return nil
}

// snapshot writes the last rendered frame as PNG.
func snapshot(dev gpucore.Device, path string) error {
	if d, ok := dev.(*software.Device); ok {
		return d.SavePNG(path)
	}
	img, ok, err := readNative(dev)
	if err != nil {
		return err
	}
	if !ok {
		return errors.New("-o needs the software or native backend, got " + dev.Name())
	}
	return gg.NewContextForImage(img).SavePNG(path)
}

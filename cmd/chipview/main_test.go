package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gogpu/chipview"
)

func TestRunRecording(t *testing.T) {
	var stdout, stderr bytes.Buffer
	err := run([]string{"-backend", "recording", "-frames", "3", "-highlight", "1, 5"}, &stdout, &stderr)
	if err != nil {
		t.Fatalf("run: %v\nstderr: %s", err, stderr.String())
	}
	out := stdout.String()
	if !strings.Contains(out, "recording: 3 frame(s) at 800x600, alpha blend") {
		t.Errorf("stdout = %q", out)
	}
	if !strings.Contains(out, "recorded ") {
		t.Errorf("stdout lacks command count: %q", out)
	}
	if !strings.Contains(stderr.String(), "chipview: initialized") {
		t.Errorf("stderr lacks lifecycle log: %q", stderr.String())
	}
}

func TestRunSoftwareSnapshot(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "chip.png")

	var stdout, stderr bytes.Buffer
	err := run([]string{"-backend", "software", "-width", "96", "-height", "64", "-additive", "-o", out}, &stdout, &stderr)
	if err != nil {
		t.Fatalf("run: %v\nstderr: %s", err, stderr.String())
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(data, []byte("\x89PNG")) {
		t.Error("output is not a PNG")
	}
	if !strings.Contains(stdout.String(), "additive blend") {
		t.Errorf("stdout = %q", stdout.String())
	}
}

func TestRunViewerFile(t *testing.T) {
	dir := t.TempDir()
	var mesh []byte
	mesh = appendRect(mesh, 0, 0, 100, 100, 2)
	if err := os.WriteFile(filepath.Join(dir, "metal.bin"), mesh, 0o600); err != nil {
		t.Fatal(err)
	}
	yml := `
layers: ["", "", metal.bin]
bounds: {max_x: 128, max_y: 128}
palette:
  blend: alpha
  colors: ["#ff000080", "#00ff00", "#0000ff"]
highlight: per_frame
hidden: [0]
camera:
  scale: 3
  offset: [0.1, -0.2]
`
	path := filepath.Join(dir, "viewer.yaml")
	if err := os.WriteFile(path, []byte(yml), 0o600); err != nil {
		t.Fatal(err)
	}

	var stdout, stderr bytes.Buffer
	if err := run([]string{"-config", path, "-backend", "recording", "-highlight", "2"}, &stdout, &stderr); err != nil {
		t.Fatalf("run: %v\nstderr: %s", err, stderr.String())
	}
}

func TestRunErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"bad size", []string{"-width", "0"}, "invalid size"},
		{"bad frames", []string{"-frames", "0"}, "-frames"},
		{"bad highlight", []string{"-backend", "recording", "-highlight", "x"}, "highlight"},
		{"node out of range", []string{"-backend", "recording", "-highlight", "5000"}, "contract violation"},
		{"unknown backend", []string{"-backend", "vulkan9"}, "not available"},
		{"missing config", []string{"-config", "/nonexistent/viewer.yaml"}, "viewer.yaml"},
		{"snapshot on recording", []string{"-backend", "recording", "-o", "x.png"}, "-o needs"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			err := run(tt.args, &stdout, &stderr)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("run(%v) = %v, want error containing %q", tt.args, err, tt.want)
			}
		})
	}
}

func TestParseNodes(t *testing.T) {
	nodes, err := parseNodes("0,7, 2047")
	if err != nil {
		t.Fatal(err)
	}
	want := []chipview.NodeIndex{0, 7, 2047}
	if len(nodes) != len(want) {
		t.Fatalf("nodes = %v", nodes)
	}
	for i := range want {
		if nodes[i] != want[i] {
			t.Errorf("nodes[%d] = %d, want %d", i, nodes[i], want[i])
		}
	}
	if nodes, _ := parseNodes(""); nodes != nil {
		t.Errorf("empty = %v", nodes)
	}
}

package main

import "github.com/gogpu/chipview"

// patternSize is the model extent of the synthesized test pattern.
const patternSize = 4096

// appendRect appends two triangles covering [x0,x1]x[y0,y1].
func appendRect(dst []byte, x0, y0, x1, y1 uint16, node chipview.NodeIndex) []byte {
	dst = chipview.AppendVertex(dst, x0, y0, node)
	dst = chipview.AppendVertex(dst, x1, y0, node)
	dst = chipview.AppendVertex(dst, x1, y1, node)
	dst = chipview.AppendVertex(dst, x0, y0, node)
	dst = chipview.AppendVertex(dst, x1, y1, node)
	return chipview.AppendVertex(dst, x0, y1, node)
}

// testPattern returns a config whose six layers look like a small gate
// array: diffusion cells, vertical poly, horizontal metal, and contacts at
// the crossings. Each strip or cell is its own node.
func testPattern() *chipview.Config {
	const (
		cells = 8
		pitch = patternSize / cells
	)
	cfg := &chipview.Config{
		Bounds: chipview.Bounds{MaxX: patternSize, MaxY: patternSize},
	}

	node := chipview.NodeIndex(0)
	next := func() chipview.NodeIndex {
		n := node
		node++
		return n
	}

	for row := range cells {
		for col := range cells {
			x, y := uint16(col*pitch), uint16(row*pitch)
			cfg.LayerVertices[0] = appendRect(cfg.LayerVertices[0], x+48, y+48, x+pitch-48, y+pitch-48, next())
		}
	}
	for col := range cells {
		x := uint16(col*pitch + pitch/2)
		cfg.LayerVertices[1] = appendRect(cfg.LayerVertices[1], x-24, 16, x+24, patternSize-16, next())
	}
	for row := range cells {
		y := uint16(row*pitch + pitch/2)
		cfg.LayerVertices[2] = appendRect(cfg.LayerVertices[2], 16, y-32, patternSize-16, y+32, next())
	}
	for row := range cells {
		for col := range cells {
			x, y := uint16(col*pitch+pitch/2), uint16(row*pitch+pitch/2)
			layer := 3 + (row+col)%3
			cfg.LayerVertices[layer] = appendRect(cfg.LayerVertices[layer], x-40, y-40, x+40, y+40, next())
		}
	}
	return cfg
}

package chipview

import "github.com/gogpu/chipview/gpucore"

// nodeRowV is the vertical texture coordinate of the single texel row.
const nodeRowV = 32768

// AppendVertex appends one baked layer vertex at model position (x, y)
// whose texture coordinate addresses node in the lookup texture. Three
// consecutive vertices form one triangle.
//
// AppendVertex panics if node is out of range; baking runs offline on
// trusted input.
func AppendVertex(dst []byte, x, y uint16, node NodeIndex) []byte {
	if !node.Valid() {
		panic("chipview: AppendVertex node index out of range")
	}
	v := gpucore.Vertex{
		X: x,
		Y: y,
		U: gpucore.TexelCenter(int(node), MaxNodes),
		V: nodeRowV,
	}
	return v.Append(dst)
}

// VertexNode returns the node addressed by the baked vertex at the start
// of b, resolved the way the nearest sampler of the lookup texture does.
func VertexNode(b []byte) NodeIndex {
	v := gpucore.DecodeVertex(b)
	return NodeIndex(gpucore.NearestTexel(v.TexCoord()[0], MaxNodes))
}

package chipview

// MaxLayers is the number of mask layers the compositor can hold.
const MaxLayers = 6

// MaxNodes is the number of addressable nodes, and the width in texels of
// the node-state lookup texture.
const MaxNodes = 2048

// LayerIndex addresses one of the MaxLayers layer slots.
type LayerIndex int

// Valid reports whether i is in [0, MaxLayers).
func (i LayerIndex) Valid() bool { return i >= 0 && i < MaxLayers }

// NodeIndex addresses one of the MaxNodes node-state entries.
type NodeIndex int

// Valid reports whether i is in [0, MaxNodes).
func (i NodeIndex) Valid() bool { return i >= 0 && i < MaxNodes }

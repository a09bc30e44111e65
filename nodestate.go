package chipview

// NodeState is the visual state code of one node, stored as one texel of
// the lookup texture. The layer shader mixes the layer color toward white
// by the normalized code, so larger codes render brighter.
type NodeState uint8

// Node state codes.
const (
	NodeStateNone        NodeState = 0x00
	NodeStateActive      NodeState = 0x80
	NodeStateHighlighted NodeState = 0xFF
)

// String returns a short name for the state.
func (s NodeState) String() string {
	switch s {
	case NodeStateNone:
		return "none"
	case NodeStateActive:
		return "active"
	case NodeStateHighlighted:
		return "highlighted"
	default:
		return "custom"
	}
}

// nodeStates is the CPU mirror of the lookup texture.
type nodeStates [MaxNodes]byte

func (s *nodeStates) clear() { clear(s[:]) }

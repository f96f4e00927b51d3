package render

import "edeco/internal/closure"

// Theme holds colors for flow and closure-tree rendering.
type Theme struct {
	Background string
	NodeFill   string
	NodeBorder string
	TextColor  string

	// Edge colors.
	EdgeFlow    string // plain control flow
	EdgeTaken   string // branch target
	EdgeFall    string // branch fall-through
	EdgeReverse string // loop back-edge

	// Node accents.
	GhostFill    string // ghost placeholders
	SentinelFill string // start/end
	FocusBorder  string // closure an event is about

	// Cluster borders by closure kind.
	ChainBorder string
	LoopBorder  string
	MeshBorder  string
	BulgeBorder string
	ClusterText string
}

// NASA is the NASA/Bauhaus theme: geometric, monochrome, sparse color.
var NASA = Theme{
	Background: "#F5F5F5",
	NodeFill:   "white",
	NodeBorder: "#1A1A1A",
	TextColor:  "#1A1A1A",

	EdgeFlow:    "#424242", // dark gray
	EdgeTaken:   "#0B3D91", // NASA blue
	EdgeFall:    "#9E9E9E", // gray
	EdgeReverse: "#FC3D21", // NASA red

	GhostFill:    "#ECEFF1", // blue-gray 50
	SentinelFill: "#1A1A1A",
	FocusBorder:  "#E65100", // deep orange

	ChainBorder: "#BDBDBD",
	LoopBorder:  "#0B3D91",
	MeshBorder:  "#00695C", // teal
	BulgeBorder: "#FC3D21",
	ClusterText: "#757575",
}

func (t Theme) clusterColor(g *closure.Graph, id closure.ID) string {
	switch g.Kind(id) {
	case closure.KindChain:
		if g.Loop(id) {
			return t.LoopBorder
		}
		return t.ChainBorder
	case closure.KindMesh:
		return t.MeshBorder
	case closure.KindBulge:
		return t.BulgeBorder
	}
	return t.NodeBorder
}

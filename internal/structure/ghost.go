package structure

import "edeco/internal/closure"

// stripGhosts removes the placeholders inserted before structuring. In a
// chain the neighbours are simply joined. In a bulge the bookkeeping is
// retargeted onto the ghost's successor, or recomputed when the ghost led
// straight out of the bulge. A ghost that is the only item of its chain is
// kept, as it carries the loop.
func (s *structurizer) stripGhosts(root closure.ID) error {
	g := s.g
	var ghosts []closure.ID
	g.Walk(root, func(id closure.ID, _ int) bool {
		if g.Kind(id) == closure.KindGhost {
			ghosts = append(ghosts, id)
		}
		return true
	})

	for _, gh := range ghosts {
		p := g.Parent(gh)
		switch g.Kind(p) {
		case closure.KindChain:
			if len(g.Items(p)) == 1 {
				continue
			}
			g.RemoveItem(p, gh)
		case closure.KindBulge:
			conns, _ := g.Connections(p)
			succs := g.GetFollowing(p, gh)
			if len(succs) == 1 && !g.Sentinel(succs[0]) {
				if err := conns.Retarget(gh, succs[0]); err != nil {
					return err
				}
				g.RemoveMember(p, gh)
			} else {
				g.RemoveMember(p, gh)
				var err error
				if conns, err = g.Survey(p); err != nil {
					return err
				}
			}
			g.SetConnections(p, conns)
		}
	}
	if len(ghosts) > 0 {
		s.log.Debug().Int("ghosts", len(ghosts)).Msg("ghosts stripped")
	}
	return nil
}

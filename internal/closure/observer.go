package closure

// Stage names the point in a structurizing pass an Event was taken at.
type Stage string

const (
	StageFlat     Stage = "flat"     // flow graph as built
	StageGhosts   Stage = "ghosts"   // after ghost insertion
	StageMesh     Stage = "mesh"     // a mesh was spliced in
	StageResolved Stage = "resolved" // a mesh collapsed to a chain
	StageBulge    Stage = "bulge"    // a mesh was left partially resolved
	StageDone     Stage = "done"     // final tree
)

// Event is an immutable snapshot handed to an Observer. Graph is a private
// copy; observers may keep it.
type Event struct {
	Stage   Stage
	Node    ID
	Members []ID
	Begins  []ID
	Ends    []ID
	Graph   *Graph
}

// Observer receives debug snapshots. It sits outside the data flow: nothing
// it does can change the result of a pass.
type Observer interface {
	Observe(ev Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ev Event)

func (f ObserverFunc) Observe(ev Event) { f(ev) }

// Observers fans an event out to several observers.
type Observers []Observer

func (os Observers) Observe(ev Event) {
	for _, o := range os {
		if o != nil {
			o.Observe(ev)
		}
	}
}

// Snapshot builds the event for node id at the given stage. Composite
// membership is captured; the graph is cloned.
func (g *Graph) Snapshot(stage Stage, id ID) Event {
	ev := Event{Stage: stage, Node: id, Graph: g.Clone()}
	if id != None && g.Kind(id).Composite() {
		ev.Members = g.Members(id)
		if g.Kind(id) == KindChain {
			ev.Members = g.Items(id)
		}
		ev.Begins = g.Sorted(g.Begins(id))
		ev.Ends = g.Sorted(g.Ends(id))
	}
	return ev
}

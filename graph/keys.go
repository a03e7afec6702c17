package graph

// State map keys reserved by the engine.
const (
	// StateKeyNextNode carries a tool's routing decision for the step that
	// just ran. A string value names the next node, a nil value terminates
	// the run. The engine removes the key before the state is observable
	// anywhere, so it never appears in snapshots or final state.
	StateKeyNextNode = "_next_node"
)

package sigvec

// Lookup is the result of signal_index: the owning vector and, unless
// signalName was empty, the resolved Signal within it (§4.5).
type Lookup struct {
	Vector *SignalVector
	Signal *Signal // nil when the caller only wanted the vector
}

// Table is the per-ModelInstance set of configured SignalVectors, indexed
// for O(1) signal_index(vector_name, signal_name) lookups.
type Table struct {
	vectors []*SignalVector
	byName  map[string]*SignalVector
}

func NewTable(vectors []*SignalVector) *Table {
	t := &Table{vectors: vectors, byName: make(map[string]*SignalVector, len(vectors))}
	for _, sv := range vectors {
		t.byName[sv.Name] = sv
	}
	return t
}

func (t *Table) Vectors() []*SignalVector { return t.vectors }

// Index implements signal_index: when signalName == "", only Lookup.Vector
// is populated (for callers that want to iterate the whole vector).
func (t *Table) Index(vectorName, signalName string) (Lookup, bool) {
	sv, ok := t.byName[vectorName]
	if !ok {
		return Lookup{}, false
	}
	if signalName == "" {
		return Lookup{Vector: sv}, true
	}
	i, ok := sv.IndexOf(signalName)
	if !ok {
		return Lookup{}, false
	}
	return Lookup{Vector: sv, Signal: sv.Signals[i]}, true
}

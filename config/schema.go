package config

// SchemaObject mirrors original_source/dse/modelc/schema.h's SchemaObject:
// the kind/name of one matched document plus whatever annotations it
// carries, restored here as the minimal surface a model needs to look up a
// schema-level property without walking the whole resolved spec.
type SchemaObject struct {
	Kind        string
	Name        string
	Annotations map[string]string
}

// SchemaSearch resolves (modelName, channelName, signalName) to the
// matching SchemaObject, restoring schema_object_search's "find me the
// thing with this kind and name" contract. signalName == "" searches for
// the channel itself rather than one of its signals.
func SchemaSearch(spec *SimulationSpec, modelName, channelName, signalName string) (SchemaObject, bool) {
	for _, mi := range spec.Models {
		if mi.Name != modelName {
			continue
		}
		for _, ch := range mi.Channels {
			if ch.ChannelName != channelName {
				continue
			}
			if signalName == "" {
				return SchemaObject{Kind: "Channel", Name: channelName, Annotations: ch.ChannelAnnotations}, true
			}
			if ann, ok := ch.SignalAnnotations[signalName]; ok {
				return SchemaObject{Kind: "Signal", Name: signalName, Annotations: ann}, true
			}
			return SchemaObject{}, false
		}
	}
	return SchemaObject{}, false
}

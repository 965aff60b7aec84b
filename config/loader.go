package config

import (
	"os"
	"regexp"

	"github.com/dsebus/dsebus/dsebuserr"
	"gopkg.in/yaml.v2"
)

var envPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// expandEnv resolves ${VAR}-style references against the process
// environment before parsing, the layered-config idiom §4.10 calls for.
// An unset variable is left as an empty string, matching os.Expand.
func expandEnv(doc string) string {
	return envPattern.ReplaceAllStringFunc(doc, func(m string) string {
		name := envPattern.FindStringSubmatch(m)[1]
		return os.Getenv(name)
	})
}

// Load parses one or more YAML documents (Stack, Model, SignalGroup, in any
// order) and resolves them into a single SimulationSpec. Exactly one Stack
// document is required; every model it references must have a matching
// Model document, and every signalGroup a Model channel references must
// have a matching SignalGroup document.
func Load(yamls []string) (*SimulationSpec, error) {
	var stack *yamlStackSpec
	var stackName string
	models := make(map[string]*yamlModelSpec)
	groups := make(map[string]*yamlSignalGroupSpec)

	for _, raw := range yamls {
		doc, err := parseDoc(expandEnv(raw))
		if err != nil {
			return nil, err
		}
		switch doc.Kind {
		case "Stack":
			if stack != nil {
				return nil, dsebuserr.NewConfigError("config: more than one Stack document supplied")
			}
			spec := &yamlStackSpec{}
			if err := remarshal(doc.Spec, spec); err != nil {
				return nil, err
			}
			stack = spec
			stackName = doc.Metadata.Name
		case "Model":
			spec := &yamlModelSpec{}
			if err := remarshal(doc.Spec, spec); err != nil {
				return nil, err
			}
			models[doc.Metadata.Name] = spec
		case "SignalGroup":
			spec := &yamlSignalGroupSpec{}
			if err := remarshal(doc.Spec, spec); err != nil {
				return nil, err
			}
			groups[doc.Metadata.Name] = spec
		default:
			return nil, dsebuserr.NewConfigError("config: unknown document kind %q", doc.Kind)
		}
	}

	if stack == nil {
		return nil, dsebuserr.NewConfigError("config: no Stack document supplied")
	}

	sim := &SimulationSpec{
		Name:            stackName,
		StepSize:        stack.StepSize,
		EndTime:         stack.EndTime,
		SequentialCosim: stack.SequentialCosim,
		Transport:       stack.Transport,
	}

	for _, sm := range stack.Models {
		modelDoc, ok := models[sm.Name]
		if !ok {
			return nil, dsebuserr.NewConfigError("config: Stack references unknown model %q", sm.Name)
		}
		expected := make(map[string]int, len(sm.Channels))
		for _, c := range sm.Channels {
			expected[c.Name] = c.ExpectedModelCount
		}

		mis := ModelInstanceSpec{
			UID:  sm.UID,
			Name: sm.Name,
			Kind: modelDoc.Runtime.Kind,
			Path: modelDoc.Runtime.Path,
		}
		for _, mc := range modelDoc.Channels {
			group, ok := groups[mc.SignalGroup]
			if !ok {
				return nil, dsebuserr.NewConfigError(
					"config: model %q channel %q references unknown signal group %q",
					sm.Name, mc.Name, mc.SignalGroup)
			}
			cs, err := resolveChannel(mc, group, expected[mc.Name])
			if err != nil {
				return nil, err
			}
			mis.Channels = append(mis.Channels, cs)
		}
		sim.Models = append(sim.Models, mis)
	}
	return sim, nil
}

func resolveChannel(mc yamlModelChannel, group *yamlSignalGroupSpec, expectedModelCount int) (ChannelSpec, error) {
	cs := ChannelSpec{
		ChannelName:        mc.Name,
		FunctionName:       mc.Function,
		IsBinary:           mc.Binary || group.VectorType == "binary",
		ExpectedModelCount: expectedModelCount,
		Transforms:         make(map[string]Transform),
		SignalAnnotations:  make(map[string]map[string]string),
	}
	for _, s := range group.Signals {
		cs.SignalNames = append(cs.SignalNames, s.Signal)
		if len(s.Annotations) > 0 {
			cs.SignalAnnotations[s.Signal] = s.Annotations
		}
		if s.Transform != nil {
			cs.Transforms[s.Signal] = Transform{
				Factor: s.Transform.Linear.Factor,
				Offset: s.Transform.Linear.Offset,
			}
		}
	}
	return cs, nil
}

func parseDoc(raw string) (*yamlDoc, error) {
	doc := &yamlDoc{}
	if err := yaml.Unmarshal([]byte(raw), doc); err != nil {
		return nil, dsebuserr.NewConfigError("config: malformed document: %v", err)
	}
	return doc, nil
}

// remarshal re-encodes a generically-decoded spec node (interface{} from
// the first unmarshal pass) into the kind-specific typed struct target.
func remarshal(spec interface{}, target interface{}) error {
	b, err := yaml.Marshal(spec)
	if err != nil {
		return dsebuserr.NewConfigError("config: re-encode spec: %v", err)
	}
	if err := yaml.Unmarshal(b, target); err != nil {
		return dsebuserr.NewConfigError("config: malformed spec: %v", err)
	}
	return nil
}

package config

// yamlDoc is the common envelope every document kind shares: a `kind`
// discriminator and a `metadata.name`, with the kind-specific payload left
// generic until the discriminator has been read (§4.10/schema.h's
// SchemaObject{kind, name, doc}).
type yamlDoc struct {
	Kind     string      `yaml:"kind"`
	Metadata yamlMeta    `yaml:"metadata"`
	Spec     interface{} `yaml:"spec"`
}

type yamlMeta struct {
	Name string `yaml:"name"`
}

type yamlStackSpec struct {
	StepSize        float64          `yaml:"stepSize"`
	EndTime         float64          `yaml:"endTime"`
	SequentialCosim bool             `yaml:"sequentialCosim"`
	Transport       string           `yaml:"transport"`
	Models          []yamlStackModel `yaml:"models"`
}

type yamlStackModel struct {
	Name     string                 `yaml:"name"`
	UID      uint32                 `yaml:"uid"`
	Channels []yamlStackModelChannel `yaml:"channels"`
}

type yamlStackModelChannel struct {
	Name               string `yaml:"name"`
	ExpectedModelCount int    `yaml:"expectedModelCount"`
}

type yamlModelSpec struct {
	Runtime  yamlModelRuntime  `yaml:"runtime"`
	Channels []yamlModelChannel `yaml:"channels"`
}

type yamlModelRuntime struct {
	Kind string `yaml:"kind"` // "", "gateway", "mcl", "lua"
	Path string `yaml:"path"`
}

type yamlModelChannel struct {
	Name        string `yaml:"name"`
	Function    string `yaml:"function"`
	SignalGroup string `yaml:"signalGroup"`
	Binary      bool   `yaml:"binary"`
}

type yamlSignalGroupSpec struct {
	VectorType string       `yaml:"vectorType"` // "scalar" or "binary"
	Signals    []yamlSignal `yaml:"signals"`
}

type yamlSignal struct {
	Signal      string            `yaml:"signal"`
	Annotations map[string]string `yaml:"annotations"`
	Transform   *yamlTransform    `yaml:"transform"`
}

type yamlTransform struct {
	Linear struct {
		Factor float64 `yaml:"factor"`
		Offset float64 `yaml:"offset"`
	} `yaml:"linear"`
}

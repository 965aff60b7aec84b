package controller

import "github.com/dsebus/dsebus/signal"

// Transform is a per-signal linear map, §4.4: factor == 0 means "no
// transform configured" (pass the value through unchanged).
type Transform struct {
	Factor float64
	Offset float64
}

// ModelFunctionChannel is the model-facing projection of one Channel:
// ordered scalar/binary arrays whose positions mirror SignalNames, plus an
// optional per-signal Transform and the link back to the Adapter's Channel
// (the "SignalMap" of §3).
type ModelFunctionChannel struct {
	ChannelName  string
	FunctionName string
	SignalNames  []string
	IsBinary     bool

	Doubles    []float64
	Binaries   [][]byte
	Transforms []Transform

	sm *signal.Channel
}

// ConfigureChannel allocates a new ModelFunctionChannel for
// (channelName, functionName) and appends it to mi.Channels, building the
// SignalMap into the adapter's shared Channel and returning the
// model-facing view; calling it again for the same pair adds a second
// entry rather than replacing the first. transforms
// may be nil or partially populated; missing entries default to {0,0}
// (no-op).
func (c *Controller) ConfigureChannel(mi *ModelInstance, channelName, functionName string, signalNames []string, isBinary bool, transforms map[string]Transform) *ModelFunctionChannel {
	sm := mi.AdapterModel.Channel(channelName)
	names := make([]string, len(signalNames))
	copy(names, signalNames)
	for _, n := range names {
		sm.Get(n) // creating lookup: ensures the signal exists in the map
	}

	mfc := &ModelFunctionChannel{
		ChannelName:  channelName,
		FunctionName: functionName,
		SignalNames:  names,
		IsBinary:     isBinary,
		Doubles:      make([]float64, len(names)),
		Binaries:     make([][]byte, len(names)),
		Transforms:   make([]Transform, len(names)),
		sm:           sm,
	}
	for i, n := range names {
		if t, ok := transforms[n]; ok {
			mfc.Transforms[i] = t
		}
	}
	mi.Channels = append(mi.Channels, mfc)
	mi.Desc.Channels = mi.Channels
	return mfc
}

// TransformToModel implements controller_transform_to_model (§4.4 step 1):
// copies the SignalMap's current scalar (or binary payload) into the
// model-facing array, applying the signal's linear transform if factor != 0.
func (mfc *ModelFunctionChannel) TransformToModel() {
	for i, name := range mfc.SignalNames {
		v := mfc.sm.Get(name)
		if mfc.IsBinary {
			if v.Binary.Length > 0 {
				buf := make([]byte, v.Binary.Length)
				copy(buf, v.Binary.Buf[:v.Binary.Length])
				mfc.Binaries[i] = buf
			}
			continue
		}
		t := mfc.Transforms[i]
		if t.Factor != 0 {
			mfc.Doubles[i] = v.Scalar.Current*t.Factor + t.Offset
		} else {
			mfc.Doubles[i] = v.Scalar.Current
		}
	}
}

// TransformFromModel implements controller_transform_from_model (§4.4 step
// 3): the inverse map back into the SignalMap's `final` field, where it
// becomes a pending delta until the adapter's next ready/commit.
func (mfc *ModelFunctionChannel) TransformFromModel() {
	for i, name := range mfc.SignalNames {
		v := mfc.sm.Get(name)
		if mfc.IsBinary {
			if len(mfc.Binaries[i]) > 0 {
				v.Binary.Reset()
				v.Binary.Append(mfc.Binaries[i])
				mfc.Binaries[i] = nil
			}
			continue
		}
		t := mfc.Transforms[i]
		if t.Factor != 0 {
			v.Scalar.Final = (mfc.Doubles[i] - t.Offset) / t.Factor
		} else {
			v.Scalar.Final = mfc.Doubles[i]
		}
	}
}

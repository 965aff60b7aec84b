// Package signal implements the bus's per-channel signal store and index:
// name<->uid<->slot mapping, delta tracking, and scalar+binary value
// storage in one abstraction. Grounded on the teacher's core/meta.Bck
// (named, lazily-populated metadata records) and transport/pdu.go (the
// growable-buffer idiom reused here for binary payloads).
/*
 * Copyright (c) 2024, dsebus authors.
 */
package signal

import (
	"sync"

	"github.com/OneOfOne/xxhash"
	"github.com/dsebus/dsebus/dsebuserr"
)

// FNV-1a 32-bit constants, exactly as specified.
const (
	fnvOffset32 uint32 = 2166136261
	fnvPrime32  uint32 = 16777619
)

// FNV1a32 hashes name into a 32-bit signal uid. uid == 0 is reserved to mean
// "unassigned" (skipped by delta encoding until register assigns it).
func FNV1a32(name string) uint32 {
	h := fnvOffset32
	for i := 0; i < len(name); i++ {
		h ^= uint32(name[i])
		h *= fnvPrime32
	}
	return h
}

// Scalar is the double-precision half of a SignalValue: current (quiescent)
// and final (pending-after-apply) values.
type Scalar struct {
	Current float64
	Final   float64
}

// Binary is the growable-buffer half of a SignalValue. Length > 0 means
// "pending payload to publish"; Length == 0 means "consumed".
type Binary struct {
	Buf      []byte
	Length   int
	MimeType string
}

func (b *Binary) ensure(n int) {
	need := b.Length + n
	if cap(b.Buf) >= need {
		return
	}
	newCap := cap(b.Buf)
	if newCap == 0 {
		newCap = 64
	}
	for newCap < need {
		newCap *= 2
	}
	grown := make([]byte, len(b.Buf), newCap)
	copy(grown, b.Buf)
	b.Buf = grown
}

// Append grows the buffer geometrically and copies p in, per §4.5 `append`.
func (b *Binary) Append(p []byte) {
	b.ensure(len(p))
	b.Buf = b.Buf[:b.Length+len(p)]
	copy(b.Buf[b.Length:], p)
	b.Length += len(p)
}

// Reset sets Length to 0 (§4.5 `reset`); callers needing the stream-seek
// "reset_called" flag use bstream.Stream.Seek(SeekReset) instead, which
// calls this.
func (b *Binary) Reset() { b.Length = 0 }

// Release frees the buffer entirely (§4.5 `release`).
func (b *Binary) Release() { b.Buf = nil; b.Length = 0 }

// Value is one signal's runtime record: name, uid, vector slot, and both
// value representations carried side by side, per §3.
type Value struct {
	Name   string
	UID    uint32 // 0 == unassigned
	Slot   int
	Scalar Scalar
	Binary Binary
}

// Changed reports whether this signal has a pending delta, per §4.1.
func (v *Value) Changed() bool {
	return v.Scalar.Current != v.Scalar.Final || v.Binary.Length > 0
}

// index is the materialized snapshot described in §4.1: a stable-ordered
// array of names and a parallel SignalMap, invalidated whenever HashCode
// changes.
type index struct {
	names    []string
	signalOf map[string]*Value // positions mirror names
	hash     uint64
}

// Channel is a named collection of signals (§3). Lookup-by-name is
// creating: a miss allocates a fresh zero Value and invalidates the index.
type Channel struct {
	Name string

	mu     sync.Mutex
	values map[string]*Value
	idx    index

	// bus-mode quorum tracking, §4.3
	ExpectedModelCount int
	registerSet        map[uint32]struct{}
	readySet           map[uint32]struct{}

	// assigned uids so far, for collision detection -- resolves Open
	// Question (b): collisions are fatal at register time.
	assignedUIDs map[uint32]string
}

func NewChannel(name string, expectedModelCount int) *Channel {
	return &Channel{
		Name:               name,
		values:             make(map[string]*Value),
		ExpectedModelCount: expectedModelCount,
		registerSet:        make(map[uint32]struct{}),
		readySet:           make(map[uint32]struct{}),
		assignedUIDs:       make(map[uint32]string),
	}
}

// HashCode returns a fingerprint of the signal names seen so far, for
// cache consumers that want to detect a changed Channel without comparing
// every name.
func (c *Channel) HashCode() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.idx.hash
}

// Get performs a creating lookup by name: an existing Value is returned, or
// a fresh one is inserted and the index invalidated.
func (c *Channel) Get(name string) *Value {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.getLocked(name)
}

func (c *Channel) getLocked(name string) *Value {
	if v, ok := c.values[name]; ok {
		return v
	}
	v := &Value{Name: name, Slot: len(c.values)}
	c.values[name] = v
	// Chain each newly-seen name into the running fingerprint so HashCode
	// changes with content, not just insertion count -- lets a remote
	// cache consumer (e.g. a Gateway embedder) detect a reconfigured
	// Channel by value, the way fs/hrw.go chains xxhash.Checksum64S calls.
	c.idx.hash = xxhash.ChecksumString64S(name, c.idx.hash)
	c.idx.names = nil // invalidate materialized snapshot
	return v
}

// refreshIndex regenerates the materialized snapshot if it was invalidated.
func (c *Channel) refreshIndex() {
	if c.idx.names != nil {
		return
	}
	names := make([]string, 0, len(c.values))
	for n := range c.values {
		names = append(names, n)
	}
	// stable-ish order: insertion isn't tracked by map iteration, so sort by
	// Slot (assignment order) to match the "sorted by insertion" contract.
	for i := 1; i < len(names); i++ {
		for j := i; j > 0 && c.values[names[j-1]].Slot > c.values[names[j]].Slot; j-- {
			names[j-1], names[j] = names[j], names[j-1]
		}
	}
	c.idx.names = names
}

// Names returns the channel's indexed signal names in slot order.
func (c *Channel) Names() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.refreshIndex()
	out := make([]string, len(c.idx.names))
	copy(out, c.idx.names)
	return out
}

// Signals returns the channel's indexed Values in slot order.
func (c *Channel) Signals() []*Value {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.refreshIndex()
	out := make([]*Value, len(c.idx.names))
	for i, n := range c.idx.names {
		out[i] = c.values[n]
	}
	return out
}

// AssignUIDs hashes every currently-known signal name with FNV1a32 and
// assigns the uid, per §4.1/§4.3's "register is the authoritative moment of
// uid assignment". Returns ConfigError on collision between distinct names.
func (c *Channel) AssignUIDs() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.refreshIndex()
	for _, name := range c.idx.names {
		v := c.values[name]
		if v.UID != 0 {
			continue
		}
		uid := FNV1a32(name)
		if other, exists := c.assignedUIDs[uid]; exists && other != name {
			return dsebuserr.NewConfigError(
				"signal uid collision on channel %q: %q and %q both hash to %d",
				c.Name, other, name, uid)
		}
		c.assignedUIDs[uid] = name
		v.UID = uid
	}
	return nil
}

// Delta is the minimal set of signal changes for one cycle, §4.1.
type Delta struct {
	UIDs   []uint32
	Values []DeltaValue // exactly one of Scalar/Binary set, per signal (IsBin marks binary)
}

type DeltaValue struct {
	Scalar float64
	Binary []byte
	IsBin  bool
}

// EncodeDelta enumerates changed signals, consuming binary buffers
// (Length -> 0) as the values are copied out. Scalar `current` is left
// untouched until Apply (the peer's merge point) commits it -- matching
// §4.3's loopback "start" semantics where commit and delta-encode are
// distinct steps.
func (c *Channel) EncodeDelta() Delta {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.refreshIndex()
	var d Delta
	for _, name := range c.idx.names {
		v := c.values[name]
		if !v.Changed() {
			continue
		}
		if v.Binary.Length > 0 {
			payload := make([]byte, v.Binary.Length)
			copy(payload, v.Binary.Buf[:v.Binary.Length])
			d.UIDs = append(d.UIDs, v.UID)
			d.Values = append(d.Values, DeltaValue{Binary: payload, IsBin: true})
			v.Binary.Length = 0
		} else {
			d.UIDs = append(d.UIDs, v.UID)
			d.Values = append(d.Values, DeltaValue{Scalar: v.Scalar.Final})
		}
	}
	return d
}

// ApplyDelta merges a received delta into the store: scalar current <-
// final-from-wire; binary buffers are replaced with the published payload,
// ready for the consuming model to read and reset. Mismatched array
// lengths are a ProtocolError, per §7.
func (c *Channel) ApplyDelta(d Delta) error {
	if len(d.UIDs) != len(d.Values) {
		return dsebuserr.NewProtocolError(
			"delta arrays mismatched: %d uids vs %d values", len(d.UIDs), len(d.Values))
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.refreshIndex()
	for i, uid := range d.UIDs {
		v := c.findByUIDLocked(uid)
		if v == nil {
			continue // uid not (yet) known on this peer; config-time mismatch, not fatal here
		}
		dv := d.Values[i]
		if dv.IsBin {
			v.Binary.Buf = append(v.Binary.Buf[:0], dv.Binary...)
			v.Binary.Length = len(dv.Binary)
		} else {
			v.Scalar.Current = dv.Scalar
			v.Scalar.Final = dv.Scalar
		}
	}
	return nil
}

func (c *Channel) findByUIDLocked(uid uint32) *Value {
	if uid == 0 {
		return nil
	}
	for _, name := range c.idx.names {
		if v := c.values[name]; v.UID == uid {
			return v
		}
	}
	return nil
}

// CommitPending applies a quiescent commit without a wire round-trip: used
// by the loopback adapter's `start` handler, which sets current <- final
// for scalars directly (binary buffers are left for the consuming model to
// read/reset), per §4.3.
func (c *Channel) CommitPending() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, v := range c.values {
		if v.Scalar.Current != v.Scalar.Final {
			v.Scalar.Current = v.Scalar.Final
		}
	}
}

//
// bus-mode quorum tracking, §4.3/§4.8
//

func (c *Channel) RegisterModel(uid uint32) {
	c.mu.Lock()
	c.registerSet[uid] = struct{}{}
	c.mu.Unlock()
}

func (c *Channel) ReadyModel(uid uint32) {
	c.mu.Lock()
	c.readySet[uid] = struct{}{}
	c.mu.Unlock()
}

// ExitModel removes uid from both sets, reporting whether the channel's
// register set is now empty (one ingredient of bus-loop termination, §4.8).
func (c *Channel) ExitModel(uid uint32) (registerSetEmpty bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.registerSet, uid)
	delete(c.readySet, uid)
	return len(c.registerSet) == 0
}

func (c *Channel) NetworkReady() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.registerSet) == c.ExpectedModelCount
}

func (c *Channel) ModelsReady() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.readySet) == len(c.registerSet) && len(c.registerSet) > 0
}

func (c *Channel) ClearReady() {
	c.mu.Lock()
	c.readySet = make(map[uint32]struct{})
	c.mu.Unlock()
}

func (c *Channel) RegisterCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.registerSet)
}

// RegisteredUIDs snapshots the current register set, for callers that need
// to address every registered peer individually (the bus's start fan-out).
func (c *Channel) RegisteredUIDs() []uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]uint32, 0, len(c.registerSet))
	for uid := range c.registerSet {
		out = append(out, uid)
	}
	return out
}

package optimizer

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// Sparse custom-strategy encoding (spec.md §4.1 "custom strategy rewriting"
// / §9 "Strategy encoding"): each element packs a guard id and the
// MustBeDone postflag into the high bits of an int32, with the low bits
// naming the optimization id.
const (
	customStrategyOptIDBits  = 24
	customStrategyOptIDMask  = 1<<customStrategyOptIDBits - 1
	customStrategyGuardShift = customStrategyOptIDBits
	customStrategyGuardMask  = 0x7F
	customStrategyMustBeDoneBit = int32(-1 << 31)
)

// EncodeCustomStrategyEntry packs one Run entry into the sparse int32 form.
func EncodeCustomStrategyEntry(id OptID, guard Guard, mustBeDone bool) int32 {
	v := int32(id)&customStrategyOptIDMask | (int32(guard)&customStrategyGuardMask)<<customStrategyGuardShift
	if mustBeDone {
		v |= customStrategyMustBeDoneBit
	}
	return v
}

// DecodeCustomStrategy implements spec.md §4.1's "custom strategy
// rewriting": it decodes a sparse []int32 into the internal Strategy,
// preserving MustBeDone annotations. It refuses to construct on malformed
// input (spec.md §7 "Configuration: invalid custom strategy → refuse to
// construct").
func DecodeCustomStrategy(raw []int32) (Strategy, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: empty custom strategy", ErrInvalidStrategy)
	}
	out := make(Strategy, 0, len(raw))
	for _, v := range raw {
		mustBeDone := v&customStrategyMustBeDoneBit != 0
		id := OptID(v & customStrategyOptIDMask)
		guard := Guard((v >> customStrategyGuardShift) & customStrategyGuardMask)
		flags := PostFlagNone
		if mustBeDone {
			flags |= PostFlagMustBeDone
		}
		out = append(out, Run(id, guard, flags))
	}
	return out, nil
}

// customStrategyEnvelope is the msgpack wire form of a custom strategy,
// used for out-of-process strategy delivery (SPEC_FULL.md's domain-stack
// addition grounded on vovakirdan-surge's vmihailenco/msgpack usage).
type customStrategyEnvelope struct {
	Entries []int32 `msgpack:"entries"`
}

// EncodeCustomStrategyMsgpack serializes a sparse custom strategy array.
func EncodeCustomStrategyMsgpack(raw []int32) ([]byte, error) {
	return msgpack.Marshal(customStrategyEnvelope{Entries: raw})
}

// DecodeCustomStrategyMsgpack deserializes and decodes a msgpack-framed
// custom strategy envelope in one step.
func DecodeCustomStrategyMsgpack(data []byte) (Strategy, error) {
	var env customStrategyEnvelope
	if err := msgpack.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: msgpack decode: %v", ErrInvalidStrategy, err)
	}
	return DecodeCustomStrategy(env.Entries)
}

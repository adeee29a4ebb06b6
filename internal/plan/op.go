package plan

import (
	"fmt"
	"time"
)

// OpKind discriminates the SegmentOp variants.
type OpKind string

const (
	OpCopy   OpKind = "copy"
	OpFreeze OpKind = "freeze"
	OpTrim   OpKind = "trim"
)

// Op is a single media operation.
//
//	copy    play [Start, End) of the source
//	freeze  hold the frame at At for Length
//	trim    remove the Length immediately preceding At
type Op struct {
	Kind   OpKind        `json:"kind"`
	Start  time.Duration `json:"start,omitempty"`
	End    time.Duration `json:"end,omitempty"`
	At     time.Duration `json:"at,omitempty"`
	Length time.Duration `json:"length,omitempty"`
	// Cues lists the target cue positions this op serves.
	Cues []int `json:"cues,omitempty"`
}

// Copy returns a copy op for [start, end).
func Copy(start, end time.Duration, cues ...int) Op {
	return Op{Kind: OpCopy, Start: start, End: end, Cues: cues}
}

// Freeze returns a freeze op holding the frame at ts for length.
func Freeze(ts, length time.Duration, cues ...int) Op {
	return Op{Kind: OpFreeze, At: ts, Length: length, Cues: cues}
}

// Trim returns a trim op removing length before position.
func Trim(position, length time.Duration, cues ...int) Op {
	return Op{Kind: OpTrim, At: position, Length: length, Cues: cues}
}

// Duration is the op's contribution to the output timeline. Trims
// contribute nothing.
func (o Op) Duration() time.Duration {
	switch o.Kind {
	case OpCopy:
		return o.End - o.Start
	case OpFreeze:
		return o.Length
	default:
		return 0
	}
}

func (o Op) String() string {
	switch o.Kind {
	case OpCopy:
		return fmt.Sprintf("copy %s-%s", o.Start, o.End)
	case OpFreeze:
		return fmt.Sprintf("freeze %s@%s", o.Length, o.At)
	case OpTrim:
		return fmt.Sprintf("trim %s before %s", o.Length, o.At)
	default:
		return string(o.Kind)
	}
}

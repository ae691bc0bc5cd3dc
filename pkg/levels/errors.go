package levels

import "fmt"

// Shape describes image geometry: pixel dimensions and channel count.
type Shape struct {
	W, H, C int
}

func (s Shape)String() string   { return fmt.Sprintf("%dx%dx%d", s.W, s.H, s.C) }
func (s Shape)Unusable() bool   { return s.W <= 0 || s.H <= 0 || s.C <= 0 }

// A DimensionError means an image, or a pair of things that have to
// agree, has a shape the pipeline can't use: zero pixel area, zero
// channels, or mismatched channel counts.
type DimensionError struct {
	Op  string
	Got Shape
	Ref Shape // zero value when only one shape is involved
}

func (e *DimensionError)Error() string {
	if e.Ref == (Shape{}) {
		return fmt.Sprintf("%s: unusable image shape %s", e.Op, e.Got)
	}
	return fmt.Sprintf("%s: shapes %s and %s don't pair up", e.Op, e.Got, e.Ref)
}

// An InvalidParameterError means an Adjustment violates the parameter
// invariants: black < white, gamma > 0, everything finite and in range.
type InvalidParameterError struct {
	Adjustment Adjustment
	Reason     string
}

func (e *InvalidParameterError)Error() string {
	return fmt.Sprintf("bad levels parameters %s: %s", e.Adjustment, e.Reason)
}

// A ConvergenceError means the fit for a channel could not come up with
// any finite candidate parameters at all. Merely hitting the iteration
// cap is not a ConvergenceError - the best candidate so far wins.
type ConvergenceError struct {
	Channel int
	Err     error // underlying cause, may be nil
}

func (e *ConvergenceError)Error() string {
	if e.Err == nil {
		return fmt.Sprintf("channel %d: fit found no finite candidate", e.Channel)
	}
	return fmt.Sprintf("channel %d: fit found no finite candidate: %v", e.Channel, e.Err)
}

func (e *ConvergenceError)Unwrap() error { return e.Err }

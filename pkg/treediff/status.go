package treediff

// Status is the five-way outcome of comparing a left and right path. It
// is a closed enumeration; directory aggregation uses it only for
// short-circuit decisions, never as a total order.
type Status uint8

const (
	StatusUnknown Status = iota
	StatusMatching
	StatusDifferent
	StatusLeftOnly
	StatusRightOnly
)

func (s Status) String() string {
	switch s {
	case StatusMatching:
		return "matching"
	case StatusDifferent:
		return "different"
	case StatusLeftOnly:
		return "leftonly"
	case StatusRightOnly:
		return "rightonly"
	}
	return "unknown"
}

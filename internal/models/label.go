package models

import "fmt"

// Label is the three-class direction of the next-period move. The numeric
// values double as class indices into probability vectors, ordered
// Fall < Neutral < Rise.
type Label int

const (
	LabelFall Label = iota
	LabelNeutral
	LabelRise

	// NumClasses is the size of every probability vector in the system.
	NumClasses = 3
)

// String returns the dashboard-facing class name.
func (l Label) String() string {
	switch l {
	case LabelFall:
		return "Fall"
	case LabelNeutral:
		return "Neutral"
	case LabelRise:
		return "Rise"
	default:
		return fmt.Sprintf("Label(%d)", int(l))
	}
}

// Valid reports whether the label is one of the three known classes.
func (l Label) Valid() bool {
	return l >= LabelFall && l <= LabelRise
}

// Action is the trading recommendation shown on the dashboard.
type Action string

const (
	ActionShort Action = "SHORT"
	ActionHold  Action = "HOLD"
	ActionBuy   Action = "BUY"
)

// Action maps the predicted class to a recommendation. The mapping is
// deterministic; there is no confidence gating beyond the classifier output.
func (l Label) Action() Action {
	switch l {
	case LabelRise:
		return ActionBuy
	case LabelFall:
		return ActionShort
	default:
		return ActionHold
	}
}

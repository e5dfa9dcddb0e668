package events

// Inequality operators understood by the robot's event filter engine. The
// client forwards whatever operator it is given; the robot rejects unknown
// ones server-side.
const (
	InequalityGreaterOrEqual = "=>"
	InequalityEqual          = "=="
	InequalityNotEqual       = "!="
	InequalityGreater        = ">"
	InequalityLess           = "<"
	InequalityExists         = "exists"
	InequalityEmpty          = "empty"
	InequalityDelta          = "delta"
)

// Condition is one event filter triple. The robot evaluates Property against
// Value using Inequality and only delivers events that pass every condition
// of the subscription.
type Condition struct {
	Property   string `json:"Property"`
	Inequality string `json:"Inequality"`
	Value      string `json:"Value"`
}

package domain

// Step identifies the question a session is waiting on. It also selects the
// validator that applies to the next answer.
type Step string

const (
	StepStart   Step = "start"
	StepName    Step = "name"
	StepEmail   Step = "email"
	StepPhone   Step = "phone"
	StepService Step = "service"
	StepSummary Step = "summary"
	StepEnd     Step = "end"
)

// StepOrder is the fixed sequence of the flow. Transitions only ever move one
// position forward along it, or back to StepName on a reset.
var StepOrder = []Step{
	StepStart,
	StepName,
	StepEmail,
	StepPhone,
	StepService,
	StepSummary,
	StepEnd,
}

// Index returns the position of s in StepOrder, or -1 if s is not a known step.
func (s Step) Index() int {
	for i, step := range StepOrder {
		if step == s {
			return i
		}
	}
	return -1
}

// Valid reports whether s belongs to the enumeration.
func (s Step) Valid() bool {
	return s.Index() >= 0
}

// Next returns the step following s. The second return value is false when s
// is the last step or unknown.
func (s Step) Next() (Step, bool) {
	i := s.Index()
	if i < 0 || i+1 >= len(StepOrder) {
		return "", false
	}
	return StepOrder[i+1], true
}

// Before reports whether s comes strictly before other in StepOrder.
func (s Step) Before(other Step) bool {
	i, j := s.Index(), other.Index()
	return i >= 0 && j >= 0 && i < j
}

func (s Step) String() string {
	return string(s)
}

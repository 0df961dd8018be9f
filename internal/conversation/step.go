package conversation

import "fmt"

// Step is the authoring wizard position of a user.
type Step uint8

const (
	StepIdle Step = iota
	StepAwaitingTitle
	StepAwaitingDescription
	StepAwaitingQuestion
	StepCollectingQuestions
)

var stepNames = [...]string{
	StepIdle:                "idle",
	StepAwaitingTitle:       "awaiting_title",
	StepAwaitingDescription: "awaiting_description",
	StepAwaitingQuestion:    "awaiting_question",
	StepCollectingQuestions: "collecting_more_questions",
}

func (s Step) String() string {
	if int(s) < len(stepNames) {
		return stepNames[s]
	}
	return fmt.Sprintf("step(%d)", uint8(s))
}

func (s Step) Valid() bool {
	return int(s) < len(stepNames)
}

func ParseStep(name string) (Step, error) {
	for i, n := range stepNames {
		if n == name {
			return Step(i), nil
		}
	}
	return StepIdle, fmt.Errorf("unknown step %q", name)
}

func (s Step) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("unknown step %d", uint8(s))
	}
	return []byte(s.String()), nil
}

func (s *Step) UnmarshalText(text []byte) error {
	parsed, err := ParseStep(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

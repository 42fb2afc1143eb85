package provision

import "fmt"

// ValidationError is a user-correctable rule violation. Validators collect
// every violation instead of stopping at the first so a front-end can show
// them all at once.
type ValidationError struct {
	Field   string `json:"field"`
	Rule    string `json:"rule"`
	Message string `json:"message"`
}

func (e ValidationError) Error() string { return e.Message }

// PlanAssertionError marks a precondition the upstream validators should have
// made impossible. It is a programmer error, not user input.
type PlanAssertionError struct {
	Reason string
}

func (e *PlanAssertionError) Error() string {
	return fmt.Sprintf("plan builder assertion: %s", e.Reason)
}

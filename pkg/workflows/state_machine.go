package workflows

// StateMachine enforces project status transitions
type StateMachine struct {
	allowedTransitions map[string][]string
}

// NewProjectStateMachine returns the lifecycle for carbon projects:
// pending -> verified|rejected, verified -> tokenized.
func NewProjectStateMachine() *StateMachine {
	return &StateMachine{
		allowedTransitions: map[string][]string{
			"pending":   {"verified", "rejected"},
			"verified":  {"tokenized"},
			"rejected":  {},
			"tokenized": {},
		},
	}
}

// CanTransition checks if a status transition is allowed
func (sm *StateMachine) CanTransition(from, to string) bool {
	allowed, exists := sm.allowedTransitions[from]
	if !exists {
		return false
	}
	for _, allowedTo := range allowed {
		if allowedTo == to {
			return true
		}
	}
	return false
}

// GetAllowedTransitions returns the allowed next statuses for a given status
func (sm *StateMachine) GetAllowedTransitions(from string) []string {
	allowed, exists := sm.allowedTransitions[from]
	if !exists {
		return []string{}
	}
	return allowed
}

package domain

// AgentRequest is what the engine hands an agent for one step.
// State is a snapshot: agents must treat it as read-only.
type AgentRequest struct {
	RunID string
	Step  int
	Role  Role
	Model string
	State *State

	// FreshResearch is the number of trailing State.ResearchResults appended
	// since this role last completed a step (all of them on its first visit).
	FreshResearch int
}

// Fresh returns the research results appended since the role's last step.
func (r AgentRequest) Fresh() []ResearchResult {
	all := r.State.ResearchResults
	n := r.FreshResearch
	if n <= 0 {
		return nil
	}
	if n > len(all) {
		n = len(all)
	}
	return all[len(all)-n:]
}

package domain

// History is the ordered list of roles that completed a step.
// It only grows; Append returns a new slice and never touches the receiver.
type History []Role

// Append returns a copy of h with role added at the end.
func (h History) Append(role Role) History {
	out := make(History, len(h), len(h)+1)
	copy(out, h)
	return append(out, role)
}

// Len returns the number of completed steps.
func (h History) Len() int {
	return len(h)
}

// Last returns the last n roles, oldest first. Shorter histories return
// everything they have.
func (h History) Last(n int) []Role {
	if n <= 0 {
		return nil
	}
	if n > len(h) {
		n = len(h)
	}
	out := make([]Role, n)
	copy(out, h[len(h)-n:])
	return out
}

// LastIs reports whether the history ends with exactly the given roles.
func (h History) LastIs(roles ...Role) bool {
	if len(roles) > len(h) {
		return false
	}
	tail := h[len(h)-len(roles):]
	for i, r := range roles {
		if tail[i] != r {
			return false
		}
	}
	return true
}

// CountSince returns how many steps ran after the most recent occurrence of
// role. The boolean is false when role never ran.
func (h History) CountSince(role Role) (int, bool) {
	for i := len(h) - 1; i >= 0; i-- {
		if h[i] == role {
			return len(h) - 1 - i, true
		}
	}
	return 0, false
}

// Count returns how many times role ran.
func (h History) Count(role Role) int {
	n := 0
	for _, r := range h {
		if r == role {
			n++
		}
	}
	return n
}

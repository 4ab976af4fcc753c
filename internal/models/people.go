package models

// Student is the subset of the student record read by the scheduling core.
type Student struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	GuardianIDs []string `json:"guardian_ids,omitempty"`
}

// GuardianID returns the first linked guardian, if any.
func (s Student) GuardianID() string {
	if len(s.GuardianIDs) == 0 {
		return ""
	}
	return s.GuardianIDs[0]
}

// Teacher is a tutor record; Attributes holds the raw text columns used for display names.
type Teacher struct {
	ID         string            `json:"id"`
	Email      string            `json:"email,omitempty"`
	Attributes map[string]string `json:"-"`
}

// Guardian is a parent or guardian linked to a student.
type Guardian struct {
	ID         string            `json:"id"`
	Attributes map[string]string `json:"-"`
}

package deletion

// Group is a single planned deletion unit: one file to keep, the files to
// delete in its favor, and the operator-facing reason. Findings are attached
// by Plan.Validate and replaced wholesale on revalidation.
// Execution outcomes recorded on a group by Plan.Execute.
const (
	OutcomeSucceeded = "succeeded"
	OutcomeFailed    = "failed"
	OutcomeSkipped   = "skipped"
)

type Group struct {
	ID          string
	KeepFile    string
	DeleteFiles []string
	Reason      string
	Findings    []Result
	// Outcome is empty until the group has been through an execution.
	Outcome string
}

// IsValid reports whether the group carries no error-level findings.
// Warnings never block execution.
func (g *Group) IsValid() bool {
	for _, finding := range g.Findings {
		if finding.Level == LevelError {
			return false
		}
	}
	return true
}

// Errors returns the error-level findings attached to the group.
func (g *Group) Errors() []Result {
	return g.findingsAt(LevelError)
}

// Warnings returns the warning-level findings attached to the group.
func (g *Group) Warnings() []Result {
	return g.findingsAt(LevelWarning)
}

func (g *Group) findingsAt(level Level) []Result {
	var matched []Result
	for _, finding := range g.Findings {
		if finding.Level == level {
			matched = append(matched, finding)
		}
	}
	return matched
}

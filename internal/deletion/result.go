package deletion

// Level classifies the severity of a validation finding.
type Level string

const (
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Result is one finding produced by a checkpoint. Findings are data, not
// errors: they attach to the group they describe and are inspected through
// Group.IsValid, Group.Errors, and Group.Warnings.
type Result struct {
	Level      Level
	Checkpoint string
	Message    string
	Detail     string
}

func info(checkpoint, message string) Result {
	return Result{Level: LevelInfo, Checkpoint: checkpoint, Message: message}
}

func warning(checkpoint, message, detail string) Result {
	return Result{Level: LevelWarning, Checkpoint: checkpoint, Message: message, Detail: detail}
}

func failure(checkpoint, message, detail string) Result {
	return Result{Level: LevelError, Checkpoint: checkpoint, Message: message, Detail: detail}
}

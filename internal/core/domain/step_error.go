package domain

// StepError carries the exit code of a failed step command alongside the
// underlying execution error.
type StepError struct {
	// ExitCode is the process exit code, or -1 when the command failed
	// before producing one (signal, spawn failure).
	ExitCode int
	Err      error
}

// Error implements error.
func (e *StepError) Error() string {
	return e.Err.Error()
}

// Unwrap exposes the underlying error for errors.Is/As.
func (e *StepError) Unwrap() error {
	return e.Err
}

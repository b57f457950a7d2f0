package broker

import "fmt"

// ErrorCode is a standardized code for invalid configuration discovered at
// construction time, the only error class that carries a code. A cancel of
// an unknown handle returns false, peer death is silent, and AQM and
// shutdown drops of waiting parties are Outcome values; calls made after
// shutdown return the uncoded ErrShutdown.
type ErrorCode string

const (
	ErrCodeConfigInvalidDiscipline ErrorCode = "CFG_1000"
	ErrCodeConfigInvalidCapacity   ErrorCode = "CFG_1001"
	ErrCodeConfigInvalidTimeout    ErrorCode = "CFG_1002"
	ErrCodeConfigInvalidCoDel      ErrorCode = "CFG_1003"
)

// StandardizedError is a code-tagged, user-message-carrying error,
// generalized from the teacher's error registry down to the single
// class of error this system raises.
type StandardizedError struct {
	Code        ErrorCode
	Message     string
	UserMessage string
}

func (e *StandardizedError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func configError(code ErrorCode, userMessage, format string, args ...any) *StandardizedError {
	return &StandardizedError{
		Code:        code,
		Message:     fmt.Sprintf(format, args...),
		UserMessage: userMessage,
	}
}

package core

// IterationStatus represents how one iteration of a repeated run ended
type IterationStatus string

const (
	IterationCompleted IterationStatus = "completed" // Reset and script both attempted
	IterationStopped   IterationStatus = "stopped"   // Stop observed before the iteration began
)

// String returns the string representation of IterationStatus
func (s IterationStatus) String() string {
	return string(s)
}

// IsValid reports whether s is one of the known statuses
func (s IterationStatus) IsValid() bool {
	return s == IterationCompleted || s == IterationStopped
}

// ErrorCategory classifies the type of error for better debugging and reporting
type ErrorCategory int

const (
	ErrCategoryNone     ErrorCategory = iota // No error
	ErrCategoryNetwork                       // Service unreachable, transport failure
	ErrCategoryRemote                        // Service answered with a non-success status
	ErrCategoryProtocol                      // Response body is not the expected structured data
	ErrCategoryBusy                          // A run is already in progress
	ErrCategoryConfig                        // Invalid configuration or arguments
)

// String returns the string representation of ErrorCategory
func (c ErrorCategory) String() string {
	switch c {
	case ErrCategoryNone:
		return "none"
	case ErrCategoryNetwork:
		return "network"
	case ErrCategoryRemote:
		return "remote"
	case ErrCategoryProtocol:
		return "protocol"
	case ErrCategoryBusy:
		return "busy"
	case ErrCategoryConfig:
		return "config"
	default:
		return "unknown"
	}
}

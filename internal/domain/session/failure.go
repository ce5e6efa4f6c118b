package session

// Stage identifies which part of an attempt failed
type Stage string

const (
	StageGeneration Stage = "generation"
	StageValidation Stage = "validation"
	StageExecution  Stage = "execution"
)

// IsValid returns true if the stage is valid
func (s Stage) IsValid() bool {
	switch s {
	case StageGeneration, StageValidation, StageExecution:
		return true
	default:
		return false
	}
}

// FailureCode is the classified category of a failed attempt
type FailureCode string

const (
	// Validation failures
	CodeMultiStatement  FailureCode = "MULTI_STATEMENT"
	CodeUnsafeOperation FailureCode = "UNSAFE_OPERATION"
	CodeSyntaxError     FailureCode = "SYNTAX_ERROR"

	// Execution failures
	CodeTableNotFound  FailureCode = "TABLE_NOT_FOUND"
	CodeColumnNotFound FailureCode = "COLUMN_NOT_FOUND"
	CodeTypeMismatch   FailureCode = "TYPE_MISMATCH"
	CodeTimeout        FailureCode = "TIMEOUT"
	CodeUnclassified   FailureCode = "UNCLASSIFIED"
)

// String returns the string representation of the code
func (c FailureCode) String() string {
	return string(c)
}

// IsValid returns true if the code is valid
func (c FailureCode) IsValid() bool {
	switch c {
	case CodeMultiStatement, CodeUnsafeOperation, CodeSyntaxError,
		CodeTableNotFound, CodeColumnNotFound, CodeTypeMismatch,
		CodeTimeout, CodeUnclassified:
		return true
	default:
		return false
	}
}

// ErrorKind is the coarse failure kind reported by an external boundary
// before fine classification
type ErrorKind string

const (
	KindNotFound   ErrorKind = "NOT_FOUND"
	KindTypeError  ErrorKind = "TYPE_ERROR"
	KindConstraint ErrorKind = "CONSTRAINT"
	KindTimeout    ErrorKind = "TIMEOUT"
	KindUnknown    ErrorKind = "UNKNOWN"
)

// IsValid returns true if the kind is valid
func (k ErrorKind) IsValid() bool {
	switch k {
	case KindNotFound, KindTypeError, KindConstraint, KindTimeout, KindUnknown:
		return true
	default:
		return false
	}
}

// StageError is a normalized failure from the oracle or the data store
type StageError struct {
	Stage   Stage     `json:"stage"`
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"` // raw message from the boundary
}

// Failure is one classified failed attempt
type Failure struct {
	Attempt    int         `json:"attempt"`
	Stage      Stage       `json:"stage"`
	Code       FailureCode `json:"code"`
	Message    string      `json:"message"`
	Subject    string      `json:"subject,omitempty"` // offending table, column, verb or fragment
	Suggestion string      `json:"suggestion"`
}

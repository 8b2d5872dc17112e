// Package errors provides structured error handling for the retrieval core.
//
// Error codes follow the pattern ERR_XXX_DESCRIPTION where:
//   - 1XX: Configuration errors
//   - 2XX: Index errors
//   - 3XX: External service errors (vector search, language model)
//   - 4XX: Validation errors
//   - 5XX: Internal errors
package errors

// Category defines error categories for classification.
type Category string

const (
	// CategoryConfig indicates configuration-related errors.
	CategoryConfig Category = "CONFIG"
	// CategoryIndex indicates lexical index errors.
	CategoryIndex Category = "INDEX"
	// CategoryExternal indicates vector-search or language-model errors.
	CategoryExternal Category = "EXTERNAL"
	// CategoryValidation indicates input validation errors.
	CategoryValidation Category = "VALIDATION"
	// CategoryInternal indicates unexpected internal errors.
	CategoryInternal Category = "INTERNAL"
)

// Severity defines error severity levels.
type Severity string

const (
	// SeverityFatal indicates unrecoverable error, must abort.
	SeverityFatal Severity = "FATAL"
	// SeverityError indicates operation failed but can continue.
	SeverityError Severity = "ERROR"
	// SeverityWarning indicates degraded operation, continuing.
	SeverityWarning Severity = "WARNING"
	// SeverityInfo indicates informational only.
	SeverityInfo Severity = "INFO"
)

// Error codes organized by category.
const (
	// Config errors (100-199)
	ErrCodeConfigNotFound = "ERR_101_CONFIG_NOT_FOUND"
	ErrCodeConfigInvalid  = "ERR_102_CONFIG_INVALID"

	// Index errors (200-299)
	ErrCodeChunkEmpty    = "ERR_201_CHUNK_EMPTY"
	ErrCodeChunkNotFound = "ERR_202_CHUNK_NOT_FOUND"
	ErrCodeIndexEmpty    = "ERR_203_INDEX_EMPTY"

	// External service errors (300-399)
	ErrCodeVectorSearch   = "ERR_301_VECTOR_SEARCH"
	ErrCodeVectorTimeout  = "ERR_302_VECTOR_TIMEOUT"
	ErrCodeModelCall      = "ERR_303_MODEL_CALL"
	ErrCodeModelTimeout   = "ERR_304_MODEL_TIMEOUT"
	ErrCodeAllPathsFailed = "ERR_305_ALL_RETRIEVAL_PATHS_FAILED"

	// Validation errors (400-499)
	ErrCodeInvalidInput   = "ERR_401_INVALID_INPUT"
	ErrCodeQueryEmpty     = "ERR_402_QUERY_EMPTY"
	ErrCodeBudgetExceeded = "ERR_403_BUDGET_EXCEEDED"
	ErrCodeUnknownModel   = "ERR_404_UNKNOWN_MODEL"

	// Internal errors (500-599)
	ErrCodeInternal = "ERR_501_INTERNAL"
)

// categoryFromCode extracts category from error code.
func categoryFromCode(code string) Category {
	if len(code) < 7 {
		return CategoryInternal
	}

	// Extract numeric portion (e.g., "101" from "ERR_101_CONFIG_NOT_FOUND")
	numStr := code[4:7]
	if len(numStr) < 1 {
		return CategoryInternal
	}

	switch numStr[0] {
	case '1':
		return CategoryConfig
	case '2':
		return CategoryIndex
	case '3':
		return CategoryExternal
	case '4':
		return CategoryValidation
	default:
		return CategoryInternal
	}
}

// severityFromCode determines severity based on error code.
func severityFromCode(code string) Severity {
	// All retrieval paths failing is the only condition that aborts a request.
	if code == ErrCodeAllPathsFailed {
		return SeverityFatal
	}

	// Retryable external errors get warning severity
	if isRetryableCode(code) {
		return SeverityWarning
	}

	// Default to error severity
	return SeverityError
}

// isRetryableCode checks if an error code represents a retryable error.
func isRetryableCode(code string) bool {
	switch code {
	case ErrCodeVectorSearch, ErrCodeVectorTimeout, ErrCodeModelCall, ErrCodeModelTimeout:
		return true
	default:
		return false
	}
}

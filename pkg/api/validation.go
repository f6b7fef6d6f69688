package api

import "fmt"

// ValidationConfig holds configurable limits for request validation.
type ValidationConfig struct {
	MaxCodeSize   int
	MaxTests      int
	MaxFileSize   int
	MaxPathLength int
}

// DefaultValidationConfig returns a ValidationConfig with sensible defaults.
func DefaultValidationConfig() ValidationConfig {
	return ValidationConfig{
		MaxCodeSize:   1 << 20,  // 1 MB
		MaxTests:      256,
		MaxFileSize:   32 << 20, // 32 MB
		MaxPathLength: 1024,
	}
}

// ValidateRunRequest checks a RunRequest for validity. It returns an
// *APIError describing the first validation failure, or nil if the request
// is valid.
func ValidateRunRequest(req *RunRequest, cfg ValidationConfig) *APIError {
	if req.Code == "" {
		return NewInvalidRequestError("code", "code is required")
	}

	if cfg.MaxCodeSize > 0 && len(req.Code) > cfg.MaxCodeSize {
		return NewInvalidRequestError("code",
			fmt.Sprintf("code exceeds maximum of %d bytes", cfg.MaxCodeSize))
	}

	if cfg.MaxTests > 0 && len(req.Tests) > cfg.MaxTests {
		return NewInvalidRequestError("tests",
			fmt.Sprintf("tests exceeds maximum of %d entries", cfg.MaxTests))
	}

	for i, spec := range req.Tests {
		if spec.Name == "" {
			return NewInvalidRequestError(
				fmt.Sprintf("tests[%d].name", i), "test name is required")
		}
		if spec.Reward < 0 {
			return NewInvalidRequestError(
				fmt.Sprintf("tests[%d].reward", i), "reward must be non-negative")
		}
	}

	return nil
}

// ValidateRemotePath checks that a remote path is usable as a file key.
func ValidateRemotePath(remotePath string, cfg ValidationConfig) *APIError {
	if remotePath == "" {
		return NewInvalidRequestError("remote_path", "remote_path is required")
	}
	if cfg.MaxPathLength > 0 && len(remotePath) > cfg.MaxPathLength {
		return NewInvalidRequestError("remote_path",
			fmt.Sprintf("remote_path exceeds maximum of %d characters", cfg.MaxPathLength))
	}
	return nil
}

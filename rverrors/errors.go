package rverrors

import (
	"errors"
	"strings"
)

// Construction (C) Errors
var (
	ErrConfiguration = errors.New("C1|Configuration: I/O interface or hart configuration is incomplete.")
	ErrInvalidConfig = errors.New("C2|InvalidConfig: Machine configuration file could not be parsed.")
)

// Alignment (A) Errors
var (
	ErrMisalignedPC = errors.New("A1|MisalignedPC: Program counter write violates the instruction alignment of the active extensions.")
)

// Decode (D) Errors
var (
	ErrIllegalInstruction   = errors.New("D1|IllegalInstruction: Unknown or malformed instruction encoding.")
	ErrUnsupportedExtension = errors.New("D2|UnsupportedExtension: Instruction belongs to an extension that is not enabled.")
)

// Image (I) Errors
var (
	ErrImageTooLarge = errors.New("I1|ImageTooLarge: Program image does not fit in the 32-bit address space at the load address.")
	ErrEmptyImage    = errors.New("I2|EmptyImage: Program image contains no bytes.")
)

var known = []error{
	ErrConfiguration, ErrInvalidConfig, ErrMisalignedPC,
	ErrIllegalInstruction, ErrUnsupportedExtension,
	ErrImageTooLarge, ErrEmptyImage,
}

// root returns the coded sentinel err wraps, or err itself.
func root(err error) error {
	for _, k := range known {
		if errors.Is(err, k) {
			return k
		}
	}
	return err
}

// GetErrorName extracts the error name from the error message.
func GetErrorName(err error) string {
	if err == nil {
		return "No Error"
	}
	errStr := root(err).Error()
	if !strings.Contains(errStr, "|") || !strings.Contains(errStr, ":") {
		return errStr
	}
	parts := strings.SplitN(errStr, "|", 2)
	if len(parts) < 2 {
		return errStr
	}
	// Split on ':' to separate the error name from its description.
	nameParts := strings.SplitN(parts[1], ":", 2)
	return strings.TrimSpace(nameParts[0])
}

func GetErrorNames(errs []error) []string {
	errStrs := make([]string, len(errs))
	for i, err := range errs {
		errStrs[i] = GetErrorName(err)
	}
	return errStrs
}

// GetErrorCode extracts the error code from the error message.
func GetErrorCode(err error) string {
	if err == nil {
		return ""
	}
	errStr := root(err).Error()
	if !strings.Contains(errStr, "|") {
		return ""
	}
	parts := strings.SplitN(errStr, "|", 2)
	return strings.TrimSpace(parts[0])
}

// GetErrorCodeWithName returns the error code and name in the format "Code_ErrorName".
func GetErrorCodeWithName(err error) string {
	code := GetErrorCode(err)
	name := GetErrorName(err)
	if code == "" || name == "" {
		return ""
	}
	return code + "_" + name
}

// GetErrorDesc extracts the error description from the error message.
func GetErrorDesc(err error) string {
	if err == nil {
		return ""
	}
	parts := strings.SplitN(root(err).Error(), ":", 2)
	if len(parts) < 2 {
		return "DESC NOT SET"
	}
	return strings.TrimSpace(parts[1])
}

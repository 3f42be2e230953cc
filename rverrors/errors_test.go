package rverrors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorParts(t *testing.T) {
	assert.Equal(t, "IllegalInstruction", GetErrorName(ErrIllegalInstruction))
	assert.Equal(t, "D2", GetErrorCode(ErrUnsupportedExtension))
	assert.Equal(t, "A1_MisalignedPC", GetErrorCodeWithName(ErrMisalignedPC))
	assert.Equal(t, "No Error", GetErrorName(nil))
	assert.Equal(t, "", GetErrorCode(nil))
}

func TestWrappedErrorParts(t *testing.T) {
	err := fmt.Errorf("hart: missing Fetch, OnTrap: %w", ErrConfiguration)
	assert.Equal(t, "Configuration", GetErrorName(err))
	assert.Equal(t, "C1", GetErrorCode(err))
	assert.Contains(t, GetErrorDesc(err), "incomplete")

	plain := fmt.Errorf("plain failure")
	assert.Equal(t, "plain failure", GetErrorName(plain))
	assert.Equal(t, "DESC NOT SET", GetErrorDesc(plain))
	assert.Equal(t, []string{"EmptyImage", "ImageTooLarge"}, GetErrorNames([]error{ErrEmptyImage, ErrImageTooLarge}))
}

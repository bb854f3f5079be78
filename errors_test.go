package guda

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func TestStructuredErrors(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantType ErrorType
		wantOp   string
		wantMsg  string
		checkFn  func(error) bool
	}{
		{
			name:     "Memory Error",
			err:      ErrOutOfMemory,
			wantType: ErrTypeMemory,
			wantOp:   "Malloc",
			wantMsg:  "out of memory",
			checkFn:  IsMemoryError,
		},
		{
			name:     "Double Free",
			err:      ErrDoubleFree,
			wantType: ErrTypeMemory,
			wantOp:   "Free",
			wantMsg:  "double free detected",
			checkFn:  IsMemoryError,
		},
		{
			name:     "Invalid Arg Error",
			err:      ErrInvalidSize,
			wantType: ErrTypeInvalidArg,
			wantOp:   "Malloc",
			wantMsg:  "size must be positive",
			checkFn:  IsInvalidArgError,
		},
		{
			name:     "Invalid Device Error",
			err:      ErrInvalidDevice,
			wantType: ErrTypeInvalidArg,
			wantOp:   "SetDevice",
			wantMsg:  "invalid device ID",
			checkFn:  IsInvalidArgError,
		},
		{
			name:     "Invalid Shape",
			err:      ErrInvalidShape,
			wantType: ErrTypeInvalidArg,
			wantOp:   "Shape",
			wantMsg:  "invalid shape",
			checkFn:  IsInvalidArgError,
		},
		{
			name:     "Invalid Axis",
			err:      ErrInvalidAxis,
			wantType: ErrTypeInvalidArg,
			wantOp:   "Axis",
			wantMsg:  "invalid axis",
			checkFn:  IsInvalidArgError,
		},
		{
			name:     "Launch Configuration",
			err:      ErrInvalidConfiguration,
			wantType: ErrTypeExecution,
			wantOp:   "Launch",
			wantMsg:  "invalid launch configuration",
			checkFn:  IsExecutionError,
		},
		{
			name:     "Execution Error",
			err:      ErrKernelFailed,
			wantType: ErrTypeExecution,
			wantOp:   "Kernel",
			wantMsg:  "kernel execution failed",
			checkFn:  IsExecutionError,
		},
		{
			name:     "Device Error",
			err:      NewDeviceError("Device", "no compute device available", nil),
			wantType: ErrTypeDevice,
			wantOp:   "Device",
			wantMsg:  "no compute device available",
			checkFn:  IsDeviceError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gudaErr, ok := tt.err.(*GUDAError)
			require.True(t, ok, "expected GUDAError, got %T", tt.err)
			require.Equal(t, tt.wantType, gudaErr.Type)
			require.Equal(t, tt.wantOp, gudaErr.Op)
			require.Equal(t, tt.wantMsg, gudaErr.Message)
			require.True(t, tt.checkFn(tt.err), "type check function returned false")
			require.Contains(t, tt.err.Error(), tt.wantMsg)

			// Classification survives wrapping with context.
			wrapped := errors.WithMessage(errors.Wrap(tt.err, "outer"), "outermost")
			require.True(t, tt.checkFn(wrapped))
			require.ErrorIs(t, wrapped, tt.err)
		})
	}
}

func TestErrorPredicatesAreExclusive(t *testing.T) {
	checks := map[string]func(error) bool{
		"memory":    IsMemoryError,
		"invalid":   IsInvalidArgError,
		"execution": IsExecutionError,
		"device":    IsDeviceError,
	}
	errs := map[string]error{
		"memory":    ErrOutOfMemory,
		"invalid":   ErrInvalidAxis,
		"execution": ErrKernelFailed,
		"device":    NewDeviceError("Probe", "gone", nil),
	}
	for errName, err := range errs {
		for checkName, check := range checks {
			require.Equal(t, errName == checkName, check(err), "%s error, %s check", errName, checkName)
		}
	}
	for _, check := range checks {
		require.False(t, check(nil))
		require.False(t, check(errors.New("plain")))
	}
}

func TestErrorUnwrap(t *testing.T) {
	baseErr := errors.New("base error")
	wrappedErr := NewMemoryError("Test", "wrapped error", baseErr)

	gudaErr, ok := wrappedErr.(*GUDAError)
	require.True(t, ok)
	require.Equal(t, baseErr, gudaErr.Unwrap())
	require.ErrorIs(t, wrappedErr, baseErr)
	require.Equal(t, "GUDA Memory error in Test: wrapped error (caused by: base error)", wrappedErr.Error())

	exec := NewExecutionError("Run", "stopped", baseErr)
	require.ErrorIs(t, exec, baseErr)
	require.True(t, IsExecutionError(exec))
}

func TestErrorFormatting(t *testing.T) {
	err := NewInvalidArgErrorf("Sum", "axis %d out of range for %d dimensions", 3, 2)
	require.Equal(t, "GUDA InvalidArgument error in Sum: axis 3 out of range for 2 dimensions", err.Error())

	num := NewNumericalError("Var", "negative variance", -1.0)
	require.Equal(t, ErrTypeNumerical, num.(*GUDAError).Type)
	require.Equal(t, -1.0, num.(*GUDAError).Context)
}

func TestErrorTypeString(t *testing.T) {
	tests := []struct {
		errType ErrorType
		want    string
	}{
		{ErrTypeMemory, "Memory"},
		{ErrTypeInvalidArg, "InvalidArgument"},
		{ErrTypeExecution, "Execution"},
		{ErrTypeNumerical, "Numerical"},
		{ErrTypeDevice, "Device"},
		{ErrTypeNotImplemented, "NotImplemented"},
		{ErrorType(999), "Unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			require.Equal(t, tt.want, tt.errType.String())
		})
	}
}

package core

import (
	"errors"
	"fmt"
)

var (
	// ErrResourceCreation marks a failed GPU object creation. Fatal at startup.
	ErrResourceCreation = errors.New("gpu resource creation failed")
	// ErrUnsupportedPlatform means no WebGPU adapter or device is available.
	ErrUnsupportedPlatform = errors.New("webgpu is not supported on this platform")
	// ErrSubmission marks a failure while recording or submitting a frame.
	// The frame loop stops scheduling frames when it sees one.
	ErrSubmission = errors.New("gpu submission failed")
)

// GPUError carries the failed operation alongside its kind.
type GPUError struct {
	Kind error
	Op   string
	Err  error
}

func (e *GPUError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind, e.Err)
}

func (e *GPUError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func ResourceError(op string, err error) error {
	return &GPUError{Kind: ErrResourceCreation, Op: op, Err: err}
}

func SubmissionError(op string, err error) error {
	return &GPUError{Kind: ErrSubmission, Op: op, Err: err}
}

func PlatformError(op string, err error) error {
	return &GPUError{Kind: ErrUnsupportedPlatform, Op: op, Err: err}
}

// InvalidValueError rejects an out-of-range mode or style at a boundary.
type InvalidValueError struct {
	Kind  string
	Value any
}

func (e *InvalidValueError) Error() string {
	return fmt.Sprintf("invalid %s: %v", e.Kind, e.Value)
}

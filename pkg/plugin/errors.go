package plugin

import "fmt"

// NotFoundError indicates no implementation is registered for an
// identifier.
type NotFoundError struct {
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("plugin not found: %s", e.Name)
}

// ContractError indicates an implementation exists but exposes no usable
// entry point (Locals, Execute, or Call).
type ContractError struct {
	Name string
}

func (e *ContractError) Error() string {
	return fmt.Sprintf("plugin %s must implement Locals, Execute, or Call", e.Name)
}

// ExecutionError wraps a failure raised by plugin logic during an
// invocation.
type ExecutionError struct {
	Name string
	Err  error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("plugin %s execution failed: %v", e.Name, e.Err)
}

func (e *ExecutionError) Unwrap() error { return e.Err }

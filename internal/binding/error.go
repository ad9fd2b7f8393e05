package binding

import "errors"

// Error definitions for the binding package.
var (
	ErrNotFound          = errors.New("binding not found in registry")
	ErrAlreadyRegistered = errors.New("binding is already registered in the registry")
	ErrNotImplemented    = errors.New("operation is not implemented by this binding")
	ErrNoModelSelected   = errors.New("no model selected in host configuration")
	ErrReferenceMissing  = errors.New("reference model file does not exist")
)

package errors

import "fmt"

// BadArgument creates an error for an argument of the wrong shape
func BadArgument(command, arg, value string) *BagError {
	return New(ErrCodeBadArgument, fmt.Sprintf("%s: invalid value %q for <%s>", command, value, arg)).
		WithDetail("command", command).
		WithDetail("argument", arg)
}

// MissingArgument creates an error for a required argument that was not given
func MissingArgument(command, arg string) *BagError {
	return New(ErrCodeMissingArgument, fmt.Sprintf("%s: missing <%s>", command, arg)).
		WithDetail("command", command).
		WithDetail("argument", arg)
}

// CommandNotFound creates an unknown command error
func CommandNotFound(name string) *BagError {
	return New(ErrCodeCommandNotFound, fmt.Sprintf("command %q not found", name)).
		WithDetail("command", name)
}

// Storage wraps a persistence failure
func Storage(op string, err error) *BagError {
	return Wrap(err, ErrCodeStorage, fmt.Sprintf("storage %s failed", op)).
		WithDetail("op", op)
}

// ConfigInvalid creates an invalid configuration error
func ConfigInvalid(reason string) *BagError {
	return New(ErrCodeConfigInvalid, fmt.Sprintf("invalid configuration: %s", reason))
}

package cache

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

// ErrConfiguration matches every ConfigurationError via errors.Is.
var ErrConfiguration = errors.New("cache: invalid configuration")

// Configuration errors. They are returned wrapped in a ConfigurationError.
var (
	ErrNilBackend            = errors.New("cache: backend is nil")
	ErrNilWrapper            = errors.New("cache: wrapper is nil")
	ErrNilFunc               = errors.New("cache: computation is nil")
	ErrNoSignVariables       = errors.New("cache: no sign variables configured")
	ErrDuplicateSignVariable = errors.New("cache: duplicate sign variable")
	ErrUnknownSignVariable   = errors.New("cache: sign variable is not a declared parameter")
	ErrInvalidSignature      = errors.New("cache: invalid signature")
)

// Key errors.
var (
	ErrInvalidKey    = errors.New("cache: key is invalid")
	ErrKeyTooLong    = errors.New("cache: key exceeds max length")
	ErrKeyDerivation = errors.New("cache: cannot derive key")
)

// Argument binding errors. These are caller errors, not cache errors.
var (
	ErrTooManyArguments   = errors.New("cache: too many positional arguments")
	ErrUnexpectedArgument = errors.New("cache: unexpected keyword argument")
	ErrMissingArgument    = errors.New("cache: missing required argument")
)

// Codec errors.
var (
	ErrEncode = errors.New("cache: cannot encode value")
	ErrDecode = errors.New("cache: cannot decode value")
)

// ConfigurationError reports a wrapper that cannot be built. It is returned
// at construction time, before any invocation.
type ConfigurationError struct {
	// Identity of the computation being wrapped, if known.
	Identity string
	// Variable is the offending sign variable, if any.
	Variable string
	// Err is one of the configuration sentinels.
	Err error
}

func (e *ConfigurationError) Error() string {
	switch {
	case e.Identity != "" && e.Variable != "":
		return fmt.Sprintf("%v: %q (%s)", e.Err, e.Variable, e.Identity)
	case e.Variable != "":
		return fmt.Sprintf("%v: %q", e.Err, e.Variable)
	case e.Identity != "":
		return fmt.Sprintf("%v (%s)", e.Err, e.Identity)
	default:
		return e.Err.Error()
	}
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// Is reports whether target is ErrConfiguration.
func (e *ConfigurationError) Is(target error) bool { return target == ErrConfiguration }

func configError(identity, variable string, err error) error {
	return &ConfigurationError{Identity: identity, Variable: variable, Err: err}
}

// CodecError reports a value that could not be encoded for, or decoded
// from, the backend.
type CodecError struct {
	Key    string
	Decode bool
	Err    error
}

func (e *CodecError) Error() string {
	if e.Decode {
		return fmt.Sprintf("%v %s: %v", ErrDecode, e.Key, e.Err)
	}
	return fmt.Sprintf("%v %s: %v", ErrEncode, e.Key, e.Err)
}

func (e *CodecError) Unwrap() error { return e.Err }

// Is matches ErrDecode or ErrEncode depending on direction.
func (e *CodecError) Is(target error) bool {
	if e.Decode {
		return target == ErrDecode
	}
	return target == ErrEncode
}

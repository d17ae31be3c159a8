package cache

import (
	"strings"

	"github.com/cockroachdb/errors"
)

type noDefault struct{}

func (noDefault) String() string { return "<no default>" }

// NoDefault is bound to a declared parameter that has no default value and
// was not supplied by the caller. It is never a real argument value.
var NoDefault any = noDefault{}

// Param declares one parameter of a computation.
type Param struct {
	// Name is the parameter name used for keyword arguments and sign variables.
	Name string

	// Default is used when the caller omits the argument. NoDefault marks a
	// required parameter.
	Default any
}

// Required declares a parameter without a default value.
func Required(name string) Param {
	return Param{Name: name, Default: NoDefault}
}

// Optional declares a parameter with a default value.
func Optional(name string, def any) Param {
	return Param{Name: name, Default: def}
}

// HasDefault reports whether the parameter declares a default.
func (p Param) HasDefault() bool {
	return p.Default != NoDefault
}

// Signature is the call signature of a computation: a stable identity plus
// its ordered parameters. A Signature is immutable once built.
type Signature struct {
	scope  string
	name   string
	params []Param
	index  map[string]int
}

// NewSignature builds a Signature. Scope qualifies name (a package path, a
// service name) and together they form the computation identity that keys
// are derived from, so both must stay stable across releases for persisted
// entries to remain valid.
func NewSignature(scope, name string, params ...Param) (*Signature, error) {
	if strings.TrimSpace(name) == "" {
		return nil, configError(scope, "", errors.Wrap(ErrInvalidSignature, "name is required"))
	}

	s := &Signature{
		scope:  scope,
		name:   name,
		params: make([]Param, len(params)),
		index:  make(map[string]int, len(params)),
	}
	copy(s.params, params)

	for i, p := range params {
		if strings.TrimSpace(p.Name) == "" {
			return nil, configError(s.Identity(), "", errors.Wrapf(ErrInvalidSignature, "parameter %d has no name", i))
		}
		if _, dup := s.index[p.Name]; dup {
			return nil, configError(s.Identity(), p.Name, errors.Wrap(ErrInvalidSignature, "duplicate parameter"))
		}
		s.index[p.Name] = i
	}

	return s, nil
}

// MustSignature is like NewSignature but panics on error. It is meant for
// package-level declarations.
func MustSignature(scope, name string, params ...Param) *Signature {
	s, err := NewSignature(scope, name, params...)
	if err != nil {
		panic(err)
	}
	return s
}

// Scope returns the qualifying scope.
func (s *Signature) Scope() string { return s.scope }

// Name returns the computation name.
func (s *Signature) Name() string { return s.name }

// Identity returns the fully qualified computation identity.
// Format: <scope>.<name> or just <name>
func (s *Signature) Identity() string {
	if s.scope == "" {
		return s.name
	}
	return s.scope + "." + s.name
}

// Names returns the parameter names in declaration order.
func (s *Signature) Names() []string {
	names := make([]string, len(s.params))
	for i, p := range s.params {
		names[i] = p.Name
	}
	return names
}

// Len returns the number of declared parameters.
func (s *Signature) Len() int { return len(s.params) }

// Has reports whether name is a declared parameter.
func (s *Signature) Has(name string) bool {
	_, ok := s.index[name]
	return ok
}

// Default returns the declared default of name. The second result is false
// when name is not declared or has no default.
func (s *Signature) Default(name string) (any, bool) {
	i, ok := s.index[name]
	if !ok || !s.params[i].HasDefault() {
		return nil, false
	}
	return s.params[i].Default, true
}

// Normalize resolves args against the signature into one mapping from
// parameter name to value. Defaults are applied first, then positional
// arguments in declaration order, then keyword arguments; a keyword argument
// wins over a positional one for the same parameter.
//
// The result covers every declared parameter. A required parameter the
// caller did not supply is bound to NoDefault.
func (s *Signature) Normalize(args Args) (Bound, error) {
	if len(args.Positional) > len(s.params) {
		return nil, errors.Wrapf(ErrTooManyArguments, "%s takes %d, got %d",
			s.Identity(), len(s.params), len(args.Positional))
	}

	bound := make(Bound, len(s.params))
	for _, p := range s.params {
		bound[p.Name] = p.Default
	}
	for i, v := range args.Positional {
		bound[s.params[i].Name] = v
	}
	for name, v := range args.Keyword {
		if _, ok := s.index[name]; !ok {
			return nil, errors.Wrapf(ErrUnexpectedArgument, "%s has no parameter %q", s.Identity(), name)
		}
		bound[name] = v
	}

	return bound, nil
}

// missing returns required parameters left unbound, in declaration order.
func (s *Signature) missing(b Bound) []string {
	var names []string
	for _, p := range s.params {
		if b[p.Name] == NoDefault {
			names = append(names, p.Name)
		}
	}
	return names
}

// Args are the arguments of one invocation as the caller supplied them.
type Args struct {
	Positional []any
	Keyword    map[string]any
}

// Call builds Args from positional values.
func Call(positional ...any) Args {
	return Args{Positional: positional}
}

// Keywords builds Args from keyword values only.
func Keywords(kw map[string]any) Args {
	return Args{Keyword: kw}
}

// With returns a copy of a with an additional keyword argument.
func (a Args) With(name string, value any) Args {
	kw := make(map[string]any, len(a.Keyword)+1)
	for k, v := range a.Keyword {
		kw[k] = v
	}
	kw[name] = value
	return Args{Positional: a.Positional, Keyword: kw}
}

// Bound maps every declared parameter to the value used by one invocation.
type Bound map[string]any

// Lookup returns the value bound to name. It reports false when name is not
// bound or is bound to NoDefault.
func (b Bound) Lookup(name string) (any, bool) {
	v, ok := b[name]
	if !ok || v == NoDefault {
		return nil, false
	}
	return v, true
}

// Arg returns the value bound to name converted to T.
func Arg[T any](b Bound, name string) (T, bool) {
	v, ok := b.Lookup(name)
	if !ok {
		var zero T
		return zero, false
	}
	t, ok := v.(T)
	return t, ok
}

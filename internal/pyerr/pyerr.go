// Package pyerr defines the closed set of error kinds produced by the
// compiler and interpreter. Every failure in the pipeline is fatal to its
// operation: no partial artifact is ever returned, and callers distinguish
// failures with errors.Is against the exported Kind sentinels rather than by
// matching message text.
package pyerr

import "fmt"

// Kind identifies one of the typed error categories of the compiler and
// interpreter. Kind values are comparable and suitable for errors.Is.
type Kind int

const (
	_ Kind = iota

	// Source validation.
	SourceTooLarge
	MissingOutput
	ForbiddenName
	UnbalancedPunctuation
	DisallowedImport

	// Parsing.
	ParseError

	// Lowering.
	UnsupportedStatement
	UnsupportedExpression
	UnsupportedOperator
	TupleUnpackMismatch
	MultipleAssignment
	NonNameAssignTarget
	IntegerOutOfRange
	FloatLiteral
	ChainedComparison
	UnknownFunction
	RangeMisuse
	NonIntegerContainerElement
	TooManyLocals
	UndefinedVariable
	UndefinedFunction

	// Module validation.
	ModuleTooLarge
	InvalidMagic
	InvalidVersion
	FloatOpcode
	WasiImport
	ThreadOpcode

	// Interpreter.
	InterpreterFuelExhausted
	InterpreterStackOverflow
	InterpreterDivideByZero
	InterpreterOOB
	InterpreterUnsupportedOpcode
)

var kindNames = map[Kind]string{
	SourceTooLarge:               "SourceTooLarge",
	MissingOutput:                "MissingOutput",
	ForbiddenName:                "ForbiddenName",
	UnbalancedPunctuation:        "UnbalancedPunctuation",
	DisallowedImport:             "DisallowedImport",
	ParseError:                   "ParseError",
	UnsupportedStatement:         "UnsupportedStatement",
	UnsupportedExpression:        "UnsupportedExpression",
	UnsupportedOperator:          "UnsupportedOperator",
	TupleUnpackMismatch:          "TupleUnpackMismatch",
	MultipleAssignment:           "MultipleAssignment",
	NonNameAssignTarget:          "NonNameAssignTarget",
	IntegerOutOfRange:            "IntegerOutOfRange",
	FloatLiteral:                 "FloatLiteral",
	ChainedComparison:            "ChainedComparison",
	UnknownFunction:              "UnknownFunction",
	RangeMisuse:                  "RangeMisuse",
	NonIntegerContainerElement:   "NonIntegerContainerElement",
	TooManyLocals:                "TooManyLocals",
	UndefinedVariable:            "UndefinedVariable",
	UndefinedFunction:            "UndefinedFunction",
	ModuleTooLarge:               "ModuleTooLarge",
	InvalidMagic:                 "InvalidMagic",
	InvalidVersion:               "InvalidVersion",
	FloatOpcode:                  "FloatOpcode",
	WasiImport:                   "WasiImport",
	ThreadOpcode:                 "ThreadOpcode",
	InterpreterFuelExhausted:     "InterpreterFuelExhausted",
	InterpreterStackOverflow:     "InterpreterStackOverflow",
	InterpreterDivideByZero:      "InterpreterDivideByZero",
	InterpreterOOB:               "InterpreterOOB",
	InterpreterUnsupportedOpcode: "InterpreterUnsupportedOpcode",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Error is the concrete error type returned by every fallible operation in
// the compiler and interpreter. Detail is a free-form human-readable
// explanation; Token, when non-empty, names the offending source fragment
// (a forbidden builtin, an unknown function, etc).
type Error struct {
	Kind   Kind
	Token  string
	Detail string
	cause  error
}

// New constructs an *Error of the given kind with a formatted detail.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Detail: fmt.Sprintf(format, args...)}
}

// WithToken attaches the offending token to a *Error, as used for
// ForbiddenName, UnknownFunction, and UndefinedVariable/UndefinedFunction.
func (e *Error) WithToken(tok string) *Error {
	e.Token = tok
	return e
}

// Wrap records the underlying cause while preserving the Kind for errors.Is.
func (e *Error) Wrap(cause error) *Error {
	e.cause = cause
	return e
}

func (e *Error) Error() string {
	if e.Token != "" {
		return fmt.Sprintf("%s: %s (%q)", e.Kind, e.Detail, e.Token)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}

func (e *Error) Unwrap() error { return e.cause }

// Is implements the errors.Is protocol by Kind equality, so callers compare
// against one of the Err* sentinels below (errors.Is(err, pyerr.ErrMissingOutput))
// regardless of Detail/Token, which vary per call site.
func (e *Error) Is(target error) bool {
	other, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == other.Kind
}

// Sentinel values, one per Kind, for use with errors.Is. New(kind, ...)
// produces distinct *Error values that still compare equal under Is.
var (
	ErrSourceTooLarge               = &Error{Kind: SourceTooLarge}
	ErrMissingOutput                = &Error{Kind: MissingOutput}
	ErrForbiddenName                = &Error{Kind: ForbiddenName}
	ErrUnbalancedPunctuation        = &Error{Kind: UnbalancedPunctuation}
	ErrDisallowedImport             = &Error{Kind: DisallowedImport}
	ErrParseError                   = &Error{Kind: ParseError}
	ErrUnsupportedStatement         = &Error{Kind: UnsupportedStatement}
	ErrUnsupportedExpression        = &Error{Kind: UnsupportedExpression}
	ErrUnsupportedOperator          = &Error{Kind: UnsupportedOperator}
	ErrTupleUnpackMismatch          = &Error{Kind: TupleUnpackMismatch}
	ErrMultipleAssignment           = &Error{Kind: MultipleAssignment}
	ErrNonNameAssignTarget          = &Error{Kind: NonNameAssignTarget}
	ErrIntegerOutOfRange            = &Error{Kind: IntegerOutOfRange}
	ErrFloatLiteral                 = &Error{Kind: FloatLiteral}
	ErrChainedComparison            = &Error{Kind: ChainedComparison}
	ErrUnknownFunction              = &Error{Kind: UnknownFunction}
	ErrRangeMisuse                  = &Error{Kind: RangeMisuse}
	ErrNonIntegerContainerElement   = &Error{Kind: NonIntegerContainerElement}
	ErrTooManyLocals                = &Error{Kind: TooManyLocals}
	ErrUndefinedVariable            = &Error{Kind: UndefinedVariable}
	ErrUndefinedFunction            = &Error{Kind: UndefinedFunction}
	ErrModuleTooLarge               = &Error{Kind: ModuleTooLarge}
	ErrInvalidMagic                 = &Error{Kind: InvalidMagic}
	ErrInvalidVersion               = &Error{Kind: InvalidVersion}
	ErrFloatOpcode                  = &Error{Kind: FloatOpcode}
	ErrWasiImport                   = &Error{Kind: WasiImport}
	ErrThreadOpcode                 = &Error{Kind: ThreadOpcode}
	ErrInterpreterFuelExhausted     = &Error{Kind: InterpreterFuelExhausted}
	ErrInterpreterStackOverflow     = &Error{Kind: InterpreterStackOverflow}
	ErrInterpreterDivideByZero      = &Error{Kind: InterpreterDivideByZero}
	ErrInterpreterOOB               = &Error{Kind: InterpreterOOB}
	ErrInterpreterUnsupportedOpcode = &Error{Kind: InterpreterUnsupportedOpcode}
)

/*
Package errors implements the error taxonomy shared by all quorum packages.

Reuse the root errors declared in this package whenever possible and only
declare a package specific error when the failure needs its own code. A
custom root error is declared with Register(code, description) during the
program startup. Codes are unique across the whole binary.

Create error instances with ErrXyz.New("..."), ErrXyz.Newf or
errors.Wrap(err, "...") at the point where the failure is detected, so that
a stack trace is attached to the innermost wrap. Do not declare instances
as global variables, or the recorded stack trace is useless.

Formatting an error with fmt:

	%s is just the error message
	%v is the error message
	%+v is the error message followed by the stack trace of the creation point

Use Is to test for the kind of an error:

	if errors.ErrNotFound.Is(err) { ... }
*/
package errors

package animation

import "errors"

var (
	// ErrInvalidBreakpoints reports a malformed interpolation range.
	ErrInvalidBreakpoints = errors.New("invalid breakpoints")
	// ErrInvalidSpringParameters reports a spring that cannot be simulated.
	ErrInvalidSpringParameters = errors.New("invalid spring parameters")
	// ErrSpringNotSettled reports a spring that does not settle in a
	// measurable number of frames.
	ErrSpringNotSettled = errors.New("spring does not settle")
)

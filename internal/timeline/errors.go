package timeline

import "github.com/ansel1/merry/v2"

// ErrValidation marks a composition that cannot be rendered as given.
// It is returned before any side effect happens.
var ErrValidation = merry.Sentinel("invalid composition")

func validationError(format string, args ...any) error {
	return merry.Wrap(ErrValidation, merry.WithMessagef("invalid composition: "+format, args...))
}

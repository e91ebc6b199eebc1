package markup

import "errors"

// ErrTooDeep is returned when the element tree nests deeper than the parser allows.
var ErrTooDeep = errors.New("markup nesting exceeds maximum depth")

package archive

import "errors"

// ErrNoMatches is returned when no path pattern matches any file.
var ErrNoMatches = errors.New("archive: no paths matched")

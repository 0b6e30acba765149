package keywatch

import "errors"

// ErrNotConfigured is returned by Instance when no store opener has been
// registered via Configure. It signals a startup-order bug: some package
// asked for the process-wide session before main wired one up.
var ErrNotConfigured = errors.New("keywatch: no store configured")

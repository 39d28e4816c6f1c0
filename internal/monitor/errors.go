package monitor

import "errors"

// errNoDocument aborts a run outright: probing without a loaded endpoint
// document would record garbage rather than data.
var errNoDocument = errors.New("no endpoint document loaded")

package procsup

import "os"

// osEnviron is a seam so tests can stub the parent environment without
// mutating process-global state.
var osEnviron = os.Environ

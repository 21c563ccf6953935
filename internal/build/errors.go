package build

import "errors"

// Sentinel errors wrapped by stage failures so callers can classify them with errors.Is.
var (
	ErrDiscovery = errors.New("sitegen: discovery error")
	ErrRender    = errors.New("sitegen: render error")
	ErrWrite     = errors.New("sitegen: write error")
	ErrStrict    = errors.New("sitegen: aborted in strict mode")
)

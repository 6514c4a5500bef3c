package runtimeadapter

import (
	"strings"

	"github.com/mr-karan/wgmesh/internal/apierr"
)

// notExistsMarkers are the tool diagnostics that classifyCommandError
// turns into an apierr.KindNotExists error (returned by GetInterface and
// treated as success by RemovePeer with IgnoreIfMissing) when the
// underlying tool reports the interface doesn't exist.
var notExistsMarkers = []string{
	"no such device",
	"unable to access interface",
}

func isNotExistsOutput(s string) bool {
	lower := strings.ToLower(s)
	for _, m := range notExistsMarkers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}

// classifyCommandError turns a failed subprocess invocation into an
// apierr.Kind: NotExists when the tool's own diagnostics say so,
// RuntimeError otherwise.
func classifyCommandError(message string, exitCode int, stderr string) error {
	if isNotExistsOutput(stderr) || isNotExistsOutput(message) {
		return apierr.New(apierr.KindNotExists, message)
	}
	return apierr.Runtime(message, exitCode, stderr)
}

package runtimeadapter

import (
	"fmt"
	"os"
)

// withSecretFile writes content to a 0600 temp file, calls fn with its
// path, and unconditionally removes the file afterward — even if fn
// fails. PSKs and private keys reach the control tool via a filesystem
// path, never argv, and the temp file is cleaned up on every exit path.
func withSecretFile(content string, fn func(path string) error) error {
	f, err := os.CreateTemp("", "wgmesh-secret-*")
	if err != nil {
		return fmt.Errorf("creating secret temp file: %w", err)
	}
	path := f.Name()
	defer os.Remove(path)

	if err := f.Chmod(0o600); err != nil {
		f.Close()
		return fmt.Errorf("chmod secret temp file: %w", err)
	}
	if _, err := f.WriteString(content); err != nil {
		f.Close()
		return fmt.Errorf("writing secret temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing secret temp file: %w", err)
	}

	return fn(path)
}

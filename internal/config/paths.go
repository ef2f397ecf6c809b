package config

import (
	"os"
	"path/filepath"
	"strings"
)

// ExecutableDir returns the directory of the running binary with symlinks
// resolved, or the working directory if that is unknown.
func ExecutableDir() string {
	if exe, err := os.Executable(); err == nil {
		if resolved, err := filepath.EvalSymlinks(exe); err == nil {
			exe = resolved
		}
		return filepath.Dir(exe)
	}
	if wd, err := os.Getwd(); err == nil {
		return wd
	}
	return "."
}

// ResolveRuntimePath resolves raw against the executable directory, using
// fallbackSubdir when raw is blank.
func ResolveRuntimePath(raw, fallbackSubdir string) string {
	return resolveAgainst(ExecutableDir(), raw, fallbackSubdir)
}

func resolveAgainst(base, raw, fallbackSubdir string) string {
	target := strings.TrimSpace(raw)
	if target == "" {
		target = strings.TrimSpace(fallbackSubdir)
	}
	switch {
	case target == "":
		return base
	case filepath.IsAbs(target):
		return filepath.Clean(target)
	default:
		return filepath.Join(base, target)
	}
}

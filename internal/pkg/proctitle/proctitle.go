package proctitle

import (
	"strconv"
	"strings"
)

// MaxLen is the kernel's limit for a thread name, excluding the NUL.
const MaxLen = 15

// Format builds "name:port", trimming name so the port always survives
// truncation to MaxLen.
func Format(name string, port int) string {
	name = strings.TrimSpace(name)
	if port <= 0 {
		if len(name) > MaxLen {
			return name[:MaxLen]
		}
		return name
	}
	suffix := ":" + strconv.Itoa(port)
	if keep := MaxLen - len(suffix); len(name) > keep {
		name = name[:keep]
	}
	return name + suffix
}

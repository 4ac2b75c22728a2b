package nativemsg

import "regexp"

var hostNamePattern = regexp.MustCompile(`^[a-z0-9_]+(\.[a-z0-9_]+)*$`)

// ValidHostName reports whether name is a well-formed host identifier:
// lowercase alphanumerics and underscores in dot-separated, non-empty segments.
func ValidHostName(name string) bool {
	return hostNamePattern.MatchString(name)
}

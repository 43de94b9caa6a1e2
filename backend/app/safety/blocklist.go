// Package safety filters operator-submitted shell commands before they are
// queued for an edge gateway. The blocklist is deliberately conservative:
// a false positive costs an operator a rephrase, a false negative can brick
// a device in the field.
package safety

import (
	"errors"
	"regexp"
	"strings"
)

var (
	ErrEmptyCommand   = errors.New("command is empty")
	ErrBlockedCommand = errors.New("command is blocked for safety reasons")
)

// Patterns compiled once at startup; the table is never mutated at runtime.
var blockedPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\brm\s+(-[a-zA-Z]*f[a-zA-Z]*\s+)?/\s*$`), // rm -rf /
	regexp.MustCompile(`\brm\s+-[a-zA-Z]*r[a-zA-Z]*\s+-[a-zA-Z]*f[a-zA-Z]*\s+/\s*$`),
	regexp.MustCompile(`\bsysupgrade\b`), // firmware reflash
	regexp.MustCompile(`\bmkfs\b`),
	regexp.MustCompile(`\bfirstboot\b`), // factory reset
	regexp.MustCompile(`\bdd\s+.*of=/dev/`),
	regexp.MustCompile(`\bpasswd\b`),
	regexp.MustCompile(`\breboot\b.*-f`),
	regexp.MustCompile(`>\s*/dev/sd`),
	regexp.MustCompile(`\bcurl\b.*\|\s*(sh|bash)`), // fetch-and-execute
	regexp.MustCompile(`\bwget\b.*\|\s*(sh|bash)`),
	regexp.MustCompile(`\bopkg\s+remove\b`),
}

// Blocked reports whether command matches any blocklist pattern.
func Blocked(command string) bool {
	for _, p := range blockedPatterns {
		if p.MatchString(command) {
			return true
		}
	}
	return false
}

// ValidateCommand rejects empty or blocklisted input. Pure and deterministic.
func ValidateCommand(command string) error {
	if strings.TrimSpace(command) == "" {
		return ErrEmptyCommand
	}
	if Blocked(strings.TrimSpace(command)) {
		return ErrBlockedCommand
	}
	return nil
}

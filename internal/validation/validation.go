package validation

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"unicode"
)

// MaxIdentifierLength is the longest identifier accepted (PATH_MAX)
const MaxIdentifierLength = 4096

// mountOptionPattern matches a single mount(8) option such as "ro" or "uid=1000"
var mountOptionPattern = regexp.MustCompile(`^[A-Za-z0-9_.+-]+(=[^,\s]+)?$`)

// ValidateIdentifier validates a device identifier typed by the user:
// - not empty or only whitespace
// - at most MaxIdentifierLength bytes
// - no control characters
func ValidateIdentifier(id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("device identifier must not be empty")
	}

	if len(id) > MaxIdentifierLength {
		return fmt.Errorf("device identifier must be at most %d characters", MaxIdentifierLength)
	}

	for _, r := range id {
		if unicode.IsControl(r) {
			return fmt.Errorf("device identifier must not contain control characters")
		}
	}

	return nil
}

// ValidateMountPoint validates an explicit mount point
func ValidateMountPoint(path string) error {
	if path == "" {
		return fmt.Errorf("mount point must not be empty")
	}

	if !filepath.IsAbs(path) {
		return fmt.Errorf("mount point %q must be an absolute path", path)
	}

	if strings.ContainsRune(path, 0) {
		return fmt.Errorf("mount point must not contain NUL bytes")
	}

	if filepath.Clean(path) == "/" {
		return fmt.Errorf("refusing to use / as a mount point")
	}

	return nil
}

// ValidateMountOption validates a single mount option
func ValidateMountOption(opt string) error {
	if !mountOptionPattern.MatchString(opt) {
		return fmt.Errorf("invalid mount option %q", opt)
	}
	return nil
}

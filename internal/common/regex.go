package common

import (
	"fmt"
	"regexp"
	"strings"
)

// CompileInsensitive compiles a user supplied pattern as a case-insensitive regex.
func CompileInsensitive(pattern string) (*regexp.Regexp, error) {
	if !strings.HasPrefix(pattern, "(?i)") {
		pattern = "(?i)" + pattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid pattern: %v", ErrInvalidConfig, err)
	}
	return re, nil
}

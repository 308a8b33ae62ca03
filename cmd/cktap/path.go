package cmd

import (
	"fmt"
	"strconv"
	"strings"
)

// parsePath parses a slash-separated derivation path such as "0/1/2"
// into the []uint32 the card package expects.
func parsePath(s string) ([]uint32, error) {
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, "/")
	path := make([]uint32, len(parts))
	for i, p := range parts {
		n, err := strconv.ParseUint(p, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("bad path component %q: %w", p, err)
		}
		path[i] = uint32(n)
	}
	return path, nil
}

package config

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseTicks reads a comma separated tick list such as "37,100,250".
// An empty string yields nil.
func ParseTicks(s string) ([]uint32, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	var out []uint32
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		v, err := strconv.ParseUint(part, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("tick %q: %w", part, err)
		}
		out = append(out, uint32(v))
	}
	return out, nil
}

package cmd

import (
	"fmt"
	"strconv"
	"strings"
)

// maxSweepSeeds caps how many runs one sweep expression can request.
const maxSweepSeeds = 10000

// ParseSeeds expands a sweep expression into seed values. Entries are comma
// separated; each is a single seed "7", a half-open range "0..4" giving
// 0,1,2,3, or an inclusive range "0..=4" giving 0,1,2,3,4.
func ParseSeeds(expr string) ([]int64, error) {
	var seeds []int64
	for _, part := range strings.Split(expr, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			return nil, fmt.Errorf("empty seed entry in %q", expr)
		}
		lo, hi, err := parseSeedPart(part)
		if err != nil {
			return nil, err
		}
		for s := lo; s < hi; s++ {
			seeds = append(seeds, s)
			if len(seeds) > maxSweepSeeds {
				return nil, fmt.Errorf("sweep %q expands to more than %d seeds", expr, maxSweepSeeds)
			}
		}
	}
	return seeds, nil
}

// parseSeedPart returns the half-open [lo, hi) expansion of one entry.
func parseSeedPart(part string) (int64, int64, error) {
	idx := strings.Index(part, "..")
	if idx < 0 {
		v, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return 0, 0, fmt.Errorf("bad seed %q: %w", part, err)
		}
		return v, v + 1, nil
	}

	loStr := strings.TrimSpace(part[:idx])
	hiStr := strings.TrimSpace(part[idx+2:])
	inclusive := strings.HasPrefix(hiStr, "=")
	if inclusive {
		hiStr = strings.TrimSpace(hiStr[1:])
	}
	lo, err := strconv.ParseInt(loStr, 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("bad range start in %q: %w", part, err)
	}
	hi, err := strconv.ParseInt(hiStr, 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("bad range end in %q: %w", part, err)
	}
	if inclusive {
		hi++
	}
	if hi <= lo {
		return 0, 0, fmt.Errorf("range %q is empty", part)
	}
	return lo, hi, nil
}

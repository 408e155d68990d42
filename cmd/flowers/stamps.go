package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Carmen-Shannon/oxy-flowers/common"
)

// parseStamps parses "x,y" pairs of normalized coordinates, y down.
func parseStamps(values []string) ([]common.Vec2, error) {
	out := make([]common.Vec2, 0, len(values))
	for _, v := range values {
		xs, ys, ok := strings.Cut(v, ",")
		if !ok {
			return nil, fmt.Errorf("stamp %q: want x,y", v)
		}
		x, err := strconv.ParseFloat(strings.TrimSpace(xs), 32)
		if err != nil {
			return nil, fmt.Errorf("stamp %q: %w", v, err)
		}
		y, err := strconv.ParseFloat(strings.TrimSpace(ys), 32)
		if err != nil {
			return nil, fmt.Errorf("stamp %q: %w", v, err)
		}
		if x < 0 || x > 1 || y < 0 || y > 1 {
			return nil, fmt.Errorf("stamp %q: coordinates must be in [0, 1]", v)
		}
		out = append(out, common.Vec2{float32(x), float32(y)})
	}
	return out, nil
}

// stampSchedule spreads n stamps evenly over the frames, the first before frame 0.
// The result maps a frame index to the stamps injected before it.
func stampSchedule(n, frames int) map[int][]int {
	schedule := make(map[int][]int, n)
	for k := 0; k < n; k++ {
		at := k * frames / n
		schedule[at] = append(schedule[at], k)
	}
	return schedule
}

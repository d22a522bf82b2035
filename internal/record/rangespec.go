package record

import (
	"strconv"
	"strings"
)

// ParseRange resolves a bulk range spec such as "1-5, 9, 20-12" into the
// numbers it names. Ranges are clamped to [MinNumber, MaxNumber], single
// numbers outside it are dropped and malformed tokens (including "1-2-3")
// are skipped. Each number appears once, in first-seen order.
func ParseRange(spec string) []int {
	seen := make(map[int]struct{})
	var out []int
	add := func(n int) {
		if !InRange(n) {
			return
		}
		if _, ok := seen[n]; ok {
			return
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}

	for _, part := range strings.Split(spec, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		lo, hi, isRange := strings.Cut(part, "-")
		if !isRange {
			if n, err := strconv.Atoi(part); err == nil {
				add(n)
			}
			continue
		}
		a, errA := strconv.Atoi(strings.TrimSpace(lo))
		b, errB := strconv.Atoi(strings.TrimSpace(hi))
		if errA != nil || errB != nil {
			continue
		}
		if a > b {
			a, b = b, a
		}
		a = max(a, MinNumber)
		b = min(b, MaxNumber)
		for n := a; n <= b; n++ {
			add(n)
		}
	}
	return out
}

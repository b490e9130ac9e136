package stock

import (
	"fmt"
	"strconv"
	"strings"
)

// Document number prefixes. Numbers read PREFIX-YYYY-NNN.
const (
	PrefixDelivery = "DEL"
	PrefixPressing = "PRESS"
	PrefixExport   = "EXP"
)

// nextNumber returns the document number following the highest one already
// present for prefix and year, so gaps left by deletions are never refilled.
func nextNumber(prefix string, year int, existing []string) string {
	head := fmt.Sprintf("%s-%d-", prefix, year)
	max := 0
	for _, no := range existing {
		rest, ok := strings.CutPrefix(no, head)
		if !ok {
			continue
		}
		if n, err := strconv.Atoi(rest); err == nil && n > max {
			max = n
		}
	}
	return fmt.Sprintf("%s%03d", head, max+1)
}

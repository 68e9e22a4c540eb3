package requisition

import (
	"fmt"
	"strconv"
	"strings"
)

// parseQuantity extracts the leading numeric magnitude from a quantity
// string such as "6 pieces" or "100 kg". Fractional leading numbers are
// truncated toward zero; a magnitude outside int range is an error.
func parseQuantity(q string) (int, error) {
	s := strings.TrimSpace(q)
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0, fmt.Errorf("quantity %q has no leading number", q)
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0, fmt.Errorf("quantity %q out of range", q)
	}
	return n, nil
}

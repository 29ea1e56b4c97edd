package handler

import (
	"fmt"
	"strconv"
)

// parsePositiveInt parses a query parameter that must be a positive integer
func parsePositiveInt(raw string) (int, error) {
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, err
	}
	if v <= 0 {
		return 0, fmt.Errorf("value must be positive, got %d", v)
	}
	return v, nil
}

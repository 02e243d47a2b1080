package postgres

import (
	"math/big"
	"time"
)

func parseTime(input string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, input)
}

func bigString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

package config

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseNetworks converts chainID=url pairs into a lookup keyed by chain id.
func ParseNetworks(input map[string]string) (map[uint64]string, error) {
	out := make(map[uint64]string, len(input))
	for key, url := range input {
		key = strings.TrimSpace(key)
		base := 10
		if strings.HasPrefix(key, "0x") || strings.HasPrefix(key, "0X") {
			key = key[2:]
			base = 16
		}
		id, err := strconv.ParseUint(key, base, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid network chain id: %s", key)
		}
		out[id] = strings.TrimSpace(url)
	}
	return out, nil
}

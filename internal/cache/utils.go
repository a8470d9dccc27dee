package cache

import (
	"fmt"
	"net"
	"os"
	"strings"
)

// FromEnv picks the cache driver: MEMCACHED_ADDR wins when set, otherwise
// Valkey discovery (VALKEY_NODES or VALKEY_SERVICE). With no cache
// configured it returns the always-miss Noop driver.
func FromEnv() (Cache, error) {
	if addr := os.Getenv("MEMCACHED_ADDR"); addr != "" {
		return NewMemcached(addr), nil
	}
	addrs, err := resolveValkeyAddrs()
	if err != nil {
		return nil, err
	}
	if addrs == nil {
		return Noop{}, nil
	}
	return NewValkey(addrs), nil
}

func resolveValkeyAddrs() ([]string, error) {
	if nodes := os.Getenv("VALKEY_NODES"); nodes != "" {
		return strings.Split(nodes, ","), nil
	}

	if svc := os.Getenv("VALKEY_SERVICE"); svc != "" {
		addrs, err := net.LookupHost(svc)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve %s: %w", svc, err)
		}
		var out []string
		for _, ip := range addrs {
			out = append(out, fmt.Sprintf("%s:6379", ip))
		}
		return out, nil
	}

	return nil, nil
}

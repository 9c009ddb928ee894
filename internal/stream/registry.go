package stream

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"sync"
)

// ErrUnknownScheme is returned by Open for endpoints no implementation claims.
var ErrUnknownScheme = errors.New("stream: unknown endpoint scheme")

// Factory builds a Client for a parsed endpoint.
type Factory func(ctx context.Context, u *url.URL, opts Options) (Client, error)

var (
	factoriesMu sync.RWMutex
	factories   = make(map[string]Factory)
)

// Register makes a Factory available for scheme. Registering a scheme twice
// replaces the earlier factory.
func Register(scheme string, f Factory) {
	factoriesMu.Lock()
	defer factoriesMu.Unlock()
	factories[strings.ToLower(scheme)] = f
}

// Schemes lists registered schemes in sorted order.
func Schemes() []string {
	factoriesMu.RLock()
	defer factoriesMu.RUnlock()
	out := make([]string, 0, len(factories))
	for s := range factories {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// Open parses endpoint and hands it to the factory registered for its scheme.
func Open(ctx context.Context, endpoint string, opts Options) (Client, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("stream: parse endpoint: %w", err)
	}
	factoriesMu.RLock()
	f, ok := factories[strings.ToLower(u.Scheme)]
	factoriesMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w %q (registered: %s)", ErrUnknownScheme, u.Scheme, strings.Join(Schemes(), ", "))
	}
	return f(ctx, u, opts)
}

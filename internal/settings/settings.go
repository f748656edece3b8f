package settings

import (
	"context"
	"strconv"
	"strings"
)

// Provider resolves a configuration key of the form Area:SubArea:Name.
// found is false when no source defines the key; that is never an error.
type Provider interface {
	Lookup(ctx context.Context, key string) (value string, found bool, err error)
}

// Int returns the integer stored under key, or def when the key is missing, unreadable or malformed.
func Int(ctx context.Context, p Provider, key string, def int) int {
	raw, ok := lookup(ctx, p, key)
	if !ok {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return v
}

// Float returns the number stored under key, or def when the key is missing, unreadable or malformed.
func Float(ctx context.Context, p Provider, key string, def float64) float64 {
	raw, ok := lookup(ctx, p, key)
	if !ok {
		return def
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return def
	}
	return v
}

func lookup(ctx context.Context, p Provider, key string) (string, bool) {
	if p == nil {
		return "", false
	}
	raw, found, err := p.Lookup(ctx, key)
	if err != nil || !found {
		return "", false
	}
	raw = strings.TrimSpace(raw)
	return raw, raw != ""
}

// Static is an in-memory source, used for built-in overrides and tests.
type Static map[string]string

func (s Static) Lookup(_ context.Context, key string) (string, bool, error) {
	v, ok := s[key]
	return v, ok, nil
}

// Chain consults each provider in order and returns the first definition found.
// A failing source is skipped; its error surfaces only when no later source has the key.
type Chain []Provider

func (c Chain) Lookup(ctx context.Context, key string) (string, bool, error) {
	var firstErr error
	for _, p := range c {
		if p == nil {
			continue
		}
		v, found, err := p.Lookup(ctx, key)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if found {
			return v, true, nil
		}
	}
	return "", false, firstErr
}

// Package repository defines the credential store the core reads: API keys
// for the generative-text API and the optional custom prompt template.
package repository

import (
	"context"
	"strings"
)

// MaxAPIKeys bounds the stored key set; MinKeyLength rejects junk keys
// before they are stored or tried.
const (
	MaxAPIKeys   = 3
	MinKeyLength = 10
)

type CredentialRepository interface {
	// APIKeys returns the configured keys in priority order, primary first.
	APIKeys(ctx context.Context) ([]string, error)
	SaveAPIKeys(ctx context.Context, keys []string) error
	// CustomPrompt returns the user-supplied prompt template, or "" when
	// none is set.
	CustomPrompt(ctx context.Context) (string, error)
	SaveCustomPrompt(ctx context.Context, template string) error
}

// NormalizeKeys applies the key-set rules: trim, drop short keys,
// deduplicate preserving order, cap at MaxAPIKeys. Both the store and the
// summarizer run it so an invalid key is never stored nor tried.
func NormalizeKeys(keys []string) []string {
	seen := make(map[string]struct{}, len(keys))
	out := make([]string, 0, MaxAPIKeys)
	for _, k := range keys {
		k = strings.TrimSpace(k)
		if len(k) < MinKeyLength {
			continue
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
		if len(out) == MaxAPIKeys {
			break
		}
	}
	return out
}

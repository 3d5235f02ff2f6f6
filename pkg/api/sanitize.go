package api

import (
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/text/unicode/norm"
)

var (
	strictPolicy *bluemonday.Policy
	policyOnce   sync.Once
)

func strict() *bluemonday.Policy {
	policyOnce.Do(func() {
		strictPolicy = bluemonday.StrictPolicy()
	})
	return strictPolicy
}

// SanitizeName strips any markup from a caller-supplied name and
// normalizes it to NFC so the same name arriving from different clients
// compares equal at the provider.
func SanitizeName(name string) string {
	return norm.NFC.String(strings.TrimSpace(strict().Sanitize(name)))
}

// SanitizeMetadata strips markup from metadata values. Keys pass through
// untouched; the engine controls which keys reach the wire.
func SanitizeMetadata(metadata map[string]string) map[string]string {
	if metadata == nil {
		return nil
	}
	out := make(map[string]string, len(metadata))
	for k, v := range metadata {
		out[k] = strings.TrimSpace(strict().Sanitize(v))
	}
	return out
}

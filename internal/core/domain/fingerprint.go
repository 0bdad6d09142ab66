package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
)

// Fingerprint computes a normalised hash of a request's semantic content:
// provider, model, input texts, and call parameters. Two requests with the
// same fingerprint are interchangeable, which is what makes response caching
// and single-flight deduplication safe.
func Fingerprint(provider, model string, inputs []string, params map[string]string) string {
	h := sha256.New()

	writeField := func(s string) {
		h.Write([]byte(s))
		h.Write([]byte{0}) // field separator, keeps "a"+"bc" distinct from "ab"+"c"
	}

	writeField(strings.ToLower(strings.TrimSpace(provider)))
	writeField(strings.ToLower(strings.TrimSpace(model)))
	for _, in := range inputs {
		writeField(in)
	}

	// Parameters in deterministic order.
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		writeField(k)
		writeField(params[k])
	}

	return hex.EncodeToString(h.Sum(nil))
}

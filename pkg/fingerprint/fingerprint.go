// Package fingerprint derives deterministic cache keys from sanitized
// requests. Two requests with the same fingerprint are treated as
// equivalent for caching; history is deliberately excluded because it does
// not change the expected guidance.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/silli-ai/reasoner/pkg/models"
)

// Fingerprinter canonicalizes and hashes sanitized requests. Precision is
// the number of decimal places kept for floats; rounding avoids cache
// fragmentation from insignificant sensor noise. Changing precision
// re-keys the cache, which is acceptable: old entries age out via TTL.
type Fingerprinter struct {
	precision int
}

// New creates a Fingerprinter with the given float precision.
func New(precision int) *Fingerprinter {
	if precision <= 0 {
		precision = 4
	}
	return &Fingerprinter{precision: precision}
}

// Fingerprint returns the hex-encoded SHA-256 digest of the canonical
// serialization of {dyad, features, context, metrics}.
func (f *Fingerprinter) Fingerprint(req models.SanitizedRequest) string {
	var b strings.Builder
	b.WriteString("dyad=")
	b.WriteString(string(req.Dyad))
	b.WriteString("|features=")
	f.writeNumberMap(&b, req.Features)
	b.WriteString("|context=")
	f.writeValueMap(&b, req.Context)
	b.WriteString("|metrics=")
	f.writeNumberMap(&b, req.Metrics)

	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

func (f *Fingerprinter) writeNumberMap(b *strings.Builder, m map[string]float64) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	b.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(k)
		b.WriteByte(':')
		b.WriteString(f.formatFloat(m[k]))
	}
	b.WriteByte('}')
}

func (f *Fingerprinter) writeValueMap(b *strings.Builder, m map[string]any) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	b.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(k)
		b.WriteByte(':')
		f.writeValue(b, m[k])
	}
	b.WriteByte('}')
}

func (f *Fingerprinter) writeValue(b *strings.Builder, v any) {
	switch val := v.(type) {
	case nil:
		b.WriteString("null")
	case string:
		b.WriteString(strconv.Quote(val))
	case bool:
		b.WriteString(strconv.FormatBool(val))
	case float64:
		b.WriteString(f.formatFloat(val))
	case int:
		b.WriteString(f.formatFloat(float64(val)))
	case int64:
		b.WriteString(f.formatFloat(float64(val)))
	case map[string]any:
		f.writeValueMap(b, val)
	case []any:
		b.WriteByte('[')
		for i, item := range val {
			if i > 0 {
				b.WriteByte(',')
			}
			f.writeValue(b, item)
		}
		b.WriteByte(']')
	default:
		// Scalar of an unexpected type; fall back to its printed form.
		fmt.Fprintf(b, "%v", val)
	}
}

func (f *Fingerprinter) formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', f.precision, 64)
}

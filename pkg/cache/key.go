package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/sw33tLie/partscope/pkg/component"
)

// SchemaVersion is folded into every key; bump it when the cached
// component encoding changes.
const SchemaVersion = 1

// NormalizeVendors lowercases, dedupes and sorts vendor names.
func NormalizeVendors(vendors []string) []string {
	seen := make(map[string]bool, len(vendors))
	out := make([]string, 0, len(vendors))
	for _, v := range vendors {
		v = strings.ToLower(strings.TrimSpace(v))
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// Key derives the cache key for a search. Weights are deliberately not an
// input: they only affect scoring.
//
// Layout: parts:v<schema>:<category>:<vendor,...>:<hash>, so invalidation
// patterns can target a category or a vendor.
func Key(req component.Requirements, vendors []string) string {
	vendors = NormalizeVendors(vendors)

	payload, _ := json.Marshal(struct {
		Schema       int                    `json:"schema"`
		Requirements component.Requirements `json:"requirements"`
		Vendors      []string               `json:"vendors"`
	}{SchemaVersion, req.Canonical(), vendors})

	sum := sha256.Sum256(payload)
	return fmt.Sprintf("parts:v%d:%s:%s:%s", SchemaVersion, req.Category, strings.Join(vendors, ","), hex.EncodeToString(sum[:16]))
}

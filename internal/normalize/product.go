package normalize

import (
	"hash/fnv"
	"strconv"
	"strings"
)

// ProductCodeResolver maps storefront product names to the numeric product
// codes the order API assigns. CSV exports carry only names, so rows imported
// from files need this lookup to land on the same conflict key as rows synced
// straight from the API.
type ProductCodeResolver struct {
	codes    map[string]string
	suffixes []string
}

// NewProductCodeResolver builds a resolver over a name→code table and a list
// of duration suffixes to strip before the second lookup attempt.
func NewProductCodeResolver(codes map[string]string, suffixes []string) *ProductCodeResolver {
	return &ProductCodeResolver{codes: codes, suffixes: suffixes}
}

// Resolve returns the product code for a name: exact table hit first, then a
// hit after stripping duration suffixes, then a stable FNV-1a hash of the
// name modulo 1,000,000. The hash keeps unknown products on a deterministic
// code across runs so re-imports stay idempotent.
func (r *ProductCodeResolver) Resolve(name string) string {
	if code, ok := r.codes[name]; ok {
		return code
	}
	clean := name
	for _, suffix := range r.suffixes {
		clean = strings.TrimSuffix(clean, suffix)
	}
	if code, ok := r.codes[clean]; ok {
		return code
	}
	h := fnv.New32a()
	h.Write([]byte(name))
	return strconv.FormatUint(uint64(h.Sum32()%1000000), 10)
}

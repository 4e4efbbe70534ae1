package cache

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
)

// Key is the deterministic composite identity of a cached dataset:
// dataset kind, symbol set, period and calendar day. Two requests with the
// same logical inputs resolve to the same Key regardless of the order in
// which symbols were passed.
type Key struct {
	Kind    string
	Symbols []string
	Period  string
	Day     string
}

// NewKey builds a Key with a sorted copy of the symbol set.
func NewKey(kind string, symbols []string, period, day string) Key {
	sorted := make([]string, len(symbols))
	copy(sorted, symbols)
	sort.Strings(sorted)
	return Key{Kind: kind, Symbols: sorted, Period: period, Day: day}
}

// SymbolToken is the symbol component of the persisted artifact name:
// the sanitized symbol itself for single-symbol keys, or the md5 digest of
// the sorted comma-joined set for multi-symbol keys.
func (k Key) SymbolToken() string {
	if len(k.Symbols) == 1 {
		return sanitizeSymbol(k.Symbols[0])
	}
	h := md5.New()
	h.Write([]byte(strings.Join(k.Symbols, ",")))
	return hex.EncodeToString(h.Sum(nil))
}

// String is the canonical key identity; stores index entries by it.
func (k Key) String() string {
	return fmt.Sprintf("%s:%s:%s:%s", k.Kind, k.SymbolToken(), k.Period, k.Day)
}

// ArtifactPrefix is the filename prefix shared by all snapshots of this
// key's calendar day.
func (k Key) ArtifactPrefix() string {
	return fmt.Sprintf("%s_%s_%s_%s", k.Kind, k.SymbolToken(), k.Period, k.Day)
}

func sanitizeSymbol(s string) string {
	r := strings.NewReplacer(".", "_", "-", "_", "/", "_", "^", "_")
	return r.Replace(s)
}

package rules

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultFlags applies when a rule names no flags: multi-line anchors.
const DefaultFlags = "m"

// DefaultCacheSize bounds a PatternCache built with size 0.
const DefaultCacheSize = 512

// PatternCache memoizes compiled patterns keyed by flags and source.
// The zero value and nil compile without caching.
type PatternCache struct {
	c *lru.Cache[string, *regexp.Regexp]
}

func NewPatternCache(size int) (*PatternCache, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	c, err := lru.New[string, *regexp.Regexp](size)
	if err != nil {
		return nil, fmt.Errorf("pattern cache: %w", err)
	}
	return &PatternCache{c: c}, nil
}

// Compile returns the compiled form of pattern under flags ("i", "s", "m" in any combination,
// "" for the default, "-" for none).
func (pc *PatternCache) Compile(pattern, flags string) (*regexp.Regexp, error) {
	prefix, err := flagPrefix(flags)
	if err != nil {
		return nil, err
	}
	key := prefix + pattern
	if pc != nil && pc.c != nil {
		if re, ok := pc.c.Get(key); ok {
			return re, nil
		}
	}
	re, err := regexp.Compile(key)
	if err != nil {
		return nil, fmt.Errorf("compile %q: %w", pattern, err)
	}
	if pc != nil && pc.c != nil {
		pc.c.Add(key, re)
	}
	return re, nil
}

// Len reports the number of cached patterns.
func (pc *PatternCache) Len() int {
	if pc == nil || pc.c == nil {
		return 0
	}
	return pc.c.Len()
}

func flagPrefix(flags string) (string, error) {
	if flags == "" {
		flags = DefaultFlags
	}
	if flags == "-" {
		return "", nil
	}
	var set []byte
	for _, f := range strings.ToLower(flags) {
		switch f {
		case 'i', 's', 'm':
			if !strings.ContainsRune(string(set), f) {
				set = append(set, byte(f))
			}
		default:
			return "", fmt.Errorf("unknown regex flag %q (want i, s, m)", f)
		}
	}
	return "(?" + string(set) + ")", nil
}

func decodeRune(s string) (rune, int) {
	return utf8.DecodeRuneInString(s)
}

// group returns submatch n of m trimmed; out-of-range groups are empty.
func group(m []string, n int) string {
	if n < 0 || n >= len(m) {
		return ""
	}
	return strings.TrimSpace(m[n])
}

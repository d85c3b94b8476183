package strcore

import (
	"regexp"
	"sync"
)

// MatchFlags controls Match's case sensitivity.
type MatchFlags int

const (
	MatchCaseSensitive MatchFlags = iota
	MatchCaseInsensitive
)

var matchCache sync.Map // pattern+flags -> *regexp.Regexp

// Match reports whether pattern matches anywhere in v and, when matched,
// returns the captured sub-groups. Patterns are POSIX-extended-like via
// Go's RE2 engine (regexp); backreferences are not supported, the one
// documented gap against the legacy POSIX-extended semantics.
func Match(pattern string, flags MatchFlags, v string) (matched bool, subMatches []string) {
	re, err := compileMatch(pattern, flags)
	if err != nil {
		return false, nil
	}
	groups := re.FindStringSubmatch(v)
	if groups == nil {
		return false, nil
	}
	if len(groups) > 1 {
		return true, groups[1:]
	}
	return true, nil
}

func compileMatch(pattern string, flags MatchFlags) (*regexp.Regexp, error) {
	key := pattern
	if flags == MatchCaseInsensitive {
		key = "(?i)" + pattern
	}
	if v, ok := matchCache.Load(key); ok {
		return v.(*regexp.Regexp), nil
	}
	re, err := regexp.Compile(key)
	if err != nil {
		return nil, err
	}
	matchCache.Store(key, re)
	return re, nil
}

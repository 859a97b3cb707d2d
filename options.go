package modpack

import (
	"strconv"
	"strings"
)

// rangeSet is a set of integer indexes built from colon-separated
// dash-ranges and singletons, e.g. "1-4:8-12:20".
type rangeSet map[int]bool

func parseRangeSet(s string) rangeSet {
	set := rangeSet{}
	for _, part := range strings.Split(s, ":") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if lo, hi, ok := strings.Cut(part, "-"); ok {
			a, errA := strconv.Atoi(strings.TrimSpace(lo))
			b, errB := strconv.Atoi(strings.TrimSpace(hi))
			if errA != nil || errB != nil {
				continue
			}
			if a > b {
				a, b = b, a
			}
			for i := a; i <= b; i++ {
				set[i] = true
			}
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			continue
		}
		set[n] = true
	}
	return set
}

// option is one parsed token: a name, whether it was negated, and an
// optional index range.
type option struct {
	name    string
	enabled bool
	ranged  bool
	indexes rangeSet
}

// OptionSet is a parsed comma-separated option string of the form
// "name,-name,name[RANGE]" (spec.md §4.2). Parsing never fails: malformed
// tokens and malformed ranges are simply dropped or left empty, matching
// the total-parse requirement.
type OptionSet struct {
	opts map[string]option
}

// ParseOptions parses s into an OptionSet. An empty or all-whitespace
// string yields an empty set, equivalent to every Has call returning its
// default.
func ParseOptions(s string) *OptionSet {
	set := &OptionSet{opts: map[string]option{}}
	if strings.TrimSpace(s) == "" {
		return set
	}

	for _, tok := range strings.Split(s, ",") {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}

		enabled := true
		if strings.HasPrefix(tok, "-") {
			enabled = false
			tok = tok[1:]
		}

		name := tok
		ranged := false
		var idx rangeSet
		if lb := strings.IndexByte(tok, '['); lb >= 0 {
			name = tok[:lb]
			if strings.HasSuffix(tok, "]") {
				idx = parseRangeSet(tok[lb+1 : len(tok)-1])
				ranged = true
			} else {
				idx = rangeSet{}
				ranged = true
			}
		}

		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		set.opts[name] = option{name: name, enabled: enabled, ranged: ranged, indexes: idx}
	}

	return set
}

// Has reports whether name is set, falling back to def when name was
// never mentioned.
func (o *OptionSet) Has(name string, def bool) bool {
	if o == nil {
		return def
	}
	opt, ok := o.opts[name]
	if !ok {
		return def
	}
	return opt.enabled
}

// InRange reports whether name was given with a range covering idx. A
// name given without a range (or not given at all, or explicitly negated)
// never matches any index.
func (o *OptionSet) InRange(name string, idx int) bool {
	if o == nil {
		return false
	}
	opt, ok := o.opts[name]
	if !ok || !opt.enabled || !opt.ranged {
		return false
	}
	return opt.indexes[idx]
}

// HasRange reports whether name was given at all with an index range
// attached (regardless of which indexes it covers).
func (o *OptionSet) HasRange(name string) bool {
	if o == nil {
		return false
	}
	opt, ok := o.opts[name]
	return ok && opt.enabled && opt.ranged
}

// Package sections isolates the parts of an inspection report that the
// extraction prompt needs. Boundaries come from an ordered list of rules
// so that format drift is handled by editing patterns, not control flow.
package sections

import (
	"fmt"
	"regexp"
	"strings"
)

// Separator joins fragments in a Bundle.
const Separator = "\n"

// Fragment is the text one rule captured from a document.
type Fragment struct {
	Rule  string `json:"rule"`
	Start int    `json:"start"` // byte offset of the section marker
	End   int    `json:"end"`   // byte offset of the terminator, or len(text)
	Text  string `json:"text"`
}

// Bundle is the ordered set of fragments found in one document. Absent
// sections are simply missing from Fragments.
type Bundle struct {
	Fragments []Fragment `json:"fragments"`
}

// String concatenates the fragments in rule order. An empty bundle
// yields "".
func (b Bundle) String() string {
	parts := make([]string, len(b.Fragments))
	for i, f := range b.Fragments {
		parts[i] = f.Text
	}
	return strings.Join(parts, Separator)
}

// Empty reports whether no section was found.
func (b Bundle) Empty() bool { return len(b.Fragments) == 0 }

// Get returns the fragment captured by the named rule.
func (b Bundle) Get(name string) (Fragment, bool) {
	for _, f := range b.Fragments {
		if f.Rule == name {
			return f, true
		}
	}
	return Fragment{}, false
}

type compiledRule struct {
	name  string
	start *regexp.Regexp
	end   *regexp.Regexp // nil: end of text
}

// Locator evaluates a fixed list of rules. It is immutable after
// construction and safe for concurrent use.
type Locator struct {
	rules []compiledRule
}

// NewLocator compiles rules. Rule order is the output order.
func NewLocator(rules []Rule) (*Locator, error) {
	l := &Locator{rules: make([]compiledRule, 0, len(rules))}
	seen := make(map[string]bool, len(rules))
	for _, r := range rules {
		if r.Name == "" {
			return nil, fmt.Errorf("sections: rule without name")
		}
		if seen[r.Name] {
			return nil, fmt.Errorf("sections: duplicate rule %q", r.Name)
		}
		seen[r.Name] = true

		start, err := regexp.Compile(r.Start)
		if err != nil {
			return nil, fmt.Errorf("sections: rule %q start pattern: %w", r.Name, err)
		}
		cr := compiledRule{name: r.Name, start: start}
		if r.End != "" {
			if cr.end, err = regexp.Compile(r.End); err != nil {
				return nil, fmt.Errorf("sections: rule %q end pattern: %w", r.Name, err)
			}
		}
		l.rules = append(l.rules, cr)
	}
	return l, nil
}

var defaultLocator = MustLocator(DefaultRules)

// MustLocator is like NewLocator but panics on invalid rules.
func MustLocator(rules []Rule) *Locator {
	l, err := NewLocator(rules)
	if err != nil {
		panic(err)
	}
	return l
}

// DefaultLocator returns the locator built from DefaultRules.
func DefaultLocator() *Locator { return defaultLocator }

// Locate returns the concatenated section text of text using DefaultRules.
func Locate(text string) string {
	return defaultLocator.Locate(text)
}

// Locate returns Bundle(text).String().
func (l *Locator) Locate(text string) string {
	return l.Bundle(text).String()
}

// Bundle runs every rule independently over the whole text. Fragments may
// overlap; each rule contributes at most one fragment, taken from its
// first start match.
func (l *Locator) Bundle(text string) Bundle {
	var b Bundle
	for _, r := range l.rules {
		if f, ok := r.find(text); ok {
			b.Fragments = append(b.Fragments, f)
		}
	}
	return b
}

func (r compiledRule) find(text string) (Fragment, bool) {
	loc := r.start.FindStringSubmatchIndex(text)
	if loc == nil {
		return Fragment{}, false
	}
	start, markerEnd := boundary(loc)

	end := len(text)
	if r.end != nil {
		if m := r.end.FindStringSubmatchIndex(text[markerEnd:]); m != nil {
			s, _ := boundary(m)
			end = markerEnd + s
		}
	}
	return Fragment{
		Rule:  r.name,
		Start: start,
		End:   end,
		Text:  text[start:end],
	}, true
}

// boundary picks group 1 when the pattern has a participating group,
// otherwise the whole match.
func boundary(loc []int) (int, int) {
	if len(loc) >= 4 && loc[2] >= 0 {
		return loc[2], loc[3]
	}
	return loc[0], loc[1]
}

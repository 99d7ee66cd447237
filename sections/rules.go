package sections

// Rule names, in output order.
const (
	Visit      = "visit"
	Storage    = "storage"
	Background = "background"
)

// Rule describes one report section as a pair of patterns. Start locates
// the section marker; End locates the terminator and is searched only in
// the text that follows the start marker. An empty End means the section
// runs to the end of the text.
//
// When a pattern has a capture group, group 1 marks the boundary and the
// rest of the match is context only. Otherwise the whole match is used.
type Rule struct {
	Name  string `json:"name" yaml:"name"`
	Start string `json:"start" yaml:"start"`
	End   string `json:"end,omitempty" yaml:"end,omitempty"`
}

// Numeral markers tolerate blanks around the dots and refuse to match
// inside longer numbers ("13.2", "2014.1", "4.1.3.2").
const (
	before = `(?:^|[^\d.])`
	after  = `(?:\D|$)`
	dot    = `[ \t]*\.[ \t]*`
)

// DefaultRules covers the inspection report layout:
//
//	3.2    VISITA TÉCNICA            ends at 3.3 or 4.1
//	4.1    ALMACENAMIENTO ...        ends at the next line starting with 4.<digit>
//	4.1.3  antecedentes              ends at 4.1.4
var DefaultRules = []Rule{
	{
		Name:  Visit,
		Start: `(?i)` + before + `(3` + dot + `2)` + after,
		End:   `(?i)` + before + `(3` + dot + `3|4` + dot + `1)` + after,
	},
	{
		Name:  Storage,
		Start: `(?i)` + before + `(4` + dot + `1\.?[\s:\-–]+ALMACENAMIENTO)`,
		End:   `\n[ \t]*4` + dot + `\d`,
	},
	{
		Name:  Background,
		Start: `(?i)` + before + `(4` + dot + `1` + dot + `3)` + after,
		End:   `(?i)` + before + `(4` + dot + `1` + dot + `4)` + after,
	},
}

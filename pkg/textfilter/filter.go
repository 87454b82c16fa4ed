package textfilter

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/jwebster45206/persona-engine/pkg/reply"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

type substitution struct {
	word, replacement string
}

// Longer phrases come before the words they contain.
var substitutions = []substitution{
	{"motherfucker", "mother-trucker"},
	{"jesus christ", "jeez"},
	{"goddamn", "gosh-dang"},
	{"bullshit", "baloney"},
	{"horseshit", "nonsense"},
	{"dipshit", "dummy"},
	{"shithead", "jerk"},
	{"dickhead", "jerk"},
	{"douchebag", "jerk"},
	{"asshole", "jerk"},
	{"dumbass", "dummy"},
	{"jackass", "jerk"},
	{"smartass", "smarty"},
	{"badass", "tough"},
	{"fuck", "fudge"},
	{"shit", "shoot"},
	{"damn", "dang"},
	{"hell", "heck"},
	{"ass", "butt"},
	{"bitch", "jerk"},
	{"bastard", "jerk"},
	{"crap", "crud"},
	{"piss", "ticked"},
	{"dick", "jerk"},
	{"prick", "jerk"},
	{"douche", "jerk"},
	{"christ", "crikey"},
	{"cock", "[censored]"},
	{"pussy", "[censored]"},
	{"tits", "[censored]"},
	{"boobs", "[censored]"},
	{"whore", "[censored]"},
	{"slut", "[censored]"},
	{"fag", "[censored]"},
	{"retard", "[censored]"},
	{"nigger", "[censored]"},
	{"nigga", "[censored]"},
	{"spic", "[censored]"},
	{"chink", "[censored]"},
	{"kike", "[censored]"},
}

type rule struct {
	re          *regexp.Regexp
	replacement string
}

// ProfanityFilter rewrites swear words into mild alternatives, keeping the
// case pattern and a plural "s" of the original.
type ProfanityFilter struct {
	rules []rule
}

func NewProfanityFilter() *ProfanityFilter {
	pf := &ProfanityFilter{
		rules: make([]rule, 0, len(substitutions)),
	}
	for _, s := range substitutions {
		pf.rules = append(pf.rules, rule{
			re:          regexp.MustCompile(`(?i)\b(` + regexp.QuoteMeta(s.word) + `)(s?)\b`),
			replacement: s.replacement,
		})
	}
	return pf
}

// ForRating returns a filter when the content rating calls for one, else nil.
func ForRating(rating string) *ProfanityFilter {
	if !ShouldFilterContent(rating) {
		return nil
	}
	return NewProfanityFilter()
}

func (pf *ProfanityFilter) FilterText(text string) string {
	if text == "" {
		return text
	}
	for _, r := range pf.rules {
		text = r.re.ReplaceAllStringFunc(text, func(match string) string {
			groups := r.re.FindStringSubmatch(match)
			return preserveCase(groups[1], r.replacement) + groups[2]
		})
	}
	return text
}

func (pf *ProfanityFilter) ContainsProfanity(text string) bool {
	for _, r := range pf.rules {
		if r.re.MatchString(text) {
			return true
		}
	}
	return false
}

// Reply filters every text field of r. A nil filter returns r unchanged.
func (pf *ProfanityFilter) Reply(r reply.Reply) reply.Reply {
	if pf == nil {
		return r
	}
	out := r.Clone()
	for i, s := range out.Sensations {
		out.Sensations[i] = pf.FilterText(s)
	}
	for i, s := range out.Thoughts {
		out.Thoughts[i] = pf.FilterText(s)
	}
	out.Memories = pf.FilterText(out.Memories)
	out.SelfReflection = pf.FilterText(out.SelfReflection)
	out.Response = pf.FilterText(out.Response)
	return out
}

func preserveCase(original, replacement string) string {
	title := cases.Title(language.English)
	switch {
	case original == "":
		return replacement
	case strings.ToUpper(original) == original:
		return strings.ToUpper(replacement)
	case strings.ToLower(original) == original:
		return strings.ToLower(replacement)
	case title.String(strings.ToLower(original)) == original:
		return title.String(replacement)
	}

	// Mixed case: copy case position by position.
	src := []rune(original)
	out := []rune(replacement)
	for i, r := range out {
		if i < len(src) && unicode.IsUpper(src[i]) {
			out[i] = unicode.ToUpper(r)
		} else {
			out[i] = unicode.ToLower(r)
		}
	}
	return string(out)
}

// ShouldFilterContent reports whether a content rating requires filtering.
func ShouldFilterContent(rating string) bool {
	switch strings.ToUpper(strings.TrimSpace(rating)) {
	case "G", "PG", "PG13", "PG-13":
		return true
	default:
		return false
	}
}

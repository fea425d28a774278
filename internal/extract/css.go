package extract

import (
	"fmt"
	"strings"

	"github.com/aymerick/douceur/css"
	"github.com/aymerick/douceur/parser"

	"build-watcher/internal/diff"
	"build-watcher/internal/engine"
)

// CSSRules builds selector -> declarations from a stylesheet.
//
// Only top-level qualified rules are kept. A rule listing several
// selectors yields one entry per selector. Within a rule a later
// declaration of the same property wins.
func CSSRules(src []byte) (*diff.Table[engine.Declarations], error) {
	sheet, err := parser.Parse(string(src))
	if err != nil {
		return nil, fmt.Errorf("%w: parse stylesheet: %v", engine.ErrMalformedAsset, err)
	}

	rules := diff.NewTable[engine.Declarations]()
	for _, rule := range sheet.Rules {
		if rule.Kind != css.QualifiedRule {
			continue
		}
		for _, sel := range selectors(rule.Prelude) {
			rules.Set(sel, declarations(rule.Declarations))
		}
	}
	return rules, nil
}

// selectors splits a selector list on its top-level commas. Commas inside
// parentheses, attribute brackets or quoted strings belong to the selector.
func selectors(prelude string) []string {
	var (
		out   []string
		depth int
		quote rune
		start int
	)
	add := func(sel string) {
		if sel = strings.TrimSpace(sel); sel != "" {
			out = append(out, sel)
		}
	}
	escaped := false
	for i, r := range prelude {
		switch {
		case escaped:
			escaped = false
		case r == '\\':
			escaped = true
		case quote != 0:
			if r == quote {
				quote = 0
			}
		case r == '"' || r == '\'':
			quote = r
		case r == '(' || r == '[':
			depth++
		case r == ')' || r == ']':
			if depth > 0 {
				depth--
			}
		case r == ',' && depth == 0:
			add(prelude[start:i])
			start = i + 1
		}
	}
	add(prelude[start:])
	return out
}

func declarations(decls []*css.Declaration) engine.Declarations {
	t := diff.NewTable[string]()
	for _, d := range decls {
		v := d.Value
		if d.Important {
			v += " !important"
		}
		t.Set(d.Property, v)
	}
	return t
}

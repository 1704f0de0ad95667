package extract

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"golang.org/x/text/cases"

	"github.com/ahrav/go-tender/internal/domain"
)

// CurrencyDef describes how one currency is written in documents.
type CurrencyDef struct {
	// Code is the ISO 4217 code.
	Code domain.Currency `yaml:"code" json:"code" validate:"required,len=3,uppercase"`
	// Symbols may appear before or after the amount, e.g. "$", "USD".
	Symbols []string `yaml:"symbols" json:"symbols" validate:"dive,required"`
	// Words appear only after the amount, e.g. "рублей", "euros".
	Words []string `yaml:"words" json:"words" validate:"dive,required"`
}

// DefaultCurrencies returns the built-in RUB, USD and EUR table.
func DefaultCurrencies() []CurrencyDef {
	return []CurrencyDef{
		{
			Code:    domain.CurrencyRUB,
			Symbols: []string{"₽", "RUB"},
			Words: []string{
				"рублей", "рубля", "рублями", "рублях", "рубль",
				"руб.", "руб", "р.", "rubles", "roubles",
			},
		},
		{
			Code:    domain.CurrencyUSD,
			Symbols: []string{"US$", "$", "USD"},
			Words:   []string{"долларов", "доллара", "доллар", "долл.", "dollars", "dollar"},
		},
		{
			Code:    domain.CurrencyEUR,
			Symbols: []string{"€", "EUR"},
			Words:   []string{"евро", "euros", "euro"},
		},
	}
}

// currencyTable resolves matched tokens to codes and supplies the regexp
// alternations for prefix and suffix positions.
type currencyTable struct {
	byToken map[string]domain.Currency
	prefix  string
	suffix  string
}

func newCurrencyTable(defs []CurrencyDef) (*currencyTable, error) {
	if len(defs) == 0 {
		return nil, fmt.Errorf("currency table is empty")
	}

	fold := cases.Fold()
	t := &currencyTable{byToken: make(map[string]domain.Currency)}
	var prefix, suffix []string
	for _, d := range defs {
		if len(d.Symbols)+len(d.Words) == 0 {
			return nil, fmt.Errorf("currency %s has no tokens", d.Code)
		}
		for _, s := range d.Symbols {
			if err := t.add(fold.String(s), d.Code); err != nil {
				return nil, err
			}
			prefix = append(prefix, s)
			suffix = append(suffix, s)
		}
		for _, w := range d.Words {
			if err := t.add(fold.String(w), d.Code); err != nil {
				return nil, err
			}
			suffix = append(suffix, w)
		}
	}

	t.prefix = alternation(prefix)
	t.suffix = alternation(suffix)
	return t, nil
}

func (t *currencyTable) add(folded string, code domain.Currency) error {
	if existing, ok := t.byToken[folded]; ok && existing != code {
		return fmt.Errorf("currency token %q maps to both %s and %s", folded, existing, code)
	}
	t.byToken[folded] = code
	return nil
}

// resolve maps a matched token to its currency code.
func (t *currencyTable) resolve(token string) (domain.Currency, bool) {
	code, ok := t.byToken[cases.Fold().String(strings.TrimSpace(token))]
	return code, ok
}

// alternation builds a case-insensitive regexp alternation with longer
// tokens first so that "рублей" wins over "руб".
func alternation(tokens []string) string {
	uniq := make(map[string]struct{}, len(tokens))
	out := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if _, dup := uniq[tok]; dup {
			continue
		}
		uniq[tok] = struct{}{}
		out = append(out, tok)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return len([]rune(out[i])) > len([]rune(out[j]))
	})
	for i, tok := range out {
		out[i] = regexp.QuoteMeta(tok)
	}
	return "(?i:" + strings.Join(out, "|") + ")"
}

package extract

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/ahrav/go-tender/internal/domain"
)

// numberPattern matches one locale-formatted number. Alternatives are tried in
// order: space grouping, comma grouping, period grouping, then a plain number
// with an optional decimal part.
const numberPattern = `\d{1,3}(?:[ \x{00A0}\x{202F}]\d{3})+(?:[.,]\d{1,2})?` +
	`|\d{1,3}(?:,\d{3})+(?:\.\d+)?` +
	`|\d{1,3}(?:\.\d{3})+(?:,\d+)?` +
	`|\d+(?:[.,]\d+)?`

// sp is an optional single space of any width.
const sp = `[\s\x{00A0}\x{202F}]?`

// scaleWords are checked longest first; single-letter scales are matched
// separately and only when attached to the number.
const scalePattern = `(?:` + sp + `(?P<word>(?i:тысячи|тысяча|тысяч|тыс\.|тыс|миллиардов|миллиарда|миллиард|млрд\.|млрд|миллионов|миллиона|миллион|млн\.|млн|thousand|millions|million|mln|billions|billion|bn))|(?P<letter>[kKM]))?`

// scaleMultipliers are powers of ten.
var scaleMultipliers = map[string]int32{
	"тыс": 3, "тысяч": 3, "тысяча": 3, "тысячи": 3, "thousand": 3, "k": 3,
	"млн": 6, "миллион": 6, "миллиона": 6, "миллионов": 6, "million": 6, "millions": 6, "mln": 6, "m": 6,
	"млрд": 9, "миллиард": 9, "миллиарда": 9, "миллиардов": 9, "billion": 9, "billions": 9, "bn": 9,
}

// Extractor finds currency amounts, a timeline and company names in text.
// It is safe for concurrent use.
type Extractor struct {
	currencies *currencyTable
	suffixRe   *regexp.Regexp
	prefixRe   *regexp.Regexp
	looseRe    *regexp.Regexp
	logger     *zap.Logger
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithLogger sets the logger used for extraction diagnostics.
func WithLogger(l *zap.Logger) Option {
	return func(e *Extractor) {
		if l != nil {
			e.logger = l
		}
	}
}

// New builds an Extractor for the given currency table.
func New(defs []CurrencyDef, opts ...Option) (*Extractor, error) {
	table, err := newCurrencyTable(defs)
	if err != nil {
		return nil, fmt.Errorf("failed to build currency table: %w", err)
	}

	e := &Extractor{currencies: table, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(e)
	}

	num := `(?P<num>` + numberPattern + `)`
	if e.suffixRe, err = regexp.Compile(num + scalePattern + sp + `(?P<cur>` + table.suffix + `)`); err != nil {
		return nil, fmt.Errorf("failed to compile suffix pattern: %w", err)
	}
	if e.prefixRe, err = regexp.Compile(`(?P<cur>` + table.prefix + `)` + sp + num + scalePattern); err != nil {
		return nil, fmt.Errorf("failed to compile prefix pattern: %w", err)
	}
	if e.looseRe, err = regexp.Compile(num + scalePattern); err != nil {
		return nil, fmt.Errorf("failed to compile number pattern: %w", err)
	}
	return e, nil
}

// NewDefault builds an Extractor with DefaultCurrencies.
func NewDefault(opts ...Option) *Extractor {
	e, err := New(DefaultCurrencies(), opts...)
	if err != nil {
		// The default table is static; failing here is a programming error.
		panic(err)
	}
	return e
}

// Extract runs every extraction pass over text. It never fails: on empty or
// unrecognizable input the result is empty and LowConfidence is set.
func (e *Extractor) Extract(text string) (out domain.ExtractedFinancials) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("extraction panicked", zap.Any("panic", r))
			out = domain.ExtractedFinancials{
				LowConfidence: true,
				Warnings:      []string{fmt.Sprintf("extraction aborted: %v", r)},
			}
		}
	}()

	if !utf8.ValidString(text) {
		text = strings.ToValidUTF8(text, "�")
		out.Warnings = append(out.Warnings, "input contained invalid UTF-8")
	}

	out.Matches = e.findMoney(text)
	e.selectPrimary(&out)

	if months, ok := findTimeline(text); ok {
		out.TimelineMonths = &months
	}
	out.CompanyNames = findCompanies(text)

	if out.Primary == nil {
		out.LowConfidence = true
		out.Warnings = append(out.Warnings, "no currency amount found")
	}

	e.logger.Debug("extraction complete",
		zap.Int("matches", len(out.Matches)),
		zap.Bool("low_confidence", out.LowConfidence),
		zap.Strings("warnings", out.Warnings),
	)
	return out
}

// ParseMoney interprets a short value such as an AI-reported "2 500 000 руб."
// or "25000000". A currency is returned when the value names one.
func (e *Extractor) ParseMoney(s string) (decimal.Decimal, domain.Currency, bool) {
	if matches := e.findMoney(s); len(matches) > 0 {
		best := matches[0]
		for _, m := range matches[1:] {
			if m.Amount.GreaterThan(best.Amount) {
				best = m
			}
		}
		return best.Amount, best.Currency, true
	}

	loc := e.looseRe.FindStringSubmatchIndex(s)
	if loc == nil || precededByNumber(s, loc[0]) {
		return decimal.Zero, "", false
	}
	amount, ok := e.amountFromMatch(s, loc, e.looseRe)
	if !ok {
		return decimal.Zero, "", false
	}
	return amount, "", true
}

// findMoney returns currency-tagged amounts ordered by offset. Suffix forms
// ("100 руб.") take precedence over prefix forms ("$100") when they overlap.
func (e *Extractor) findMoney(text string) []domain.MoneyMatch {
	var matches []domain.MoneyMatch
	var taken [][2]int

	overlaps := func(start, end int) bool {
		for _, span := range taken {
			if start < span[1] && span[0] < end {
				return true
			}
		}
		return false
	}

	for _, re := range []*regexp.Regexp{e.suffixRe, e.prefixRe} {
		curIdx := re.SubexpIndex("cur")
		for _, loc := range re.FindAllStringSubmatchIndex(text, -1) {
			start, end := loc[0], loc[1]
			if overlaps(start, end) || precededByNumber(text, start) || followedByLetter(text, end) {
				continue
			}

			code, ok := e.currencies.resolve(text[loc[2*curIdx]:loc[2*curIdx+1]])
			if !ok {
				continue
			}
			amount, ok := e.amountFromMatch(text, loc, re)
			if !ok {
				continue
			}

			taken = append(taken, [2]int{start, end})
			matches = append(matches, domain.MoneyMatch{
				Amount:   amount,
				Currency: code,
				Raw:      text[start:end],
				Offset:   start,
			})
		}
	}

	sort.Slice(matches, func(i, j int) bool { return matches[i].Offset < matches[j].Offset })
	return matches
}

func (e *Extractor) amountFromMatch(text string, loc []int, re *regexp.Regexp) (decimal.Decimal, bool) {
	group := func(name string) string {
		i := re.SubexpIndex(name)
		if i < 0 || loc[2*i] < 0 {
			return ""
		}
		return text[loc[2*i]:loc[2*i+1]]
	}

	amount, err := ParseAmount(group("num"))
	if err != nil {
		e.logger.Debug("skipping unparseable amount", zap.Error(err))
		return decimal.Zero, false
	}

	scale := group("word")
	if scale == "" {
		scale = group("letter")
	}
	if scale != "" {
		key := strings.TrimSuffix(strings.ToLower(scale), ".")
		if exp, ok := scaleMultipliers[key]; ok {
			amount = amount.Shift(exp)
		}
	}
	return amount, true
}

// selectPrimary picks the dominant currency by majority vote and the largest
// amount in it.
func (e *Extractor) selectPrimary(out *domain.ExtractedFinancials) {
	if len(out.Matches) == 0 {
		return
	}

	counts := make(map[domain.Currency]int)
	order := make([]domain.Currency, 0, 3)
	for _, m := range out.Matches {
		if counts[m.Currency] == 0 {
			order = append(order, m.Currency)
		}
		counts[m.Currency]++
	}

	// Ties go to the currency seen first.
	dominant, tie := order[0], false
	for _, c := range order[1:] {
		switch {
		case counts[c] > counts[dominant]:
			dominant, tie = c, false
		case counts[c] == counts[dominant]:
			tie = true
		}
	}
	if len(order) > 1 {
		out.Warnings = append(out.Warnings, fmt.Sprintf("amounts in %d currencies", len(order)))
	}
	if tie {
		out.LowConfidence = true
		out.Warnings = append(out.Warnings, "no majority currency")
	}

	out.DominantCurrency = dominant
	for i := range out.Matches {
		m := &out.Matches[i]
		if m.Currency != dominant {
			continue
		}
		if out.Primary == nil || m.Amount.GreaterThan(out.Primary.Amount) {
			p := *m
			out.Primary = &p
		}
	}
}

// precededByNumber rejects matches that start inside a longer number.
func precededByNumber(text string, start int) bool {
	if start == 0 {
		return false
	}
	r, size := utf8.DecodeLastRuneInString(text[:start])
	if unicode.IsDigit(r) {
		return true
	}
	if r == '.' || r == ',' {
		prev, _ := utf8.DecodeLastRuneInString(text[:start-size])
		return unicode.IsDigit(prev)
	}
	return false
}

// followedByLetter rejects tokens that are the start of a longer word, e.g.
// "евро" in "европейский".
func followedByLetter(text string, end int) bool {
	if end >= len(text) {
		return false
	}
	r, _ := utf8.DecodeRuneInString(text[end:])
	return unicode.IsLetter(r)
}

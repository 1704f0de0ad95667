package extract

import (
	"regexp"
	"strings"
)

var (
	// ООО «ТехСофт», АО "Ромашка", LLC "Acme"
	legalQuotedRe = regexp.MustCompile(`(?:ООО|ОАО|ЗАО|ПАО|АО|ИП|LLC|JSC|Ltd\.?|Inc\.?|GmbH)\s*[«"“„]([^»"”“]{2,80})[»"”“]`)

	// Acme Solutions LLC
	legalSuffixRe = regexp.MustCompile(`(\p{Lu}[\p{L}\d&-]*(?:\s+\p{Lu}[\p{L}\d&-]*){0,3})\s*,?\s+(?:LLC|Ltd\.?|Inc\.?|GmbH|Corp\.?)`)

	// ТехСофт предлагает ...
	subjectRe = regexp.MustCompile(`(\p{Lu}[\p{L}\d-]+(?:\s+\p{Lu}[\p{L}\d-]+){0,2})\s+(?:предлагает|предлагают|готова|готов|обязуется|offers|proposes|provides|will deliver)`)

	// «ТехСофт»
	guillemetRe = regexp.MustCompile(`«([^»]{2,80})»`)
)

// genericLeads are capitalized words that introduce a name rather than
// belong to it.
var genericLeads = map[string]struct{}{
	"Компания": {}, "Организация": {}, "Исполнитель": {}, "Подрядчик": {}, "Поставщик": {}, "Мы": {},
	"Company": {}, "The": {}, "Vendor": {}, "Contractor": {}, "We": {},
}

// findCompanies returns company name candidates in priority order: names
// with a legal form, then names acting as the subject of an offer, then any
// guillemet-quoted name.
func findCompanies(text string) []string {
	var out []string
	seen := make(map[string]struct{})
	add := func(name string) {
		name = strings.TrimSpace(strings.Trim(name, `"«»“”„ `))
		name = stripGenericLead(name)
		if len([]rune(name)) < 2 {
			return
		}
		key := strings.ToLower(name)
		if _, dup := seen[key]; dup {
			return
		}
		seen[key] = struct{}{}
		out = append(out, name)
	}

	for _, re := range []*regexp.Regexp{legalQuotedRe, legalSuffixRe, subjectRe, guillemetRe} {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			add(m[1])
		}
	}
	return out
}

func stripGenericLead(name string) string {
	for {
		first, rest, found := strings.Cut(name, " ")
		if !found {
			if _, generic := genericLeads[name]; generic {
				return ""
			}
			return name
		}
		if _, generic := genericLeads[first]; !generic {
			return name
		}
		name = strings.TrimSpace(rest)
	}
}

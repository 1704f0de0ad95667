package extract

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// timelineRe matches a duration with an optional range, e.g. "10 месяцев",
// "6-8 months" or "1,5 года". Longer unit spellings come first.
var timelineRe = regexp.MustCompile(
	`(?P<from>\d+(?:[.,]\d+)?)` +
		`(?:\s*(?:-|–|—|до|to)\s*(?P<to>\d+(?:[.,]\d+)?))?` +
		`[\s\x{00A0}]*` +
		`(?P<unit>(?i:месяцев|месяца|месяц|мес\.|мес|months|month|mo\.|лет|года|год|years|year|недель|недели|неделя|нед\.|weeks|week|дней|дня|день|days|day))`,
)

// Timeline keywords mark a duration as the delivery timeline. Strong ones
// name delivery outright; weak ones ("за", "срок") also precede other periods.
var (
	strongTimelineKeywords = []string{
		"в течение", "в течении", "срок выполнения", "срок исполнения", "сроки выполнения",
		"срок реализации", "продолжительность", "within", "duration", "timeline", "delivery in",
		"completion in",
	}
	weakTimelineKeywords = []string{"за", "срок", "сроки", "период", "over"}
)

// periodMarkers are stems naming periods that are never the delivery
// timeline, such as a warranty.
var periodMarkers = []string{"гарант", "поддержк", "warrant", "guarant", "support"}

// Keyword ranks, best last.
const (
	rankExcluded = iota - 1
	rankNone
	rankWeak
	rankStrong
)

// keywordWindow is how many runes before a duration are searched for a
// keyword.
const keywordWindow = 30

// maxMonths bounds plausible timelines; anything longer is treated as noise
// such as a year ("2024 год").
const maxMonths = 240

func unitToMonths(unit string) float64 {
	u := strings.ToLower(unit)
	switch {
	case strings.HasPrefix(u, "мес"), strings.HasPrefix(u, "mo"):
		return 1
	case u == "лет", strings.HasPrefix(u, "год"), strings.HasPrefix(u, "year"):
		return 12
	case strings.HasPrefix(u, "нед"), strings.HasPrefix(u, "week"):
		return 12.0 / 52.0
	default:
		return 12.0 / 365.0
	}
}

// findTimeline returns the delivery duration in months. The duration with the
// strongest keyword before it wins, the first one on ties. Durations in a
// warranty or support clause are skipped.
func findTimeline(text string) (float64, bool) {
	best, bestRank := 0.0, rankExcluded
	for _, loc := range timelineRe.FindAllStringSubmatchIndex(text, -1) {
		if precededByNumber(text, loc[0]) || followedByLetter(text, loc[1]) {
			continue
		}

		value := submatch(text, loc, "to")
		if value == "" {
			value = submatch(text, loc, "from")
		}
		n, err := ParseAmount(value)
		if err != nil || !n.IsPositive() {
			continue
		}
		months := n.InexactFloat64() * unitToMonths(submatch(text, loc, "unit"))
		if months > maxMonths {
			continue
		}

		rank := keywordRank(text, loc[0])
		if rank == rankStrong {
			return months, true
		}
		if rank > bestRank {
			best, bestRank = months, rank
		}
	}
	return best, bestRank > rankExcluded
}

func submatch(text string, loc []int, name string) string {
	i := timelineRe.SubexpIndex(name)
	if i < 0 || loc[2*i] < 0 {
		return ""
	}
	return text[loc[2*i]:loc[2*i+1]]
}

// keywordRank classifies the clause leading up to start: the runes within
// keywordWindow, cut at the last sentence or line break.
func keywordRank(text string, start int) int {
	window := text[:start]
	for n := 0; n < keywordWindow && len(window) > 0; n++ {
		_, size := utf8.DecodeLastRuneInString(window)
		window = window[:len(window)-size]
	}
	clause := strings.ToLower(text[len(window):start])
	if i := strings.LastIndexAny(clause, ".;!?\n"); i >= 0 {
		clause = clause[i+1:]
	}

	for _, m := range periodMarkers {
		if strings.Contains(clause, m) {
			return rankExcluded
		}
	}
	for _, kw := range strongTimelineKeywords {
		if containsWord(clause, kw) {
			return rankStrong
		}
	}
	for _, kw := range weakTimelineKeywords {
		if containsWord(clause, kw) {
			return rankWeak
		}
	}
	return rankNone
}

// containsWord reports whether kw occurs in s on letter boundaries.
func containsWord(s, kw string) bool {
	for off := 0; ; {
		i := strings.Index(s[off:], kw)
		if i < 0 {
			return false
		}
		start, end := off+i, off+i+len(kw)
		before, _ := utf8.DecodeLastRuneInString(s[:start])
		if (start == 0 || !unicode.IsLetter(before)) && !followedByLetter(s, end) {
			return true
		}
		off = end
	}
}

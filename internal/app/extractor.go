package app

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"review_ingest/internal/domain"
)

// Extractor pulls structured review fields out of noisy free-form text
// (pasted by a user or produced by OCR). It never fails: every missing signal
// degrades to a default. Output is a guess for a human to confirm, not a
// record to persist.
type Extractor struct {
	now        func() time.Time
	confidence float64
}

// heuristicConfidence is a fixed constant, not a computed metric. Callers that
// have a real confidence (e.g. from the OCR provider) overwrite it.
const heuristicConfidence = 0.85

func NewExtractor() *Extractor {
	return &Extractor{now: time.Now, confidence: heuristicConfidence}
}

// platformSignals are keyword groups tested in order; first group with any
// hit wins. Each group carries the Korean brand name plus its Latin forms.
var platformSignals = []struct {
	id       string
	keywords []string
}{
	{"naver", []string{"네이버", "naver", "스마트스토어", "n pay"}},
	{"kakao", []string{"카카오", "kakao", "다음"}},
	{"google", []string{"구글", "google"}},
	{"baemin", []string{"배달의민족", "배민", "요기요", "쿠팡이츠"}},
	{"daangn", []string{"당근", "중고거래", "거래후기"}},
	{"instagram", []string{"인스타", "instagram"}},
	{"kmong", []string{"크몽", "외주", "프리랜서"}},
}

const platformUnknown = "unknown"

// ---- rating cascade ----

var (
	starRunRe     = regexp.MustCompile(`[⭐★]+`)
	numericRateRe = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*(?:점|/\s*5)`)
	tenScaleRe    = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*/\s*10`)
)

type ratingRule struct {
	name  string
	apply func(text string) (int, bool)
}

var ratingRules = []ratingRule{
	{"star-glyphs", func(text string) (int, bool) {
		m := starRunRe.FindString(text)
		if m == "" {
			return 0, false
		}
		n := len([]rune(m))
		if n > 5 {
			n = 5
		}
		return n, true
	}},
	{"numeric-score", func(text string) (int, bool) {
		m := numericRateRe.FindStringSubmatch(text)
		if m == nil {
			return 0, false
		}
		f, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			return 0, false
		}
		return clampRating(f), true
	}},
	{"ten-scale-score", func(text string) (int, bool) {
		m := tenScaleRe.FindStringSubmatch(text)
		if m == nil {
			return 0, false
		}
		f, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			return 0, false
		}
		// X/10 scores are halved onto the 5-point scale
		return clampRating(f / 2), true
	}},
	{"sentiment-keywords", func(text string) (int, bool) {
		switch {
		case strings.Contains(text, "매우 만족") || strings.Contains(text, "좋아요"):
			return 5, true
		case strings.Contains(text, "아쉬") || strings.Contains(text, "부족"):
			return 3, true
		case strings.Contains(text, "불만족") || strings.Contains(text, "실망"):
			return 2, true
		}
		return 0, false
	}},
}

// ---- date cascade ----

var (
	relativeWordRe = regexp.MustCompile(`오늘|어제|그제`)
	daysAgoRe      = regexp.MustCompile(`(\d+)\s*일\s*전`)
	fullDateRe     = regexp.MustCompile(`(\d{4})[년.\-/]\s*(\d{1,2})[월.\-/]\s*(\d{1,2})일?`)
	shortYearRe    = regexp.MustCompile(`(\d{2})[년.]\s*(\d{1,2})[월.]\s*(\d{1,2})일?`)
	monthDayRe     = regexp.MustCompile(`(\d{1,2})[월/]\s*(\d{1,2})일?`)
)

// twoDigitYearBase turns a 2-digit year into a 2000s year. Heuristic constant
// from the previous importer.
const twoDigitYearBase = 2000

type dateRule struct {
	name  string
	apply func(text string, now time.Time) (time.Time, bool)
}

var dateRules = []dateRule{
	{"relative-word", func(text string, now time.Time) (time.Time, bool) {
		switch relativeWordRe.FindString(text) {
		case "오늘":
			return now, true
		case "어제":
			return now.AddDate(0, 0, -1), true
		case "그제":
			return now.AddDate(0, 0, -2), true
		}
		return time.Time{}, false
	}},
	{"days-ago", func(text string, now time.Time) (time.Time, bool) {
		m := daysAgoRe.FindStringSubmatch(text)
		if m == nil {
			return time.Time{}, false
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			return time.Time{}, false
		}
		return now.AddDate(0, 0, -n), true
	}},
	{"full-date", func(text string, _ time.Time) (time.Time, bool) {
		m := fullDateRe.FindStringSubmatch(text)
		if m == nil {
			return time.Time{}, false
		}
		return makeDateFromStrings(m[1], m[2], m[3])
	}},
	{"short-year-date", func(text string, _ time.Time) (time.Time, bool) {
		m := shortYearRe.FindStringSubmatch(text)
		if m == nil {
			return time.Time{}, false
		}
		yy, _ := strconv.Atoi(m[1])
		return makeDateFromStrings(strconv.Itoa(twoDigitYearBase+yy), m[2], m[3])
	}},
	{"month-day", func(text string, now time.Time) (time.Time, bool) {
		m := monthDayRe.FindStringSubmatch(text)
		if m == nil {
			return time.Time{}, false
		}
		return makeDateFromStrings(strconv.Itoa(now.Year()), m[1], m[2])
	}},
}

func makeDateFromStrings(y, mo, d string) (time.Time, bool) {
	year, _ := strconv.Atoi(y)
	month, _ := strconv.Atoi(mo)
	day, _ := strconv.Atoi(d)
	return makeDate(year, month, day)
}

// ---- author cascade ----

var authorPatterns = []*regexp.Regexp{
	regexp.MustCompile(`작성자\s*[:：]\s*([가-힣A-Za-z]+)`),
	regexp.MustCompile(`이름\s*[:：]\s*([가-힣A-Za-z]+)`),
	regexp.MustCompile(`고객\s*[:：]\s*([가-힣A-Za-z]+)`),
	regexp.MustCompile(`(?i)from\s*[:：]\s*([가-힣A-Za-z]+)`),
	regexp.MustCompile(`([가-힣]{2,4})\s*(?:고객님|님|씨)`),
}

// maskName keeps the first character and replaces the rest with asterisks.
// The extractor never returns an unmasked personal name.
func maskName(name string) string {
	runes := []rune(name)
	if len(runes) < 2 {
		return name
	}
	return string(runes[0]) + strings.Repeat("*", len(runes)-1)
}

// ---- business / content split ----

var businessPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?:업체|상호|가게|매장|회사|브랜드)\s*[:：]\s*([^\n]+)`),
	regexp.MustCompile(`(?:제품|상품|서비스|메뉴)\s*[:：]\s*([^\n]+)`),
	regexp.MustCompile(`^【([^】]+)】`),
	regexp.MustCompile(`^\[([^\]]+)\]`),
}

var contentStartPatterns = []*regexp.Regexp{
	regexp.MustCompile(`리뷰\s*[:：]`),
	regexp.MustCompile(`후기\s*[:：]`),
	regexp.MustCompile(`평가\s*[:：]`),
	regexp.MustCompile(`내용\s*[:：]`),
	regexp.MustCompile(`-{3,}`),
	regexp.MustCompile(`={3,}`),
}

// ---- auxiliary signals ----

var keywordPatterns = []*regexp.Regexp{
	regexp.MustCompile(`#([가-힣A-Za-z0-9]+)`),
	regexp.MustCompile(`【([^】]+)】`),
	regexp.MustCompile(`\[([^\]]+)\]`),
}

var (
	positiveWords = []string{"좋아요", "최고", "만족", "추천", "훌륭", "완벽", "감사", "친절", "깔끔", "빠른", "편리"}
	negativeWords = []string{"별로", "실망", "불만", "최악", "나쁨", "느림", "비쌈", "불친절", "더러움", "실수"}
)

const (
	SentimentPositive = "positive"
	SentimentNegative = "negative"
	SentimentNeutral  = "neutral"
	SentimentMixed    = "mixed"
)

// Extract runs every cascade over the text and assembles the guess.
func (e *Extractor) Extract(text string) domain.Extraction {
	normalized := normalizeText(text)
	now := e.now()

	return domain.Extraction{
		Platform:   detectPlatform(normalized),
		Business:   extractBusiness(normalized),
		Author:     extractAuthor(normalized),
		Rating:     extractRating(normalized),
		Date:       e.extractDate(normalized, now),
		Content:    extractContent(normalized),
		Keywords:   extractKeywords(normalized),
		Sentiment:  classifySentiment(normalized),
		Confidence: e.confidence,
		RawText:    text,
	}
}

func normalizeText(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = strings.Map(func(r rune) rune {
		switch r {
		case '\t', '\f', '\v':
			return ' '
		case '\u200b', '\u200c', '\u200d', '\ufeff': // zero-width chars OCR tends to emit
			return -1
		}
		return r
	}, s)
	return strings.TrimSpace(s)
}

func detectPlatform(text string) string {
	lower := strings.ToLower(text)
	for _, group := range platformSignals {
		for _, kw := range group.keywords {
			if strings.Contains(lower, kw) {
				return group.id
			}
		}
	}
	return platformUnknown
}

func extractRating(text string) int {
	for _, rule := range ratingRules {
		if r, ok := rule.apply(text); ok {
			return r
		}
	}
	return 5
}

func (e *Extractor) extractDate(text string, now time.Time) string {
	for _, rule := range dateRules {
		if t, ok := rule.apply(text, now); ok {
			return t.Format("2006-01-02")
		}
	}
	return now.Format("2006-01-02")
}

func extractAuthor(text string) string {
	for _, p := range authorPatterns {
		if m := p.FindStringSubmatch(text); m != nil {
			return maskName(strings.TrimSpace(m[1]))
		}
	}
	return ""
}

func extractBusiness(text string) string {
	for _, p := range businessPatterns {
		if m := p.FindStringSubmatch(text); m != nil {
			return truncateRunes(strings.TrimSpace(m[1]), 50)
		}
	}
	// A short first line is usually the business name on screenshots.
	if line, _, found := strings.Cut(text, "\n"); found || line != "" {
		line = strings.TrimSpace(line)
		if line != "" && len([]rune(line)) <= 30 {
			return line
		}
	}
	return ""
}

func extractContent(text string) string {
	for _, p := range contentStartPatterns {
		loc := p.FindStringIndex(text)
		if loc == nil {
			continue
		}
		after := strings.TrimSpace(text[loc[1]:])
		if len([]rune(after)) > 20 {
			return truncateRunes(after, 1000)
		}
	}
	return truncateRunes(text, 1000)
}

func extractKeywords(text string) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, p := range keywordPatterns {
		for _, m := range p.FindAllStringSubmatch(text, -1) {
			kw := strings.TrimSpace(m[1])
			if kw == "" {
				continue
			}
			if _, dup := seen[kw]; dup {
				continue
			}
			seen[kw] = struct{}{}
			out = append(out, kw)
		}
	}
	return out
}

// classifySentiment compares keyword-list hit counts with a 2:1 dominance
// threshold. Coarse on purpose; it is a display hint, not analysis.
func classifySentiment(text string) string {
	var pos, neg int
	for _, w := range positiveWords {
		if strings.Contains(text, w) {
			pos++
		}
	}
	for _, w := range negativeWords {
		if strings.Contains(text, w) {
			neg++
		}
	}
	switch {
	case pos > neg*2:
		return SentimentPositive
	case neg > pos*2:
		return SentimentNegative
	case pos > 0 || neg > 0:
		return SentimentMixed
	}
	return SentimentNeutral
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

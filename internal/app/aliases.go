package app

import (
	"strings"

	"review_ingest/internal/adapters/spreadsheet"
)

// Canonical field names the normalizer maps columns onto.
const (
	FieldPlatform   = "platform"
	FieldBusiness   = "business"
	FieldContent    = "content"
	FieldAuthor     = "author"
	FieldRating     = "rating"
	FieldReviewDate = "reviewDate"
)

// FieldAliases maps a canonical field to the header spellings we accept,
// in priority order. Order matters: the first alias with a non-blank value
// wins, so the lists are priority lists, not sets.
type FieldAliases map[string][]string

// DefaultAliases covers the header variants seen in customer uploads:
// Korean labels first, then the common English casings.
func DefaultAliases() FieldAliases {
	return FieldAliases{
		FieldPlatform: {
			"플랫폼", "platform", "Platform", "PLATFORM",
			"사이트", "site", "Site", "source", "Source",
		},
		FieldBusiness: {
			"업체명", "business", "Business", "BUSINESS",
			"상호", "업체", "사업자명", "company", "Company",
			"매장명", "store", "Store", "shop", "Shop",
		},
		FieldContent: {
			"내용", "content", "Content", "CONTENT",
			"리뷰내용", "리뷰", "review", "Review", "REVIEW",
			"후기", "평가", "comment", "Comment", "text", "Text",
		},
		FieldAuthor: {
			"작성자", "author", "Author", "AUTHOR",
			"고객명", "이름", "name", "Name", "customer", "Customer",
			"닉네임", "nickname", "user", "User",
		},
		FieldRating: {
			"평점", "rating", "Rating", "RATING",
			"별점", "star", "Star", "score", "Score",
		},
		FieldReviewDate: {
			"날짜", "date", "Date", "DATE",
			"작성일", "등록일", "리뷰일", "created", "createdAt",
			"reviewDate", "review_date",
		},
	}
}

// resolve scans the row's headers against the alias list for one field and
// returns the first non-blank cell. All-whitespace values count as absent.
func (a FieldAliases) resolve(row spreadsheet.Row, field string) (spreadsheet.Cell, bool) {
	for _, alias := range a[field] {
		c, ok := row.Lookup(alias)
		if !ok || c.IsBlank() {
			continue
		}
		return c, true
	}
	return spreadsheet.Cell{}, false
}

// resolveText is resolve with the value rendered and trimmed.
func (a FieldAliases) resolveText(row spreadsheet.Row, field string) string {
	c, ok := a.resolve(row, field)
	if !ok {
		return ""
	}
	return strings.TrimSpace(c.String())
}

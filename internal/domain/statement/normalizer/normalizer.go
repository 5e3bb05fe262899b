// Package normalizer repairs reconstructed statement text before parsing.
// PDF extraction leaves typographic spaces, exotic dashes and split tokens
// behind; every rule here is conservative enough to run on already-clean
// text without changing it, so normalization is idempotent.
package normalizer

import (
	"regexp"
	"strings"

	"github.com/FACorreiaa/statement-ledger/internal/domain/extraction"
)

// unicodeReplacer maps typographic characters onto their ASCII equivalents.
// Statements mix NBSP variants into amount columns and en/em dashes into
// sign positions depending on the generating software.
var unicodeReplacer = strings.NewReplacer(
	" ", " ", // no-break space
	" ", " ", // narrow no-break space
	" ", " ", // figure space
	"‒", "-", // figure dash
	"–", "-", // en dash
	"—", "-", // em dash
	"―", "-", // horizontal bar
	"−", "-", // minus sign
)

var (
	spaceRun = regexp.MustCompile(`\s+`)

	// "1.528.895,1 1": decimal part split by a stray space. Bank amounts
	// always carry two decimals, so a lone digit after ",d" is a fragment.
	splitDecimal = regexp.MustCompile(`((?:^|\s)-?\d{1,3}(?:\.\d{3})*,\d)\s(\d)(\s|$)`)

	// "1.528. 895,11" / "1.528 .895,11": thousands groups split around a
	// stray-spaced dot. Only rejoined when the right side closes with the
	// two decimals, so sentence periods never glue numbers together.
	splitThousandsAfterDot  = regexp.MustCompile(`((?:^|\s)-?\d{1,3}(?:\.\d{3})*\.)\s(\d{3}(?:\.\d{3})*,\d{2})\b`)
	splitThousandsBeforeDot = regexp.MustCompile(`((?:^|\s)-?\d{1,3}(?:\.\d{3})*)\s(\.\d{3}(?:\.\d{3})*,\d{2})\b`)

	// "- 333,41": sign detached from the amount that follows it. A dash
	// between two amounts is treated as a leading sign for the second one;
	// trailing-minus rejoin is only safe at end of line where nothing else
	// can claim the dash.
	detachedLeadingMinus  = regexp.MustCompile(`(^|\s)-\s(\d{1,3}(?:\.\d{3})*,\d{2})\b`)
	detachedTrailingMinus = regexp.MustCompile(`(\d)\s-$`)

	// "15 / 01 / 24": date with spaced separators.
	spacedDate = regexp.MustCompile(`\b(\d{1,2})\s*/\s*(\d{1,2})\s*/\s*(\d{2}|\d{4})\b`)

	// "1 5/01/24": leading day digit detached. Only digits that can start a
	// two-digit day are rejoined.
	splitDay = regexp.MustCompile(`(^|\s)([0-3])\s(\d/\d{1,2}/(?:\d{2}|\d{4}))\b`)

	// "15/0 1/24": month pair split. Only 0 or 1 can start a two-digit
	// month, mirroring the day rule.
	splitMonth = regexp.MustCompile(`\b(\d{1,2}/[01])\s(\d/(?:\d{2}|\d{4}))\b`)

	// "15/01/2 4" and "15/01/20 24": year pair split. The four-digit form
	// only rejoins after a century prefix so a number that merely follows a
	// complete date is never swallowed.
	splitYearShort   = regexp.MustCompile(`\b(\d{1,2}/\d{1,2}/\d)\s(\d)(\s|$)`)
	splitYearCentury = regexp.MustCompile(`\b(\d{1,2}/\d{1,2}/(?:19|20))\s(\d{2})(\s|$)`)
)

// Normalize cleans a single reconstructed line. Page markers pass through
// untouched.
func Normalize(line string) string {
	if line == extraction.PageMarker {
		return line
	}

	line = unicodeReplacer.Replace(line)
	line = strings.TrimSpace(spaceRun.ReplaceAllString(line, " "))

	// Inner date pairs heal before the day rule so a date broken in two
	// places still reassembles in a single pass.
	line = spacedDate.ReplaceAllString(line, "${1}/${2}/${3}")
	line = splitMonth.ReplaceAllString(line, "${1}${2}")
	line = splitYearCentury.ReplaceAllString(line, "${1}${2}${3}")
	line = splitYearShort.ReplaceAllString(line, "${1}${2}${3}")
	line = splitDay.ReplaceAllString(line, "${1}${2}${3}")

	// Decimal repair runs before the thousands and minus rules so a line
	// like "- 1.528. 895,1 1" reaches its final form in a single pass.
	line = splitDecimal.ReplaceAllString(line, "${1}${2}${3}")
	line = splitThousandsAfterDot.ReplaceAllString(line, "${1}${2}")
	line = splitThousandsBeforeDot.ReplaceAllString(line, "${1}${2}")

	line = detachedLeadingMinus.ReplaceAllString(line, "${1}-${2}")
	line = detachedTrailingMinus.ReplaceAllString(line, "${1}-")

	return line
}

// Document normalizes every line of a reconstructed document, dropping
// lines that normalize to nothing and preserving page markers.
func Document(text string) string {
	if text == "" {
		return ""
	}

	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if line == extraction.PageMarker {
			out = append(out, line)
			continue
		}
		if n := Normalize(line); n != "" {
			out = append(out, n)
		}
	}
	if len(out) == 0 {
		return ""
	}
	return strings.Join(out, "\n") + "\n"
}

// Package daterange validates user-entered dates and maintains the committed
// query range of a price screen.
package daterange

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/civil"
)

// Layout is the only accepted textual date form
const Layout = "YYYY-MM-DD"

var datePattern = regexp.MustCompile(`^(\d{4})-(\d{2})-(\d{2})$`)

// ParseDate accepts exactly YYYY-MM-DD and rejects dates that do not exist,
// such as 2023-02-30, instead of rolling them into the next month.
func ParseDate(text string) (civil.Date, bool) {
	m := datePattern.FindStringSubmatch(text)
	if m == nil {
		return civil.Date{}, false
	}

	year, err := strconv.Atoi(m[1])
	if err != nil {
		return civil.Date{}, false
	}
	month, err := strconv.Atoi(m[2])
	if err != nil {
		return civil.Date{}, false
	}
	day, err := strconv.Atoi(m[3])
	if err != nil {
		return civil.Date{}, false
	}

	d := civil.Date{Year: year, Month: time.Month(month), Day: day}
	if !d.IsValid() {
		return civil.Date{}, false
	}
	return d, true
}

// AutoFormat applies keystroke formatting to a date field. When the text grows
// to four or seven characters a '-' separator is appended. Characters other
// than digits and '-' are dropped and the result never exceeds len(Layout).
func AutoFormat(previous, current string) string {
	var b strings.Builder
	for _, r := range current {
		if (r >= '0' && r <= '9') || r == '-' {
			b.WriteRune(r)
		}
	}
	text := b.String()
	if len(text) > len(Layout) {
		text = text[:len(Layout)]
	}

	if len(text) > len(previous) && (len(text) == 4 || len(text) == 7) {
		text += "-"
	}
	return text
}

package efaktur

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var (
	reNonDigit      = regexp.MustCompile(`\D`)
	reSpaces        = regexp.MustCompile(`\s+`)
	reCompanyPrefix = regexp.MustCompile(`^(CV|PT)\b[\s.]*`)
)

var indonesianMonths = map[string]time.Month{
	"januari":   time.January,
	"februari":  time.February,
	"maret":     time.March,
	"april":     time.April,
	"mei":       time.May,
	"juni":      time.June,
	"juli":      time.July,
	"agustus":   time.August,
	"september": time.September,
	"oktober":   time.October,
	"november":  time.November,
	"desember":  time.December,
}

const dateLayout = "2006-01-02"

// NormalizeNumber strips every non-digit character.
func NormalizeNumber(value string) string {
	return reNonDigit.ReplaceAllString(value, "")
}

// NormalizeCompany upper-cases name, turns dots into spaces, collapses
// whitespace and rewrites "PT." / "CV." style prefixes to "PT " / "CV ".
func NormalizeCompany(name string) string {
	raw := strings.ReplaceAll(name, ".", " ")
	raw = strings.ToUpper(strings.TrimSpace(reSpaces.ReplaceAllString(raw, " ")))
	loc := reCompanyPrefix.FindStringSubmatchIndex(raw)
	if loc == nil {
		return raw
	}
	prefix := raw[loc[2]:loc[3]]
	rest := strings.TrimSpace(raw[loc[1]:])
	if rest == "" {
		return prefix
	}
	return prefix + " " + rest
}

// NormalizeIDR converts an Indonesian formatted amount such as "36.364.855,00"
// into a plain decimal string ("36364855"). It returns "" when unparseable.
func NormalizeIDR(amount string) string {
	s := strings.TrimSpace(amount)
	if s == "" {
		return ""
	}
	s = strings.ReplaceAll(s, " ", "")
	s = strings.ReplaceAll(s, ".", "")
	s = strings.ReplaceAll(s, ",", ".")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return ""
	}
	return d.String()
}

// NormalizeAmount parses a plain decimal amount ("36364855" or "36364855.00").
func NormalizeAmount(amount string) string {
	s := strings.TrimSpace(amount)
	if s == "" {
		return ""
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return ""
	}
	return d.String()
}

// ParseIndonesianDate parses "dd <bulan> yyyy", for example "12 Januari 2024".
func ParseIndonesianDate(value string) (time.Time, bool) {
	parts := strings.Fields(value)
	if len(parts) != 3 {
		return time.Time{}, false
	}
	day, err := strconv.Atoi(parts[0])
	if err != nil {
		return time.Time{}, false
	}
	month, ok := indonesianMonths[strings.ToLower(parts[1])]
	if !ok {
		return time.Time{}, false
	}
	year, err := strconv.Atoi(parts[2])
	if err != nil {
		return time.Time{}, false
	}
	t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	// time.Date normalizes out-of-range days; reject instead of rolling over.
	if t.Day() != day || t.Month() != month {
		return time.Time{}, false
	}
	return t, true
}

// NormalizeDJPDate converts the DJP "dd/MM/yyyy" date to YYYY-MM-DD.
func NormalizeDJPDate(value string) string {
	s := strings.TrimSpace(value)
	if s == "" {
		return ""
	}
	for _, layout := range []string{"02/01/2006", "2/1/2006", dateLayout} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(dateLayout)
		}
	}
	return s
}

func amountsEqual(a, b string) bool {
	da, errA := decimal.NewFromString(a)
	db, errB := decimal.NewFromString(b)
	if errA != nil || errB != nil {
		return a == b
	}
	return da.Equal(db)
}

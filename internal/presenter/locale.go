package presenter

import (
	"math"
	"os"
	"slices"
	"strings"
	"time"

	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// Locale holds resolved formatting conventions for dates, numbers and money.
type Locale struct {
	tag     language.Tag
	printer *message.Printer
}

// DetectLocale resolves the user's locale from environment variables.
// Falls back to en-US if nothing is set or parseable.
func DetectLocale() Locale {
	raw := os.Getenv("LC_ALL")
	if raw == "" {
		raw = os.Getenv("LC_TIME") // date/number-specific
	}
	if raw == "" {
		raw = os.Getenv("LANG")
	}
	return NewLocale(raw)
}

// NewLocale creates a Locale from a POSIX locale string (e.g. "de_DE.UTF-8")
// or BCP 47 tag (e.g. "de-DE"). Returns en-US for empty or unparseable input.
func NewLocale(raw string) Locale {
	// Strip encoding suffix: "en_US.UTF-8" → "en_US"
	if idx := strings.IndexByte(raw, '.'); idx != -1 {
		raw = raw[:idx]
	}
	// POSIX uses underscore, BCP 47 uses dash
	raw = strings.ReplaceAll(raw, "_", "-")

	tag, _ := language.Parse(raw)
	if tag == language.Und {
		tag = language.AmericanEnglish
	}

	return Locale{
		tag:     tag,
		printer: message.NewPrinter(tag),
	}
}

// FormatDate formats a time.Time as a locale-appropriate date string.
func (l Locale) FormatDate(t time.Time) string {
	return t.Format(l.dateLayout())
}

// FormatNumber formats a float64 with locale-appropriate grouping and decimal separators.
func (l Locale) FormatNumber(v float64) string {
	if v == float64(int64(v)) {
		return l.printer.Sprint(number.Decimal(int64(v)))
	}
	return l.printer.Sprint(number.Decimal(v, number.MaxFractionDigits(2)))
}

// FormatMoney formats an amount given in the currency's minor units
// (paise, cents) with the locale's currency symbol. Unknown codes are
// printed after a plain two-decimal amount.
func (l Locale) FormatMoney(minor int64, code string) string {
	unit, err := currency.ParseISO(code)
	if err != nil {
		return strings.TrimSpace(l.printer.Sprint(number.Decimal(float64(minor)/100, number.Scale(2))) + " " + strings.ToUpper(code))
	}
	scale, _ := currency.Standard.Rounding(unit)
	amount := float64(minor) / math.Pow10(scale)
	return l.printer.Sprint(currency.Symbol(unit.Amount(amount)))
}

// Tag returns the resolved language tag.
func (l Locale) Tag() language.Tag {
	return l.tag
}

// Date layouts in Go's reference time.
const (
	layoutMDY    = "Jan 2, 2006"
	layoutDMY    = "2 Jan 2006"
	layoutYMD    = "2006-01-02"
	layoutDMYDot = "2. Jan 2006"
)

// dateConventions lists, per layout, the ISO 3166 regions and then the
// base languages that use it. Regions are tried before languages; anything
// unlisted gets layoutMDY.
var dateConventions = []struct {
	layout    string
	regions   string
	languages string
}{
	{layoutMDY, "US PH", "en"},
	{layoutDMYDot, "DE AT CH", "de"},
	{layoutYMD, "JP CN KR TW HU LT CA", "ja zh ko"},
	{layoutDMY, "GB AU NZ IE ZA IN FR ES IT PT BR NL BE MX AR CL CO PL RU TR GR DK NO SE FI",
		"fr es it pt nl da nb nn sv fi pl ru tr"},
}

func (l Locale) dateLayout() string {
	region, _ := l.tag.Region()
	for _, c := range dateConventions {
		if listed(c.regions, region.String()) {
			return c.layout
		}
	}
	base, _ := l.tag.Base()
	for _, c := range dateConventions {
		if listed(c.languages, base.String()) {
			return c.layout
		}
	}
	return layoutMDY
}

func listed(list, code string) bool {
	return slices.Contains(strings.Fields(list), code)
}

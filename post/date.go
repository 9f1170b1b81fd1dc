package post

import (
	"fmt"
	"strconv"
	"time"

	"golang.org/x/text/language"
)

// DefaultLocale is the locale dates are formatted in unless configured otherwise.
const DefaultLocale = "pt-BR"

// abbreviated month names per supported locale, as date-style "MMM" tokens
var monthTables = []struct {
	tag    language.Tag
	months [12]string
}{
	{language.BrazilianPortuguese, [12]string{"jan", "fev", "mar", "abr", "mai", "jun", "jul", "ago", "set", "out", "nov", "dez"}},
	{language.AmericanEnglish, [12]string{"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"}},
	{language.Spanish, [12]string{"ene", "feb", "mar", "abr", "may", "jun", "jul", "ago", "sept", "oct", "nov", "dic"}},
}

var matcher = func() language.Matcher {
	tags := make([]language.Tag, len(monthTables))
	for i, t := range monthTables {
		tags[i] = t.tag
	}
	return language.NewMatcher(tags)
}()

// DateFormatter formats publication dates as "dd MMM yyyy" in one locale and
// time zone.
type DateFormatter struct {
	months [12]string
	loc    *time.Location
}

// NewDateFormatter picks the closest supported locale to the BCP 47 tag
// locale. A nil loc means UTC.
func NewDateFormatter(locale string, loc *time.Location) (*DateFormatter, error) {
	tag, err := language.Parse(locale)
	if err != nil {
		return nil, fmt.Errorf("parse locale %q: %w", locale, err)
	}
	_, idx, conf := matcher.Match(tag)
	if conf == language.No {
		return nil, fmt.Errorf("unsupported locale %q", locale)
	}
	if loc == nil {
		loc = time.UTC
	}
	return &DateFormatter{months: monthTables[idx].months, loc: loc}, nil
}

// Format returns e.g. "15 mar 2023". A nil time formats as "".
func (f *DateFormatter) Format(t *time.Time) string {
	if t == nil {
		return ""
	}
	lt := t.In(f.loc)
	day := strconv.Itoa(lt.Day())
	if len(day) == 1 {
		day = "0" + day
	}
	return day + " " + f.months[lt.Month()-1] + " " + strconv.Itoa(lt.Year())
}

// ISO returns the RFC 3339 form used in datetime attributes and feeds.
func (f *DateFormatter) ISO(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.In(f.loc).Format(time.RFC3339)
}

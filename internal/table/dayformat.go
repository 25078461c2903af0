package table

import (
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/ncruces/go-strftime"
)

// DefaultStrftimeLayout is the day layout used outside US English.
const DefaultStrftimeLayout = "%A, %e. %B, %Y"

// DayFormatter turns a timestamp into the label of a day header.
type DayFormatter interface {
	FormatDay(t time.Time) string
}

// USEnglish formats days like "Monday, 2nd March 2026".
type USEnglish struct{}

func (USEnglish) FormatDay(t time.Time) string {
	return t.Format("Monday, ") + humanize.Ordinal(t.Day()) + t.Format(" January 2006")
}

// Strftime formats days with a strftime layout.
type Strftime struct {
	Layout string
}

func (s Strftime) FormatDay(t time.Time) string {
	layout := s.Layout
	if layout == "" {
		layout = DefaultStrftimeLayout
	}
	return strftime.Format(layout, t)
}

// DayFormatterForLocale picks the formatter for a locale name. Only US English
// and the C locale get the US format; anything else, including an empty or
// unknown name, gets DefaultStrftimeLayout.
func DayFormatterForLocale(locale string) DayFormatter {
	switch strings.TrimSpace(locale) {
	case "en_US.UTF-8", "en_US.utf8", "en_US", "C":
		return USEnglish{}
	default:
		return Strftime{Layout: DefaultStrftimeLayout}
	}
}

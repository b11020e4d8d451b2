package state

import "golang.org/x/text/language"

// Locales is the process-wide locale store: the supported locales and the
// fallback used when a visitor expresses no usable preference. It is
// immutable after construction.
type Locales struct {
	fallback string
	// order holds the locale for each matcher tag index; the fallback is first.
	order   []string
	matcher language.Matcher
}

// NewLocales builds a store. fallback should be one of supported.
func NewLocales(supported []string, fallback string) *Locales {
	l := &Locales{fallback: fallback, order: []string{fallback}}
	tags := []language.Tag{language.Make(fallback)}
	for _, s := range supported {
		if s == fallback {
			continue
		}
		l.order = append(l.order, s)
		tags = append(tags, language.Make(s))
	}
	l.matcher = language.NewMatcher(tags)
	return l
}

// Supported lists the configured locales, fallback first.
func (l *Locales) Supported() []string {
	return append([]string(nil), l.order...)
}

// Default returns the fallback locale.
func (l *Locales) Default() string { return l.fallback }

// IsSupported reports whether locale is configured.
func (l *Locales) IsSupported(locale string) bool {
	for _, s := range l.order {
		if s == locale {
			return true
		}
	}
	return false
}

// Resolve picks the locale for a request: an explicit choice wins, then the
// Accept-Language header, then the fallback.
func (l *Locales) Resolve(chosen, acceptLanguage string) string {
	if l.IsSupported(chosen) {
		return chosen
	}
	prefs, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(prefs) == 0 {
		return l.fallback
	}
	_, idx, conf := l.matcher.Match(prefs...)
	if conf == language.No || idx < 0 || idx >= len(l.order) {
		return l.fallback
	}
	return l.order[idx]
}

package http

import (
	"fmt"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// ResultFormatter renders a prediction as text in the configured locale.
type ResultFormatter struct {
	printer *message.Printer
}

func NewResultFormatter(locale string) (*ResultFormatter, error) {
	if locale == "" {
		locale = "en"
	}
	tag, err := language.Parse(locale)
	if err != nil {
		return nil, fmt.Errorf("parse locale %q: %w", locale, err)
	}
	return &ResultFormatter{printer: message.NewPrinter(tag)}, nil
}

// Minutes formats v with two decimals and the unit label.
func (f *ResultFormatter) Minutes(v float64) string {
	return f.printer.Sprintf("%.2f minutes", v)
}

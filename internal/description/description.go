// Package description extracts installment, event and product signals from
// the free-text description the payment provider attaches to a charge.
package description

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var installmentPattern = regexp.MustCompile(`Parcela (\d+) de (\d+)`)

type Config struct {
	EventBrand      string
	YearFrom        int
	YearTo          int
	ProductKeywords []string
}

type Parsed struct {
	IsInstallment     bool    `json:"is_installment"`
	InstallmentNumber *int    `json:"installment_number,omitempty"`
	TotalInstallments *int    `json:"total_installments,omitempty"`
	EventName         *string `json:"event_name,omitempty"`
	Year              *string `json:"year,omitempty"`
	HasProducts       bool    `json:"has_products"`
	Raw               string  `json:"raw"`
}

// Parser is safe for concurrent use.
type Parser struct {
	brand     string
	brandFold string
	yearFrom  int
	yearTo    int
	keywords  []string
}

func NewParser(cfg Config) *Parser {
	p := &Parser{
		brand:    strings.TrimSpace(cfg.EventBrand),
		yearFrom: cfg.YearFrom,
		yearTo:   cfg.YearTo,
	}
	p.brandFold = fold(p.brand)
	for _, keyword := range cfg.ProductKeywords {
		if k := fold(strings.TrimSpace(keyword)); k != "" {
			p.keywords = append(p.keywords, k)
		}
	}
	return p
}

// Parse returns nil for a nil or blank description. It never fails; text
// that only partially matches yields a partially filled result.
func (p *Parser) Parse(text *string) *Parsed {
	if text == nil || strings.TrimSpace(*text) == "" {
		return nil
	}
	raw := *text
	out := &Parsed{Raw: raw}

	if m := installmentPattern.FindStringSubmatch(raw); m != nil {
		n, errN := strconv.Atoi(m[1])
		total, errT := strconv.Atoi(m[2])
		if errN == nil && errT == nil {
			out.IsInstallment = true
			out.InstallmentNumber = &n
			out.TotalInstallments = &total
		}
	}

	folded := fold(raw)
	if p.brandFold != "" && strings.Contains(folded, p.brandFold) {
		brand := p.brand
		out.EventName = &brand
	}

	out.Year = p.findYear(raw)

	for _, keyword := range p.keywords {
		if strings.Contains(folded, keyword) {
			out.HasProducts = true
			break
		}
	}
	return out
}

func (p *Parser) ParseString(text string) *Parsed {
	return p.Parse(&text)
}

// findYear returns the first four digit window inside the configured range.
func (p *Parser) findYear(text string) *string {
	if p.yearFrom == 0 && p.yearTo == 0 {
		return nil
	}
	for i := 0; i+4 <= len(text); i++ {
		window := text[i : i+4]
		if !allDigits(window) {
			continue
		}
		year, _ := strconv.Atoi(window)
		if year >= p.yearFrom && year <= p.yearTo {
			return &window
		}
	}
	return nil
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// fold lowercases s and strips diacritics so "EDIÇÃO" and "edicao" compare equal.
func fold(s string) string {
	if s == "" {
		return ""
	}
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(out)
}

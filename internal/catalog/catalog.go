// Package catalog lists the countries and indicators offered for selection.
package catalog

import (
	"sort"
	"strings"
)

// popular are the economies in the default cross-country snapshot.
var popular = []string{
	"USA", "CAN", "GBR", "DEU", "FRA", "ITA", "ESP", "NLD", "CHE", "BEL", "AUT",
	"DNK", "NOR", "SWE", "FIN", "IRL", "AUS", "NZL", "JPN", "KOR", "SGP",
}

// Popular returns the ISO3 codes of the default snapshot economies.
func Popular() []string {
	return append([]string(nil), popular...)
}

// Country is a selectable entity.
type Country struct {
	ISO3 string `json:"iso3"`
	ISO2 string `json:"iso2"`
	Name string `json:"name"`
}

// Indicator is a provider-specific series code with a label.
type Indicator struct {
	Code  string `json:"code"`
	Label string `json:"label"`
}

var countries = []Country{
	{"AFG", "AF", "Afghanistan"},
	{"ALB", "AL", "Albania"},
	{"DZA", "DZ", "Algeria"},
	{"AGO", "AO", "Angola"},
	{"ARG", "AR", "Argentina"},
	{"AUS", "AU", "Australia"},
	{"AUT", "AT", "Austria"},
	{"BEL", "BE", "Belgium"},
	{"CAN", "CA", "Canada"},
	{"CHE", "CH", "Switzerland"},
	{"DEU", "DE", "Germany"},
	{"DNK", "DK", "Denmark"},
	{"ESP", "ES", "Spain"},
	{"FIN", "FI", "Finland"},
	{"FRA", "FR", "France"},
	{"GBR", "GB", "United Kingdom"},
	{"IRL", "IE", "Ireland"},
	{"ITA", "IT", "Italy"},
	{"JPN", "JP", "Japan"},
	{"KOR", "KR", "South Korea"},
	{"NLD", "NL", "Netherlands"},
	{"NOR", "NO", "Norway"},
	{"NZL", "NZ", "New Zealand"},
	{"SGP", "SG", "Singapore"},
	{"SWE", "SE", "Sweden"},
	{"USA", "US", "United States"},
}

var (
	byISO3 = map[string]Country{}
	byISO2 = map[string]Country{}
)

func init() {
	for _, c := range countries {
		byISO3[c.ISO3] = c
		byISO2[c.ISO2] = c
	}
}

// Countries returns the selectable countries sorted by name.
func Countries() []Country {
	out := make([]Country, len(countries))
	copy(out, countries)
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Lookup finds a country by ISO3 or ISO2 code.
func Lookup(code string) (Country, bool) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if c, ok := byISO3[code]; ok {
		return c, true
	}
	c, ok := byISO2[code]
	return c, ok
}

// ISO2 maps an ISO3 code to ISO2; unknown codes come back unchanged.
func ISO2(code string) string {
	if c, ok := Lookup(code); ok {
		return c.ISO2
	}
	return strings.ToUpper(strings.TrimSpace(code))
}

// ISO3 maps an ISO2 code to ISO3; unknown codes come back unchanged.
func ISO3(code string) string {
	if c, ok := Lookup(code); ok {
		return c.ISO3
	}
	return strings.ToUpper(strings.TrimSpace(code))
}

// Name returns the display name, or the code itself when unknown.
func Name(code string) string {
	if c, ok := Lookup(code); ok {
		return c.Name
	}
	return code
}

package roles

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Role describes one entry of the role catalogue.
type Role struct {
	Name        string
	DisplayName string
	Inherits    []string
}

var titler = cases.Title(language.English)

// DisplayName renders a role slug for the console ("operations_manager"
// becomes "Operations Manager").
func DisplayName(slug string) string {
	return titler.String(strings.ReplaceAll(slug, "_", " "))
}

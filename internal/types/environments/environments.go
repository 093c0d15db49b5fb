package environments

import "strings"

type Environment string

const (
	Production  Environment = "production"
	Development Environment = "development"
	Staging     Environment = "staging"
	Test        Environment = "test"
)

// Parse maps an APP_ENV value onto a known environment, falling back to
// development for empty input. Unknown values are kept as-is so the
// logger can pick its production default.
func Parse(s string) Environment {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return Development
	}
	return Environment(s)
}

func (e Environment) IsProduction() bool {
	return e == Production
}

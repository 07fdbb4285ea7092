// Package config handles YAML config file loading for ferry push.
package config

import (
	"os"
	"regexp"
)

// envVarPattern matches ${VAR} and ${VAR:-default} references, e.g.
// `url: ${FERRY_BACKEND_URL:-http://localhost:8080}` or an auth header
// value of `Bearer ${FERRY_TOKEN}`.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-([^}]*))?\}`)

// ExpandEnv replaces ${VAR} and ${VAR:-default} references in the raw
// ferry.yaml text with environment variable values. This runs before YAML
// decoding, so tokens and backend URLs never have to be written into the
// file itself.
//
// An unset variable without a default expands to the empty string rather
// than failing here; a missing required value (say the backend URL) is
// reported by push's own validation with a message naming the field.
func ExpandEnv(input string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		groups := envVarPattern.FindStringSubmatch(match)
		if len(groups) < 2 {
			return match
		}

		value, ok := os.LookupEnv(groups[1])
		if ok && value != "" {
			return value
		}

		// ${VAR:-default} form: groups[2] carries the default.
		if len(groups) >= 3 && groups[2] != "" {
			return groups[2]
		}

		return ""
	})
}

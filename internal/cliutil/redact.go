package cliutil

import (
	"regexp"
	"strings"
)

const redactedPlaceholder = "[redacted]"

var (
	templateVarPattern = regexp.MustCompile(`\$\{[^}]+\}`)
	secretKeyPattern   = regexp.MustCompile(`(?i)\b(` + strings.Join(secretKeys(), "|") + `)\b(\s*[:=]\s*)(["']?)([^"'\s]+)(["']?)`)
	secretFlagPattern  = regexp.MustCompile(`(?i)(--?(?:password|passwd|token|secret|api-?key)[ =])(\S+)`)
)

func secretKeys() []string {
	keys := []string{
		"AWS_ACCESS_KEY_ID",
		"AWS_SECRET_ACCESS_KEY",
		"AWS_SESSION_TOKEN",
		"AZURE_CLIENT_SECRET",
		"GCP_SERVICE_ACCOUNT_KEY",
		"DATABASE_PASSWORD",
		"DB_PASSWORD",
		"POSTGRES_PASSWORD",
		"REDIS_PASSWORD",
		"API_KEY",
		"ACCESS_TOKEN",
		"REFRESH_TOKEN",
		"CLIENT_SECRET",
	}
	escaped := make([]string, len(keys))
	for i, key := range keys {
		escaped[i] = regexp.QuoteMeta(key)
	}
	return escaped
}

// RedactSecrets masks sensitive material before a command line is shown
// anywhere: ${VAR} template references, known secret key assignments and
// credential-bearing flags (--password=..., --token ...). Process argv
// routinely embeds all three.
func RedactSecrets(message string) string {
	if message == "" {
		return message
	}
	redacted := templateVarPattern.ReplaceAllStringFunc(message, func(match string) string {
		return "${" + redactedPlaceholder + "}"
	})
	redacted = secretKeyPattern.ReplaceAllString(redacted, "$1$2$3"+redactedPlaceholder+"$5")
	return secretFlagPattern.ReplaceAllString(redacted, "$1"+redactedPlaceholder)
}

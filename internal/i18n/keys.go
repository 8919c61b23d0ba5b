// internal/i18n/keys.go
package i18n

const (
	DefaultLang   = "en"
	LangUkrainian = "uk"
)

// Translation keys constants
const (
	KeyNotAuthenticated = "error.not_authenticated"
	KeyNoActiveAccount  = "error.no_active_account"
	KeyPermissionDenied = "error.permission_denied"
	KeyNotFound         = "error.not_found"
	KeyServerError      = "error.error"
)

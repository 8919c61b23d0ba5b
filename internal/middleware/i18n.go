// internal/middleware/i18n.go
package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/marketua/marketplace-backend/internal/i18n"
	"github.com/marketua/marketplace-backend/internal/utils"
)

// I18nMiddleware picks the first supported language of Accept-Language.
func I18nMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(utils.ContextLangKey, parseLanguage(c.GetHeader("Accept-Language")))
		c.Next()
	}
}

// parseLanguage handles headers like "uk-UA,uk;q=0.9,en;q=0.8".
func parseLanguage(header string) string {
	for _, part := range strings.Split(header, ",") {
		subtags := strings.FieldsFunc(strings.Split(part, ";")[0], func(r rune) bool {
			return r == '-' || r == '_' || r == ' '
		})
		if len(subtags) == 0 {
			continue
		}
		switch strings.ToLower(subtags[0]) {
		case "uk", "ua":
			return i18n.LangUkrainian
		case "en":
			return i18n.DefaultLang
		}
	}
	return i18n.DefaultLang
}

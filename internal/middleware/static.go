package middleware

import "path"

// CacheControl: стили и скрипты кэшируются на сутки, остальное
// перепроверяется.
func CacheControl(name string) string {
	switch path.Ext(name) {
	case ".css", ".js":
		return "public, max-age=86400"
	default:
		return "no-cache"
	}
}

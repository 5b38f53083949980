package contextutils

import (
	"net/url"
)

// MaskDatabaseURL hides the password of a connection URL so it can be logged.
func MaskDatabaseURL(raw string) string {
	if raw == "" {
		return "[EMPTY]"
	}
	u, err := url.Parse(raw)
	if err != nil || u.User == nil {
		return raw
	}
	if _, hasPassword := u.User.Password(); hasPassword {
		u.User = url.UserPassword(u.User.Username(), "xxxxx")
	}
	return u.String()
}

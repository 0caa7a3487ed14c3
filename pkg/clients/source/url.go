package source

import (
	"net/url"

	"github.com/pkg/errors"
)

const (
	// DefaultUsername is injected into source urls without credentials
	DefaultUsername = "anonymous"
	// DefaultPassword is injected into source urls without a password
	DefaultPassword = "anonymous"
)

// RewriteURL injects placeholder credentials into a source url so git never prompts for them
func RewriteURL(sourceURL string) (string, error) {
	u, err := url.Parse(sourceURL)
	if err != nil {
		return "", errors.Wrapf(err, "parsing source url %v", sourceURL)
	}

	username := DefaultUsername
	password := DefaultPassword
	if u.User != nil {
		if name := u.User.Username(); name != "" {
			username = name
		}
		if pass, ok := u.User.Password(); ok {
			password = pass
		}
	}

	u.User = url.UserPassword(username, password)

	return u.String(), nil
}

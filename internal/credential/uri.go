// Package credential handles URI password redaction and keyring storage.
package credential

import (
	"net/url"
	"strings"
)

// HasMongoScheme reports whether a connection string carries one of the
// accepted MongoDB URI schemes. This is the only format validation the
// registry performs; everything else is the driver's job.
func HasMongoScheme(uri string) bool {
	return strings.HasPrefix(uri, "mongodb://") || strings.HasPrefix(uri, "mongodb+srv://")
}

// RedactURI removes the password from a MongoDB URI.
// Returns the redacted URI and the extracted password. URIs that fail to
// parse or carry no password are returned unchanged.
func RedactURI(uri string) (redacted, password string) {
	parsed, err := url.Parse(uri)
	if err != nil || parsed.User == nil {
		return uri, ""
	}

	password, ok := parsed.User.Password()
	if !ok || password == "" {
		return uri, ""
	}

	parsed.User = url.User(parsed.User.Username())
	return parsed.String(), password
}

// RestoreURI puts a previously redacted password back into a MongoDB URI.
// A URI without a username has nowhere to attach the password and is
// returned unchanged.
func RestoreURI(uri, password string) string {
	if password == "" {
		return uri
	}

	parsed, err := url.Parse(uri)
	if err != nil || parsed.User == nil {
		return uri
	}

	parsed.User = url.UserPassword(parsed.User.Username(), password)
	return parsed.String()
}

// HostFromURI extracts the host portion of a MongoDB URI for use as a
// fallback display name. Returns empty string when the URI is unparseable.
func HostFromURI(uri string) string {
	parsed, err := url.Parse(uri)
	if err != nil {
		return ""
	}
	return parsed.Host
}

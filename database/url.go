package database

import (
	"net/url"
)

const defaultSSLMode = "disable"

// ConstructDatabaseURL points baseURL at databaseName, replacing any database
// already in the path. Query parameters survive; sslmode defaults to disable.
// A base that does not parse as a URL is returned untouched.
func ConstructDatabaseURL(baseURL, databaseName string) string {
	if databaseName == "" {
		return baseURL
	}

	u, err := url.Parse(baseURL)
	if err != nil || u.Host == "" {
		return baseURL
	}

	u.Path = "/" + databaseName
	u.RawPath = ""

	query := u.Query()
	if query.Get("sslmode") == "" {
		query.Set("sslmode", defaultSSLMode)
	}
	u.RawQuery = query.Encode()

	return u.String()
}

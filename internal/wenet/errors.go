package wenet

import (
	"errors"
	"fmt"

	pkgHTTP "github.com/InternetOfUs/app-telegram-bot-sub000/pkg/http"
)

// ErrRefreshTokenExpired means the stored refresh token no longer works.
// It propagates up to the dispatch boundary, where the user is asked to
// log in again; it is never handled per-handler.
var ErrRefreshTokenExpired = errors.New("refresh token expired")

// CreationError is returned when the service API rejects a task or
// transaction creation.
type CreationError struct {
	Status int
	Body   string
}

func (e *CreationError) Error() string {
	return fmt.Sprintf("creation rejected with HTTP %d: %s", e.Status, e.Body)
}

// IsUnauthorized reports whether err is an HTTP 401 from the service API,
// meaning the access token should be refreshed and the call repeated once.
func IsUnauthorized(err error) bool {
	var httpErr *pkgHTTP.HTTPError
	return errors.As(err, &httpErr) && httpErr.StatusCode == 401
}

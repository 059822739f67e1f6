package serverutil

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/forumkit/forumadmin/pkg/config"
)

var (
	ErrExternalReferer = errors.New("the form was submitted from another site")
)

const (
	// NoReferer is returned when the request has no referer
	NoReferer RefererResult = iota
	// InvalidReferer is returned when the referer not a valid URL
	InvalidReferer
	// InternalReferer is returned when the request came from the same site as the server
	InternalReferer
	// ExternalReferer is returned when the request came from another site
	ExternalReferer
)

type RefererResult int

// CheckReferer checks to make sure that the incoming request is from the same domain
func CheckReferer(request *http.Request) (RefererResult, error) {
	referer := request.Referer()
	if referer == "" {
		return NoReferer, nil
	}

	rURL, err := url.ParseRequestURI(referer)
	if err != nil {
		return InvalidReferer, err
	}
	if rURL.Host == config.GetSystemCriticalConfig().SiteHost {
		return InternalReferer, nil
	}
	return ExternalReferer, nil
}

// ValidatePostReferer returns ErrExternalReferer if a POST request's referer is another site or isn't
// a valid URL. Requests without a referer are allowed since some browsers and proxies don't send it
func ValidatePostReferer(request *http.Request) error {
	if request.Method != http.MethodPost {
		return nil
	}
	result, _ := CheckReferer(request)
	if result == ExternalReferer || result == InvalidReferer {
		return ErrExternalReferer
	}
	return nil
}

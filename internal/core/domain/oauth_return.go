package domain

import (
	"net/url"
	"strings"
)

// Query parameters the backend appends when it redirects back to return_url.
const (
	ReturnParamSuccess  = "oauth_success"
	ReturnParamError    = "oauth_error"
	ReturnParamProvider = "oauth_provider"
	ReturnParamURL      = "return_url"
)

// OAuthReturn is the outcome the backend encoded in a return_url redirect.
type OAuthReturn struct {
	Success  bool
	Provider Provider
	Error    string
}

// AuthorizationURL builds <base>/oauth/<provider>/start/?return_url=<returnURL>.
func AuthorizationURL(base string, p Provider, returnURL string) string {
	base = strings.TrimRight(base, "/")
	q := url.Values{}
	q.Set(ReturnParamURL, returnURL)
	return base + "/oauth/" + url.PathEscape(string(p)) + "/start/?" + q.Encode()
}

// IsOAuthReturn reports whether the URL carries OAuth return parameters.
func IsOAuthReturn(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	q := u.Query()
	return q.Has(ReturnParamSuccess) || q.Has(ReturnParamError)
}

// ParseOAuthReturn extracts the return parameters from a URL.
// The boolean is false when the URL carries none.
func ParseOAuthReturn(rawURL string) (OAuthReturn, bool) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return OAuthReturn{}, false
	}
	q := u.Query()
	success := q.Get(ReturnParamSuccess)
	errText := q.Get(ReturnParamError)
	if success == "" && errText == "" {
		return OAuthReturn{}, false
	}

	ret := OAuthReturn{
		Success: success == "true",
		Error:   errText,
	}
	if p, err := ParseProvider(q.Get(ReturnParamProvider)); err == nil {
		ret.Provider = p
	}
	return ret, true
}

// StripOAuthReturn removes the return parameters from a URL.
// URLs that fail to parse are returned unchanged.
func StripOAuthReturn(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	q := u.Query()
	changed := false
	for _, key := range []string{ReturnParamSuccess, ReturnParamError, ReturnParamProvider} {
		if q.Has(key) {
			q.Del(key)
			changed = true
		}
	}
	if !changed {
		return rawURL
	}
	u.RawQuery = q.Encode()
	return u.String()
}

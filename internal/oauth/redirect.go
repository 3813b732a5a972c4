package oauth

import "net/url"

// appendQuery is the generalized form of the teacher's BuildRedirectURL
// and BuildErrorRedirectURL: merge a set of query parameters into a
// redirect target, skipping any with an empty value.
func appendQuery(redirectURI string, params map[string]string) string {
	u, err := url.Parse(redirectURI)
	if err != nil {
		return redirectURI
	}

	q := u.Query()
	for k, v := range params {
		if v != "" {
			q.Set(k, v)
		}
	}
	u.RawQuery = q.Encode()

	return u.String()
}

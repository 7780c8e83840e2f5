package adapter

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// hawkCredentials are the id and key handed out by the token server.
type hawkCredentials struct {
	ID  string
	Key []byte
}

// hawkRequest is the part of a request covered by the Hawk MAC.
type hawkRequest struct {
	Method   string
	Host     string
	Port     int
	Resource string
}

func newHawkRequest(method, rawURL string) (hawkRequest, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return hawkRequest{}, fmt.Errorf("%w: %v", ErrUnacceptableURL, err)
	}
	host := u.Hostname()
	if host == "" {
		return hawkRequest{}, fmt.Errorf("%w: storage URL has no host", ErrUnacceptableURL)
	}
	port := 0
	switch {
	case u.Port() != "":
		port, err = strconv.Atoi(u.Port())
		if err != nil {
			return hawkRequest{}, fmt.Errorf("%w: bad port %q", ErrUnacceptableURL, u.Port())
		}
	case u.Scheme == "https":
		port = 443
	case u.Scheme == "http":
		port = 80
	default:
		return hawkRequest{}, fmt.Errorf("%w: no default port for %q", ErrUnacceptableURL, u.Scheme)
	}

	resource := u.EscapedPath()
	if resource == "" {
		resource = "/"
	}
	if u.RawQuery != "" {
		resource += "?" + u.RawQuery
	}
	return hawkRequest{
		Method:   strings.ToUpper(method),
		Host:     strings.ToLower(host),
		Port:     port,
		Resource: resource,
	}, nil
}

// normalized is the hawk.1.header string the MAC is computed over. Payload
// hashes and ext data are not used by Sync.
func (r hawkRequest) normalized(ts int64, nonce string) string {
	return strings.Join([]string{
		"hawk.1.header",
		strconv.FormatInt(ts, 10),
		nonce,
		r.Method,
		r.Resource,
		r.Host,
		strconv.Itoa(r.Port),
		"",
		"",
	}, "\n") + "\n"
}

func (r hawkRequest) mac(creds hawkCredentials, ts int64, nonce string) string {
	h := hmac.New(sha256.New, creds.Key)
	h.Write([]byte(r.normalized(ts, nonce)))
	return base64.StdEncoding.EncodeToString(h.Sum(nil))
}

// header builds the Authorization value for the request at time now.
func (r hawkRequest) header(creds hawkCredentials, now time.Time) (string, error) {
	nonce, err := hawkNonce()
	if err != nil {
		return "", err
	}
	ts := now.Unix()
	return fmt.Sprintf(`Hawk id="%s", ts="%d", nonce="%s", mac="%s"`,
		creds.ID, ts, nonce, r.mac(creds, ts, nonce)), nil
}

func hawkNonce() (string, error) {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("%w: nonce: %v", ErrHawk, err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

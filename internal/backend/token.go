package backend

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"golang.org/x/net/html"
)

// TokenSource supplies the anti-forgery token sent with mutating requests.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken is a token fixed by configuration.
type StaticToken string

// Token returns the configured token.
func (s StaticToken) Token(context.Context) (string, error) {
	return string(s), nil
}

// PageToken reads the token from the csrf-token meta tag of the backend's
// dashboard page. The page is fetched once and the value cached until the
// backend rejects it.
type PageToken struct {
	client  *http.Client
	pageURL string

	mu      sync.Mutex
	token   string
	fetched bool
}

// NewPageToken creates a PageToken. The client should share the cookie jar used
// for API calls so the session that issued the token is reused.
func NewPageToken(client *http.Client, pageURL string) *PageToken {
	return &PageToken{client: client, pageURL: pageURL}
}

// Token returns the page token, fetching the page on first use. A page without
// the meta tag yields the empty token.
func (p *PageToken) Token(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fetched {
		return p.token, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.pageURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build page request: %w", err)
	}
	req.Header.Set("Accept", "text/html")

	resp, err := p.client.Do(req)
	if err != nil {
		return "", transportErr("fetch dashboard page", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		return "", &APIError{StatusCode: resp.StatusCode, Message: "dashboard page unavailable"}
	}

	token, err := ParseCSRFMeta(resp.Body)
	if err != nil {
		return "", transportErr("parse dashboard page", err)
	}
	p.token = token
	p.fetched = true
	return token, nil
}

// Invalidate drops the cached token so the next call refetches the page.
func (p *PageToken) Invalidate() {
	p.mu.Lock()
	p.fetched = false
	p.token = ""
	p.mu.Unlock()
}

// ParseCSRFMeta returns the content of <meta name="csrf-token">, or "" when the
// document has no such tag.
func ParseCSRFMeta(r io.Reader) (string, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return "", err
	}
	token, _ := findMeta(doc, "csrf-token")
	return token, nil
}

func findMeta(n *html.Node, name string) (string, bool) {
	if n.Type == html.ElementNode && n.Data == "meta" {
		var metaName, content string
		for _, a := range n.Attr {
			switch strings.ToLower(a.Key) {
			case "name":
				metaName = a.Val
			case "content":
				content = a.Val
			}
		}
		if strings.EqualFold(metaName, name) {
			return content, true
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if v, ok := findMeta(c, name); ok {
			return v, true
		}
	}
	return "", false
}

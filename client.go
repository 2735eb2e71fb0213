package ripext

import (
	"fmt"
	"net/url"
	"strings"
)

// Builder turns a request into an absolute url and a transport header list
type Builder interface {
	Build(request *Request) (string, []string, error)
}

// Client default builder, shared headers are sent with every request
type Client struct {
	headers   *HeaderTable
	userAgent string
}

// ClientOption Client可选参数
type ClientOption func(c *Client)

// ClientWithHeader header sent with every request unless the request overrides it
func ClientWithHeader(name string, value string) ClientOption {
	return func(c *Client) {
		c.headers.Replace(name, value)
	}
}

// ClientWithUserAgent override the configured user agent
func ClientWithUserAgent(userAgent string) ClientOption {
	return func(c *Client) {
		c.userAgent = userAgent
	}
}

// NewClient builder using the configured user agent
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		headers:   NewHeaderTable(),
		userAgent: Config.GetString(UserAgentKey),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BuildURL joins endpoint and path with exactly one slash
func (c *Client) BuildURL(endpoint string, path string) (string, error) {
	target := strings.TrimRight(endpoint, "/")
	if path != "" {
		target = target + "/" + strings.TrimLeft(path, "/")
	}
	u, err := url.Parse(target)
	if err != nil {
		return "", err
	}
	if !u.IsAbs() || u.Host == "" {
		return "", fmt.Errorf("endpoint %q is not an absolute url", endpoint)
	}
	return target, nil
}

// BuildHeaders json defaults, then client headers, then request headers
func (c *Client) BuildHeaders(request *Request) []string {
	headers := NewHeaderTable()
	headers.Replace("Accept", "application/json")
	headers.Replace("Content-Type", "application/json")
	if c.userAgent != "" {
		headers.Replace("User-Agent", c.userAgent)
	}
	lines := headers.Lines()
	lines = append(lines, c.headers.Lines()...)
	if request.Headers != nil {
		lines = append(lines, request.Headers.Lines()...)
	}
	return lines
}

func (c *Client) Build(request *Request) (string, []string, error) {
	target, err := c.BuildURL(request.Endpoint, request.Path)
	if err != nil {
		return "", nil, err
	}
	return target, c.BuildHeaders(request), nil
}

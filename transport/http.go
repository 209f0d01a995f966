package transport

import (
	"io"
	"net/http"
	"strings"
)

// HTTPDoer adapts a plain *http.Client to Doer, for callers that bring their
// own transport and for tests against httptest servers.
type HTTPDoer struct {
	Client *http.Client
}

// DoWithHeaderOrder implements Doer. Header order is not controllable with
// net/http and is ignored.
func (d HTTPDoer) DoWithHeaderOrder(method, url string, headers map[string]string, body io.Reader, _ []string) ([]byte, map[string]string, int, error) {
	req, err := http.NewRequest(method, url, body)
	if err != nil {
		return nil, nil, 0, err
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	client := d.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, nil, 0, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, 0, err
	}
	hdrs := make(map[string]string, len(resp.Header))
	for k, v := range resp.Header {
		hdrs[strings.ToLower(k)] = strings.Join(v, "; ")
	}
	return data, hdrs, resp.StatusCode, nil
}

package collector

import (
	"bufio"
	"bytes"
	"crypto/sha1"
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"
)

// DiskCache is an http.RoundTripper that keeps successful GET responses on
// disk. Keys include the current date so entries expire daily.
type DiskCache struct {
	Base http.RoundTripper
	Dir  string
	Now  func() time.Time
}

func (c *DiskCache) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Method != http.MethodGet {
		return c.Base.RoundTrip(req)
	}
	now := time.Now
	if c.Now != nil {
		now = c.Now
	}
	key := fmt.Sprintf("%s %s %s", now().Format("2006-01-02"), req.Method, req.URL.String())
	key = fmt.Sprintf("%x", sha1.Sum([]byte(key)))

	if resp, err := c.get(key, req); err == nil {
		log.Debug().Str("url", req.URL.Path).Msg("cache hit")
		return resp, nil
	}

	resp, err := c.Base.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 300 {
		return resp, nil
	}
	if err := c.put(key, resp); err != nil {
		log.Warn().Err(err).Msg("cache write failed (ignored)")
	}
	return resp, nil
}

func (c *DiskCache) get(key string, req *http.Request) (*http.Response, error) {
	content, err := os.ReadFile(filepath.Join(c.Dir, key))
	if err != nil {
		return nil, err
	}
	return http.ReadResponse(bufio.NewReader(bytes.NewReader(content)), req)
}

// put dumps the response and restores its body so the caller can still read it.
func (c *DiskCache) put(key string, resp *http.Response) error {
	content, err := httputil.DumpResponse(resp, true)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(c.Dir, 0o755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(c.Dir, key), content, 0o644)
}

// newHTTPClient builds the client shared by fetchers: 30s timeout, optional
// proxy, optional daily disk cache.
func newHTTPClient(proxyURL, cacheDir string) *http.Client {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	var rt http.RoundTripper = transport
	if cacheDir != "" {
		rt = &DiskCache{Base: transport, Dir: cacheDir}
	}
	return &http.Client{
		Timeout:   30 * time.Second,
		Transport: rt,
	}
}

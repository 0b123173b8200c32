package heartbeat

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-cleanhttp"
)

const (
	discardLimit   int64 = 128 * 1024
	DefaultTimeout       = 10 * time.Second
)

// URLHeartbeat posts the run summary to a monitoring URL, such as a dead
// man's switch watching scheduled runs.
type URLHeartbeat struct {
	url    string
	client *http.Client
}

func NewURLHeartbeat(url string) *URLHeartbeat {
	client := cleanhttp.DefaultClient()
	client.Timeout = DefaultTimeout
	return &URLHeartbeat{
		url:    url,
		client: client,
	}
}

func (b *URLHeartbeat) Beat(ctx context.Context, s Summary) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.url, strings.NewReader(s.String()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")

	resp, err := b.client.Do(req)
	if err != nil {
		return err
	}
	defer cleanupBody(resp.Body)

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("heartbeat rejected: %s", resp.Status)
	}
	return nil
}

// Does cleanup of HTTP response in order to make it reusable by keep-alive
// logic of HTTP client
func cleanupBody(body io.ReadCloser) {
	io.Copy(io.Discard, &io.LimitedReader{
		R: body,
		N: discardLimit,
	})
	body.Close()
}

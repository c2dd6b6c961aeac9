package manifest

import (
	"context"
	"strings"
	"time"

	"github.com/ansel1/merry/v2"
	"github.com/go-resty/resty/v2"
)

var errNon200Status = merry.Sentinel("non-200 status")

// Fetcher downloads remote assets, typically presigned object storage URLs.
type Fetcher struct {
	restyClient *resty.Client
}

func NewFetcher() *Fetcher {
	client := resty.New()
	client.SetTimeout(2 * time.Minute)
	client.SetRetryCount(3)
	client.SetDisableWarn(true)

	return &Fetcher{restyClient: client}
}

// Fetch returns the body and its media type.
func (f *Fetcher) Fetch(ctx context.Context, url string) ([]byte, string, error) {
	res, err := f.restyClient.R().SetContext(ctx).Get(url)
	if err != nil {
		return nil, "", err
	}
	if res.StatusCode() != 200 {
		return nil, "", merry.Wrap(errNon200Status, merry.WithHTTPCode(res.StatusCode()), merry.WithMessagef("GET %s: %s", url, res.Status()))
	}

	mime, _, _ := strings.Cut(res.Header().Get("Content-Type"), ";")
	return res.Body(), strings.TrimSpace(mime), nil
}

func isRemote(ref string) bool {
	return strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://")
}

package feed

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/PuerkitoBio/goquery"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/tidwall/gjson"

	"github.com/sw33tLie/itemstate/internal/utils"
	"github.com/sw33tLie/itemstate/pkg/items"
	"github.com/sw33tLie/itemstate/pkg/whttp"
)

// HTTPError is returned for non-2xx responses.
type HTTPError struct {
	URL        string
	StatusCode int
	Title      string
}

func (e *HTTPError) Error() string {
	if e.Title != "" {
		return fmt.Sprintf("GET %s: status %d (%s)", e.URL, e.StatusCode, e.Title)
	}
	return fmt.Sprintf("GET %s: status %d", e.URL, e.StatusCode)
}

// ErrNoEmbeddedItems is returned when an HTML page carries no item payload.
var ErrNoEmbeddedItems = errors.New("no embedded item payload found in page")

// HTTPSource fetches items from a JSON endpoint or from a page that embeds
// its items as a JSON script.
type HTTPSource struct {
	URL     string
	Headers map[string]string
	Client  *retryablehttp.Client
}

func NewHTTPSource(url string, opts Options) (*HTTPSource, error) {
	client, err := whttp.NewClient(whttp.ClientOptions{
		Retries: opts.Retries,
		Timeout: opts.Timeout,
		Proxy:   opts.Proxy,
	})
	if err != nil {
		return nil, err
	}
	return &HTTPSource{URL: url, Headers: opts.Headers, Client: client}, nil
}

func (s *HTTPSource) Items(ctx context.Context) ([]items.Item, error) {
	client := s.Client
	if client == nil {
		var err error
		if client, err = whttp.NewClient(whttp.ClientOptions{}); err != nil {
			return nil, err
		}
	}

	req := &whttp.WHTTPReq{URL: s.URL}
	for name, value := range s.Headers {
		req.Headers = append(req.Headers, whttp.WHTTPHeader{Name: name, Value: value})
	}

	utils.Log.Debugf("[feed] fetching %s", s.URL)
	res, err := whttp.SendHTTPRequest(ctx, req, client)
	if err != nil {
		return nil, err
	}
	if res.StatusCode < 200 || res.StatusCode > 299 {
		return nil, &HTTPError{URL: s.URL, StatusCode: res.StatusCode, Title: res.HTTPTitle}
	}

	var list []items.Item
	if whttp.IsHTML(res) {
		list, err = embeddedItems(res.Body)
	} else {
		list, err = items.ParseItems(res.Body)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.URL, err)
	}
	utils.Log.Debugf("[feed] fetched %d items from %s", len(list), s.URL)
	return list, nil
}

// embeddedItems pulls the item list out of a rendered page. Next.js pages
// keep it under props.pageProps.items in #__NEXT_DATA__; other pages can mark
// a JSON script with a data-items attribute.
func embeddedItems(body []byte) ([]items.Item, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	if next := doc.Find("script#__NEXT_DATA__").First(); next.Length() > 0 {
		payload := gjson.Get(next.Contents().Text(), "props.pageProps.items")
		if payload.IsArray() {
			return items.ParseItems([]byte(payload.Raw))
		}
	}

	var (
		found    bool
		list     []items.Item
		parseErr error
	)
	doc.Find(`script[type="application/json"][data-items]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		found = true
		list, parseErr = items.ParseItems([]byte(s.Contents().Text()))
		return false
	})
	if !found {
		return nil, ErrNoEmbeddedItems
	}
	return list, parseErr
}

package whttp

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestSendHTTPRequest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Token") != "secret" {
			w.Header().Set("Content-Type", "text/html")
			w.WriteHeader(http.StatusForbidden)
			w.Write([]byte("<html><head><title>\n  Access denied\r\n</title></head><body></body></html>"))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"id":"1"}]`))
	}))
	defer srv.Close()

	client, err := NewClient(ClientOptions{})
	if err != nil {
		t.Fatal(err)
	}

	res, err := SendHTTPRequest(context.Background(), &WHTTPReq{URL: srv.URL}, client)
	if err != nil {
		t.Fatalf("SendHTTPRequest: %v", err)
	}
	if res.StatusCode != http.StatusForbidden || res.HTTPTitle != "Access denied" {
		t.Fatalf("unexpected response: status=%d title=%q", res.StatusCode, res.HTTPTitle)
	}

	res, err = SendHTTPRequest(context.Background(), &WHTTPReq{
		URL:     srv.URL,
		Headers: []WHTTPHeader{{Name: "X-Token", Value: "secret"}},
	}, client)
	if err != nil {
		t.Fatalf("SendHTTPRequest: %v", err)
	}
	if res.StatusCode != http.StatusOK || string(res.Body) != `[{"id":"1"}]` || IsHTML(res) {
		t.Fatalf("unexpected response: %+v", res)
	}
}

func TestIsHTML(t *testing.T) {
	if !IsHTML(&WHTTPRes{Body: []byte("  <!doctype html><p>")}) {
		t.Fatalf("markup body should be HTML")
	}
	if !IsHTML(&WHTTPRes{ContentType: "text/html; charset=utf-8", Body: []byte("oops")}) {
		t.Fatalf("html content type should be HTML")
	}
	if IsHTML(&WHTTPRes{ContentType: "application/json", Body: []byte("{}")}) {
		t.Fatalf("json should not be HTML")
	}
}

func TestNewClientBadProxy(t *testing.T) {
	if _, err := NewClient(ClientOptions{Proxy: "://nope"}); err == nil {
		t.Fatalf("expected invalid proxy error")
	}
}

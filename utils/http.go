package utils

import (
	"net/http"
	"time"
)

const (
	UserAgent = "jellypresence/1.0 (+https://github.com/marcus-crane/jellypresence)"
)

type UARoundtripper struct {
	RT http.RoundTripper
}

func (uart *UARoundtripper) RoundTrip(req *http.Request) (*http.Response, error) {
	req.Header.Set("User-Agent", UserAgent)
	rt := uart.RT
	if rt == nil {
		// Resolved per request so test transports swapped in late are honoured
		rt = http.DefaultTransport
	}
	return rt.RoundTrip(req)
}

func NewHTTPClient() *http.Client {
	return &http.Client{
		Timeout:   10 * time.Second,
		Transport: &UARoundtripper{},
	}
}

// Package client calls the json rpc and rest routes of a calc server.
package client

import (
	"context"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
)

const (
	defaultTimeout   = 60 // seconds
	defaultRequestID = 1

	maxReadContentLength = 1024 * 1024 * 10 // 10M
)

var (
	httpClient     *resty.Client
	httpClientOnce sync.Once
)

// InitHTTPClient init http client
func InitHTTPClient() {
	httpClientOnce.Do(func() {
		httpClient = resty.New().
			SetHeader("Accept", "application/json")
	})
}

// newRequest bounds the request by timeout seconds, call cancel once
// the response is read
func newRequest(timeout int) (*resty.Request, context.CancelFunc) {
	InitHTTPClient()
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(timeout)*time.Second)
	return httpClient.R().SetContext(ctx), cancel
}

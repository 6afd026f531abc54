package client

import (
	"encoding/json"
	"fmt"
)

// HTTPError non 200 response of a rest route
type HTTPError struct {
	StatusCode int
	Message    string
}

func (err *HTTPError) Error() string {
	return fmt.Sprintf("error response status %v: %v", err.StatusCode, err.Message)
}

type restError struct {
	Error string `json:"error"`
}

// RPCGet rpc get
func RPCGet(result interface{}, url string) error {
	return RPCGetRequest(result, url, nil, nil, defaultTimeout)
}

// RPCGetWithTimeout rpc get with timeout
func RPCGetWithTimeout(result interface{}, url string, timeout int) error {
	return RPCGetRequest(result, url, nil, nil, timeout)
}

// RPCGetRequest rpc get request
func RPCGetRequest(result interface{}, url string, params, headers map[string]string, timeout int) error {
	req, cancel := newRequest(timeout)
	defer cancel()
	resp, err := req.
		SetQueryParams(params).
		SetHeaders(headers).
		Get(url)
	if err != nil {
		return fmt.Errorf("GET request error: %w (url: %v, params: %v)", err, url, params)
	}
	return decodeRestResponse(result, resp.StatusCode(), resp.Body())
}

// RESTPost posts body as json to a rest route
func RESTPost(result interface{}, url string, body interface{}) error {
	req, cancel := newRequest(defaultTimeout)
	defer cancel()
	if body != nil {
		req.SetHeader("Content-Type", "application/json").SetBody(body)
	}
	resp, err := req.Post(url)
	if err != nil {
		return fmt.Errorf("POST request error: %w (url: %v)", err, url)
	}
	return decodeRestResponse(result, resp.StatusCode(), resp.Body())
}

func decodeRestResponse(result interface{}, status int, body []byte) error {
	if len(body) > maxReadContentLength {
		return fmt.Errorf("response too large: %v bytes", len(body))
	}
	if status != 200 {
		var re restError
		if err := json.Unmarshal(body, &re); err == nil && re.Error != "" {
			return &HTTPError{StatusCode: status, Message: re.Error}
		}
		return &HTTPError{StatusCode: status, Message: string(body)}
	}
	if err := json.Unmarshal(body, result); err != nil {
		return fmt.Errorf("unmarshal result error: %w", err)
	}
	return nil
}

package client

import (
	"encoding/json"
	"fmt"
)

// Request a json rpc request
type Request struct {
	Method  string
	Params  interface{}
	Timeout int
	ID      int
}

// NewRequest request with default timeout and id
func NewRequest(method string, params ...interface{}) *Request {
	return &Request{
		Method:  method,
		Params:  params,
		Timeout: defaultTimeout,
		ID:      defaultRequestID,
	}
}

// NewRequestWithTimeoutAndID new request
func NewRequestWithTimeoutAndID(timeout, id int, method string, params ...interface{}) *Request {
	return &Request{
		Method:  method,
		Params:  params,
		Timeout: timeout,
		ID:      id,
	}
}

// RPCPost rpc post
func RPCPost(result interface{}, url, method string, params ...interface{}) error {
	req := NewRequest(method, params...)
	return RPCPostRequest(url, req, result)
}

// RPCPostWithTimeoutAndID rpc post with timeout and id
func RPCPostWithTimeoutAndID(result interface{}, timeout, id int, url, method string, params ...interface{}) error {
	req := NewRequestWithTimeoutAndID(timeout, id, method, params...)
	return RPCPostRequest(url, req, result)
}

// RequestBody request body
type RequestBody struct {
	Version string      `json:"jsonrpc"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params"`
	ID      int         `json:"id"`
}

// JSONError error returned by the server
type JSONError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func (err *JSONError) Error() string {
	return fmt.Sprintf("json-rpc error %d, %s", err.Code, err.Message)
}

type jsonrpcResponse struct {
	Version string          `json:"jsonrpc,omitempty"`
	ID      json.RawMessage `json:"id,omitempty"`
	Error   *JSONError      `json:"error,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
}

// RPCPostRequest rpc post request
func RPCPostRequest(url string, req *Request, result interface{}) error {
	reqBody := &RequestBody{
		Version: "2.0",
		Method:  req.Method,
		Params:  req.Params,
		ID:      req.ID,
	}
	request, cancel := newRequest(req.Timeout)
	defer cancel()
	resp, err := request.
		SetHeader("Content-Type", "application/json").
		SetBody(reqBody).
		Post(url)
	if err != nil {
		return fmt.Errorf("POST request error: %w (url: %v, method: %v)", err, url, req.Method)
	}
	body := resp.Body()
	if len(body) > maxReadContentLength {
		return fmt.Errorf("response too large: %v bytes", len(body))
	}

	var jsonResp jsonrpcResponse
	if err := json.Unmarshal(body, &jsonResp); err != nil {
		if resp.StatusCode() != 200 {
			return fmt.Errorf("wrong response status %v. message: %v", resp.StatusCode(), string(body))
		}
		return fmt.Errorf("unmarshal body error: %w", err)
	}
	if jsonResp.Error != nil {
		return jsonResp.Error
	}
	if resp.StatusCode() != 200 {
		return fmt.Errorf("wrong response status %v. message: %v", resp.StatusCode(), string(body))
	}
	if err := json.Unmarshal(jsonResp.Result, result); err != nil {
		return fmt.Errorf("unmarshal result error: %w", err)
	}
	return nil
}

package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"
)

type httpRequest struct {
	method      string
	baseUrl     string
	endpoint    string
	headers     map[string]string
	queryParams map[string]string
	json        interface{}
	body        io.Reader
}

func newHttpRequest(method, baseUrl, endpoint string) *httpRequest {
	return &httpRequest{
		method:      method,
		baseUrl:     baseUrl,
		endpoint:    endpoint,
		headers:     nil,
		queryParams: nil,
		json:        nil,
		body:        nil,
	}
}

func (r *httpRequest) Header(key, value string) *httpRequest {
	if r.headers == nil {
		r.headers = make(map[string]string)
	}
	r.headers[key] = value
	return r
}

func (r *httpRequest) Auth(token string) *httpRequest {
	return r.Header("Authorization", fmt.Sprintf("Bearer %v", token))
}

func (r *httpRequest) Json(data interface{}) *httpRequest {
	r.json = data
	return r
}

func (r *httpRequest) Param(key, value string) *httpRequest {
	if r.queryParams == nil {
		r.queryParams = make(map[string]string)
	}
	r.queryParams[key] = value
	return r
}

// response body will be parsed into result, passing nil indicates that no result is returned.
func (r *httpRequest) Do(result interface{}) error {
	fullEndpoint, err := url.JoinPath(r.baseUrl, r.endpoint)
	if err != nil {
		return fmt.Errorf("error formatting url for endpoint %v: %w", r.endpoint, err)
	}

	if r.json != nil {
		body := new(bytes.Buffer)
		err := json.NewEncoder(body).Encode(r.json)
		if err != nil {
			return fmt.Errorf("error encoding json body for endpoint %v: %w", r.endpoint, err)
		}
		r.body = body
	}

	req, err := http.NewRequest(r.method, fullEndpoint, r.body)
	if err != nil {
		return fmt.Errorf("error creating %v request for endpoint %v: %w", r.method, r.endpoint, err)
	}

	if r.headers != nil {
		for k, v := range r.headers {
			req.Header.Add(k, v)
		}
	}

	if r.queryParams != nil {
		query := req.URL.Query()
		for k, v := range r.queryParams {
			query.Add(k, v)
		}
		req.URL.RawQuery = query.Encode()
	}

	start := time.Now()

	res, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("error sending %v request to endpoint %v: %w", r.method, r.endpoint, err)
	}
	defer res.Body.Close()

	slog.Debug("portfolio client", "method", r.method, "endpoint", r.endpoint, "status", res.StatusCode, "duration", time.Since(start).String())

	if res.StatusCode < 200 || res.StatusCode > 299 {
		content, err := io.ReadAll(res.Body)
		if err != nil {
			return fmt.Errorf("%v request to endpoint %v returned status %d", r.method, r.endpoint, res.StatusCode)
		}
		return fmt.Errorf("%v request to endpoint %v returned status %d, content '%v'", r.method, r.endpoint, res.StatusCode, string(content))
	}

	if result != nil {
		err := json.NewDecoder(res.Body).Decode(result)
		if err != nil {
			return fmt.Errorf("error parsing %v response from endpoint %v: %w", r.method, r.endpoint, err)
		}
	}

	return nil
}

type BaseClient struct {
	baseUrl   string
	authToken string
}

func NewBaseClient(baseUrl string, authToken string) BaseClient {
	return BaseClient{baseUrl: baseUrl, authToken: authToken}
}

func (c *BaseClient) addAuthHeaders(r *httpRequest) *httpRequest {
	if c.authToken != "" {
		return r.Auth(c.authToken)
	}
	return r
}

func (c *BaseClient) Get(endpoint string) *httpRequest {
	r := newHttpRequest("GET", c.baseUrl, endpoint)
	return c.addAuthHeaders(r)
}

func (c *BaseClient) Post(endpoint string) *httpRequest {
	r := newHttpRequest("POST", c.baseUrl, endpoint)
	return c.addAuthHeaders(r)
}

func (c *BaseClient) Put(endpoint string) *httpRequest {
	r := newHttpRequest("PUT", c.baseUrl, endpoint)
	return c.addAuthHeaders(r)
}

func (c *BaseClient) Delete(endpoint string) *httpRequest {
	r := newHttpRequest("DELETE", c.baseUrl, endpoint)
	return c.addAuthHeaders(r)
}

package tests

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"

	"github.com/go-chi/chi/v5"
)

// statusError is returned by Do for any non-2xx response so that tests can
// assert on the exact status code.
type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("request returned status %d, content '%v'", e.code, e.body)
}

func responseStatus(err error) int {
	var se *statusError
	if errors.As(err, &se) {
		return se.code
	}
	return 0
}

type httpTestRequest struct {
	api http.Handler

	method   string
	endpoint string
	headers  map[string]string
	json     interface{}
	body     io.Reader
}

func newHttpTestRequest(api http.Handler, method, endpoint string) *httpTestRequest {
	return &httpTestRequest{
		api:      api,
		method:   method,
		endpoint: endpoint,
		headers:  nil,
		json:     nil,
		body:     nil,
	}
}

func (r *httpTestRequest) Header(key, value string) *httpTestRequest {
	if r.headers == nil {
		r.headers = make(map[string]string)
	}
	r.headers[key] = value
	return r
}

func (r *httpTestRequest) Auth(token string) *httpTestRequest {
	return r.Header("Authorization", fmt.Sprintf("Bearer %v", token))
}

func (r *httpTestRequest) Json(data interface{}) *httpTestRequest {
	r.json = data
	return r
}

// response body will be parsed into result, passing nil indicates that no result is returned.
func (r *httpTestRequest) Do(result interface{}) error {
	if r.json != nil {
		body := new(bytes.Buffer)
		err := json.NewEncoder(body).Encode(r.json)
		if err != nil {
			return fmt.Errorf("error encoding json body for endpoint %v: %w", r.endpoint, err)
		}
		r.body = body
	}

	req := httptest.NewRequest(r.method, r.endpoint, r.body)
	if r.headers != nil {
		for k, v := range r.headers {
			req.Header.Add(k, v)
		}
	}

	w := httptest.NewRecorder()

	r.api.ServeHTTP(w, req)

	res := w.Result()
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return &statusError{code: res.StatusCode, body: w.Body.String()}
	}

	if result != nil {
		err := json.NewDecoder(res.Body).Decode(result)
		if err != nil {
			return fmt.Errorf("error parsing %v response from endpoint %v: %w", r.method, r.endpoint, err)
		}
	}

	return nil
}

type client struct {
	api       chi.Router
	authToken string
	userId    string
}

func (c *client) request(method, endpoint string) *httpTestRequest {
	r := newHttpTestRequest(c.api, method, endpoint)
	if c.authToken != "" {
		return r.Auth(c.authToken)
	}
	return r
}

func (c *client) Get(endpoint string) *httpTestRequest {
	return c.request("GET", endpoint)
}

func (c *client) Post(endpoint string) *httpTestRequest {
	return c.request("POST", endpoint)
}

func (c *client) Put(endpoint string) *httpTestRequest {
	return c.request("PUT", endpoint)
}

func (c *client) Delete(endpoint string) *httpTestRequest {
	return c.request("DELETE", endpoint)
}

func (c *client) login(username, password string) error {
	var res struct {
		Token string `json:"token"`
		User  struct {
			Id string `json:"id"`
		} `json:"user"`
	}

	err := c.Post("/auth/login").Json(map[string]string{
		"username": username, "password": password,
	}).Do(&res)
	if err != nil {
		return err
	}

	c.authToken = res.Token
	c.userId = res.User.Id
	return nil
}

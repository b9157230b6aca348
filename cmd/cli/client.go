package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-resty/resty/v2"
	apierrors "github.com/hirewire/backend/internal/errors"
)

var errNoToken = errors.New("HIREWIRE_TOKEN is not set; run `hirewire login` or pass --token")

// apiError is returned for any non-2xx response
type apiError struct {
	StatusCode int
	Body       apierrors.APIError
	Raw        string
}

func (e *apiError) Error() string {
	if e.Body.Message != "" {
		if e.Body.Field != "" {
			return fmt.Sprintf("[%d] %s: %s (field: %s)", e.StatusCode, e.Body.Code, e.Body.Message, e.Body.Field)
		}
		return fmt.Sprintf("[%d] %s: %s", e.StatusCode, e.Body.Code, e.Body.Message)
	}
	return fmt.Sprintf("[%d] %s", e.StatusCode, e.Raw)
}

func parseError(resp *resty.Response) error {
	e := &apiError{StatusCode: resp.StatusCode(), Raw: string(resp.Body())}
	_ = json.Unmarshal(resp.Body(), &e.Body)
	return e
}

func newClient(requireToken bool) (*resty.Client, error) {
	client := resty.New().
		SetBaseURL(apiURL+"/api/v1").
		SetTimeout(30*time.Second).
		SetHeader("User-Agent", "HireWire-CLI/1.0").
		SetHeader("Accept", "application/json")

	if !requireToken {
		return client, nil
	}
	if authToken == "" {
		authToken = os.Getenv("HIREWIRE_TOKEN")
	}
	if authToken == "" {
		return nil, errNoToken
	}
	return client.SetAuthToken(authToken), nil
}

// call performs one authenticated request and decodes a 2xx body into result
func call(method, path string, body, result interface{}) error {
	client, err := newClient(true)
	if err != nil {
		return err
	}
	req := client.R()
	if body != nil {
		req.SetBody(body)
	}
	if result != nil {
		req.SetResult(result)
	}
	resp, err := req.Execute(method, path)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	if resp.IsError() {
		return parseError(resp)
	}
	return nil
}

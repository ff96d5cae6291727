package notesdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

// url builds a complete URL by appending the path and query to the base URL.
func (c *SDKClient) url(path string, query url.Values) string {
	u := c.BaseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

// doRequest sends a request with the SDKClient's HTTP client. Whether it is
// authenticated depends on that client's transport.
func (c *SDKClient) doRequest(
	ctx context.Context,
	method, path string,
	query url.Values,
	body io.Reader,
	headers map[string]string,
) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.url(path, query), body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}

	return resp, nil
}

// call sends in as a JSON body (if non-nil) and decodes the envelope's data
// into out (if non-nil).
func (c *SDKClient) call(ctx context.Context, method, path string, query url.Values, in, out any) error {
	var (
		body    io.Reader
		headers map[string]string
	)
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(b)
		headers = map[string]string{"Content-Type": "application/json"}
	}

	resp, err := c.doRequest(ctx, method, path, query, body, headers)
	if err != nil {
		return err
	}
	return decodeEnvelope(resp, out)
}

// decodeEnvelope reads the standard {success, message, data} envelope and
// decodes data into target. Non-2xx responses become *APIError.
func decodeEnvelope(resp *http.Response, target any) error {
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return parseErrorResponse(resp, bodyBytes)
	}

	// Some endpoints answer 204 or an empty 200
	if len(bytes.TrimSpace(bodyBytes)) == 0 {
		return nil
	}

	var env envelope[json.RawMessage]
	if err := json.Unmarshal(bodyBytes, &env); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	if !env.Success {
		return &APIError{StatusCode: resp.StatusCode, Message: env.Message}
	}

	if target == nil || len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Data, target); err != nil {
		return fmt.Errorf("failed to decode response data: %w", err)
	}
	return nil
}

package ticketing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"customerSegments/business/ticketing"

	"github.com/pobyzaarif/goshortcute"
)

const defaultTimeout = 10 * time.Second

// apiClient sends JSON requests with a basic-auth header.
type apiClient struct {
	baseURL    string
	basicAuth  string
	httpClient *http.Client
}

func newAPIClient(baseURL, username, password string) apiClient {
	return apiClient{
		baseURL:    baseURL,
		basicAuth:  goshortcute.StringtoBase64Encode(username + ":" + password),
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
}

// do sends in (when non-nil) as the JSON body and decodes the response into
// out (when non-nil). A 404 maps to ticketing.ErrTicketNotFound.
func (c apiClient) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal json payload: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Add("Content-Type", "application/json")
	req.Header.Add("Accept", "application/json")
	req.Header.Add("Authorization", "Basic "+c.basicAuth)

	res, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return ticketing.ErrTicketNotFound
	}
	if res.StatusCode < 200 || res.StatusCode > 299 {
		bodyBytes, _ := io.ReadAll(io.LimitReader(res.Body, 1024))
		return fmt.Errorf("helpdesk returned negative response %d: %s", res.StatusCode, bytes.TrimSpace(bodyBytes))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode helpdesk response: %w", err)
	}
	return nil
}

package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// DefaultURL is the Fonnte send endpoint.
const DefaultURL = "https://api.fonnte.com/send"

// TransportError is returned when the gateway rejects or fails a send.
type TransportError struct {
	Target     string
	StatusCode int
	Message    string
	Err        error
}

func (e *TransportError) Error() string {
	var sb strings.Builder
	sb.WriteString("send to ")
	sb.WriteString(e.Target)
	if e.StatusCode != 0 {
		sb.WriteString(fmt.Sprintf(": http %d", e.StatusCode))
	}
	if e.Message != "" {
		sb.WriteString(": ")
		sb.WriteString(e.Message)
	}
	if e.Err != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Err.Error())
	}
	return sb.String()
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// ErrMissingAPIKey is returned before any request is made.
var ErrMissingAPIKey = errors.New("whatsapp: api key is required")

type sendRequest struct {
	Target  string `json:"target"`
	Message string `json:"message"`
}

type sendResponse struct {
	Status  *bool  `json:"status"`
	Detail  string `json:"detail"`
	Reason  string `json:"reason"`
	Message string `json:"message"`
}

func (r sendResponse) text() string {
	for _, s := range []string{r.Reason, r.Message, r.Detail} {
		if s != "" {
			return s
		}
	}
	return ""
}

// Client posts messages to a Fonnte-compatible gateway.
type Client struct {
	url  string
	http *http.Client
}

func NewClient(url string, httpClient *http.Client) *Client {
	if url == "" {
		url = DefaultURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	return &Client{url: url, http: httpClient}
}

// Send delivers one message. The api key is supplied per call so that
// concurrent users never share credentials. Send does not retry.
func (c *Client) Send(ctx context.Context, apiKey, target, message string) error {
	if strings.TrimSpace(apiKey) == "" {
		return ErrMissingAPIKey
	}

	body, err := json.Marshal(sendRequest{Target: target, Message: message})
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return &TransportError{Target: target, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return &TransportError{Target: target, StatusCode: resp.StatusCode, Err: err}
	}

	var out sendResponse
	decodeErr := json.Unmarshal(raw, &out)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := out.text()
		if decodeErr != nil || msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return &TransportError{Target: target, StatusCode: resp.StatusCode, Message: msg}
	}
	if decodeErr != nil {
		return &TransportError{Target: target, StatusCode: resp.StatusCode, Message: "malformed gateway response", Err: decodeErr}
	}
	if out.Status != nil && !*out.Status {
		return &TransportError{Target: target, StatusCode: resp.StatusCode, Message: out.text()}
	}
	return nil
}

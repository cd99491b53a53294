package chatview

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/zhouzirui/dsa-tutor/backend/internal/model/chat"
	"github.com/zhouzirui/dsa-tutor/backend/internal/model/problem"
	"github.com/zhouzirui/dsa-tutor/backend/pkg/utils"
)

// ErrStreamInterrupted is returned when the response broke off mid-stream.
var ErrStreamInterrupted = errors.New("chat stream interrupted")

// ResponseError is returned when the server answered with a non-200 status.
type ResponseError struct {
	Status  int
	Message string
}

func (e *ResponseError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("chat request failed with status %d", e.Status)
	}
	return fmt.Sprintf("chat request failed with status %d: %s", e.Status, e.Message)
}

// Client talks to the tutor HTTP API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a client for the server at baseURL. A nil httpClient
// uses http.DefaultClient.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{baseURL: strings.TrimSuffix(baseURL, "/"), httpClient: httpClient}
}

// Stream posts req and calls onChunk for every text fragment as it arrives.
// It reports whether the server flagged the last message as a code request.
func (c *Client) Stream(ctx context.Context, req chat.Request, onChunk func(string)) (bool, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return false, fmt.Errorf("encode chat request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return false, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var payload utils.ErrorResponse
		_ = json.NewDecoder(resp.Body).Decode(&payload)
		return false, &ResponseError{Status: resp.StatusCode, Message: payload.Error}
	}

	codeRequest := resp.Header.Get(chat.HeaderCodeRequest) == "true"

	buf := make([]byte, 4096)
	var pending []byte
	for {
		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			pending = append(pending, buf[:n]...)
			complete, rest := splitUTF8(pending)
			if len(complete) > 0 {
				onChunk(string(complete))
			}
			pending = append([]byte(nil), rest...)
		}
		if errors.Is(readErr, io.EOF) {
			if len(pending) > 0 {
				onChunk(string(pending))
			}
			return codeRequest, nil
		}
		if readErr != nil {
			return codeRequest, fmt.Errorf("%w: %v", ErrStreamInterrupted, readErr)
		}
	}
}

// Problems fetches the sidebar catalog.
func (c *Client) Problems(ctx context.Context) ([]problem.Entry, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/problems", nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &ResponseError{Status: resp.StatusCode}
	}

	var entries []problem.Entry
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		return nil, fmt.Errorf("decode problems: %w", err)
	}
	return entries, nil
}

// splitUTF8 separates a trailing, incomplete multi-byte sequence so chunks
// never split a rune.
func splitUTF8(b []byte) ([]byte, []byte) {
	for i := len(b) - 1; i >= 0 && i >= len(b)-utf8.UTFMax; i-- {
		if !utf8.RuneStart(b[i]) {
			continue
		}
		if utf8.FullRune(b[i:]) {
			return b, nil
		}
		return b[:i], b[i:]
	}
	return b, nil
}

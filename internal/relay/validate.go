package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const maxBodyBytes = 8 << 20

// forwarder posts entry lists to INIST.
type forwarder struct {
	url     string
	client  *http.Client
	timeout time.Duration
}

// upstreamError is a non-2xx INIST response.
type upstreamError struct {
	status int
	body   string
}

func (e *upstreamError) Error() string {
	return fmt.Sprintf("INIST error: %d", e.status)
}

// forward sends body and returns the response body of a 2xx reply.
func (f *forwarder) forward(ctx context.Context, body []byte) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling INIST: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("reading INIST response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &upstreamError{status: resp.StatusCode, body: string(data)}
	}
	if !json.Valid(data) {
		return nil, errors.New("INIST returned invalid JSON")
	}
	return data, nil
}

func (s *Server) validate(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxBodyBytes))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "reading request body: " + err.Error()})
		return
	}

	var entries []json.RawMessage
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '[' || json.Unmarshal(trimmed, &entries) != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "request body must be a JSON array"})
		return
	}

	s.logger.Debug("forwarding entries to INIST", zap.Int("entries", len(entries)))

	data, err := s.inist.forward(c.Request.Context(), body)
	if err != nil {
		var ue *upstreamError
		if errors.As(err, &ue) {
			s.logger.Warn("INIST returned an error", zap.Int("status", ue.status), zap.String("body", ue.body))
			c.JSON(ue.status, gin.H{"error": ue.Error(), "details": ue.body})
			return
		}
		s.logger.Error("INIST request failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.Data(http.StatusOK, "application/json; charset=utf-8", data)
}

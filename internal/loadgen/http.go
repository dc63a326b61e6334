package loadgen

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/timeforge/pkg/logger"
)

// HTTPClient wraps http.Client with a base URL and per-request contexts.
type HTTPClient struct {
	client  *http.Client
	baseURL string
}

// newHTTPClient creates a new HTTP client with timeout.
func newHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
	}
}

// do sends a request and returns the status and body. body may be nil.
func (c *HTTPClient) do(ctx context.Context, method, path, token string, body any, header http.Header) (int, []byte, error) {
	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		rd = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer func() { _ = resp.Body.Close() }()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("failed to read response: %w", err)
	}
	return resp.StatusCode, data, nil
}

// getJSON decodes a 200 response into out.
func (c *HTTPClient) getJSON(ctx context.Context, path, token string, out any) error {
	status, data, err := c.do(ctx, http.MethodGet, path, token, nil, nil)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return fmt.Errorf("GET %s: unexpected status %d: %s", path, status, bytes.TrimSpace(data))
	}
	return json.Unmarshal(data, out)
}

// submitEvents creates and completes events concurrently using a worker pool.
func submitEvents(ctx context.Context, config *Config, client *HTTPClient, owners []Owner, events []Event, stats *Stats) error {
	log := logger.Get()
	log.Info(ctx, "submitting events", logger.Int("events", len(events)), logger.Int("workers", config.Workers))

	var (
		successful int64
		duplicate  int64
		failed     int64
		submitted  int64
		toggled    int64
	)

	workers := minInt(config.Workers, len(events))
	indexChan := make(chan int, workers*WorkerChannelMultiplier)
	var wg sync.WaitGroup

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for index := range indexChan {
				if ctx.Err() != nil {
					return
				}
				ev := &events[index]
				token := owners[ev.Owner].Token

				result := submitSingleEvent(ctx, client, token, ev)
				atomic.AddInt64(&submitted, 1)
				switch result {
				case "success":
					atomic.AddInt64(&successful, 1)
				case "duplicate":
					atomic.AddInt64(&duplicate, 1)
				default:
					atomic.AddInt64(&failed, 1)
					continue
				}

				if getRandomFloat() < config.DuplicateRate {
					atomic.AddInt64(&submitted, 1)
					if submitSingleEvent(ctx, client, token, ev) == "duplicate" {
						atomic.AddInt64(&duplicate, 1)
					} else {
						atomic.AddInt64(&failed, 1)
					}
				}

				if ev.Complete && ev.ID != "" {
					if err := toggleEvent(ctx, client, token, ev.ID); err != nil {
						atomic.AddInt64(&failed, 1)
						if config.Verbose {
							log.Warn(ctx, "toggle failed", logger.String("id", ev.ID), logger.Error(err))
						}
						continue
					}
					atomic.AddInt64(&toggled, 1)
				}
			}
		}()
	}

	go func() {
		defer close(indexChan)
		for i := range events {
			select {
			case <-ctx.Done():
				return
			case indexChan <- i:
			}
		}
	}()

	wg.Wait()

	stats.EventsSubmitted = int(atomic.LoadInt64(&submitted))
	stats.EventsSuccessful = int(atomic.LoadInt64(&successful))
	stats.EventsDuplicate = int(atomic.LoadInt64(&duplicate))
	stats.EventsFailed = int(atomic.LoadInt64(&failed))
	stats.EventsToggled = int(atomic.LoadInt64(&toggled))

	log.Info(ctx, "event submission completed",
		logger.Int("successful", stats.EventsSuccessful),
		logger.Int("duplicate", stats.EventsDuplicate),
		logger.Int("toggled", stats.EventsToggled),
		logger.Int("failed", stats.EventsFailed))

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("submission interrupted: %w", err)
	}
	return nil
}

// submitSingleEvent creates ev and returns "success", "duplicate" or "failed".
// A successful create records the server id on ev.
func submitSingleEvent(ctx context.Context, client *HTTPClient, token string, ev *Event) string {
	header := http.Header{}
	header.Set("Idempotency-Key", ev.IdempotencyKey)

	status, body, err := client.do(ctx, http.MethodPost, "/events", token, ev.Draft, header)
	if err != nil {
		return "failed"
	}

	switch status {
	case http.StatusCreated:
		var created struct {
			ID string `json:"id"`
		}
		if err := json.Unmarshal(body, &created); err == nil {
			ev.ID = created.ID
		}
		return "success"
	case http.StatusOK:
		var ack ackResponse
		if err := json.Unmarshal(body, &ack); err == nil && ack.Duplicate {
			return "duplicate"
		}
		return "failed"
	default:
		return "failed"
	}
}

// toggleEvent flips the completed flag of id.
func toggleEvent(ctx context.Context, client *HTTPClient, token, id string) error {
	status, body, err := client.do(ctx, http.MethodPost, "/events/"+id+"/toggle", token, nil, nil)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return fmt.Errorf("unexpected status %d: %s", status, bytes.TrimSpace(body))
	}
	return nil
}

// signupOwners creates n fresh accounts and returns their tokens.
func signupOwners(ctx context.Context, client *HTTPClient, n int) ([]Owner, error) {
	owners := make([]Owner, n)
	for i := range owners {
		email := fmt.Sprintf("owner-%d-%d@%s", i, time.Now().UnixNano(), emailDomain)
		req := map[string]string{"email": email, "password": loadgenPassword, "fullName": fmt.Sprintf("Load Owner %d", i)}
		status, body, err := client.do(ctx, http.MethodPost, "/auth/signup", "", req, nil)
		if err != nil {
			return nil, fmt.Errorf("signup %s: %w", email, err)
		}
		if status != http.StatusCreated {
			return nil, fmt.Errorf("signup %s: unexpected status %d: %s", email, status, bytes.TrimSpace(body))
		}
		var sess sessionResponse
		if err := json.Unmarshal(body, &sess); err != nil {
			return nil, fmt.Errorf("signup %s: %w", email, err)
		}
		owners[i] = Owner{Email: email, Token: sess.AccessToken}
	}
	return owners, nil
}

package cloudsync

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"articleregistry/backend/internal/domain"
)

const bulkPath = "/api/articles/bulk"

var (
	ErrNotConfigured = errors.New("cloud sync url is not configured")
	ErrUnauthorized  = errors.New("cloud sync unauthorized")
)

type APIError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *APIError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("cloud sync error: %s", e.Status)
	}
	return fmt.Sprintf("cloud sync error: %s: %s", e.Status, e.Body)
}

type Options struct {
	BaseURL string
	Token   string
	Timeout time.Duration
}

// BulkResult is the remote registry's answer to a bulk upload.
type BulkResult struct {
	Success  bool `json:"success"`
	Inserted int  `json:"inserted"`
	Updated  int  `json:"updated"`
	Total    int  `json:"total"`
}

type bulkRequest struct {
	Articles []domain.Record   `json:"articles"`
	Mode     domain.ImportMode `json:"mode"`
}

// Client uploads imported records to a remote Article Registry.
type Client struct {
	http    *resty.Client
	baseURL string
	logger  *zap.Logger
}

func NewClient(opts Options, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")

	httpClient := resty.New().
		SetBaseURL(baseURL).
		SetHeader("Accept", "application/json").
		SetHeader("Content-Type", "application/json").
		SetTimeout(timeout).
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(2 * time.Second).
		AddRetryCondition(func(resp *resty.Response, err error) bool {
			if err != nil {
				return true
			}
			return resp != nil && (resp.StatusCode() == http.StatusTooManyRequests || resp.StatusCode() >= http.StatusInternalServerError)
		})

	if token := strings.TrimSpace(opts.Token); token != "" {
		httpClient.SetAuthScheme("Bearer")
		httpClient.SetAuthToken(token)
	}

	return &Client{http: httpClient, baseURL: baseURL, logger: logger.Named("cloudsync")}
}

func (c *Client) Enabled() bool {
	return c != nil && c.baseURL != ""
}

// PushArticles sends records to the remote bulk endpoint.
func (c *Client) PushArticles(ctx context.Context, records []domain.Record, mode domain.ImportMode) (BulkResult, error) {
	if !c.Enabled() {
		return BulkResult{}, ErrNotConfigured
	}
	if records == nil {
		records = []domain.Record{}
	}

	var result BulkResult
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(bulkRequest{Articles: records, Mode: mode}).
		SetResult(&result).
		Post(bulkPath)
	if err != nil {
		return BulkResult{}, fmt.Errorf("cloud sync request: %w", err)
	}
	if resp.IsError() {
		return BulkResult{}, apiErrorFromResponse(resp)
	}

	c.logger.Info("articles pushed",
		zap.String("mode", string(mode)),
		zap.Int("sent", len(records)),
		zap.Int("inserted", result.Inserted),
		zap.Int("updated", result.Updated),
	)
	return result, nil
}

func apiErrorFromResponse(resp *resty.Response) error {
	apiErr := &APIError{
		StatusCode: resp.StatusCode(),
		Status:     resp.Status(),
		Body:       strings.TrimSpace(resp.String()),
	}
	switch resp.StatusCode() {
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: %s", ErrUnauthorized, apiErr.Error())
	default:
		return apiErr
	}
}

package aliyun

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"workshop-backend/domain"
)

const (
	timestampLayout  = "2006-01-02T15:04:05Z"
	signatureVersion = "1.0"
	defaultTimeout   = 10 * time.Second
)

// AccessKey is a RAM access key pair.
type AccessKey struct {
	ID     string
	Secret string
}

// APIError is a definitive failure reported by the RPC authority. It is a
// server-side failure: the request was built from our own keys and config.
type APIError struct {
	Action     string `json:"-"`
	HTTPStatus int    `json:"-"`
	Code       string `json:"Code"`
	Message    string `json:"Message"`
	RequestID  string `json:"RequestId"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s failed: status %d, code %s: %s",
		domain.ErrUpstreamFailed, e.Action, e.HTTPStatus, e.Code, e.Message)
}

func (e *APIError) Unwrap() error { return domain.ErrUpstreamFailed }

// Client issues signed GET calls against one RPC endpoint.
type Client struct {
	baseURL string
	version string
	key     AccessKey
	alg     Algorithm
	http    *resty.Client
	now     func() time.Time
	nonce   func() string
}

// NewClient creates a client for https://{endpoint}/ using API version `version`.
func NewClient(endpoint, version string, key AccessKey) *Client {
	return &Client{
		baseURL: "https://" + strings.TrimSuffix(endpoint, "/"),
		version: version,
		key:     key,
		alg:     HMACSHA1,
		http:    resty.New().SetTimeout(defaultTimeout),
		now:     time.Now,
		nonce:   uuid.NewString,
	}
}

// SetBaseURL overrides the scheme and host (for testing).
func (c *Client) SetBaseURL(u string) { c.baseURL = strings.TrimSuffix(u, "/") }

// SetHTTPClient replaces the underlying transport (for testing).
func (c *Client) SetHTTPClient(hc *http.Client) { c.http = resty.NewWithClient(hc) }

// SetNow overrides the time function (for testing).
func (c *Client) SetNow(fn func() time.Time) { c.now = fn }

// SetNonce overrides the nonce generator (for testing).
func (c *Client) SetNonce(fn func() string) { c.nonce = fn }

// Configured reports whether the access key is complete.
func (c *Client) Configured() bool {
	return c.key.ID != "" && c.key.Secret != ""
}

// commonParams returns the parameters every signed call carries. Nonce and
// timestamp are generated per call, so a retry is always a fresh signature.
func (c *Client) commonParams(action string) map[string]string {
	return map[string]string{
		"AccessKeyId":      c.key.ID,
		"Action":           action,
		"Format":           "JSON",
		"SignatureMethod":  string(c.alg),
		"SignatureNonce":   c.nonce(),
		"SignatureVersion": signatureVersion,
		"Timestamp":        c.now().UTC().Format(timestampLayout),
		"Version":          c.version,
	}
}

// BuildURL assembles the signed request URL for action and params.
func (c *Client) BuildURL(action string, params map[string]string) (string, error) {
	if !c.Configured() {
		return "", fmt.Errorf("%w: access key for %s is not configured", domain.ErrConfigMissing, action)
	}

	all := c.commonParams(action)
	for k, v := range params {
		all[k] = v
	}

	query, err := SignedQuery(http.MethodGet, all, c.key.Secret, c.alg)
	if err != nil {
		return "", err
	}
	return c.baseURL + "/?" + query, nil
}

// Call signs and sends action, decoding a successful body into out.
func (c *Client) Call(ctx context.Context, action string, params map[string]string, out any) error {
	reqURL, err := c.BuildURL(action, params)
	if err != nil {
		return err
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Accept", "application/json").
		Get(reqURL)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", domain.ErrUpstreamUnreachable, action, err)
	}

	if !resp.IsSuccess() {
		apiErr := &APIError{Action: action, HTTPStatus: resp.StatusCode()}
		_ = json.Unmarshal(resp.Body(), apiErr)
		log.Warn().
			Str("action", action).
			Int("status", apiErr.HTTPStatus).
			Str("code", apiErr.Code).
			Str("request_id", apiErr.RequestID).
			Msg("aliyun call rejected")
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return fmt.Errorf("%w: %s: invalid JSON: %v", domain.ErrUpstreamFailed, action, err)
	}
	return nil
}

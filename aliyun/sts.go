package aliyun

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"workshop-backend/config"
	"workshop-backend/domain"
)

const stsAPIVersion = "2015-04-01"

// Credentials are temporary STS credentials.
type Credentials struct {
	AccessKeyID     string `json:"AccessKeyId"`
	AccessKeySecret string `json:"AccessKeySecret"`
	SecurityToken   string `json:"SecurityToken"`
	Expiration      string `json:"Expiration"`
}

type assumeRoleResponse struct {
	RequestID   string       `json:"RequestId"`
	Credentials *Credentials `json:"Credentials"`
}

// STSClient calls the AssumeRole action.
type STSClient struct {
	rpc *Client
}

// NewSTSClient builds an STS client for the region in cfg.
func NewSTSClient(cfg config.OSSConfig) *STSClient {
	endpoint := fmt.Sprintf("sts.%s.aliyuncs.com", cfg.Region)
	return &STSClient{
		rpc: NewClient(endpoint, stsAPIVersion, AccessKey{ID: cfg.AccessKeyID, Secret: cfg.AccessKeySecret}),
	}
}

// RPC exposes the underlying client (for testing).
func (s *STSClient) RPC() *Client { return s.rpc }

// AssumeRole exchanges the RAM key for temporary credentials of roleArn.
func (s *STSClient) AssumeRole(ctx context.Context, roleArn, sessionName string, duration time.Duration) (*Credentials, error) {
	if roleArn == "" {
		return nil, fmt.Errorf("%w: role ARN is not configured", domain.ErrConfigMissing)
	}

	var out assumeRoleResponse
	if err := s.rpc.Call(ctx, "AssumeRole", map[string]string{
		"RoleArn":         roleArn,
		"RoleSessionName": sessionName,
		"DurationSeconds": strconv.Itoa(int(duration / time.Second)),
	}, &out); err != nil {
		return nil, err
	}

	if out.Credentials == nil || out.Credentials.AccessKeyID == "" {
		return nil, fmt.Errorf("%w: AssumeRole response without credentials (request %s)", domain.ErrUpstreamFailed, out.RequestID)
	}
	return out.Credentials, nil
}

package aliyun

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"workshop-backend/config"
	"workshop-backend/domain"
	"workshop-backend/utils"
)

const smsAPIVersion = "2017-05-25"

// SendResult identifies an accepted SMS.
type SendResult struct {
	RequestID string `json:"requestId"`
	BizID     string `json:"bizId,omitempty"`
}

type sendSMSResponse struct {
	Code      string `json:"Code"`
	Message   string `json:"Message"`
	RequestID string `json:"RequestId"`
	BizID     string `json:"BizId"`
}

// SMSClient sends template messages through the SendSms action.
type SMSClient struct {
	rpc          *Client
	signName     string
	templateCode string
}

// NewSMSClient builds an SMS client from its config section.
func NewSMSClient(cfg config.SMSConfig) *SMSClient {
	return &SMSClient{
		rpc:          NewClient(cfg.Endpoint, smsAPIVersion, AccessKey{ID: cfg.AccessKeyID, Secret: cfg.AccessKeySecret}),
		signName:     cfg.SignName,
		templateCode: cfg.TemplateCode,
	}
}

// RPC exposes the underlying client (for testing).
func (s *SMSClient) RPC() *Client { return s.rpc }

// Send delivers the template to phone. A mainland "+86" prefix is stripped.
func (s *SMSClient) Send(ctx context.Context, phone string, templateParam map[string]string) (*SendResult, error) {
	phone = utils.NationalCNPhone(phone)
	if phone == "" {
		return nil, fmt.Errorf("%w: phone is required", domain.ErrInvalidRequest)
	}

	tp, err := json.Marshal(templateParam)
	if err != nil {
		return nil, fmt.Errorf("encoding template param: %w", err)
	}

	var out sendSMSResponse
	if err := s.rpc.Call(ctx, "SendSms", map[string]string{
		"PhoneNumbers":  phone,
		"SignName":      s.signName,
		"TemplateCode":  s.templateCode,
		"TemplateParam": string(tp),
	}, &out); err != nil {
		return nil, err
	}

	if out.Code != "OK" {
		return nil, &APIError{
			Action:     "SendSms",
			HTTPStatus: http.StatusOK,
			Code:       out.Code,
			Message:    out.Message,
			RequestID:  out.RequestID,
		}
	}
	return &SendResult{RequestID: out.RequestID, BizID: out.BizID}, nil
}

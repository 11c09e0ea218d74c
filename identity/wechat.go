package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"

	"workshop-backend/config"
	"workshop-backend/domain"
	"workshop-backend/session"
)

// WeChatSession is the result of a jscode2session exchange.
type WeChatSession struct {
	OpenID     string `json:"openid"`
	SessionKey string `json:"session_key"`
	UnionID    string `json:"unionid"`
	ErrCode    int    `json:"errcode"`
	ErrMsg     string `json:"errmsg"`
}

// WeChatClient exchanges mini-program login codes for openids.
type WeChatClient struct {
	appID     string
	appSecret string
	baseURL   string
	http      *resty.Client
}

// NewWeChatClient creates a client for cfg.
func NewWeChatClient(cfg config.WeChatConfig) *WeChatClient {
	base := cfg.BaseURL
	if base == "" {
		base = "https://api.weixin.qq.com"
	}
	return &WeChatClient{
		appID:     cfg.AppID,
		appSecret: cfg.AppSecret,
		baseURL:   strings.TrimSuffix(base, "/"),
		http:      resty.New().SetTimeout(10 * time.Second),
	}
}

// Secret returns the app secret, which also keys the derived passwords.
func (w *WeChatClient) Secret() string { return w.appSecret }

// Exchange trades a wx.login() code for the user's openid.
func (w *WeChatClient) Exchange(ctx context.Context, code string) (*WeChatSession, error) {
	if w.appID == "" || w.appSecret == "" {
		return nil, fmt.Errorf("%w: WeChat app id/secret not configured", domain.ErrConfigMissing)
	}
	if strings.TrimSpace(code) == "" {
		return nil, fmt.Errorf("%w: missing code", domain.ErrInvalidRequest)
	}

	resp, err := w.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"appid":      w.appID,
			"secret":     w.appSecret,
			"js_code":    code,
			"grant_type": "authorization_code",
		}).
		Get(w.baseURL + "/sns/jscode2session")
	if err != nil {
		return nil, fmt.Errorf("%w: jscode2session: %v", domain.ErrUpstreamUnreachable, err)
	}
	if !resp.IsSuccess() {
		return nil, fmt.Errorf("%w: jscode2session: HTTP %d", domain.ErrUpstreamFailed, resp.StatusCode())
	}

	// WeChat answers with text/plain, so the body is decoded by hand.
	var out WeChatSession
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return nil, fmt.Errorf("%w: jscode2session: invalid JSON: %v", domain.ErrUpstreamFailed, err)
	}
	if out.ErrCode != 0 {
		log.Warn().Int("errcode", out.ErrCode).Str("errmsg", out.ErrMsg).Msg("wechat code exchange rejected")
		return nil, fmt.Errorf("%w: wechat errcode %d: %s", domain.ErrUpstreamRejected, out.ErrCode, out.ErrMsg)
	}
	if out.OpenID == "" {
		return nil, fmt.Errorf("%w: jscode2session returned no openid", domain.ErrUpstreamFailed)
	}
	return &out, nil
}

// CodeExchanger is satisfied by *WeChatClient.
type CodeExchanger interface {
	Exchange(ctx context.Context, code string) (*WeChatSession, error)
	Secret() string
}

// LoginResult is a signed-in session plus the provider subject it came from.
type LoginResult struct {
	Session *session.Session
	OpenID  string
}

// WeChatLogin chains code exchange, identity derivation and federation.
type WeChatLogin struct {
	exchanger       CodeExchanger
	federator       *Federator
	syntheticDomain string
}

func NewWeChatLogin(exchanger CodeExchanger, federator *Federator, syntheticDomain string) *WeChatLogin {
	return &WeChatLogin{exchanger: exchanger, federator: federator, syntheticDomain: syntheticDomain}
}

func (l *WeChatLogin) Login(ctx context.Context, code string) (*LoginResult, error) {
	// Checked before the exchange so a missing secret never costs a round trip.
	if l.exchanger.Secret() == "" {
		return nil, fmt.Errorf("%w: WeChat app secret not configured", domain.ErrConfigMissing)
	}
	ws, err := l.exchanger.Exchange(ctx, code)
	if err != nil {
		return nil, err
	}

	id, err := Derive(ProviderWeChat, ws.OpenID, l.exchanger.Secret(), l.syntheticDomain)
	if err != nil {
		return nil, err
	}

	sess, err := l.federator.Login(ctx, id, Profile{
		Metadata: map[string]any{
			"wechat_openid": ws.OpenID,
			"full_name":     "WeChat User",
			"avatar_url":    "",
		},
	})
	if err != nil {
		return nil, err
	}
	return &LoginResult{Session: sess, OpenID: ws.OpenID}, nil
}

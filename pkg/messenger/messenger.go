package messenger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"creatorpay-platform/pkg/config"
	"creatorpay-platform/pkg/errutil"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Chat is one conversation known to the authorized messaging account.
type Chat struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Type  string `json:"type"`
}

type InviteOptions struct {
	ExpiresAt   time.Time
	MemberLimit int
}

// Session is a live connection to the messaging platform. It is opened,
// used and closed within the scope of a single request; it is never pooled.
type Session interface {
	ListChats(ctx context.Context) ([]Chat, error)
	CreateInviteLink(ctx context.Context, chatID string, opts InviteOptions) (string, error)
	BanMember(ctx context.Context, chatID, userID string) error
	Close() error
}

// Dialer opens authorized sessions on demand.
type Dialer interface {
	Dial(ctx context.Context) (Session, error)
}

var Module = fx.Module("messenger",
	fx.Provide(NewHTTPDialer),
)

type httpDialer struct {
	baseURL string
	token   string
	timeout time.Duration
}

func NewHTTPDialer(cfg *config.Config) Dialer {
	timeout := cfg.Messenger.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}

	return &httpDialer{
		baseURL: cfg.Messenger.BaseURL,
		token:   cfg.Messenger.Token,
		timeout: timeout,
	}
}

func (d *httpDialer) Dial(ctx context.Context) (Session, error) {
	// Each session gets its own transport so Close tears the connection down
	// rather than returning it to a shared pool.
	transport := &http.Transport{}
	sess := &httpSession{
		baseURL:   d.baseURL,
		token:     d.token,
		transport: transport,
		httpClient: &http.Client{
			Timeout:   d.timeout,
			Transport: transport,
		},
	}

	if err := sess.authorize(ctx); err != nil {
		sess.Close()
		return nil, err
	}

	return sess, nil
}

type httpSession struct {
	baseURL    string
	token      string
	transport  *http.Transport
	httpClient *http.Client
}

func (s *httpSession) authorize(ctx context.Context) error {
	var me struct {
		ID string `json:"id"`
	}
	if err := s.call(ctx, http.MethodGet, "getMe", nil, &me); err != nil {
		return err
	}

	zap.L().Debug("messenger session authorized", zap.String("account_id", me.ID))
	return nil
}

func (s *httpSession) ListChats(ctx context.Context) ([]Chat, error) {
	var payload struct {
		Chats []Chat `json:"chats"`
	}
	if err := s.call(ctx, http.MethodGet, "getChats", nil, &payload); err != nil {
		return nil, err
	}
	return payload.Chats, nil
}

func (s *httpSession) CreateInviteLink(ctx context.Context, chatID string, opts InviteOptions) (string, error) {
	req := map[string]any{
		"chat_id": chatID,
	}
	if !opts.ExpiresAt.IsZero() {
		req["expire_date"] = opts.ExpiresAt.Unix()
	}
	if opts.MemberLimit > 0 {
		req["member_limit"] = opts.MemberLimit
	}

	var payload struct {
		InviteLink string `json:"invite_link"`
	}
	if err := s.call(ctx, http.MethodPost, "createChatInviteLink", req, &payload); err != nil {
		return "", err
	}
	if payload.InviteLink == "" {
		return "", errutil.UpstreamFailure("messenger returned empty invite link")
	}

	return payload.InviteLink, nil
}

func (s *httpSession) BanMember(ctx context.Context, chatID, userID string) error {
	req := map[string]any{
		"chat_id": chatID,
		"user_id": userID,
	}
	return s.call(ctx, http.MethodPost, "banChatMember", req, nil)
}

func (s *httpSession) Close() error {
	s.transport.CloseIdleConnections()
	return nil
}

func (s *httpSession) call(ctx context.Context, method, op string, body any, out any) error {
	var reader *bytes.Buffer
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return errutil.Internal("failed to encode messenger request", errutil.WithErr(err))
		}
		reader = bytes.NewBuffer(encoded)
	} else {
		reader = bytes.NewBuffer(nil)
	}

	endpoint := fmt.Sprintf("%s/bot%s/%s", s.baseURL, s.token, op)
	httpReq, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return errutil.Internal("failed to build messenger request", errutil.WithErr(err))
	}
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.httpClient.Do(httpReq)
	if err != nil {
		return errutil.UpstreamFailure("messenger request failed", errutil.WithErr(err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		zap.L().Error("messenger returned unexpected status",
			zap.String("op", op),
			zap.Int("status", resp.StatusCode),
		)
		return errutil.UpstreamFailure(fmt.Sprintf("messenger returned status %d", resp.StatusCode))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errutil.UpstreamFailure("failed to decode messenger response", errutil.WithErr(err))
	}

	return nil
}

package channel

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"creatorpay-platform/pkg/messenger"
)

type sessionMock struct {
	listChatsFn  func(ctx context.Context) ([]messenger.Chat, error)
	createLinkFn func(ctx context.Context, chatID string, opts messenger.InviteOptions) (string, error)
	banMemberFn  func(ctx context.Context, chatID, userID string) error
	closed       bool
}

func (m *sessionMock) ListChats(ctx context.Context) ([]messenger.Chat, error) {
	if m.listChatsFn != nil {
		return m.listChatsFn(ctx)
	}
	return nil, nil
}

func (m *sessionMock) CreateInviteLink(ctx context.Context, chatID string, opts messenger.InviteOptions) (string, error) {
	if m.createLinkFn != nil {
		return m.createLinkFn(ctx, chatID, opts)
	}
	return "", nil
}

func (m *sessionMock) BanMember(ctx context.Context, chatID, userID string) error {
	if m.banMemberFn != nil {
		return m.banMemberFn(ctx, chatID, userID)
	}
	return nil
}

func (m *sessionMock) Close() error {
	m.closed = true
	return nil
}

type dialerMock struct {
	session *sessionMock
}

func (d *dialerMock) Dial(ctx context.Context) (messenger.Session, error) {
	return d.session, nil
}

func TestIssueInviteExactMatch(t *testing.T) {
	sess := &sessionMock{
		listChatsFn: func(context.Context) ([]messenger.Chat, error) {
			return []messenger.Chat{{ID: "99", Title: "other"}, {ID: "12345", Title: "mine"}}, nil
		},
		createLinkFn: func(_ context.Context, chatID string, opts messenger.InviteOptions) (string, error) {
			require.Equal(t, "12345", chatID)
			require.Equal(t, 1, opts.MemberLimit)
			require.WithinDuration(t, time.Now().Add(24*time.Hour), opts.ExpiresAt, time.Minute)
			return "https://invite/abc", nil
		},
	}
	svc := NewAccessService(AccessServiceParams{Dialer: &dialerMock{session: sess}})

	link, err := svc.IssueInvite(context.Background(), "12345")
	require.NoError(t, err)
	require.Equal(t, "https://invite/abc", link)
	require.True(t, sess.closed)
}

func TestIssueInvitePrefixedMatch(t *testing.T) {
	sess := &sessionMock{
		listChatsFn: func(context.Context) ([]messenger.Chat, error) {
			return []messenger.Chat{{ID: "-10012345"}}, nil
		},
		createLinkFn: func(_ context.Context, chatID string, _ messenger.InviteOptions) (string, error) {
			require.Equal(t, "-10012345", chatID)
			return "https://invite/abc", nil
		},
	}
	svc := NewAccessService(AccessServiceParams{Dialer: &dialerMock{session: sess}})

	link, err := svc.IssueInvite(context.Background(), "12345")
	require.NoError(t, err)
	require.Equal(t, "https://invite/abc", link)
}

func TestIssueInviteChannelNotFound(t *testing.T) {
	sess := &sessionMock{
		listChatsFn: func(context.Context) ([]messenger.Chat, error) {
			return []messenger.Chat{{ID: "99"}}, nil
		},
	}
	svc := NewAccessService(AccessServiceParams{Dialer: &dialerMock{session: sess}})

	_, err := svc.IssueInvite(context.Background(), "12345")
	require.Error(t, err)
	require.True(t, sess.closed)
}

func TestRevokeAccess(t *testing.T) {
	var banned []string
	sess := &sessionMock{
		listChatsFn: func(context.Context) ([]messenger.Chat, error) {
			return []messenger.Chat{{ID: "12345"}}, nil
		},
		banMemberFn: func(_ context.Context, chatID, userID string) error {
			banned = append(banned, chatID+":"+userID)
			return nil
		},
	}
	svc := NewAccessService(AccessServiceParams{Dialer: &dialerMock{session: sess}})

	require.NoError(t, svc.RevokeAccess(context.Background(), "12345", "user-9"))
	require.Equal(t, []string{"12345:user-9"}, banned)
	require.True(t, sess.closed)
}

package channel

import (
	"context"
	"strings"
	"time"

	"creatorpay-platform/pkg/errutil"
	"creatorpay-platform/pkg/messenger"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

// AccessService talks to the messaging platform on behalf of the channel
// owner. Every operation dials a fresh session and closes it before
// returning; sessions are never reused across requests.
type AccessService struct {
	dialer messenger.Dialer
}

type AccessServiceParams struct {
	fx.In
	Dialer messenger.Dialer
}

func NewAccessService(p AccessServiceParams) *AccessService {
	return &AccessService{dialer: p.Dialer}
}

// IssueInvite locates the channel among the owner account's chats and mints
// a single-use invite link valid for 24 hours.
func (a *AccessService) IssueInvite(ctx context.Context, externalID string) (string, error) {
	sess, err := a.dialer.Dial(ctx)
	if err != nil {
		return "", err
	}
	defer sess.Close()

	chat, err := findChat(ctx, sess, externalID)
	if err != nil {
		return "", err
	}

	link, err := sess.CreateInviteLink(ctx, chat.ID, messenger.InviteOptions{
		ExpiresAt:   time.Now().Add(24 * time.Hour),
		MemberLimit: 1,
	})
	if err != nil {
		return "", err
	}

	zap.L().Info("invite link issued",
		zap.String("channel_external_id", externalID),
		zap.String("chat_id", chat.ID),
	)

	return link, nil
}

// RevokeAccess bans a member from the channel. Used by the expiry sweep.
func (a *AccessService) RevokeAccess(ctx context.Context, externalID, memberID string) error {
	sess, err := a.dialer.Dial(ctx)
	if err != nil {
		return err
	}
	defer sess.Close()

	chat, err := findChat(ctx, sess, externalID)
	if err != nil {
		return err
	}

	return sess.BanMember(ctx, chat.ID, memberID)
}

// findChat matches the channel's external id against the account's chats,
// either exactly or in the "-100"-prefixed supergroup form.
func findChat(ctx context.Context, sess messenger.Session, externalID string) (*messenger.Chat, error) {
	chats, err := sess.ListChats(ctx)
	if err != nil {
		return nil, err
	}

	for i := range chats {
		if chats[i].ID == externalID || chats[i].ID == "-100"+strings.TrimPrefix(externalID, "-100") {
			return &chats[i], nil
		}
	}

	return nil, errutil.NotFound("channel not found among account chats")
}

package notify

import (
	"context"
	"fmt"
	"time"

	"rsvpd/src-server/attendance"

	"github.com/bwmarrin/discordgo"
)

type TitleLookup interface {
	Title(ctx context.Context, eventID string) string
}

// Discord sends notifications as direct messages. Confirmation prompts carry
// Confirm and Bail out buttons.
type Discord struct {
	session *discordgo.Session
	titles  TitleLookup
	latency chan float64
}

// NewDiscord builds the notifier. latency may be nil.
func NewDiscord(session *discordgo.Session, titles TitleLookup, latency chan float64) *Discord {
	return &Discord{
		session: session,
		titles:  titles,
		latency: latency,
	}
}

func (d *Discord) Notify(ctx context.Context, userID string, notificationType attendance.NotificationType, payload map[string]string) error {
	startTimer := time.Now()

	channel, err := d.session.UserChannelCreate(userID, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("(*Discord).Notify: can't open DM channel: %w", err)
	}

	msg := &discordgo.MessageSend{
		Content: Message(notificationType, d.titles.Title(ctx, payload["event_id"]), payload),
	}
	if recordID := payload["record_id"]; notificationType == attendance.NOTIFICATION_CONFIRMATION_REQUESTED && recordID != "" {
		msg.Components = []discordgo.MessageComponent{
			discordgo.ActionsRow{
				Components: []discordgo.MessageComponent{
					discordgo.Button{
						Label:    "I'm coming",
						Style:    discordgo.SuccessButton,
						CustomID: CONFIRM_CUSTOM_ID_PREFIX + recordID,
					},
					discordgo.Button{
						Label:    "Bail out",
						Style:    discordgo.DangerButton,
						CustomID: BAIL_OUT_CUSTOM_ID_PREFIX + recordID,
					},
				},
			},
		}
	}

	if _, err := d.session.ChannelMessageSendComplex(channel.ID, msg, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("(*Discord).Notify: can't send message: %w", err)
	}

	if d.latency != nil {
		select {
		case d.latency <- float64(time.Since(startTimer).Microseconds()):
		default:
		}
	}
	return nil
}

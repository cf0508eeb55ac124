package rsvp_handler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"rsvpd/src-server/attendance"
	"rsvpd/src-server/model"
	"rsvpd/src-server/utils"

	"github.com/bwmarrin/discordgo"
)

func status(as *utils.AppState, cmdInfo *[]*discordgo.ApplicationCommandOption, cmdHandler map[string]func(s *discordgo.Session, i *discordgo.InteractionCreate) error) {
	id := "status"
	*cmdInfo = append(*cmdInfo, &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionSubCommand,
		Name:        id,
		Description: "Show who is going to an event and where you stand.",
		Options: []*discordgo.ApplicationCommandOption{
			eventIDOption(),
		},
	})
	cmdHandler[id] = statusHandler(as)
}

func statusHandler(as *utils.AppState) func(s *discordgo.Session, i *discordgo.InteractionCreate) error {
	return func(s *discordgo.Session, i *discordgo.InteractionCreate) error {
		const caller = "statusHandler"

		if !utils.InteractRespDeferHidden(as, s, i, caller) {
			return nil
		}
		eventID := stringOption(subcommandOptions(i), "event-id")
		userID, _, _ := utils.InteractUserID(i)

		// #region - read the roster and the caller's record
		startTimer := time.Now()
		roster, err := as.Engine.EventRoster(context.Background(), eventID)
		if err != nil {
			utils.InteractRespEdit(s, i, caller, utils.AttendanceErrorMessage(err))
			return fmt.Errorf("statusHandler: can't get roster: %w", err)
		}
		record, err := as.Engine.GetRecord(context.Background(), eventID, userID)
		if err != nil && !errors.Is(err, attendance.ErrNotFound) {
			utils.InteractRespEdit(s, i, caller, utils.AttendanceErrorMessage(err))
			return fmt.Errorf("statusHandler: can't get record: %w", err)
		}
		utils.ObserveSince(as.MetricChans.DatabaseRead, startTimer)
		// #endregion

		embed := &discordgo.MessageEmbed{
			Title: eventTitle(as, eventID),
			Footer: &discordgo.MessageEmbedFooter{
				Text: eventID,
			},
			Fields: []*discordgo.MessageEmbedField{
				{
					Name:   "Going",
					Value:  goingSummary(roster),
					Inline: true,
				},
				{
					Name:   "Waitlist",
					Value:  fmt.Sprintf("%d", len(roster.Waitlist)),
					Inline: true,
				},
				{
					Name:   "Interested",
					Value:  fmt.Sprintf("%d", roster.Interested),
					Inline: true,
				},
				{
					Name:  "You",
					Value: recordSummary(record),
				},
			},
		}

		if mention := as.Events.ChannelMention(context.Background(), eventID); mention != "" {
			embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
				Name:  "Channel",
				Value: mention,
			})
		}

		startTimer = time.Now()
		if _, err := s.InteractionResponseEdit(i.Interaction, &discordgo.WebhookEdit{
			Embeds: &[]*discordgo.MessageEmbed{embed},
		}); err != nil {
			return fmt.Errorf("statusHandler: can't send roster: %w", err)
		}
		utils.ObserveSince(as.MetricChans.DiscordSendMessage, startTimer)
		return nil
	}
}

func goingSummary(roster *attendance.Roster) string {
	if !roster.Limited {
		return fmt.Sprintf("%d", len(roster.Going))
	}
	return fmt.Sprintf("%d / %d", len(roster.Going), roster.Capacity)
}

func recordSummary(record *model.AttendanceRecord) string {
	if record == nil {
		return "No RSVP yet."
	}
	lines := []string{utils.Label(string(record.Status))}
	if record.Status == model.ATTENDANCE_STATUS_WAITLISTED {
		lines[0] += fmt.Sprintf(" (#%d)", record.WaitlistPosition)
	}
	if record.AttendanceMode != "" {
		lines = append(lines, "Mode: "+utils.Label(string(record.AttendanceMode)))
	}
	if record.RequestedMode != "" {
		lines = append(lines, "Mode once promoted: "+utils.Label(string(record.RequestedMode)))
	}
	if record.ConfirmationStatus != "" {
		lines = append(lines, "Confirmation: "+utils.Label(string(record.ConfirmationStatus)))
	}
	lines = append(lines, fmt.Sprintf("Record: `%s`", record.ID))
	return strings.Join(lines, "\n")
}

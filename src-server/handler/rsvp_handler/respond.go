package rsvp_handler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"rsvpd/src-server/metric"
	"rsvpd/src-server/model"
	"rsvpd/src-server/notify"
	"rsvpd/src-server/utils"

	"github.com/bwmarrin/discordgo"
)

// respond registers one of going, interested and not-going.
func respond(
	as *utils.AppState,
	cmdInfo *[]*discordgo.ApplicationCommandOption,
	cmdHandler map[string]func(s *discordgo.Session, i *discordgo.InteractionCreate) error,
	id string,
	desiredStatus model.AttendanceStatus,
) {
	options := []*discordgo.ApplicationCommandOption{eventIDOption()}
	if desiredStatus != model.ATTENDANCE_STATUS_NOT_GOING {
		options = append(options, &discordgo.ApplicationCommandOption{
			Type:        discordgo.ApplicationCommandOptionString,
			Name:        "mode",
			Description: "How you will attend, for events that are both in person and online.",
			Choices: []*discordgo.ApplicationCommandOptionChoice{
				{Name: "In person", Value: string(model.ATTENDANCE_MODE_IN_PERSON)},
				{Name: "Online", Value: string(model.ATTENDANCE_MODE_ONLINE)},
			},
		})
	}
	*cmdInfo = append(*cmdInfo, &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionSubCommand,
		Name:        id,
		Description: fmt.Sprintf("Mark yourself as %s for an event.", utils.Label(string(desiredStatus))),
		Options:     options,
	})
	cmdHandler[id] = respondHandler(as, desiredStatus)
}

func respondHandler(as *utils.AppState, desiredStatus model.AttendanceStatus) func(s *discordgo.Session, i *discordgo.InteractionCreate) error {
	return func(s *discordgo.Session, i *discordgo.InteractionCreate) error {
		const caller = "respondHandler"

		// #region - respond to the original request
		if !utils.InteractRespDeferHidden(as, s, i, caller) {
			return nil
		}
		// #endregion

		// #region - get the content
		optionMap := subcommandOptions(i)
		eventID := stringOption(optionMap, "event-id")
		mode := model.AttendanceMode(stringOption(optionMap, "mode"))
		userID := ensureUser(as, s, i, caller)
		if userID == "" {
			return nil
		}
		// #endregion

		// #region - apply the rsvp
		startTimer := time.Now()
		outcome, err := as.Engine.ApplyRsvp(context.Background(), eventID, userID, desiredStatus, mode)
		if err != nil {
			utils.InteractRespEdit(s, i, caller, utils.AttendanceErrorMessage(err))
			return fmt.Errorf("respondHandler: can't apply rsvp: %w", err)
		}
		utils.ObserveSince(as.MetricChans.DatabaseWrite, startTimer)
		metric.ObserveOutcome(outcome)
		notify.DispatchOutcome(as.Notifier, as.Config.GetNotifyTimeout(), outcome)
		// #endregion

		title := eventTitle(as, eventID)
		var msg string
		switch {
		case outcome.Waitlisted():
			msg = fmt.Sprintf("**%s** is full. You are number %d on the waitlist and will be moved up automatically.", title, outcome.Position)
		default:
			msg = fmt.Sprintf("You are now **%s** for **%s**.", utils.Label(string(outcome.Record.Status)), title)
			if outcome.Record.AttendanceMode != "" {
				msg += fmt.Sprintf(" Mode: %s.", utils.Label(string(outcome.Record.AttendanceMode)))
			}
		}
		utils.InteractRespEdit(s, i, caller, msg)

		slog.Debug("rsvp applied",
			"event_id", eventID,
			"user_id", userID,
			"status", outcome.Record.Status,
			"promoted", len(outcome.Promoted))
		return nil
	}
}

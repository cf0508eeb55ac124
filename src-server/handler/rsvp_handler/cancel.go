package rsvp_handler

import (
	"context"
	"fmt"
	"time"

	"rsvpd/src-server/metric"
	"rsvpd/src-server/notify"
	"rsvpd/src-server/utils"

	"github.com/bwmarrin/discordgo"
)

func cancel(as *utils.AppState, cmdInfo *[]*discordgo.ApplicationCommandOption, cmdHandler map[string]func(s *discordgo.Session, i *discordgo.InteractionCreate) error) {
	id := "cancel"
	*cmdInfo = append(*cmdInfo, &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionSubCommand,
		Name:        id,
		Description: "Withdraw your RSVP for an event.",
		Options: []*discordgo.ApplicationCommandOption{
			eventIDOption(),
		},
	})
	cmdHandler[id] = cancelHandler(as)
}

func cancelHandler(as *utils.AppState) func(s *discordgo.Session, i *discordgo.InteractionCreate) error {
	return func(s *discordgo.Session, i *discordgo.InteractionCreate) error {
		const caller = "cancelHandler"

		if !utils.InteractRespDeferHidden(as, s, i, caller) {
			return nil
		}

		eventID := stringOption(subcommandOptions(i), "event-id")
		userID, _, ok := utils.InteractUserID(i)
		if !ok {
			utils.InteractRespEdit(s, i, caller, "Can't get user ID from interaction.")
			return fmt.Errorf("cancelHandler: can't get user ID from interaction")
		}

		startTimer := time.Now()
		result, err := as.Engine.CancelRsvp(context.Background(), eventID, userID)
		if err != nil {
			utils.InteractRespEdit(s, i, caller, utils.AttendanceErrorMessage(err))
			return fmt.Errorf("cancelHandler: can't cancel rsvp: %w", err)
		}
		utils.ObserveSince(as.MetricChans.DatabaseWrite, startTimer)
		metric.ObservePromoted(len(result.Promoted))
		notify.DispatchPromoted(as.Notifier, as.Config.GetNotifyTimeout(), result.Promoted)

		switch result.Cancelled {
		case true:
			utils.InteractRespEdit(s, i, caller, fmt.Sprintf("Your RSVP for **%s** was withdrawn.", eventTitle(as, eventID)))
		case false:
			utils.InteractRespEdit(s, i, caller, fmt.Sprintf("You had no RSVP for **%s**.", eventTitle(as, eventID)))
		}
		return nil
	}
}

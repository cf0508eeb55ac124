package rsvp_handler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"rsvpd/src-server/metric"
	"rsvpd/src-server/notify"
	"rsvpd/src-server/utils"

	"github.com/bwmarrin/discordgo"
)

func bailOut(as *utils.AppState, cmdInfo *[]*discordgo.ApplicationCommandOption, cmdHandler map[string]func(s *discordgo.Session, i *discordgo.InteractionCreate) error) {
	id := "bail-out"
	*cmdInfo = append(*cmdInfo, &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionSubCommand,
		Name:        id,
		Description: "Give up your spot so the next person on the waitlist gets it.",
		Options: []*discordgo.ApplicationCommandOption{
			recordIDOption(),
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "reason",
				Description: "Why you can't make it.",
				MaxLength:   500,
			},
		},
	})
	cmdHandler[id] = func(s *discordgo.Session, i *discordgo.InteractionCreate) error {
		optionMap := subcommandOptions(i)
		return bailOutRecord(as, s, i, stringOption(optionMap, "record-id"), stringOption(optionMap, "reason"))
	}
}

func bailOutButtonHandler(as *utils.AppState) func(s *discordgo.Session, i *discordgo.InteractionCreate) error {
	return func(s *discordgo.Session, i *discordgo.InteractionCreate) error {
		_, recordID, _ := notify.SplitCustomID(i.MessageComponentData().CustomID)
		return bailOutRecord(as, s, i, recordID, "")
	}
}

func bailOutRecord(as *utils.AppState, s *discordgo.Session, i *discordgo.InteractionCreate, recordID string, reason string) error {
	const caller = "bailOutRecord"

	if !utils.InteractRespDeferHidden(as, s, i, caller) {
		return nil
	}
	userID, _, ok := utils.InteractUserID(i)
	if !ok {
		utils.InteractRespEdit(s, i, caller, "Can't get user ID from interaction.")
		return fmt.Errorf("bailOutRecord: can't get user ID from interaction")
	}

	startTimer := time.Now()
	result, err := as.Engine.BailOut(context.Background(), recordID, userID, reason)
	if err != nil {
		utils.InteractRespEdit(s, i, caller, utils.AttendanceErrorMessage(err))
		return fmt.Errorf("bailOutRecord: can't bail out: %w", err)
	}
	utils.ObserveSince(as.MetricChans.DatabaseWrite, startTimer)
	metric.ObservePromoted(len(result.Promoted))
	notify.DispatchPromoted(as.Notifier, as.Config.GetNotifyTimeout(), result.Promoted)

	utils.InteractRespEdit(s, i, caller, fmt.Sprintf("Got it, your spot for **%s** was released.", eventTitle(as, result.Record.EventID)))
	slog.Debug("bailed out", "record_id", recordID, "promoted", len(result.Promoted))
	return nil
}

package rsvp_handler

import (
	"context"
	"fmt"
	"time"

	"rsvpd/src-server/notify"
	"rsvpd/src-server/utils"

	"github.com/bwmarrin/discordgo"
)

func confirm(as *utils.AppState, cmdInfo *[]*discordgo.ApplicationCommandOption, cmdHandler map[string]func(s *discordgo.Session, i *discordgo.InteractionCreate) error) {
	id := "confirm"
	*cmdInfo = append(*cmdInfo, &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionSubCommand,
		Name:        id,
		Description: "Confirm you are still coming today.",
		Options: []*discordgo.ApplicationCommandOption{
			recordIDOption(),
		},
	})
	cmdHandler[id] = func(s *discordgo.Session, i *discordgo.InteractionCreate) error {
		return confirmRecord(as, s, i, stringOption(subcommandOptions(i), "record-id"))
	}
}

func confirmButtonHandler(as *utils.AppState) func(s *discordgo.Session, i *discordgo.InteractionCreate) error {
	return func(s *discordgo.Session, i *discordgo.InteractionCreate) error {
		_, recordID, _ := notify.SplitCustomID(i.MessageComponentData().CustomID)
		return confirmRecord(as, s, i, recordID)
	}
}

func confirmRecord(as *utils.AppState, s *discordgo.Session, i *discordgo.InteractionCreate, recordID string) error {
	const caller = "confirmRecord"

	if !utils.InteractRespDeferHidden(as, s, i, caller) {
		return nil
	}
	userID, _, ok := utils.InteractUserID(i)
	if !ok {
		utils.InteractRespEdit(s, i, caller, "Can't get user ID from interaction.")
		return fmt.Errorf("confirmRecord: can't get user ID from interaction")
	}

	startTimer := time.Now()
	record, err := as.Engine.ConfirmAttendance(context.Background(), recordID, userID)
	if err != nil {
		utils.InteractRespEdit(s, i, caller, utils.AttendanceErrorMessage(err))
		return fmt.Errorf("confirmRecord: can't confirm attendance: %w", err)
	}
	utils.ObserveSince(as.MetricChans.DatabaseWrite, startTimer)

	utils.InteractRespEdit(s, i, caller, fmt.Sprintf("Thanks, see you at **%s**!", eventTitle(as, record.EventID)))
	return nil
}

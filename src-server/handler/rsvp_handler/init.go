package rsvp_handler

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"rsvpd/src-server/model"
	"rsvpd/src-server/notify"
	"rsvpd/src-server/utils"

	"github.com/bwmarrin/discordgo"
)

func Init(as *utils.AppState) {
	// works similar to how we create a new slash command using
	// appCmdInfo and appCmdHandler in AppState.
	localCmdInfo := make(
		[]*discordgo.ApplicationCommandOption, 0,
	)
	localCmdHandler := make(
		map[string]func(s *discordgo.Session, i *discordgo.InteractionCreate) error,
	)

	respond(as, &localCmdInfo, localCmdHandler, "going", model.ATTENDANCE_STATUS_GOING)
	respond(as, &localCmdInfo, localCmdHandler, "interested", model.ATTENDANCE_STATUS_INTERESTED)
	respond(as, &localCmdInfo, localCmdHandler, "not-going", model.ATTENDANCE_STATUS_NOT_GOING)
	cancel(as, &localCmdInfo, localCmdHandler)
	status(as, &localCmdInfo, localCmdHandler)
	confirm(as, &localCmdInfo, localCmdHandler)
	bailOut(as, &localCmdInfo, localCmdHandler)

	id := "rsvp"
	as.AddAppCmdInfo(id, &discordgo.ApplicationCommand{
		Name:        id,
		Description: "Attendance commands.",
		Options:     localCmdInfo,
	})
	as.AddAppCmdHandler(id, func(s *discordgo.Session, i *discordgo.InteractionCreate) error {
		data := i.ApplicationCommandData()
		if len(data.Options) == 0 {
			return nil
		}
		if handler, ok := localCmdHandler[data.Options[0].Name]; ok {
			return handler(s, i)
		}
		return nil
	})

	// buttons on the day-of confirmation prompt
	as.AddMsgComponentHandler(notify.CONFIRM_CUSTOM_ID_PREFIX, confirmButtonHandler(as))
	as.AddMsgComponentHandler(notify.BAIL_OUT_CUSTOM_ID_PREFIX, bailOutButtonHandler(as))
}

func eventIDOption() *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionString,
		Name:        "event-id",
		Description: "The ID of the event.",
		Required:    true,
	}
}

func recordIDOption() *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionString,
		Name:        "record-id",
		Description: "The ID of your attendance record, shown by /rsvp status.",
		Required:    true,
	}
}

// subcommandOptions maps the options of the invoked subcommand by name.
func subcommandOptions(i *discordgo.InteractionCreate) map[string]*discordgo.ApplicationCommandInteractionDataOption {
	options := i.ApplicationCommandData().Options[0].Options
	optionMap := make(
		map[string]*discordgo.ApplicationCommandInteractionDataOption, len(options),
	)
	for _, opt := range options {
		optionMap[opt.Name] = opt
	}
	return optionMap
}

func stringOption(optionMap map[string]*discordgo.ApplicationCommandInteractionDataOption, name string) string {
	if opt, ok := optionMap[name]; ok {
		return strings.TrimSpace(opt.StringValue())
	}
	return ""
}

// ensureUser records the caller so the engine's user check passes. Returns
// the caller's user ID, or "" after telling the caller what went wrong.
func ensureUser(as *utils.AppState, s *discordgo.Session, i *discordgo.InteractionCreate, caller string) string {
	userID, username, ok := utils.InteractUserID(i)
	if !ok {
		utils.InteractRespEdit(s, i, caller, "Can't get user ID from interaction.")
		return ""
	}

	startTimer := time.Now()
	if err := (&model.User{
		ID:       userID,
		Username: username,
	}).Upsert(context.Background(), as.BunDB); err != nil {
		utils.InteractRespEdit(s, i, caller, fmt.Sprintf("Can't save user\n```\n%s\n```", err.Error()))
		slog.Error(caller+": can't upsert user", "user_id", userID, "error", err)
		return ""
	}
	utils.ObserveSince(as.MetricChans.DatabaseWrite, startTimer)
	return userID
}

func eventTitle(as *utils.AppState, eventID string) string {
	return as.Events.Title(context.Background(), eventID)
}

package utils

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"rsvpd/src-server/attendance"

	"github.com/bwmarrin/discordgo"
)

// =========================================================
// Pre-built discordgo interaction responses for convenience
// =========================================================

// InteractRespDeferHidden acknowledges the interaction with a hidden
// "thinking" message that is later replaced by InteractRespEdit.
func InteractRespDeferHidden(as *AppState, s *discordgo.Session, i *discordgo.InteractionCreate, caller string) bool {
	startTimer := time.Now()
	if err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Flags: discordgo.MessageFlagsEphemeral,
		},
	}); err != nil {
		slog.Warn(caller+": can't send defer message", "error", err)
		return false
	}
	ObserveSince(as.MetricChans.DiscordSendMessage, startTimer)
	return true
}

// InteractRespEdit replaces the deferred message with content.
func InteractRespEdit(s *discordgo.Session, i *discordgo.InteractionCreate, caller string, content string) {
	if _, err := s.InteractionResponseEdit(i.Interaction, &discordgo.WebhookEdit{
		Content: &content,
	}); err != nil {
		slog.Warn(caller+": can't edit deferred message", "error", err)
	}
}

// InteractRespHiddenReply sends a hidden reply to the interaction.
func InteractRespHiddenReply(s *discordgo.Session, i *discordgo.InteractionCreate, content string) {
	if err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Flags:   discordgo.MessageFlagsEphemeral,
			Content: content,
		},
	}); err != nil {
		slog.Warn("InteractRespHiddenReply: can't respond", "error", err)
	}
}

// InteractUserID returns the id of whoever triggered the interaction, in a
// guild or in a DM.
func InteractUserID(i *discordgo.InteractionCreate) (string, string, bool) {
	switch {
	case i.Member != nil && i.Member.User != nil:
		return i.Member.User.ID, i.Member.User.Username, true
	case i.User != nil:
		return i.User.ID, i.User.Username, true
	}
	return "", "", false
}

// AttendanceErrorMessage turns an engine error into something a user can
// read. Store failures keep their detail in a code block.
func AttendanceErrorMessage(err error) string {
	var e *attendance.Error
	if !errors.As(err, &e) {
		return fmt.Sprintf("Something went wrong\n```\n%s\n```", err.Error())
	}
	switch e.Kind {
	case attendance.KindValidation:
		return CleanupString(e.Msg) + "."
	case attendance.KindAuthorization:
		return "That attendance record belongs to someone else."
	case attendance.KindInvalidState:
		return CleanupString(e.Msg) + "."
	case attendance.KindNotFound:
		return CleanupString(e.Msg) + "."
	}
	return fmt.Sprintf("Can't update attendance right now, try again later.\n```\n%s\n```", e.Error())
}

package handler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"rsvpd/src-server/model"
	"rsvpd/src-server/utils"

	"github.com/bwmarrin/discordgo"
	"github.com/google/uuid"
)

func Login(as *utils.AppState) {
	id := "login"
	as.AddAppCmdHandler(id, loginHandler(as))
	as.AddAppCmdInfo(id, &discordgo.ApplicationCommand{
		Name:        id,
		Description: "Get a session secret to RSVP through the HTTP API",
	})
}

func loginHandler(as *utils.AppState) func(s *discordgo.Session, i *discordgo.InteractionCreate) error {
	return func(s *discordgo.Session, i *discordgo.InteractionCreate) error {
		const caller = "loginHandler"

		// #region - respond to the original request
		if !utils.InteractRespDeferHidden(as, s, i, caller) {
			return nil
		}
		// #endregion

		// #region - get the user ID from interaction
		userID, username, ok := utils.InteractUserID(i)
		if !ok {
			utils.InteractRespEdit(s, i, caller, "Can't get user ID from interaction.")
			return fmt.Errorf("Login: can't get user ID from interaction")
		}
		// #endregion

		// #region - insert user & session to DB
		secret := uuid.NewString()
		startTimer := time.Now()
		if err := (&model.User{
			ID:       userID,
			Username: username,
		}).Upsert(context.Background(), as.BunDB); err != nil {
			utils.InteractRespEdit(s, i, caller, fmt.Sprintf("Can't save user\n```\n%s\n```", err.Error()))
			return fmt.Errorf("loginHandler: can't upsert user: %w", err)
		}
		if _, err := as.BunDB.
			NewInsert().
			Model(&model.Session{
				Secret:           secret,
				Purpose:          model.SESSION_MODEL_PURPOSE_SESSION,
				UserID:           userID,
				CreatedAtUnixUTC: time.Now().UTC().Unix(),
			}).
			Exec(context.Background()); err != nil {
			utils.InteractRespEdit(s, i, caller, fmt.Sprintf("Can't create session\n```\n%s\n```", err.Error()))
			return fmt.Errorf("loginHandler: can't insert session: %w", err)
		}
		utils.ObserveSince(as.MetricChans.DatabaseWrite, startTimer)
		// #endregion

		utils.InteractRespEdit(s, i, caller, fmt.Sprintf(
			"Send this as the `%s` cookie, it is valid for %d days.\n```%s```",
			model.SESSION_COOKIE_NAME, int(model.SESSION_LIFETIME.Hours()/24), secret,
		))
		slog.Debug("session created", "user_id", userID)
		return nil
	}
}

func Logout(as *utils.AppState) {
	id := "logout"
	as.AddAppCmdHandler(id, logoutHandler(as))
	as.AddAppCmdInfo(id, &discordgo.ApplicationCommand{
		Name:        id,
		Description: "Invalidate every session secret issued to you",
	})
}

func logoutHandler(as *utils.AppState) func(s *discordgo.Session, i *discordgo.InteractionCreate) error {
	return func(s *discordgo.Session, i *discordgo.InteractionCreate) error {
		const caller = "logoutHandler"

		if !utils.InteractRespDeferHidden(as, s, i, caller) {
			return nil
		}
		userID, _, ok := utils.InteractUserID(i)
		if !ok {
			utils.InteractRespEdit(s, i, caller, "Can't get user ID from interaction.")
			return fmt.Errorf("Logout: can't get user ID from interaction")
		}

		startTimer := time.Now()
		res, err := as.BunDB.
			NewDelete().
			Model((*model.Session)(nil)).
			Where("user_id = ?", userID).
			Exec(context.Background())
		if err != nil {
			utils.InteractRespEdit(s, i, caller, fmt.Sprintf("Can't delete sessions\n```\n%s\n```", err.Error()))
			return fmt.Errorf("logoutHandler: can't delete sessions: %w", err)
		}
		utils.ObserveSince(as.MetricChans.DatabaseWrite, startTimer)

		revoked, _ := res.RowsAffected()
		utils.InteractRespEdit(s, i, caller, fmt.Sprintf("%d session(s) revoked.", revoked))
		return nil
	}
}

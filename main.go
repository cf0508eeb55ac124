package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"rsvpd/src-server/handler"
	"rsvpd/src-server/handler/rsvp_handler"
	"rsvpd/src-server/metric"
	"rsvpd/src-server/route"
	"rsvpd/src-server/scheduler"
	"rsvpd/src-server/utils"

	"github.com/bwmarrin/discordgo"
	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/pflag"
)

var (
	envFile     = pflag.String("env-file", ".env", "file to load environment variables from")
	migrateOnly = pflag.Bool("migrate-only", false, "create the database schema and exit")
	sweepOnce   = pflag.Bool("sweep-once", false, "run one confirmation sweep and exit")
	sweepAt     = pflag.String("at", "", `reference time for --sweep-once, e.g. "tomorrow 8am" (default now)`)
)

func init() {
	slog.SetDefault(slog.New(
		tint.NewHandler(os.Stderr, &tint.Options{
			Level:      slog.LevelDebug,
			TimeFormat: time.RFC1123Z,
		}),
	))
}

func main() {
	pflag.Parse()
	if err := godotenv.Load(*envFile); err != nil {
		slog.Info(err.Error())
	}

	// There are 2 important things (and others) inside the AppState:
	// - appCmdInfo: a map of all slash commands
	// - appCmdHandler: a map of all slash command handlers
	// NewAppState also opens the database and creates the schema.
	as := utils.NewAppState()

	switch {
	case *migrateOnly:
		slog.Info("schema is up to date")
		as.GracefulShutdown()
		return
	case *sweepOnce:
		at, err := as.ParseReferenceTime(*sweepAt)
		if err != nil {
			slog.Error("invalid --at", "error", err)
			os.Exit(1)
		}
		// DMs go through the REST API, no gateway connection needed
		scheduler.SweepOnce(as, at)
		as.GracefulShutdown()
		return
	}

	if as.DgSession != nil {
		startDiscord(as)
	} else {
		slog.Warn("DISCORD_APP_TOKEN not set, notifications go to the log")
	}

	go metric.Init(as)
	go scheduler.ConfirmationSweep(as)
	go scheduler.Reconcile(as)

	// http server
	server := &http.Server{
		Addr: ":" + as.Config.GetPort(),
		Handler: func() http.Handler {
			muxer := http.NewServeMux()
			muxer.Handle("GET /metrics", promhttp.Handler())
			route.Attendance(muxer, as)
			return muxer
		}(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("cannot start HTTP server", "error", err)
			as.AppCloseSignalChan <- syscall.SIGTERM
		}
	}()

	slog.Info("app is now running, press Ctrl+C to exit", "port", as.Config.GetPort())

	signal.Notify(as.AppCloseSignalChan, syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	<-as.AppCloseSignalChan

	slog.Info("Gracefully shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		slog.Warn("can't shut down HTTP server", "error", err)
	}
	as.GracefulShutdown()
}

func startDiscord(as *utils.AppState) {
	// injecting interaction handlers into appCmdInfo, appCmdHandler in AppState
	rsvp_handler.Init(as)
	handler.Login(as)
	handler.Logout(as)

	// tell discordgo how to handle interactions from Discord (w/ appCmdHandler)
	as.DgSession.AddHandler(func(s *discordgo.Session, i *discordgo.InteractionCreate) {
		execute := func(id string, handler func(s *discordgo.Session, i *discordgo.InteractionCreate) error, ok bool) {
			if ok {
				if err := handler(s, i); err != nil {
					slog.Error("handler error", "command", id, "error", err.Error())
				}
				return
			}
			utils.InteractRespHiddenReply(s, i, "Expired interaction")
			username := "unknown"
			if _, name, ok := utils.InteractUserID(i); ok {
				username = name
			}
			slog.Debug("someone used an expired interaction", "username", username, "custom_id", id)
		}

		switch i.Type {
		case discordgo.InteractionApplicationCommand: // slash commands
			cmdData := i.ApplicationCommandData()
			handler, ok := as.GetAppCmdHandler(cmdData.Name)
			execute(cmdData.Name, handler, ok)
		case discordgo.InteractionMessageComponent: // buttons on the confirmation prompt
			componentData := i.MessageComponentData()
			handler, ok := as.GetMsgComponentHandler(componentData.CustomID)
			execute(componentData.CustomID, handler, ok)
		default:
			slog.Error("unknown interaction type", "type", i.Type)
		}
	})

	// open a connection to Discord
	if err := as.DgSession.Open(); err != nil {
		slog.Error("can't open connection to discord", "error", err)
		os.Exit(1)
	}

	// tell Discord what commands we have (w/ appCmdInfo)
	if _, err := as.DgSession.ApplicationCommandBulkOverwrite(
		as.Config.GetDiscordClientId(),
		as.Config.GetDiscordGuildID(),
		func() []*discordgo.ApplicationCommand {
			var cmds []*discordgo.ApplicationCommand
			as.IterateAppCmdInfo(func(k string, v *discordgo.ApplicationCommand) {
				cmds = append(cmds, v)
			})
			return cmds
		}()); err != nil {
		slog.Error("can't create slash commands", "error", err.Error())
	}

	// cleanup appCmdInfo from memory
	as.NukeAppCmdInfo()
	runtime.GC()

	slog.Info("number of guilds", "guilds", len(as.DgSession.State.Guilds))
}

package utils

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"rsvpd/src-server/attendance"
	"rsvpd/src-server/event"
	"rsvpd/src-server/model"
	"rsvpd/src-server/notify"

	"github.com/bwmarrin/discordgo"
	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/extra/bundebug"
)

type AppState struct {
	Config      *Config
	RawDB       *sql.DB
	BunDB       *bun.DB
	DgSession   *discordgo.Session // nil when Discord is disabled
	When        *when.Parser
	MetricChans *Metric

	Events   *event.Provider
	Notifier attendance.Notifier
	Engine   *attendance.Engine

	// will be send to Discord
	appCmdInfo map[string]*discordgo.ApplicationCommand
	// handling commands from Discord WSAPI
	appCmdHandler map[string]func(s *discordgo.Session, i *discordgo.InteractionCreate) error
	// same as above but for msg components (buttons), keyed by custom ID prefix
	msgComponentHandler map[string]func(s *discordgo.Session, i *discordgo.InteractionCreate) error
	handlerMu           sync.RWMutex

	AppCloseSignalChan    chan os.Signal
	gracefulShutdownChans []chan struct{}
	shutdownMu            sync.Mutex
}

func NewAppState() *AppState {
	as := &AppState{}

	// init maps
	as.appCmdInfo = make(map[string]*discordgo.ApplicationCommand)
	as.appCmdHandler = make(map[string]func(s *discordgo.Session, i *discordgo.InteractionCreate) error)
	as.msgComponentHandler = make(map[string]func(s *discordgo.Session, i *discordgo.InteractionCreate) error)
	as.AppCloseSignalChan = make(chan os.Signal, 1)
	as.MetricChans = NewMetric()

	// date parser
	as.When = when.New(nil)
	as.When.Add(en.All...)
	as.When.Add(common.All...)

	// env
	as.Config = NewConfig()

	// database
	var err error
	as.RawDB, as.BunDB, err = model.Open(as.Config.GetDatabasePath())
	if err != nil {
		slog.Error("cannot open sqlite database", "error", err)
		os.Exit(1)
	}
	as.RawDB.SetMaxIdleConns(8)
	as.BunDB.AddQueryHook(bundebug.NewQueryHook(
		bundebug.WithVerbose(true),
		bundebug.FromEnv("BUNDEBUG"),
	))
	if err := model.CreateSchema(context.Background(), as.BunDB); err != nil {
		slog.Error("can't create database schema", "error", err)
		os.Exit(1)
	}

	// discord
	if token := as.Config.GetDiscordAppToken(); token != "" {
		as.DgSession, err = discordgo.New("Bot " + token)
		if err != nil {
			slog.Error("can't create discord session", "error", err)
			os.Exit(1)
		}
	}

	// attendance engine
	as.Events = event.NewProvider(as.BunDB)
	switch as.DgSession {
	case nil:
		as.Notifier = notify.Log{}
	default:
		as.Notifier = notify.NewDiscord(as.DgSession, as.Events, as.MetricChans.NotificationSend)
	}
	as.Engine = attendance.NewEngine(as.BunDB, as.Events,
		attendance.WithUserProvider(as.Events),
		attendance.WithNotifier(as.Notifier),
		attendance.WithLocation(as.Config.GetLocation()),
	)

	return as
}

func (as *AppState) AddAppCmdInfo(id string, info *discordgo.ApplicationCommand) {
	as.handlerMu.Lock()
	defer as.handlerMu.Unlock()
	as.appCmdInfo[id] = info
}

func (as *AppState) IterateAppCmdInfo(fn func(id string, info *discordgo.ApplicationCommand)) {
	as.handlerMu.RLock()
	defer as.handlerMu.RUnlock()
	for id, info := range as.appCmdInfo {
		fn(id, info)
	}
}

// NukeAppCmdInfo drops the command definitions once they are sent to Discord.
func (as *AppState) NukeAppCmdInfo() {
	as.handlerMu.Lock()
	defer as.handlerMu.Unlock()
	as.appCmdInfo = make(map[string]*discordgo.ApplicationCommand)
}

func (as *AppState) AddAppCmdHandler(id string, handler func(s *discordgo.Session, i *discordgo.InteractionCreate) error) {
	as.handlerMu.Lock()
	defer as.handlerMu.Unlock()
	as.appCmdHandler[id] = handler
}

func (as *AppState) GetAppCmdHandler(id string) (func(s *discordgo.Session, i *discordgo.InteractionCreate) error, bool) {
	as.handlerMu.RLock()
	defer as.handlerMu.RUnlock()
	handler, ok := as.appCmdHandler[id]
	return handler, ok
}

// AddMsgComponentHandler registers a handler for every custom ID that starts
// with prefix. Prefixes end with a colon.
func (as *AppState) AddMsgComponentHandler(prefix string, handler func(s *discordgo.Session, i *discordgo.InteractionCreate) error) {
	as.handlerMu.Lock()
	defer as.handlerMu.Unlock()
	as.msgComponentHandler[prefix] = handler
}

func (as *AppState) GetMsgComponentHandler(customID string) (func(s *discordgo.Session, i *discordgo.InteractionCreate) error, bool) {
	prefix, _, ok := notify.SplitCustomID(customID)
	if !ok {
		return nil, false
	}
	as.handlerMu.RLock()
	defer as.handlerMu.RUnlock()
	handler, ok := as.msgComponentHandler[prefix]
	return handler, ok
}

// ParseReferenceTime turns "tomorrow 9am" and the like into a time in the
// configured timezone. A blank text means now.
func (as *AppState) ParseReferenceTime(text string) (time.Time, error) {
	now := time.Now().In(as.Config.GetLocation())
	if strings.TrimSpace(text) == "" {
		return now, nil
	}
	result, err := as.When.Parse(text, now)
	switch {
	case err != nil:
		return time.Time{}, fmt.Errorf("ParseReferenceTime: %w", err)
	case result == nil:
		return time.Time{}, fmt.Errorf("ParseReferenceTime: no date found in %q", text)
	}
	return result.Time, nil
}

// CreateGracefulShutdownChan returns a channel that is closed on shutdown.
func (as *AppState) CreateGracefulShutdownChan() *chan struct{} {
	as.shutdownMu.Lock()
	defer as.shutdownMu.Unlock()
	ch := make(chan struct{})
	as.gracefulShutdownChans = append(as.gracefulShutdownChans, ch)
	return &ch
}

func (as *AppState) GracefulShutdown() {
	as.shutdownMu.Lock()
	for _, ch := range as.gracefulShutdownChans {
		close(ch)
	}
	as.gracefulShutdownChans = nil
	as.shutdownMu.Unlock()

	if as.DgSession != nil {
		if err := as.DgSession.Close(); err != nil {
			slog.Warn("can't close discord session", "error", err)
		}
	}
	if err := as.BunDB.Close(); err != nil {
		slog.Warn("can't close database", "error", err)
	}
}

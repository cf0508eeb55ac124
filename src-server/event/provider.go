// Package event reads the event metadata mirror and the user table for the
// attendance engine.
package event

import (
	"context"
	"fmt"
	"time"

	"rsvpd/src-server/model"

	"github.com/uptrace/bun"
)

type Provider struct {
	db bun.IDB
}

func NewProvider(db bun.IDB) *Provider {
	return &Provider{db: db}
}

func (p *Provider) Get(ctx context.Context, eventID string) (*model.Event, error) {
	eventModel := new(model.Event)
	if err := p.db.NewSelect().
		Model(eventModel).
		Where("id = ?", eventID).
		Scan(ctx); err != nil {
		return nil, fmt.Errorf("(*Provider).Get: %w", err)
	}
	return eventModel, nil
}

func (p *Provider) EventExists(ctx context.Context, eventID string) (bool, error) {
	exists, err := p.db.NewSelect().
		Model((*model.Event)(nil)).
		Where("id = ?", eventID).
		Exists(ctx)
	if err != nil {
		return false, fmt.Errorf("(*Provider).EventExists: %w", err)
	}
	return exists, nil
}

func (p *Provider) GetCapacity(ctx context.Context, eventID string) (int, bool, error) {
	eventModel, err := p.Get(ctx, eventID)
	if err != nil {
		return 0, false, fmt.Errorf("(*Provider).GetCapacity: %w", err)
	}
	return eventModel.Capacity, eventModel.HasCapacity(), nil
}

func (p *Provider) SupportsDualMode(ctx context.Context, eventID string) (bool, error) {
	eventModel, err := p.Get(ctx, eventID)
	if err != nil {
		return false, fmt.Errorf("(*Provider).SupportsDualMode: %w", err)
	}
	return eventModel.DualMode, nil
}

func (p *Provider) EventsStartingBetween(ctx context.Context, from, to time.Time) ([]string, error) {
	var eventIDs []string
	if err := p.db.NewSelect().
		Model((*model.Event)(nil)).
		Column("id").
		Where("start_date >= ?", from.UTC().Unix()).
		Where("start_date < ?", to.UTC().Unix()).
		OrderExpr("start_date ASC").
		Scan(ctx, &eventIDs); err != nil {
		return nil, fmt.Errorf("(*Provider).EventsStartingBetween: %w", err)
	}
	return eventIDs, nil
}

func (p *Provider) UserExists(ctx context.Context, userID string) (bool, error) {
	exists, err := p.db.NewSelect().
		Model((*model.User)(nil)).
		Where("id = ?", userID).
		Exists(ctx)
	if err != nil {
		return false, fmt.Errorf("(*Provider).UserExists: %w", err)
	}
	return exists, nil
}

// Title returns the event title, or the id when the event is unknown.
func (p *Provider) Title(ctx context.Context, eventID string) string {
	eventModel, err := p.Get(ctx, eventID)
	if err != nil {
		return eventID
	}
	return eventModel.Title
}

// ChannelMention returns the Discord mention of the event's channel, or ""
// when the event has no channel or is unknown.
func (p *Provider) ChannelMention(ctx context.Context, eventID string) string {
	eventModel, err := p.Get(ctx, eventID)
	if err != nil || eventModel.ChannelID == "" {
		return ""
	}
	return "<#" + eventModel.ChannelID + ">"
}

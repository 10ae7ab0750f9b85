package main

import (
	"context"

	"github.com/fieldday/eventsync/internal/engine"
	"github.com/fieldday/eventsync/internal/notify"
	"github.com/fieldday/eventsync/internal/scheduler"
	"github.com/fieldday/eventsync/internal/sheets"
	"github.com/fieldday/eventsync/internal/store"
)

// buildRuntime wires the full stack from config: store, sheet client,
// engines, scheduler. Callers own closing the returned store.
func buildRuntime(ctx context.Context, dryRun bool) (*scheduler.Runtime, *store.Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, nil, err
	}

	st, err := store.Open(ctx, cfg.DSN, logger)
	if err != nil {
		return nil, nil, err
	}

	sheet, err := sheets.NewClient(ctx, cfg.SpreadsheetID, cfg.CredentialsFile, logger)
	if err != nil {
		_ = st.Close()
		return nil, nil, err
	}

	var notifier notify.Notifier
	if cfg.WebhookURL != "" {
		notifier = notify.NewWebhookNotifier(cfg.WebhookURL, cfg.NotifyTo, logger)
	} else {
		notifier = notify.NewLogNotifier(logger)
	}

	projects := engine.NewProjectSync(sheet, st, cfg.Projects, logger)
	projects.DryRun = dryRun

	events := engine.NewEventSync(sheet, st, cfg.Events, logger)
	events.DryRun = dryRun

	lifecycle := engine.NewLifecycle(st, notifier, logger)
	lifecycle.Location = loc

	rt := scheduler.New(scheduler.Options{
		Projects:  projects,
		Events:    events,
		Lifecycle: lifecycle,
		Store:     st,
		Notifier:  notifier,
		Logger:    logger,
		Interval:  cfg.Interval,
		LockKey:   cfg.LockKey,
	})
	return rt, st, nil
}

package service

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	config "github.com/postvault/postvault/configs"
	"github.com/postvault/postvault/internal/models"
	"github.com/postvault/postvault/internal/snapshot"
	"github.com/postvault/postvault/internal/transfer"
)

const rollingWindow = 60 * time.Minute

// StatusSaver persists a run's slot outcomes back into the shared snapshot.
type StatusSaver interface {
	SaveStatusUpdates(ctx context.Context, updates map[string]transfer.SlotStatusUpdate) error
}

// RunnerService is the scheduled publish runner. Run always returns a
// normal summary, never an error: the caller must not retry a publish run,
// since some posts in it may already have gone out.
type RunnerService interface {
	Run(ctx context.Context, now time.Time) *transfer.RunSummary
}

type runnerService struct {
	cfg       config.Config
	store     snapshot.Store
	saver     StatusSaver
	publisher InstagramService
	notifier  Notifier
	profileID string
}

func NewRunnerService(
	cfg config.Config,
	store snapshot.Store,
	saver StatusSaver,
	publisher InstagramService,
	notifier Notifier) RunnerService {
	return &runnerService{
		cfg:       cfg,
		store:     store,
		saver:     saver,
		publisher: publisher,
		notifier:  notifier,
		profileID: cfg.ProfileID,
	}
}

func (s *runnerService) Run(ctx context.Context, now time.Time) *transfer.RunSummary {
	summary := &transfer.RunSummary{}

	snap, err := s.store.Fetch(ctx, s.profileID)
	if err != nil {
		summary.Error = fmt.Sprintf("fetching snapshot: %v", err)
		slog.Error("publish run aborted", "error", err.Error())
		return summary
	}
	if snap == nil {
		summary.Window = s.window(now, time.UTC)
		return summary
	}
	snap.Normalize(now)

	loc := s.location(snap.Settings.Timezone)
	summary.Window = s.window(now.In(loc), loc)

	due := dueSlots(snap.ScheduleSlots, summary.Window, loc)
	summary.TotalDue = len(due)
	if len(due) == 0 {
		return summary
	}

	drafts := make(map[string]*models.Draft, len(snap.Drafts))
	for i := range snap.Drafts {
		drafts[snap.Drafts[i].ID] = &snap.Drafts[i]
	}

	// Slots publish one at a time. Parallel publishes would trip the Graph
	// API rate limits and interleave carousel uploads.
	updates := make(map[string]transfer.SlotStatusUpdate, len(due))
	for _, slot := range due {
		var outcome *transfer.PublishOutcome
		if draft, ok := drafts[slot.DraftID]; ok {
			outcome = s.publisher.PublishSlot(ctx, draft, snap.Credentials)
		} else {
			outcome = &transfer.PublishOutcome{Error: fmt.Sprintf("draft %s not found", slot.DraftID)}
		}

		summary.Results = append(summary.Results, transfer.RunResult{
			SlotID:  slot.ID,
			DraftID: slot.DraftID,
			Outcome: outcome,
		})
		updates[slot.ID] = slotUpdate(outcome)
	}

	if err := s.saver.SaveStatusUpdates(ctx, updates); err != nil {
		summary.SaveFailed = true
		slog.Error("saving run outcomes failed", "error", err.Error())
	}

	if err := s.notifier.SendRunSummary(ctx, summary); err != nil {
		slog.Error("sending run summary failed", "error", err.Error())
	}

	return summary
}

func (s *runnerService) location(tz string) *time.Location {
	if tz == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		slog.Info(fmt.Sprintf("unknown timezone %q, falling back to UTC", tz))
		return time.UTC
	}
	return loc
}

// window computes the due interval ending at now: either everything
// scheduled earlier today, or a rolling lookback.
func (s *runnerService) window(now time.Time, loc *time.Location) transfer.RunWindow {
	if s.cfg.RunWindow == "rolling" {
		return transfer.RunWindow{Mode: "rolling", Start: now.Add(-rollingWindow), End: now}
	}
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
	return transfer.RunWindow{Mode: "today", Start: start, End: now}
}

// dueSlots picks the pending slots whose scheduled instant falls inside the
// window, ordered by scheduled time so runs are deterministic.
func dueSlots(slots []models.ScheduleSlot, window transfer.RunWindow, loc *time.Location) []models.ScheduleSlot {
	var due []models.ScheduleSlot
	for _, slot := range slots {
		if slot.Status != models.SlotStatusPending {
			continue
		}
		at, err := slot.ScheduledAt(loc)
		if err != nil {
			slog.Info(fmt.Sprintf("slot %s has an unparseable schedule, skipping: %v", slot.ID, err))
			continue
		}
		if at.After(window.End) || at.Before(window.Start) {
			continue
		}
		due = append(due, slot)
	}

	sort.Slice(due, func(i, j int) bool {
		ai, _ := due[i].ScheduledAt(loc)
		aj, _ := due[j].ScheduledAt(loc)
		if ai.Equal(aj) {
			return due[i].ID < due[j].ID
		}
		return ai.Before(aj)
	})
	return due
}

func slotUpdate(outcome *transfer.PublishOutcome) transfer.SlotStatusUpdate {
	if outcome.Success {
		publishedAt := outcome.PublishedAt
		return transfer.SlotStatusUpdate{
			Status:         models.SlotStatusPublished,
			PublishedAt:    &publishedAt,
			ExternalPostID: outcome.ExternalPostID,
			Permalink:      outcome.Permalink,
		}
	}
	return transfer.SlotStatusUpdate{
		Status: models.SlotStatusFailed,
		Error:  outcome.Error,
	}
}

// Package worker mirrors ledger events from the message queue to an
// external spreadsheet.
package worker

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"financeflow/internal/amqp"
	"financeflow/internal/log"
	"financeflow/internal/sheets"
)

// MirrorWorker appends consumed ledger events to a row sink. A nil sink is
// valid: events are logged and acknowledged so the queue keeps draining.
type MirrorWorker struct {
	sink sheets.RowAppender
}

func NewMirrorWorker(sink sheets.RowAppender) *MirrorWorker {
	return &MirrorWorker{sink: sink}
}

// HandleLedgerEvent processes a single ledger event from AMQP.
func (w *MirrorWorker) HandleLedgerEvent(ctx context.Context, ev *amqp.LedgerEvent) error {
	slog.InfoContext(ctx, "Processing ledger event",
		log.FieldAction, ev.Action,
		log.FieldUsername, ev.Username,
		log.FieldKind, ev.Kind,
		log.FieldCategory, ev.Category,
		log.FieldAmountCents, ev.AmountCents)

	if ev.Action != amqp.ActionAdd && ev.Action != amqp.ActionDelete {
		return fmt.Errorf("unknown ledger event action %q", ev.Action)
	}

	if w.sink == nil {
		slog.WarnContext(ctx, "No row sink configured, skipping mirror",
			log.FieldUsername, ev.Username,
			log.FieldAction, ev.Action)
		return nil
	}

	row := sheets.Row{
		Username:    ev.Username,
		Action:      ev.Action,
		Date:        ev.Date,
		Kind:        ev.Kind,
		Category:    ev.Category,
		AmountCents: ev.AmountCents,
		Note:        ev.Note,
	}

	ref, err := w.sink.Append(ctx, row)
	if err != nil {
		return fmt.Errorf("append ledger row: %w", err)
	}

	slog.InfoContext(ctx, "Mirrored ledger event",
		log.FieldUsername, ev.Username,
		log.FieldAction, ev.Action,
		log.FieldSheetsRef, ref)

	return nil
}

// MirrorBacklog appends a batch of events with bounded concurrency. Used at
// startup to drain events accumulated while the worker was down.
func (w *MirrorWorker) MirrorBacklog(ctx context.Context, events []*amqp.LedgerEvent, limit int) error {
	if limit < 1 {
		limit = 1
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for _, ev := range events {
		ev := ev
		g.Go(func() error {
			return w.HandleLedgerEvent(ctx, ev)
		})
	}

	return g.Wait()
}

package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/fieldday/eventsync/internal/idgen"
	"github.com/fieldday/eventsync/internal/identity"
	"github.com/fieldday/eventsync/internal/sheetcodec"
	"github.com/fieldday/eventsync/internal/types"
)

// EventSync ingests intake rows insert-only. The core guarantee: once a
// record is imported, sync never touches its business fields again, so
// manual corrections made directly in the store are permanent. Only sync
// metadata (row anchor, last-synced timestamp) may be refreshed.
type EventSync struct {
	Sheet    SheetClient
	Store    Store
	Range    SheetRange
	Codec    *sheetcodec.Codec
	Resolver *identity.Resolver
	Logger   *slog.Logger
	DryRun   bool

	Clock func() time.Time
}

// NewEventSync wires an insert-only sync for the intake sheet.
func NewEventSync(sheet SheetClient, st Store, rng SheetRange, logger *slog.Logger) *EventSync {
	if logger == nil {
		logger = slog.Default()
	}
	return &EventSync{
		Sheet:    sheet,
		Store:    st,
		Range:    rng,
		Codec:    sheetcodec.NewCodec(logger),
		Resolver: identity.NewResolver(),
		Logger:   logger,
		Clock:    time.Now,
	}
}

// Run executes one complete insert-only pass over the intake sheet.
func (s *EventSync) Run(ctx context.Context) (types.PassStats, error) {
	var stats types.PassStats
	now := s.Clock().UTC()

	header, err := s.Sheet.ReadHeader(ctx, s.Range.HeaderRange())
	if err != nil {
		return stats, fmt.Errorf("reading intake header: %w", err)
	}
	mapper := sheetcodec.NewMapper(header, sheetcodec.EventFields(), s.Logger)

	rows, err := s.Sheet.ReadRows(ctx, s.Range.DataRange())
	if err != nil {
		return stats, fmt.Errorf("reading intake rows: %w", err)
	}

	known, err := s.Store.ListEventRequests(ctx)
	if err != nil {
		return stats, fmt.Errorf("listing event requests: %w", err)
	}

	for i, row := range rows {
		rowIdx := s.Range.DataStartRow + i

		decoded, err := s.Codec.DecodeEventRow(row, mapper, rowIdx)
		if err != nil {
			var shapeErr *sheetcodec.DataShapeError
			if errors.As(err, &shapeErr) {
				s.Logger.Warn("skipping malformed intake row", "row", rowIdx, "err", err)
				stats.Errors++
				continue
			}
			return stats, err
		}

		// Identity cascade before any insert: a row whose content was
		// edited since import would synthesize a different external ID,
		// so the external-id unique key alone cannot catch it.
		if match, tier := s.Resolver.Match(decoded, known); match != nil {
			stats.Skipped++
			if match.SheetRowIndex != rowIdx {
				s.Logger.Debug("intake row moved", "row", rowIdx, "was", match.SheetRowIndex,
					"external_id", match.ExternalID, "tier", tier.String())
			}
			s.refreshMeta(ctx, match, rowIdx, now)
			continue
		}

		if s.DryRun {
			s.Logger.Info("[dry-run] would import event request",
				"row", rowIdx, "organization", decoded.OrganizationName, "email", decoded.Email)
			stats.Created++
			continue
		}

		decoded.ExternalID = idgen.ExternalID(decoded.Email, decoded.SubmittedOn,
			decoded.OrganizationName, decoded.ContactName)

		h := EventContentHash(decoded)
		decoded.LastAppContentHash = h
		decoded.LastSheetContentHash = h
		decoded.LastPulledFromSheetAt = &now
		decoded.LastSyncedAt = &now
		decoded.SyncStatus = types.SyncSynced

		inserted, err := s.Store.InsertEventRequestIgnoringConflict(ctx, decoded)
		if err != nil {
			s.Logger.Warn("failed to insert event request", "row", rowIdx, "err", err)
			stats.Errors++
			continue
		}
		if inserted {
			stats.Created++
			stats.Pulled++
			// Later rows in this same pass must be able to match it.
			known = append(known, decoded)
		} else {
			// A record with this external ID already exists and was
			// correctly left untouched. It can only be absent from known
			// if another process imported it after our listing; fetch it
			// so its metadata and this pass's later rows see it.
			stats.Skipped++
			if existing, err := s.Store.FindEventRequestByExternalID(ctx, decoded.ExternalID); err == nil {
				s.refreshMeta(ctx, existing, rowIdx, now)
				known = append(known, existing)
			}
		}
	}

	return stats, nil
}

// refreshMeta updates only the sync bookkeeping of an existing record.
// Business fields are never written here.
func (s *EventSync) refreshMeta(ctx context.Context, match *types.EventRequest, rowIdx int, now time.Time) {
	if s.DryRun {
		return
	}
	meta := match.SyncMeta
	meta.SheetRowIndex = rowIdx
	meta.LastSyncedAt = &now
	if err := s.Store.UpdateEventRequestMeta(ctx, match.ID, meta); err != nil {
		s.Logger.Warn("failed to refresh sync metadata", "event_request", match.ID, "err", err)
	}
	match.SyncMeta = meta
}

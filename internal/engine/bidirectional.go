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
	"github.com/fieldday/eventsync/internal/sheets"
	"github.com/fieldday/eventsync/internal/types"
)

// projectNameSimilarity is the floor for matching a sheet row to a
// stored project by email + target date + name similarity.
const projectNameSimilarity = 0.6

// ProjectSync reconciles the project sheet bidirectionally. Per record
// and per pass, at most one of push, pull, or conflict-resolve happens.
type ProjectSync struct {
	Sheet  SheetClient
	Store  Store
	Range  SheetRange
	Codec  *sheetcodec.Codec
	Logger *slog.Logger
	DryRun bool

	// Clock is the time source, overridable in tests.
	Clock func() time.Time
}

// NewProjectSync wires a bidirectional sync for the project sheet.
func NewProjectSync(sheet SheetClient, st Store, rng SheetRange, logger *slog.Logger) *ProjectSync {
	if logger == nil {
		logger = slog.Default()
	}
	return &ProjectSync{
		Sheet:  sheet,
		Store:  st,
		Range:  rng,
		Codec:  sheetcodec.NewCodec(logger),
		Logger: logger,
		Clock:  time.Now,
	}
}

// pushAction is a deferred app→sheet write. Sheet writes are batched and
// store baselines are committed only after the batch succeeds, so hashes
// are never updated speculatively.
type pushAction struct {
	project *types.Project
	row     int
	hash    string
	values  []string
}

// Run executes one complete pass over the project sheet.
func (s *ProjectSync) Run(ctx context.Context) (types.PassStats, error) {
	var stats types.PassStats
	now := s.Clock().UTC()

	header, err := s.Sheet.ReadHeader(ctx, s.Range.HeaderRange())
	if err != nil {
		return stats, fmt.Errorf("reading project header: %w", err)
	}
	mapper := sheetcodec.NewMapper(header, sheetcodec.ProjectFields(), s.Logger)

	rows, err := s.Sheet.ReadRows(ctx, s.Range.DataRange())
	if err != nil {
		return stats, fmt.Errorf("reading project rows: %w", err)
	}

	projects, err := s.Store.ListProjects(ctx)
	if err != nil {
		return stats, fmt.Errorf("listing projects: %w", err)
	}

	claimed := make(map[int64]bool)
	var pushes []pushAction

	for i, row := range rows {
		rowIdx := s.Range.DataStartRow + i

		decoded, err := s.Codec.DecodeProjectRow(row, mapper, rowIdx)
		if err != nil {
			var shapeErr *sheetcodec.DataShapeError
			if errors.As(err, &shapeErr) {
				s.Logger.Warn("skipping malformed project row", "row", rowIdx, "err", err)
				stats.Errors++
				continue
			}
			return stats, err
		}

		p := s.matchProject(decoded, projects, claimed)
		if p == nil {
			if err := s.createFromSheet(ctx, decoded, now); err != nil {
				s.Logger.Warn("failed to import project row", "row", rowIdx, "err", err)
				stats.Errors++
				continue
			}
			stats.Created++
			stats.Pulled++
			continue
		}
		claimed[p.ID] = true

		appHash := ProjectContentHash(p)
		sheetHash := ProjectContentHash(decoded)
		appChanged := Classify(p.LastAppContentHash, appHash).Diverged()
		sheetChanged := Classify(p.LastSheetContentHash, sheetHash).Diverged()

		switch {
		case !appChanged && !sheetChanged:
			stats.Skipped++
			if p.SheetRowIndex != rowIdx {
				s.updateRowAnchor(ctx, p, rowIdx)
			}

		case appChanged && !sheetChanged:
			pushes = append(pushes, pushAction{
				project: p,
				row:     rowIdx,
				hash:    appHash,
				values:  s.Codec.EncodeProjectRow(p),
			})

		case !appChanged && sheetChanged:
			if err := s.pull(ctx, p, decoded, sheetHash, rowIdx, now); err != nil {
				s.Logger.Warn("failed to pull project row", "row", rowIdx, "project", p.ID, "err", err)
				stats.Errors++
				continue
			}
			stats.Pulled++
			stats.Updated++

		default: // both diverged
			stats.Conflicts++
			res := ResolveConflict(p.UpdatedAt, decoded.UpdatedAt)
			s.Logger.Info("project conflict resolved",
				"project", p.ID, "row", rowIdx, "winner", res.Winner.String(), "reason", res.Reason)
			if res.Winner == SideApp {
				pushes = append(pushes, pushAction{
					project: p,
					row:     rowIdx,
					hash:    appHash,
					values:  s.Codec.EncodeProjectRow(p),
				})
			} else {
				if err := s.pull(ctx, p, decoded, sheetHash, rowIdx, now); err != nil {
					s.Logger.Warn("failed to apply conflict pull", "project", p.ID, "err", err)
					stats.Errors++
					continue
				}
				stats.Pulled++
				stats.Updated++
			}
		}
	}

	if err := s.flushPushes(ctx, pushes, now, &stats); err != nil {
		return stats, err
	}

	if err := s.appendNewProjects(ctx, projects, claimed, len(rows), now, &stats); err != nil {
		return stats, err
	}

	return stats, nil
}

// matchProject resolves a decoded row to a stored project: row-index
// anchor first, then exact name, then email + target date + name
// similarity. Already-claimed projects are skipped so two rows cannot
// collapse onto one record.
func (s *ProjectSync) matchProject(decoded *types.Project, projects []*types.Project, claimed map[int64]bool) *types.Project {
	for _, p := range projects {
		if !claimed[p.ID] && p.SheetRowIndex == decoded.SheetRowIndex {
			return p
		}
	}
	for _, p := range projects {
		if !claimed[p.ID] && identity.Similarity(p.Name, decoded.Name) == 1.0 {
			return p
		}
	}
	for _, p := range projects {
		if claimed[p.ID] || p.Email == "" || decoded.Email == "" {
			continue
		}
		if p.Email == decoded.Email && sameDay(p.TargetDate, decoded.TargetDate) &&
			identity.Similarity(p.Name, decoded.Name) >= projectNameSimilarity {
			return p
		}
	}
	return nil
}

// createFromSheet imports a sheet row as a new project. Baselines are
// set with the same write that creates the record.
func (s *ProjectSync) createFromSheet(ctx context.Context, decoded *types.Project, now time.Time) error {
	if s.DryRun {
		s.Logger.Info("[dry-run] would import project", "name", decoded.Name, "row", decoded.SheetRowIndex)
		return nil
	}
	h := ProjectContentHash(decoded)
	decoded.ExternalID = idgen.ProjectExternalID(decoded.Name, decoded.Email, decoded.TargetDate)
	decoded.LastAppContentHash = h
	decoded.LastSheetContentHash = h
	decoded.LastPulledFromSheetAt = &now
	decoded.LastSyncedAt = &now
	decoded.SyncStatus = types.SyncSynced
	return s.Store.CreateProject(ctx, decoded)
}

// pull applies sheet-side changes to the store, preserving app-owned
// fields: InternalNotes and every annotated sub-task survive untouched.
func (s *ProjectSync) pull(ctx context.Context, p *types.Project, decoded *types.Project, sheetHash string, rowIdx int, now time.Time) error {
	if s.DryRun {
		s.Logger.Info("[dry-run] would pull project", "project", p.ID, "row", rowIdx)
		return nil
	}

	merged := *p
	merged.Name = decoded.Name
	merged.Owner = decoded.Owner
	merged.Email = decoded.Email
	merged.Status = decoded.Status
	merged.TargetDate = decoded.TargetDate
	merged.SubTasks = mergeSubTasks(p.SubTasks, decoded.SubTasks)

	return s.Store.UpdateProject(ctx, p.ID, map[string]interface{}{
		"name":                      merged.Name,
		"owner":                     merged.Owner,
		"email":                     merged.Email,
		"status":                    merged.Status,
		"target_date":               merged.TargetDate,
		"sub_tasks":                 merged.SubTasks,
		"last_sheet_content_hash":   sheetHash,
		"last_app_content_hash":     ProjectContentHash(&merged),
		"last_pulled_from_sheet_at": now,
		"last_synced_at":            now,
		"sheet_row_index":           rowIdx,
		"sync_status":               types.SyncSynced,
	})
}

// flushPushes writes the batched app→sheet updates, then commits the
// store-side baselines only for writes that actually landed.
func (s *ProjectSync) flushPushes(ctx context.Context, pushes []pushAction, now time.Time, stats *types.PassStats) error {
	if len(pushes) == 0 {
		return nil
	}
	if s.DryRun {
		for _, a := range pushes {
			s.Logger.Info("[dry-run] would push project", "project", a.project.ID, "row", a.row)
			stats.Pushed++
		}
		return nil
	}

	updates := make([]sheets.RangeUpdate, len(pushes))
	for i, a := range pushes {
		updates[i] = sheets.RangeUpdate{
			Range:  s.Range.RowRange(a.row),
			Values: [][]string{a.values},
		}
	}
	if err := s.Sheet.BatchUpdate(ctx, updates); err != nil {
		return fmt.Errorf("pushing %d project rows: %w", len(pushes), err)
	}

	for _, a := range pushes {
		err := s.Store.UpdateProject(ctx, a.project.ID, map[string]interface{}{
			"last_app_content_hash":   a.hash,
			"last_sheet_content_hash": a.hash,
			"last_pushed_to_sheet_at": now,
			"last_synced_at":          now,
			"sheet_row_index":         a.row,
			"sync_status":             types.SyncSynced,
		})
		if err != nil {
			s.Logger.Warn("failed to record push baseline", "project", a.project.ID, "err", err)
			stats.Errors++
			continue
		}
		stats.Pushed++
	}
	return nil
}

// appendNewProjects writes app-side projects that have never been on the
// sheet to the bottom of the data range.
func (s *ProjectSync) appendNewProjects(ctx context.Context, projects []*types.Project, claimed map[int64]bool, rowCount int, now time.Time, stats *types.PassStats) error {
	var pending []*types.Project
	for _, p := range projects {
		if !claimed[p.ID] && p.SheetRowIndex == 0 {
			pending = append(pending, p)
		}
	}
	if len(pending) == 0 {
		return nil
	}
	if s.DryRun {
		for _, p := range pending {
			s.Logger.Info("[dry-run] would append project to sheet", "project", p.ID, "name", p.Name)
			stats.Pushed++
		}
		return nil
	}

	values := make([][]string, len(pending))
	for i, p := range pending {
		values[i] = s.Codec.EncodeProjectRow(p)
	}
	if err := s.Sheet.AppendRows(ctx, s.Range.DataRange(), values); err != nil {
		return fmt.Errorf("appending %d projects: %w", len(pending), err)
	}

	nextRow := s.Range.DataStartRow + rowCount
	for i, p := range pending {
		h := ProjectContentHash(p)
		err := s.Store.UpdateProject(ctx, p.ID, map[string]interface{}{
			"last_app_content_hash":   h,
			"last_sheet_content_hash": h,
			"last_pushed_to_sheet_at": now,
			"last_synced_at":          now,
			"sheet_row_index":         nextRow + i,
			"sync_status":             types.SyncSynced,
		})
		if err != nil {
			s.Logger.Warn("failed to record append baseline", "project", p.ID, "err", err)
			stats.Errors++
			continue
		}
		stats.Pushed++
	}
	return nil
}

func (s *ProjectSync) updateRowAnchor(ctx context.Context, p *types.Project, rowIdx int) {
	if s.DryRun {
		return
	}
	err := s.Store.UpdateProject(ctx, p.ID, map[string]interface{}{
		"sheet_row_index": rowIdx,
	})
	if err != nil {
		s.Logger.Warn("failed to update row anchor", "project", p.ID, "err", err)
	}
}

// mergeSubTasks merges the sheet's sub-task list into the app's.
// Annotated app sub-tasks are protected: if the sheet still lists the
// title, the app's version wins wholesale; if the sheet dropped it, it
// is retained at the end rather than deleted.
func mergeSubTasks(app, sheet []types.SubTask) []types.SubTask {
	protected := make(map[string]types.SubTask)
	for _, st := range app {
		if st.Annotation != "" {
			protected[foldTitle(st.Title)] = st
		}
	}

	merged := make([]types.SubTask, 0, len(sheet))
	seen := make(map[string]bool)
	for _, st := range sheet {
		key := foldTitle(st.Title)
		seen[key] = true
		if kept, ok := protected[key]; ok {
			merged = append(merged, kept)
			continue
		}
		merged = append(merged, st)
	}

	for _, st := range app {
		if st.Annotation != "" && !seen[foldTitle(st.Title)] {
			merged = append(merged, st)
		}
	}
	return merged
}

func foldTitle(s string) string {
	return identity.FoldKey(s)
}

// sameDay compares two dates at day granularity; zero dates never match.
func sameDay(a, b time.Time) bool {
	if a.IsZero() || b.IsZero() {
		return false
	}
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}

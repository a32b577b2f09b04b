package usecase

import (
	"context"
	"fmt"
	"log"
	"sort"

	emaildomain "mailboard-backend/internal/email/domain"
	emaildto "mailboard-backend/internal/email/dto"
	"mailboard-backend/internal/email/repository"
)

// ResolveColumnForLabels picks the column an email belongs to.
// columns must be the active columns in board order. The first bound column whose
// label is on the email wins, then an unbound column the email is pinned to, then the default column.
func ResolveColumnForLabels(columns []*emaildomain.KanbanColumn, labelIDs []string, pinnedColumnIDs map[string]bool) *emaildomain.KanbanColumn {
	labels := make(map[string]bool, len(labelIDs))
	for _, id := range labelIDs {
		labels[id] = true
	}

	for _, col := range columns {
		if col.IsActive() && col.IsBound() && labels[col.LabelID] {
			return col
		}
	}
	for _, col := range columns {
		if col.IsActive() && !col.IsBound() && pinnedColumnIDs[col.ID] {
			return col
		}
	}
	for _, col := range columns {
		if col.IsActive() && col.IsDefault {
			return col
		}
	}
	return nil
}

// moveLabelDelta computes the single label change that makes target the resolved column.
// Besides the source label, labels of bound columns ranked above target are removed too,
// since they would otherwise keep winning resolution.
func moveLabelDelta(columns []*emaildomain.KanbanColumn, source, target *emaildomain.KanbanColumn, labelIDs []string) (add, remove []string) {
	present := make(map[string]bool, len(labelIDs))
	for _, id := range labelIDs {
		present[id] = true
	}

	if target.IsBound() {
		add = append(add, target.LabelID)
	}

	seen := make(map[string]bool)
	appendRemove := func(id string) {
		if id == "" || id == target.LabelID || seen[id] {
			return
		}
		seen[id] = true
		remove = append(remove, id)
	}

	if source != nil && source.IsBound() {
		appendRemove(source.LabelID)
	}
	for _, col := range columns {
		if col.ID == target.ID && target.IsBound() {
			break
		}
		if col.IsBound() && present[col.LabelID] {
			appendRemove(col.LabelID)
		}
	}
	return add, remove
}

// columnResolver loads what resolution needs from the store
type columnResolver struct {
	columnRepo   repository.KanbanColumnRepository
	positionRepo repository.EmailPositionRepository
}

func (r *columnResolver) resolve(ctx context.Context, userID, emailID string, labelIDs []string) (*emaildomain.KanbanColumn, []*emaildomain.KanbanColumn, error) {
	if _, err := ensureDefaultColumn(ctx, r.columnRepo, userID); err != nil {
		return nil, nil, err
	}
	columns, err := r.columnRepo.GetColumnsByUserID(ctx, userID)
	if err != nil {
		return nil, nil, err
	}

	positions, err := r.positionRepo.GetPositionsByEmail(ctx, userID, emailID)
	if err != nil {
		return nil, nil, err
	}
	pinned := make(map[string]bool, len(positions))
	for _, p := range positions {
		pinned[p.ColumnID] = true
	}

	column := ResolveColumnForLabels(columns, labelIDs, pinned)
	if column == nil {
		return nil, nil, emaildomain.ErrColumnNotFound
	}
	return column, columns, nil
}

type placementUsecase struct {
	resolver     *columnResolver
	columnRepo   repository.KanbanColumnRepository
	positionRepo repository.EmailPositionRepository
	snoozeRepo   repository.SnoozeRepository
	mailProvider emaildomain.MailProvider
	topicName    string
}

func NewPlacementUsecase(
	columnRepo repository.KanbanColumnRepository,
	positionRepo repository.EmailPositionRepository,
	snoozeRepo repository.SnoozeRepository,
	mailProvider emaildomain.MailProvider,
	topicName string,
) PlacementUsecase {
	return &placementUsecase{
		resolver:     &columnResolver{columnRepo: columnRepo, positionRepo: positionRepo},
		columnRepo:   columnRepo,
		positionRepo: positionRepo,
		snoozeRepo:   snoozeRepo,
		mailProvider: mailProvider,
		topicName:    topicName,
	}
}

func (u *placementUsecase) ResolveColumn(ctx context.Context, userID, emailID string) (*emaildomain.KanbanColumn, error) {
	labels, err := u.mailProvider.GetMessageLabels(ctx, userID, emailID)
	if err != nil {
		return nil, fmt.Errorf("failed to get message labels: %w", err)
	}
	column, _, err := u.resolver.resolve(ctx, userID, emailID, labels)
	return column, err
}

func (u *placementUsecase) Move(ctx context.Context, userID, emailID, targetColumnID string) error {
	target, err := u.columnRepo.GetColumnByID(ctx, userID, targetColumnID)
	if err != nil {
		return err
	}
	if target == nil {
		return emaildomain.ErrColumnNotFound
	}

	snoozed, err := u.snoozeRepo.FindActiveByEmail(ctx, userID, emailID)
	if err != nil {
		return err
	}
	if snoozed != nil {
		return emaildomain.ErrEmailSnoozed
	}

	labels, err := u.mailProvider.GetMessageLabels(ctx, userID, emailID)
	if err != nil {
		return fmt.Errorf("failed to get message labels: %w", err)
	}
	source, columns, err := u.resolver.resolve(ctx, userID, emailID, labels)
	if err != nil {
		return err
	}
	if source.ID == target.ID {
		return u.positionRepo.PlaceEmail(ctx, userID, emailID, target.ID)
	}

	add, remove := moveLabelDelta(columns, source, target, labels)
	log.Printf("[MoveEmail] Email %s: %s (label: %q) -> %s (label: %q), add: %v, remove: %v",
		emailID, source.ID, source.LabelID, target.ID, target.LabelID, add, remove)

	if len(add) > 0 || len(remove) > 0 {
		if err := u.mailProvider.ModifyMessageLabels(ctx, userID, emailID, add, remove); err != nil {
			return fmt.Errorf("failed to modify message labels: %w", err)
		}
	}

	if err := u.positionRepo.PlaceEmail(ctx, userID, emailID, target.ID); err != nil {
		// Undo the remote change so membership stays a projection of labels
		if len(add) > 0 || len(remove) > 0 {
			if revertErr := u.mailProvider.ModifyMessageLabels(ctx, userID, emailID, remove, add); revertErr != nil {
				log.Printf("[MoveEmail] Failed to revert labels for email %s: %v", emailID, revertErr)
			}
		}
		return fmt.Errorf("failed to save email position: %w", err)
	}

	return nil
}

func (u *placementUsecase) ReorderWithinColumn(ctx context.Context, userID string, req *emaildto.ReorderEmailsRequest) error {
	if err := emaildto.Validate(req); err != nil {
		return err
	}

	verr := &emaildomain.ValidationError{}
	seen := make(map[string]bool, len(req.EmailIDs))
	for i, id := range req.EmailIDs {
		if seen[id] {
			verr.Add(fmt.Sprintf("email_ids[%d]", i), "must be unique")
		}
		seen[id] = true
	}
	if err := verr.OrNil(); err != nil {
		return err
	}

	column, err := u.columnRepo.GetColumnByID(ctx, userID, req.ColumnID)
	if err != nil {
		return err
	}
	if column == nil {
		return emaildomain.ErrColumnNotFound
	}

	if !column.IsBound() {
		// Position rows are membership for unbound columns, reorder must not add members
		positions, err := u.positionRepo.GetPositionsByColumn(ctx, userID, column.ID)
		if err != nil {
			return err
		}
		members := make(map[string]bool, len(positions))
		for _, p := range positions {
			members[p.EmailID] = true
		}
		for i, id := range req.EmailIDs {
			if !members[id] {
				verr.Add(fmt.Sprintf("email_ids[%d]", i), "is not in this column")
			}
		}
		if err := verr.OrNil(); err != nil {
			return err
		}
	}

	return u.positionRepo.SetColumnOrder(ctx, userID, column.ID, req.EmailIDs)
}

func (u *placementUsecase) ListColumnEmails(ctx context.Context, userID, columnID string, limit int) (*emaildomain.KanbanColumn, []string, error) {
	column, err := u.columnRepo.GetColumnByID(ctx, userID, columnID)
	if err != nil {
		return nil, nil, err
	}
	if column == nil {
		return nil, nil, emaildomain.ErrColumnNotFound
	}

	positions, err := u.positionRepo.GetPositionsByColumn(ctx, userID, column.ID)
	if err != nil {
		return nil, nil, err
	}

	var ids []string
	if column.IsBound() {
		columns, err := u.columnRepo.GetColumnsByUserID(ctx, userID)
		if err != nil {
			return nil, nil, err
		}
		// Emails carrying a higher-ranked column's label resolve there instead
		var exclude []string
		for _, col := range columns {
			if col.ID == column.ID {
				break
			}
			if col.IsBound() {
				exclude = append(exclude, col.LabelID)
			}
		}
		ids, err = u.mailProvider.ListMessageIDs(ctx, userID, column.LabelID, exclude, limit)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to list messages: %w", err)
		}
	} else {
		for _, p := range positions {
			ids = append(ids, p.EmailID)
		}
	}

	snoozed, err := u.snoozeRepo.FindActiveByUser(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	hidden := make(map[string]bool, len(snoozed))
	for _, rec := range snoozed {
		hidden[rec.EmailID] = true
	}

	ordered := orderByPosition(ids, positions, hidden)
	if limit > 0 && len(ordered) > limit {
		ordered = ordered[:limit]
	}
	return column, ordered, nil
}

// orderByPosition puts manually positioned ids first, the rest keep their incoming order
func orderByPosition(ids []string, positions []*emaildomain.EmailPosition, hidden map[string]bool) []string {
	rank := make(map[string]int, len(positions))
	for _, p := range positions {
		rank[p.EmailID] = p.Position
	}

	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if !hidden[id] {
			out = append(out, id)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		ri, iok := rank[out[i]]
		rj, jok := rank[out[j]]
		switch {
		case iok && jok:
			return ri < rj
		case iok:
			return true
		default:
			return false
		}
	})
	return out
}

func (u *placementUsecase) WatchMailbox(ctx context.Context, userID string) error {
	if u.topicName == "" {
		return fmt.Errorf("push notifications are not configured")
	}
	return u.mailProvider.Watch(ctx, userID, u.topicName)
}

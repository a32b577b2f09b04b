package usecase

import (
	"context"
	"fmt"
	"log"

	emaildomain "mailboard-backend/internal/email/domain"
	emaildto "mailboard-backend/internal/email/dto"
	"mailboard-backend/internal/email/repository"
)

const defaultColumnName = "Inbox"

type columnUsecase struct {
	columnRepo   repository.KanbanColumnRepository
	mailProvider emaildomain.MailProvider
}

func NewColumnUsecase(columnRepo repository.KanbanColumnRepository, mailProvider emaildomain.MailProvider) ColumnUsecase {
	return &columnUsecase{
		columnRepo:   columnRepo,
		mailProvider: mailProvider,
	}
}

// ensureDefaultColumn provisions the fallback inbox column the first time a user's board is read
func ensureDefaultColumn(ctx context.Context, columnRepo repository.KanbanColumnRepository, userID string) (*emaildomain.KanbanColumn, error) {
	column, created, err := columnRepo.EnsureDefaultColumn(ctx, &emaildomain.KanbanColumn{
		UserID:    userID,
		Name:      defaultColumnName,
		LabelID:   emaildomain.DefaultColumnLabelID,
		LabelName: emaildomain.DefaultColumnLabelID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create default column: %w", err)
	}
	if created {
		log.Printf("[Kanban] Provisioned default column %s for user %s", column.ID, userID)
	}
	return column, nil
}

func (u *columnUsecase) ListColumns(ctx context.Context, userID string) ([]*emaildomain.KanbanColumn, error) {
	if _, err := ensureDefaultColumn(ctx, u.columnRepo, userID); err != nil {
		return nil, err
	}
	return u.columnRepo.GetColumnsByUserID(ctx, userID)
}

func (u *columnUsecase) GetColumn(ctx context.Context, userID, columnID string) (*emaildomain.KanbanColumn, error) {
	column, err := u.columnRepo.GetColumnByID(ctx, userID, columnID)
	if err != nil {
		return nil, err
	}
	if column == nil {
		return nil, emaildomain.ErrColumnNotFound
	}
	return column, nil
}

func (u *columnUsecase) CreateColumn(ctx context.Context, userID string, req *emaildto.CreateColumnRequest) (*emaildomain.KanbanColumn, error) {
	if err := emaildto.Validate(req); err != nil {
		return nil, err
	}

	column := &emaildomain.KanbanColumn{
		UserID: userID,
		Name:   req.Name,
	}

	switch req.LabelOption {
	case emaildomain.LabelOptionExisting:
		labels, err := u.mailProvider.ListLabels(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("failed to list labels: %w", err)
		}
		label := findLabel(labels, func(l *emaildomain.Label) bool { return l.ID == req.LabelID })
		if label == nil {
			return nil, fmt.Errorf("%w: %s", emaildomain.ErrLabelNotFound, req.LabelID)
		}
		column.LabelID = label.ID
		column.LabelName = label.Name
	case emaildomain.LabelOptionNew:
		label, err := u.mailProvider.CreateLabel(ctx, userID, req.LabelName)
		if err != nil {
			return nil, fmt.Errorf("failed to create label: %w", err)
		}
		column.LabelID = label.ID
		column.LabelName = label.Name
	}

	// Provision the default first so concurrent creates on a fresh board serialize on its row lock
	if _, err := ensureDefaultColumn(ctx, u.columnRepo, userID); err != nil {
		return nil, err
	}
	if err := u.columnRepo.CreateColumn(ctx, column); err != nil {
		return nil, err
	}
	log.Printf("[Kanban] Created column %s (label: %q) for user %s", column.ID, column.LabelID, userID)
	return column, nil
}

func (u *columnUsecase) RenameColumn(ctx context.Context, userID, columnID string, req *emaildto.RenameColumnRequest) (*emaildomain.KanbanColumn, error) {
	if err := emaildto.Validate(req); err != nil {
		return nil, err
	}
	if err := u.columnRepo.RenameColumn(ctx, userID, columnID, req.Name); err != nil {
		return nil, err
	}
	return u.GetColumn(ctx, userID, columnID)
}

func (u *columnUsecase) DeactivateColumn(ctx context.Context, userID, columnID string) error {
	column, err := u.GetColumn(ctx, userID, columnID)
	if err != nil {
		return err
	}
	if column.IsDefault {
		return emaildomain.ErrDefaultColumn
	}
	return u.columnRepo.DeactivateColumn(ctx, userID, columnID)
}

func (u *columnUsecase) ReorderColumns(ctx context.Context, userID string, req *emaildto.ReorderColumnsRequest) ([]*emaildomain.KanbanColumn, error) {
	if err := emaildto.Validate(req); err != nil {
		return nil, err
	}
	if err := u.columnRepo.UpdateColumnOrders(ctx, userID, req.Orders); err != nil {
		return nil, err
	}
	return u.columnRepo.GetColumnsByUserID(ctx, userID)
}

func (u *columnUsecase) ListLabels(ctx context.Context, userID string) ([]*emaildomain.Label, error) {
	return u.mailProvider.ListLabels(ctx, userID)
}

func findLabel(labels []*emaildomain.Label, match func(*emaildomain.Label) bool) *emaildomain.Label {
	for _, l := range labels {
		if match(l) {
			return l
		}
	}
	return nil
}

package delivery

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	emaildomain "mailboard-backend/internal/email/domain"
	emaildto "mailboard-backend/internal/email/dto"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockColumnUsecase struct{ mock.Mock }

func (m *MockColumnUsecase) ListColumns(ctx context.Context, userID string) ([]*emaildomain.KanbanColumn, error) {
	args := m.Called(ctx, userID)
	cols, _ := args.Get(0).([]*emaildomain.KanbanColumn)
	return cols, args.Error(1)
}

func (m *MockColumnUsecase) GetColumn(ctx context.Context, userID, columnID string) (*emaildomain.KanbanColumn, error) {
	args := m.Called(ctx, userID, columnID)
	col, _ := args.Get(0).(*emaildomain.KanbanColumn)
	return col, args.Error(1)
}

func (m *MockColumnUsecase) CreateColumn(ctx context.Context, userID string, req *emaildto.CreateColumnRequest) (*emaildomain.KanbanColumn, error) {
	args := m.Called(ctx, userID, req)
	col, _ := args.Get(0).(*emaildomain.KanbanColumn)
	return col, args.Error(1)
}

func (m *MockColumnUsecase) RenameColumn(ctx context.Context, userID, columnID string, req *emaildto.RenameColumnRequest) (*emaildomain.KanbanColumn, error) {
	args := m.Called(ctx, userID, columnID, req)
	col, _ := args.Get(0).(*emaildomain.KanbanColumn)
	return col, args.Error(1)
}

func (m *MockColumnUsecase) DeactivateColumn(ctx context.Context, userID, columnID string) error {
	return m.Called(ctx, userID, columnID).Error(0)
}

func (m *MockColumnUsecase) ReorderColumns(ctx context.Context, userID string, req *emaildto.ReorderColumnsRequest) ([]*emaildomain.KanbanColumn, error) {
	args := m.Called(ctx, userID, req)
	cols, _ := args.Get(0).([]*emaildomain.KanbanColumn)
	return cols, args.Error(1)
}

func (m *MockColumnUsecase) ListLabels(ctx context.Context, userID string) ([]*emaildomain.Label, error) {
	args := m.Called(ctx, userID)
	labels, _ := args.Get(0).([]*emaildomain.Label)
	return labels, args.Error(1)
}

type MockPlacementUsecase struct{ mock.Mock }

func (m *MockPlacementUsecase) ResolveColumn(ctx context.Context, userID, emailID string) (*emaildomain.KanbanColumn, error) {
	args := m.Called(ctx, userID, emailID)
	col, _ := args.Get(0).(*emaildomain.KanbanColumn)
	return col, args.Error(1)
}

func (m *MockPlacementUsecase) Move(ctx context.Context, userID, emailID, targetColumnID string) error {
	return m.Called(ctx, userID, emailID, targetColumnID).Error(0)
}

func (m *MockPlacementUsecase) ReorderWithinColumn(ctx context.Context, userID string, req *emaildto.ReorderEmailsRequest) error {
	return m.Called(ctx, userID, req).Error(0)
}

func (m *MockPlacementUsecase) ListColumnEmails(ctx context.Context, userID, columnID string, limit int) (*emaildomain.KanbanColumn, []string, error) {
	args := m.Called(ctx, userID, columnID, limit)
	col, _ := args.Get(0).(*emaildomain.KanbanColumn)
	ids, _ := args.Get(1).([]string)
	return col, ids, args.Error(2)
}

func (m *MockPlacementUsecase) WatchMailbox(ctx context.Context, userID string) error {
	return m.Called(ctx, userID).Error(0)
}

type MockSnoozeUsecase struct{ mock.Mock }

func (m *MockSnoozeUsecase) Snooze(ctx context.Context, userID, emailID string, req *emaildto.SnoozeRequest) (*emaildomain.SnoozeRecord, error) {
	args := m.Called(ctx, userID, emailID, req)
	rec, _ := args.Get(0).(*emaildomain.SnoozeRecord)
	return rec, args.Error(1)
}

func (m *MockSnoozeUsecase) Unsnooze(ctx context.Context, userID, emailID string) (string, error) {
	args := m.Called(ctx, userID, emailID)
	return args.String(0), args.Error(1)
}

func (m *MockSnoozeUsecase) ListSnoozed(ctx context.Context, userID string) ([]*emaildomain.SnoozeRecord, error) {
	args := m.Called(ctx, userID)
	recs, _ := args.Get(0).([]*emaildomain.SnoozeRecord)
	return recs, args.Error(1)
}

func (m *MockSnoozeUsecase) RestoreDue(ctx context.Context, now time.Time) (*emaildomain.SweepResult, error) {
	args := m.Called(ctx, now)
	res, _ := args.Get(0).(*emaildomain.SweepResult)
	return res, args.Error(1)
}

type handlerFixture struct {
	router    *gin.Engine
	columns   *MockColumnUsecase
	placement *MockPlacementUsecase
	snooze    *MockSnoozeUsecase
}

func newHandlerFixture(t *testing.T) *handlerFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	f := &handlerFixture{
		columns:   new(MockColumnUsecase),
		placement: new(MockPlacementUsecase),
		snooze:    new(MockSnoozeUsecase),
	}
	h := NewEmailHandler(f.columns, f.placement, f.snooze)

	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("userID", "u1")
		c.Next()
	})
	r.GET("/kanban/columns", h.GetKanbanColumns)
	r.POST("/kanban/columns", h.CreateKanbanColumn)
	r.PUT("/kanban/columns/orders", h.UpdateKanbanColumnOrders)
	r.GET("/kanban/columns/:column_id", h.GetKanbanColumn)
	r.PATCH("/kanban/columns/:column_id", h.RenameKanbanColumn)
	r.DELETE("/kanban/columns/:column_id", h.DeleteKanbanColumn)
	r.POST("/kanban/reorder", h.ReorderEmails)
	r.GET("/emails/snoozed", h.GetSnoozedEmails)
	r.GET("/emails/:id/column", h.GetEmailColumn)
	r.POST("/emails/:id/move", h.MoveEmail)
	r.POST("/emails/:id/snooze", h.SnoozeEmail)
	r.POST("/emails/:id/unsnooze", h.UnsnoozeEmail)
	f.router = r

	t.Cleanup(func() {
		f.columns.AssertExpectations(t)
		f.placement.AssertExpectations(t)
		f.snooze.AssertExpectations(t)
	})
	return f
}

func (f *handlerFixture) do(t *testing.T, method, path, body string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)

	var decoded map[string]interface{}
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &decoded))
	}
	return w, decoded
}

func TestGetKanbanColumns(t *testing.T) {
	f := newHandlerFixture(t)
	f.columns.On("ListColumns", mock.Anything, "u1").Return([]*emaildomain.KanbanColumn{
		{ID: "inbox", Name: "Inbox", LabelID: "INBOX", IsDefault: true},
	}, nil)

	w, body := f.do(t, http.MethodGet, "/kanban/columns", "")

	assert.Equal(t, http.StatusOK, w.Code)
	cols := body["columns"].([]interface{})
	require.Len(t, cols, 1)
	assert.Equal(t, "inbox", cols[0].(map[string]interface{})["id"])
}

func TestCreateKanbanColumn(t *testing.T) {
	f := newHandlerFixture(t)
	f.columns.On("CreateColumn", mock.Anything, "u1", mock.MatchedBy(func(req *emaildto.CreateColumnRequest) bool {
		return req.Name == "Todo" && req.LabelOption == emaildomain.LabelOptionNone
	})).Return(&emaildomain.KanbanColumn{ID: "c1", Name: "Todo"}, nil)

	w, body := f.do(t, http.MethodPost, "/kanban/columns", `{"name":"Todo","label_option":"none"}`)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "c1", body["id"])
}

func TestCreateKanbanColumn_ValidationFields(t *testing.T) {
	f := newHandlerFixture(t)
	verr := &emaildomain.ValidationError{}
	verr.Add("name", "is required")
	verr.Add("label_id", "is required for label_option existing")
	f.columns.On("CreateColumn", mock.Anything, "u1", mock.Anything).Return(nil, verr)

	w, body := f.do(t, http.MethodPost, "/kanban/columns", `{"label_option":"existing"}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "validation failed", body["error"])
	fields := body["fields"].([]interface{})
	require.Len(t, fields, 2)
	assert.Equal(t, "label_id", fields[1].(map[string]interface{})["field"])
}

func TestCreateKanbanColumn_MalformedBody(t *testing.T) {
	f := newHandlerFixture(t)

	w, body := f.do(t, http.MethodPost, "/kanban/columns", `{"name":`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	fields := body["fields"].([]interface{})
	assert.Equal(t, "body", fields[0].(map[string]interface{})["field"])
	f.columns.AssertNotCalled(t, "CreateColumn", mock.Anything, mock.Anything, mock.Anything)
}

func TestErrorStatusMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"column not found", emaildomain.ErrColumnNotFound, http.StatusNotFound},
		{"label not found", fmt.Errorf("%w: Label_1", emaildomain.ErrLabelNotFound), http.StatusNotFound},
		{"default column", emaildomain.ErrDefaultColumn, http.StatusConflict},
		{"provider failure", fmt.Errorf("failed to list labels: %w", emaildomain.ErrProviderFailure), http.StatusBadGateway},
		{"unexpected", errors.New("database is closed"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newHandlerFixture(t)
			f.columns.On("DeactivateColumn", mock.Anything, "u1", "c1").Return(tt.err)

			w, body := f.do(t, http.MethodDelete, "/kanban/columns/c1", "")

			assert.Equal(t, tt.status, w.Code)
			if tt.status == http.StatusInternalServerError {
				assert.Equal(t, "internal server error", body["error"])
			}
		})
	}
}

func TestGetKanbanColumn_Limit(t *testing.T) {
	tests := []struct {
		query string
		limit int
	}{
		{"", defaultColumnEmailLimit},
		{"?limit=10", 10},
		{"?limit=abc", defaultColumnEmailLimit},
		{"?limit=-3", defaultColumnEmailLimit},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			f := newHandlerFixture(t)
			f.placement.On("ListColumnEmails", mock.Anything, "u1", "c1", tt.limit).
				Return(&emaildomain.KanbanColumn{ID: "c1"}, []string{"m2", "m1"}, nil)

			w, body := f.do(t, http.MethodGet, "/kanban/columns/c1"+tt.query, "")

			assert.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, []interface{}{"m2", "m1"}, body["email_ids"])
		})
	}
}

func TestMoveEmail(t *testing.T) {
	f := newHandlerFixture(t)
	f.placement.On("Move", mock.Anything, "u1", "m1", "c2").Return(nil)

	w, body := f.do(t, http.MethodPost, "/emails/m1/move", `{"column_id":"c2"}`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "m1", body["email_id"])
	assert.Equal(t, "c2", body["column_id"])
}

func TestMoveEmail_MissingColumn(t *testing.T) {
	f := newHandlerFixture(t)

	w, body := f.do(t, http.MethodPost, "/emails/m1/move", `{}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	fields := body["fields"].([]interface{})
	assert.Equal(t, "column_id", fields[0].(map[string]interface{})["field"])
	f.placement.AssertNotCalled(t, "Move", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestMoveEmail_Errors(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{emaildomain.ErrEmailSnoozed, http.StatusConflict},
		{emaildomain.ErrColumnNotFound, http.StatusNotFound},
		{fmt.Errorf("failed to modify message labels: %w", emaildomain.ErrProviderFailure), http.StatusBadGateway},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			f := newHandlerFixture(t)
			f.placement.On("Move", mock.Anything, "u1", "m1", "c2").Return(tt.err)

			w, _ := f.do(t, http.MethodPost, "/emails/m1/move", `{"column_id":"c2"}`)

			assert.Equal(t, tt.status, w.Code)
		})
	}
}

func TestSnoozeEmail(t *testing.T) {
	f := newHandlerFixture(t)
	wake := time.Date(2024, 1, 2, 9, 0, 0, 0, time.UTC)
	f.snooze.On("Snooze", mock.Anything, "u1", "m1", mock.MatchedBy(func(req *emaildto.SnoozeRequest) bool {
		return req.Preset == emaildomain.PresetTomorrow && req.Until == nil
	})).Return(&emaildomain.SnoozeRecord{ID: "s1", EmailID: "m1", WakeAt: wake}, nil)

	w, body := f.do(t, http.MethodPost, "/emails/m1/snooze", `{"preset":"tomorrow"}`)

	assert.Equal(t, http.StatusOK, w.Code)
	snooze := body["snooze"].(map[string]interface{})
	assert.Equal(t, "2024-01-02T09:00:00Z", snooze["wake_at"])
}

func TestUnsnoozeEmail(t *testing.T) {
	f := newHandlerFixture(t)
	f.snooze.On("Unsnooze", mock.Anything, "u1", "m1").Return("c1", nil)
	f.snooze.On("Unsnooze", mock.Anything, "u1", "m2").Return("", emaildomain.ErrNotSnoozed)

	w, body := f.do(t, http.MethodPost, "/emails/m1/unsnooze", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "c1", body["column_id"])

	w, _ = f.do(t, http.MethodPost, "/emails/m2/unsnooze", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetEmailColumn(t *testing.T) {
	f := newHandlerFixture(t)
	f.placement.On("ResolveColumn", mock.Anything, "u1", "m1").Return(&emaildomain.KanbanColumn{ID: "c3"}, nil)

	w, body := f.do(t, http.MethodGet, "/emails/m1/column", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "c3", body["column_id"])
}

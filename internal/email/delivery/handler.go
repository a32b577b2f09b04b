package delivery

import (
	"net/http"
	"strconv"

	emaildto "mailboard-backend/internal/email/dto"
	"mailboard-backend/internal/email/usecase"

	"github.com/gin-gonic/gin"
)

const defaultColumnEmailLimit = 50

type EmailHandler struct {
	columnUsecase    usecase.ColumnUsecase
	placementUsecase usecase.PlacementUsecase
	snoozeUsecase    usecase.SnoozeUsecase
}

func NewEmailHandler(columnUsecase usecase.ColumnUsecase, placementUsecase usecase.PlacementUsecase, snoozeUsecase usecase.SnoozeUsecase) *EmailHandler {
	return &EmailHandler{
		columnUsecase:    columnUsecase,
		placementUsecase: placementUsecase,
		snoozeUsecase:    snoozeUsecase,
	}
}

func (h *EmailHandler) GetKanbanColumns(c *gin.Context) {
	columns, err := h.columnUsecase.ListColumns(c.Request.Context(), c.GetString("userID"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, emaildto.ColumnsResponse{Columns: columns})
}

func (h *EmailHandler) CreateKanbanColumn(c *gin.Context) {
	var req emaildto.CreateColumnRequest
	if !bindJSON(c, &req) {
		return
	}

	column, err := h.columnUsecase.CreateColumn(c.Request.Context(), c.GetString("userID"), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, column)
}

func (h *EmailHandler) RenameKanbanColumn(c *gin.Context) {
	var req emaildto.RenameColumnRequest
	if !bindJSON(c, &req) {
		return
	}

	column, err := h.columnUsecase.RenameColumn(c.Request.Context(), c.GetString("userID"), c.Param("column_id"), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, column)
}

func (h *EmailHandler) DeleteKanbanColumn(c *gin.Context) {
	if err := h.columnUsecase.DeactivateColumn(c.Request.Context(), c.GetString("userID"), c.Param("column_id")); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "column deleted"})
}

func (h *EmailHandler) UpdateKanbanColumnOrders(c *gin.Context) {
	var req emaildto.ReorderColumnsRequest
	if !bindJSON(c, &req) {
		return
	}

	columns, err := h.columnUsecase.ReorderColumns(c.Request.Context(), c.GetString("userID"), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, emaildto.ColumnsResponse{Columns: columns})
}

func (h *EmailHandler) GetKanbanColumn(c *gin.Context) {
	limit := defaultColumnEmailLimit
	if limitStr := c.Query("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	column, ids, err := h.placementUsecase.ListColumnEmails(c.Request.Context(), c.GetString("userID"), c.Param("column_id"), limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, emaildto.ColumnEmailsResponse{Column: column, EmailIDs: ids})
}

func (h *EmailHandler) GetLabels(c *gin.Context) {
	labels, err := h.columnUsecase.ListLabels(c.Request.Context(), c.GetString("userID"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, emaildto.LabelsResponse{Labels: labels})
}

func (h *EmailHandler) ReorderEmails(c *gin.Context) {
	var req emaildto.ReorderEmailsRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := h.placementUsecase.ReorderWithinColumn(c.Request.Context(), c.GetString("userID"), &req); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "emails reordered"})
}

func (h *EmailHandler) GetEmailColumn(c *gin.Context) {
	emailID := c.Param("id")
	column, err := h.placementUsecase.ResolveColumn(c.Request.Context(), c.GetString("userID"), emailID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, emaildto.EmailColumnResponse{EmailID: emailID, ColumnID: column.ID})
}

func (h *EmailHandler) MoveEmail(c *gin.Context) {
	var req emaildto.MoveEmailRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := emaildto.Validate(&req); err != nil {
		respondError(c, err)
		return
	}

	emailID := c.Param("id")
	if err := h.placementUsecase.Move(c.Request.Context(), c.GetString("userID"), emailID, req.ColumnID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, emaildto.EmailColumnResponse{EmailID: emailID, ColumnID: req.ColumnID})
}

func (h *EmailHandler) SnoozeEmail(c *gin.Context) {
	var req emaildto.SnoozeRequest
	if !bindJSON(c, &req) {
		return
	}

	record, err := h.snoozeUsecase.Snooze(c.Request.Context(), c.GetString("userID"), c.Param("id"), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, emaildto.SnoozeResponse{Record: record})
}

func (h *EmailHandler) GetSnoozedEmails(c *gin.Context) {
	records, err := h.snoozeUsecase.ListSnoozed(c.Request.Context(), c.GetString("userID"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, emaildto.SnoozedResponse{Snoozed: records})
}

func (h *EmailHandler) UnsnoozeEmail(c *gin.Context) {
	emailID := c.Param("id")
	columnID, err := h.snoozeUsecase.Unsnooze(c.Request.Context(), c.GetString("userID"), emailID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, emaildto.EmailColumnResponse{EmailID: emailID, ColumnID: columnID})
}

func (h *EmailHandler) WatchMailbox(c *gin.Context) {
	if err := h.placementUsecase.WatchMailbox(c.Request.Context(), c.GetString("userID")); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "watch started"})
}

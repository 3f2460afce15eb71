package allowance

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"github.com/zakgeld/moni/internal/rest"
	"github.com/zakgeld/moni/pkg/balance"
	"github.com/zakgeld/moni/pkg/session"
)

// EntryDTO accepts amounts as JSON numbers or decimal strings.
type EntryDTO struct {
	WeekId    string          `json:"weekId,omitempty"`
	Chores    decimal.Decimal `json:"chores"`
	Spending  decimal.Decimal `json:"spending"`
	Savings   decimal.Decimal `json:"savings"`
	Withdrawn decimal.Decimal `json:"withdrawn"`
}

type PreviewDTO struct {
	Owner         string `json:"owner"`
	WeekId        string `json:"weekId"`
	PriorBalance  string `json:"priorBalance"`
	Income        string `json:"income"`
	Expenses      string `json:"expenses"`
	WeekResult    string `json:"weekResult"`
	Available     string `json:"available"`
	MaxWithdrawal string `json:"maxWithdrawal"`
	Withdrawn     string `json:"withdrawn"`
	NewBalance    string `json:"newBalance"`
	NegativeWeek  bool   `json:"negativeWeek"`
}

type RecordDTO struct {
	WeekId         string    `json:"weekId"`
	Income         string    `json:"income"`
	Expenses       string    `json:"expenses"`
	Withdrawn      string    `json:"withdrawn"`
	RunningBalance string    `json:"runningBalance"`
	CreatedAt      time.Time `json:"createdAt"`
}

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// Preview godoc
// @Summary Compute a week without storing it
// @Tags Allowance
// @Accept json
// @Produce json
// @Param entry body EntryDTO true "Week entry"
// @Success 200 {object} PreviewDTO
// @Failure 400 {object} rest.ErrorResponse "Invalid amounts"
// @Failure 422 {object} rest.ErrorResponse "Expenses exceed income"
// @Failure 503 {object} rest.ErrorResponse "Record store unavailable"
// @Router /api/allowance/preview [post]
func (h *Handler) Preview(w http.ResponseWriter, r *http.Request) {
	entry, ok := decodeEntry(w, r)
	if !ok {
		return
	}
	preview, err := h.service.Preview(r.Context(), entry)
	if err != nil {
		writeAllowanceError(w, err, preview)
		return
	}
	rest.WriteJSON(w, http.StatusOK, PreviewToDTO(preview))
}

// Confirm godoc
// @Summary Compute and store a week
// @Tags Allowance
// @Accept json
// @Produce json
// @Param entry body EntryDTO true "Week entry"
// @Success 201 {object} RecordDTO
// @Failure 400 {object} rest.ErrorResponse "Invalid amounts"
// @Failure 409 {object} rest.ErrorResponse "Week already confirmed"
// @Failure 422 {object} rest.ErrorResponse "Expenses exceed income"
// @Failure 503 {object} rest.ErrorResponse "Record store unavailable"
// @Router /api/allowance/confirm [post]
func (h *Handler) Confirm(w http.ResponseWriter, r *http.Request) {
	entry, ok := decodeEntry(w, r)
	if !ok {
		return
	}
	record, err := h.service.Confirm(r.Context(), entry)
	if err != nil {
		writeAllowanceError(w, err, Preview{})
		return
	}
	rest.WriteJSON(w, http.StatusCreated, RecordToDTO(record))
}

// History godoc
// @Summary Weekly records in chronological order
// @Tags Allowance
// @Produce json
// @Success 200 {array} RecordDTO
// @Router /api/allowance/history [get]
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	records, err := h.service.History(r.Context())
	if err != nil {
		writeAllowanceError(w, err, Preview{})
		return
	}
	dtos := make([]RecordDTO, 0, len(records))
	for _, record := range records {
		dtos = append(dtos, RecordToDTO(record))
	}
	rest.WriteJSON(w, http.StatusOK, dtos)
}

// Latest godoc
// @Summary Most recent weekly record
// @Tags Allowance
// @Produce json
// @Success 200 {object} RecordDTO
// @Failure 404 {object} rest.ErrorResponse "No records yet"
// @Router /api/allowance/latest [get]
func (h *Handler) Latest(w http.ResponseWriter, r *http.Request) {
	record, err := h.service.Latest(r.Context())
	if err != nil {
		writeAllowanceError(w, err, Preview{})
		return
	}
	rest.WriteJSON(w, http.StatusOK, RecordToDTO(record))
}

// Export godoc
// @Summary Download the history as CSV or XLSX
// @Tags Allowance
// @Param format query string false "csv (default) or xlsx"
// @Success 200 {file} file
// @Router /api/allowance/export [get]
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")
	if format == "" {
		format = "csv"
	}
	if format != "csv" && format != "xlsx" {
		rest.WriteError(w, http.StatusBadRequest, "Unsupported export format", format)
		return
	}

	records, err := h.service.History(r.Context())
	if err != nil {
		writeAllowanceError(w, err, Preview{})
		return
	}

	var content []byte
	var contentType string
	switch format {
	case "xlsx":
		content, err = RenderXLSX(records)
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	default:
		var csv string
		csv, err = RenderCSV(records)
		content = []byte(csv)
		contentType = "text/csv; charset=utf-8"
	}
	if err != nil {
		log.Errorf("failed to render %s export: %v", format, err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="allowance.%s"`, format))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(content); err != nil {
		log.Errorf("failed to write export: %v", err)
	}
}

func decodeEntry(w http.ResponseWriter, r *http.Request) (Entry, bool) {
	var dto EntryDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		rest.WriteError(w, http.StatusBadRequest, "Invalid request body format", err.Error())
		return Entry{}, false
	}
	return Entry{
		WeekId:    dto.WeekId,
		Chores:    dto.Chores,
		Spending:  dto.Spending,
		Savings:   dto.Savings,
		Withdrawn: dto.Withdrawn,
	}, true
}

func writeAllowanceError(w http.ResponseWriter, err error, preview Preview) {
	var validationErr *balance.ValidationError
	switch {
	case errors.As(err, &validationErr):
		rest.WriteError(w, http.StatusBadRequest, "Invalid "+validationErr.Field, validationErr.Reason)
	case errors.Is(err, balance.ErrNegativeWeek):
		details := ""
		if preview.WeekId != "" {
			details = fmt.Sprintf("income %s, expenses %s", preview.Income.StringFixed(2), preview.Expenses.StringFixed(2))
		}
		rest.WriteError(w, http.StatusUnprocessableEntity, "Expenses exceed income for this week", details)
	case errors.Is(err, ErrWeekAlreadyConfirmed):
		rest.WriteError(w, http.StatusConflict, "Week already confirmed", "")
	case errors.Is(err, ErrWeekOutOfOrder):
		rest.WriteError(w, http.StatusConflict, "Week is before the most recent confirmed week", err.Error())
	case errors.Is(err, ErrAmountOutOfRange):
		rest.WriteError(w, http.StatusUnprocessableEntity, "Balance is too large to store", "")
	case errors.Is(err, ErrNoRecords):
		rest.WriteError(w, http.StatusNotFound, "No weekly records yet", "")
	case errors.Is(err, session.ErrNoSession):
		rest.WriteError(w, http.StatusUnauthorized, "Not logged in", "")
	case errors.Is(err, ErrStoreUnavailable):
		rest.WriteError(w, http.StatusServiceUnavailable, "Records are currently unavailable, please try again later", "")
	default:
		log.Errorf("allowance request failed: %v", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func PreviewToDTO(p Preview) PreviewDTO {
	return PreviewDTO{
		Owner:         p.Owner,
		WeekId:        p.WeekId,
		PriorBalance:  p.PriorBalance.StringFixed(2),
		Income:        p.Income.StringFixed(2),
		Expenses:      p.Expenses.StringFixed(2),
		WeekResult:    p.WeekResult.StringFixed(2),
		Available:     p.Available.StringFixed(2),
		MaxWithdrawal: p.MaxWithdrawal().StringFixed(2),
		Withdrawn:     p.Withdrawn.StringFixed(2),
		NewBalance:    p.NewBalance.StringFixed(2),
		NegativeWeek:  p.NegativeWeek,
	}
}

func RecordToDTO(r WeeklyRecord) RecordDTO {
	return RecordDTO{
		WeekId:         r.WeekId,
		Income:         r.Income.StringFixed(2),
		Expenses:       r.Expenses.StringFixed(2),
		Withdrawn:      r.Withdrawn.StringFixed(2),
		RunningBalance: r.RunningBalance.StringFixed(2),
		CreatedAt:      r.CreatedAt,
	}
}

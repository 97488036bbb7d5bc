package comptime

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/ariachen2020/timerecord/internal/department"
	"github.com/ariachen2020/timerecord/internal/transport"
	"github.com/ariachen2020/timerecord/pkg/logger"
	"github.com/go-chi/chi"
)

type ServiceAPI interface {
	SubmitRecord(ctx context.Context, actingDepartment, createdBy string, dto SubmitRecordDTO) (*Record, error)
	GetEmployeeRecords(ctx context.Context, actingDepartment, employeeID string) (*EmployeeRecordsResponse, error)
	GetDepartmentOverview(ctx context.Context, actingDepartment string) (*DepartmentOverview, error)
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(service ServiceAPI) *Handler {
	return &Handler{
		BaseHandler: transport.NewBaseHandler(logger.L()),
		Service:     service,
	}
}

func (h *Handler) SubmitRecord(w http.ResponseWriter, r *http.Request) {
	dept, ok := department.FromContext(r.Context())
	if !ok || dept == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var dto SubmitRecordDTO
	decoder := json.NewDecoder(r.Body)
	decoder.UseNumber()
	if err := decoder.Decode(&dto); err != nil {
		h.Logger.Warn("SubmitRecord: invalid request body", "error", err)
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	rec, err := h.Service.SubmitRecord(r.Context(), dept.Code, dept.Username, dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.Logger.Info("SubmitRecord: record created",
		"record_id", rec.ID,
		"employee_id", rec.EmployeeID,
		"department", dept.Code,
		"operation", rec.OperationType)

	h.WriteJSON(w, http.StatusCreated, rec)
}

func (h *Handler) GetEmployeeRecords(w http.ResponseWriter, r *http.Request) {
	dept, ok := department.FromContext(r.Context())
	if !ok || dept == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	employeeID := chi.URLParam(r, "employeeID")
	if employeeID == "" {
		h.WriteError(w, http.StatusBadRequest, "employee ID is required")
		return
	}

	resp, err := h.Service.GetEmployeeRecords(r.Context(), dept.Code, employeeID)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) GetOverview(w http.ResponseWriter, r *http.Request) {
	dept, ok := department.FromContext(r.Context())
	if !ok || dept == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	overview, err := h.Service.GetDepartmentOverview(r.Context(), dept.Code)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, overview)
}

package employee

import (
	"context"
	"net/http"

	"github.com/ariachen2020/timerecord/internal/department"
	"github.com/ariachen2020/timerecord/internal/transport"
	"github.com/ariachen2020/timerecord/pkg/logger"
	"github.com/go-chi/chi"
)

type ServiceAPI interface {
	List(ctx context.Context, actingDepartment string) ([]Employee, error)
	Delete(ctx context.Context, actingDepartment, employeeID string) error
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

func (h *Handler) ListEmployees(w http.ResponseWriter, r *http.Request) {
	dept, ok := department.FromContext(r.Context())
	if !ok || dept == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	employees, err := h.Service.List(r.Context(), dept.Code)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"employees": employees,
		"count":     len(employees),
	})
}

func (h *Handler) DeleteEmployee(w http.ResponseWriter, r *http.Request) {
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

	if err := h.Service.Delete(r.Context(), dept.Code, employeeID); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.Logger.Info("DeleteEmployee: employee removed", "employee_id", employeeID, "department", dept.Code)
	h.WriteJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

package employee

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ariachen2020/timerecord/internal"
)

// RepositoryAPI defines roster data access. DeleteCascade performs the
// ownership check and the mapping→record→employee deletion inside one
// transaction, taking the same per-employee locks a concurrent deduction
// would contend on.
type RepositoryAPI interface {
	ListByDepartment(ctx context.Context, departmentCode string) ([]Employee, error)
	DeleteCascade(ctx context.Context, employeeID, departmentCode string) error
}

type Service struct {
	repo   RepositoryAPI
	logger *slog.Logger
}

func NewService(repo RepositoryAPI, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// List returns the department's full roster ordered by employee ID.
func (s *Service) List(ctx context.Context, actingDepartment string) ([]Employee, error) {
	employees, err := s.repo.ListByDepartment(ctx, actingDepartment)
	if err != nil {
		s.logger.Error("failed to list employees", "error", err, "department", actingDepartment)
		return nil, internal.NewInternalError("failed to list employees", err)
	}
	return employees, nil
}

// Delete removes an employee and, by cascade, every record and deduction
// mapping referencing them. Irreversible; there is no soft delete.
func (s *Service) Delete(ctx context.Context, actingDepartment, employeeID string) error {
	if employeeID == "" {
		return internal.NewValidationError("employee_id is required", internal.ErrCodeValidationFailed)
	}

	err := s.repo.DeleteCascade(ctx, employeeID, actingDepartment)
	switch {
	case errors.Is(err, ErrNotFound):
		return internal.NewNotFoundError(
			fmt.Sprintf("employee %s not found", employeeID),
			internal.ErrCodeEmployeeNotFound)
	case errors.Is(err, ErrWrongDepartment):
		return internal.NewForbiddenError(
			"cannot delete an employee of another department",
			internal.ErrCodeForbiddenDepartment)
	case err != nil:
		s.logger.Error("failed to delete employee", "error", err, "employee_id", employeeID)
		return internal.NewInternalError("failed to delete employee", err)
	}

	s.logger.Info("employee deleted", "employee_id", employeeID, "department", actingDepartment)
	return nil
}

package postgres

import (
	"context"
	"time"

	"github.com/ariachen2020/timerecord/internal/comptime"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository implements comptime.RepositoryAPI using GORM.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) comptime.RepositoryAPI {
	return &Repository{db: db}
}

// Transact runs fn inside a database transaction. Any error from fn rolls
// back every write made through the TxStore.
func (r *Repository) Transact(ctx context.Context, fn func(tx comptime.TxStore) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&txStore{db: tx})
	})
}

func (r *Repository) RecordsForEmployee(ctx context.Context, employeeID, departmentCode string) ([]comptime.Record, error) {
	var records []comptime.Record
	err := r.db.WithContext(ctx).
		Where("employee_id = ? AND department_code = ?", employeeID, departmentCode).
		Order("effective_date DESC, created_at DESC").
		Find(&records).Error
	return records, err
}

func (r *Repository) AdditionBalances(ctx context.Context, employeeID string, today time.Time) ([]comptime.AdditionBalance, error) {
	return additionBalances(r.db.WithContext(ctx), employeeID, today, false)
}

func (r *Repository) EmployeeIDs(ctx context.Context, departmentCode string) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).
		Table("employees").
		Where("department_code = ?", departmentCode).
		Order("employee_id").
		Pluck("employee_id", &ids).Error
	return ids, err
}

// txStore is the transaction-scoped view handed to the service.
type txStore struct {
	db *gorm.DB
}

func (t *txStore) EmployeeDepartment(employeeID string) (string, bool, error) {
	var codes []string
	err := t.db.Table("employees").
		Where("employee_id = ?", employeeID).
		Limit(1).
		Pluck("department_code", &codes).Error
	if err != nil {
		return "", false, err
	}
	if len(codes) == 0 {
		return "", false, nil
	}
	return codes[0], true, nil
}

func (t *txStore) EnsureEmployee(employeeID, departmentCode string) error {
	return t.db.
		Clauses(clause.OnConflict{DoNothing: true}).
		Table("employees").
		Create(map[string]interface{}{
			"employee_id":     employeeID,
			"department_code": departmentCode,
			"created_at":      time.Now(),
		}).Error
}

func (t *txStore) AdditionsForUpdate(employeeID string, today time.Time) ([]comptime.AdditionBalance, error) {
	return additionBalances(t.db, employeeID, today, true)
}

func (t *txStore) InsertRecord(rec *comptime.Record) error {
	return t.db.Create(rec).Error
}

func (t *txStore) InsertMappings(mappings []comptime.DeductionMapping) error {
	if len(mappings) == 0 {
		return nil
	}
	return t.db.Create(&mappings).Error
}

// additionBalances reads the employee's not-yet-expired additions in FIFO
// order together with everything ever mapped against them, across all of the
// employee's deductions regardless of the deduction's own date.
//
// With forUpdate set (postgres), the addition rows are locked so that two
// concurrent deductions for the same employee serialize instead of both
// validating against the same stale balance. SQLite serializes writers on
// its own and rejects FOR UPDATE, so the clause is postgres-only.
func additionBalances(db *gorm.DB, employeeID string, today time.Time, forUpdate bool) ([]comptime.AdditionBalance, error) {
	q := db.
		Where("employee_id = ? AND operation_type = ?", employeeID, comptime.OperationAddition).
		Where("expiry_date IS NULL OR expiry_date >= ?", today).
		Order("effective_date, created_at")
	if forUpdate && db.Dialector.Name() == "postgres" {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var additions []comptime.Record
	if err := q.Find(&additions).Error; err != nil {
		return nil, err
	}

	type consumedRow struct {
		SourceRecordID int64
		Hours          int64
		Minutes        int64
	}
	var consumed []consumedRow
	err := db.
		Table("deduction_mappings AS dm").
		Select("dm.source_record_id AS source_record_id, COALESCE(SUM(dm.deducted_hours), 0) AS hours, COALESCE(SUM(dm.deducted_minutes), 0) AS minutes").
		Joins("JOIN records r ON dm.deduction_record_id = r.id").
		Where("r.employee_id = ?", employeeID).
		Group("dm.source_record_id").
		Scan(&consumed).Error
	if err != nil {
		return nil, err
	}

	consumedBySource := make(map[int64]int, len(consumed))
	for _, row := range consumed {
		consumedBySource[row.SourceRecordID] = comptime.ToMinutes(int(row.Hours), int(row.Minutes))
	}

	balances := make([]comptime.AdditionBalance, 0, len(additions))
	for _, add := range additions {
		balances = append(balances, comptime.AdditionBalance{
			RecordID:        add.ID,
			Hours:           add.Hours,
			Minutes:         add.Minutes,
			ConsumedMinutes: consumedBySource[add.ID],
		})
	}
	return balances, nil
}

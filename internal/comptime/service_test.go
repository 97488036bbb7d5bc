package comptime_test

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"sort"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/ariachen2020/timerecord/internal"
	"github.com/ariachen2020/timerecord/internal/comptime"
)

// Mock repository backing the service tests. Transact snapshots the state
// and restores it when the callback fails, mirroring a database rollback.
type mockLedgerRepository struct {
	employees map[string]string
	records   []*comptime.Record
	mappings  []comptime.DeductionMapping
	nextID    int64
}

func newMockLedgerRepository() *mockLedgerRepository {
	return &mockLedgerRepository{
		employees: make(map[string]string),
		nextID:    1,
	}
}

func (m *mockLedgerRepository) Transact(_ context.Context, fn func(tx comptime.TxStore) error) error {
	employeesBefore := make(map[string]string, len(m.employees))
	for k, v := range m.employees {
		employeesBefore[k] = v
	}
	recordsBefore := append([]*comptime.Record(nil), m.records...)
	mappingsBefore := append([]comptime.DeductionMapping(nil), m.mappings...)
	nextIDBefore := m.nextID

	if err := fn(m); err != nil {
		m.employees = employeesBefore
		m.records = recordsBefore
		m.mappings = mappingsBefore
		m.nextID = nextIDBefore
		return err
	}
	return nil
}

func (m *mockLedgerRepository) EmployeeDepartment(employeeID string) (string, bool, error) {
	dept, ok := m.employees[employeeID]
	return dept, ok, nil
}

func (m *mockLedgerRepository) EnsureEmployee(employeeID, departmentCode string) error {
	if _, ok := m.employees[employeeID]; !ok {
		m.employees[employeeID] = departmentCode
	}
	return nil
}

func (m *mockLedgerRepository) AdditionsForUpdate(employeeID string, today time.Time) ([]comptime.AdditionBalance, error) {
	return m.additionBalances(employeeID, today), nil
}

func (m *mockLedgerRepository) InsertRecord(rec *comptime.Record) error {
	rec.ID = m.nextID
	m.nextID++
	rec.CreatedAt = time.Now()
	m.records = append(m.records, rec)
	return nil
}

func (m *mockLedgerRepository) InsertMappings(mappings []comptime.DeductionMapping) error {
	m.mappings = append(m.mappings, mappings...)
	return nil
}

func (m *mockLedgerRepository) RecordsForEmployee(_ context.Context, employeeID, departmentCode string) ([]comptime.Record, error) {
	var out []comptime.Record
	for _, rec := range m.records {
		if rec.EmployeeID == employeeID && rec.DepartmentCode == departmentCode {
			out = append(out, *rec)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].EffectiveDate.After(out[j].EffectiveDate)
	})
	return out, nil
}

func (m *mockLedgerRepository) AdditionBalances(_ context.Context, employeeID string, today time.Time) ([]comptime.AdditionBalance, error) {
	return m.additionBalances(employeeID, today), nil
}

func (m *mockLedgerRepository) EmployeeIDs(_ context.Context, departmentCode string) ([]string, error) {
	var ids []string
	for id, dept := range m.employees {
		if dept == departmentCode {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (m *mockLedgerRepository) additionBalances(employeeID string, today time.Time) []comptime.AdditionBalance {
	consumed := make(map[int64]int)
	for _, mp := range m.mappings {
		for _, rec := range m.records {
			if rec.ID == mp.DeductionRecordID && rec.EmployeeID == employeeID {
				consumed[mp.SourceRecordID] += comptime.ToMinutes(mp.DeductedHours, mp.DeductedMinutes)
			}
		}
	}

	var additions []*comptime.Record
	for _, rec := range m.records {
		if rec.EmployeeID != employeeID || !rec.IsAddition() {
			continue
		}
		if rec.ExpiryDate != nil && rec.ExpiryDate.Before(today) {
			continue
		}
		additions = append(additions, rec)
	}
	sort.SliceStable(additions, func(i, j int) bool {
		if !additions[i].EffectiveDate.Equal(additions[j].EffectiveDate) {
			return additions[i].EffectiveDate.Before(additions[j].EffectiveDate)
		}
		return additions[i].ID < additions[j].ID
	})

	balances := make([]comptime.AdditionBalance, 0, len(additions))
	for _, rec := range additions {
		balances = append(balances, comptime.AdditionBalance{
			RecordID:        rec.ID,
			Hours:           rec.Hours,
			Minutes:         rec.Minutes,
			ConsumedMinutes: consumed[rec.ID],
		})
	}
	return balances
}

func (m *mockLedgerRepository) mappingsFor(deductionID int64) []comptime.DeductionMapping {
	var out []comptime.DeductionMapping
	for _, mp := range m.mappings {
		if mp.DeductionRecordID == deductionID {
			out = append(out, mp)
		}
	}
	return out
}

var _ = Describe("CompTimeService", func() {
	var (
		service  *comptime.Service
		mockRepo *mockLedgerRepository
		ctx      context.Context
	)

	// Fixed clock so expiry classification is deterministic.
	now := time.Date(2024, 6, 15, 10, 0, 0, 0, time.UTC)

	submit := func(dto comptime.SubmitRecordDTO) (*comptime.Record, error) {
		return service.SubmitRecord(ctx, "HR", "hr", dto)
	}

	BeforeEach(func() {
		mockRepo = newMockLedgerRepository()
		testLogger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		service = comptime.NewServiceWithClock(mockRepo, testLogger, func() time.Time { return now })
		ctx = context.Background()
	})

	Describe("SubmitRecord", func() {
		Context("validation", func() {
			It("rejects a missing employee id", func() {
				_, err := submit(comptime.SubmitRecordDTO{
					OperationType: "addition", Hours: "1", EffectiveDate: "2024-06-01",
				})
				appErr, ok := internal.IsAppError(err)
				Expect(ok).To(BeTrue())
				Expect(appErr.Code).To(Equal(internal.ErrCodeValidationFailed))
				Expect(mockRepo.records).To(BeEmpty())
			})

			It("rejects an unknown operation type", func() {
				_, err := submit(comptime.SubmitRecordDTO{
					EmployeeID: "EMP-001", OperationType: "transfer", Hours: "1", EffectiveDate: "2024-06-01",
				})
				appErr, ok := internal.IsAppError(err)
				Expect(ok).To(BeTrue())
				Expect(appErr.Code).To(Equal(internal.ErrCodeInvalidOperation))
			})

			It("rejects a zero quantity", func() {
				_, err := submit(comptime.SubmitRecordDTO{
					EmployeeID: "EMP-001", OperationType: "addition", Hours: "0", Minutes: "0", EffectiveDate: "2024-06-01",
				})
				appErr, ok := internal.IsAppError(err)
				Expect(ok).To(BeTrue())
				Expect(appErr.Code).To(Equal(internal.ErrCodeInvalidQuantity))
			})

			It("rejects negative and fractional amounts", func() {
				_, err := submit(comptime.SubmitRecordDTO{
					EmployeeID: "EMP-001", OperationType: "addition", Hours: "-1", EffectiveDate: "2024-06-01",
				})
				appErr, ok := internal.IsAppError(err)
				Expect(ok).To(BeTrue())
				Expect(appErr.Code).To(Equal(internal.ErrCodeInvalidQuantity))

				_, err = submit(comptime.SubmitRecordDTO{
					EmployeeID: "EMP-001", OperationType: "addition", Hours: "1.5", EffectiveDate: "2024-06-01",
				})
				appErr, ok = internal.IsAppError(err)
				Expect(ok).To(BeTrue())
				Expect(appErr.Code).To(Equal(internal.ErrCodeInvalidQuantity))
			})

			It("rejects a malformed effective date", func() {
				_, err := submit(comptime.SubmitRecordDTO{
					EmployeeID: "EMP-001", OperationType: "addition", Hours: "1", EffectiveDate: "06/01/2024",
				})
				appErr, ok := internal.IsAppError(err)
				Expect(ok).To(BeTrue())
				Expect(appErr.Code).To(Equal(internal.ErrCodeInvalidDate))
			})
		})

		Context("additions", func() {
			It("persists the record with a computed expiry date", func() {
				rec, err := submit(comptime.SubmitRecordDTO{
					EmployeeID:    "EMP-001",
					OperationType: "addition",
					Hours:         "8",
					EffectiveDate: "2024-01-10",
					Reason:        "weekend deployment",
				})
				Expect(err).NotTo(HaveOccurred())
				Expect(rec.ID).To(BeNumerically(">", 0))
				Expect(rec.DepartmentCode).To(Equal("HR"))
				Expect(rec.ExpiryDate).NotTo(BeNil())
				Expect(*rec.ExpiryDate).To(Equal(time.Date(2025, 1, 9, 0, 0, 0, 0, time.UTC)))
			})

			It("registers a first-seen employee under the acting department", func() {
				_, err := submit(comptime.SubmitRecordDTO{
					EmployeeID: "EMP-001", OperationType: "addition", Hours: "8", EffectiveDate: "2024-01-10",
				})
				Expect(err).NotTo(HaveOccurred())
				Expect(mockRepo.employees).To(HaveKeyWithValue("EMP-001", "HR"))
			})

			It("refuses to touch an employee owned by another department", func() {
				mockRepo.employees["EMP-001"] = "IT"

				_, err := submit(comptime.SubmitRecordDTO{
					EmployeeID: "EMP-001", OperationType: "addition", Hours: "8", EffectiveDate: "2024-01-10",
				})
				appErr, ok := internal.IsAppError(err)
				Expect(ok).To(BeTrue())
				Expect(appErr.StatusCode).To(Equal(http.StatusConflict))
				Expect(appErr.Code).To(Equal(internal.ErrCodeOwnershipConflict))
				Expect(mockRepo.records).To(BeEmpty())
				Expect(mockRepo.employees["EMP-001"]).To(Equal("IT"))
			})
		})

		Context("deductions", func() {
			BeforeEach(func() {
				_, err := submit(comptime.SubmitRecordDTO{
					EmployeeID: "EMP-001", OperationType: "addition", Hours: "8", EffectiveDate: "2024-01-10",
				})
				Expect(err).NotTo(HaveOccurred())
				_, err = submit(comptime.SubmitRecordDTO{
					EmployeeID: "EMP-001", OperationType: "addition", Hours: "2", Minutes: "30", EffectiveDate: "2024-03-01",
				})
				Expect(err).NotTo(HaveOccurred())
			})

			It("maps the whole deduction to the oldest addition when it fits", func() {
				rec, err := submit(comptime.SubmitRecordDTO{
					EmployeeID: "EMP-001", OperationType: "deduction", Hours: "5", EffectiveDate: "2024-06-01",
				})
				Expect(err).NotTo(HaveOccurred())
				Expect(rec.ExpiryDate).To(BeNil())

				mappings := mockRepo.mappingsFor(rec.ID)
				Expect(mappings).To(HaveLen(1))
				Expect(mappings[0].SourceRecordID).To(Equal(int64(1)))
				Expect(mappings[0].DeductedHours).To(Equal(5))
				Expect(mappings[0].DeductedMinutes).To(Equal(0))
			})

			It("spans additions oldest-first when one cannot cover the deduction", func() {
				rec, err := submit(comptime.SubmitRecordDTO{
					EmployeeID: "EMP-001", OperationType: "deduction", Hours: "9", EffectiveDate: "2024-06-01",
				})
				Expect(err).NotTo(HaveOccurred())

				mappings := mockRepo.mappingsFor(rec.ID)
				Expect(mappings).To(HaveLen(2))
				Expect(mappings[0].SourceRecordID).To(Equal(int64(1)))
				Expect(mappings[0].DeductedHours).To(Equal(8))
				Expect(mappings[1].SourceRecordID).To(Equal(int64(2)))
				Expect(mappings[1].DeductedHours).To(Equal(1))
				Expect(mappings[1].DeductedMinutes).To(Equal(0))
			})

			It("continues the FIFO walk from a partially consumed addition", func() {
				_, err := submit(comptime.SubmitRecordDTO{
					EmployeeID: "EMP-001", OperationType: "deduction", Hours: "5", EffectiveDate: "2024-06-01",
				})
				Expect(err).NotTo(HaveOccurred())

				rec, err := submit(comptime.SubmitRecordDTO{
					EmployeeID: "EMP-001", OperationType: "deduction", Hours: "4", EffectiveDate: "2024-06-02",
				})
				Expect(err).NotTo(HaveOccurred())

				mappings := mockRepo.mappingsFor(rec.ID)
				Expect(mappings).To(HaveLen(2))
				Expect(mappings[0].SourceRecordID).To(Equal(int64(1)))
				Expect(mappings[0].DeductedHours).To(Equal(3))
				Expect(mappings[1].SourceRecordID).To(Equal(int64(2)))
				Expect(mappings[1].DeductedHours).To(Equal(1))
			})

			It("rejects a deduction beyond the available balance and writes nothing", func() {
				recordsBefore := len(mockRepo.records)

				_, err := submit(comptime.SubmitRecordDTO{
					EmployeeID: "EMP-001", OperationType: "deduction", Hours: "11", EffectiveDate: "2024-06-01",
				})
				appErr, ok := internal.IsAppError(err)
				Expect(ok).To(BeTrue())
				Expect(appErr.StatusCode).To(Equal(http.StatusUnprocessableEntity))
				Expect(appErr.Code).To(Equal(internal.ErrCodeInsufficientBalance))
				Expect(appErr.Message).To(ContainSubstring("available 10:30"))
				Expect(appErr.Message).To(ContainSubstring("requested 11:00"))

				Expect(mockRepo.records).To(HaveLen(recordsBefore))
				Expect(mockRepo.mappings).To(BeEmpty())
			})

			It("excludes expired additions from the balance", func() {
				// Effective mid-2023, expired well before the fixed clock.
				_, err := submit(comptime.SubmitRecordDTO{
					EmployeeID: "EMP-001", OperationType: "addition", Hours: "40", EffectiveDate: "2023-01-02",
				})
				Expect(err).NotTo(HaveOccurred())

				_, err = submit(comptime.SubmitRecordDTO{
					EmployeeID: "EMP-001", OperationType: "deduction", Hours: "11", EffectiveDate: "2024-06-01",
				})
				appErr, ok := internal.IsAppError(err)
				Expect(ok).To(BeTrue())
				Expect(appErr.Code).To(Equal(internal.ErrCodeInsufficientBalance))
			})
		})
	})

	Describe("GetEmployeeRecords", func() {
		It("returns not found when the employee has no records", func() {
			_, err := service.GetEmployeeRecords(ctx, "HR", "EMP-404")
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.StatusCode).To(Equal(http.StatusNotFound))
			Expect(appErr.Code).To(Equal(internal.ErrCodeEmployeeNotFound))
		})

		It("builds the annotated history and summary", func() {
			// Expired long ago.
			_, err := submit(comptime.SubmitRecordDTO{
				EmployeeID: "EMP-001", OperationType: "addition", Hours: "3", EffectiveDate: "2023-01-02",
			})
			Expect(err).NotTo(HaveOccurred())
			// Expires 2024-07-04, inside the 30 day window.
			_, err = submit(comptime.SubmitRecordDTO{
				EmployeeID: "EMP-001", OperationType: "addition", Hours: "8", EffectiveDate: "2023-07-05",
			})
			Expect(err).NotTo(HaveOccurred())
			// Fresh addition.
			_, err = submit(comptime.SubmitRecordDTO{
				EmployeeID: "EMP-001", OperationType: "addition", Hours: "2", Minutes: "30", EffectiveDate: "2024-06-01",
			})
			Expect(err).NotTo(HaveOccurred())
			_, err = submit(comptime.SubmitRecordDTO{
				EmployeeID: "EMP-001", OperationType: "deduction", Hours: "4", EffectiveDate: "2024-06-10",
			})
			Expect(err).NotTo(HaveOccurred())

			resp, err := service.GetEmployeeRecords(ctx, "HR", "EMP-001")
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.Records).To(HaveLen(4))

			// Gross totals count every addition regardless of expiry.
			Expect(resp.Summary.TotalAccumulated).To(Equal(comptime.TimeQuantity{Hours: 13, Minutes: 30}))
			Expect(resp.Summary.Expired).To(Equal(comptime.TimeQuantity{Hours: 3, Minutes: 0}))
			Expect(resp.Summary.ExpiringSoon).To(Equal(comptime.TimeQuantity{Hours: 8, Minutes: 0}))
			// Available nets the deduction out of the unexpired additions.
			Expect(resp.Summary.AvailableBalance).To(Equal(comptime.TimeQuantity{Hours: 6, Minutes: 30}))

			byStatus := make(map[comptime.ExpiryStatus]int)
			for _, rec := range resp.Records {
				byStatus[rec.ExpiryStatus]++
				if rec.OperationType == comptime.OperationDeduction {
					Expect(rec.ExpiryStatus).To(Equal(comptime.StatusNormal))
					Expect(rec.DaysUntilExpiry).To(BeNil())
				}
			}
			Expect(byStatus[comptime.StatusExpired]).To(Equal(1))
			Expect(byStatus[comptime.StatusExpiringSoon]).To(Equal(1))
		})
	})

	Describe("GetDepartmentOverview", func() {
		It("buckets employees with expiring or expired time and lists the full roster", func() {
			_, err := submit(comptime.SubmitRecordDTO{
				EmployeeID: "EMP-001", OperationType: "addition", Hours: "3", EffectiveDate: "2023-01-02",
			})
			Expect(err).NotTo(HaveOccurred())
			_, err = submit(comptime.SubmitRecordDTO{
				EmployeeID: "EMP-002", OperationType: "addition", Hours: "8", EffectiveDate: "2023-07-05",
			})
			Expect(err).NotTo(HaveOccurred())
			_, err = submit(comptime.SubmitRecordDTO{
				EmployeeID: "EMP-003", OperationType: "addition", Hours: "2", EffectiveDate: "2024-06-01",
			})
			Expect(err).NotTo(HaveOccurred())

			overview, err := service.GetDepartmentOverview(ctx, "HR")
			Expect(err).NotTo(HaveOccurred())
			Expect(overview.DepartmentCode).To(Equal("HR"))
			Expect(overview.TotalEmployees).To(Equal(3))
			Expect(overview.AllEmployees).To(HaveLen(3))

			Expect(overview.Expired).To(HaveLen(1))
			Expect(overview.Expired[0].EmployeeID).To(Equal("EMP-001"))
			Expect(overview.Expired[0].Amount).To(Equal(comptime.TimeQuantity{Hours: 3, Minutes: 0}))

			Expect(overview.ExpiringSoon).To(HaveLen(1))
			Expect(overview.ExpiringSoon[0].EmployeeID).To(Equal("EMP-002"))
			Expect(overview.ExpiringSoon[0].EarliestExpiryDate).NotTo(BeNil())
			Expect(*overview.ExpiringSoon[0].EarliestExpiryDate).To(Equal(time.Date(2024, 7, 4, 0, 0, 0, 0, time.UTC)))
		})

		It("returns empty buckets for a department with no employees", func() {
			overview, err := service.GetDepartmentOverview(ctx, "HR")
			Expect(err).NotTo(HaveOccurred())
			Expect(overview.TotalEmployees).To(Equal(0))
			Expect(overview.ExpiringSoon).To(BeEmpty())
			Expect(overview.Expired).To(BeEmpty())
		})
	})
})

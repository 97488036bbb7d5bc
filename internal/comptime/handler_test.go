package comptime_test

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/go-chi/chi"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/ariachen2020/timerecord/internal/comptime"
	comptimePostgres "github.com/ariachen2020/timerecord/internal/comptime/postgres"
	"github.com/ariachen2020/timerecord/internal/department"
	"github.com/ariachen2020/timerecord/internal/employee"
)

var _ = Describe("CompTime Handler Integration", func() {
	var (
		db      *gorm.DB
		router  *chi.Mux
		handler *comptime.Handler
	)

	now := time.Date(2024, 6, 15, 10, 0, 0, 0, time.UTC)
	hrDept := &department.Department{Code: "HR", Name: "Human Resources", Username: "hr"}

	withDepartment := func(d *department.Department) func(http.Handler) http.Handler {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				next.ServeHTTP(w, r.WithContext(department.NewContext(r.Context(), d)))
			})
		}
	}

	post := func(body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/records", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	BeforeEach(func() {
		var err error
		db, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
			Logger: gormlogger.Default.LogMode(gormlogger.Silent),
		})
		Expect(err).NotTo(HaveOccurred())

		err = db.AutoMigrate(&employee.Employee{}, &comptime.Record{}, &comptime.DeductionMapping{})
		Expect(err).NotTo(HaveOccurred())

		repo := comptimePostgres.NewRepository(db)
		testLogger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		service := comptime.NewServiceWithClock(repo, testLogger, func() time.Time { return now })
		handler = comptime.NewHandler(service)

		router = chi.NewRouter()
		router.Group(func(r chi.Router) {
			r.Use(withDepartment(hrDept))
			r.Post("/records", handler.SubmitRecord)
			r.Get("/records/overview", handler.GetOverview)
			r.Get("/records/employee/{employeeID}", handler.GetEmployeeRecords)
		})
	})

	AfterEach(func() {
		sqlDB, err := db.DB()
		Expect(err).NotTo(HaveOccurred())
		Expect(sqlDB.Close()).NotTo(HaveOccurred())
	})

	It("accepts an addition and returns the stored record", func() {
		w := post(`{"employee_id":"EMP-001","operation_type":"addition","hours":8,"effective_date":"2024-01-10","reason":"weekend deployment"}`)
		Expect(w.Code).To(Equal(http.StatusCreated))
		Expect(w.Header().Get("Content-Type")).To(ContainSubstring("application/json"))

		var rec comptime.Record
		Expect(json.NewDecoder(w.Body).Decode(&rec)).To(Succeed())
		Expect(rec.ID).To(BeNumerically(">", 0))
		Expect(rec.DepartmentCode).To(Equal("HR"))
		Expect(rec.CreatedBy).To(Equal("hr"))
		Expect(rec.ExpiryDate).NotTo(BeNil())
	})

	It("rejects fractional hours at the JSON boundary", func() {
		w := post(`{"employee_id":"EMP-001","operation_type":"addition","hours":1.5,"effective_date":"2024-01-10"}`)
		Expect(w.Code).To(Equal(http.StatusBadRequest))
	})

	It("rejects a malformed body", func() {
		w := post(`{"employee_id":`)
		Expect(w.Code).To(Equal(http.StatusBadRequest))
	})

	It("returns 401 when no department is on the context", func() {
		bare := chi.NewRouter()
		bare.Post("/records", handler.SubmitRecord)

		req := httptest.NewRequest(http.MethodPost, "/records", strings.NewReader(`{}`))
		w := httptest.NewRecorder()
		bare.ServeHTTP(w, req)
		Expect(w.Code).To(Equal(http.StatusUnauthorized))
	})

	It("runs the full earn, spend and report cycle", func() {
		Expect(post(`{"employee_id":"EMP-001","operation_type":"addition","hours":8,"effective_date":"2024-01-10"}`).Code).To(Equal(http.StatusCreated))
		Expect(post(`{"employee_id":"EMP-001","operation_type":"addition","hours":2,"minutes":30,"effective_date":"2024-03-01"}`).Code).To(Equal(http.StatusCreated))
		Expect(post(`{"employee_id":"EMP-001","operation_type":"deduction","hours":5,"effective_date":"2024-06-01"}`).Code).To(Equal(http.StatusCreated))

		req := httptest.NewRequest(http.MethodGet, "/records/employee/EMP-001", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		Expect(w.Code).To(Equal(http.StatusOK))

		var resp comptime.EmployeeRecordsResponse
		Expect(json.NewDecoder(w.Body).Decode(&resp)).To(Succeed())
		Expect(resp.Records).To(HaveLen(3))
		Expect(resp.Summary.TotalAccumulated).To(Equal(comptime.TimeQuantity{Hours: 10, Minutes: 30}))
		Expect(resp.Summary.AvailableBalance).To(Equal(comptime.TimeQuantity{Hours: 5, Minutes: 30}))

		var mappingCount int64
		Expect(db.Model(&comptime.DeductionMapping{}).Count(&mappingCount).Error).NotTo(HaveOccurred())
		Expect(mappingCount).To(Equal(int64(1)))
	})

	It("maps an over-draw to 422 and writes nothing", func() {
		Expect(post(`{"employee_id":"EMP-001","operation_type":"addition","hours":2,"effective_date":"2024-03-01"}`).Code).To(Equal(http.StatusCreated))

		w := post(`{"employee_id":"EMP-001","operation_type":"deduction","hours":3,"effective_date":"2024-06-01"}`)
		Expect(w.Code).To(Equal(http.StatusUnprocessableEntity))

		var recordCount int64
		Expect(db.Model(&comptime.Record{}).Count(&recordCount).Error).NotTo(HaveOccurred())
		Expect(recordCount).To(Equal(int64(1)))
	})

	It("returns 404 for an employee with no records", func() {
		req := httptest.NewRequest(http.MethodGet, "/records/employee/EMP-404", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		Expect(w.Code).To(Equal(http.StatusNotFound))
	})

	It("serves the department overview", func() {
		Expect(post(`{"employee_id":"EMP-001","operation_type":"addition","hours":3,"effective_date":"2023-01-02"}`).Code).To(Equal(http.StatusCreated))
		Expect(post(`{"employee_id":"EMP-002","operation_type":"addition","hours":8,"effective_date":"2023-07-05"}`).Code).To(Equal(http.StatusCreated))

		req := httptest.NewRequest(http.MethodGet, "/records/overview", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		Expect(w.Code).To(Equal(http.StatusOK))

		var overview comptime.DepartmentOverview
		Expect(json.NewDecoder(w.Body).Decode(&overview)).To(Succeed())
		Expect(overview.DepartmentCode).To(Equal("HR"))
		Expect(overview.TotalEmployees).To(Equal(2))
		Expect(overview.Expired).To(HaveLen(1))
		Expect(overview.ExpiringSoon).To(HaveLen(1))
	})
})

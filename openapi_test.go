package main_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/getkin/kin-openapi/openapi3"
)

var _ = Describe("OpenAPI contract", func() {
	var doc *openapi3.T

	BeforeEach(func() {
		ctx := context.Background()
		loader := &openapi3.Loader{Context: ctx}
		var err error
		doc, err = loader.LoadFromFile("api/openapi.yml")
		Expect(err).NotTo(HaveOccurred())
		Expect(doc.Validate(ctx)).To(Succeed())
	})

	It("documents every ledger route", func() {
		for _, path := range []string{
			"/records",
			"/records/overview",
			"/records/employee/{employeeID}",
			"/employees",
			"/employees/{employeeID}",
			"/auth/login",
			"/auth/refresh",
			"/auth/me",
			"/health",
			"/ping",
		} {
			Expect(doc.Paths.Find(path)).NotTo(BeNil(), "missing path %s", path)
		}
	})

	It("requires authentication on the ledger operations", func() {
		submit := doc.Paths.Find("/records").Post
		Expect(submit).NotTo(BeNil())
		Expect(submit.Security).NotTo(BeNil())
	})
})

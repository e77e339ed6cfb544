package metrics_test

import (
	"io"
	"net/http/httptest"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/vecgate/pkg/metrics"
)

var _ = Describe("Metrics", func() {
	var m *metrics.Metrics

	BeforeEach(func() {
		m = metrics.New()
	})

	It("creates independent registries", func() {
		Expect(metrics.New().Registry).NotTo(BeIdenticalTo(m.Registry))
	})

	It("records requests by route and outcome", func() {
		m.ObserveRequest("add", metrics.OutcomeOK, time.Now())
		m.ObserveRequest("add", metrics.OutcomeOK, time.Now())
		m.ObserveRequest("query", metrics.OutcomeInvalid, time.Now())

		families, err := m.Registry.Gather()
		Expect(err).NotTo(HaveOccurred())

		counts := map[string]float64{}
		for _, f := range families {
			if f.GetName() != "vecgate_requests_total" {
				continue
			}
			for _, metric := range f.GetMetric() {
				labels := map[string]string{}
				for _, l := range metric.GetLabel() {
					labels[l.GetName()] = l.GetValue()
				}
				counts[labels["route"]+"/"+labels["outcome"]] = metric.GetCounter().GetValue()
			}
		}
		Expect(counts).To(Equal(map[string]float64{
			"add/ok":        2,
			"query/invalid": 1,
		}))
	})

	It("serves the exposition format", func() {
		m.Chunks.Add(2)
		m.Entries.Add(3)
		m.Collections.Set(1)

		rec := httptest.NewRecorder()
		m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
		body, err := io.ReadAll(rec.Body)
		Expect(err).NotTo(HaveOccurred())

		Expect(rec.Code).To(Equal(200))
		Expect(string(body)).To(ContainSubstring("vecgate_chunks_submitted_total 2"))
		Expect(string(body)).To(ContainSubstring("vecgate_entries_added_total 3"))
		Expect(string(body)).To(ContainSubstring("vecgate_collections 1"))
		Expect(string(body)).To(ContainSubstring("go_goroutines"))
	})
})

package registry_test

import (
	"context"
	"errors"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/vecgate/pkg/registry"
	testutils "github.com/papercomputeco/vecgate/pkg/utils/test"
	"github.com/papercomputeco/vecgate/pkg/vector"
)

var _ = Describe("Registry", func() {
	var (
		driver *testutils.MockVectorDriver
		reg    *registry.Registry
		ctx    context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		driver = testutils.NewMockVectorDriver()
		reg = registry.New(driver)
	})

	Describe("Ensure", func() {
		It("creates an unknown collection with cosine distance", func() {
			coll, err := reg.Ensure(ctx, "abc")
			Expect(err).NotTo(HaveOccurred())
			Expect(coll.Name()).To(Equal("abc"))

			calls := driver.Calls()
			Expect(calls).To(HaveLen(2))
			Expect(calls[0].Op).To(Equal(testutils.OpOpen))
			Expect(calls[1].Op).To(Equal(testutils.OpCreate))
			Expect(calls[1].Metric).To(Equal(vector.MetricCosine))
		})

		It("opens an existing collection without creating it", func() {
			seeded := driver.Seed("abc")

			coll, err := reg.Ensure(ctx, "abc")
			Expect(err).NotTo(HaveOccurred())
			Expect(coll).To(BeIdenticalTo(seeded))
			Expect(driver.CallsFor(testutils.OpCreate)).To(BeEmpty())
		})

		It("returns the cached handle without calling the driver again", func() {
			first, err := reg.Ensure(ctx, "abc")
			Expect(err).NotTo(HaveOccurred())
			second, err := reg.Ensure(ctx, "abc")
			Expect(err).NotTo(HaveOccurred())

			Expect(second).To(BeIdenticalTo(first))
			Expect(driver.CallsFor(testutils.OpOpen)).To(HaveLen(1))
			Expect(driver.CallsFor(testutils.OpCreate)).To(HaveLen(1))
		})

		It("creates a collection at most once under concurrent calls", func() {
			driver.CreateDelay = 20 * time.Millisecond

			const workers = 16
			handles := make([]vector.Collection, workers)
			var wg sync.WaitGroup
			for i := range workers {
				wg.Add(1)
				go func() {
					defer GinkgoRecover()
					defer wg.Done()
					coll, err := reg.Ensure(ctx, "shared")
					Expect(err).NotTo(HaveOccurred())
					handles[i] = coll
				}()
			}
			wg.Wait()

			Expect(driver.CallsFor(testutils.OpCreate)).To(HaveLen(1))
			for _, h := range handles {
				Expect(h).To(BeIdenticalTo(handles[0]))
			}
		})

		It("handles different names independently", func() {
			_, err := reg.Ensure(ctx, "alpha")
			Expect(err).NotTo(HaveOccurred())
			_, err = reg.Ensure(ctx, "bravo")
			Expect(err).NotTo(HaveOccurred())

			Expect(driver.CallsFor(testutils.OpCreate)).To(HaveLen(2))
			Expect(reg.Names()).To(Equal([]string{"alpha", "bravo"}))
			Expect(reg.Len()).To(Equal(2))
		})

		It("returns a StorageError when open fails and does not create", func() {
			driver.OpenErr = errors.New("disk on fire")

			_, err := reg.Ensure(ctx, "abc")
			var serr *vector.StorageError
			Expect(errors.As(err, &serr)).To(BeTrue())
			Expect(serr.Op).To(Equal("open"))
			Expect(err.Error()).To(ContainSubstring("disk on fire"))
			Expect(driver.CallsFor(testutils.OpCreate)).To(BeEmpty())
		})

		It("does not cache failures", func() {
			driver.CreateErr = errors.New("quota exceeded")

			_, err := reg.Ensure(ctx, "abc")
			var serr *vector.StorageError
			Expect(errors.As(err, &serr)).To(BeTrue())
			Expect(serr.Op).To(Equal("create"))
			Expect(reg.Names()).To(BeEmpty())

			driver.CreateErr = nil
			_, err = reg.Ensure(ctx, "abc")
			Expect(err).NotTo(HaveOccurred())
			Expect(driver.CallsFor(testutils.OpCreate)).To(HaveLen(2))
		})
	})

	Describe("options", func() {
		It("uses the configured metric", func() {
			reg = registry.New(driver, registry.WithMetric(vector.MetricL2))
			_, err := reg.Ensure(ctx, "abc")
			Expect(err).NotTo(HaveOccurred())
			Expect(driver.CallsFor(testutils.OpCreate)[0].Metric).To(Equal(vector.MetricL2))
		})

		It("runs the create hook only for created collections", func() {
			var created []string
			reg = registry.New(driver, registry.WithCreateHook(func(_ context.Context, name string) {
				created = append(created, name)
			}))
			driver.Seed("existing")

			_, err := reg.Ensure(ctx, "existing")
			Expect(err).NotTo(HaveOccurred())
			_, err = reg.Ensure(ctx, "fresh")
			Expect(err).NotTo(HaveOccurred())
			_, err = reg.Ensure(ctx, "fresh")
			Expect(err).NotTo(HaveOccurred())

			Expect(created).To(Equal([]string{"fresh"}))
		})
	})
})

package memory_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/vecgate/pkg/logger"
	"github.com/papercomputeco/vecgate/pkg/vector"
	"github.com/papercomputeco/vecgate/pkg/vector/memory"
)

var _ = Describe("Driver", func() {
	var (
		driver *memory.Driver
		ctx    context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		driver = memory.NewDriver(memory.Config{}, logger.Nop())
	})

	AfterEach(func() {
		Expect(driver.Close()).To(Succeed())
	})

	Describe("Interface compliance", func() {
		It("should implement vector.Driver interface", func() {
			var _ vector.Driver = (*memory.Driver)(nil)
			var _ vector.Collection = (*memory.Collection)(nil)
		})
	})

	Describe("MaxBatchSize", func() {
		It("advertises the default when unset", func() {
			n, err := driver.MaxBatchSize(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(n).To(Equal(memory.DefaultMaxBatchSize))
		})

		It("advertises the configured limit", func() {
			d := memory.NewDriver(memory.Config{MaxBatchSize: 3}, logger.Nop())
			n, err := d.MaxBatchSize(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(n).To(Equal(3))
		})
	})

	Describe("OpenCollection", func() {
		It("reports not found without an error", func() {
			coll, found, err := driver.OpenCollection(ctx, "missing")
			Expect(err).NotTo(HaveOccurred())
			Expect(found).To(BeFalse())
			Expect(coll).To(BeNil())
		})

		It("returns a created collection", func() {
			created, err := driver.CreateCollection(ctx, "abc", vector.MetricCosine)
			Expect(err).NotTo(HaveOccurred())

			opened, found, err := driver.OpenCollection(ctx, "abc")
			Expect(err).NotTo(HaveOccurred())
			Expect(found).To(BeTrue())
			Expect(opened).To(BeIdenticalTo(created))
		})

		It("refuses to create a collection twice", func() {
			_, err := driver.CreateCollection(ctx, "abc", vector.MetricCosine)
			Expect(err).NotTo(HaveOccurred())

			_, err = driver.CreateCollection(ctx, "abc", vector.MetricCosine)
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("Query", func() {
		var coll vector.Collection

		BeforeEach(func() {
			var err error
			coll, err = driver.CreateCollection(ctx, "abc", vector.MetricCosine)
			Expect(err).NotTo(HaveOccurred())
		})

		It("returns an empty result for an empty collection", func() {
			results, err := coll.Query(ctx, []float32{1, 0}, 5)
			Expect(err).NotTo(HaveOccurred())
			Expect(results).NotTo(BeNil())
			Expect(results).To(BeEmpty())
		})

		It("orders results by ascending cosine distance", func() {
			Expect(coll.Add(ctx,
				[]string{"far", "a", "b"},
				[][]float32{{-1, 0}, {1, 0}, {0.5, 0.8660254}},
			)).To(Succeed())

			results, err := coll.Query(ctx, []float32{1, 0}, 2)
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(HaveLen(2))
			Expect(results[0].ID).To(Equal("a"))
			Expect(results[0].Distance).To(BeNumerically("~", 0.0, 1e-6))
			Expect(results[1].ID).To(Equal("b"))
			Expect(results[1].Distance).To(BeNumerically("~", 0.5, 1e-6))
		})

		It("returns at most the number of stored entries", func() {
			Expect(coll.Add(ctx, []string{"a"}, [][]float32{{1, 0}})).To(Succeed())

			results, err := coll.Query(ctx, []float32{1, 0}, 10)
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(HaveLen(1))
		})

		It("replaces the vector of an existing id", func() {
			Expect(coll.Add(ctx, []string{"a"}, [][]float32{{0, 1}})).To(Succeed())
			Expect(coll.Add(ctx, []string{"a"}, [][]float32{{1, 0}})).To(Succeed())

			results, err := coll.Query(ctx, []float32{1, 0}, 10)
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(HaveLen(1))
			Expect(results[0].Distance).To(BeNumerically("~", 0.0, 1e-6))
		})

		It("rejects vectors with a different dimensionality", func() {
			Expect(coll.Add(ctx, []string{"a"}, [][]float32{{1, 0}})).To(Succeed())

			err := coll.Add(ctx, []string{"b"}, [][]float32{{1, 0, 0}})
			Expect(err).To(MatchError(vector.ErrDimensionMismatch))

			_, err = coll.Query(ctx, []float32{1, 0, 0}, 1)
			Expect(err).To(MatchError(vector.ErrDimensionMismatch))
		})
	})

	Describe("Distance", func() {
		It("computes squared L2", func() {
			Expect(memory.Distance(vector.MetricL2, []float32{0, 0}, []float32{3, 4})).To(BeNumerically("~", 25, 1e-6))
		})

		It("computes negated inner product", func() {
			Expect(memory.Distance(vector.MetricIP, []float32{1, 2}, []float32{3, 4})).To(BeNumerically("~", -11, 1e-6))
		})

		It("treats zero vectors as orthogonal under cosine", func() {
			Expect(memory.Distance(vector.MetricCosine, []float32{0, 0}, []float32{1, 0})).To(BeNumerically("~", 1, 1e-6))
		})
	})
})

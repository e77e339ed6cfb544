package sqlitevec_test

import (
	"context"
	"log/slog"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/vecgate/pkg/logger"
	"github.com/papercomputeco/vecgate/pkg/vector"
	"github.com/papercomputeco/vecgate/pkg/vector/sqlitevec"
)

var _ = Describe("Driver", func() {
	var (
		log *slog.Logger
		ctx context.Context
	)

	BeforeEach(func() {
		log = logger.Nop()
		ctx = context.Background()
	})

	Describe("NewDriver", func() {
		It("should return an error when DBPath is empty", func() {
			_, err := sqlitevec.NewDriver(sqlitevec.Config{DBPath: ""}, log)
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("database path is required"))
		})

		It("should create a driver with an in-memory database", func() {
			driver, err := sqlitevec.NewDriver(sqlitevec.Config{DBPath: ":memory:"}, log)
			Expect(err).NotTo(HaveOccurred())
			Expect(driver).NotTo(BeNil())
			Expect(driver.Close()).To(Succeed())
		})

		It("should advertise the default batch size", func() {
			driver, err := sqlitevec.NewDriver(sqlitevec.Config{DBPath: ":memory:"}, log)
			Expect(err).NotTo(HaveOccurred())
			defer driver.Close()

			n, err := driver.MaxBatchSize(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(n).To(Equal(sqlitevec.DefaultMaxBatchSize))
		})
	})

	Describe("Interface compliance", func() {
		It("should implement vector.Driver interface", func() {
			var _ vector.Driver = (*sqlitevec.Driver)(nil)
			var _ vector.Collection = (*sqlitevec.Collection)(nil)
		})
	})

	Describe("Collections", func() {
		var driver *sqlitevec.Driver

		BeforeEach(func() {
			var err error
			driver, err = sqlitevec.NewDriver(sqlitevec.Config{DBPath: ":memory:"}, log)
			Expect(err).NotTo(HaveOccurred())
		})

		AfterEach(func() {
			Expect(driver.Close()).To(Succeed())
		})

		It("reports a missing collection as not found", func() {
			coll, found, err := driver.OpenCollection(ctx, "missing")
			Expect(err).NotTo(HaveOccurred())
			Expect(found).To(BeFalse())
			Expect(coll).To(BeNil())
		})

		It("opens a collection after it has been created", func() {
			_, err := driver.CreateCollection(ctx, "snippets", vector.MetricCosine)
			Expect(err).NotTo(HaveOccurred())

			coll, found, err := driver.OpenCollection(ctx, "snippets")
			Expect(err).NotTo(HaveOccurred())
			Expect(found).To(BeTrue())
			Expect(coll.Name()).To(Equal("snippets"))
		})

		It("rejects a duplicate collection", func() {
			_, err := driver.CreateCollection(ctx, "snippets", vector.MetricCosine)
			Expect(err).NotTo(HaveOccurred())

			_, err = driver.CreateCollection(ctx, "snippets", vector.MetricCosine)
			Expect(err).To(HaveOccurred())
		})

		It("rejects the inner product metric", func() {
			_, err := driver.CreateCollection(ctx, "snippets", vector.MetricIP)
			Expect(err).To(HaveOccurred())
		})

		It("returns no results before anything was added", func() {
			coll, err := driver.CreateCollection(ctx, "snippets", vector.MetricCosine)
			Expect(err).NotTo(HaveOccurred())

			results, err := coll.Query(ctx, []float32{1, 0, 0, 0}, 3)
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(BeEmpty())
		})

		It("should do nothing when given no entries", func() {
			coll, err := driver.CreateCollection(ctx, "snippets", vector.MetricCosine)
			Expect(err).NotTo(HaveOccurred())
			Expect(coll.Add(ctx, nil, nil)).To(Succeed())
		})

		It("keeps collections independent", func() {
			a, err := driver.CreateCollection(ctx, "alpha", vector.MetricCosine)
			Expect(err).NotTo(HaveOccurred())
			b, err := driver.CreateCollection(ctx, "bravo", vector.MetricCosine)
			Expect(err).NotTo(HaveOccurred())

			Expect(a.Add(ctx, []string{"a1"}, [][]float32{{1, 0}})).To(Succeed())
			Expect(b.Add(ctx, []string{"b1", "b2"}, [][]float32{{1, 0, 0}, {0, 1, 0}})).To(Succeed())

			results, err := a.Query(ctx, []float32{1, 0}, 10)
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(HaveLen(1))
			Expect(results[0].ID).To(Equal("a1"))

			results, err = b.Query(ctx, []float32{0, 1, 0}, 10)
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(HaveLen(2))
			Expect(results[0].ID).To(Equal("b2"))
		})
	})

	Describe("Query", func() {
		var (
			driver *sqlitevec.Driver
			coll   vector.Collection
		)

		BeforeEach(func() {
			var err error
			driver, err = sqlitevec.NewDriver(sqlitevec.Config{DBPath: ":memory:", Dimensions: 4}, log)
			Expect(err).NotTo(HaveOccurred())

			coll, err = driver.CreateCollection(ctx, "snippets", vector.MetricCosine)
			Expect(err).NotTo(HaveOccurred())

			Expect(coll.Add(ctx,
				[]string{"doc_1", "doc_2", "doc_3"},
				[][]float32{
					{1.0, 0.0, 0.0, 0.0},
					{0.0, 1.0, 0.0, 0.0},
					{0.9, 0.1, 0.0, 0.0},
				},
			)).To(Succeed())
		})

		AfterEach(func() {
			Expect(driver.Close()).To(Succeed())
		})

		It("returns the nearest entries in ascending distance order", func() {
			results, err := coll.Query(ctx, []float32{1.0, 0.0, 0.0, 0.0}, 2)
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(HaveLen(2))
			Expect(results[0].ID).To(Equal("doc_1"))
			Expect(results[0].Distance).To(BeNumerically("~", 0.0, 1e-5))
			Expect(results[1].ID).To(Equal("doc_3"))
			Expect(results[1].Distance).To(BeNumerically(">", results[0].Distance))
		})

		It("replaces the embedding of an existing id", func() {
			Expect(coll.Add(ctx, []string{"doc_2"}, [][]float32{{1.0, 0.0, 0.0, 0.0}})).To(Succeed())

			results, err := coll.Query(ctx, []float32{0.0, 1.0, 0.0, 0.0}, 3)
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(HaveLen(3))
			Expect(results[0].Distance).To(BeNumerically(">", 0.5))
		})

		It("answers return counts above the KNN limit with every entry", func() {
			results, err := coll.Query(ctx, []float32{1.0, 0.0, 0.0, 0.0}, 5000)
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(HaveLen(3))
			Expect(results[0].ID).To(Equal("doc_1"))
		})

		It("rejects vectors of the wrong width", func() {
			err := coll.Add(ctx, []string{"doc_4"}, [][]float32{{1.0, 0.0}})
			Expect(err).To(MatchError(vector.ErrDimensionMismatch))

			_, err = coll.Query(ctx, []float32{1.0, 0.0}, 1)
			Expect(err).To(MatchError(vector.ErrDimensionMismatch))
		})
	})

	Describe("Persistence", func() {
		It("reopens collections and their entries from disk", func() {
			path := filepath.Join(GinkgoT().TempDir(), "vecgate.db")

			driver, err := sqlitevec.NewDriver(sqlitevec.Config{DBPath: path}, log)
			Expect(err).NotTo(HaveOccurred())
			coll, err := driver.CreateCollection(ctx, "snippets", vector.MetricCosine)
			Expect(err).NotTo(HaveOccurred())
			Expect(coll.Add(ctx, []string{"a"}, [][]float32{{1, 0}})).To(Succeed())
			Expect(driver.Close()).To(Succeed())

			driver, err = sqlitevec.NewDriver(sqlitevec.Config{DBPath: path}, log)
			Expect(err).NotTo(HaveOccurred())
			defer driver.Close()

			reopened, found, err := driver.OpenCollection(ctx, "snippets")
			Expect(err).NotTo(HaveOccurred())
			Expect(found).To(BeTrue())

			results, err := reopened.Query(ctx, []float32{1, 0}, 1)
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(HaveLen(1))
			Expect(results[0].ID).To(Equal("a"))
		})
	})
})

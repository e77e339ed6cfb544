package vectorutils_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/vecgate/pkg/logger"
	"github.com/papercomputeco/vecgate/pkg/vector/memory"
	"github.com/papercomputeco/vecgate/pkg/vector/sqlitevec"
	vectorutils "github.com/papercomputeco/vecgate/pkg/vector/utils"
)

var _ = Describe("NewVectorDriver", func() {
	ctx := context.Background()

	It("builds the in-memory driver", func() {
		driver, err := vectorutils.NewVectorDriver(ctx, &vectorutils.NewVectorDriverOpts{
			ProviderType: vectorutils.ProviderMemory,
			MaxBatchSize: 10,
			Logger:       logger.Nop(),
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(driver).To(BeAssignableToTypeOf(&memory.Driver{}))

		size, err := driver.MaxBatchSize(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(size).To(Equal(10))
	})

	It("defaults to sqlite", func() {
		driver, err := vectorutils.NewVectorDriver(ctx, &vectorutils.NewVectorDriverOpts{
			DBPath: ":memory:",
			Logger: logger.Nop(),
		})
		Expect(err).NotTo(HaveOccurred())
		defer driver.Close()
		Expect(driver).To(BeAssignableToTypeOf(&sqlitevec.Driver{}))
	})

	It("requires a qdrant host", func() {
		_, err := vectorutils.NewVectorDriver(ctx, &vectorutils.NewVectorDriverOpts{
			ProviderType: vectorutils.ProviderQdrant,
			Logger:       logger.Nop(),
		})
		Expect(err).To(MatchError(ContainSubstring("qdrant host is required")))
	})

	It("rejects unknown providers", func() {
		_, err := vectorutils.NewVectorDriver(ctx, &vectorutils.NewVectorDriverOpts{
			ProviderType: "faiss",
			Logger:       logger.Nop(),
		})
		Expect(err).To(MatchError(ContainSubstring("unsupported vector store provider: faiss")))
	})
})

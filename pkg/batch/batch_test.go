package batch_test

import (
	"fmt"
	"slices"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/vecgate/pkg/batch"
)

func entries(n int) ([]string, [][]float32) {
	ids := make([]string, n)
	vectors := make([][]float32, n)
	for i := range n {
		ids[i] = fmt.Sprintf("id_%d", i)
		vectors[i] = []float32{float32(i)}
	}
	return ids, vectors
}

var _ = Describe("Split", func() {
	It("yields nothing for an empty input", func() {
		chunks := slices.Collect(batch.Split(nil, nil, 3))
		Expect(chunks).To(BeEmpty())
	})

	It("splits three entries by two", func() {
		ids := []string{"a", "b", "c"}
		vectors := [][]float32{{1, 0}, {0, 1}, {1, 1}}

		chunks := slices.Collect(batch.Split(ids, vectors, 2))
		Expect(chunks).To(HaveLen(2))
		Expect(chunks[0].Index).To(Equal(0))
		Expect(chunks[0].IDs).To(Equal([]string{"a", "b"}))
		Expect(chunks[0].Vectors).To(Equal([][]float32{{1, 0}, {0, 1}}))
		Expect(chunks[1].Index).To(Equal(1))
		Expect(chunks[1].IDs).To(Equal([]string{"c"}))
		Expect(chunks[1].Vectors).To(Equal([][]float32{{1, 1}}))
	})

	It("treats a size below one as one", func() {
		ids, vectors := entries(3)
		Expect(slices.Collect(batch.Split(ids, vectors, 0))).To(HaveLen(3))
	})

	It("stops when the consumer stops", func() {
		ids, vectors := entries(10)
		seen := 0
		for range batch.Split(ids, vectors, 2) {
			seen++
			if seen == 2 {
				break
			}
		}
		Expect(seen).To(Equal(2))
	})

	DescribeTable("chunk sizes and round trip",
		func(n, size int) {
			ids, vectors := entries(n)
			chunks := slices.Collect(batch.Split(ids, vectors, size))

			Expect(chunks).To(HaveLen(batch.Count(n, size)))
			Expect(len(chunks)).To(Equal((n + size - 1) / size))

			var gotIDs []string
			var gotVectors [][]float32
			for i, c := range chunks {
				Expect(c.Index).To(Equal(i))
				Expect(c.Len()).To(Equal(len(c.Vectors)))
				if i < len(chunks)-1 {
					Expect(c.Len()).To(Equal(size))
				} else {
					want := n % size
					if want == 0 {
						want = size
					}
					Expect(c.Len()).To(Equal(want))
				}
				gotIDs = append(gotIDs, c.IDs...)
				gotVectors = append(gotVectors, c.Vectors...)
			}

			Expect(gotIDs).To(Equal(ids))
			Expect(gotVectors).To(Equal(vectors))
		},
		Entry("one entry", 1, 1),
		Entry("exact multiple", 6, 3),
		Entry("remainder", 7, 3),
		Entry("size larger than input", 4, 10),
		Entry("large batch", 12000, 5460),
	)
})

var _ = Describe("EffectiveSize", func() {
	DescribeTable("subtracts the safety margin and floors at one",
		func(advertised, want int) {
			Expect(batch.EffectiveSize(advertised)).To(Equal(want))
		},
		Entry("typical", 5461, 5460),
		Entry("two", 2, 1),
		Entry("one", 1, 1),
		Entry("zero", 0, 1),
		Entry("negative", -4, 1),
	)
})

var _ = Describe("Count", func() {
	It("is zero for no entries", func() {
		Expect(batch.Count(0, 5)).To(BeZero())
	})
})

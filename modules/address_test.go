package modules

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("FillAddresses", func() {
	var (
		addresses [MaxVoices]int
		x, y      Poly
	)

	BeforeEach(func() {
		addresses = [MaxVoices]int{}
		x, y = Poly{}, Poly{}
	})

	It("should address a row with Y and follow with the increment", func() {
		y.Set(5)

		FillAddresses(&addresses, 0, 0, &x, &y, 1, 4, 4)

		Expect(addresses[0]).To(Equal(8))
		Expect(addresses[1]).To(Equal(9))
		Expect(addresses[7]).To(Equal(15))
		Expect(addresses[8]).To(Equal(0))
	})

	It("should address a cell with X and Y", func() {
		x.Set(2.5, 7.5)
		y.Set(5, 0)

		FillAddresses(&addresses, 0, 0, &x, &y, 1, 4, 4)

		Expect(addresses[0]).To(Equal(9))
		Expect(addresses[1]).To(Equal(3))
	})

	It("should treat the channel as a line with X only", func() {
		x.Set(10, 0)

		FillAddresses(&addresses, 0, 0, &x, &y, 1, 4, 4)

		Expect(addresses[0]).To(Equal(15))
		Expect(addresses[1]).To(Equal(0))
		Expect(addresses[2]).To(Equal(1))
	})

	It("should apply the offsets", func() {
		FillAddresses(&addresses, 1, 2, &x, &y, 3, 4, 4)

		Expect(addresses[0]).To(Equal(9))
		Expect(addresses[1]).To(Equal(12))
		Expect(addresses[2]).To(Equal(15))
		Expect(addresses[3]).To(Equal(2))
	})

	It("should clamp into the channel", func() {
		y.Set(-10, 10)

		FillAddresses(&addresses, 0, 0, &x, &y, 1, 4, 4)

		Expect(addresses[0]).To(Equal(0))
		Expect(addresses[1]).To(Equal(0))
	})

	It("should give zeros for an empty channel", func() {
		addresses[3] = 7
		y.Set(5)

		FillAddresses(&addresses, 0, 0, &x, &y, 1, 0, 4)

		Expect(addresses).To(Equal([MaxVoices]int{}))
	})
})

var _ = Describe("Poly", func() {
	It("should carry at most MaxVoices voices", func() {
		vs := make([]float32, MaxVoices+4)
		p := PolyOf(vs...)

		Expect(p.Channels).To(Equal(MaxVoices))
	})

	It("should read zero past the carried voices", func() {
		p := PolyOf(3)

		Expect(p.Voltage(0)).To(Equal(float32(3)))
		Expect(p.Voltage(1)).To(BeZero())
		Expect(p.Voltage(-1)).To(BeZero())
		Expect(p.High(0)).To(BeTrue())
	})
})

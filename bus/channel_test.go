package bus

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("MemChannel", func() {
	var (
		mem []float32
		ch  *MemChannel[float32]
	)

	BeforeEach(func() {
		mem = make([]float32, 12)
		ch = NewMemChannel(mem, 12, 4, 1)
	})

	It("should report its shape", func() {
		Expect(ch.Len()).To(Equal(12))
		Expect(ch.Columns()).To(Equal(4))
		Expect(ch.Width()).To(Equal(4))
		Expect(ch.Height()).To(Equal(3))
	})

	It("should round-trip cell writes through the 1D index", func() {
		for row := 0; row < ch.Height(); row++ {
			for col := 0; col < ch.Width(); col++ {
				v := float32(row*10 + col)
				ch.WriteCell(col, row, v)

				Expect(ch.ReadCell(col, row)).To(Equal(v))
				Expect(ch.Read(col + row*4)).To(Equal(v))
				Expect(mem[col+row*4]).To(Equal(v))
			}
		}
	})

	It("should read and write through an index handle", func() {
		ch.At(5).Set(2.5)

		Expect(ch.At(5).Get()).To(Equal(float32(2.5)))
		Expect(ch.At(5).Index()).To(Equal(5))
		Expect(ch.Read(5)).To(Equal(float32(2.5)))
	})

	It("should treat a channel without columns as one row", func() {
		flat := NewMemChannel(make([]bool, 7), 7, 0, 1)

		Expect(flat.Width()).To(Equal(7))
		Expect(flat.Height()).To(Equal(1))

		flat.WriteCell(3, 0, true)
		Expect(flat.Read(3)).To(BeTrue())
	})

	It("should address interleaved memory by stride", func() {
		interleaved := make([]float32, 6)
		left := NewMemChannel(interleaved, 3, 0, 2)
		right := NewMemChannel(interleaved[1:], 3, 0, 2)

		left.Write(2, 1)
		right.Write(2, 2)

		Expect(interleaved).To(Equal([]float32{0, 0, 0, 0, 1, 2}))
	})

	It("should read zero and drop writes outside the range", func() {
		ch.Write(12, 9)
		ch.Write(-1, 9)

		Expect(ch.Read(12)).To(BeZero())
		Expect(ch.Read(-1)).To(BeZero())
		Expect(mem).To(HaveEach(float32(0)))
	})

	It("should panic on an inconsistent shape", func() {
		Expect(func() { NewMemChannel(make([]int, 10), 10, 3, 1) }).To(Panic())
		Expect(func() { NewMemChannel(make([]int, 4), 10, 0, 1) }).To(Panic())
		Expect(func() { NewMemChannel(make([]int, 4), 4, 0, 0) }).To(Panic())
	})

	Context("with a write hook", func() {
		var writes []int

		BeforeEach(func() {
			writes = nil
			ch.SetWriteHook(func(index int, _ float32) {
				writes = append(writes, index)
			})
		})

		It("should fire once per write on every path and never on read", func() {
			ch.Write(0, 1)
			ch.WriteCell(1, 1, 2)
			ch.At(2).Set(3)

			_ = ch.Read(0)
			_ = ch.ReadCell(1, 1)
			_ = ch.At(2).Get()

			Expect(writes).To(Equal([]int{0, 5, 2}))
		})

		It("should not fire for dropped writes", func() {
			ch.Write(100, 1)

			Expect(writes).To(BeEmpty())
		})
	})
})

var _ = Describe("ChannelHost", func() {
	It("should carve equally shaped channels", func() {
		host := NewChannelHost[float32](3, 4, 4)

		Expect(host.ChannelCount()).To(Equal(3))
		Expect(host.Channel(1).Width()).To(Equal(4))
		Expect(host.Channel(1).Height()).To(Equal(4))
		Expect(host.Channel(5)).To(BeNil())
		Expect(host.Channel(-1)).To(BeNil())
	})

	It("should keep channels independent", func() {
		host := NewChannelHost[int](2, 2, 2)

		host.Channel(0).Write(3, 7)

		Expect(host.Channel(1).Read(3)).To(BeZero())
		Expect(host.Channel(0).Read(3)).To(Equal(7))
	})

	It("should be ready by default", func() {
		host := NewChannelHost[bool](1, 1, 1)
		Expect(host.Ready()).To(BeTrue())

		host.SetReady(false)
		Expect(host.Ready()).To(BeFalse())
	})

	It("should clear and reconfigure", func() {
		host := NewChannelHost[int](1, 2, 2)
		host.Channel(0).Write(0, 4)

		host.Clear()
		Expect(host.Channel(0).Read(0)).To(BeZero())

		host.Configure(4, 8, 1)
		Expect(host.ChannelCount()).To(Equal(4))
		Expect(host.Channel(3).Width()).To(Equal(8))
		Expect(host.MemChannel(3)).NotTo(BeNil())
		Expect(host.MemChannel(4)).To(BeNil())
	})
})

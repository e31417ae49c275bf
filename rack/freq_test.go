package rack

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Freq", func() {
	It("should give the sample time", func() {
		Expect((48 * KHz).SampleTime()).To(BeNumerically("~", 1.0/48000, 1e-12))
	})

	It("should panic on a non-positive rate", func() {
		Expect(func() { Freq(0).SampleTime() }).To(Panic())
	})

	It("should convert between frames and time", func() {
		f := 1 * KHz

		Expect(f.Frames(time.Second)).To(Equal(uint64(1000)))
		Expect(f.Frames(1500 * time.Microsecond)).To(Equal(uint64(2)))
		Expect(f.Frames(0)).To(BeZero())
		Expect(f.Frame(1500 * time.Microsecond)).To(Equal(uint64(1)))
		Expect(f.Duration(250)).To(Equal(250 * time.Millisecond))
	})
})

package modules

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gopkg.in/yaml.v3"
)

func paramsNode(src string) *yaml.Node {
	var doc yaml.Node
	Expect(yaml.Unmarshal([]byte(src), &doc)).To(Succeed())

	return doc.Content[0]
}

var _ = Describe("Factory", func() {
	var f *Factory

	BeforeEach(func() {
		f = DefaultFactory()
	})

	It("should list the kinds", func() {
		Expect(f.Kinds()).To(Equal([]string{"accessor", "fx", "matrix", "tap"}))
	})

	It("should refuse a kind registered twice", func() {
		Expect(func() { f.Register("tap", newTapFromParams) }).To(Panic())
	})

	It("should build a matrix", func() {
		m, err := f.Create("matrix", "M", paramsNode("channels: 3\nwidth: 2\nheight: 5\n"))
		Expect(err).NotTo(HaveOccurred())

		n, w, h := m.(*Matrix).Shape()
		Expect([]int{n, w, h}).To(Equal([]int{3, 2, 5}))
		Expect(m.Name()).To(Equal("M"))
	})

	It("should use defaults without parameters", func() {
		m, err := f.Create("matrix", "M", nil)
		Expect(err).NotTo(HaveOccurred())

		n, w, h := m.(*Matrix).Shape()
		Expect([]int{n, w, h}).To(Equal([]int{1, 16, 16}))

		a, err := f.Create("accessor", "A", nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(a.(*Accessor).Data).To(Equal(float32(10)))
	})

	It("should build an accessor with its inputs", func() {
		m, err := f.Create("accessor", "A", paramsNode(
			"channel: 1\ndata: 2.5\nwrite_always: true\nx: [1, 2]\ny: [3]\n"))
		Expect(err).NotTo(HaveOccurred())

		a := m.(*Accessor)
		Expect(a.Channel).To(Equal(1))
		Expect(a.Data).To(Equal(float32(2.5)))
		Expect(a.WriteAlways).To(BeTrue())
		Expect(a.X).To(Equal(PolyOf(1, 2)))
		Expect(a.Y.Channels).To(Equal(1))
	})

	It("should build an fx", func() {
		m, err := f.Create("fx", "F", paramsNode(
			"rand_min: -1\nrand_max: 1\nscroll_x: 1\nscroll_amount: 3\n"))
		Expect(err).NotTo(HaveOccurred())

		fx := m.(*FX)
		Expect(fx.RandMin).To(Equal(float32(-1)))
		Expect(fx.RandMax).To(Equal(float32(1)))
		Expect(fx.ScrollX).To(Equal(1))
		Expect(fx.ScrollAmount).To(Equal(3))
	})

	It("should build a tap", func() {
		m, err := f.Create("tap", "T", paramsNode("rows: 3\ncolumn: 2\nin: [1]\n"))
		Expect(err).NotTo(HaveOccurred())

		t := m.(*Tap)
		Expect(t.fwd.Decorator().Rows()).To(Equal(3))
		Expect(t.Column).To(Equal(2))
	})

	It("should reject unknown kinds", func() {
		_, err := f.Create("oscillator", "O", nil)
		Expect(err).To(MatchError(ContainSubstring("unknown module kind")))
	})

	It("should reject invalid parameters", func() {
		_, err := f.Create("matrix", "M", paramsNode("width: 0\n"))
		Expect(err).To(HaveOccurred())

		_, err = f.Create("tap", "T", paramsNode("rows: 40\n"))
		Expect(err).To(HaveOccurred())

		_, err = f.Create("fx", "F", paramsNode("seed: [1]\n"))
		Expect(err).To(MatchError(ContainSubstring(`creating fx "F"`)))
	})
})

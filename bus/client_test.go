package bus

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Client", func() {
	var (
		host   *ChannelHost[float32]
		client *Client[float32]
	)

	BeforeEach(func() {
		host = NewChannelHost[float32](3, 4, 4)
		client = NewClient[float32]()
	})

	Context("when unbound", func() {
		It("should expose nothing", func() {
			Expect(client.Bound()).To(BeFalse())
			Expect(client.ChannelCount()).To(Equal(0))
			Expect(client.Channel(0)).To(BeNil())
			Expect(client.Ready()).To(BeFalse())
		})

		It("should read zero and ignore writes", func() {
			client.WriteAt(0, 3, 1.5)

			Expect(client.ReadAt(0, 3)).To(Equal(float32(0)))
			Expect(host.Channel(0).Read(3)).To(BeZero())
		})
	})

	Context("when bound", func() {
		BeforeEach(func() {
			client.Bind(host)
		})

		It("should delegate to the host", func() {
			Expect(client.Bound()).To(BeTrue())
			Expect(client.ChannelCount()).To(Equal(3))
			Expect(client.Channel(1).Width()).To(Equal(4))
			Expect(client.Channel(5)).To(BeNil())
			Expect(client.Ready()).To(BeTrue())
			Expect(client.Host()).To(BeIdenticalTo(host))
		})

		It("should read and write the host memory", func() {
			client.WriteAt(2, 15, 0.25)

			Expect(host.Channel(2).Read(15)).To(Equal(float32(0.25)))
			Expect(client.ReadAt(2, 15)).To(Equal(float32(0.25)))
		})

		It("should follow host readiness", func() {
			host.SetReady(false)

			Expect(client.Ready()).To(BeFalse())
		})

		It("should degrade after unbinding", func() {
			client.WriteAt(0, 0, 1)
			client.Bind(nil)

			client.WriteAt(0, 0, 2)

			Expect(client.ChannelCount()).To(Equal(0))
			Expect(client.ReadAt(0, 0)).To(BeZero())
			Expect(host.Channel(0).Read(0)).To(Equal(float32(1)))
		})
	})

	It("should notify on every bind before returning", func() {
		var seen []Host[float32]
		client.OnHostChanged(func(h Host[float32]) {
			seen = append(seen, h)
			if h == nil {
				Expect(client.Host()).To(BeNil())
			} else {
				Expect(client.Host()).To(BeIdenticalTo(h))
			}
		})

		client.Bind(host)
		client.Bind(nil)

		Expect(seen).To(HaveLen(2))
		Expect(seen[0]).To(BeIdenticalTo(host))
		Expect(seen[1]).To(BeNil())
	})

	It("should forward through a chain of clients", func() {
		middle := NewClient[float32]()
		middle.Bind(host)
		client.Bind(middle)

		client.WriteAt(1, 0, 3)

		Expect(client.ChannelCount()).To(Equal(3))
		Expect(host.Channel(1).Read(0)).To(Equal(float32(3)))

		middle.Bind(nil)
		Expect(client.ChannelCount()).To(Equal(0))
		Expect(client.Ready()).To(BeFalse())
	})

	Describe("Rebind", func() {
		It("should bind to the matching host of a provider", func() {
			p := newSampleProvider()
			DeclareHost[float32](p.hosts, host)

			client.Rebind(p)

			Expect(client.Host()).To(BeIdenticalTo(host))
		})

		It("should unbind when the provider hosts another type", func() {
			client.Bind(host)
			p := newSampleProvider()
			DeclareHost[bool](p.hosts, NewChannelHost[bool](1, 1, 1))

			client.Rebind(p)

			Expect(client.Bound()).To(BeFalse())
		})

		It("should unbind on a nil provider", func() {
			client.Bind(host)

			client.Rebind(nil)

			Expect(client.Bound()).To(BeFalse())
		})
	})
})

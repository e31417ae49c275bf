package bus

import (
	"reflect"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Roles", func() {
	var (
		floats  *ChannelHost[float32]
		gates   *ChannelHost[bool]
		fClient *Client[float32]
		bClient *Client[bool]
		clients *Roles
	)

	BeforeEach(func() {
		floats = NewChannelHost[float32](2, 4, 4)
		gates = NewChannelHost[bool](5, 8, 1)
		fClient = NewClient[float32]()
		bClient = NewClient[bool]()

		clients = NewRoles()
		DeclareClient(clients, fClient)
		DeclareClient(clients, bClient)
	})

	It("should keep declaration order", func() {
		Expect(clients.Len()).To(Equal(2))
		Expect(clients.Type(0)).To(Equal(reflect.TypeFor[float32]()))
		Expect(clients.Type(1)).To(Equal(reflect.TypeFor[bool]()))
		Expect(clients.Role(1)).To(BeIdenticalTo(bClient))
	})

	It("should reject a second role of the same type", func() {
		Expect(func() { DeclareClient(clients, NewClient[bool]()) }).To(Panic())
	})

	Describe("AggregateChannelCount", func() {
		It("should be zero when nothing is bound", func() {
			Expect(AggregateChannelCount(clients)).To(Equal(0))
		})

		It("should be the maximum over all types", func() {
			fClient.Bind(floats)
			bClient.Bind(gates)

			Expect(AggregateChannelCount(clients)).To(Equal(5))
		})

		It("should ignore types with no channels", func() {
			fClient.Bind(floats)

			Expect(AggregateChannelCount(clients)).To(Equal(2))
		})
	})

	Describe("SlotOwner", func() {
		It("should resolve the first type populating a slot", func() {
			fClient.Bind(floats)
			bClient.Bind(gates)

			Expect(SlotOwner(clients, 1)).To(Equal(0))
			Expect(SlotOwner(clients, 3)).To(Equal(1))
			Expect(SlotOwner(clients, 5)).To(Equal(-1))
			Expect(SlotOwner(clients, -1)).To(Equal(-1))
		})
	})

	Describe("ResolveReadyHost", func() {
		It("should report nothing connected", func() {
			ready, found := ResolveReadyHost(clients)

			Expect(ready).To(BeFalse())
			Expect(found).To(BeFalse())
			Expect(StatusOf(clients)).To(Equal(Status{}))
		})

		It("should report connected but not ready", func() {
			floats.SetReady(false)
			fClient.Bind(floats)

			ready, found := ResolveReadyHost(clients)

			Expect(ready).To(BeFalse())
			Expect(found).To(BeTrue())
		})

		It("should keep scanning past an unready host", func() {
			floats.SetReady(false)
			fClient.Bind(floats)
			bClient.Bind(gates)

			Expect(StatusOf(clients)).To(Equal(Status{HostFound: true, Ready: true}))
		})

		It("should let the first declared type win when several are ready", func() {
			fClient.Bind(floats)
			bClient.Bind(gates)

			var order []string
			scanned := NewRoles()
			DeclareHost[float32](scanned, &loggingHost[float32]{name: "float", log: &order})
			DeclareHost[bool](scanned, &loggingHost[bool]{name: "bool", log: &order})

			ready, found := ResolveReadyHost(scanned)

			Expect(ready).To(BeTrue())
			Expect(found).To(BeTrue())
			Expect(order).To(Equal([]string{"float"}))
		})
	})

	Describe("capability queries", func() {
		var p *sampleProvider

		BeforeEach(func() {
			p = newSampleProvider()
			DeclareHost[float32](p.hosts, floats)
			DeclareClient(p.clients, bClient)
		})

		It("should find a declared host by type", func() {
			h, ok := AsHost[float32](p)
			Expect(ok).To(BeTrue())
			Expect(h).To(BeIdenticalTo(floats))

			_, ok = AsHost[bool](p)
			Expect(ok).To(BeFalse())

			_, ok = AsHost[bool](nil)
			Expect(ok).To(BeFalse())
		})

		It("should tell whether a neighbor is a client of a hosted type", func() {
			hosts := NewRoles()
			DeclareHost[bool](hosts, gates)
			Expect(HasClientFor(hosts, p)).To(BeTrue())

			floatOnly := NewRoles()
			DeclareHost[float32](floatOnly, floats)
			Expect(HasClientFor(floatOnly, p)).To(BeFalse())
			Expect(HasClientFor(floatOnly, nil)).To(BeFalse())
		})

		It("should rebind every client from a provider", func() {
			RebindAll(clients, p)

			Expect(fClient.Host()).To(BeIdenticalTo(floats))
			Expect(bClient.Bound()).To(BeFalse())

			RebindAll(clients, nil)
			Expect(fClient.Bound()).To(BeFalse())
		})
	})
})

type loggingHost[T any] struct {
	name string
	log  *[]string
}

func (h *loggingHost[T]) ChannelCount() int {
	return 1
}

func (h *loggingHost[T]) Channel(int) Channel[T] {
	return nil
}

func (h *loggingHost[T]) Ready() bool {
	*h.log = append(*h.log, h.name)
	return true
}

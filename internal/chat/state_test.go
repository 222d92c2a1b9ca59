package chat_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"basegraph.app/chat/internal/chat"
)

var _ = Describe("Conversation", func() {
	It("starts empty and idle", func() {
		conv := chat.NewConversation()
		snap := conv.Snapshot()
		Expect(snap.Messages).To(BeEmpty())
		Expect(snap.IsLoading).To(BeFalse())
		Expect(snap.IsStreaming).To(BeFalse())
	})

	It("stops notifying after unsubscribe", func() {
		conv := chat.NewConversation()
		calls := 0
		unsubscribe := conv.Subscribe(func(chat.Snapshot) { calls++ })

		conv.Reset()
		unsubscribe()
		conv.Reset()

		Expect(calls).To(Equal(1))
	})
})

package chat_test

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"basegraph.app/chat/internal/chat"
)

type brokenStorage struct{}

func (brokenStorage) Get(string) (string, bool, error) { return "", false, errors.New("storage disabled") }
func (brokenStorage) Set(string, string) error        { return errors.New("storage disabled") }

var _ = Describe("IdentityStore", func() {
	It("generates and persists a token on first use", func() {
		storage := chat.NewMemoryStorage()
		store := chat.NewIdentityStore(storage, nil)

		id, restored := store.Resolve()
		Expect(restored).To(BeFalse())
		_, err := uuid.Parse(id)
		Expect(err).NotTo(HaveOccurred())

		persisted, ok, err := storage.Get(chat.SessionIDKey)
		Expect(err).NotTo(HaveOccurred())
		Expect(ok).To(BeTrue())
		Expect(persisted).To(Equal(id))
	})

	It("reuses a persisted token", func() {
		storage := chat.NewMemoryStorage()
		Expect(storage.Set(chat.SessionIDKey, "existing")).To(Succeed())

		id, restored := chat.NewIdentityStore(storage, nil).Resolve()
		Expect(id).To(Equal("existing"))
		Expect(restored).To(BeTrue())
	})

	It("memoizes the first resolution", func() {
		store := chat.NewIdentityStore(chat.NewMemoryStorage(), nil)
		Expect(store.Current()).To(BeEmpty())

		first, _ := store.Resolve()
		second, restored := store.Resolve()
		Expect(second).To(Equal(first))
		Expect(restored).To(BeFalse())
		Expect(store.Current()).To(Equal(first))
	})

	It("keeps working in memory when storage fails", func() {
		store := chat.NewIdentityStore(brokenStorage{}, nil)
		id, restored := store.Resolve()
		Expect(id).NotTo(BeEmpty())
		Expect(restored).To(BeFalse())
		Expect(store.Current()).To(Equal(id))
	})

	It("survives a reload through FileStorage", func() {
		path := filepath.Join(GinkgoT().TempDir(), "nested", "state.json")

		first, restored := chat.NewIdentityStore(chat.NewFileStorage(path), nil).Resolve()
		Expect(restored).To(BeFalse())

		second, restored := chat.NewIdentityStore(chat.NewFileStorage(path), nil).Resolve()
		Expect(restored).To(BeTrue())
		Expect(second).To(Equal(first))
	})

	It("treats a corrupt state file as a storage failure", func() {
		path := filepath.Join(GinkgoT().TempDir(), "state.json")
		Expect(os.WriteFile(path, []byte("{not json"), 0o600)).To(Succeed())

		storage := chat.NewFileStorage(path)
		_, _, err := storage.Get(chat.SessionIDKey)
		Expect(err).To(HaveOccurred())

		id, restored := chat.NewIdentityStore(storage, nil).Resolve()
		Expect(id).NotTo(BeEmpty())
		Expect(restored).To(BeFalse())
	})
})

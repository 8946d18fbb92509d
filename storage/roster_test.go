package storage_test

import (
	"context"
	"time"

	"github.com/google/uuid"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/luma/relay/storage"
)

var _ = Describe("storage / Roster", func() {
	It("records joins and forgets leaves", func() {
		store := storage.NewInmemoryStore()
		defer store.Close()

		roster := storage.NewRoster(store)
		id := uuid.New()
		connectedAt := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

		Expect(roster.Join(context.Background(), id, storage.Session{
			Name:        "Steve",
			Remote:      "10.0.0.1:1234",
			ConnectedAt: connectedAt,
		})).To(Succeed())

		sessions, err := roster.Sessions()
		Expect(err).To(Succeed())
		Expect(sessions).To(Equal(map[string]storage.Session{
			id.String(): {Name: "Steve", Remote: "10.0.0.1:1234", ConnectedAt: connectedAt},
		}))

		Expect(roster.Leave(context.Background(), id)).To(Succeed())

		snapshot, err := roster.Snapshot()
		Expect(err).To(Succeed())
		Expect(string(snapshot)).To(MatchJSON(`{}`))
	})
})

package services_test

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/fastygo/teamspace/internal/infrastructure/ledger"
	"github.com/fastygo/teamspace/internal/services"
	"github.com/fastygo/teamspace/repository/memory"
)

var _ = Describe("LedgerJanitor", func() {
	var store *ledger.Store

	BeforeEach(func() {
		var err error
		store, err = ledger.Open(filepath.Join(GinkgoT().TempDir(), "ledger.db"), "")
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(store.Close)
	})

	It("prunes entries past retention and keeps recent ones", func() {
		Expect(store.Record(ledger.Entry{Table: "documents", RowID: "old", RecordedAt: time.Now().Add(-48 * time.Hour)})).To(Succeed())
		Expect(store.Record(ledger.Entry{Table: "documents", RowID: "new"})).To(Succeed())

		janitor, err := services.NewLedgerJanitor(store, nil, services.JanitorConfig{Retention: 24 * time.Hour}, nil)
		Expect(err).NotTo(HaveOccurred())

		pruned, err := janitor.Sweep(context.Background())
		Expect(err).NotTo(HaveOccurred())
		Expect(pruned).To(Equal(1))

		entries, err := store.List(10)
		Expect(err).NotTo(HaveOccurred())
		Expect(entries).To(HaveLen(1))
		Expect(entries[0].RowID).To(Equal("new"))
		Expect(entries[0].Kind).To(Equal(ledger.KindRow))
	})

	It("rejects an invalid schedule", func() {
		_, err := services.NewLedgerJanitor(store, nil, services.JanitorConfig{Schedule: "whenever"}, nil)
		Expect(err).To(HaveOccurred())
	})

	It("resolves entries by id", func() {
		Expect(store.Record(ledger.Entry{ID: "e-1", Table: "documents"})).To(Succeed())
		Expect(store.Resolve("e-1")).To(Succeed())
		size, err := store.Size()
		Expect(err).NotTo(HaveOccurred())
		Expect(size).To(BeZero())
	})

	Describe("object entries", func() {
		var (
			ctx   context.Context
			blobs *memory.Blobs
		)

		BeforeEach(func() {
			ctx = context.Background()
			blobs = memory.NewBlobs()
		})

		It("resolves entries whose object an operator already removed", func() {
			Expect(blobs.Upload(ctx, "documents/w/m/kept.txt", strings.NewReader("x"), "text/plain")).To(Succeed())
			Expect(store.Record(ledger.Entry{ID: "gone", Kind: ledger.KindObject, Table: "documents", Path: "documents/w/m/gone.txt"})).To(Succeed())
			Expect(store.Record(ledger.Entry{ID: "kept", Kind: ledger.KindObject, Table: "documents", Path: "documents/w/m/kept.txt"})).To(Succeed())
			Expect(store.Record(ledger.Entry{ID: "row", Kind: ledger.KindRow, Table: "documents", RowID: "d-1", Path: "documents/w/m/row.txt"})).To(Succeed())

			janitor, err := services.NewLedgerJanitor(store, blobs, services.JanitorConfig{}, nil)
			Expect(err).NotTo(HaveOccurred())

			pruned, err := janitor.Sweep(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(pruned).To(BeZero())

			entries, err := store.List(10)
			Expect(err).NotTo(HaveOccurred())
			Expect(entries).To(ConsistOf(
				HaveField("ID", "kept"),
				HaveField("ID", "row"),
			))
			Expect(blobs.Has("documents/w/m/kept.txt")).To(BeTrue())
		})

		It("leaves every entry alone without a blob store", func() {
			Expect(store.Record(ledger.Entry{Kind: ledger.KindObject, Table: "documents", Path: "documents/w/m/gone.txt"})).To(Succeed())

			janitor, err := services.NewLedgerJanitor(store, nil, services.JanitorConfig{}, nil)
			Expect(err).NotTo(HaveOccurred())
			_, err = janitor.Sweep(ctx)
			Expect(err).NotTo(HaveOccurred())

			size, err := store.Size()
			Expect(err).NotTo(HaveOccurred())
			Expect(size).To(Equal(1))
		})
	})
})

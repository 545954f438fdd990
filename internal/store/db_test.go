package store_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sphildreth/blackboard/internal/store"
)

var _ = Describe("Store", func() {
	Describe("New", func() {
		It("opens and migrates with every logging option", func() {
			for _, opts := range []store.Options{
				{},
				{Quiet: true},
				{Debug: true},
			} {
				db, err := store.New(":memory:", opts)
				Expect(err).NotTo(HaveOccurred())
				Expect(db.CreateUser("firstcaller", "pass")).To(Succeed())
				Expect(db.Close()).To(Succeed())
			}
		})

		It("errors on an unopenable path", func() {
			_, err := store.New("/dev/null/nope.sqlite3", store.Options{Quiet: true})
			Expect(err).To(HaveOccurred())
		})
	})
})

package tracker_test

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/SamuelRM25/codispro/internal/tracker"
)

var _ = Describe("Registry", func() {
	var registry *tracker.Registry

	position := func(subjectID string, lat, lon float64) tracker.LastKnownPosition {
		return tracker.LastKnownPosition{
			SubjectID:  subjectID,
			Latitude:   lat,
			Longitude:  lon,
			CapturedAt: time.Now().UTC(),
		}
	}

	BeforeEach(func() {
		registry = tracker.NewRegistry()
	})

	Describe("Upsert", func() {
		It("should record the subject's last-known position", func() {
			registry.Upsert("conn-1", position("u1", 14.6, -90.5))

			pos, ok := registry.Get("u1")
			Expect(ok).To(BeTrue())
			Expect(pos.Latitude).To(Equal(14.6))
			Expect(pos.Longitude).To(Equal(-90.5))
		})

		It("should overwrite, not accumulate, on repeated updates", func() {
			registry.Upsert("conn-1", position("u1", 14.6, -90.5))
			registry.Upsert("conn-1", position("u1", 14.7, -90.4))

			Expect(registry.Subjects()).To(Equal(1))
			pos, _ := registry.Get("u1")
			Expect(pos.Latitude).To(Equal(14.7))
		})

		It("should reflect the most recently processed update across connections", func() {
			registry.Upsert("conn-1", position("u1", 14.6, -90.5))
			registry.Upsert("conn-2", position("u1", 14.9, -90.1))

			pos, _ := registry.Get("u1")
			Expect(pos.Latitude).To(Equal(14.9))
		})

		It("should release the previous subject when a connection switches", func() {
			registry.Upsert("conn-1", position("u1", 14.6, -90.5))
			registry.Upsert("conn-1", position("u2", 15.0, -91.0))

			_, ok := registry.Get("u1")
			Expect(ok).To(BeFalse())
			_, ok = registry.Get("u2")
			Expect(ok).To(BeTrue())
			Expect(registry.Connections()).To(Equal(1))
		})
	})

	Describe("Remove", func() {
		It("should clear the subject when its only connection leaves", func() {
			registry.Upsert("conn-1", position("u1", 14.6, -90.5))

			subjectID, stillReporting, ok := registry.Remove("conn-1")
			Expect(ok).To(BeTrue())
			Expect(subjectID).To(Equal("u1"))
			Expect(stillReporting).To(BeFalse())

			_, found := registry.Get("u1")
			Expect(found).To(BeFalse())
			Expect(registry.Subjects()).To(Equal(0))
		})

		It("should keep the subject while another connection still reports it", func() {
			registry.Upsert("conn-1", position("u1", 14.6, -90.5))
			registry.Upsert("conn-2", position("u1", 14.7, -90.4))

			_, stillReporting, ok := registry.Remove("conn-1")
			Expect(ok).To(BeTrue())
			Expect(stillReporting).To(BeTrue())

			pos, found := registry.Get("u1")
			Expect(found).To(BeTrue())
			Expect(pos.Latitude).To(Equal(14.7))

			_, stillReporting, _ = registry.Remove("conn-2")
			Expect(stillReporting).To(BeFalse())
			Expect(registry.Subjects()).To(Equal(0))
		})

		It("should report ok false for a connection that never updated", func() {
			_, _, ok := registry.Remove("unknown")
			Expect(ok).To(BeFalse())
		})

		It("should be idempotent", func() {
			registry.Upsert("conn-1", position("u1", 14.6, -90.5))
			registry.Remove("conn-1")

			_, _, ok := registry.Remove("conn-1")
			Expect(ok).To(BeFalse())
		})
	})

	Describe("Snapshot", func() {
		It("should return all present subjects ordered by subject", func() {
			registry.Upsert("conn-2", position("u2", 15.0, -91.0))
			registry.Upsert("conn-1", position("u1", 14.6, -90.5))

			snapshot := registry.Snapshot()
			Expect(snapshot).To(HaveLen(2))
			Expect(snapshot[0].SubjectID).To(Equal("u1"))
			Expect(snapshot[1].SubjectID).To(Equal("u2"))
		})

		It("should be empty for a fresh registry", func() {
			Expect(registry.Snapshot()).To(BeEmpty())
		})
	})
})

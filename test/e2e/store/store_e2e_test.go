package store_test

import (
	"context"
	"fmt"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/SamuelRM25/codispro/internal/store"
)

// truncate clears the sample log between test groups so counts stay exact.
func truncate() {
	Expect(db.Exec("TRUNCATE TABLE location_logs RESTART IDENTITY").Error).NotTo(HaveOccurred())
}

func appendSample(subjectID, vehicleID string, capturedAt time.Time) *store.LocationLog {
	sample := &store.LocationLog{
		SubjectID:  subjectID,
		VehicleID:  vehicleID,
		Latitude:   14.6349,
		Longitude:  -90.5069,
		CapturedAt: capturedAt,
	}
	Expect(locationStore.Append(context.Background(), sample)).To(Succeed())
	return sample
}

var _ = Describe("Location Store E2E", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
		truncate()
	})

	Context("Append and Query", func() {
		It("should persist a sample and read it back", func() {
			now := time.Now().UTC().Truncate(time.Microsecond)
			accuracy := 12.5

			sample := &store.LocationLog{
				SubjectID:  "worker-001",
				VehicleID:  "truck-7",
				Latitude:   14.6349,
				Longitude:  -90.5069,
				Accuracy:   &accuracy,
				CapturedAt: now,
			}
			Expect(locationStore.Append(ctx, sample)).To(Succeed())
			Expect(sample.ID).NotTo(BeZero())

			rows, err := locationStore.Query(ctx, store.HistoryFilter{SubjectID: "worker-001"})
			Expect(err).NotTo(HaveOccurred())
			Expect(rows).To(HaveLen(1))
			Expect(rows[0].SubjectID).To(Equal("worker-001"))
			Expect(rows[0].VehicleID).To(Equal("truck-7"))
			Expect(rows[0].Latitude).To(Equal(14.6349))
			Expect(rows[0].Longitude).To(Equal(-90.5069))
			Expect(rows[0].Accuracy).NotTo(BeNil())
			Expect(*rows[0].Accuracy).To(Equal(accuracy))
			Expect(rows[0].CapturedAt).To(BeTemporally("==", now))
			Expect(rows[0].RecordedAt).NotTo(BeZero())
		})

		It("should return samples newest first", func() {
			base := time.Now().UTC().Add(-time.Hour)
			for i := range 5 {
				appendSample("worker-001", "", base.Add(time.Duration(i)*time.Minute))
			}

			rows, err := locationStore.Query(ctx, store.HistoryFilter{SubjectID: "worker-001"})
			Expect(err).NotTo(HaveOccurred())
			Expect(rows).To(HaveLen(5))
			for i := 1; i < len(rows); i++ {
				Expect(rows[i].CapturedAt).To(BeTemporally("<", rows[i-1].CapturedAt))
			}
		})

		It("should apply the requested limit", func() {
			base := time.Now().UTC().Add(-time.Hour)
			for i := range 10 {
				appendSample("worker-001", "", base.Add(time.Duration(i)*time.Minute))
			}

			rows, err := locationStore.Query(ctx, store.HistoryFilter{SubjectID: "worker-001", Limit: 3})
			Expect(err).NotTo(HaveOccurred())
			Expect(rows).To(HaveLen(3))
			Expect(rows[0].CapturedAt).To(BeTemporally("==", base.Add(9*time.Minute)))
		})

		It("should apply the default limit when none is given", func() {
			base := time.Now().UTC().Add(-2 * time.Hour)
			for i := range store.DefaultHistoryLimit + 10 {
				appendSample("worker-001", "", base.Add(time.Duration(i)*time.Second))
			}

			rows, err := locationStore.Query(ctx, store.HistoryFilter{SubjectID: "worker-001"})
			Expect(err).NotTo(HaveOccurred())
			Expect(rows).To(HaveLen(store.DefaultHistoryLimit))
		})

		It("should filter by subject and vehicle independently", func() {
			now := time.Now().UTC()
			appendSample("worker-001", "truck-7", now.Add(-3*time.Minute))
			appendSample("worker-001", "truck-9", now.Add(-2*time.Minute))
			appendSample("worker-002", "truck-7", now.Add(-time.Minute))

			bySubject, err := locationStore.Query(ctx, store.HistoryFilter{SubjectID: "worker-001"})
			Expect(err).NotTo(HaveOccurred())
			Expect(bySubject).To(HaveLen(2))

			byVehicle, err := locationStore.Query(ctx, store.HistoryFilter{VehicleID: "truck-7"})
			Expect(err).NotTo(HaveOccurred())
			Expect(byVehicle).To(HaveLen(2))

			both, err := locationStore.Query(ctx, store.HistoryFilter{SubjectID: "worker-001", VehicleID: "truck-7"})
			Expect(err).NotTo(HaveOccurred())
			Expect(both).To(HaveLen(1))
		})

		It("should return all subjects when no filter is given", func() {
			now := time.Now().UTC()
			for i := range 3 {
				appendSample(fmt.Sprintf("worker-%03d", i), "", now.Add(time.Duration(-i)*time.Minute))
			}

			rows, err := locationStore.Query(ctx, store.HistoryFilter{})
			Expect(err).NotTo(HaveOccurred())
			Expect(rows).To(HaveLen(3))
		})
	})

	Context("Retention", func() {
		It("should delete only samples captured before the cutoff", func() {
			now := time.Now().UTC()
			horizon := 7 * 24 * time.Hour
			cutoff := now.Add(-horizon)

			appendSample("worker-001", "", now.Add(-10*24*time.Hour))
			appendSample("worker-001", "", now.Add(-8*24*time.Hour))
			appendSample("worker-001", "", now.Add(-time.Hour))
			appendSample("worker-002", "", now.Add(-9*24*time.Hour))

			deleted, err := locationStore.DeleteOlderThan(ctx, cutoff)
			Expect(err).NotTo(HaveOccurred())
			Expect(deleted).To(Equal(int64(3)))

			rows, err := locationStore.Query(ctx, store.HistoryFilter{})
			Expect(err).NotTo(HaveOccurred())
			Expect(rows).To(HaveLen(1))
			Expect(rows[0].SubjectID).To(Equal("worker-001"))
		})

		It("should report zero deletions on an immediate second sweep", func() {
			now := time.Now().UTC()
			cutoff := now.Add(-7 * 24 * time.Hour)

			appendSample("worker-001", "", now.Add(-30*24*time.Hour))

			deleted, err := locationStore.DeleteOlderThan(ctx, cutoff)
			Expect(err).NotTo(HaveOccurred())
			Expect(deleted).To(Equal(int64(1)))

			deleted, err = locationStore.DeleteOlderThan(ctx, cutoff)
			Expect(err).NotTo(HaveOccurred())
			Expect(deleted).To(BeZero())
		})

		It("should leave an empty table untouched", func() {
			deleted, err := locationStore.DeleteOlderThan(ctx, time.Now().UTC())
			Expect(err).NotTo(HaveOccurred())
			Expect(deleted).To(BeZero())
		})
	})
})

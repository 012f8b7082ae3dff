package store

import (
	"context"
	"reflect"
	"testing"

	"github.com/manp-monitoring/report-service/internal/model"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dir := t.TempDir()
	s, err := NewSQLiteStore(context.Background(), dir+"/test.db")
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func makeReport(id, userID, createdAt string) *model.Report {
	return &model.Report{
		ID:                   id,
		UserID:               userID,
		DENRPersonnels:       []string{"A. Cruz", "B. Reyes"},
		ActivityDateStart:    "2024-01-01T00:00:00Z",
		Location:             "Site A",
		PersonsInvolved:      "unknown",
		ComplaintDescription: "illegal cutting",
		ActionTaken:          "documented",
		Recommendation:       "follow up",
		CreatedAt:            createdAt,
	}
}

func TestUpsertReport_Idempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first := makeReport("r1", "u1", "2024-01-01T10:00:00Z")
	if err := s.UpsertReport(ctx, first); err != nil {
		t.Fatalf("UpsertReport: %v", err)
	}

	// Second insert with the same id but a different payload must be a
	// silent no-op: first write wins, no fields merged.
	second := makeReport("r1", "u1", "2024-01-01T10:00:00Z")
	second.Location = "Site B"
	second.DENRPersonnels = []string{"X. Other"}
	if err := s.UpsertReport(ctx, second); err != nil {
		t.Fatalf("UpsertReport duplicate: %v", err)
	}

	reports, err := s.ListReportsByUser(ctx, "u1")
	if err != nil {
		t.Fatalf("ListReportsByUser: %v", err)
	}
	if len(reports) != 1 {
		t.Fatalf("len(reports) = %d, want 1", len(reports))
	}
	if reports[0].Location != "Site A" {
		t.Errorf("Location = %q, want first-written %q", reports[0].Location, "Site A")
	}
	if !reflect.DeepEqual(reports[0].DENRPersonnels, []string{"A. Cruz", "B. Reyes"}) {
		t.Errorf("DENRPersonnels = %v, want first-written value", reports[0].DENRPersonnels)
	}
}

func TestUpsertReport_SetsSyncedAndUpdatedAt(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	r := makeReport("r1", "u1", "2024-01-01T10:00:00Z")
	r.Synced = 0
	if err := s.UpsertReport(ctx, r); err != nil {
		t.Fatalf("UpsertReport: %v", err)
	}

	got := mustListOne(t, s, "u1")
	if got.Synced != 1 {
		t.Errorf("Synced = %d, want 1", got.Synced)
	}
	if got.UpdatedAt != got.CreatedAt {
		t.Errorf("UpdatedAt = %q, want created_at %q", got.UpdatedAt, got.CreatedAt)
	}
}

func TestListReportsByUser_Ordering(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	// Inserted out of order on purpose.
	for _, tc := range []struct{ id, createdAt string }{
		{"r2", "2024-01-02T00:00:00Z"},
		{"r1", "2024-01-01T00:00:00Z"},
		{"r3", "2024-01-03T00:00:00Z"},
	} {
		if err := s.UpsertReport(ctx, makeReport(tc.id, "u1", tc.createdAt)); err != nil {
			t.Fatalf("UpsertReport %s: %v", tc.id, err)
		}
	}

	reports, err := s.ListReportsByUser(ctx, "u1")
	if err != nil {
		t.Fatalf("ListReportsByUser: %v", err)
	}
	var ids []string
	for _, r := range reports {
		ids = append(ids, r.ID)
	}
	want := []string{"r3", "r2", "r1"}
	if !reflect.DeepEqual(ids, want) {
		t.Errorf("order = %v, want %v", ids, want)
	}
}

func TestListReportsByUser_FiltersByUser(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	s.UpsertReport(ctx, makeReport("r1", "u1", "2024-01-01T00:00:00Z"))
	s.UpsertReport(ctx, makeReport("r2", "u2", "2024-01-02T00:00:00Z"))

	reports, err := s.ListReportsByUser(ctx, "u1")
	if err != nil {
		t.Fatalf("ListReportsByUser: %v", err)
	}
	if len(reports) != 1 || reports[0].ID != "r1" {
		t.Errorf("reports = %v, want only r1", reports)
	}
}

func TestReportRoundTrip_ArrayFields(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	r := makeReport("r1", "u1", "2024-01-01T10:00:00Z")
	r.OtherAgencyPersonnels = []string{"PNP Officer C"}
	r.ActivityDateEnd = "2024-01-01T12:00:00Z"
	r.Photos = []model.Photo{
		{
			Filename:   "photo1.jpg",
			LocalPath:  "uploads/u1/2024-01-01T10-00-00Z/photo1.jpg",
			MimeType:   "image/jpeg",
			RemoteID:   "drive-id-1",
			RemoteLink: "https://drive.google.com/file/d/drive-id-1/view",
		},
		{Filename: "photo2.jpg", LocalPath: "uploads/u1/2024-01-01T10-00-00Z/photo2.jpg", MimeType: "image/jpeg"},
	}

	if err := s.UpsertReport(ctx, r); err != nil {
		t.Fatalf("UpsertReport: %v", err)
	}

	got := mustListOne(t, s, "u1")
	if !reflect.DeepEqual(got.DENRPersonnels, r.DENRPersonnels) {
		t.Errorf("DENRPersonnels = %v, want %v", got.DENRPersonnels, r.DENRPersonnels)
	}
	if !reflect.DeepEqual(got.OtherAgencyPersonnels, r.OtherAgencyPersonnels) {
		t.Errorf("OtherAgencyPersonnels = %v, want %v", got.OtherAgencyPersonnels, r.OtherAgencyPersonnels)
	}
	if !reflect.DeepEqual(got.Photos, r.Photos) {
		t.Errorf("Photos = %v, want %v", got.Photos, r.Photos)
	}
	if got.ActivityDateEnd != r.ActivityDateEnd {
		t.Errorf("ActivityDateEnd = %q, want %q", got.ActivityDateEnd, r.ActivityDateEnd)
	}
}

func TestNullableFields_StayAbsent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	r := makeReport("r1", "u1", "2024-01-01T10:00:00Z")
	// OtherAgencyPersonnels, ActivityDateEnd, and Photos left unset.
	if err := s.UpsertReport(ctx, r); err != nil {
		t.Fatalf("UpsertReport: %v", err)
	}

	got := mustListOne(t, s, "u1")
	if got.OtherAgencyPersonnels != nil {
		t.Errorf("OtherAgencyPersonnels = %v, want nil", got.OtherAgencyPersonnels)
	}
	if got.Photos != nil {
		t.Errorf("Photos = %v, want nil", got.Photos)
	}
	if got.ActivityDateEnd != "" {
		t.Errorf("ActivityDateEnd = %q, want empty", got.ActivityDateEnd)
	}
}

func TestNullableFields_EmptyIsNotNull(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	// An explicitly empty list is a value, not an absence.
	r := makeReport("r1", "u1", "2024-01-01T10:00:00Z")
	r.OtherAgencyPersonnels = []string{}
	if err := s.UpsertReport(ctx, r); err != nil {
		t.Fatalf("UpsertReport: %v", err)
	}

	got := mustListOne(t, s, "u1")
	if got.OtherAgencyPersonnels == nil || len(got.OtherAgencyPersonnels) != 0 {
		t.Errorf("OtherAgencyPersonnels = %v, want empty non-nil slice", got.OtherAgencyPersonnels)
	}
}

func TestListReportsByUser_NoReports(t *testing.T) {
	s := newTestStore(t)
	reports, err := s.ListReportsByUser(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("ListReportsByUser: %v", err)
	}
	if len(reports) != 0 {
		t.Errorf("len(reports) = %d, want 0", len(reports))
	}
}

func mustListOne(t *testing.T, s *SQLiteStore, userID string) *model.Report {
	t.Helper()
	reports, err := s.ListReportsByUser(context.Background(), userID)
	if err != nil {
		t.Fatalf("ListReportsByUser: %v", err)
	}
	if len(reports) != 1 {
		t.Fatalf("len(reports) = %d, want 1", len(reports))
	}
	return reports[0]
}

package service

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"

	"eyegic/internal/database"
	"eyegic/internal/domain"
	"eyegic/internal/events"
	"eyegic/internal/models"
	"eyegic/internal/pricing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func newBookingService(t *testing.T, relaxed bool) (*BookingService, *database.DB) {
	t.Helper()
	db := setupDB(t)
	return NewBookingService(db, pricing.DefaultTable(), nil, nil, relaxed, nopLogger()), db
}

func createOptician(t *testing.T, s *BookingService, actor models.Actor) int64 {
	t.Helper()
	id, err := s.CreateOpticianBooking(context.Background(), OpticianRequest{
		ServiceType: models.ServiceEyeTest,
		Contact:     Contact{MobileNumber: models.StringPtr("98765 43210")},
	}, actor)
	require.NoError(t, err)
	return id
}

func TestCreateOpticianBooking(t *testing.T) {
	s, _ := newBookingService(t, false)
	ctx := context.Background()

	id, err := s.CreateOpticianBooking(ctx, OpticianRequest{
		ServiceType: models.ServiceCombined,
		Contact: Contact{
			MobileNumber:  models.StringPtr("(987) 654-3210"),
			Address:       models.StringPtr("12 MG Road"),
			PreferredTime: models.StringPtr("morning"),
		},
	}, alice)
	require.NoError(t, err)

	b, err := s.GetBooking(ctx, id, alice)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, b.Status)
	assert.Equal(t, "alice", b.Customer)
	assert.Nil(t, b.Provider)
	assert.Equal(t, "9876543210", *b.MobileNumber)
	assert.Equal(t, models.PriceInfo{BaseFee: 70, AddOns: 0, Total: 70}, b.Price)
	assert.Equal(t, b.CreatedAt, b.UpdatedAt)
	assert.Nil(t, b.Details)
}

func TestCreateOpticianBooking_Rejections(t *testing.T) {
	s, _ := newBookingService(t, false)
	ctx := context.Background()

	_, err := s.CreateOpticianBooking(ctx, OpticianRequest{ServiceType: models.ServiceEyeTest}, alice)
	assert.ErrorIs(t, err, domain.ErrInvalidPhone)

	_, err = s.CreateOpticianBooking(ctx, OpticianRequest{
		ServiceType: models.ServiceEyeTest,
		Contact:     Contact{MobileNumber: models.StringPtr("12345")},
	}, alice)
	assert.ErrorIs(t, err, domain.ErrInvalidPhone)

	_, err = s.CreateOpticianBooking(ctx, OpticianRequest{
		ServiceType: "laserSurgery",
		Contact:     Contact{MobileNumber: models.StringPtr("9876543210")},
	}, alice)
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = s.CreateOpticianBooking(ctx, OpticianRequest{
		ServiceType: models.ServiceEyeTest,
		Contact:     Contact{MobileNumber: models.StringPtr("9876543210")},
	}, guest)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = s.CreateOpticianBooking(ctx, OpticianRequest{
		ServiceType: models.ServiceEyeTest,
		Contact:     Contact{MobileNumber: models.StringPtr("9876543210")},
	}, models.Anonymous())
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestCreateRepairBooking(t *testing.T) {
	s, _ := newBookingService(t, false)
	ctx := context.Background()

	id, err := s.CreateRepairBooking(ctx, RepairRequest{
		RepairTypes: []models.RepairType{models.RepairAdjustment, models.RepairLensReplacement, models.RepairAdjustment},
	}, alice)
	require.NoError(t, err)

	b, err := s.GetBooking(ctx, id, alice)
	require.NoError(t, err)
	assert.Equal(t, []models.RepairType{models.RepairAdjustment, models.RepairLensReplacement}, b.RepairTypes)
	assert.Equal(t, int64(80), b.Price.Total)

	id, err = s.CreateRepairBooking(ctx, RepairRequest{}, alice)
	require.NoError(t, err)
	b, err = s.GetBooking(ctx, id, alice)
	require.NoError(t, err)
	assert.Empty(t, b.RepairTypes)
	assert.Equal(t, int64(25), b.Price.Total)

	_, err = s.CreateRepairBooking(ctx, RepairRequest{RepairTypes: []models.RepairType{"welding"}}, alice)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestCreateRentalBooking(t *testing.T) {
	s, db := newBookingService(t, false)
	ctx := context.Background()
	seedItem(t, db, 7, 100, 500)

	req := RentalRequest{
		RentalItemID: 7,
		RentalDays:   3,
		Contact:      Contact{Address: models.StringPtr("12 MG Road")},
	}
	id, err := s.CreateRentalBooking(ctx, req, alice)
	require.NoError(t, err)

	b, err := s.GetBooking(ctx, id, alice)
	require.NoError(t, err)
	assert.Equal(t, models.PriceInfo{BaseFee: 300, AddOns: 500, Total: 800}, b.Price)
	assert.Equal(t, int64(7), *b.RentalItemID)
	assert.Equal(t, int64(3), *b.RentalDays)

	item, err := db.GetRentalItem(ctx, 7)
	require.NoError(t, err)
	assert.False(t, item.Available)

	_, err = s.CreateRentalBooking(ctx, req, bob)
	assert.ErrorIs(t, err, domain.ErrUnavailable)
}

func TestCreateRentalBooking_Rejections(t *testing.T) {
	s, db := newBookingService(t, false)
	ctx := context.Background()
	seedItem(t, db, 1, 100, 0)
	addr := Contact{Address: models.StringPtr("12 MG Road")}

	_, err := s.CreateRentalBooking(ctx, RentalRequest{RentalItemID: 1, RentalDays: 0, Contact: addr}, alice)
	assert.ErrorIs(t, err, domain.ErrInvalidDuration)

	_, err = s.CreateRentalBooking(ctx, RentalRequest{RentalItemID: 1, RentalDays: 1<<62 + 1, Contact: addr}, alice)
	assert.ErrorIs(t, err, domain.ErrInvalidDuration)

	_, err = s.CreateRentalBooking(ctx, RentalRequest{RentalItemID: 1, RentalDays: models.MaxRentalDays + 1, Contact: addr}, alice)
	assert.ErrorIs(t, err, domain.ErrInvalidDuration)

	_, err = s.CreateRentalBooking(ctx, RentalRequest{RentalItemID: 1, RentalDays: 2}, alice)
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = s.CreateRentalBooking(ctx, RentalRequest{
		RentalItemID: 1, RentalDays: 2, Contact: Contact{Address: models.StringPtr("   ")},
	}, alice)
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = s.CreateRentalBooking(ctx, RentalRequest{RentalItemID: 99, RentalDays: 2, Contact: addr}, alice)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestUpdateStatus_Lifecycle(t *testing.T) {
	s, db := newBookingService(t, false)
	ctx := context.Background()
	seedProvider(t, db, provider.ID, true)
	id := createOptician(t, s, alice)

	_, err := s.AssignProvider(ctx, id, provider.ID, admin)
	require.NoError(t, err)

	for _, next := range []models.Status{
		models.StatusAccepted, models.StatusScheduled, models.StatusInProgress, models.StatusCompleted,
	} {
		b, err := s.UpdateStatus(ctx, id, next, provider)
		require.NoError(t, err)
		assert.Equal(t, next, b.Status)
	}

	_, err = s.UpdateStatus(ctx, id, models.StatusCancelled, admin)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestUpdateStatus_Authorization(t *testing.T) {
	s, db := newBookingService(t, false)
	ctx := context.Background()
	seedProvider(t, db, provider.ID, true)
	id := createOptician(t, s, alice)

	_, err := s.UpdateStatus(ctx, id, models.StatusAccepted, alice)
	assert.ErrorIs(t, err, domain.ErrForbidden, "customer is not the provider")

	_, err = s.UpdateStatus(ctx, id, models.StatusAccepted, provider)
	assert.ErrorIs(t, err, domain.ErrForbidden, "provider not assigned yet")

	_, err = s.UpdateStatus(ctx, 999, models.StatusAccepted, admin)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = s.UpdateStatus(ctx, id, "done", admin)
	assert.ErrorIs(t, err, domain.ErrValidation)

	b, err := s.UpdateStatus(ctx, id, models.StatusAccepted, admin)
	require.NoError(t, err)
	assert.Equal(t, models.StatusAccepted, b.Status)
}

func TestUpdateStatus_StrictAndRelaxed(t *testing.T) {
	ctx := context.Background()

	strict, _ := newBookingService(t, false)
	id := createOptician(t, strict, alice)
	_, err := strict.UpdateStatus(ctx, id, models.StatusScheduled, admin)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	_, err = strict.UpdateStatus(ctx, id, models.StatusPending, admin)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	relaxed, _ := newBookingService(t, true)
	id = createOptician(t, relaxed, alice)
	b, err := relaxed.UpdateStatus(ctx, id, models.StatusScheduled, admin)
	require.NoError(t, err)
	assert.Equal(t, models.StatusScheduled, b.Status)
}

func TestUpdateStatus_ReleasesRentalItem(t *testing.T) {
	s, db := newBookingService(t, false)
	ctx := context.Background()
	seedItem(t, db, 3, 50, 0)

	id, err := s.CreateRentalBooking(ctx, RentalRequest{
		RentalItemID: 3, RentalDays: 1, Contact: Contact{Address: models.StringPtr("addr")},
	}, alice)
	require.NoError(t, err)

	_, err = s.UpdateStatus(ctx, id, models.StatusCancelled, admin)
	require.NoError(t, err)

	item, err := db.GetRentalItem(ctx, 3)
	require.NoError(t, err)
	assert.True(t, item.Available)
}

func TestAssignProvider(t *testing.T) {
	s, db := newBookingService(t, false)
	ctx := context.Background()
	seedProvider(t, db, provider.ID, true)
	seedProvider(t, db, "sleepy", false)
	id := createOptician(t, s, alice)

	_, err := s.AssignProvider(ctx, id, provider.ID, alice)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = s.AssignProvider(ctx, 404, provider.ID, admin)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = s.AssignProvider(ctx, id, "ghost", admin)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = s.AssignProvider(ctx, id, "sleepy", admin)
	assert.ErrorIs(t, err, domain.ErrProviderInactive)

	b, err := s.AssignProvider(ctx, id, provider.ID, admin)
	require.NoError(t, err)
	assert.Equal(t, provider.ID, *b.Provider)
	assert.Equal(t, models.StatusPending, b.Status)

	_, err = s.UpdateStatus(ctx, id, models.StatusCancelled, admin)
	require.NoError(t, err)
	_, err = s.AssignProvider(ctx, id, provider.ID, admin)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestGetBooking_Visibility(t *testing.T) {
	s, db := newBookingService(t, false)
	ctx := context.Background()
	seedProvider(t, db, provider.ID, true)
	id := createOptician(t, s, alice)

	_, err := s.GetBooking(ctx, id, bob)
	assert.ErrorIs(t, err, domain.ErrForbidden)
	_, err = s.GetBooking(ctx, id, models.Anonymous())
	assert.ErrorIs(t, err, domain.ErrForbidden)
	_, err = s.GetBooking(ctx, id, provider)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = s.AssignProvider(ctx, id, provider.ID, admin)
	require.NoError(t, err)

	for _, actor := range []models.Actor{alice, provider, admin} {
		_, err := s.GetBooking(ctx, id, actor)
		assert.NoError(t, err, actor.ID)
	}

	_, err = s.GetBooking(ctx, 12345, admin)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestListings(t *testing.T) {
	s, db := newBookingService(t, false)
	ctx := context.Background()
	seedProvider(t, db, provider.ID, true)

	first := createOptician(t, s, alice)
	createOptician(t, s, bob)
	third := createOptician(t, s, alice)

	mine, err := s.ListByCustomer(ctx, alice)
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, first, mine[0].ID)
	assert.Equal(t, third, mine[1].ID)

	_, err = s.AssignProvider(ctx, third, provider.ID, admin)
	require.NoError(t, err)
	assigned, err := s.ListByProvider(ctx, provider)
	require.NoError(t, err)
	require.Len(t, assigned, 1)
	assert.Equal(t, third, assigned[0].ID)

	_, err = s.ListAll(ctx, alice)
	assert.ErrorIs(t, err, domain.ErrForbidden)
	all, err := s.ListAll(ctx, admin)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	_, err = s.ListByCustomer(ctx, models.Anonymous())
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestExportBookings(t *testing.T) {
	s, _ := newBookingService(t, false)
	ctx := context.Background()
	createOptician(t, s, alice)

	var buf bytes.Buffer
	assert.ErrorIs(t, s.ExportBookings(ctx, &buf, alice), domain.ErrForbidden)

	require.NoError(t, s.ExportBookings(ctx, &buf, admin))
	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows("Bookings")
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestBookingService_PublishesAndSyncs(t *testing.T) {
	db := setupDB(t)
	pub := new(mockPublisher)
	worker := new(mockSyncWorker)
	s := NewBookingService(db, nil, pub, worker, false, nopLogger())
	ctx := context.Background()

	pub.On("PublishJSON", events.EventBookingCreated, mock.MatchedBy(func(p events.BookingEventPayload) bool {
		return p.Customer == "alice" && p.Status == "pending" && p.Total == 50
	})).Return(nil).Once()
	worker.On("EnqueueTask", mock.Anything, syncTaskUpsert, mock.AnythingOfType("int64"), mock.Anything, "").Return(nil).Once()

	id := createOptician(t, s, alice)

	pub.On("PublishJSON", events.EventBookingStatusChanged, mock.MatchedBy(func(p events.BookingEventPayload) bool {
		return p.BookingID == id && p.PreviousStatus == "pending" && p.Status == "accepted" && p.ChangedBy == "admin"
	})).Return(nil).Once()
	worker.On("EnqueueTask", mock.Anything, syncTaskUpdateStatus, id, mock.Anything, "accepted").Return(assert.AnError).Once()

	_, err := s.UpdateStatus(ctx, id, models.StatusAccepted, admin)
	require.NoError(t, err, "sync failures are logged, not returned")

	pub.AssertExpectations(t)
	worker.AssertExpectations(t)
}

func TestUpdateStatus_ConcurrentSameTarget(t *testing.T) {
	s, _ := newBookingService(t, false)
	ctx := context.Background()
	id := createOptician(t, s, alice)

	const workers = 8
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		go func() {
			_, err := s.UpdateStatus(ctx, id, models.StatusAccepted, admin)
			errs <- err
		}()
	}

	succeeded := 0
	for i := 0; i < workers; i++ {
		err := <-errs
		if err == nil {
			succeeded++
			continue
		}
		assert.True(t, errors.Is(err, domain.ErrConflict) || errors.Is(err, domain.ErrInvalidTransition), err)
	}
	assert.Equal(t, 1, succeeded)
}

// assignBarrier holds every AssignProviderWithVersion call until all callers
// have read the booking, so they race on the same version.
type assignBarrier struct {
	domain.Repository
	ready sync.WaitGroup
}

func (r *assignBarrier) AssignProviderWithVersion(ctx context.Context, id, fromVersion int64, providerID string) error {
	r.ready.Done()
	r.ready.Wait()
	return r.Repository.AssignProviderWithVersion(ctx, id, fromVersion, providerID)
}

func TestAssignProvider_ConcurrentAdminsOneWins(t *testing.T) {
	db := setupDB(t)
	seedProvider(t, db, "p1", true)
	seedProvider(t, db, "p2", true)
	repo := &assignBarrier{Repository: db}
	s := NewBookingService(repo, pricing.DefaultTable(), nil, nil, false, nopLogger())
	id := createOptician(t, s, alice)
	ctx := context.Background()

	providers := []string{"p1", "p2"}
	repo.ready.Add(len(providers))
	errs := make([]error, len(providers))

	var wg sync.WaitGroup
	for i, p := range providers {
		wg.Add(1)
		go func(i int, p string) {
			defer wg.Done()
			_, errs[i] = s.AssignProvider(ctx, id, p, admin)
		}(i, p)
	}
	wg.Wait()

	var winner string
	for i, err := range errs {
		if err == nil {
			require.Empty(t, winner, "both assignments succeeded")
			winner = providers[i]
			continue
		}
		assert.ErrorIs(t, err, domain.ErrConflict)
	}
	require.NotEmpty(t, winner)

	b, err := s.GetBooking(ctx, id, admin)
	require.NoError(t, err)
	require.NotNil(t, b.Provider)
	assert.Equal(t, winner, *b.Provider)
}

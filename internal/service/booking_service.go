package service

import (
	"context"
	"io"
	"strings"

	"eyegic/internal/domain"
	"eyegic/internal/events"
	"eyegic/internal/export"
	"eyegic/internal/models"
	"eyegic/internal/pricing"
	"eyegic/internal/validation"

	"github.com/rs/zerolog"
)

const (
	syncTaskUpsert       = "upsert"
	syncTaskUpdateStatus = "update_status"
)

// Contact carries the optional free-text fields shared by every booking type.
// A nil field was not provided.
type Contact struct {
	Address       *string
	PreferredTime *string
	Details       *string
	MobileNumber  *string
}

type OpticianRequest struct {
	ServiceType models.ServiceType
	Contact
}

type RepairRequest struct {
	RepairTypes []models.RepairType
	Contact
}

type RentalRequest struct {
	RentalItemID int64
	RentalDays   int64
	Contact
}

type BookingService struct {
	repo         domain.Repository
	pricing      *pricing.Table
	eventBus     domain.EventPublisher
	sheetsWorker domain.SyncWorker
	relaxed      bool
	logger       *zerolog.Logger
}

func NewBookingService(
	repo domain.Repository,
	table *pricing.Table,
	eventBus domain.EventPublisher,
	sheetsWorker domain.SyncWorker,
	relaxedTransitions bool,
	logger *zerolog.Logger,
) *BookingService {
	if table == nil {
		table = pricing.DefaultTable()
	}
	return &BookingService{
		repo:         repo,
		pricing:      table,
		eventBus:     eventBus,
		sheetsWorker: sheetsWorker,
		relaxed:      relaxedTransitions,
		logger:       logger,
	}
}

func (s *BookingService) CreateOpticianBooking(ctx context.Context, req OpticianRequest, actor models.Actor) (int64, error) {
	if err := requireRegistered(actor); err != nil {
		return 0, err
	}
	if !req.ServiceType.IsValid() {
		return 0, domain.InvalidInput("unknown service type %q", req.ServiceType)
	}
	if req.MobileNumber == nil {
		return 0, validation.ValidatePhone("").Err()
	}
	contact, err := checkContact(req.Contact)
	if err != nil {
		return 0, err
	}

	price, err := s.pricing.QuoteOptician(req.ServiceType)
	if err != nil {
		return 0, err
	}

	service := req.ServiceType
	booking := newBooking(models.BookingTypeMobileOptician, actor, contact, price)
	booking.ServiceType = &service
	return s.create(ctx, booking)
}

func (s *BookingService) CreateRepairBooking(ctx context.Context, req RepairRequest, actor models.Actor) (int64, error) {
	if err := requireRegistered(actor); err != nil {
		return 0, err
	}
	for _, r := range req.RepairTypes {
		if !r.IsValid() {
			return 0, domain.InvalidInput("unknown repair type %q", r)
		}
	}
	contact, err := checkContact(req.Contact)
	if err != nil {
		return 0, err
	}

	price, err := s.pricing.QuoteRepair(req.RepairTypes)
	if err != nil {
		return 0, err
	}

	booking := newBooking(models.BookingTypeRepair, actor, contact, price)
	booking.RepairTypes = dedupeRepairs(req.RepairTypes)
	return s.create(ctx, booking)
}

func (s *BookingService) CreateRentalBooking(ctx context.Context, req RentalRequest, actor models.Actor) (int64, error) {
	if err := requireRegistered(actor); err != nil {
		return 0, err
	}
	if err := pricing.CheckRentalDays(req.RentalDays); err != nil {
		return 0, err
	}
	if req.Address == nil || strings.TrimSpace(*req.Address) == "" {
		return 0, domain.InvalidInput("Delivery address is required for rentals")
	}
	contact, err := checkContact(req.Contact)
	if err != nil {
		return 0, err
	}

	item, err := s.repo.GetRentalItem(ctx, req.RentalItemID)
	if err != nil {
		return 0, err
	}
	if !item.Available {
		return 0, domain.Unavailable("rental item %d is not available", item.ID)
	}

	price, err := s.pricing.QuoteRental(item, req.RentalDays)
	if err != nil {
		return 0, err
	}

	itemID, days := item.ID, req.RentalDays
	booking := newBooking(models.BookingTypeRental, actor, contact, price)
	booking.RentalItemID = &itemID
	booking.RentalDays = &days
	return s.create(ctx, booking)
}

func (s *BookingService) create(ctx context.Context, booking *models.Booking) (int64, error) {
	if err := s.repo.CreateBooking(ctx, booking); err != nil {
		return 0, err
	}

	s.logger.Info().
		Int64("booking_id", booking.ID).
		Str("type", string(booking.BookingType)).
		Str("customer", booking.Customer).
		Int64("total", booking.Price.Total).
		Msg("Booking created")

	s.publishEvent(events.EventBookingCreated, booking, "", booking.Customer)
	s.enqueueSync(ctx, booking, syncTaskUpsert)
	return booking.ID, nil
}

// UpdateStatus moves a booking along its lifecycle. Only the assigned provider or
// an administrator may do so.
func (s *BookingService) UpdateStatus(ctx context.Context, id int64, to models.Status, actor models.Actor) (*models.Booking, error) {
	if !to.IsValid() {
		return nil, domain.InvalidInput("unknown booking status %q", to)
	}

	booking, err := s.repo.GetBooking(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && !booking.HasProvider(actor.ID) {
		return nil, domain.Forbidden("only the assigned provider or an admin can update booking %d", id)
	}
	if !s.canTransition(booking.Status, to) {
		return nil, domain.InvalidTransition("booking %d cannot move from %s to %s", id, booking.Status, to)
	}

	from := booking.Status
	if err := s.repo.UpdateBookingStatusWithVersion(ctx, id, booking.Version, from, to); err != nil {
		return nil, err
	}

	updated, err := s.repo.GetBooking(ctx, id)
	if err != nil {
		return nil, err
	}

	s.logger.Info().Int64("booking_id", id).Str("from", string(from)).Str("to", string(to)).Str("by", actor.ID).Msg("Booking status changed")
	s.publishEvent(events.EventBookingStatusChanged, updated, from, actor.ID)
	s.enqueueSync(ctx, updated, syncTaskUpdateStatus)
	return updated, nil
}

func (s *BookingService) canTransition(from, to models.Status) bool {
	if s.relaxed {
		return from.CanTransitionRelaxed(to)
	}
	return from.CanTransitionTo(to)
}

// AssignProvider attaches an active provider to a non-terminal booking. The status
// is left unchanged.
func (s *BookingService) AssignProvider(ctx context.Context, id int64, providerID string, actor models.Actor) (*models.Booking, error) {
	if !actor.IsAdmin() {
		return nil, domain.Forbidden("only admins can assign providers")
	}

	booking, err := s.repo.GetBooking(ctx, id)
	if err != nil {
		return nil, err
	}
	provider, err := s.repo.GetProvider(ctx, providerID)
	if err != nil {
		return nil, err
	}
	if !provider.Active {
		return nil, domain.ProviderInactive("provider %s is inactive", providerID)
	}
	if booking.Status.IsTerminal() {
		return nil, domain.InvalidTransition("booking %d is %s and cannot be reassigned", id, booking.Status)
	}

	if err := s.repo.AssignProviderWithVersion(ctx, id, booking.Version, providerID); err != nil {
		return nil, err
	}

	updated, err := s.repo.GetBooking(ctx, id)
	if err != nil {
		return nil, err
	}

	s.logger.Info().Int64("booking_id", id).Str("provider", providerID).Str("by", actor.ID).Msg("Provider assigned")
	s.publishEvent(events.EventBookingProviderAssigned, updated, "", actor.ID)
	s.enqueueSync(ctx, updated, syncTaskUpsert)
	return updated, nil
}

// GetBooking is visible to the customer, the assigned provider and administrators.
func (s *BookingService) GetBooking(ctx context.Context, id int64, actor models.Actor) (*models.Booking, error) {
	booking, err := s.repo.GetBooking(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor.IsAdmin() || booking.HasProvider(actor.ID) || (actor.ID != "" && booking.Customer == actor.ID) {
		return booking, nil
	}
	return nil, domain.Forbidden("booking %d is not visible to caller", id)
}

func (s *BookingService) ListByCustomer(ctx context.Context, actor models.Actor) ([]*models.Booking, error) {
	if actor.ID == "" {
		return nil, domain.Forbidden("anonymous callers have no bookings")
	}
	return s.repo.ListBookingsByCustomer(ctx, actor.ID)
}

func (s *BookingService) ListByProvider(ctx context.Context, actor models.Actor) ([]*models.Booking, error) {
	if actor.ID == "" {
		return nil, domain.Forbidden("anonymous callers have no assignments")
	}
	return s.repo.ListBookingsByProvider(ctx, actor.ID)
}

func (s *BookingService) ListAll(ctx context.Context, actor models.Actor) ([]*models.Booking, error) {
	if !actor.IsAdmin() {
		return nil, domain.Forbidden("only admins can list all bookings")
	}
	return s.repo.ListBookings(ctx)
}

// ExportBookings writes every booking to w as an XLSX workbook.
func (s *BookingService) ExportBookings(ctx context.Context, w io.Writer, actor models.Actor) error {
	bookings, err := s.ListAll(ctx, actor)
	if err != nil {
		return err
	}
	return export.WriteBookings(w, bookings)
}

func (s *BookingService) publishEvent(eventType string, booking *models.Booking, previous models.Status, changedBy string) {
	if s.eventBus == nil {
		return
	}

	payload := events.BookingEventPayload{
		BookingID:      booking.ID,
		BookingType:    string(booking.BookingType),
		Customer:       booking.Customer,
		Provider:       models.Deref(booking.Provider),
		Status:         string(booking.Status),
		PreviousStatus: string(previous),
		Total:          booking.Price.Total,
		ChangedBy:      changedBy,
	}

	if err := s.eventBus.PublishJSON(eventType, payload); err != nil {
		s.logger.Error().Err(err).Str("event_type", eventType).Int64("booking_id", booking.ID).Msg("publish event error")
	}
}

func (s *BookingService) enqueueSync(ctx context.Context, booking *models.Booking, taskType string) {
	if s.sheetsWorker == nil {
		return
	}

	var status string
	if taskType == syncTaskUpdateStatus {
		status = string(booking.Status)
	}

	if err := s.sheetsWorker.EnqueueTask(ctx, taskType, booking.ID, booking, status); err != nil {
		s.logger.Error().Err(err).Int64("booking_id", booking.ID).Str("task", taskType).Msg("sheets enqueue error")
	}
}

func newBooking(t models.BookingType, actor models.Actor, c Contact, price models.PriceInfo) *models.Booking {
	return &models.Booking{
		BookingType:   t,
		Customer:      actor.ID,
		Status:        models.StatusPending,
		Address:       c.Address,
		PreferredTime: c.PreferredTime,
		Details:       c.Details,
		MobileNumber:  c.MobileNumber,
		Price:         price,
	}
}

// checkContact validates the mobile number when present and stores it as digits.
func checkContact(c Contact) (Contact, error) {
	if c.MobileNumber != nil {
		if err := validation.ValidatePhone(*c.MobileNumber).Err(); err != nil {
			return c, err
		}
		digits := validation.SanitizePhone(*c.MobileNumber)
		c.MobileNumber = &digits
	}
	return c, nil
}

func dedupeRepairs(in []models.RepairType) []models.RepairType {
	out := make([]models.RepairType, 0, len(in))
	seen := make(map[models.RepairType]bool, len(in))
	for _, r := range in {
		if !seen[r] {
			seen[r] = true
			out = append(out, r)
		}
	}
	return out
}

func requireRegistered(actor models.Actor) error {
	if !actor.IsRegistered() {
		return domain.Forbidden("caller must be a registered user")
	}
	return nil
}


package api

import (
	"bytes"
	"net/http"
	"strconv"
	"time"

	"eyegic/internal/domain"
	"eyegic/internal/models"
	"eyegic/internal/service"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

func pathID(r *http.Request) (int64, error) {
	raw := r.PathValue("id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, domain.InvalidInput("invalid id %q", raw)
	}
	return id, nil
}

// Bookings

func (s *HTTPServer) handleCreateOptician(w http.ResponseWriter, r *http.Request, actor models.Actor) {
	var req opticianBookingRequest
	if err := s.decode(r, &req); err != nil {
		s.fail(w, err)
		return
	}
	id, err := s.svc.Bookings.CreateOpticianBooking(r.Context(), service.OpticianRequest{
		ServiceType: req.ServiceType,
		Contact:     req.contact(),
	}, actor)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, idResponse{ID: id})
}

func (s *HTTPServer) handleCreateRepair(w http.ResponseWriter, r *http.Request, actor models.Actor) {
	var req repairBookingRequest
	if err := s.decode(r, &req); err != nil {
		s.fail(w, err)
		return
	}
	id, err := s.svc.Bookings.CreateRepairBooking(r.Context(), service.RepairRequest{
		RepairTypes: req.RepairTypes,
		Contact:     req.contact(),
	}, actor)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, idResponse{ID: id})
}

func (s *HTTPServer) handleCreateRental(w http.ResponseWriter, r *http.Request, actor models.Actor) {
	var req rentalBookingRequest
	if err := s.decode(r, &req); err != nil {
		s.fail(w, err)
		return
	}
	id, err := s.svc.Bookings.CreateRentalBooking(r.Context(), service.RentalRequest{
		RentalItemID: req.RentalItemID,
		RentalDays:   req.RentalDays,
		Contact:      req.contact(),
	}, actor)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, idResponse{ID: id})
}

func (s *HTTPServer) handleGetBooking(w http.ResponseWriter, r *http.Request, actor models.Actor) {
	id, err := pathID(r)
	if err != nil {
		s.fail(w, err)
		return
	}
	b, err := s.svc.Bookings.GetBooking(r.Context(), id, actor)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newBookingView(b))
}

func (s *HTTPServer) handleMyBookings(w http.ResponseWriter, r *http.Request, actor models.Actor) {
	list, err := s.svc.Bookings.ListByCustomer(r.Context(), actor)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newBookingViews(list))
}

func (s *HTTPServer) handleProviderBookings(w http.ResponseWriter, r *http.Request, actor models.Actor) {
	list, err := s.svc.Bookings.ListByProvider(r.Context(), actor)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newBookingViews(list))
}

func (s *HTTPServer) handleAllBookings(w http.ResponseWriter, r *http.Request, actor models.Actor) {
	list, err := s.svc.Bookings.ListAll(r.Context(), actor)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newBookingViews(list))
}

func (s *HTTPServer) handleExportBookings(w http.ResponseWriter, r *http.Request, actor models.Actor) {
	var buf bytes.Buffer
	if err := s.svc.Bookings.ExportBookings(r.Context(), &buf, actor); err != nil {
		s.fail(w, err)
		return
	}
	name := "bookings_" + time.Now().Format("20060102_150405") + ".xlsx"
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (s *HTTPServer) handleUpdateStatus(w http.ResponseWriter, r *http.Request, actor models.Actor) {
	id, err := pathID(r)
	if err != nil {
		s.fail(w, err)
		return
	}
	var req statusRequest
	if err := s.decode(r, &req); err != nil {
		s.fail(w, err)
		return
	}
	to, err := models.ParseStatus(req.Status)
	if err != nil {
		s.fail(w, domain.InvalidInput("%v", err))
		return
	}
	b, err := s.svc.Bookings.UpdateStatus(r.Context(), id, to, actor)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newBookingView(b))
}

func (s *HTTPServer) handleAssignProvider(w http.ResponseWriter, r *http.Request, actor models.Actor) {
	id, err := pathID(r)
	if err != nil {
		s.fail(w, err)
		return
	}
	var req assignProviderRequest
	if err := s.decode(r, &req); err != nil {
		s.fail(w, err)
		return
	}
	b, err := s.svc.Bookings.AssignProvider(r.Context(), id, req.Provider, actor)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newBookingView(b))
}

// Providers

func (s *HTTPServer) handleOnboard(w http.ResponseWriter, r *http.Request, actor models.Actor) {
	var req onboardRequest
	if err := s.decode(r, &req); err != nil {
		s.fail(w, err)
		return
	}
	p, err := s.svc.Providers.Onboard(r.Context(), service.OnboardRequest{
		Name:         req.Name,
		Phone:        req.Phone,
		Email:        req.Email,
		ServiceAreas: req.ServiceAreas,
		Services:     req.Services,
		Availability: req.Availability,
	}, actor)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, newProviderView(p))
}

func (s *HTTPServer) handleGetProvider(w http.ResponseWriter, r *http.Request, _ models.Actor) {
	id := r.PathValue("id")
	p, found, err := s.svc.Providers.GetProvider(r.Context(), id)
	if err != nil {
		s.fail(w, err)
		return
	}
	if !found {
		s.fail(w, domain.NotFound("provider %s not found", id))
		return
	}
	writeJSON(w, http.StatusOK, newProviderView(p))
}

func (s *HTTPServer) handleActiveProviders(w http.ResponseWriter, r *http.Request, _ models.Actor) {
	list, err := s.svc.Providers.ListActive(r.Context())
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newProviderViews(list))
}

func (s *HTTPServer) handleMatchProviders(w http.ResponseWriter, r *http.Request, _ models.Actor) {
	q := r.URL.Query()
	list, err := s.svc.Providers.MatchProviders(r.Context(), models.ServiceType(q.Get("service")), q.Get("pin"))
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newProviderViews(list))
}

func (s *HTTPServer) handleSetProviderActive(w http.ResponseWriter, r *http.Request, actor models.Actor) {
	var req activeRequest
	if err := s.decode(r, &req); err != nil {
		s.fail(w, err)
		return
	}
	p, err := s.svc.Providers.SetActive(r.Context(), r.PathValue("id"), *req.Active, actor)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newProviderView(p))
}

// Profiles

func (s *HTTPServer) handleGetProfile(w http.ResponseWriter, r *http.Request, actor models.Actor) {
	p, _, err := s.svc.Profiles.GetCallerUserProfile(r.Context(), actor)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newProfileView(p))
}

func (s *HTTPServer) handleSaveProfile(w http.ResponseWriter, r *http.Request, actor models.Actor) {
	var req profileRequest
	if err := s.decode(r, &req); err != nil {
		s.fail(w, err)
		return
	}
	p, err := s.svc.Profiles.SaveCallerUserProfile(r.Context(), req.profile(), actor)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newProfileView(p))
}

func (s *HTTPServer) handleProfileCompletion(w http.ResponseWriter, r *http.Request, actor models.Actor) {
	pct, err := s.svc.Profiles.CalculateProfileCompletion(r.Context(), actor)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"completion": pct})
}

func (s *HTTPServer) handleUpdateFrames(w http.ResponseWriter, r *http.Request, actor models.Actor) {
	var req framesRequest
	if err := s.decode(r, &req); err != nil {
		s.fail(w, err)
		return
	}
	p, err := s.svc.Profiles.UpdateFramePreferences(r.Context(), req.FramePreferences, actor)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newProfileView(p))
}

func (s *HTTPServer) handleUpdatePicture(w http.ResponseWriter, r *http.Request, actor models.Actor) {
	var req pictureRequest
	if err := s.decode(r, &req); err != nil {
		s.fail(w, err)
		return
	}
	kind := models.PictureKind(r.PathValue("kind"))
	p, err := s.svc.Profiles.UpdatePicture(r.Context(), kind, req.Ref, actor)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newProfileView(p))
}

func (s *HTTPServer) handleUserProfile(w http.ResponseWriter, r *http.Request, actor models.Actor) {
	p, _, err := s.svc.Profiles.GetUserProfile(r.Context(), r.PathValue("id"), actor)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newProfileView(p))
}

// Verification

func (s *HTTPServer) handleLogVerification(w http.ResponseWriter, r *http.Request, actor models.Actor) {
	var req mobileRequest
	if err := s.decode(r, &req); err != nil {
		s.fail(w, err)
		return
	}
	v, err := s.svc.Verifications.LogVerification(r.Context(), req.MobileNumber, actor)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, newVerificationView(v))
}

func (s *HTTPServer) handleListVerifications(w http.ResponseWriter, r *http.Request, actor models.Actor) {
	list, err := s.svc.Verifications.ListVerifications(r.Context(), actor)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newVerificationViews(list))
}

func (s *HTTPServer) handleRequestOTP(w http.ResponseWriter, r *http.Request, _ models.Actor) {
	var req mobileRequest
	if err := s.decode(r, &req); err != nil {
		s.fail(w, err)
		return
	}
	res, err := s.svc.Verifications.RequestOTP(r.Context(), req.MobileNumber)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, newOTPChallengeView(res))
}

func (s *HTTPServer) handleVerifyOTP(w http.ResponseWriter, r *http.Request, actor models.Actor) {
	var req otpVerifyRequest
	if err := s.decode(r, &req); err != nil {
		s.fail(w, err)
		return
	}
	v, err := s.svc.Verifications.VerifyOTP(r.Context(), req.MobileNumber, req.Code, actor)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newVerificationView(v))
}

// Access

func (s *HTTPServer) handleInitialize(w http.ResponseWriter, r *http.Request, actor models.Actor) {
	role, err := s.svc.Access.Initialize(r.Context(), actor)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]models.UserRole{"role": role})
}

func (s *HTTPServer) handleMyRole(w http.ResponseWriter, r *http.Request, actor models.Actor) {
	role, err := s.svc.Access.GetCallerUserRole(r.Context(), actor)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]models.UserRole{"role": role})
}

func (s *HTTPServer) handleIsAdmin(w http.ResponseWriter, r *http.Request, actor models.Actor) {
	ok, err := s.svc.Access.IsCallerAdmin(r.Context(), actor)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"admin": ok})
}

func (s *HTTPServer) handleAssignRole(w http.ResponseWriter, r *http.Request, actor models.Actor) {
	var req roleRequest
	if err := s.decode(r, &req); err != nil {
		s.fail(w, err)
		return
	}
	if err := s.svc.Access.AssignCallerUserRole(r.Context(), req.User, req.Role, actor); err != nil {
		s.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Rentals

func (s *HTTPServer) handleCatalog(w http.ResponseWriter, r *http.Request, _ models.Actor) {
	list, err := s.svc.Rentals.GetRentalCatalog(r.Context())
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newRentalItemViews(list))
}

func (s *HTTPServer) handleAvailableItems(w http.ResponseWriter, r *http.Request, _ models.Actor) {
	list, err := s.svc.Rentals.FindAvailableRentalItems(r.Context())
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newRentalItemViews(list))
}

func (s *HTTPServer) handleRentalItem(w http.ResponseWriter, r *http.Request, _ models.Actor) {
	id, err := pathID(r)
	if err != nil {
		s.fail(w, err)
		return
	}
	it, err := s.svc.Rentals.GetRentalItem(r.Context(), id)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newRentalItemView(it))
}

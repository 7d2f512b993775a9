package httpapi

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/MarkoPoloResearchLab/rental/internal/auth"
	"github.com/MarkoPoloResearchLab/rental/pkg/rental"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	expectedJSONBody   = "expected JSON body"
	sessionCookiePath  = "/"
	selfRegisterDenied = "role cannot be self-assigned"
)

type httpHandler struct {
	cfg    Config
	deps   Dependencies
	logger *zap.Logger
}

func (handler *httpHandler) handleRegister(ctx *gin.Context) {
	var request registerRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse(errorCodeInvalidPayload, expectedJSONBody))
		return
	}
	role := strings.ToLower(strings.TrimSpace(request.Role))
	if role == rental.RoleAdmin {
		ctx.JSON(http.StatusForbidden, errorResponse(errorCodeForbidden, selfRegisterDenied))
		return
	}
	renter, err := handler.deps.Accounts.Register(ctx.Request.Context(), auth.Registration{
		Email:       request.Email,
		DisplayName: request.DisplayName,
		Password:    request.Password,
		Role:        role,
	})
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, gin.H{"renter": newRenterPayload(renter)})
}

func (handler *httpHandler) handleLogin(ctx *gin.Context) {
	var request loginRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse(errorCodeInvalidPayload, expectedJSONBody))
		return
	}
	renter, err := handler.deps.Accounts.Authenticate(ctx.Request.Context(), request.Email, request.Password)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	token, expiresAt, err := handler.deps.Sessions.Issue(renter)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	maxAge := int(time.Until(expiresAt).Seconds())
	if maxAge < 1 {
		maxAge = 1
	}
	ctx.SetSameSite(http.SameSiteLaxMode)
	ctx.SetCookie(handler.cfg.CookieName, token, maxAge, sessionCookiePath, "", handler.cfg.CookieSecure, true)
	ctx.JSON(http.StatusOK, sessionPayload{Token: token, ExpiresAt: expiresAt, Renter: newRenterPayload(renter)})
}

func (handler *httpHandler) handleListModels(ctx *gin.Context) {
	models, err := handler.deps.Catalog.Models(ctx.Request.Context())
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"models": newModelPayloads(models)})
}

func (handler *httpHandler) handleListModelUnits(ctx *gin.Context) {
	modelID, err := rental.NewModelID(ctx.Param("id"))
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	units, err := handler.deps.Catalog.UnitsForModel(ctx.Request.Context(), modelID)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"units": newUnitPayloads(units)})
}

// handleAvailableUnits accepts either start/end instants or start_date/end_date calendar days.
func (handler *httpHandler) handleAvailableUnits(ctx *gin.Context) {
	var (
		units []rental.Unit
		err   error
	)
	if startDate := ctx.Query("start_date"); startDate != "" {
		dates, parseErr := rental.ParseDateRange(startDate, ctx.Query("end_date"))
		if parseErr != nil {
			handler.respondError(ctx, parseErr)
			return
		}
		units, err = handler.deps.Bookings.AvailableUnitsForDates(ctx.Request.Context(), ctx.Param("id"), dates)
	} else {
		window, parseErr := parseQueryWindow(ctx.Query("start"), ctx.Query("end"))
		if parseErr != nil {
			handler.respondError(ctx, parseErr)
			return
		}
		units, err = handler.deps.Bookings.AvailableUnits(ctx.Request.Context(), ctx.Param("id"), window)
	}
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"units": newUnitPayloads(units)})
}

func (handler *httpHandler) handleQuote(ctx *gin.Context) {
	var request quoteRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse(errorCodeInvalidPayload, expectedJSONBody))
		return
	}
	window, err := rental.NewWindow(request.Start, request.End)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	amount, err := handler.deps.Bookings.Quote(ctx.Request.Context(), request.UnitID, window, request.Granularity)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, quotePayload{
		UnitID:      request.UnitID,
		Granularity: strings.ToUpper(strings.TrimSpace(request.Granularity)),
		AmountCents: amount.Int64(),
	})
}

func (handler *httpHandler) handleCreateBooking(ctx *gin.Context) {
	var request bookingRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse(errorCodeInvalidPayload, expectedJSONBody))
		return
	}
	identity := identityFrom(ctx)
	var (
		booking rental.Booking
		err     error
	)
	if request.StartDate != "" {
		booking, err = handler.deps.Bookings.BookDates(ctx.Request.Context(), identity, rental.DateBookingRequest{
			UnitID:    request.UnitID,
			StartDate: request.StartDate,
			EndDate:   request.EndDate,
			Metadata:  metadataString(request.Metadata),
		})
	} else {
		if request.Start == nil || request.End == nil {
			ctx.JSON(http.StatusBadRequest, errorResponse(errorCodeBadRequest, "start and end or start_date and end_date are required"))
			return
		}
		booking, err = handler.deps.Bookings.Book(ctx.Request.Context(), identity, rental.BookingRequest{
			UnitID:      request.UnitID,
			Start:       *request.Start,
			End:         *request.End,
			Granularity: request.Granularity,
			Metadata:    metadataString(request.Metadata),
		})
	}
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, gin.H{"booking": newBookingPayload(booking)})
}

func (handler *httpHandler) handleListBookings(ctx *gin.Context) {
	bookings, err := handler.deps.Bookings.Bookings(ctx.Request.Context(), identityFrom(ctx))
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"bookings": newBookingPayloads(bookings)})
}

func (handler *httpHandler) handleReturnBooking(ctx *gin.Context) {
	var request returnRequest
	if err := ctx.ShouldBindJSON(&request); err != nil && !errors.Is(err, io.EOF) {
		ctx.JSON(http.StatusBadRequest, errorResponse(errorCodeInvalidPayload, expectedJSONBody))
		return
	}
	actualReturn := handler.deps.Clock()
	if request.ActualReturn != nil {
		actualReturn = *request.ActualReturn
	}
	booking, err := handler.deps.Bookings.Return(ctx.Request.Context(), identityFrom(ctx), ctx.Param("id"), actualReturn)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"booking": newBookingPayload(booking)})
}

func (handler *httpHandler) handleCancelBooking(ctx *gin.Context) {
	booking, err := handler.deps.Bookings.Cancel(ctx.Request.Context(), identityFrom(ctx), ctx.Param("id"))
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"booking": newBookingPayload(booking)})
}

func (handler *httpHandler) handleSellerBookings(ctx *gin.Context) {
	bookings, err := handler.deps.Bookings.SellerBookings(ctx.Request.Context(), identityFrom(ctx))
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"bookings": newBookingPayloads(bookings)})
}

func (handler *httpHandler) handleSellerModels(ctx *gin.Context) {
	models, err := handler.deps.Catalog.ModelsForSeller(ctx.Request.Context(), identityFrom(ctx).RenterID)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"models": newModelPayloads(models)})
}

// handleSellerAddModel always attributes the model to the caller.
func (handler *httpHandler) handleSellerAddModel(ctx *gin.Context) {
	var request modelRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse(errorCodeInvalidPayload, expectedJSONBody))
		return
	}
	request.SellerID = identityFrom(ctx).RenterID.String()
	handler.addModel(ctx, request)
}

func (handler *httpHandler) handleAdminAddModel(ctx *gin.Context) {
	var request modelRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse(errorCodeInvalidPayload, expectedJSONBody))
		return
	}
	handler.addModel(ctx, request)
}

func (handler *httpHandler) addModel(ctx *gin.Context, request modelRequest) {
	hourly, err := rental.NewAmountCents(request.HourlyRate)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	daily, err := rental.NewAmountCents(request.DailyRate)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	model, err := handler.deps.Catalog.AddModel(ctx.Request.Context(), rental.ModelInput{
		Name:       request.Name,
		Category:   request.Category,
		HourlyRate: hourly,
		DailyRate:  daily,
		SellerID:   request.SellerID,
	})
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, gin.H{"model": newModelPayload(model)})
}

func (handler *httpHandler) handleAdminDeleteModel(ctx *gin.Context) {
	modelID, err := rental.NewModelID(ctx.Param("id"))
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	if err := handler.deps.Catalog.DeleteModel(ctx.Request.Context(), modelID); err != nil {
		handler.respondError(ctx, err)
		return
	}
	ctx.Status(http.StatusNoContent)
}

func (handler *httpHandler) handleAdminAddUnit(ctx *gin.Context) {
	var request unitRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse(errorCodeInvalidPayload, expectedJSONBody))
		return
	}
	unit, err := handler.deps.Catalog.AddUnit(ctx.Request.Context(), rental.UnitInput{
		ModelID:     request.ModelID,
		NumberPlate: request.NumberPlate,
	})
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, gin.H{"unit": newUnitPayload(unit)})
}

func (handler *httpHandler) handleAdminBookings(ctx *gin.Context) {
	bookings, err := handler.deps.Bookings.AllBookings(ctx.Request.Context(), identityFrom(ctx))
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"bookings": newBookingPayloads(bookings)})
}

func (handler *httpHandler) handleAdminReconcile(ctx *gin.Context) {
	corrected, err := handler.deps.Bookings.Reconcile(ctx.Request.Context(), identityFrom(ctx))
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	payload := reconcilePayload{Corrected: make([]string, 0, len(corrected))}
	for _, unitID := range corrected {
		payload.Corrected = append(payload.Corrected, unitID.String())
	}
	ctx.JSON(http.StatusOK, payload)
}

func parseQueryWindow(rawStart string, rawEnd string) (rental.Window, error) {
	start, err := time.Parse(time.RFC3339, strings.TrimSpace(rawStart))
	if err != nil {
		return rental.Window{}, fmt.Errorf("%w: start: %v", rental.ErrInvalidWindow, err)
	}
	end, err := time.Parse(time.RFC3339, strings.TrimSpace(rawEnd))
	if err != nil {
		return rental.Window{}, fmt.Errorf("%w: end: %v", rental.ErrInvalidWindow, err)
	}
	return rental.NewWindow(start, end)
}

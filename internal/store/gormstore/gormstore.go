package gormstore

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/MarkoPoloResearchLab/rental/pkg/rental"
	gosqlite "github.com/glebarez/go-sqlite"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	constraintNumberPlate   = "uniq_car_units_number_plate"
	constraintRenterEmail   = "uniq_renters_email"
	defaultMetadataJSON     = "{}"
	pgUniqueViolationCode   = "23505"
	sqliteConstraintCode    = 19
	errorOperationStore     = "store"
	errorSubjectBooking     = "booking"
	errorSubjectModel       = "model"
	errorSubjectRenter      = "renter"
	errorSubjectUnit        = "unit"
	errorSubjectConnection  = "connection"
	errorCodeCount          = "count"
	errorCodeCreate         = "create"
	errorCodeDelete         = "delete"
	errorCodeDuplicate      = "duplicate"
	errorCodeGet            = "get"
	errorCodeInsert         = "insert"
	errorCodeInvalid        = "invalid"
	errorCodeList           = "list"
	errorCodeLock           = "lock"
	errorCodeOverlap        = "overlap"
	errorCodePing           = "ping"
	errorCodeUpdate         = "update"
	errorCodeUpdateStatus   = "update_status"
	orderNewestFirst        = "created_at DESC, start_at DESC"
	orderBookingNewestFirst = "bookings.created_at DESC, bookings.start_at DESC"
)

// Store implements rental.Store using GORM.
type Store struct {
	db *gorm.DB
}

// New returns a Store backed by gorm.DB.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// WithTx executes fn within a transaction.
func (store *Store) WithTx(ctx context.Context, fn func(ctx context.Context, txStore rental.Store) error) error {
	return store.db.WithContext(ctx).Transaction(func(transaction *gorm.DB) error {
		return fn(ctx, &Store{db: transaction})
	})
}

// Ping checks database reachability.
func (store *Store) Ping(ctx context.Context) error {
	sqlDB, err := store.db.DB()
	if err != nil {
		return wrapStoreError(errorSubjectConnection, errorCodePing, err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return wrapStoreError(errorSubjectConnection, errorCodePing, err)
	}
	return nil
}

func (store *Store) GetUnit(ctx context.Context, unitID rental.UnitID) (rental.Unit, error) {
	var row CarUnit
	err := store.db.WithContext(ctx).Where("unit_id = ?", unitID.String()).Take(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return rental.Unit{}, wrapStoreError(errorSubjectUnit, errorCodeGet, rental.ErrUnitNotFound)
		}
		return rental.Unit{}, wrapStoreError(errorSubjectUnit, errorCodeGet, err)
	}
	return mapUnit(row)
}

func (store *Store) LockUnit(ctx context.Context, unitID rental.UnitID) (rental.Unit, error) {
	var row CarUnit
	err := store.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("unit_id = ?", unitID.String()).
		Take(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return rental.Unit{}, wrapStoreError(errorSubjectUnit, errorCodeLock, rental.ErrUnitNotFound)
		}
		return rental.Unit{}, wrapStoreError(errorSubjectUnit, errorCodeLock, err)
	}
	return mapUnit(row)
}

func (store *Store) ListUnits(ctx context.Context) ([]rental.Unit, error) {
	var rows []CarUnit
	if err := store.db.WithContext(ctx).Order("unit_id").Find(&rows).Error; err != nil {
		return nil, wrapStoreError(errorSubjectUnit, errorCodeList, err)
	}
	return mapUnits(rows)
}

func (store *Store) UnitsForModel(ctx context.Context, modelID rental.ModelID) ([]rental.Unit, error) {
	var rows []CarUnit
	err := store.db.WithContext(ctx).
		Where("model_id = ?", modelID.String()).
		Order("unit_id").
		Find(&rows).Error
	if err != nil {
		return nil, wrapStoreError(errorSubjectUnit, errorCodeList, err)
	}
	return mapUnits(rows)
}

func (store *Store) ListAvailableUnits(ctx context.Context, modelID rental.ModelID) ([]rental.Unit, error) {
	var rows []CarUnit
	err := store.db.WithContext(ctx).
		Where("model_id = ? AND available = ?", modelID.String(), true).
		Order("unit_id").
		Find(&rows).Error
	if err != nil {
		return nil, wrapStoreError(errorSubjectUnit, errorCodeList, err)
	}
	return mapUnits(rows)
}

func (store *Store) ListAvailableUnitsExcluding(ctx context.Context, modelID rental.ModelID, excluded []rental.UnitID) ([]rental.Unit, error) {
	if len(excluded) == 0 {
		return store.ListAvailableUnits(ctx, modelID)
	}
	excludedValues := make([]string, 0, len(excluded))
	for _, unitID := range excluded {
		excludedValues = append(excludedValues, unitID.String())
	}
	var rows []CarUnit
	err := store.db.WithContext(ctx).
		Where("model_id = ? AND available = ?", modelID.String(), true).
		Where("unit_id NOT IN ?", excludedValues).
		Order("unit_id").
		Find(&rows).Error
	if err != nil {
		return nil, wrapStoreError(errorSubjectUnit, errorCodeList, err)
	}
	return mapUnits(rows)
}

func (store *Store) UnitExists(ctx context.Context, unitID rental.UnitID) (bool, error) {
	var count int64
	err := store.db.WithContext(ctx).Model(&CarUnit{}).Where("unit_id = ?", unitID.String()).Count(&count).Error
	if err != nil {
		return false, wrapStoreError(errorSubjectUnit, errorCodeCount, err)
	}
	return count > 0, nil
}

func (store *Store) SetUnitAvailability(ctx context.Context, unitID rental.UnitID, available bool) error {
	result := store.db.WithContext(ctx).
		Model(&CarUnit{}).
		Where("unit_id = ?", unitID.String()).
		Update("available", available)
	if result.Error != nil {
		return wrapStoreError(errorSubjectUnit, errorCodeUpdate, result.Error)
	}
	if result.RowsAffected == 0 {
		return wrapStoreError(errorSubjectUnit, errorCodeUpdate, rental.ErrUnitNotFound)
	}
	return nil
}

func (store *Store) CreateUnit(ctx context.Context, unit rental.Unit) error {
	row := CarUnit{
		UnitID:      unit.ID.String(),
		ModelID:     unit.ModelID.String(),
		NumberPlate: unit.NumberPlate,
		Available:   unit.Available,
	}
	err := store.db.WithContext(ctx).Create(&row).Error
	if isUniqueViolation(err, constraintNumberPlate) {
		return wrapStoreError(errorSubjectUnit, errorCodeDuplicate, rental.ErrDuplicateNumberPlate)
	}
	if err != nil {
		return wrapStoreError(errorSubjectUnit, errorCodeCreate, err)
	}
	return nil
}

func (store *Store) GetModel(ctx context.Context, modelID rental.ModelID) (rental.Model, error) {
	var row CarModel
	err := store.db.WithContext(ctx).Where("model_id = ?", modelID.String()).Take(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return rental.Model{}, wrapStoreError(errorSubjectModel, errorCodeGet, rental.ErrModelNotFound)
		}
		return rental.Model{}, wrapStoreError(errorSubjectModel, errorCodeGet, err)
	}
	return mapModel(row)
}

func (store *Store) CreateModel(ctx context.Context, model rental.Model) error {
	row := CarModel{
		ModelID:         model.ID.String(),
		Name:            model.Name,
		Category:        model.Category,
		HourlyRateCents: model.Rates.Hourly.Int64(),
		DailyRateCents:  model.Rates.Daily.Int64(),
	}
	if !model.SellerID.IsZero() {
		sellerID := model.SellerID.String()
		row.SellerID = &sellerID
	}
	if err := store.db.WithContext(ctx).Create(&row).Error; err != nil {
		return wrapStoreError(errorSubjectModel, errorCodeCreate, err)
	}
	return nil
}

func (store *Store) ListModels(ctx context.Context) ([]rental.Model, error) {
	var rows []CarModel
	if err := store.db.WithContext(ctx).Order("name, model_id").Find(&rows).Error; err != nil {
		return nil, wrapStoreError(errorSubjectModel, errorCodeList, err)
	}
	return mapModels(rows)
}

func (store *Store) ModelsForSeller(ctx context.Context, sellerID rental.RenterID) ([]rental.Model, error) {
	var rows []CarModel
	err := store.db.WithContext(ctx).
		Where("seller_id = ?", sellerID.String()).
		Order("name, model_id").
		Find(&rows).Error
	if err != nil {
		return nil, wrapStoreError(errorSubjectModel, errorCodeList, err)
	}
	return mapModels(rows)
}

func (store *Store) DeleteModel(ctx context.Context, modelID rental.ModelID) error {
	result := store.db.WithContext(ctx).Where("model_id = ?", modelID.String()).Delete(&CarModel{})
	if result.Error != nil {
		return wrapStoreError(errorSubjectModel, errorCodeDelete, result.Error)
	}
	if result.RowsAffected == 0 {
		return wrapStoreError(errorSubjectModel, errorCodeDelete, rental.ErrModelNotFound)
	}
	return nil
}

func (store *Store) CountUnitsForModel(ctx context.Context, modelID rental.ModelID) (int64, error) {
	var count int64
	err := store.db.WithContext(ctx).Model(&CarUnit{}).Where("model_id = ?", modelID.String()).Count(&count).Error
	if err != nil {
		return 0, wrapStoreError(errorSubjectUnit, errorCodeCount, err)
	}
	return count, nil
}

func (store *Store) RenterExists(ctx context.Context, renterID rental.RenterID) (bool, error) {
	var count int64
	err := store.db.WithContext(ctx).Model(&Renter{}).Where("renter_id = ?", renterID.String()).Count(&count).Error
	if err != nil {
		return false, wrapStoreError(errorSubjectRenter, errorCodeCount, err)
	}
	return count > 0, nil
}

func (store *Store) LockRenter(ctx context.Context, renterID rental.RenterID) error {
	var row Renter
	err := store.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("renter_id = ?", renterID.String()).
		Take(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return wrapStoreError(errorSubjectRenter, errorCodeLock, rental.ErrRenterNotFound)
		}
		return wrapStoreError(errorSubjectRenter, errorCodeLock, err)
	}
	return nil
}

func (store *Store) CreateRenter(ctx context.Context, renter rental.Renter) error {
	row := Renter{
		RenterID:       renter.ID.String(),
		Email:          renter.Email,
		DisplayName:    renter.DisplayName,
		PasswordDigest: renter.PasswordDigest,
		Role:           renter.Role,
	}
	err := store.db.WithContext(ctx).Create(&row).Error
	if isUniqueViolation(err, constraintRenterEmail) {
		return wrapStoreError(errorSubjectRenter, errorCodeDuplicate, rental.ErrDuplicateEmail)
	}
	if err != nil {
		return wrapStoreError(errorSubjectRenter, errorCodeCreate, err)
	}
	return nil
}

func (store *Store) GetRenterByEmail(ctx context.Context, email string) (rental.Renter, error) {
	var row Renter
	err := store.db.WithContext(ctx).Where("email = ?", strings.ToLower(strings.TrimSpace(email))).Take(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return rental.Renter{}, wrapStoreError(errorSubjectRenter, errorCodeGet, rental.ErrRenterNotFound)
		}
		return rental.Renter{}, wrapStoreError(errorSubjectRenter, errorCodeGet, err)
	}
	renterID, err := rental.NewRenterID(row.RenterID)
	if err != nil {
		return rental.Renter{}, wrapStoreError(errorSubjectRenter, errorCodeInvalid, err)
	}
	return rental.Renter{
		ID:             renterID,
		Email:          row.Email,
		DisplayName:    row.DisplayName,
		PasswordDigest: row.PasswordDigest,
		Role:           row.Role,
	}, nil
}

func (store *Store) GetBooking(ctx context.Context, bookingID rental.BookingID) (rental.Booking, error) {
	var row Booking
	err := store.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("booking_id = ?", bookingID.String()).
		Take(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return rental.Booking{}, wrapStoreError(errorSubjectBooking, errorCodeGet, rental.ErrBookingNotFound)
		}
		return rental.Booking{}, wrapStoreError(errorSubjectBooking, errorCodeGet, err)
	}
	booking, err := mapBooking(row)
	if err != nil {
		return rental.Booking{}, wrapStoreError(errorSubjectBooking, errorCodeInvalid, err)
	}
	return booking, nil
}

func (store *Store) ListBookingsByRenter(ctx context.Context, renterID rental.RenterID) ([]rental.Booking, error) {
	var rows []Booking
	err := store.db.WithContext(ctx).
		Where("renter_id = ?", renterID.String()).
		Order(orderNewestFirst).
		Find(&rows).Error
	if err != nil {
		return nil, wrapStoreError(errorSubjectBooking, errorCodeList, err)
	}
	return mapBookings(rows)
}

func (store *Store) ListBookingsBySeller(ctx context.Context, sellerID rental.RenterID) ([]rental.Booking, error) {
	var rows []Booking
	err := store.db.WithContext(ctx).
		Select("bookings.*").
		Joins("JOIN car_units ON car_units.unit_id = bookings.unit_id").
		Joins("JOIN car_models ON car_models.model_id = car_units.model_id").
		Where("car_models.seller_id = ?", sellerID.String()).
		Order(orderBookingNewestFirst).
		Find(&rows).Error
	if err != nil {
		return nil, wrapStoreError(errorSubjectBooking, errorCodeList, err)
	}
	return mapBookings(rows)
}

func (store *Store) ListBookings(ctx context.Context) ([]rental.Booking, error) {
	var rows []Booking
	if err := store.db.WithContext(ctx).Order(orderNewestFirst).Find(&rows).Error; err != nil {
		return nil, wrapStoreError(errorSubjectBooking, errorCodeList, err)
	}
	return mapBookings(rows)
}

func (store *Store) FindOverlappingForUnit(ctx context.Context, unitID rental.UnitID, window rental.Window) ([]rental.Booking, error) {
	return store.findOverlapping(ctx, "unit_id = ?", unitID.String(), window)
}

func (store *Store) FindOverlappingForRenter(ctx context.Context, renterID rental.RenterID, window rental.Window) ([]rental.Booking, error) {
	return store.findOverlapping(ctx, "renter_id = ?", renterID.String(), window)
}

func (store *Store) findOverlapping(ctx context.Context, scope string, scopeValue string, window rental.Window) ([]rental.Booking, error) {
	var rows []Booking
	err := store.db.WithContext(ctx).
		Where(scope, scopeValue).
		Scopes(activeOverlapping(window)).
		Order("start_at").
		Find(&rows).Error
	if err != nil {
		return nil, wrapStoreError(errorSubjectBooking, errorCodeOverlap, err)
	}
	return mapBookings(rows)
}

func (store *Store) BookedUnitIDs(ctx context.Context, window rental.Window) ([]rental.UnitID, error) {
	var values []string
	err := store.db.WithContext(ctx).
		Model(&Booking{}).
		Scopes(activeOverlapping(window)).
		Distinct("unit_id").
		Pluck("unit_id", &values).Error
	if err != nil {
		return nil, wrapStoreError(errorSubjectBooking, errorCodeOverlap, err)
	}
	unitIDs := make([]rental.UnitID, 0, len(values))
	for _, value := range values {
		unitID, err := rental.NewUnitID(value)
		if err != nil {
			return nil, wrapStoreError(errorSubjectBooking, errorCodeInvalid, err)
		}
		unitIDs = append(unitIDs, unitID)
	}
	return unitIDs, nil
}

func (store *Store) CountActiveForUnit(ctx context.Context, unitID rental.UnitID) (int64, error) {
	var count int64
	err := store.db.WithContext(ctx).
		Model(&Booking{}).
		Where("unit_id = ? AND status = ?", unitID.String(), rental.BookingStatusBooked.String()).
		Count(&count).Error
	if err != nil {
		return 0, wrapStoreError(errorSubjectBooking, errorCodeCount, err)
	}
	return count, nil
}

func (store *Store) InsertBooking(ctx context.Context, booking rental.Booking) error {
	row := Booking{
		BookingID:        booking.ID.String(),
		RenterID:         booking.RenterID.String(),
		UnitID:           booking.UnitID.String(),
		StartAt:          booking.Start.UTC(),
		EndAt:            booking.End.UTC(),
		Granularity:      booking.Granularity.String(),
		Basis:            string(booking.Basis),
		Status:           booking.Status.String(),
		HourlyRateCents:  booking.Rates.Hourly.Int64(),
		DailyRateCents:   booking.Rates.Daily.Int64(),
		TotalAmountCents: booking.TotalAmount.Int64(),
		FineCents:        booking.Fine.Int64(),
		ActualReturnAt:   utcOrNil(booking.ActualReturn),
		Metadata:         datatypesJSON(booking.Metadata.String()),
		CreatedAt:        booking.CreatedAt.UTC(),
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}
	if err := store.db.WithContext(ctx).Create(&row).Error; err != nil {
		return wrapStoreError(errorSubjectBooking, errorCodeInsert, err)
	}
	return nil
}

func (store *Store) UpdateBooking(ctx context.Context, booking rental.Booking, from rental.BookingStatus) error {
	result := store.db.WithContext(ctx).
		Model(&Booking{}).
		Where("booking_id = ? AND status = ?", booking.ID.String(), from.String()).
		Updates(map[string]any{
			"status":             booking.Status.String(),
			"total_amount_cents": booking.TotalAmount.Int64(),
			"fine_cents":         booking.Fine.Int64(),
			"actual_return_at":   utcOrNil(booking.ActualReturn),
			"updated_at":         time.Now().UTC(),
		})
	if result.Error != nil {
		return wrapStoreError(errorSubjectBooking, errorCodeUpdateStatus, result.Error)
	}
	if result.RowsAffected == 0 {
		return wrapStoreError(errorSubjectBooking, errorCodeUpdateStatus, rental.ErrBookingClosed)
	}
	return nil
}

// activeOverlapping restricts to BOOKED rows with start < window.End and end > window.Start.
func activeOverlapping(window rental.Window) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("status = ? AND start_at < ? AND end_at > ?", rental.BookingStatusBooked.String(), window.End.UTC(), window.Start.UTC())
	}
}

func wrapStoreError(subject string, code string, err error) error {
	return rental.WrapError(errorOperationStore, subject, code, err)
}

func mapUnit(row CarUnit) (rental.Unit, error) {
	unitID, err := rental.NewUnitID(row.UnitID)
	if err != nil {
		return rental.Unit{}, wrapStoreError(errorSubjectUnit, errorCodeInvalid, err)
	}
	modelID, err := rental.NewModelID(row.ModelID)
	if err != nil {
		return rental.Unit{}, wrapStoreError(errorSubjectUnit, errorCodeInvalid, err)
	}
	return rental.Unit{ID: unitID, ModelID: modelID, NumberPlate: row.NumberPlate, Available: row.Available}, nil
}

func mapUnits(rows []CarUnit) ([]rental.Unit, error) {
	units := make([]rental.Unit, 0, len(rows))
	for _, row := range rows {
		unit, err := mapUnit(row)
		if err != nil {
			return nil, err
		}
		units = append(units, unit)
	}
	return units, nil
}

func mapModel(row CarModel) (rental.Model, error) {
	modelID, err := rental.NewModelID(row.ModelID)
	if err != nil {
		return rental.Model{}, wrapStoreError(errorSubjectModel, errorCodeInvalid, err)
	}
	model := rental.Model{
		ID:       modelID,
		Name:     row.Name,
		Category: row.Category,
		Rates: rental.Rates{
			Hourly: rental.AmountCents(row.HourlyRateCents),
			Daily:  rental.AmountCents(row.DailyRateCents),
		},
	}
	if row.SellerID != nil && *row.SellerID != "" {
		sellerID, err := rental.NewRenterID(*row.SellerID)
		if err != nil {
			return rental.Model{}, wrapStoreError(errorSubjectModel, errorCodeInvalid, err)
		}
		model.SellerID = sellerID
	}
	return model, nil
}

func mapModels(rows []CarModel) ([]rental.Model, error) {
	models := make([]rental.Model, 0, len(rows))
	for _, row := range rows {
		model, err := mapModel(row)
		if err != nil {
			return nil, err
		}
		models = append(models, model)
	}
	return models, nil
}

func mapBooking(row Booking) (rental.Booking, error) {
	bookingID, err := rental.NewBookingID(row.BookingID)
	if err != nil {
		return rental.Booking{}, err
	}
	renterID, err := rental.NewRenterID(row.RenterID)
	if err != nil {
		return rental.Booking{}, err
	}
	unitID, err := rental.NewUnitID(row.UnitID)
	if err != nil {
		return rental.Booking{}, err
	}
	granularity, err := rental.ParseGranularity(row.Granularity)
	if err != nil {
		return rental.Booking{}, err
	}
	status, err := rental.ParseBookingStatus(row.Status)
	if err != nil {
		return rental.Booking{}, err
	}
	metadata, err := rental.NewMetadataJSON(string(row.Metadata))
	if err != nil {
		return rental.Booking{}, err
	}
	return rental.Booking{
		ID:          bookingID,
		RenterID:    renterID,
		UnitID:      unitID,
		Start:       row.StartAt.UTC(),
		End:         row.EndAt.UTC(),
		Granularity: granularity,
		Basis:       rental.ParseTimeBasis(row.Basis),
		Status:      status,
		Rates: rental.Rates{
			Hourly: rental.AmountCents(row.HourlyRateCents),
			Daily:  rental.AmountCents(row.DailyRateCents),
		},
		TotalAmount:  rental.AmountCents(row.TotalAmountCents),
		Fine:         rental.AmountCents(row.FineCents),
		ActualReturn: utcOrNil(row.ActualReturnAt),
		Metadata:     metadata,
		CreatedAt:    row.CreatedAt.UTC(),
	}, nil
}

func mapBookings(rows []Booking) ([]rental.Booking, error) {
	bookings := make([]rental.Booking, 0, len(rows))
	for _, row := range rows {
		booking, err := mapBooking(row)
		if err != nil {
			return nil, wrapStoreError(errorSubjectBooking, errorCodeInvalid, err)
		}
		bookings = append(bookings, booking)
	}
	return bookings, nil
}

func utcOrNil(value *time.Time) *time.Time {
	if value == nil {
		return nil
	}
	normalized := value.UTC()
	return &normalized
}

func datatypesJSON(raw string) datatypes.JSON {
	if raw == "" {
		return datatypes.JSON([]byte(defaultMetadataJSON))
	}
	return datatypes.JSON([]byte(raw))
}

func isUniqueViolation(err error, constraint string) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolationCode && pgErr.ConstraintName == constraint
	}
	var sqliteErr *gosqlite.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code()&0xFF == sqliteConstraintCode
	}
	return false
}

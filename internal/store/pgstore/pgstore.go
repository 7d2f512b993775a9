package pgstore

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/MarkoPoloResearchLab/rental/pkg/rental"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	constraintNumberPlate   = "uniq_car_units_number_plate"
	constraintRenterEmail   = "uniq_renters_email"
	pgUniqueViolationCode   = "23505"
	errorOperationStore     = "store"
	errorSubjectBooking     = "booking"
	errorSubjectModel       = "model"
	errorSubjectRenter      = "renter"
	errorSubjectUnit        = "unit"
	errorSubjectSchema      = "schema"
	errorSubjectTransaction = "transaction"
	errorCodeBegin          = "begin"
	errorCodeCommit         = "commit"
	errorCodeCount          = "count"
	errorCodeCreate         = "create"
	errorCodeDelete         = "delete"
	errorCodeDuplicate      = "duplicate"
	errorCodeGet            = "get"
	errorCodeInsert         = "insert"
	errorCodeInvalid        = "invalid"
	errorCodeList           = "list"
	errorCodeLock           = "lock"
	errorCodeMigrate        = "migrate"
	errorCodeOverlap        = "overlap"
	errorCodeUpdate         = "update"
	errorCodeUpdateStatus   = "update_status"

	unitColumns    = `unit_id, model_id, number_plate, available`
	modelColumns   = `model_id, name, category, hourly_rate_cents, daily_rate_cents, coalesce(seller_id, '')`
	bookingColumns = `
		b.booking_id, b.renter_id, b.unit_id, b.start_at, b.end_at, b.granularity, b.basis, b.status,
		b.hourly_rate_cents, b.daily_rate_cents, b.total_amount_cents, b.fine_cents, b.actual_return_at,
		coalesce(b.metadata::text, '{}'), b.created_at
	`

	sqlSelectUnit         = `select ` + unitColumns + ` from car_units where unit_id = $1`
	sqlSelectUnitForLock  = sqlSelectUnit + ` for update`
	sqlListUnits          = `select ` + unitColumns + ` from car_units order by unit_id`
	sqlListUnitsForModel  = `select ` + unitColumns + ` from car_units where model_id = $1 order by unit_id`
	sqlListAvailableUnits = `select ` + unitColumns + ` from car_units where model_id = $1 and available order by unit_id`

	sqlListAvailableUnitsExcluding = `
		select ` + unitColumns + ` from car_units
		where model_id = $1 and available and not (unit_id = any($2::text[]))
		order by unit_id
	`

	sqlCountUnit         = `select count(*) from car_units where unit_id = $1`
	sqlCountUnitsByModel = `select count(*) from car_units where model_id = $1`
	sqlUpdateAvailable   = `update car_units set available = $2 where unit_id = $1`
	sqlInsertUnit        = `insert into car_units(unit_id, model_id, number_plate, available, created_at) values ($1, $2, $3, $4, now())`

	sqlSelectModel      = `select ` + modelColumns + ` from car_models where model_id = $1`
	sqlListModels       = `select ` + modelColumns + ` from car_models order by name, model_id`
	sqlListSellerModels = `select ` + modelColumns + ` from car_models where seller_id = $1 order by name, model_id`
	sqlDeleteModel      = `delete from car_models where model_id = $1`
	sqlInsertModel      = `
		insert into car_models(model_id, name, category, hourly_rate_cents, daily_rate_cents, seller_id, created_at)
		values ($1, $2, $3, $4, $5, nullif($6, ''), now())
	`

	sqlCountRenter       = `select count(*) from renters where renter_id = $1`
	sqlLockRenter        = `select renter_id from renters where renter_id = $1 for update`
	sqlSelectRenterEmail = `select renter_id, email, display_name, password_digest, role from renters where email = $1`
	sqlInsertRenter      = `
		insert into renters(renter_id, email, display_name, password_digest, role, created_at)
		values ($1, $2, $3, $4, $5, now())
	`

	sqlSelectBooking        = `select ` + bookingColumns + ` from bookings b where b.booking_id = $1 for update`
	sqlListBookings         = `select ` + bookingColumns + ` from bookings b order by b.created_at desc, b.start_at desc`
	sqlListBookingsByRenter = `select ` + bookingColumns + ` from bookings b where b.renter_id = $1 order by b.created_at desc, b.start_at desc`

	sqlListBookingsBySeller = `
		select ` + bookingColumns + `
		from bookings b
		join car_units u on u.unit_id = b.unit_id
		join car_models m on m.model_id = u.model_id
		where m.seller_id = $1
		order by b.created_at desc, b.start_at desc
	`

	sqlOverlappingForUnit = `
		select ` + bookingColumns + ` from bookings b
		where b.unit_id = $1 and b.status = 'BOOKED' and b.start_at < $3 and b.end_at > $2
		order by b.start_at
	`

	sqlOverlappingForRenter = `
		select ` + bookingColumns + ` from bookings b
		where b.renter_id = $1 and b.status = 'BOOKED' and b.start_at < $3 and b.end_at > $2
		order by b.start_at
	`

	sqlBookedUnitIDs = `
		select distinct unit_id from bookings
		where status = 'BOOKED' and start_at < $2 and end_at > $1
	`

	sqlCountActiveForUnit = `select count(*) from bookings where unit_id = $1 and status = 'BOOKED'`

	sqlInsertBooking = `
		insert into bookings(
			booking_id, renter_id, unit_id, start_at, end_at, granularity, basis, status,
			hourly_rate_cents, daily_rate_cents, total_amount_cents, fine_cents, actual_return_at,
			metadata, created_at, updated_at
		)
		values ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, coalesce(nullif($14, ''), '{}')::jsonb, $15, now())
	`

	sqlUpdateBooking = `
		update bookings
		set status = $3, total_amount_cents = $4, fine_cents = $5, actual_return_at = $6, updated_at = now()
		where booking_id = $1 and status = $2
	`
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store implements rental.Store using pgx. A Store returned from WithTx runs on the transaction.
type Store struct {
	pool *pgxpool.Pool
	db   querier
}

// New returns a Store backed by a pgx pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool, db: pool}
}

func (store *Store) WithTx(ctx context.Context, fn func(ctx context.Context, txStore rental.Store) error) error {
	if store.pool == nil {
		return fn(ctx, store)
	}
	tx, err := store.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return wrapStoreError(errorSubjectTransaction, errorCodeBegin, err)
	}
	if err := fn(ctx, &Store{db: tx}); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return wrapStoreError(errorSubjectTransaction, errorCodeCommit, err)
	}
	return nil
}

// Ping checks database reachability.
func (store *Store) Ping(ctx context.Context) error {
	if store.pool == nil {
		return nil
	}
	return store.pool.Ping(ctx)
}

// Migrate creates the schema when it does not exist yet.
func (store *Store) Migrate(ctx context.Context) error {
	for _, statement := range schemaStatements {
		if _, err := store.db.Exec(ctx, statement); err != nil {
			return wrapStoreError(errorSubjectSchema, errorCodeMigrate, err)
		}
	}
	return nil
}

func (store *Store) GetUnit(ctx context.Context, unitID rental.UnitID) (rental.Unit, error) {
	return store.selectUnit(ctx, sqlSelectUnit, errorCodeGet, unitID)
}

func (store *Store) LockUnit(ctx context.Context, unitID rental.UnitID) (rental.Unit, error) {
	return store.selectUnit(ctx, sqlSelectUnitForLock, errorCodeLock, unitID)
}

func (store *Store) selectUnit(ctx context.Context, query string, code string, unitID rental.UnitID) (rental.Unit, error) {
	unit, err := scanUnit(store.db.QueryRow(ctx, query, unitID.String()))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return rental.Unit{}, wrapStoreError(errorSubjectUnit, code, rental.ErrUnitNotFound)
		}
		return rental.Unit{}, wrapStoreError(errorSubjectUnit, code, err)
	}
	return unit, nil
}

func (store *Store) ListUnits(ctx context.Context) ([]rental.Unit, error) {
	return store.queryUnits(ctx, sqlListUnits)
}

func (store *Store) UnitsForModel(ctx context.Context, modelID rental.ModelID) ([]rental.Unit, error) {
	return store.queryUnits(ctx, sqlListUnitsForModel, modelID.String())
}

func (store *Store) ListAvailableUnits(ctx context.Context, modelID rental.ModelID) ([]rental.Unit, error) {
	return store.queryUnits(ctx, sqlListAvailableUnits, modelID.String())
}

func (store *Store) ListAvailableUnitsExcluding(ctx context.Context, modelID rental.ModelID, excluded []rental.UnitID) ([]rental.Unit, error) {
	if len(excluded) == 0 {
		return store.ListAvailableUnits(ctx, modelID)
	}
	excludedValues := make([]string, 0, len(excluded))
	for _, unitID := range excluded {
		excludedValues = append(excludedValues, unitID.String())
	}
	return store.queryUnits(ctx, sqlListAvailableUnitsExcluding, modelID.String(), excludedValues)
}

func (store *Store) queryUnits(ctx context.Context, query string, args ...any) ([]rental.Unit, error) {
	rows, err := store.db.Query(ctx, query, args...)
	if err != nil {
		return nil, wrapStoreError(errorSubjectUnit, errorCodeList, err)
	}
	defer rows.Close()
	units := make([]rental.Unit, 0, 8)
	for rows.Next() {
		unit, err := scanUnit(rows)
		if err != nil {
			return nil, wrapStoreError(errorSubjectUnit, errorCodeInvalid, err)
		}
		units = append(units, unit)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapStoreError(errorSubjectUnit, errorCodeList, err)
	}
	return units, nil
}

func (store *Store) UnitExists(ctx context.Context, unitID rental.UnitID) (bool, error) {
	count, err := store.count(ctx, sqlCountUnit, unitID.String())
	if err != nil {
		return false, wrapStoreError(errorSubjectUnit, errorCodeCount, err)
	}
	return count > 0, nil
}

func (store *Store) SetUnitAvailability(ctx context.Context, unitID rental.UnitID, available bool) error {
	tag, err := store.db.Exec(ctx, sqlUpdateAvailable, unitID.String(), available)
	if err != nil {
		return wrapStoreError(errorSubjectUnit, errorCodeUpdate, err)
	}
	if tag.RowsAffected() == 0 {
		return wrapStoreError(errorSubjectUnit, errorCodeUpdate, rental.ErrUnitNotFound)
	}
	return nil
}

func (store *Store) CreateUnit(ctx context.Context, unit rental.Unit) error {
	_, err := store.db.Exec(ctx, sqlInsertUnit, unit.ID.String(), unit.ModelID.String(), unit.NumberPlate, unit.Available)
	if isUniqueViolation(err, constraintNumberPlate) {
		return wrapStoreError(errorSubjectUnit, errorCodeDuplicate, rental.ErrDuplicateNumberPlate)
	}
	if err != nil {
		return wrapStoreError(errorSubjectUnit, errorCodeCreate, err)
	}
	return nil
}

func (store *Store) GetModel(ctx context.Context, modelID rental.ModelID) (rental.Model, error) {
	model, err := scanModel(store.db.QueryRow(ctx, sqlSelectModel, modelID.String()))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return rental.Model{}, wrapStoreError(errorSubjectModel, errorCodeGet, rental.ErrModelNotFound)
		}
		return rental.Model{}, wrapStoreError(errorSubjectModel, errorCodeGet, err)
	}
	return model, nil
}

func (store *Store) CreateModel(ctx context.Context, model rental.Model) error {
	_, err := store.db.Exec(ctx, sqlInsertModel,
		model.ID.String(),
		model.Name,
		model.Category,
		model.Rates.Hourly.Int64(),
		model.Rates.Daily.Int64(),
		model.SellerID.String(),
	)
	if err != nil {
		return wrapStoreError(errorSubjectModel, errorCodeCreate, err)
	}
	return nil
}

func (store *Store) ListModels(ctx context.Context) ([]rental.Model, error) {
	return store.queryModels(ctx, sqlListModels)
}

func (store *Store) ModelsForSeller(ctx context.Context, sellerID rental.RenterID) ([]rental.Model, error) {
	return store.queryModels(ctx, sqlListSellerModels, sellerID.String())
}

func (store *Store) queryModels(ctx context.Context, query string, args ...any) ([]rental.Model, error) {
	rows, err := store.db.Query(ctx, query, args...)
	if err != nil {
		return nil, wrapStoreError(errorSubjectModel, errorCodeList, err)
	}
	defer rows.Close()
	models := make([]rental.Model, 0, 8)
	for rows.Next() {
		model, err := scanModel(rows)
		if err != nil {
			return nil, wrapStoreError(errorSubjectModel, errorCodeInvalid, err)
		}
		models = append(models, model)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapStoreError(errorSubjectModel, errorCodeList, err)
	}
	return models, nil
}

func (store *Store) DeleteModel(ctx context.Context, modelID rental.ModelID) error {
	tag, err := store.db.Exec(ctx, sqlDeleteModel, modelID.String())
	if err != nil {
		return wrapStoreError(errorSubjectModel, errorCodeDelete, err)
	}
	if tag.RowsAffected() == 0 {
		return wrapStoreError(errorSubjectModel, errorCodeDelete, rental.ErrModelNotFound)
	}
	return nil
}

func (store *Store) CountUnitsForModel(ctx context.Context, modelID rental.ModelID) (int64, error) {
	count, err := store.count(ctx, sqlCountUnitsByModel, modelID.String())
	if err != nil {
		return 0, wrapStoreError(errorSubjectUnit, errorCodeCount, err)
	}
	return count, nil
}

func (store *Store) RenterExists(ctx context.Context, renterID rental.RenterID) (bool, error) {
	count, err := store.count(ctx, sqlCountRenter, renterID.String())
	if err != nil {
		return false, wrapStoreError(errorSubjectRenter, errorCodeCount, err)
	}
	return count > 0, nil
}

func (store *Store) LockRenter(ctx context.Context, renterID rental.RenterID) error {
	var locked string
	if err := store.db.QueryRow(ctx, sqlLockRenter, renterID.String()).Scan(&locked); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return wrapStoreError(errorSubjectRenter, errorCodeLock, rental.ErrRenterNotFound)
		}
		return wrapStoreError(errorSubjectRenter, errorCodeLock, err)
	}
	return nil
}

func (store *Store) CreateRenter(ctx context.Context, renter rental.Renter) error {
	_, err := store.db.Exec(ctx, sqlInsertRenter,
		renter.ID.String(),
		renter.Email,
		renter.DisplayName,
		renter.PasswordDigest,
		renter.Role,
	)
	if isUniqueViolation(err, constraintRenterEmail) {
		return wrapStoreError(errorSubjectRenter, errorCodeDuplicate, rental.ErrDuplicateEmail)
	}
	if err != nil {
		return wrapStoreError(errorSubjectRenter, errorCodeCreate, err)
	}
	return nil
}

func (store *Store) GetRenterByEmail(ctx context.Context, email string) (rental.Renter, error) {
	var (
		renterIDValue string
		renter        rental.Renter
	)
	err := store.db.QueryRow(ctx, sqlSelectRenterEmail, strings.ToLower(strings.TrimSpace(email))).Scan(
		&renterIDValue,
		&renter.Email,
		&renter.DisplayName,
		&renter.PasswordDigest,
		&renter.Role,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return rental.Renter{}, wrapStoreError(errorSubjectRenter, errorCodeGet, rental.ErrRenterNotFound)
		}
		return rental.Renter{}, wrapStoreError(errorSubjectRenter, errorCodeGet, err)
	}
	renterID, err := rental.NewRenterID(renterIDValue)
	if err != nil {
		return rental.Renter{}, wrapStoreError(errorSubjectRenter, errorCodeInvalid, err)
	}
	renter.ID = renterID
	return renter, nil
}

func (store *Store) GetBooking(ctx context.Context, bookingID rental.BookingID) (rental.Booking, error) {
	booking, err := scanBooking(store.db.QueryRow(ctx, sqlSelectBooking, bookingID.String()))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return rental.Booking{}, wrapStoreError(errorSubjectBooking, errorCodeGet, rental.ErrBookingNotFound)
		}
		return rental.Booking{}, wrapStoreError(errorSubjectBooking, errorCodeGet, err)
	}
	return booking, nil
}

func (store *Store) ListBookingsByRenter(ctx context.Context, renterID rental.RenterID) ([]rental.Booking, error) {
	return store.queryBookings(ctx, errorCodeList, sqlListBookingsByRenter, renterID.String())
}

func (store *Store) ListBookingsBySeller(ctx context.Context, sellerID rental.RenterID) ([]rental.Booking, error) {
	return store.queryBookings(ctx, errorCodeList, sqlListBookingsBySeller, sellerID.String())
}

func (store *Store) ListBookings(ctx context.Context) ([]rental.Booking, error) {
	return store.queryBookings(ctx, errorCodeList, sqlListBookings)
}

func (store *Store) FindOverlappingForUnit(ctx context.Context, unitID rental.UnitID, window rental.Window) ([]rental.Booking, error) {
	return store.queryBookings(ctx, errorCodeOverlap, sqlOverlappingForUnit, unitID.String(), window.Start.UTC(), window.End.UTC())
}

func (store *Store) FindOverlappingForRenter(ctx context.Context, renterID rental.RenterID, window rental.Window) ([]rental.Booking, error) {
	return store.queryBookings(ctx, errorCodeOverlap, sqlOverlappingForRenter, renterID.String(), window.Start.UTC(), window.End.UTC())
}

func (store *Store) queryBookings(ctx context.Context, code string, query string, args ...any) ([]rental.Booking, error) {
	rows, err := store.db.Query(ctx, query, args...)
	if err != nil {
		return nil, wrapStoreError(errorSubjectBooking, code, err)
	}
	defer rows.Close()
	bookings := make([]rental.Booking, 0, 16)
	for rows.Next() {
		booking, err := scanBooking(rows)
		if err != nil {
			return nil, wrapStoreError(errorSubjectBooking, errorCodeInvalid, err)
		}
		bookings = append(bookings, booking)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapStoreError(errorSubjectBooking, code, err)
	}
	return bookings, nil
}

func (store *Store) BookedUnitIDs(ctx context.Context, window rental.Window) ([]rental.UnitID, error) {
	rows, err := store.db.Query(ctx, sqlBookedUnitIDs, window.Start.UTC(), window.End.UTC())
	if err != nil {
		return nil, wrapStoreError(errorSubjectBooking, errorCodeOverlap, err)
	}
	defer rows.Close()
	unitIDs := make([]rental.UnitID, 0, 8)
	for rows.Next() {
		var value string
		if err := rows.Scan(&value); err != nil {
			return nil, wrapStoreError(errorSubjectBooking, errorCodeInvalid, err)
		}
		unitID, err := rental.NewUnitID(value)
		if err != nil {
			return nil, wrapStoreError(errorSubjectBooking, errorCodeInvalid, err)
		}
		unitIDs = append(unitIDs, unitID)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapStoreError(errorSubjectBooking, errorCodeOverlap, err)
	}
	return unitIDs, nil
}

func (store *Store) CountActiveForUnit(ctx context.Context, unitID rental.UnitID) (int64, error) {
	count, err := store.count(ctx, sqlCountActiveForUnit, unitID.String())
	if err != nil {
		return 0, wrapStoreError(errorSubjectBooking, errorCodeCount, err)
	}
	return count, nil
}

func (store *Store) InsertBooking(ctx context.Context, booking rental.Booking) error {
	createdAt := booking.CreatedAt.UTC()
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := store.db.Exec(ctx, sqlInsertBooking,
		booking.ID.String(),
		booking.RenterID.String(),
		booking.UnitID.String(),
		booking.Start.UTC(),
		booking.End.UTC(),
		booking.Granularity.String(),
		string(booking.Basis),
		booking.Status.String(),
		booking.Rates.Hourly.Int64(),
		booking.Rates.Daily.Int64(),
		booking.TotalAmount.Int64(),
		booking.Fine.Int64(),
		booking.ActualReturn,
		booking.Metadata.String(),
		createdAt,
	)
	if err != nil {
		return wrapStoreError(errorSubjectBooking, errorCodeInsert, err)
	}
	return nil
}

func (store *Store) UpdateBooking(ctx context.Context, booking rental.Booking, from rental.BookingStatus) error {
	tag, err := store.db.Exec(ctx, sqlUpdateBooking,
		booking.ID.String(),
		from.String(),
		booking.Status.String(),
		booking.TotalAmount.Int64(),
		booking.Fine.Int64(),
		booking.ActualReturn,
	)
	if err != nil {
		return wrapStoreError(errorSubjectBooking, errorCodeUpdateStatus, err)
	}
	if tag.RowsAffected() == 0 {
		return wrapStoreError(errorSubjectBooking, errorCodeUpdateStatus, rental.ErrBookingClosed)
	}
	return nil
}

func (store *Store) count(ctx context.Context, query string, args ...any) (int64, error) {
	var count int64
	if err := store.db.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func scanUnit(row pgx.Row) (rental.Unit, error) {
	var (
		unitIDValue  string
		modelIDValue string
		unit         rental.Unit
	)
	if err := row.Scan(&unitIDValue, &modelIDValue, &unit.NumberPlate, &unit.Available); err != nil {
		return rental.Unit{}, err
	}
	unitID, err := rental.NewUnitID(unitIDValue)
	if err != nil {
		return rental.Unit{}, err
	}
	modelID, err := rental.NewModelID(modelIDValue)
	if err != nil {
		return rental.Unit{}, err
	}
	unit.ID = unitID
	unit.ModelID = modelID
	return unit, nil
}

func scanModel(row pgx.Row) (rental.Model, error) {
	var (
		modelIDValue  string
		sellerIDValue string
		hourlyValue   int64
		dailyValue    int64
		model         rental.Model
	)
	if err := row.Scan(&modelIDValue, &model.Name, &model.Category, &hourlyValue, &dailyValue, &sellerIDValue); err != nil {
		return rental.Model{}, err
	}
	modelID, err := rental.NewModelID(modelIDValue)
	if err != nil {
		return rental.Model{}, err
	}
	model.ID = modelID
	model.Rates = rental.Rates{Hourly: rental.AmountCents(hourlyValue), Daily: rental.AmountCents(dailyValue)}
	if sellerIDValue != "" {
		sellerID, err := rental.NewRenterID(sellerIDValue)
		if err != nil {
			return rental.Model{}, err
		}
		model.SellerID = sellerID
	}
	return model, nil
}

func scanBooking(row pgx.Row) (rental.Booking, error) {
	var (
		bookingIDValue   string
		renterIDValue    string
		unitIDValue      string
		granularityValue string
		basisValue       string
		statusValue      string
		hourlyValue      int64
		dailyValue       int64
		totalValue       int64
		fineValue        int64
		actualReturn     *time.Time
		metadataValue    string
		booking          rental.Booking
	)
	if err := row.Scan(
		&bookingIDValue,
		&renterIDValue,
		&unitIDValue,
		&booking.Start,
		&booking.End,
		&granularityValue,
		&basisValue,
		&statusValue,
		&hourlyValue,
		&dailyValue,
		&totalValue,
		&fineValue,
		&actualReturn,
		&metadataValue,
		&booking.CreatedAt,
	); err != nil {
		return rental.Booking{}, err
	}
	bookingID, err := rental.NewBookingID(bookingIDValue)
	if err != nil {
		return rental.Booking{}, err
	}
	renterID, err := rental.NewRenterID(renterIDValue)
	if err != nil {
		return rental.Booking{}, err
	}
	unitID, err := rental.NewUnitID(unitIDValue)
	if err != nil {
		return rental.Booking{}, err
	}
	granularity, err := rental.ParseGranularity(granularityValue)
	if err != nil {
		return rental.Booking{}, err
	}
	status, err := rental.ParseBookingStatus(statusValue)
	if err != nil {
		return rental.Booking{}, err
	}
	metadata, err := rental.NewMetadataJSON(metadataValue)
	if err != nil {
		return rental.Booking{}, err
	}
	booking.ID = bookingID
	booking.RenterID = renterID
	booking.UnitID = unitID
	booking.Start = booking.Start.UTC()
	booking.End = booking.End.UTC()
	booking.CreatedAt = booking.CreatedAt.UTC()
	booking.Granularity = granularity
	booking.Basis = rental.ParseTimeBasis(basisValue)
	booking.Status = status
	booking.Rates = rental.Rates{Hourly: rental.AmountCents(hourlyValue), Daily: rental.AmountCents(dailyValue)}
	booking.TotalAmount = rental.AmountCents(totalValue)
	booking.Fine = rental.AmountCents(fineValue)
	booking.Metadata = metadata
	if actualReturn != nil {
		normalized := actualReturn.UTC()
		booking.ActualReturn = &normalized
	}
	return booking, nil
}

func wrapStoreError(subject string, code string, err error) error {
	return rental.WrapError(errorOperationStore, subject, code, err)
}

func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolationCode && pgErr.ConstraintName == constraint
	}
	return false
}

package gormstore

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// CarModel represents the car_models table.
type CarModel struct {
	ModelID         string    `gorm:"primaryKey"`
	Name            string    `gorm:"not null"`
	Category        string    `gorm:"not null"`
	HourlyRateCents int64     `gorm:"not null;default:0"`
	DailyRateCents  int64     `gorm:"not null"`
	SellerID        *string   `gorm:"index:idx_car_models_seller"`
	CreatedAt       time.Time `gorm:"not null"`
}

func (CarModel) TableName() string { return "car_models" }

func (model *CarModel) BeforeCreate(tx *gorm.DB) error {
	if model.ModelID == "" {
		model.ModelID = uuid.NewString()
	}
	return nil
}

// CarUnit represents the car_units table.
type CarUnit struct {
	UnitID      string    `gorm:"primaryKey"`
	ModelID     string    `gorm:"not null;index:idx_car_units_model_available,priority:1"`
	NumberPlate string    `gorm:"not null;uniqueIndex:uniq_car_units_number_plate"`
	Available   bool      `gorm:"not null;index:idx_car_units_model_available,priority:2"`
	CreatedAt   time.Time `gorm:"not null"`
}

func (CarUnit) TableName() string { return "car_units" }

func (unit *CarUnit) BeforeCreate(tx *gorm.DB) error {
	if unit.UnitID == "" {
		unit.UnitID = uuid.NewString()
	}
	return nil
}

// Renter represents the renters table.
type Renter struct {
	RenterID       string    `gorm:"primaryKey"`
	Email          string    `gorm:"not null;uniqueIndex:uniq_renters_email"`
	DisplayName    string    `gorm:"not null;default:''"`
	PasswordDigest string    `gorm:"not null"`
	Role           string    `gorm:"not null"`
	CreatedAt      time.Time `gorm:"not null"`
}

func (Renter) TableName() string { return "renters" }

func (renter *Renter) BeforeCreate(tx *gorm.DB) error {
	if renter.RenterID == "" {
		renter.RenterID = uuid.NewString()
	}
	return nil
}

// Booking mirrors the bookings table.
type Booking struct {
	BookingID        string         `gorm:"primaryKey"`
	RenterID         string         `gorm:"not null;index:idx_bookings_renter_status,priority:1"`
	UnitID           string         `gorm:"not null;index:idx_bookings_unit_status,priority:1"`
	StartAt          time.Time      `gorm:"not null"`
	EndAt            time.Time      `gorm:"not null"`
	Granularity      string         `gorm:"not null"`
	Basis            string         `gorm:"not null"`
	Status           string         `gorm:"not null;index:idx_bookings_unit_status,priority:2;index:idx_bookings_renter_status,priority:2"`
	HourlyRateCents  int64          `gorm:"not null"`
	DailyRateCents   int64          `gorm:"not null"`
	TotalAmountCents int64          `gorm:"not null"`
	FineCents        int64          `gorm:"not null;default:0"`
	ActualReturnAt   *time.Time     `gorm:""`
	Metadata         datatypes.JSON `gorm:"not null"`
	CreatedAt        time.Time      `gorm:"not null;index:idx_bookings_created"`
	UpdatedAt        time.Time      `gorm:"not null"`
}

func (Booking) TableName() string { return "bookings" }

func (booking *Booking) BeforeCreate(tx *gorm.DB) error {
	if booking.BookingID == "" {
		booking.BookingID = uuid.NewString()
	}
	return nil
}

// AllModels lists the tables managed by this store, in migration order.
func AllModels() []any {
	return []any{&CarModel{}, &CarUnit{}, &Renter{}, &Booking{}}
}

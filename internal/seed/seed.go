// Package seed loads a sample catalog and an admin account into an empty store.
package seed

import (
	"context"
	"errors"
	"fmt"

	"github.com/MarkoPoloResearchLab/rental/internal/auth"
	"github.com/MarkoPoloResearchLab/rental/pkg/rental"
	"go.uber.org/zap"
)

var ErrMissingAdminCredentials = errors.New("seed: admin email and password are required")

// SampleModel is one catalog entry with the plates of its units.
type SampleModel struct {
	Name      string
	Category  string
	DailyRate rental.AmountCents
	Plates    []string
}

// SampleCatalog carries daily rates only so hourly bookings exercise the default-rate fallback.
var SampleCatalog = []SampleModel{
	{Name: "Maruti Swift", Category: "hatchback", DailyRate: 180000, Plates: []string{"MH01AB1234", "MH01AB1235"}},
	{Name: "Hyundai Creta", Category: "suv", DailyRate: 320000, Plates: []string{"KA05MN4321", "KA05MN4322"}},
	{Name: "Honda City", Category: "sedan", DailyRate: 260000, Plates: []string{"DL3CAF0001"}},
	{Name: "Mahindra Thar", Category: "offroad", DailyRate: 410000, Plates: []string{"GJ01XY9999"}},
}

// Admin identifies the administrator account to create.
type Admin struct {
	Email       string
	Password    string
	DisplayName string
}

// Result reports what a run created.
type Result struct {
	Models       int
	Units        int
	AdminCreated bool
}

// Loader seeds a store through the catalog and account services.
type Loader struct {
	catalog  *rental.Catalog
	accounts *auth.Accounts
	logger   *zap.Logger
}

// NewLoader wires a Loader. logger may be nil.
func NewLoader(catalog *rental.Catalog, accounts *auth.Accounts, logger *zap.Logger) (*Loader, error) {
	if catalog == nil || accounts == nil {
		return nil, fmt.Errorf("%w: seed dependencies are nil", rental.ErrInvalidServiceConfig)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{catalog: catalog, accounts: accounts, logger: logger}, nil
}

// Run creates the admin account and the sample catalog unless they already exist.
func (loader *Loader) Run(ctx context.Context, admin Admin, models []SampleModel) (Result, error) {
	var result Result
	created, err := loader.ensureAdmin(ctx, admin)
	if err != nil {
		return result, err
	}
	result.AdminCreated = created

	existing, err := loader.catalog.Models(ctx)
	if err != nil {
		return result, fmt.Errorf("list models: %w", err)
	}
	if len(existing) > 0 {
		loader.logger.Info("catalog already seeded", zap.Int("models", len(existing)))
		return result, nil
	}
	for _, sample := range models {
		model, err := loader.catalog.AddModel(ctx, rental.ModelInput{
			Name:      sample.Name,
			Category:  sample.Category,
			DailyRate: sample.DailyRate,
		})
		if err != nil {
			return result, fmt.Errorf("add model %s: %w", sample.Name, err)
		}
		result.Models++
		for _, plate := range sample.Plates {
			if _, err := loader.catalog.AddUnit(ctx, rental.UnitInput{ModelID: model.ID.String(), NumberPlate: plate}); err != nil {
				return result, fmt.Errorf("add unit %s: %w", plate, err)
			}
			result.Units++
		}
	}
	loader.logger.Info("catalog seeded", zap.Int("models", result.Models), zap.Int("units", result.Units))
	return result, nil
}

func (loader *Loader) ensureAdmin(ctx context.Context, admin Admin) (bool, error) {
	if admin.Email == "" || admin.Password == "" {
		return false, ErrMissingAdminCredentials
	}
	_, err := loader.accounts.Lookup(ctx, admin.Email)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, rental.ErrRenterNotFound) {
		return false, fmt.Errorf("lookup admin: %w", err)
	}
	displayName := admin.DisplayName
	if displayName == "" {
		displayName = "Administrator"
	}
	if _, err := loader.accounts.Register(ctx, auth.Registration{
		Email:       admin.Email,
		DisplayName: displayName,
		Password:    admin.Password,
		Role:        rental.RoleAdmin,
	}); err != nil {
		return false, fmt.Errorf("register admin: %w", err)
	}
	loader.logger.Info("admin account created", zap.String("email", admin.Email))
	return true, nil
}

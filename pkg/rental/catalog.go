package rental

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// ModelInput describes a model to add to the catalog.
type ModelInput struct {
	Name       string      `validate:"required,max=120"`
	Category   string      `validate:"required,max=60"`
	HourlyRate AmountCents `validate:"gte=0"`
	DailyRate  AmountCents `validate:"gt=0"`
	SellerID   string      `validate:"omitempty,max=64"`
}

// UnitInput describes a unit to add to the catalog.
type UnitInput struct {
	ModelID     string `validate:"required"`
	NumberPlate string `validate:"required,min=2,max=20,alphanum"`
}

// CatalogOption configures a Catalog instance.
type CatalogOption func(*Catalog)

// Catalog manages models and units.
type Catalog struct {
	store    Store
	validate *validator.Validate
	newID    func() string
	logger   OperationLogger
}

// WithCatalogOperationLogger wires a logger that receives callbacks for every catalog mutation.
func WithCatalogOperationLogger(logger OperationLogger) CatalogOption {
	return func(catalog *Catalog) {
		catalog.logger = logger
	}
}

// WithCatalogIDGenerator overrides model and unit id generation.
func WithCatalogIDGenerator(generator func() string) CatalogOption {
	return func(catalog *Catalog) {
		if generator != nil {
			catalog.newID = generator
		}
	}
}

// NewCatalog wires a Catalog.
func NewCatalog(store Store, options ...CatalogOption) (*Catalog, error) {
	if store == nil {
		return nil, fmt.Errorf("%w: store dependency is nil", ErrInvalidServiceConfig)
	}
	catalog := &Catalog{
		store:    store,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		newID:    uuid.NewString,
	}
	for _, option := range options {
		if option != nil {
			option(catalog)
		}
	}
	return catalog, nil
}

// AddModel stores a new model.
func (catalog *Catalog) AddModel(ctx context.Context, input ModelInput) (Model, error) {
	input.Name = strings.TrimSpace(input.Name)
	input.Category = strings.TrimSpace(input.Category)
	input.SellerID = strings.TrimSpace(input.SellerID)
	var model Model
	operationError := func() error {
		if err := catalog.validate.Struct(input); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		modelID, err := NewModelID(catalog.newID())
		if err != nil {
			return err
		}
		model = Model{
			ID:       modelID,
			Name:     input.Name,
			Category: input.Category,
			Rates:    Rates{Hourly: input.HourlyRate, Daily: input.DailyRate},
		}
		if input.SellerID != "" {
			sellerID, err := NewRenterID(input.SellerID)
			if err != nil {
				return err
			}
			model.SellerID = sellerID
		}
		return catalog.store.CreateModel(ctx, model)
	}()
	emitOperation(ctx, catalog.logger, OperationLog{
		Operation: operationAddModel,
		RenterID:  model.SellerID,
		ModelID:   model.ID,
		Amount:    model.Rates.Daily,
		Error:     operationError,
	})
	if operationError != nil {
		return Model{}, operationError
	}
	return model, nil
}

// AddUnit stores a new available unit. Number plates are uppercased and must be unique.
func (catalog *Catalog) AddUnit(ctx context.Context, input UnitInput) (Unit, error) {
	input.ModelID = strings.TrimSpace(input.ModelID)
	input.NumberPlate = strings.ToUpper(strings.TrimSpace(input.NumberPlate))
	var unit Unit
	operationError := func() error {
		if err := catalog.validate.Struct(input); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		modelID, err := NewModelID(input.ModelID)
		if err != nil {
			return err
		}
		unitID, err := NewUnitID(catalog.newID())
		if err != nil {
			return err
		}
		unit = Unit{ID: unitID, ModelID: modelID, NumberPlate: input.NumberPlate, Available: true}
		return catalog.store.WithTx(ctx, func(ctx context.Context, transactionStore Store) error {
			if _, err := transactionStore.GetModel(ctx, modelID); err != nil {
				return err
			}
			return transactionStore.CreateUnit(ctx, unit)
		})
	}()
	emitOperation(ctx, catalog.logger, OperationLog{
		Operation: operationAddUnit,
		ModelID:   unit.ModelID,
		UnitID:    unit.ID,
		Error:     operationError,
	})
	if operationError != nil {
		return Unit{}, operationError
	}
	return unit, nil
}

// DeleteModel removes a model that no unit references.
func (catalog *Catalog) DeleteModel(ctx context.Context, modelID ModelID) error {
	operationError := catalog.store.WithTx(ctx, func(ctx context.Context, transactionStore Store) error {
		if _, err := transactionStore.GetModel(ctx, modelID); err != nil {
			return err
		}
		units, err := transactionStore.CountUnitsForModel(ctx, modelID)
		if err != nil {
			return err
		}
		if units > 0 {
			return fmt.Errorf("%w: %d units reference model", ErrModelInUse, units)
		}
		return transactionStore.DeleteModel(ctx, modelID)
	})
	emitOperation(ctx, catalog.logger, OperationLog{
		Operation: operationDeleteModel,
		ModelID:   modelID,
		Error:     operationError,
	})
	return operationError
}

// Models lists all models.
func (catalog *Catalog) Models(ctx context.Context) ([]Model, error) {
	return catalog.store.ListModels(ctx)
}

// Model returns a model by id.
func (catalog *Catalog) Model(ctx context.Context, modelID ModelID) (Model, error) {
	return catalog.store.GetModel(ctx, modelID)
}

// ModelsForSeller lists models owned by sellerID.
func (catalog *Catalog) ModelsForSeller(ctx context.Context, sellerID RenterID) ([]Model, error) {
	return catalog.store.ModelsForSeller(ctx, sellerID)
}

// Units lists all units.
func (catalog *Catalog) Units(ctx context.Context) ([]Unit, error) {
	return catalog.store.ListUnits(ctx)
}

// UnitsForModel lists every unit of modelID regardless of availability.
func (catalog *Catalog) UnitsForModel(ctx context.Context, modelID ModelID) ([]Unit, error) {
	if _, err := catalog.store.GetModel(ctx, modelID); err != nil {
		return nil, err
	}
	return catalog.store.UnitsForModel(ctx, modelID)
}

// Package stock adjusts seller inventory inside order transactions. Quantity
// never goes negative: deductions are conditional updates that fail the whole
// transaction when stock ran out between validation and commit.
package stock

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/AgriNITMZ/agriapp-backend/pkg/db/models"
	pkgerrors "github.com/AgriNITMZ/agriapp-backend/pkg/errors"
)

// Line identifies one size variant and the quantity to adjust.
type Line struct {
	PriceSizeID uuid.UUID
	Quantity    int
}

// LinesFromOrderItems maps persisted order items to adjustment lines.
func LinesFromOrderItems(items []models.OrderItem) []Line {
	lines := make([]Line, 0, len(items))
	for _, item := range items {
		lines = append(lines, Line{PriceSizeID: item.PriceSizeID, Quantity: item.Quantity})
	}
	return lines
}

// Deduct decrements stock for every line. Each decrement is guarded by a
// quantity >= ? predicate; a zero row count means another transaction drained
// the variant first and the caller's transaction must roll back.
func Deduct(ctx context.Context, tx *gorm.DB, lines []Line) error {
	for _, line := range lines {
		if err := validateLine(line); err != nil {
			return err
		}

		result := tx.WithContext(ctx).
			Model(&models.PriceSize{}).
			Where("id = ? AND quantity >= ?", line.PriceSizeID, line.Quantity).
			UpdateColumn("quantity", gorm.Expr("quantity - ?", line.Quantity))
		if result.Error != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, result.Error, "deduct stock")
		}
		if result.RowsAffected == 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "insufficient stock").
				WithDetails(map[string]any{
					"price_size_id": line.PriceSizeID.String(),
					"requested":     line.Quantity,
				})
		}
	}
	return nil
}

// Restore returns stock for every line. Used when a confirmed order is
// cancelled; restoring a missing variant is not an error, the listing may
// have been removed since.
func Restore(ctx context.Context, tx *gorm.DB, lines []Line) error {
	for _, line := range lines {
		if err := validateLine(line); err != nil {
			return err
		}

		result := tx.WithContext(ctx).
			Model(&models.PriceSize{}).
			Where("id = ?", line.PriceSizeID).
			UpdateColumn("quantity", gorm.Expr("quantity + ?", line.Quantity))
		if result.Error != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, result.Error, "restore stock")
		}
	}
	return nil
}

// EnsureAvailable verifies every line has enough stock without mutating it.
// Intake calls this inside the order transaction so buyers get a clear error
// before any payment link exists.
func EnsureAvailable(ctx context.Context, tx *gorm.DB, lines []Line) error {
	for _, line := range lines {
		if err := validateLine(line); err != nil {
			return err
		}

		var variant models.PriceSize
		err := tx.WithContext(ctx).
			Select("id", "quantity").
			Where("id = ?", line.PriceSizeID).
			First(&variant).Error
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "size variant not found").
					WithDetails(map[string]any{"price_size_id": line.PriceSizeID.String()})
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load size variant")
		}
		if variant.Quantity < line.Quantity {
			return pkgerrors.New(pkgerrors.CodeValidation, "insufficient stock").
				WithDetails(map[string]any{
					"price_size_id": line.PriceSizeID.String(),
					"requested":     line.Quantity,
					"available":     variant.Quantity,
				})
		}
	}
	return nil
}

func validateLine(line Line) error {
	if line.PriceSizeID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "price size id required")
	}
	if line.Quantity <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid quantity %d", line.Quantity))
	}
	return nil
}

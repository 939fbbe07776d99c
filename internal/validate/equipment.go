package validate

import (
	"fmt"

	"github.com/mrmoe28/solarscheduler-sub001/internal/models"
)

// Equipment checks an inventory item. creating enables the rules that only
// apply at creation time; minimum stock may drift above quantity later
// through consumption.
func Equipment(e models.Equipment, creating bool) Result {
	var r Result

	if e.Name == "" {
		r.add("name", CodeRequired, "name is required")
	}
	if !e.Category.Valid() {
		r.add("category", CodeInvalidFormat, fmt.Sprintf("unknown equipment category %q", e.Category))
	}

	if e.Quantity < 0 || e.Quantity > 10_000 {
		r.add("quantity", CodeOutOfRange, "quantity must be between 0 and 10,000")
	}
	if e.UnitPrice < 0 {
		r.add("unit_price", CodeOutOfRange, "unit price cannot be negative")
	}
	if e.UnitCost < 0 || e.UnitCost > 100_000 {
		r.add("unit_cost", CodeOutOfRange, "unit cost must be between 0 and 100,000")
	}

	if e.MinimumStock < 0 {
		r.add("minimum_stock", CodeOutOfRange, "minimum stock cannot be negative")
	} else if creating && e.MinimumStock > e.Quantity {
		r.add("minimum_stock", CodeBusinessRule, "minimum stock cannot exceed quantity on hand")
	}

	if e.LowStockThreshold < 0 {
		r.add("low_stock_threshold", CodeOutOfRange, "low stock threshold cannot be negative")
	}

	return r
}

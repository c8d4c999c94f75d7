package models

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusCooking   OrderStatus = "cooking"
	OrderStatusServed    OrderStatus = "served"
	OrderStatusCompleted OrderStatus = "completed"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// happy-path rank; cancelled is handled separately (reachable from any
// non-terminal state).
var orderStatusRank = map[OrderStatus]int{
	OrderStatusPending:   0,
	OrderStatusCooking:   1,
	OrderStatusServed:    2,
	OrderStatusCompleted: 3,
}

func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusCompleted || s == OrderStatusCancelled
}

func (s OrderStatus) IsValid() bool {
	_, ok := orderStatusRank[s]
	return ok || s == OrderStatusCancelled
}

type LedgerType string

const (
	LedgerTypeIncome  LedgerType = "income"
	LedgerTypeExpense LedgerType = "expense"
)

type LedgerCategory string

const (
	// income categories
	LedgerCategorySales       LedgerCategory = "sales"
	LedgerCategoryOtherIncome LedgerCategory = "other_income"

	// expense categories
	LedgerCategoryRawMaterial LedgerCategory = "raw_material"
	LedgerCategoryRent        LedgerCategory = "rent"
	LedgerCategoryLabor       LedgerCategory = "labor"
	LedgerCategoryUtilities   LedgerCategory = "utilities"
	LedgerCategoryAsset       LedgerCategory = "asset"
	LedgerCategoryEquipment   LedgerCategory = "equipment"
	LedgerCategoryOther       LedgerCategory = "other"
)

var incomeCategories = map[LedgerCategory]bool{
	LedgerCategorySales:       true,
	LedgerCategoryOtherIncome: true,
}

var expenseCategories = map[LedgerCategory]bool{
	LedgerCategoryRawMaterial: true,
	LedgerCategoryRent:        true,
	LedgerCategoryLabor:       true,
	LedgerCategoryUtilities:   true,
	LedgerCategoryAsset:       true,
	LedgerCategoryEquipment:   true,
	LedgerCategoryOther:       true,
}

func (c LedgerCategory) IsValidFor(t LedgerType) bool {
	switch t {
	case LedgerTypeIncome:
		return incomeCategories[c]
	case LedgerTypeExpense:
		return expenseCategories[c]
	}
	return false
}

type InventoryType string

const (
	InventoryTypeStock InventoryType = "stock"
	InventoryTypeAsset InventoryType = "asset"
)

type PaymentMethod string

const (
	PaymentMethodCash     PaymentMethod = "cash"
	PaymentMethodTransfer PaymentMethod = "transfer"
	PaymentMethodDelivery PaymentMethod = "delivery"
)

type DeductionTarget string

const (
	DeductionTargetInventory DeductionTarget = "inventory"
	DeductionTargetMenu      DeductionTarget = "menu"
)

// StockDirection is carried explicitly on a deduction. The empty value falls
// back to inference from the surrounding transaction type (expense => in),
// kept for payloads produced before the field existed.
type StockDirection string

const (
	StockDirectionIn  StockDirection = "in"
	StockDirectionOut StockDirection = "out"
)

// NewItemRefId is the sentinel RefId instructing the stock engine to create
// a fresh inventory item from the deduction's overrides.
const NewItemRefId = "new"

// AdvisoryTier is the heuristic feedback band derived from a finance summary.
type AdvisoryTier int

const (
	AdvisoryTierNoSales AdvisoryTier = iota
	AdvisoryTierLoss
	AdvisoryTierThinMargin
	AdvisoryTierHealthy
	AdvisoryTierExcellent
)

func (t AdvisoryTier) String() string {
	switch t {
	case AdvisoryTierNoSales:
		return "no sales yet"
	case AdvisoryTierLoss:
		return "losing money"
	case AdvisoryTierThinMargin:
		return "thin margin"
	case AdvisoryTierHealthy:
		return "healthy"
	case AdvisoryTierExcellent:
		return "excellent"
	}
	return "unknown"
}

package workflow

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/mmdatafocus/pos_backend/config"
	"bitbucket.org/mmdatafocus/pos_backend/models"
	"bitbucket.org/mmdatafocus/pos_backend/utils"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Capabilities are the store-facing collaborators an order action needs.
// They are injected by the API layer so engine semantics stay testable
// against fakes. A nil required capability aborts the action with an
// explicit user-visible error before any mutation.
type Capabilities struct {
	AddInventoryItem     func(ctx context.Context, tx *gorm.DB, item *models.InventoryItem) error
	UpdateInventoryBatch func(ctx context.Context, tx *gorm.DB, snapshot models.InventorySnapshot, ids []string) error
	AddLedgerEntry       func(ctx context.Context, tx *gorm.DB, entry *models.LedgerItem) error
	AddSupplier          func(ctx context.Context, input *models.NewSupplier) (*models.Supplier, error)
}

// DefaultCapabilities wires the gorm-backed collaborators.
func DefaultCapabilities() *Capabilities {
	return &Capabilities{
		AddInventoryItem: models.InsertInventoryItem,
		UpdateInventoryBatch: func(ctx context.Context, tx *gorm.DB, snapshot models.InventorySnapshot, ids []string) error {
			for _, id := range ids {
				item, ok := snapshot[id]
				if !ok {
					continue
				}
				if err := models.PersistInventoryItem(ctx, tx, item, item.Version); err != nil {
					return err
				}
			}
			return nil
		},
		AddLedgerEntry: models.InsertLedgerEntry,
		AddSupplier:    models.CreateSupplier,
	}
}

func missingCapability(name string) error {
	return errors.New(name + " is not available right now, the action was not saved")
}

func (c *Capabilities) requireStock() error {
	if c == nil || c.UpdateInventoryBatch == nil || c.AddInventoryItem == nil {
		return missingCapability("inventory update")
	}
	return nil
}

func (c *Capabilities) requireLedger() error {
	if c == nil || c.AddLedgerEntry == nil {
		return missingCapability("ledger recording")
	}
	return nil
}

type NewOrderInput struct {
	ShiftDate string             `json:"shift_date" binding:"required"`
	Status    models.OrderStatus `json:"status"`
	Items     []models.OrderItem `json:"items" binding:"required"`
}

func (input *NewOrderInput) validate() error {
	if len(input.Items) == 0 {
		return errors.New("cannot create an order from an empty cart")
	}
	for _, item := range input.Items {
		if item.Quantity < 1 {
			return errors.New("item quantity must be at least 1: " + item.Name)
		}
		if item.Name == "" {
			return errors.New("item name is required")
		}
	}
	if _, err := utils.ParseBusinessDate(input.ShiftDate); err != nil {
		return errors.New("shift date must be YYYY-MM-DD")
	}
	if input.Status == "" {
		input.Status = models.OrderStatusPending
	}
	if !input.Status.IsValid() {
		return errors.New("invalid order status")
	}
	return nil
}

// CreateOrder freezes a cart into an order for the operator-selected shift,
// assigning the next cyclic queue number derived from the shift's existing
// orders.
func CreateOrder(ctx context.Context, input *NewOrderInput) (*models.Order, error) {
	accountId, ok := utils.GetAccountIdFromContext(ctx)
	if !ok || accountId == "" {
		return nil, errors.New("account id is required")
	}
	if err := input.validate(); err != nil {
		return nil, err
	}

	shiftOrders, err := models.GetOrdersForShift(ctx, input.ShiftDate)
	if err != nil {
		return nil, err
	}
	queueNumber := models.NextQueueNumber(models.MaxQueueNumberForShift(shiftOrders, input.ShiftDate))

	return models.BuildOrder(accountId, input.Items, input.ShiftDate, input.Status, queueNumber, time.Now()), nil
}

// SendToFulfillment persists a newly created order and applies its stock
// deductions in one transaction. The order and the stock mutation land
// together or not at all.
func SendToFulfillment(ctx context.Context, caps *Capabilities, order *models.Order) (*StockApplyResult, error) {
	accountId, ok := utils.GetAccountIdFromContext(ctx)
	if !ok || accountId == "" {
		return nil, errors.New("account id is required")
	}
	if err := caps.requireStock(); err != nil {
		return nil, err
	}

	exists, err := models.OrderExists(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, errors.New("this order was already sent to the kitchen")
	}
	if err := order.Transition(models.OrderStatusCooking); err != nil {
		return nil, err
	}

	lock, err := AcquireAccountPostingLock(ctx, accountId)
	if err != nil {
		return nil, errors.New("another checkout is in progress, please retry")
	}
	defer ReleaseAccountPostingLock(ctx, lock)

	snapshot, err := models.FetchInventorySnapshot(ctx)
	if err != nil {
		return nil, err
	}
	menu, err := models.GetMenuItems(ctx)
	if err != nil {
		return nil, err
	}

	next, result, err := ApplyDeductions(snapshot, menu, models.MenuDeductions(order.Items), models.LedgerTypeIncome, accountId, time.Now())
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	tx := db.Begin()
	if err := models.InsertOrder(ctx, tx, order); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := persistStockChanges(ctx, tx, caps, next, &result); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return &result, nil
}

type PaymentInput struct {
	// OrderId settles an existing active bill; empty means instant pay.
	OrderId string             `json:"order_id"`
	Items   []models.OrderItem `json:"items"`

	ShiftDate   string               `json:"shift_date"`
	TotalPrice  decimal.Decimal      `json:"total_price"`
	GpDeduction decimal.Decimal      `json:"gp_deduction"`
	Method      models.PaymentMethod `json:"method" binding:"required"`
	Channel     string               `json:"channel"`
}

// CollectPayment completes an order and emits exactly one income ledger
// entry. Two flows: settling a previously created bill, or paying a brand-new
// order immediately (which also applies the stock deductions).
func CollectPayment(ctx context.Context, caps *Capabilities, input *PaymentInput) (*models.Order, *StockApplyResult, error) {
	accountId, ok := utils.GetAccountIdFromContext(ctx)
	if !ok || accountId == "" {
		return nil, nil, errors.New("account id is required")
	}
	if err := caps.requireLedger(); err != nil {
		return nil, nil, err
	}
	if input.TotalPrice.IsNegative() || input.GpDeduction.IsNegative() {
		return nil, nil, errors.New("payment amounts cannot be negative")
	}

	if input.OrderId != "" {
		order, err := settleExistingBill(ctx, caps, input)
		return order, nil, err
	}
	return instantPay(ctx, caps, accountId, input)
}

func settleExistingBill(ctx context.Context, caps *Capabilities, input *PaymentInput) (*models.Order, error) {
	order, err := models.GetOrder(ctx, input.OrderId)
	if err != nil {
		return nil, err
	}
	if err := order.Transition(models.OrderStatusCompleted); err != nil {
		return nil, err
	}

	totalPrice := input.TotalPrice
	if totalPrice.IsZero() {
		totalPrice = order.TotalPrice
	}
	order.ApplyPayment(totalPrice, input.GpDeduction, input.Method, input.Channel)

	db := config.GetDB()
	tx := db.Begin()
	if err := models.SaveOrder(ctx, tx, order); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := emitPaymentLedgerEntry(ctx, tx, caps, order); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return order, nil
}

func instantPay(ctx context.Context, caps *Capabilities, accountId string, input *PaymentInput) (*models.Order, *StockApplyResult, error) {
	if err := caps.requireStock(); err != nil {
		return nil, nil, err
	}
	if len(input.Items) == 0 {
		return nil, nil, errors.New("cannot collect payment for an empty cart")
	}
	shiftDate := input.ShiftDate
	if shiftDate == "" {
		shiftDate = utils.FormatBusinessDate(time.Now())
	}

	orderInput := &NewOrderInput{ShiftDate: shiftDate, Status: models.OrderStatusCompleted, Items: input.Items}
	order, err := CreateOrder(ctx, orderInput)
	if err != nil {
		return nil, nil, err
	}

	totalPrice := input.TotalPrice
	if totalPrice.IsZero() {
		totalPrice = order.TotalPrice
	}
	order.ApplyPayment(totalPrice, input.GpDeduction, input.Method, input.Channel)

	lock, err := AcquireAccountPostingLock(ctx, accountId)
	if err != nil {
		return nil, nil, errors.New("another checkout is in progress, please retry")
	}
	defer ReleaseAccountPostingLock(ctx, lock)

	snapshot, err := models.FetchInventorySnapshot(ctx)
	if err != nil {
		return nil, nil, err
	}
	menu, err := models.GetMenuItems(ctx)
	if err != nil {
		return nil, nil, err
	}
	next, result, err := ApplyDeductions(snapshot, menu, models.MenuDeductions(order.Items), models.LedgerTypeIncome, accountId, time.Now())
	if err != nil {
		return nil, nil, err
	}

	db := config.GetDB()
	tx := db.Begin()
	if err := models.InsertOrder(ctx, tx, order); err != nil {
		tx.Rollback()
		return nil, nil, err
	}
	if err := persistStockChanges(ctx, tx, caps, next, &result); err != nil {
		tx.Rollback()
		return nil, nil, err
	}
	if err := emitPaymentLedgerEntry(ctx, tx, caps, order); err != nil {
		tx.Rollback()
		return nil, nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, nil, err
	}
	return order, &result, nil
}

// emitPaymentLedgerEntry records the single income entry for a collected
// payment. The amount is the net total, the money actually received after
// platform fees.
func emitPaymentLedgerEntry(ctx context.Context, tx *gorm.DB, caps *Capabilities, order *models.Order) error {
	entry := models.BuildLedgerItem(order.AccountId, &models.NewLedgerEntry{
		Date:     order.ShiftDate,
		Type:     models.LedgerTypeIncome,
		Title:    "Order #" + order.ID[:8],
		Amount:   order.NetTotal,
		Category: models.LedgerCategorySales,
		Channel:  order.Channel,
	})
	return caps.AddLedgerEntry(ctx, tx, entry)
}

func persistStockChanges(ctx context.Context, tx *gorm.DB, caps *Capabilities, snapshot models.InventorySnapshot, result *StockApplyResult) error {
	for _, id := range result.CreatedItemIds {
		item, ok := snapshot[id]
		if !ok {
			continue
		}
		if err := caps.AddInventoryItem(ctx, tx, item); err != nil {
			return err
		}
	}
	return caps.UpdateInventoryBatch(ctx, tx, snapshot, result.TouchedItemIds)
}

// VoidOrder cancels an order. The confirmation prompt lives at the UI
// boundary; once requested the transition is accepted from any non-terminal
// state.
func VoidOrder(ctx context.Context, id string) (*models.Order, error) {
	order, err := models.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := order.Transition(models.OrderStatusCancelled); err != nil {
		return nil, err
	}
	db := config.GetDB()
	if err := models.SaveOrder(ctx, db, order); err != nil {
		return nil, err
	}
	return order, nil
}

// MarkOrderServed advances a cooking order along the happy path.
func MarkOrderServed(ctx context.Context, id string) (*models.Order, error) {
	order, err := models.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := order.Transition(models.OrderStatusServed); err != nil {
		return nil, err
	}
	db := config.GetDB()
	if err := models.SaveOrder(ctx, db, order); err != nil {
		return nil, err
	}
	return order, nil
}

type CheckoutInput struct {
	// Subs are the independently-categorized sub-transactions of one
	// checkout; each becomes its own ledger entry.
	Subs []models.NewLedgerEntry `json:"subs" binding:"required"`
	// Deductions apply once for the whole checkout, not once per sub.
	Deductions []models.StockDeduction `json:"deductions"`
	// CartTotal, when positive, must equal the sum of sub amounts.
	CartTotal decimal.Decimal `json:"cart_total"`
	// Intent drives the direction fallback for deductions without an
	// explicit direction. Defaults to the first sub's type.
	Intent models.LedgerType `json:"intent"`
}

// Checkout is the split-bill path: one submission, N ledger entries, stock
// effects applied exactly once.
func Checkout(ctx context.Context, caps *Capabilities, input *CheckoutInput) ([]models.LedgerItem, *StockApplyResult, error) {
	accountId, ok := utils.GetAccountIdFromContext(ctx)
	if !ok || accountId == "" {
		return nil, nil, errors.New("account id is required")
	}
	if err := caps.requireLedger(); err != nil {
		return nil, nil, err
	}
	if len(input.Subs) == 0 {
		return nil, nil, errors.New("checkout needs at least one entry")
	}

	subTotal := decimal.Zero
	for i := range input.Subs {
		if err := input.Subs[i].Validate(ctx, accountId, ""); err != nil {
			return nil, nil, err
		}
		subTotal = subTotal.Add(input.Subs[i].Amount)
	}
	if input.CartTotal.IsPositive() && !subTotal.Equal(input.CartTotal) {
		return nil, nil, errors.New("split amounts must add up to the cart total")
	}

	intent := input.Intent
	if intent == "" {
		intent = input.Subs[0].Type
	}

	// The snapshot read happens under the lock so a concurrent posting
	// cannot slip a write between read and persist.
	lock, err := AcquireAccountPostingLock(ctx, accountId)
	if err != nil {
		return nil, nil, errors.New("another checkout is in progress, please retry")
	}
	defer ReleaseAccountPostingLock(ctx, lock)

	var (
		next   models.InventorySnapshot
		result StockApplyResult
	)
	if len(input.Deductions) > 0 {
		if err := caps.requireStock(); err != nil {
			return nil, nil, err
		}
		snapshot, err := models.FetchInventorySnapshot(ctx)
		if err != nil {
			return nil, nil, err
		}
		menu, err := models.GetMenuItems(ctx)
		if err != nil {
			return nil, nil, err
		}
		next, result, err = ApplyDeductions(snapshot, menu, input.Deductions, intent, accountId, time.Now())
		if err != nil {
			return nil, nil, err
		}
	}

	splitGroupId := ""
	if len(input.Subs) > 1 {
		splitGroupId = uuid.NewString()
	}

	db := config.GetDB()
	tx := db.Begin()

	entries := make([]models.LedgerItem, 0, len(input.Subs))
	for i := range input.Subs {
		entry := models.BuildLedgerItem(accountId, &input.Subs[i])
		entry.SplitGroupId = splitGroupId
		if err := caps.AddLedgerEntry(ctx, tx, entry); err != nil {
			tx.Rollback()
			return nil, nil, err
		}
		entries = append(entries, *entry)
	}

	if next != nil {
		if err := persistStockChanges(ctx, tx, caps, next, &result); err != nil {
			tx.Rollback()
			return nil, nil, err
		}
	}

	if err := tx.Commit().Error; err != nil {
		return nil, nil, err
	}
	return entries, &result, nil
}

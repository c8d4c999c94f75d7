package models

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"bitbucket.org/mmdatafocus/pos_backend/config"
	"bitbucket.org/mmdatafocus/pos_backend/utils"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Topping struct {
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
}

// OrderItem is one cart line. Mutable while in the cart; frozen once the
// order snapshot is built.
type OrderItem struct {
	ID         string          `gorm:"primary_key;size:36" json:"id"`
	OrderId    string          `gorm:"index;size:36" json:"order_id"`
	MenuItemId string          `gorm:"index;size:36" json:"menu_item_id"`
	Name       string          `gorm:"size:255;not null" json:"name" binding:"required"`
	UnitPrice  decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"unit_price"`
	Quantity   int             `gorm:"not null;default:1" json:"quantity" binding:"required,min=1"`
	Modifiers  []string        `gorm:"serializer:json" json:"modifiers"`
	Toppings   []Topping       `gorm:"serializer:json" json:"toppings"`
	Note       string          `gorm:"type:text" json:"note"`
	ImageUrl   string          `gorm:"size:512" json:"image_url"`
	CreatedAt  time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

func (item OrderItem) Subtotal() decimal.Decimal {
	return item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity)))
}

// mergeKey identifies cart lines that can be collapsed: same menu entry,
// same modifier set, same toppings, no free-text note.
func (item OrderItem) mergeKey() string {
	if item.Note != "" {
		return ""
	}
	mods := append([]string(nil), item.Modifiers...)
	sort.Strings(mods)
	parts := []string{item.MenuItemId}
	parts = append(parts, mods...)
	for _, tp := range item.Toppings {
		parts = append(parts, tp.Name+"="+tp.Price.String())
	}
	return strings.Join(parts, "|")
}

// Order is a single bill, owned by the shift that created it and retained
// indefinitely.
type Order struct {
	ID          string          `gorm:"primary_key;size:36" json:"id"`
	AccountId   string          `gorm:"index;size:36;not null" json:"account_id"`
	QueueNumber int             `gorm:"not null" json:"queue_number"`
	ShiftDate   string          `gorm:"index;size:10;not null" json:"shift_date"`
	Timestamp   string          `gorm:"size:19;not null" json:"timestamp"`
	Status      OrderStatus     `gorm:"type:enum('pending','cooking','served','completed','cancelled');default:pending" json:"status"`
	Items       []OrderItem     `gorm:"foreignKey:OrderId" json:"items"`
	TotalPrice  decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"total_price"`
	NetTotal    decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"net_total"`
	GpDeduction decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"gp_deduction"`

	PaymentMethod PaymentMethod `gorm:"size:20" json:"payment_method"`
	Channel       string        `gorm:"size:100" json:"channel"`

	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// CanTransition reports whether moving to next is legal: forward-only on the
// happy path, cancelled reachable from any non-terminal state.
func (o *Order) CanTransition(next OrderStatus) bool {
	if o.Status.IsTerminal() {
		return false
	}
	if next == OrderStatusCancelled {
		return true
	}
	cur, ok := orderStatusRank[o.Status]
	if !ok {
		return false
	}
	nxt, ok := orderStatusRank[next]
	if !ok {
		return false
	}
	return nxt > cur
}

func (o *Order) Transition(next OrderStatus) error {
	if !next.IsValid() {
		return errors.New("invalid order status")
	}
	if !o.CanTransition(next) {
		return errors.New("order cannot move from " + string(o.Status) + " to " + string(next))
	}
	o.Status = next
	return nil
}

// CartTotal sums item subtotals.
func CartTotal(cart []OrderItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range cart {
		total = total.Add(item.Subtotal())
	}
	return total
}

type AddToCartOptions struct {
	Quantity  int
	Modifiers []string
	Toppings  []Topping
	Note      string
	// Separate forces a distinct cart line even when an identical line exists.
	Separate bool
}

// AddToCart returns a new cart with the menu item added. Identical lines
// (same menu id, modifiers, toppings, no note) merge by bumping quantity
// unless opts.Separate is set.
func AddToCart(cart []OrderItem, menuItem *MenuItem, opts AddToCartOptions) []OrderItem {
	qty := opts.Quantity
	if qty < 1 {
		qty = 1
	}

	unitPrice := menuItem.Price
	for _, tp := range opts.Toppings {
		unitPrice = unitPrice.Add(tp.Price)
	}

	line := OrderItem{
		ID:         uuid.NewString(),
		MenuItemId: menuItem.ID,
		Name:       menuItem.Name,
		UnitPrice:  unitPrice,
		Quantity:   qty,
		Modifiers:  utils.UniqueSlice(opts.Modifiers),
		Toppings:   opts.Toppings,
		Note:       opts.Note,
		ImageUrl:   menuItem.ImageUrl,
	}

	out := append([]OrderItem(nil), cart...)
	if !opts.Separate {
		key := line.mergeKey()
		if key != "" {
			for i := range out {
				if out[i].mergeKey() == key {
					out[i].Quantity += qty
					return out
				}
			}
		}
	}
	return append(out, line)
}

// SetCartQuantity adjusts a cart line quantity; qty <= 0 removes the line.
func SetCartQuantity(cart []OrderItem, lineId string, qty int) []OrderItem {
	out := make([]OrderItem, 0, len(cart))
	for _, item := range cart {
		if item.ID == lineId {
			if qty <= 0 {
				continue
			}
			item.Quantity = qty
		}
		out = append(out, item)
	}
	return out
}

// ToggleCartModifier adds the label to a line's modifier set, or removes it
// if already present. Set semantics: no duplicates.
func ToggleCartModifier(cart []OrderItem, lineId string, label string) []OrderItem {
	out := append([]OrderItem(nil), cart...)
	for i := range out {
		if out[i].ID != lineId {
			continue
		}
		mods := make([]string, 0, len(out[i].Modifiers))
		removed := false
		for _, m := range out[i].Modifiers {
			if m == label {
				removed = true
				continue
			}
			mods = append(mods, m)
		}
		if !removed {
			mods = append(mods, label)
		}
		out[i].Modifiers = mods
	}
	return out
}

// NextQueueNumber implements the 1..99 cyclic counter per shift.
func NextQueueNumber(lastForShift int) int {
	return (lastForShift % 99) + 1
}

// MaxQueueNumberForShift derives the shift's last queue number by scanning
// its non-deleted orders (0 if none). O(n) per call; acceptable for a single
// stall's daily volume.
func MaxQueueNumberForShift(orders []Order, shiftDate string) int {
	max := 0
	for _, o := range orders {
		if o.ShiftDate != shiftDate {
			continue
		}
		if o.QueueNumber > max {
			max = o.QueueNumber
		}
	}
	return max
}

// BuildOrder freezes the cart into an Order snapshot. The timestamp carries
// the operator-selected shift date, not necessarily today, combined with the
// wall-clock time-of-day.
func BuildOrder(accountId string, cart []OrderItem, shiftDate string, status OrderStatus, queueNumber int, now time.Time) *Order {
	id := uuid.NewString()
	items := make([]OrderItem, len(cart))
	copy(items, cart)
	for i := range items {
		items[i].OrderId = id
	}

	total := CartTotal(items)
	return &Order{
		ID:          id,
		AccountId:   accountId,
		QueueNumber: queueNumber,
		ShiftDate:   shiftDate,
		Timestamp:   utils.CombineShiftTimestamp(shiftDate, now),
		Status:      status,
		Items:       items,
		TotalPrice:  total,
		NetTotal:    total,
	}
}

// ApplyPayment overlays the latest payment fields. NetTotal is always derived
// from TotalPrice minus the platform-fee deduction.
func (o *Order) ApplyPayment(totalPrice, gpDeduction decimal.Decimal, method PaymentMethod, channel string) {
	o.TotalPrice = totalPrice
	o.GpDeduction = gpDeduction
	o.NetTotal = totalPrice.Sub(gpDeduction)
	o.PaymentMethod = method
	o.Channel = channel
}

// TimestampDate returns the date component of the order timestamp.
func (o *Order) TimestampDate() string {
	if len(o.Timestamp) < 10 {
		return ""
	}
	return o.Timestamp[:10]
}

// TimestampHour returns the hour component (0-23), or -1 when unparseable.
func (o *Order) TimestampHour() int {
	t, err := time.Parse("2006-01-02T15:04:05", o.Timestamp)
	if err != nil {
		return -1
	}
	return t.Hour()
}

func GetOrder(ctx context.Context, id string) (*Order, error) {
	accountId, ok := utils.GetAccountIdFromContext(ctx)
	if !ok || accountId == "" {
		return nil, errors.New("account id is required")
	}
	db := config.GetDB()
	var order Order
	if err := db.WithContext(ctx).Preload("Items").Where("account_id = ? AND id = ?", accountId, id).First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrorRecordNotFound
		}
		return nil, err
	}
	return &order, nil
}

func GetOrdersForShift(ctx context.Context, shiftDate string) ([]Order, error) {
	accountId, ok := utils.GetAccountIdFromContext(ctx)
	if !ok || accountId == "" {
		return nil, errors.New("account id is required")
	}
	db := config.GetDB()
	var orders []Order
	if err := db.WithContext(ctx).Preload("Items").
		Where("account_id = ? AND shift_date = ?", accountId, shiftDate).
		Order("queue_number").Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

func OrderExists(ctx context.Context, id string) (bool, error) {
	accountId, ok := utils.GetAccountIdFromContext(ctx)
	if !ok || accountId == "" {
		return false, errors.New("account id is required")
	}
	db := config.GetDB()
	var count int64
	if err := db.WithContext(ctx).Model(&Order{}).Where("account_id = ? AND id = ?", accountId, id).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func InsertOrder(ctx context.Context, tx *gorm.DB, order *Order) error {
	return tx.WithContext(ctx).Create(order).Error
}

func SaveOrder(ctx context.Context, tx *gorm.DB, order *Order) error {
	// Items are frozen at creation; only the order row is updated here.
	return tx.WithContext(ctx).Omit("Items").Save(order).Error
}

package models

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

func teaMenu() *MenuItem {
	return &MenuItem{ID: "tea", Name: "Milk Tea", Price: dec("800")}
}

func TestAddToCartMergesIdenticalLines(t *testing.T) {
	cart := AddToCart(nil, teaMenu(), AddToCartOptions{Quantity: 1})
	cart = AddToCart(cart, teaMenu(), AddToCartOptions{Quantity: 2})

	if len(cart) != 1 {
		t.Fatalf("lines = %d, want merged into 1", len(cart))
	}
	if cart[0].Quantity != 3 {
		t.Fatalf("quantity = %d, want 3", cart[0].Quantity)
	}
}

func TestAddToCartSeparateForcesNewLine(t *testing.T) {
	cart := AddToCart(nil, teaMenu(), AddToCartOptions{Quantity: 1})
	cart = AddToCart(cart, teaMenu(), AddToCartOptions{Quantity: 1, Separate: true})

	if len(cart) != 2 {
		t.Fatalf("lines = %d, want 2 (separate)", len(cart))
	}
}

func TestAddToCartNoteNeverMerges(t *testing.T) {
	cart := AddToCart(nil, teaMenu(), AddToCartOptions{Note: "less sugar"})
	cart = AddToCart(cart, teaMenu(), AddToCartOptions{Note: "less sugar"})

	if len(cart) != 2 {
		t.Fatalf("lines = %d, want 2 (noted lines stay distinct)", len(cart))
	}
}

func TestAddToCartDifferentModifiersStayDistinct(t *testing.T) {
	cart := AddToCart(nil, teaMenu(), AddToCartOptions{Modifiers: []string{"hot"}})
	cart = AddToCart(cart, teaMenu(), AddToCartOptions{Modifiers: []string{"iced"}})
	// Modifier order must not matter for merging.
	cart = AddToCart(cart, teaMenu(), AddToCartOptions{Modifiers: []string{"iced"}})

	if len(cart) != 2 {
		t.Fatalf("lines = %d, want 2", len(cart))
	}
}

func TestAddToCartToppingsRaiseUnitPrice(t *testing.T) {
	cart := AddToCart(nil, teaMenu(), AddToCartOptions{
		Quantity: 2,
		Toppings: []Topping{{Name: "Pearls", Price: dec("200")}},
	})

	if !cart[0].UnitPrice.Equal(dec("1000")) {
		t.Fatalf("unit price = %s, want 1000", cart[0].UnitPrice)
	}
	if !CartTotal(cart).Equal(dec("2000")) {
		t.Fatalf("cart total = %s, want 2000", CartTotal(cart))
	}
}

func TestSetCartQuantityZeroRemovesLine(t *testing.T) {
	cart := AddToCart(nil, teaMenu(), AddToCartOptions{Quantity: 2})
	id := cart[0].ID

	cart = SetCartQuantity(cart, id, 5)
	if cart[0].Quantity != 5 {
		t.Fatalf("quantity = %d, want 5", cart[0].Quantity)
	}

	cart = SetCartQuantity(cart, id, 0)
	if len(cart) != 0 {
		t.Fatalf("lines = %d, want 0 after removal", len(cart))
	}
}

func TestToggleCartModifierSetSemantics(t *testing.T) {
	cart := AddToCart(nil, teaMenu(), AddToCartOptions{})
	id := cart[0].ID

	cart = ToggleCartModifier(cart, id, "extra shot")
	if len(cart[0].Modifiers) != 1 {
		t.Fatalf("modifiers = %v", cart[0].Modifiers)
	}
	cart = ToggleCartModifier(cart, id, "extra shot")
	if len(cart[0].Modifiers) != 0 {
		t.Fatalf("modifiers = %v, want toggled off", cart[0].Modifiers)
	}
}

func TestNextQueueNumberCycles(t *testing.T) {
	cases := map[int]int{0: 1, 1: 2, 98: 99, 99: 1}
	for last, want := range cases {
		if got := NextQueueNumber(last); got != want {
			t.Fatalf("NextQueueNumber(%d) = %d, want %d", last, got, want)
		}
	}
}

func TestMaxQueueNumberForShiftIgnoresOtherShifts(t *testing.T) {
	orders := []Order{
		{ShiftDate: "2026-09-01", QueueNumber: 7},
		{ShiftDate: "2026-09-01", QueueNumber: 12},
		{ShiftDate: "2026-08-31", QueueNumber: 90},
	}
	if got := MaxQueueNumberForShift(orders, "2026-09-01"); got != 12 {
		t.Fatalf("max = %d, want 12", got)
	}
	if got := MaxQueueNumberForShift(orders, "2026-09-02"); got != 0 {
		t.Fatalf("max = %d, want 0 for an empty shift", got)
	}
}

func TestOrderStatusTransitions(t *testing.T) {
	cases := []struct {
		from, to OrderStatus
		ok       bool
	}{
		{OrderStatusPending, OrderStatusCooking, true},
		{OrderStatusPending, OrderStatusCompleted, true},
		{OrderStatusCooking, OrderStatusServed, true},
		{OrderStatusServed, OrderStatusCompleted, true},
		{OrderStatusCooking, OrderStatusPending, false},
		{OrderStatusServed, OrderStatusCooking, false},
		{OrderStatusPending, OrderStatusCancelled, true},
		{OrderStatusServed, OrderStatusCancelled, true},
		{OrderStatusCompleted, OrderStatusCancelled, false},
		{OrderStatusCancelled, OrderStatusCooking, false},
		{OrderStatusCompleted, OrderStatusCompleted, false},
	}
	for _, tc := range cases {
		o := Order{Status: tc.from}
		if got := o.CanTransition(tc.to); got != tc.ok {
			t.Fatalf("%s -> %s = %v, want %v", tc.from, tc.to, got, tc.ok)
		}
	}
}

func TestBuildOrderFreezesCartAndTimestamp(t *testing.T) {
	cart := AddToCart(nil, teaMenu(), AddToCartOptions{Quantity: 2})
	now := time.Date(2026, 9, 1, 14, 5, 9, 0, time.UTC)

	// The operator may keep yesterday's shift open past midnight: the
	// timestamp carries the shift date, not the calendar date.
	order := BuildOrder("acct-1", cart, "2026-08-31", OrderStatusPending, 42, now)

	if order.Timestamp != "2026-08-31T14:05:09" {
		t.Fatalf("timestamp = %q", order.Timestamp)
	}
	if order.QueueNumber != 42 {
		t.Fatalf("queue = %d", order.QueueNumber)
	}
	if !order.TotalPrice.Equal(dec("1600")) || !order.NetTotal.Equal(dec("1600")) {
		t.Fatalf("total = %s net = %s", order.TotalPrice, order.NetTotal)
	}
	if order.Items[0].OrderId != order.ID {
		t.Fatal("items not linked to the order")
	}
}

func TestApplyPaymentDerivesNetTotal(t *testing.T) {
	order := Order{TotalPrice: dec("10000")}
	order.ApplyPayment(dec("10000"), dec("2500"), PaymentMethodDelivery, "FoodPanda")

	if !order.NetTotal.Equal(dec("7500")) {
		t.Fatalf("net = %s, want 7500", order.NetTotal)
	}
	if order.PaymentMethod != PaymentMethodDelivery || order.Channel != "FoodPanda" {
		t.Fatalf("payment fields = %s/%s", order.PaymentMethod, order.Channel)
	}
}

func TestTimestampHourParsing(t *testing.T) {
	o := Order{Timestamp: "2026-09-01T13:45:00"}
	if o.TimestampHour() != 13 {
		t.Fatalf("hour = %d, want 13", o.TimestampHour())
	}
	if o.TimestampDate() != "2026-09-01" {
		t.Fatalf("date = %q", o.TimestampDate())
	}
	bad := Order{Timestamp: "garbage"}
	if bad.TimestampHour() != -1 {
		t.Fatalf("hour = %d, want -1 on parse failure", bad.TimestampHour())
	}
}

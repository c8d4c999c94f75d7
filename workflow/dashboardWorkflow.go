package workflow

import (
	"context"
	"sort"
	"time"

	"bitbucket.org/mmdatafocus/pos_backend/models"
	"bitbucket.org/mmdatafocus/pos_backend/utils"
	"github.com/shopspring/decimal"
)

const (
	dashboardHourFirst = 8
	dashboardHourLast  = 20
	dashboardTopItems  = 5
)

type PaymentBucket struct {
	Method   models.PaymentMethod `json:"method"`
	Subtotal decimal.Decimal      `json:"subtotal"`
	Count    int                  `json:"count"`
	OrderIds []string             `json:"order_ids"`
}

type TopItem struct {
	Name     string          `json:"name"`
	Quantity int             `json:"quantity"`
	Subtotal decimal.Decimal `json:"subtotal"`
}

type HourBucket struct {
	Hour  int             `json:"hour"`
	Count int             `json:"count"`
	Sales decimal.Decimal `json:"sales"`
}

type Dashboard struct {
	Date string `json:"date"`

	TodaySales     decimal.Decimal `json:"today_sales"`
	EstimatedCogs  decimal.Decimal `json:"estimated_cogs"`
	DailyFixedCost decimal.Decimal `json:"daily_fixed_cost"`
	NetProfit      decimal.Decimal `json:"net_profit"`
	OrderCount     int             `json:"order_count"`

	Payments []PaymentBucket `json:"payments"`
	TopItems []TopItem       `json:"top_items"`
	// Hourly covers the selling window, one bucket per hour from 8 to 20.
	Hourly []HourBucket `json:"hourly"`

	LowStock []models.InventoryItem `json:"low_stock"`
}

// ProjectDashboard folds one day's orders into the live store view. Sales
// count every non-cancelled order whose calendar date (from the frozen order
// timestamp, not the shift label) matches the target date. Cost of goods is
// an estimate: recipe ingredient cost inflated by waste and promo-loss
// percentages, zero for lines with no surviving menu entry. Net profit also
// carries the day's fixed-cost allocation so the headline number matches what
// the ledger will show once the allocation is posted.
func ProjectDashboard(orders []models.Order, menu []models.MenuItem, snapshot models.InventorySnapshot, cfg *models.FixedCostConfig, date string) *Dashboard {
	dash := &Dashboard{Date: date}

	payments := map[models.PaymentMethod]*PaymentBucket{}
	items := map[string]*TopItem{}
	hours := make([]HourBucket, 0, dashboardHourLast-dashboardHourFirst+1)
	for h := dashboardHourFirst; h <= dashboardHourLast; h++ {
		hours = append(hours, HourBucket{Hour: h})
	}

	for i := range orders {
		order := &orders[i]
		if order.Status == models.OrderStatusCancelled {
			continue
		}
		if order.TimestampDate() != date {
			continue
		}
		dash.OrderCount++
		dash.TodaySales = dash.TodaySales.Add(order.TotalPrice)

		if order.PaymentMethod != "" {
			bucket, ok := payments[order.PaymentMethod]
			if !ok {
				bucket = &PaymentBucket{Method: order.PaymentMethod}
				payments[order.PaymentMethod] = bucket
			}
			bucket.Subtotal = bucket.Subtotal.Add(order.TotalPrice)
			bucket.Count++
			bucket.OrderIds = append(bucket.OrderIds, order.ID)
		}

		if hour := order.TimestampHour(); hour >= dashboardHourFirst && hour <= dashboardHourLast {
			hours[hour-dashboardHourFirst].Count++
			hours[hour-dashboardHourFirst].Sales = hours[hour-dashboardHourFirst].Sales.Add(order.TotalPrice)
		}

		for _, line := range order.Items {
			top, ok := items[line.Name]
			if !ok {
				top = &TopItem{Name: line.Name}
				items[line.Name] = top
			}
			top.Quantity += line.Quantity
			top.Subtotal = top.Subtotal.Add(line.Subtotal())

			dash.EstimatedCogs = dash.EstimatedCogs.Add(estimatedLineCost(line, menu, snapshot))
		}
	}

	for _, fixed := range DailyFixedCosts(cfg, snapshot.Items(), date) {
		dash.DailyFixedCost = dash.DailyFixedCost.Add(fixed.Amount)
	}
	dash.NetProfit = dash.TodaySales.Sub(dash.EstimatedCogs).Sub(dash.DailyFixedCost)

	dash.Payments = make([]PaymentBucket, 0, len(payments))
	for _, method := range []models.PaymentMethod{models.PaymentMethodCash, models.PaymentMethodTransfer, models.PaymentMethodDelivery} {
		if bucket, ok := payments[method]; ok {
			dash.Payments = append(dash.Payments, *bucket)
		}
	}

	dash.TopItems = make([]TopItem, 0, len(items))
	for _, top := range items {
		dash.TopItems = append(dash.TopItems, *top)
	}
	sort.Slice(dash.TopItems, func(i, j int) bool {
		if dash.TopItems[i].Quantity != dash.TopItems[j].Quantity {
			return dash.TopItems[i].Quantity > dash.TopItems[j].Quantity
		}
		return dash.TopItems[i].Name < dash.TopItems[j].Name
	})
	if len(dash.TopItems) > dashboardTopItems {
		dash.TopItems = dash.TopItems[:dashboardTopItems]
	}

	dash.Hourly = hours

	for _, item := range snapshot.Items() {
		if item.IsLowStock() {
			dash.LowStock = append(dash.LowStock, item)
		}
	}
	sort.Slice(dash.LowStock, func(i, j int) bool {
		return dash.LowStock[i].Name < dash.LowStock[j].Name
	})

	return dash
}

func estimatedLineCost(line models.OrderItem, menu []models.MenuItem, snapshot models.InventorySnapshot) decimal.Decimal {
	entry := models.FindMenuItem(menu, line.MenuItemId)
	if entry == nil {
		return decimal.Zero
	}
	unit := entry.IngredientCost(snapshot)
	lossFactor := decimal.NewFromInt(1).Add(
		entry.WastePercent.Add(entry.PromoLossPercent).Div(decimal.NewFromInt(100)))
	return unit.Mul(lossFactor).Mul(decimal.NewFromInt(int64(line.Quantity)))
}

// ProjectDashboardForDate is the DB-backed wrapper.
func ProjectDashboardForDate(ctx context.Context, date string) (*Dashboard, error) {
	if date == "" {
		today, err := utils.ConvertToDate(time.Now(), "")
		if err != nil {
			return nil, err
		}
		date = utils.FormatBusinessDate(today)
	}
	orders, err := models.GetOrdersForShift(ctx, date)
	if err != nil {
		return nil, err
	}
	menu, err := models.GetMenuItems(ctx)
	if err != nil {
		return nil, err
	}
	snapshot, err := models.FetchInventorySnapshot(ctx)
	if err != nil {
		return nil, err
	}
	cfg, err := models.GetFixedCostConfig(ctx)
	if err != nil {
		return nil, err
	}
	return ProjectDashboard(orders, menu, snapshot, cfg, date), nil
}

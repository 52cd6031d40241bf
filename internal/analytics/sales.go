package analytics

import (
	"sort"

	"github.com/matheusmosca/order-inventory-core/internal/domain"
)

// SalesRecord is one order item as a sale. Revenue excludes shipping.
type SalesRecord struct {
	Date        string `json:"date"`
	OrderID     string `json:"order_id"`
	ProductID   int64  `json:"product_id"`
	ProductName string `json:"product_name"`
	Quantity    int    `json:"quantity"`
	Revenue     int64  `json:"revenue"`
}

// TrendPoint is one day of sales.
type TrendPoint struct {
	Date    string `json:"date"`
	Orders  int    `json:"orders"`
	Units   int    `json:"units"`
	Revenue int64  `json:"revenue"`
}

// ProductRank is a product's share of the period's revenue.
type ProductRank struct {
	ProductID   int64   `json:"product_id"`
	ProductName string  `json:"product_name"`
	Quantity    int     `json:"quantity"`
	Revenue     int64   `json:"revenue"`
	SharePct    float64 `json:"share_pct"`
}

// CustomerStat summarizes one customer, identified by name and phone.
// TotalSpend includes shipping.
type CustomerStat struct {
	Name       string `json:"name"`
	Phone      string `json:"phone"`
	Orders     int    `json:"orders"`
	TotalSpend int64  `json:"total_spend"`
}

// Summary holds the headline numbers of the period.
type Summary struct {
	Orders            int     `json:"orders"`
	Revenue           int64   `json:"revenue"`
	AverageOrderValue float64 `json:"average_order_value"`
	Units             int     `json:"units"`
	// GrowthPct compares the last day's revenue with the first day's. It is
	// nil when the period has fewer than two days of sales or the first day
	// has no revenue.
	GrowthPct *float64 `json:"growth_pct,omitempty"`
}

// SalesReport is the full analytics view of a period.
type SalesReport struct {
	From               string         `json:"from,omitempty"`
	To                 string         `json:"to,omitempty"`
	Records            []SalesRecord  `json:"records"`
	Trend              []TrendPoint   `json:"trend"`
	Ranking            []ProductRank  `json:"ranking"`
	Customers          []CustomerStat `json:"customers"`
	RepeatPurchaseRate float64        `json:"repeat_purchase_rate"`
	Summary            Summary        `json:"summary"`
}

type customerKey struct {
	name  string
	phone string
}

func buildSales(from, to string, list []domain.Order) *SalesReport {
	report := &SalesReport{
		From:      from,
		To:        to,
		Records:   []SalesRecord{},
		Trend:     []TrendPoint{},
		Ranking:   []ProductRank{},
		Customers: []CustomerStat{},
	}

	trend := make(map[string]*TrendPoint)
	ranking := make(map[int64]*ProductRank)
	customers := make(map[customerKey]*CustomerStat)

	for _, o := range list {
		if o.Status == domain.StatusCancelled {
			continue
		}
		report.Summary.Orders++

		day, ok := trend[o.Date]
		if !ok {
			day = &TrendPoint{Date: o.Date}
			trend[o.Date] = day
		}
		day.Orders++

		key := customerKey{name: o.CustomerName, phone: o.Phone}
		c, ok := customers[key]
		if !ok {
			c = &CustomerStat{Name: o.CustomerName, Phone: o.Phone}
			customers[key] = c
		}
		c.Orders++
		c.TotalSpend += o.Total

		for _, item := range o.Items {
			report.Records = append(report.Records, SalesRecord{
				Date:        o.Date,
				OrderID:     o.ID,
				ProductID:   item.ProductID,
				ProductName: item.ProductName,
				Quantity:    item.Quantity,
				Revenue:     item.Subtotal,
			})
			day.Units += item.Quantity
			day.Revenue += item.Subtotal
			report.Summary.Units += item.Quantity
			report.Summary.Revenue += item.Subtotal

			r, ok := ranking[item.ProductID]
			if !ok {
				r = &ProductRank{ProductID: item.ProductID, ProductName: item.ProductName}
				ranking[item.ProductID] = r
			}
			r.Quantity += item.Quantity
			r.Revenue += item.Subtotal
		}
	}

	sort.SliceStable(report.Records, func(i, j int) bool {
		return report.Records[i].Date < report.Records[j].Date
	})

	for _, day := range trend {
		report.Trend = append(report.Trend, *day)
	}
	sort.Slice(report.Trend, func(i, j int) bool { return report.Trend[i].Date < report.Trend[j].Date })

	for _, r := range ranking {
		if report.Summary.Revenue > 0 {
			r.SharePct = float64(r.Revenue) / float64(report.Summary.Revenue) * 100
		}
		report.Ranking = append(report.Ranking, *r)
	}
	sort.Slice(report.Ranking, func(i, j int) bool {
		a, b := report.Ranking[i], report.Ranking[j]
		if a.Revenue != b.Revenue {
			return a.Revenue > b.Revenue
		}
		return a.ProductID < b.ProductID
	})

	repeat := 0
	for _, c := range customers {
		if c.Orders > 1 {
			repeat++
		}
		report.Customers = append(report.Customers, *c)
	}
	sort.Slice(report.Customers, func(i, j int) bool {
		a, b := report.Customers[i], report.Customers[j]
		if a.TotalSpend != b.TotalSpend {
			return a.TotalSpend > b.TotalSpend
		}
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return a.Phone < b.Phone
	})
	if len(customers) > 0 {
		report.RepeatPurchaseRate = float64(repeat) / float64(len(customers))
	}

	if report.Summary.Orders > 0 {
		report.Summary.AverageOrderValue = float64(report.Summary.Revenue) / float64(report.Summary.Orders)
	}
	if n := len(report.Trend); n > 1 && report.Trend[0].Revenue > 0 {
		first, last := report.Trend[0].Revenue, report.Trend[n-1].Revenue
		growth := float64(last-first) / float64(first) * 100
		report.Summary.GrowthPct = &growth
	}
	return report
}

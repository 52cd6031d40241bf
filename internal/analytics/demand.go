package analytics

import (
	"sort"

	"github.com/matheusmosca/order-inventory-core/internal/domain"
)

// DemandLine is the quantity needed of one product.
type DemandLine struct {
	ProductID   int64  `json:"product_id"`
	ProductName string `json:"product_name"`
	Quantity    int    `json:"quantity"`
}

// LocationDemand is what one pickup location must be stocked with.
type LocationDemand struct {
	Location string       `json:"location"`
	Products []DemandLine `json:"products"`
	Quantity int          `json:"quantity"`
}

// DemandReport groups a day's pickup demand by location, with grand totals
// per product.
type DemandReport struct {
	Date      string           `json:"date"`
	Locations []LocationDemand `json:"locations"`
	Totals    []DemandLine     `json:"totals"`
}

// demandTally accumulates quantities by product id.
type demandTally map[int64]*DemandLine

func (t demandTally) add(item domain.OrderItem) {
	line, ok := t[item.ProductID]
	if !ok {
		line = &DemandLine{ProductID: item.ProductID, ProductName: item.ProductName}
		t[item.ProductID] = line
	}
	line.Quantity += item.Quantity
}

func (t demandTally) lines() ([]DemandLine, int) {
	out := make([]DemandLine, 0, len(t))
	total := 0
	for _, line := range t {
		out = append(out, *line)
		total += line.Quantity
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProductID < out[j].ProductID })
	return out, total
}

// buildDemand expects orders newest first, so a renamed product is reported
// under its latest snapshot name.
func buildDemand(date string, list []domain.Order) *DemandReport {
	byLocation := make(map[string]demandTally)
	totals := make(demandTally)
	for _, o := range list {
		if !o.IsPickup() || o.Status == domain.StatusCancelled {
			continue
		}
		tally, ok := byLocation[o.Fulfillment.PickupLocation]
		if !ok {
			tally = make(demandTally)
			byLocation[o.Fulfillment.PickupLocation] = tally
		}
		for _, item := range o.Items {
			tally.add(item)
			totals.add(item)
		}
	}

	report := &DemandReport{Date: date, Locations: []LocationDemand{}}
	for location, tally := range byLocation {
		products, qty := tally.lines()
		report.Locations = append(report.Locations, LocationDemand{
			Location: location,
			Products: products,
			Quantity: qty,
		})
	}
	sort.Slice(report.Locations, func(i, j int) bool {
		return report.Locations[i].Location < report.Locations[j].Location
	})
	report.Totals, _ = totals.lines()
	return report
}

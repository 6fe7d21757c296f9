package models

// NotifyEvent identifies which single notification (if any) a product's
// state transition warrants. At most one event is produced per product per
// run; precedence among simultaneously qualifying conditions is decided by
// the notify package.
type NotifyEvent int

const (
	// EventNone means no notification is warranted.
	EventNone NotifyEvent = iota
	// EventPriceDrop fires when the fetched discount meets the configured threshold.
	EventPriceDrop
	// EventLowestPrice fires when the new price undercuts every recorded price.
	EventLowestPrice
	// EventBackInStock fires on an out-of-stock to in-stock transition.
	EventBackInStock
)

// String returns the canonical name of the event.
func (e NotifyEvent) String() string {
	switch e {
	case EventPriceDrop:
		return "price_drop"
	case EventLowestPrice:
		return "lowest_price"
	case EventBackInStock:
		return "back_in_stock"
	default:
		return "none"
	}
}

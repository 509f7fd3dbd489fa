package orderbook

import "github.com/shopspring/decimal"

// PriceLevel is a FIFO queue of orders resting at one price. Links are
// intrusive; an order belongs to at most one level.
type PriceLevel struct {
	Price      decimal.Decimal
	head       *Order
	tail       *Order
	TotalQty   decimal.Decimal
	OrderCount int
}

func newPriceLevel(price decimal.Decimal) *PriceLevel {
	return &PriceLevel{Price: price, TotalQty: decimal.Zero}
}

func (p *PriceLevel) Head() *Order { return p.head }

func (p *PriceLevel) Enqueue(o *Order) {
	if p.head == nil {
		p.head = o
		p.tail = o
	} else {
		p.tail.next = o
		o.prev = p.tail
		p.tail = o
	}
	p.TotalQty = p.TotalQty.Add(o.Remaining())
	p.OrderCount++
}

func (p *PriceLevel) unlink(o *Order) {
	if o.prev != nil {
		o.prev.next = o.next
	} else {
		p.head = o.next
	}
	if o.next != nil {
		o.next.prev = o.prev
	} else {
		p.tail = o.prev
	}
	o.next = nil
	o.prev = nil
	p.TotalQty = p.TotalQty.Sub(o.Remaining())
	p.OrderCount--
}

// drain reduces the level's resting quantity after a fill against the head.
func (p *PriceLevel) drain(qty decimal.Decimal) {
	p.TotalQty = p.TotalQty.Sub(qty)
}

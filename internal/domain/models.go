package domain

import "time"

// Book is a title held in inventory, keyed by ISBN.
type Book struct {
	ISBN   string  `json:"isbn"`
	Title  string  `json:"title"`
	Author string  `json:"author"`
	Price  float64 `json:"price"`
	Stock  int     `json:"stock"`
}

// Customer is a library customer who can place orders.
type Customer struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Order is an immutable purchase record owned by a customer.
type Order struct {
	ID         int64         `json:"order_id"`
	CustomerID int64         `json:"customer_id"`
	CreatedAt  time.Time     `json:"created_at"`
	Items      []OrderDetail `json:"items"`
}

// OrderItem is a single line of a persisted order.
type OrderItem struct {
	ID      int64  `json:"id"`
	OrderID int64  `json:"order_id"`
	ISBN    string `json:"isbn"`
	Qty     int    `json:"qty"`
}

// OrderDetail is an order line joined with its book.
type OrderDetail struct {
	Title string  `json:"title"`
	ISBN  string  `json:"isbn"`
	Qty   int     `json:"qty"`
	Price float64 `json:"price"`
}

// OrderLine is a requested order line. The book is resolved by ISBN when set,
// otherwise by title.
type OrderLine struct {
	ISBN  string `json:"isbn,omitempty" validate:"required_without=Title"`
	Title string `json:"title,omitempty"`
	Qty   int    `json:"qty" validate:"gt=0"`
}

// Label returns the identifier used in warnings for the line.
func (l OrderLine) Label() string {
	if l.ISBN != "" {
		return l.ISBN
	}
	return l.Title
}

// OrderedItem describes a line that was committed as part of an order.
type OrderedItem struct {
	Title          string `json:"title"`
	ISBN           string `json:"isbn"`
	OrderedQty     int    `json:"ordered_qty"`
	RemainingStock int    `json:"remaining_stock"`
}

// OrderReceipt is returned when an order is committed.
type OrderReceipt struct {
	OrderID    int64         `json:"order_id"`
	CustomerID int64         `json:"customer_id"`
	Processed  []OrderedItem `json:"items"`
	Warnings   []string      `json:"warnings"`
}

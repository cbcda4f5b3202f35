package domain

import "time"

// Channel values seen in order history.
const (
	ChannelOnline = "online"
	ChannelMobile = "mobile"
	ChannelStore  = "store"
)

type OrderRecord struct {
	ID             string     `gorm:"column:id;primaryKey" json:"id"`
	TenantID       string     `gorm:"column:tenant_id;index" json:"tenant_id"`
	CustomerID     string     `gorm:"column:customer_id;index" json:"customer_id"`
	PlacedAt       time.Time  `gorm:"column:placed_at" json:"placed_at"`
	TotalAmount    float64    `gorm:"column:total_amount;type:numeric" json:"total_amount"`
	DiscountAmount float64    `gorm:"column:discount_amount;type:numeric" json:"discount_amount"`
	RefundAmount   float64    `gorm:"column:refund_amount;type:numeric" json:"refund_amount"`
	Channel        string     `gorm:"column:channel" json:"channel"`
	Items          []LineItem `gorm:"foreignKey:OrderID;references:ID" json:"items"`
}

func (OrderRecord) TableName() string {
	return "orders"
}

type LineItem struct {
	ID        uint    `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	OrderID   string  `gorm:"column:order_id;index" json:"order_id"`
	ProductID string  `gorm:"column:product_id" json:"product_id"`
	Category  string  `gorm:"column:category" json:"category"`
	Quantity  int     `gorm:"column:quantity" json:"quantity"`
	UnitPrice float64 `gorm:"column:unit_price;type:numeric" json:"unit_price"`
}

func (LineItem) TableName() string {
	return "order_items"
}

// CustomerHistory is every order a customer placed, oldest first.
type CustomerHistory struct {
	CustomerID string        `json:"customer_id"`
	Orders     []OrderRecord `json:"orders"`
}

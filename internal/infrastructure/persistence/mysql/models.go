package mysql

import (
	"time"
)

// Models carry the gorm tags; the domain entities stay free of them and the
// repositories convert between the two.

// OrganizationModel maps the organizations table.
type OrganizationModel struct {
	ID        uint   `gorm:"primaryKey"`
	Slug      string `gorm:"uniqueIndex;size:100;not null"`
	Name      string `gorm:"size:200;not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (OrganizationModel) TableName() string {
	return "organizations"
}

// ProductModel holds the ledger counters. A NULL total_inventory is unlimited.
type ProductModel struct {
	ID                uint   `gorm:"primaryKey"`
	EventYearID       uint   `gorm:"index:idx_products_catalog;not null"`
	Name              string `gorm:"size:200;not null"`
	Type              string `gorm:"size:32;not null;default:other"`
	Price             int64  `gorm:"not null;comment:cents"`
	TotalInventory    *int
	SoldCount         int    `gorm:"not null;default:0"`
	ReservedCount     int    `gorm:"not null;default:0"`
	MaxQuantityPerOrg *int
	Status            string `gorm:"index:idx_products_catalog;size:16;not null;default:active"`
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

func (ProductModel) TableName() string {
	return "products"
}

// OrderModel maps the orders table.
type OrderModel struct {
	ID             uint                `gorm:"primaryKey"`
	OrderNo        string              `gorm:"uniqueIndex;size:32;not null"`
	OrganizationID uint                `gorm:"index:idx_orders_org_year;not null"`
	EventYearID    uint                `gorm:"index:idx_orders_org_year;not null"`
	Status         string              `gorm:"index;size:32;not null;default:pending"`
	Total          int64               `gorm:"not null;comment:cents after discount"`
	Discount       int64               `gorm:"not null;default:0"`
	CouponID       *uint
	Items          []OrderItemModel    `gorm:"foreignKey:OrderID"`
	Payments       []OrderPaymentModel `gorm:"foreignKey:OrderID"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (OrderModel) TableName() string {
	return "orders"
}

// OrderItemModel keeps the unit price at checkout.
type OrderItemModel struct {
	ID        uint  `gorm:"primaryKey"`
	OrderID   uint  `gorm:"index;not null"`
	ProductID uint  `gorm:"index;not null"`
	Quantity  int   `gorm:"not null"`
	UnitPrice int64 `gorm:"not null"`
}

func (OrderItemModel) TableName() string {
	return "order_items"
}

// OrderPaymentModel: the unique intent id is the last guard against recording
// one processor payment twice.
type OrderPaymentModel struct {
	ID                    uint   `gorm:"primaryKey"`
	OrderID               uint   `gorm:"index;not null"`
	StripePaymentIntentID string `gorm:"uniqueIndex;size:255;not null"`
	Status                string `gorm:"size:16;not null"`
	Amount                int64  `gorm:"not null"`
	CreatedAt             time.Time
}

func (OrderPaymentModel) TableName() string {
	return "order_payments"
}

// CompanyTeamModel maps the company_teams table.
type CompanyTeamModel struct {
	ID             uint   `gorm:"primaryKey"`
	OrganizationID uint   `gorm:"index:idx_teams_org_year;not null"`
	EventYearID    uint   `gorm:"index:idx_teams_org_year;not null"`
	OrderID        *uint  `gorm:"index"`
	Name           string `gorm:"size:100;not null"`
	CreatedAt      time.Time
}

func (CompanyTeamModel) TableName() string {
	return "company_teams"
}

// CouponModel maps the coupons table.
type CouponModel struct {
	ID        uint   `gorm:"primaryKey"`
	Code      string `gorm:"uniqueIndex;size:64;not null"`
	Amount    int64  `gorm:"not null"`
	MaxUses   *int
	UsedCount int  `gorm:"not null;default:0"`
	Active    bool `gorm:"not null;default:true"`
	ExpiresAt *time.Time
}

func (CouponModel) TableName() string {
	return "coupons"
}

// TentPurchaseTrackingModel is unique per (organization, event year, tent product).
type TentPurchaseTrackingModel struct {
	ID                uint `gorm:"primaryKey"`
	OrganizationID    uint `gorm:"uniqueIndex:uk_tent_tracking;not null"`
	EventYearID       uint `gorm:"uniqueIndex:uk_tent_tracking;not null"`
	TentProductID     uint `gorm:"uniqueIndex:uk_tent_tracking;not null"`
	QuantityPurchased int  `gorm:"not null;default:0"`
	MaxAllowed        int  `gorm:"not null;default:0"`
	RemainingAllowed  int  `gorm:"not null;default:0"`
	CompanyTeamCount  int  `gorm:"not null;default:0"`
	UpdatedAt         time.Time
}

func (TentPurchaseTrackingModel) TableName() string {
	return "tent_purchase_tracking"
}

package upstream

import "time"

// Order statuses as the backend reports them.
const (
	StatusPending     = "pending"
	StatusInProgress  = "in_progress"
	StatusDelivered   = "delivered"
	StatusCancelled   = "cancelled"
	StatusRescheduled = "rescheduled"
)

// Statuses lists every order status, in display order.
var Statuses = []string{StatusPending, StatusInProgress, StatusDelivered, StatusCancelled, StatusRescheduled}

// LineItem is a single product line on an order.
type LineItem struct {
	Title    string `json:"title"`
	Quantity int    `json:"quantity"`
}

// Handler records the staff member who last acted on an order.
type Handler struct {
	Name      string    `json:"name"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Order is a delivery order as the backend serializes it.
// Status and HandledBy change over time; everything else is fixed at creation.
type Order struct {
	ID            string     `json:"_id"`
	OrderNumber   string     `json:"order_number"`
	CreatedAt     time.Time  `json:"created_at"`
	CustomerName  string     `json:"customer_full_name"`
	CustomerPhone string     `json:"customer_phone"`
	Address       string     `json:"full_address"`
	LineItems     []LineItem `json:"line_items"`
	Total         float64    `json:"total"`
	Status        string     `json:"status"`
	HandledBy     *Handler   `json:"handled_by,omitempty"`
}

// Variant is a sellable variation of a product.
type Variant struct {
	Title             string `json:"title"`
	SKU               string `json:"sku"`
	InventoryQuantity int    `json:"inventory_quantity"`
}

// Product is a catalog entry. Read-only from the deck's perspective.
type Product struct {
	ID             string    `json:"_id"`
	Title          string    `json:"title"`
	ProductType    string    `json:"product_type"`
	Vendor         string    `json:"vendor"`
	Image          string    `json:"image"`
	TotalInventory int       `json:"total_inventory"`
	Variants       []Variant `json:"variants"`
	Tags           []string  `json:"tags"`
	Price          float64   `json:"price"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// ProductPage is one page of the product listing.
type ProductPage struct {
	Products   []Product `json:"products"`
	Total      int       `json:"total"`
	TotalPages int       `json:"totalPages"`
}

// User is the authenticated account profile.
type User struct {
	ID    string `json:"_id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Admin bool   `json:"is_admin"`
}

// LoginResult is the response to a login or register call.
type LoginResult struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

// StatusCounts carries per-status order totals plus the grand total.
type StatusCounts struct {
	Total       int `json:"total"`
	Pending     int `json:"pending"`
	InProgress  int `json:"in_progress"`
	Delivered   int `json:"delivered"`
	Cancelled   int `json:"cancelled"`
	Rescheduled int `json:"rescheduled"`
}

// Revenue is a backend-computed revenue figure with display formatting.
type Revenue struct {
	Total     float64 `json:"total"`
	Formatted string  `json:"formatted"`
}

// TopHandler is one row of the busiest-handlers leaderboard.
type TopHandler struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// StatsReport is the admin dashboard aggregate payload. All aggregation
// happens server-side; the deck only renders it.
type StatsReport struct {
	Stats        StatusCounts `json:"stats"`
	Revenue      Revenue      `json:"revenue"`
	TopHandlers  []TopHandler `json:"topHandlers"`
	RecentOrders []Order      `json:"recentOrders"`
}

// DayBreakdown is one bucket of a per-user time series.
type DayBreakdown struct {
	Date      string `json:"date"`
	Delivered int    `json:"delivered"`
	Cancelled int    `json:"cancelled"`
	Total     int    `json:"total"`
}

// UserStatsReport is the per-user detailed statistics payload.
type UserStatsReport struct {
	UserName       string         `json:"userName"`
	Summary        StatusCounts   `json:"summary"`
	DailyBreakdown []DayBreakdown `json:"dailyBreakdown"`
	RecentOrders   []Order        `json:"recentOrders"`
}

// OrderQuery selects a slice of the caller's own orders.
type OrderQuery struct {
	Status    string
	StartDate string // YYYY-MM-DD, empty for no bound
	EndDate   string
	Sort      string
	Limit     int
	Skip      int
}

// ProductQuery selects one catalog page.
type ProductQuery struct {
	Search string
	Sort   string
	Order  string // "asc" or "desc"
	Limit  int
	Skip   int
}

package internal

import "time"

type ItemSource string

const (
	SourceEmailText      ItemSource = "email_text"
	SourceEmailHTMLTable ItemSource = "email_html_table"
	SourceXLSX           ItemSource = "xlsx"
	SourcePDF            ItemSource = "pdf"
)

// Product is one catalog entry. Products are immutable once a catalog
// snapshot is built; match results reference them, they never own them.
type Product struct {
	SKU         string   `json:"sku"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Aliases     []string `json:"aliases,omitempty"`
	Price       float64  `json:"price"`
	Stock       int      `json:"stock"`
	MinOrderQty int      `json:"minOrderQty"`
}

// CandidateItem is an extracted but still unresolved order line.
// Qty 0 marks a quantity token that could not be parsed; a line with a
// description and no quantity token at all defaults to 1.
type CandidateItem struct {
	LineNo      int        `json:"lineNo"`
	Source      ItemSource `json:"source"`
	RawLine     string     `json:"rawLine"`
	Description string     `json:"description"`
	Qty         int        `json:"qty"`
	UnitHint    *string    `json:"unitHint,omitempty"`
}

type MatchState string

const (
	MatchResolved  MatchState = "RESOLVED"
	MatchAmbiguous MatchState = "AMBIGUOUS"
	MatchUnmatched MatchState = "UNMATCHED"
)

type MatchCandidate struct {
	SKU   string  `json:"sku"`
	Name  string  `json:"name"`
	Score float64 `json:"score"`
}

// MatchResult is immutable once produced. Candidates hold every product at
// or above the minimum score, best first, ties broken by ascending SKU.
type MatchResult struct {
	Item       CandidateItem    `json:"item"`
	State      MatchState       `json:"state"`
	Best       *Product         `json:"best,omitempty"`
	Candidates []MatchCandidate `json:"candidates"`
}

type ItemStatus string

const (
	StatusValid             ItemStatus = "VALID"
	StatusBelowMinimumOrder ItemStatus = "BELOW_MIN_ORDER"
	StatusInsufficientStock ItemStatus = "INSUFFICIENT_STOCK"
	StatusAmbiguous         ItemStatus = "AMBIGUOUS"
	StatusUnmatched         ItemStatus = "UNMATCHED"
)

// Severity orders statuses for worst-case aggregation on an Order.
func (s ItemStatus) Severity() int {
	switch s {
	case StatusValid:
		return 0
	case StatusBelowMinimumOrder:
		return 1
	case StatusInsufficientStock:
		return 2
	case StatusAmbiguous:
		return 3
	case StatusUnmatched:
		return 4
	default:
		return 5
	}
}

// ValidationOutcome is the per-line result of matching plus business-rule
// checks. Catalog-derived fields are nil unless the line resolved.
type ValidationOutcome struct {
	Status        ItemStatus       `json:"status"`
	RequestedName string           `json:"requestedName"`
	RequestedQty  int              `json:"requestedQty"`
	SKU           *string          `json:"sku"`
	MatchedName   *string          `json:"matchedName"`
	Stock         *int             `json:"stock,omitempty"`
	MinOrderQty   *int             `json:"minOrderQty,omitempty"`
	Price         *float64         `json:"price,omitempty"`
	LineTotal     *float64         `json:"lineTotal,omitempty"`
	MatchScore    float64          `json:"matchScore"`
	Alternatives  []MatchCandidate `json:"alternatives,omitempty"`
	Issue         *string          `json:"issue,omitempty"`
}

type Urgency string

const (
	UrgencyNormal Urgency = "NORMAL"
	UrgencyMedium Urgency = "MEDIUM"
	UrgencyHigh   Urgency = "HIGH"
)

// OrderDetails is the header metadata extracted from an email body.
// Anything the extractor cannot confidently find stays nil.
type OrderDetails struct {
	DeliveryDate    *time.Time `json:"deliveryDate,omitempty"`
	DeliveryDateRaw *string    `json:"deliveryDateRaw,omitempty"`
	ShippingAddress *string    `json:"shippingAddress,omitempty"`
	CustomerName    *string    `json:"customerName,omitempty"`
	Notes           *string    `json:"notes,omitempty"`
	Urgency         Urgency    `json:"urgency"`
}

// Order is a fully resolved intake result. Merging builds a new Order and
// never mutates its inputs. SourceAddresses/SourceCustomers list every
// distinct value seen across merged inputs so callers can spot conflicts.
type Order struct {
	ID              string              `json:"id"`
	Items           []ValidationOutcome `json:"items"`
	DeliveryDate    *time.Time          `json:"deliveryDate,omitempty"`
	ShippingAddress *string             `json:"shippingAddress,omitempty"`
	CustomerName    *string             `json:"customerName,omitempty"`
	Notes           *string             `json:"notes,omitempty"`
	Urgency         Urgency             `json:"urgency"`
	Status          ItemStatus          `json:"status"`
	TotalPrice      float64             `json:"totalPrice"`
	TotalItems      int                 `json:"totalItems"`
	HasIssues       bool                `json:"hasIssues"`
	SourceAddresses []string            `json:"sourceAddresses,omitempty"`
	SourceCustomers []string            `json:"sourceCustomers,omitempty"`
}

type EmailRow struct {
	ID         int
	Provider   string
	MessageID  string
	Subject    string
	Sender     string
	ReceivedAt string
	Hash       string
	Status     string
	RawRef     string
}

type FetchedMailMessage struct {
	Provider   string
	MessageID  string
	Subject    string
	From       string
	ReceivedAt string
	Raw        []byte
}

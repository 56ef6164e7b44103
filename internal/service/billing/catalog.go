package billing

import "github.com/oggyb/tembichat/internal/db"

const currency = "ZAR"

// Plan is a purchasable tier and the quota grant it applies on confirmation.
type Plan struct {
	ID       db.Plan  `json:"id"`
	Name     string   `json:"name"`
	Price    int      `json:"price"`
	Currency string   `json:"currency"`
	Features []string `json:"features"`

	MessageGrant int `json:"messageGrant"`
	UploadGrant  int `json:"imageUploadGrant"`
}

var catalog = []Plan{
	{
		ID: db.PlanBasic, Name: "Basic", Price: 50, Currency: currency,
		Features:     []string{"100 messages per month", "20 image uploads", "Unlimited likes", "Rewind last swipe"},
		MessageGrant: 100, UploadGrant: 20,
	},
	{
		ID: db.PlanPlus, Name: "Plus", Price: 100, Currency: currency,
		Features:     []string{"300 messages per month", "50 image uploads", "Boost your profile", "Super likes", "Priority support"},
		MessageGrant: 300, UploadGrant: 50,
	},
	{
		ID: db.PlanPro, Name: "Pro", Price: 300, Currency: currency,
		Features: []string{
			"Unlimited messages", "Unlimited image uploads", "See who liked you",
			"Read receipts", "Advanced filters", "Incognito mode",
		},
		MessageGrant: db.Unlimited, UploadGrant: db.Unlimited,
	},
}

// LookupPlan finds a purchasable plan by id. The free tier is not for sale.
func LookupPlan(id db.Plan) (Plan, bool) {
	for _, p := range catalog {
		if p.ID == id {
			return p, true
		}
	}
	return Plan{}, false
}

type BankDetails struct {
	BankName      string `json:"bankName"`
	AccountNumber string `json:"accountNumber"`
	BranchCode    string `json:"branchCode"`
}

type PaymentOption struct {
	ID             db.PaymentMethod `json:"id"`
	Name           string           `json:"name"`
	Description    string           `json:"description"`
	ProcessingTime string           `json:"processingTime"`
	BankDetails    *BankDetails     `json:"bankDetails,omitempty"`
}

// Package plan holds the immutable plan and credit-package catalog. Plans
// are configuration: looked up by the authorizer and reconciler, never
// mutated by the ledger.
package plan

// Plan defines the entitlement limits attached to a subscription tier
type Plan struct {
	ID                  string `json:"id"`
	Name                string `json:"name"`
	PeriodicCreditGrant int64  `json:"periodic_credit_grant"` // Credits granted each billing period
	CreditLimit         int64  `json:"credit_limit"`          // Max credits spendable per billing period
	APICallLimit        int64  `json:"api_call_limit"`        // Max usage entries per billing period
}

// Package is a one-time credit purchase option. Price is in cents.
type Package struct {
	ID      string `json:"id"`
	Credits int64  `json:"credits"`
	Price   int64  `json:"price"`
}

// DefaultPlanID is assumed for accounts without an active subscription
const DefaultPlanID = "free"

var plans = map[string]Plan{
	"free":       {ID: "free", Name: "Free", PeriodicCreditGrant: 100, CreditLimit: 100, APICallLimit: 1000},
	"starter":    {ID: "starter", Name: "Starter", PeriodicCreditGrant: 500, CreditLimit: 500, APICallLimit: 5000},
	"pro":        {ID: "pro", Name: "Pro", PeriodicCreditGrant: 2000, CreditLimit: 2000, APICallLimit: 25000},
	"enterprise": {ID: "enterprise", Name: "Enterprise", PeriodicCreditGrant: 10000, CreditLimit: 10000, APICallLimit: 100000},
}

var packages = map[string]Package{
	"small":  {ID: "small", Credits: 100, Price: 499},
	"medium": {ID: "medium", Credits: 500, Price: 1999},
	"large":  {ID: "large", Credits: 2000, Price: 6999},
	"xlarge": {ID: "xlarge", Credits: 5000, Price: 14999},
}

// Lookup returns the plan for the given id, falling back to the free plan
// for unknown ids so limit checks always have a defined answer
func Lookup(planID string) Plan {
	if p, ok := plans[planID]; ok {
		return p
	}
	return plans[DefaultPlanID]
}

// Exists reports whether planID names a known plan
func Exists(planID string) bool {
	_, ok := plans[planID]
	return ok
}

// PackageByID returns the credit package for the given id
func PackageByID(packageID string) (Package, bool) {
	p, ok := packages[packageID]
	return p, ok
}

package catalog

import id "vendo/pkg/domain"

// Module codes shipped with the product. Stores, packages and role
// grants all reference these codes; adding a module here without a
// matching role-grant seed row leaves it deny-by-default.
const (
	ModulePOS        id.ModuleCode = "pos"
	ModuleProducts   id.ModuleCode = "products"
	ModuleInventory  id.ModuleCode = "inventory"
	ModulePurchasing id.ModuleCode = "purchasing"
	ModuleCustomers  id.ModuleCode = "customers"
	ModuleSuppliers  id.ModuleCode = "suppliers"
	ModuleAccounting id.ModuleCode = "accounting"
	ModuleReports    id.ModuleCode = "reports"
	ModuleHR         id.ModuleCode = "hr"
	ModuleSettings   id.ModuleCode = "settings"
)

// DefaultModules is the built-in catalog.
func DefaultModules() []Module {
	return []Module{
		{Code: ModulePOS, Name: "Point of Sale", Description: "Register sales, returns and shift management"},
		{Code: ModuleProducts, Name: "Products", Description: "Product catalog, variants and pricing"},
		{Code: ModuleInventory, Name: "Inventory", Description: "Stock levels, adjustments and transfers"},
		{Code: ModulePurchasing, Name: "Purchasing", Description: "Purchase orders and goods receipts"},
		{Code: ModuleCustomers, Name: "Customers", Description: "Customer directory and loyalty"},
		{Code: ModuleSuppliers, Name: "Suppliers", Description: "Supplier directory and terms"},
		{Code: ModuleAccounting, Name: "Accounting", Description: "Ledger, journals and tax summaries"},
		{Code: ModuleReports, Name: "Reports", Description: "Sales and stock reporting"},
		{Code: ModuleHR, Name: "HR", Description: "Staff records and attendance"},
		{Code: ModuleSettings, Name: "Settings", Description: "Tenant configuration"},
	}
}

// DefaultCategories maps retail verticals to recommended modules.
func DefaultCategories() []BusinessCategory {
	return []BusinessCategory{
		{
			Code: "grocery",
			Name: "Grocery & Minimart",
			Recommended: []Recommendation{
				{Module: ModulePOS, Required: true, Priority: 1},
				{Module: ModuleProducts, Required: true, Priority: 2},
				{Module: ModuleInventory, Required: true, Priority: 3},
				{Module: ModulePurchasing, Required: false, Priority: 4},
				{Module: ModuleSuppliers, Required: false, Priority: 5},
			},
		},
		{
			Code: "fashion",
			Name: "Fashion & Apparel",
			Recommended: []Recommendation{
				{Module: ModulePOS, Required: true, Priority: 1},
				{Module: ModuleProducts, Required: true, Priority: 2},
				{Module: ModuleInventory, Required: true, Priority: 3},
				{Module: ModuleCustomers, Required: false, Priority: 4},
				{Module: ModuleReports, Required: false, Priority: 5},
			},
		},
		{
			Code: "fnb",
			Name: "Food & Beverage",
			Recommended: []Recommendation{
				{Module: ModulePOS, Required: true, Priority: 1},
				{Module: ModuleProducts, Required: true, Priority: 2},
				{Module: ModulePurchasing, Required: false, Priority: 3},
				{Module: ModuleHR, Required: false, Priority: 4},
			},
		},
		{
			Code: "electronics",
			Name: "Electronics & Gadgets",
			Recommended: []Recommendation{
				{Module: ModulePOS, Required: true, Priority: 1},
				{Module: ModuleProducts, Required: true, Priority: 2},
				{Module: ModuleInventory, Required: true, Priority: 3},
				{Module: ModuleAccounting, Required: false, Priority: 4},
				{Module: ModuleReports, Required: false, Priority: 5},
			},
		},
	}
}

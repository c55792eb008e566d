package models

const (
	CategorySalary        = "salary"
	CategoryFreelance     = "freelance"
	CategoryInvestments   = "investments"
	CategoryBusiness      = "business"
	CategoryRental        = "rental"
	CategoryOtherIncome   = "other-income"
	CategoryHousing       = "housing"
	CategoryTransport     = "transportation"
	CategoryGroceries     = "groceries"
	CategoryUtilities     = "utilities"
	CategoryEntertainment = "entertainment"
	CategoryFood          = "food"
	CategoryShopping      = "shopping"
	CategoryHealthcare    = "healthcare"
	CategoryEducation     = "education"
	CategoryPersonal      = "personal"
	CategoryTravel        = "travel"
	CategoryInsurance     = "insurance"
	CategoryGifts         = "gifts"
	CategoryBills         = "bills"
	CategoryOtherExpense  = "other-expense"
)

// CategoryRange bounds the amounts generated for sample data.
type CategoryRange struct {
	Name string
	Min  float64
	Max  float64
}

var (
	incomeCategories = []CategoryRange{
		{Name: CategorySalary, Min: 5000, Max: 8000},
		{Name: CategoryFreelance, Min: 1000, Max: 3000},
		{Name: CategoryInvestments, Min: 500, Max: 2000},
		{Name: CategoryOtherIncome, Min: 100, Max: 1000},
	}

	expenseCategories = []CategoryRange{
		{Name: CategoryHousing, Min: 1000, Max: 2000},
		{Name: CategoryTransport, Min: 100, Max: 500},
		{Name: CategoryGroceries, Min: 200, Max: 600},
		{Name: CategoryUtilities, Min: 100, Max: 300},
		{Name: CategoryEntertainment, Min: 50, Max: 200},
		{Name: CategoryFood, Min: 50, Max: 150},
		{Name: CategoryShopping, Min: 100, Max: 500},
		{Name: CategoryHealthcare, Min: 100, Max: 1000},
		{Name: CategoryEducation, Min: 200, Max: 1000},
		{Name: CategoryTravel, Min: 500, Max: 2000},
	}
)

// IncomeCategories returns the income categories with their sample ranges
func IncomeCategories() []CategoryRange {
	return incomeCategories
}

// ExpenseCategories returns the expense categories with their sample ranges
func ExpenseCategories() []CategoryRange {
	return expenseCategories
}

// AllCategories returns all valid category constants
func AllCategories() []string {
	return []string{
		CategorySalary, CategoryFreelance, CategoryInvestments, CategoryBusiness,
		CategoryRental, CategoryOtherIncome, CategoryHousing, CategoryTransport,
		CategoryGroceries, CategoryUtilities, CategoryEntertainment, CategoryFood,
		CategoryShopping, CategoryHealthcare, CategoryEducation, CategoryPersonal,
		CategoryTravel, CategoryInsurance, CategoryGifts, CategoryBills,
		CategoryOtherExpense,
	}
}

// IsValidCategory checks if a category string is valid
func IsValidCategory(category string) bool {
	for _, validCategory := range AllCategories() {
		if category == validCategory {
			return true
		}
	}
	return false
}

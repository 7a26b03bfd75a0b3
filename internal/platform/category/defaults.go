package category

// Defaults are shared by every user and seeded at startup.
var Defaults = []struct {
	Name        string
	Description string
}{
	{"Salary", "Regular employment income"},
	{"Freelance", "Contract and side project income"},
	{"Investments", "Dividends, interest and capital gains"},
	{"Gifts", "Money received or given as gifts"},
	{"Food", "Restaurants, cafes and takeaway"},
	{"Groceries", "Supermarket and household supplies"},
	{"Rent", "Rent and housing payments"},
	{"Utilities", "Electricity, water, gas and internet"},
	{"Transport", "Fuel, public transport and cabs"},
	{"Health", "Medical bills, medicines and insurance"},
	{"Entertainment", "Movies, events and subscriptions"},
	{"Shopping", "Clothing, electronics and other purchases"},
	{"Education", "Courses, books and tuition"},
	{"Travel", "Flights, hotels and holidays"},
	{"Other", "Anything that does not fit elsewhere"},
}

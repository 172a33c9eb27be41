package config

// Default paths and circulation policy constants
const (
	// DefaultDatabasePath is the default path for the main application database
	DefaultDatabasePath = "./libcirc.db"

	// DefaultPickupWindowDays is how far after the reservation date a pickup may be scheduled
	DefaultPickupWindowDays = 3

	// DefaultLoanPeriodDays is the due period applied when a reservation is converted to a borrow
	DefaultLoanPeriodDays = 7
)

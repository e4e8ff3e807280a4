package catalog

import "github.com/shopspring/decimal"

// DemoBooks is the starter inventory used by the demo driver and by
// seed.demo in the service.
func DemoBooks() []Book {
	return []Book{
		{ID: 1, Title: "Harry Potter", Author: "J.K. Rowling", Quantity: 10, Price: decimal.RequireFromString("49.99")},
		{ID: 2, Title: "To Kill a Mockingbird", Author: "Harper Lee", Quantity: 5, Price: decimal.RequireFromString("29.99")},
		{ID: 3, Title: "1984", Author: "George Orwell", Quantity: 20, Price: decimal.RequireFromString("19.99")},
	}
}

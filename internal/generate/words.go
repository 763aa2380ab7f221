package generate

var firstNames = []string{
	"James", "Mary", "John", "Patricia", "Robert", "Jennifer", "Michael", "Linda",
	"William", "Elizabeth", "David", "Barbara", "Richard", "Susan", "Joseph", "Jessica",
	"Thomas", "Sarah", "Charles", "Karen", "Amara", "Kenji", "Priya", "Mateo",
}

var lastNames = []string{
	"Smith", "Johnson", "Williams", "Brown", "Jones", "Garcia", "Miller", "Davis",
	"Rodriguez", "Martinez", "Hernandez", "Lopez", "Wilson", "Anderson", "Taylor",
	"Thomas", "Moore", "Jackson", "Martin", "Lee", "Okafor", "Tanaka", "Patel", "Silva",
}

var emailDomains = []string{"example.com", "example.org", "mail.test", "shop.example"}

var countries = []any{
	"United States", "United Kingdom", "Canada", "Germany", "France", "Spain",
	"Italy", "Netherlands", "Brazil", "Japan", "India", "Nigeria", "Australia",
}

var categories = []string{
	"Electronics", "Clothing", "Books", "Home & Garden", "Sports & Outdoors",
	"Toys & Games", "Food & Beverage", "Health & Beauty", "Automotive",
	"Office Supplies", "Furniture", "Jewelry", "Pet Supplies", "Apparel",
}

var productAdjectives = []string{
	"Ergonomic", "Rustic", "Sleek", "Handcrafted", "Refined", "Practical",
	"Incredible", "Awesome", "Small", "Gorgeous", "Intelligent", "Licensed",
}

var productNouns = []string{
	"Chair", "Keyboard", "Shoes", "Lamp", "Table", "Gloves", "Wallet",
	"Backpack", "Towels", "Bottle", "Mouse", "Hat", "Watch", "Blender",
}

var orderStatuses = []any{"new", "processing", "shipped", "cancelled", "returned"}

var shippingCountries = []any{"US", "UK", "CANADA", "EUROPE", "OTHER"}

var campaigns = []any{
	"Summer Sale ", "Black Friday Blitz", "Customer Acquisition", "Flash Friday",
	"Brand Refresh", "Holiday Special", "Loyalty Rewards", "Social Media Blast",
	"Q1 2024 Growth",
}

var paymentMethods = []any{"card", "paypal", "bank", "apple_pay"}

package entities

// Identity is the authenticated caller of an operation.
type Identity struct {
	ID      string
	IsAdmin bool
}

func (i Identity) IsAnonymous() bool {
	return i.ID == ""
}

// Product is what the catalog reports about a product at order-creation time.
type Product struct {
	ID        string
	Name      string
	Price     Money
	Available bool
}

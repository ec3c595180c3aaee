package model

// Contexts are the board columns, in display order.
var Contexts = []string{
	"Leadership",
	"Ops Oversight",
	"Creative Work",
	"Communication",
	"Finance/Admin",
	"Sales & Clients",
	"Systems & Planning",
}

// IsContext reports whether s is one of the board columns.
func IsContext(s string) bool {
	for _, c := range Contexts {
		if c == s {
			return true
		}
	}
	return false
}

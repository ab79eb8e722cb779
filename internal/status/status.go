package status

// Status is the internal order status. The set is fixed for v0.1; there is
// no catalog in the database.
type Status string

const (
	Created       Status = "CREATED"
	Paid          Status = "PAID"
	ReadyForPrint Status = "READY_FOR_PRINT"
	Printed       Status = "PRINTED"
	ReadyForPTT   Status = "READY_FOR_PTT"
	Shipped       Status = "SHIPPED"
	Cancelled     Status = "CANCELLED"
)

// allowedTransitions maps a status to the statuses reachable from it.
// SHIPPED and CANCELLED are terminal.
var allowedTransitions = map[Status][]Status{
	Created:       {Paid, Cancelled},
	Paid:          {ReadyForPrint, Cancelled},
	ReadyForPrint: {Printed, Cancelled},
	Printed:       {ReadyForPTT},
	ReadyForPTT:   {Shipped},
	Shipped:       {},
	Cancelled:     {},
}

// IsValidTransition reports whether from -> to is allowed. Unknown statuses
// fail closed.
func IsValidTransition(from, to Status) bool {
	for _, s := range allowedTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Known reports whether s is part of the fixed status set.
func Known(s Status) bool {
	_, ok := allowedTransitions[s]
	return ok
}

var publicLabels = map[Status]string{
	Created:       "Sipariş Alındı (Ödeme Bekleniyor)",
	Paid:          "Ödeme Onaylandı, Hazırlanıyor",
	ReadyForPrint: "Baskı Sırasında",
	Printed:       "Baskı Tamamlandı",
	ReadyForPTT:   "Kargoya Verilmek Üzere Bekliyor",
	Shipped:       "Kargoya Verildi",
	Cancelled:     "İptal Edildi",
}

// PublicLabel maps an internal status to the customer-facing step label.
// Unknown values get a generic label so a corrupt document can never break
// the public tracking page.
func PublicLabel(s Status) string {
	if label, ok := publicLabels[s]; ok {
		return label
	}
	return "Bilinmeyen Durum"
}

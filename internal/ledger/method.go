package ledger

import (
	"strings"

	"ms-booking-finance/internal/models"
)

var methodKeywords = []struct {
	method   Method
	keywords []string
}{
	{MethodVoucher, []string{"voucher", "bono", "gift"}},
	{MethodCash, []string{"cash", "efectivo", "espèces", "especes"}},
	{MethodTransfer, []string{"transfer", "transferencia", "virement", "iban", "bank"}},
	{MethodCard, []string{"card", "tarjeta", "carte", "tpv"}},
	{MethodOnline, []string{"online", "payrexx", "link"}},
}

// InferMethod guesses how a payment was made. A gateway reference means the
// money came through the online checkout; otherwise the notes decide.
func InferMethod(p *models.Payment) Method {
	if p.PayrexxReference != "" {
		return MethodOnline
	}
	notes := strings.Fields(strings.ToLower(p.Notes))
	for _, candidate := range methodKeywords {
		for _, word := range notes {
			for _, kw := range candidate.keywords {
				if strings.Trim(word, ".,;:()") == kw {
					return candidate.method
				}
			}
		}
	}
	return MethodOther
}

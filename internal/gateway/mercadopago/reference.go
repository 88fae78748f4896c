package mercadopago

import (
	"fmt"
	"strconv"
	"strings"
)

// The external reference is the only channel correlating a webhook back
// to a local invoice, so its format is fixed. FormatReference always
// emits the INV_ form; ParseReference also accepts the legacy
// invoice_<id> form still present in old preferences.

func FormatReference(invoiceID int64) string {
	return fmt.Sprintf("INV_%d", invoiceID)
}

func ParseReference(ref string) (int64, error) {
	digits, ok := strings.CutPrefix(ref, "INV_")
	if !ok {
		digits, ok = strings.CutPrefix(ref, "invoice_")
	}
	if !ok || digits == "" {
		return 0, fmt.Errorf("unparseable external reference %q", ref)
	}
	id, err := strconv.ParseInt(digits, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("unparseable external reference %q", ref)
	}
	return id, nil
}

package square

import (
	"strings"

	"github.com/hempies/catalogsync/internal/domain"
)

// MapVendor converts a Square vendor to our domain Vendor model.
// Contact details come from the first contact that has not been removed.
func MapVendor(v domain.SquareVendor) domain.Vendor {
	vendor := domain.Vendor{
		ID:            v.ID,
		Name:          v.Name,
		AccountNumber: v.AccountNumber,
		Note:          v.Note,
		Address:       FormatAddress(v.Address),
	}

	if contact := primaryContact(v.Contacts); contact != nil {
		vendor.Phone = contact.PhoneNumber
		vendor.Email = contact.EmailAddress
		vendor.ContactName = contact.Name
	}

	return vendor
}

// MapVendors maps a vendor listing, dropping entries without an id
func MapVendors(vendors []domain.SquareVendor) []domain.Vendor {
	out := make([]domain.Vendor, 0, len(vendors))
	for _, v := range vendors {
		if v.ID == "" {
			continue
		}
		out = append(out, MapVendor(v))
	}
	return out
}

func primaryContact(contacts []domain.VendorContact) *domain.VendorContact {
	for i := range contacts {
		if !contacts[i].Removed {
			return &contacts[i]
		}
	}
	return nil
}

// FormatAddress renders "line1, line2, city, state postal"
func FormatAddress(addr *domain.SquareAddress) string {
	if addr == nil {
		return ""
	}

	var b strings.Builder
	b.WriteString(addr.AddressLine1)
	for _, part := range []string{addr.AddressLine2, addr.Locality, addr.AdministrativeDistrictLevel1} {
		if part != "" {
			b.WriteString(", ")
			b.WriteString(part)
		}
	}
	if addr.PostalCode != "" {
		b.WriteString(" ")
		b.WriteString(addr.PostalCode)
	}

	return strings.Trim(strings.TrimSpace(b.String()), ", ")
}

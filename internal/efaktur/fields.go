package efaktur

import (
	"regexp"
	"strings"
)

var (
	reNPWP        = regexp.MustCompile(`NPWP\s*:\s*(\d{2}\.\d{3}\.\d{3}\.\d-\d{3}\.\d{3})`)
	reName        = regexp.MustCompile(`(?i)Nama\s*:\s*(.+)`)
	reIDCard      = regexp.MustCompile(`(?i)NIK\s*/?\s*Paspor\s*[:\-]*\s*([A-Z0-9]+)`)
	reIDCardTail  = regexp.MustCompile(`(?i)\s*NIK\s*/?\s*Paspor.*`)
	reIDCardLabel = regexp.MustCompile(`(?i)\s*NIK\s*/?\s*Paspor[:,.\-]*`)
	reFakturNo    = regexp.MustCompile(`Kode\s+dan\s+Nomor\s+Seri\s+Faktur\s+Pajak\s*:\s*(\d{3}\.\d{3}-\d{2}\.\d{8})`)
	reDate        = regexp.MustCompile(`\d{1,2}\s+[A-Za-z]+\s+\d{4}`)
	reDPP         = regexp.MustCompile(`Dasar\s+Pengenaan\s+Pajak\s+([\d.,]+)`)
	reTotalPPN    = regexp.MustCompile(`Total\s+PPN\s+([\d.]+,\d{2})`)
	rePPN         = regexp.MustCompile(`PPN.*?([\d.]+,\d{2})`)
	reTotalPPnBM  = regexp.MustCompile(`Total\s+PPnBM.*?([\d.]+,\d{2})`)
	rePPnBM       = regexp.MustCompile(`PPnBM.*?([\d.]+,\d{2})`)
	reDJPURL      = regexp.MustCompile(`https?://[A-Za-z0-9.\-:]+/validasi/faktur/[^\s"'<>]+`)
)

const (
	npwpDigits   = 15
	nomorDigits  = 16
	defaultPPnBM = "0"
)

// TaxSubject is a seller or buyer line read from the document.
type TaxSubject struct {
	Name      string
	IDNumber  string
	IsCompany bool
}

// Parse reads the invoice fields out of extracted document text.
//
// The first NPWP and name belong to the seller (Pengusaha Kena Pajak) and the
// second to the buyer. A missing PPnBM total is reported as zero.
func Parse(text string) Fields {
	var f Fields

	npwps := NPWPNumbers(text)
	if len(npwps) > 0 {
		f.NPWPPenjual = npwps[0]
	}
	if len(npwps) > 1 {
		f.NPWPPembeli = npwps[1]
	}

	subjects := TaxSubjects(text)
	if len(subjects) > 0 {
		f.NamaPenjual = subjects[0].Name
	}
	if len(subjects) > 1 {
		f.NamaPembeli = subjects[1].Name
	}

	f.NomorFaktur = FakturNumber(text)
	f.TanggalFaktur = FakturDate(text)

	f.JumlahDPP = amount(text, reDPP)
	f.JumlahPPN = firstAmount(text, reTotalPPN, rePPN)
	f.JumlahPPnBM = firstAmount(text, reTotalPPnBM, rePPnBM)
	if f.JumlahPPnBM == "" {
		f.JumlahPPnBM = defaultPPnBM
	}
	return f
}

// NPWPNumbers returns every labelled NPWP in order. Malformed numbers are
// kept as "" so positions stay aligned with the document.
func NPWPNumbers(text string) []string {
	matches := reNPWP.FindAllStringSubmatch(text, -1)
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		val := NormalizeNumber(m[1])
		if len(val) != npwpDigits {
			val = ""
		}
		out = append(out, val)
	}
	return out
}

// TaxSubjects returns the "Nama :" lines. An individual carries a NIK/Paspor
// number after the name, which is cut off; anything else is a company.
func TaxSubjects(text string) []TaxSubject {
	matches := reName.FindAllStringSubmatch(text, -1)
	out := make([]TaxSubject, 0, len(matches))
	for _, m := range matches {
		raw := strings.TrimSpace(m[1])
		subject := TaxSubject{}
		if id := reIDCard.FindStringSubmatch(raw); id != nil {
			subject.IDNumber = id[1]
			subject.Name = NormalizeCompany(reIDCardTail.ReplaceAllString(raw, ""))
		} else {
			subject.Name = NormalizeCompany(reIDCardLabel.ReplaceAllString(raw, ""))
			subject.IsCompany = true
		}
		out = append(out, subject)
	}
	return out
}

// FakturNumber returns the 16 digit serial number, or whatever digits were
// found when the number is malformed.
func FakturNumber(text string) string {
	m := reFakturNo.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return NormalizeNumber(m[1])
}

// FakturDate returns the first "dd <bulan> yyyy" date as YYYY-MM-DD.
func FakturDate(text string) string {
	for _, candidate := range reDate.FindAllString(text, -1) {
		if t, ok := ParseIndonesianDate(candidate); ok {
			return t.Format(dateLayout)
		}
	}
	return ""
}

// ValidationURL returns the first DJP validation URL printed in the text.
func ValidationURL(text string) string {
	return strings.TrimRight(reDJPURL.FindString(text), ".,;)")
}

func amount(text string, re *regexp.Regexp) string {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return NormalizeIDR(m[1])
}

func firstAmount(text string, res ...*regexp.Regexp) string {
	for _, re := range res {
		if v := amount(text, re); v != "" {
			return v
		}
	}
	return ""
}

package djp

import (
	"strings"

	"efaktur-validator/internal/efaktur"
)

// Invoice is the DJP validation response (resValidateFakturPm). The root
// element name is not checked.
type Invoice struct {
	KdJenisTransaksi     string `xml:"kdJenisTransaksi"`
	FgPengganti          string `xml:"fgPengganti"`
	NomorFaktur          string `xml:"nomorFaktur"`
	TanggalFaktur        string `xml:"tanggalFaktur"`
	NPWPPenjual          string `xml:"npwpPenjual"`
	NamaPenjual          string `xml:"namaPenjual"`
	AlamatPenjual        string `xml:"alamatPenjual"`
	NPWPLawanTransaksi   string `xml:"npwpLawanTransaksi"`
	NamaLawanTransaksi   string `xml:"namaLawanTransaksi"`
	AlamatLawanTransaksi string `xml:"alamatLawanTransaksi"`
	JumlahDPP            string `xml:"jumlahDpp"`
	JumlahPPN            string `xml:"jumlahPpn"`
	JumlahPPnBM          string `xml:"jumlahPpnBm"`
	StatusApproval       string `xml:"statusApproval"`
	StatusFaktur         string `xml:"statusFaktur"`
	Referensi            string `xml:"referensi"`
}

const fullNomorDigits = 16

// Fields converts the response into normalized invoice fields.
func (inv Invoice) Fields() efaktur.Fields {
	return efaktur.Fields{
		NPWPPenjual:   efaktur.NormalizeNumber(inv.NPWPPenjual),
		NamaPenjual:   efaktur.NormalizeCompany(inv.NamaPenjual),
		NPWPPembeli:   efaktur.NormalizeNumber(inv.NPWPLawanTransaksi),
		NamaPembeli:   efaktur.NormalizeCompany(inv.NamaLawanTransaksi),
		NomorFaktur:   inv.fullNomor(),
		TanggalFaktur: efaktur.NormalizeDJPDate(inv.TanggalFaktur),
		JumlahDPP:     efaktur.NormalizeAmount(inv.JumlahDPP),
		JumlahPPN:     efaktur.NormalizeAmount(inv.JumlahPPN),
		JumlahPPnBM:   efaktur.NormalizeAmount(inv.JumlahPPnBM),
	}
}

// fullNomor prefixes the 13 digit serial with the transaction code and
// replacement flag, matching the number printed on the document.
func (inv Invoice) fullNomor() string {
	serial := efaktur.NormalizeNumber(inv.NomorFaktur)
	full := efaktur.NormalizeNumber(inv.KdJenisTransaksi + inv.FgPengganti + inv.NomorFaktur)
	if len(full) == fullNomorDigits {
		return full
	}
	return serial
}

// Approved reports whether DJP recognised the invoice.
func (inv Invoice) Approved() bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(inv.StatusApproval)), "faktur valid")
}

// Cancelled reports whether DJP marks the invoice as cancelled.
func (inv Invoice) Cancelled() bool {
	return strings.Contains(strings.ToLower(inv.StatusFaktur), "batal")
}

// RejectionReason is the DJP status text explaining a rejection, or "" when
// the invoice is approved and active.
func (inv Invoice) RejectionReason() string {
	switch {
	case !inv.Approved():
		if s := strings.TrimSpace(inv.StatusApproval); s != "" {
			return s
		}
		return "Faktur not approved by DJP"
	case inv.Cancelled():
		return strings.TrimSpace(inv.StatusFaktur)
	default:
		return ""
	}
}

func (inv Invoice) empty() bool {
	return strings.TrimSpace(inv.StatusApproval) == "" && strings.TrimSpace(inv.NomorFaktur) == ""
}

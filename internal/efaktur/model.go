// Package efaktur models the fields of an Indonesian e-Faktur tax invoice and
// reads them from document text.
package efaktur

// Field names a compared invoice field. Values match the DJP XML element names
// where DJP uses the same concept.
type Field string

const (
	FieldNPWPPenjual   Field = "npwpPenjual"
	FieldNamaPenjual   Field = "namaPenjual"
	FieldNPWPPembeli   Field = "npwpPembeli"
	FieldNamaPembeli   Field = "namaPembeli"
	FieldNomorFaktur   Field = "nomorFaktur"
	FieldTanggalFaktur Field = "tanggalFaktur"
	FieldJumlahDPP     Field = "jumlahDpp"
	FieldJumlahPPN     Field = "jumlahPpn"
	FieldJumlahPPnBM   Field = "jumlahPpnBm"
)

// ComparedFields lists the fields compared between a document and DJP, in report order.
var ComparedFields = []Field{
	FieldNPWPPenjual,
	FieldNamaPenjual,
	FieldNPWPPembeli,
	FieldNamaPembeli,
	FieldNomorFaktur,
	FieldTanggalFaktur,
	FieldJumlahDPP,
	FieldJumlahPPN,
	FieldJumlahPPnBM,
}

// Fields holds normalized invoice values. Empty means not found.
//
// NPWP and faktur numbers are digits only, names are upper-cased with PT/CV
// prefixes normalized, the date is YYYY-MM-DD and amounts are plain decimals.
type Fields struct {
	NPWPPenjual   string `json:"npwpPenjual,omitempty"`
	NamaPenjual   string `json:"namaPenjual,omitempty"`
	NPWPPembeli   string `json:"npwpPembeli,omitempty"`
	NamaPembeli   string `json:"namaPembeli,omitempty"`
	NomorFaktur   string `json:"nomorFaktur,omitempty"`
	TanggalFaktur string `json:"tanggalFaktur,omitempty"`
	JumlahDPP     string `json:"jumlahDpp,omitempty"`
	JumlahPPN     string `json:"jumlahPpn,omitempty"`
	JumlahPPnBM   string `json:"jumlahPpnBm,omitempty"`
}

// Get returns the value of the named field.
func (f Fields) Get(name Field) string {
	switch name {
	case FieldNPWPPenjual:
		return f.NPWPPenjual
	case FieldNamaPenjual:
		return f.NamaPenjual
	case FieldNPWPPembeli:
		return f.NPWPPembeli
	case FieldNamaPembeli:
		return f.NamaPembeli
	case FieldNomorFaktur:
		return f.NomorFaktur
	case FieldTanggalFaktur:
		return f.TanggalFaktur
	case FieldJumlahDPP:
		return f.JumlahDPP
	case FieldJumlahPPN:
		return f.JumlahPPN
	case FieldJumlahPPnBM:
		return f.JumlahPPnBM
	default:
		return ""
	}
}

// IsEmpty reports whether no field was found.
func (f Fields) IsEmpty() bool {
	return f == Fields{}
}

func isAmount(name Field) bool {
	return name == FieldJumlahDPP || name == FieldJumlahPPN || name == FieldJumlahPPnBM
}

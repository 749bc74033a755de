package models

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Numeric is the text the contract receives for a numeric field. Strings pass
// through verbatim; numbers are rendered in their shortest form, so 100.0 and
// 1e2 both become "100". Absent or null values become "".
type Numeric string

func (n *Numeric) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*n = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*n = Numeric(s)
		return nil
	}
	var num json.Number
	if err := json.Unmarshal(b, &num); err != nil {
		*n = Numeric(b)
		return nil
	}
	f, err := num.Float64()
	if err != nil {
		*n = Numeric(num)
		return nil
	}
	*n = Numeric(formatNumber(f))
	return nil
}

// formatNumber renders f as decimal text, switching to exponent form below
// 1e-6 and from 1e21 up.
func formatNumber(f float64) string {
	if f == 0 {
		return "0"
	}
	abs := math.Abs(f)
	if abs >= 1e-6 && abs < 1e21 {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	mantissa, exp, _ := strings.Cut(strconv.FormatFloat(f, 'e', -1, 64), "e")
	sign := exp[:1]
	exp = strings.TrimLeft(exp[1:], "0")
	return mantissa + "e" + sign + exp
}

type CreateAssetRequest struct {
	DealerID    string  `json:"dealerID"`
	MSISDN      string  `json:"msisdn"`
	MPIN        string  `json:"mpin"`
	Balance     Numeric `json:"balance"`
	Status      string  `json:"status"`
	TransAmount Numeric `json:"transAmount"`
	TransType   string  `json:"transType"`
	Remarks     string  `json:"remarks"`
}

// Args orders the fields as CreateAsset expects them.
func (r CreateAssetRequest) Args() []string {
	return []string{
		r.DealerID,
		r.MSISDN,
		r.MPIN,
		string(r.Balance),
		r.Status,
		string(r.TransAmount),
		r.TransType,
		r.Remarks,
	}
}

type UpdateAssetRequest struct {
	Balance Numeric `json:"balance"`
	Status  string  `json:"status"`
}

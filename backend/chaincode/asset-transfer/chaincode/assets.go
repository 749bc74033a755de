package chaincode

// Asset is a dealer account keyed by DealerID in world state.
type Asset struct {
	DealerID    string `json:"dealerID"`
	MSISDN      string `json:"msisdn"`
	MPIN        string `json:"mpin"`
	Balance     int    `json:"balance"`
	Status      string `json:"status"`
	TransAmount int    `json:"transAmount"`
	TransType   string `json:"transType"`
	Remarks     string `json:"remarks"`
}

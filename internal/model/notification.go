package model

// Notification is the transaction object the provider posts to the
// webhook callback. Only the fields used by the ingestion path are mapped.
type Notification struct {
	Hash          string     `json:"hash" validate:"required"`
	BlockHeight   int64      `json:"block_height"`
	Confirmations int64      `json:"confirmations" validate:"gte=0"`
	Confidence    *float64   `json:"confidence,omitempty" validate:"omitempty,gte=0,lte=1"`
	DoubleSpend   bool       `json:"double_spend"`
	Total         int64      `json:"total" validate:"gte=0"`
	Fees          int64      `json:"fees" validate:"gte=0"`
	Address       string     `json:"address,omitempty" validate:"required_without=Outputs"`
	Addresses     []string   `json:"addresses,omitempty"`
	Outputs       []TxOutput `json:"outputs,omitempty" validate:"required_without=Address,dive"`
	Received      string     `json:"received,omitempty"`
}

type TxOutput struct {
	Value      int64    `json:"value" validate:"gte=0"`
	Addresses  []string `json:"addresses"`
	ScriptType string   `json:"script_type"`
	Script     string   `json:"script,omitempty"`
}

package models

// Requests for the history HTTP endpoints. Defined in domain for consistency and reuse.

type CandlesRequest struct {
	Ticker string `query:"ticker" json:"ticker" validate:"required,alphanum"`
	TF     string `query:"tf" json:"tf" default:"daily" validate:"oneof=1m 10m 1h 4h daily weekly monthly quarterly"`
	Years  int    `query:"years" json:"years" default:"1" validate:"gte=1,lte=25"`
}

type IndicatorsRequest struct {
	Ticker string `query:"ticker" json:"ticker" validate:"required,alphanum"`
	TF     string `query:"tf" json:"tf" default:"daily" validate:"oneof=1m 10m 1h 4h daily weekly monthly quarterly"`
	Years  int    `query:"years" json:"years" default:"1" validate:"gte=1,lte=25"`
}

type SecuritySearchRequest struct {
	Query string `query:"q" json:"q" validate:"required,min=2,max=64"`
	Limit int    `query:"limit" json:"limit" default:"10" validate:"gte=1,lte=50"`
}

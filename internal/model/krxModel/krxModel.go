package krxModel

import "time"

type RawDailyPrices struct {
	OutBlock1 []RawDailyPrice `json:"OutBlock_1"`
}

type RawDailyPrice struct {
	Ticker     string `json:"ISU_SRT_CD"`
	Shortname  string `json:"ISU_ABBRV"`
	ClosePrice string `json:"TDD_CLSPRC"`
}

type DailyPrice struct {
	Ticker     string
	Shortname  string
	ClosePrice int64
	TradeDate  time.Time
}

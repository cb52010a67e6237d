package portfolioService

import "github.com/KotFed0t/kr_portfolio_manager/internal/model"

// seedHoldings is used when no holdings file exists yet.
func seedHoldings() []model.HoldingRecord {
	return []model.HoldingRecord{
		{Name: "카이카", Ticker: "381970", Quantity: 33872, TargetWeight: "12.3%"},
		{Name: "삼양식품", Ticker: "003230", Quantity: 124, TargetWeight: "0.05%"},
		{Name: "경동나비엔", Ticker: "009450", Quantity: 7344, TargetWeight: "2.67%"},
		{Name: "더존비즈온", Ticker: "012510", Quantity: 2261, TargetWeight: "0.82%"},
		{Name: "아세아시멘트", Ticker: "183190", Quantity: 44439, TargetWeight: "16.14%"},
		{Name: "와이지-원", Ticker: "019210", Quantity: 90363, TargetWeight: "32.81%"},
		{Name: "네오팜", Ticker: "092730", Quantity: 23709, TargetWeight: "8.61%"},
		{Name: "삼성전자", Ticker: "005930", Quantity: 5755, TargetWeight: "2.09%"},
		{Name: "에이유브랜즈", Ticker: "481070", Quantity: 0, TargetWeight: "0.00%"},
		{Name: "아이센스", Ticker: "099190", Quantity: 9387, TargetWeight: "3.41%"},
	}
}

package assistant

import "github.com/querydesk/querydesk/internal/warehouse"

// SimulatedResult returns a small canned result used when the warehouse is
// not configured, so the rest of the pipeline can still be exercised.
func SimulatedResult() warehouse.Result {
	columns := []string{"deal_num", "trade_date", "currency", "amount", "status"}
	rows := []map[string]string{
		{"deal_num": "100231", "trade_date": "2026-08-27", "currency": "EUR", "amount": "1250000", "status": "VALIDATED"},
		{"deal_num": "100232", "trade_date": "2026-08-27", "currency": "USD", "amount": "870500.5", "status": "VALIDATED"},
		{"deal_num": "100233", "trade_date": "2026-08-28", "currency": "GBP", "amount": "412000", "status": "NEW"},
		{"deal_num": "100234", "trade_date": "2026-08-28", "currency": "EUR", "amount": "95000.25", "status": "CANCELLED"},
		{"deal_num": "100235", "trade_date": "2026-08-29", "currency": "USD", "amount": "2300000", "status": "NEW"},
	}
	return warehouse.Result{Columns: columns, Rows: rows}
}

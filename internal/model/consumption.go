package model

import "time"

// ConsumptionLog は家電の使用記録（追記専用）を表す。
// Wattsは記録時点の家電の定格電力のスナップショットであり、
// 後から家電の定格電力を変更しても過去の記録は書き換わらない。
type ConsumptionLog struct {
	ID          string
	UserID      string
	ApplianceID string
	Timestamp   time.Time
	Watts       float64
	Minutes     float64
	KWh         float64
	CreatedAt   time.Time
}

// ConsumptionSummary は直近24時間の消費電力量の集計結果。
type ConsumptionSummary struct {
	TotalKWhLast24h float64
	Count           int
}

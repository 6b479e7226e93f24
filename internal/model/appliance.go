package model

import "time"

// MaxApplianceNameLength は家電名の文字数の上限。
const MaxApplianceNameLength = 255

// Appliance はユーザーが登録した家電を表す。
// 所有者（UserID）は作成後に変更されない。
type Appliance struct {
	ID         string
	UserID     string
	Name       string
	PowerWatts float64 // 定格消費電力（W）
	IsOn       bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// AppliancePatch は家電の部分更新内容を表す。
// nilのフィールドは変更せず、既存の値を維持する。
type AppliancePatch struct {
	Name       *string
	PowerWatts *float64
	IsOn       *bool
}

// IsEmpty は更新対象のフィールドが1つも指定されていない場合にtrueを返す。
func (p AppliancePatch) IsEmpty() bool {
	return p.Name == nil && p.PowerWatts == nil && p.IsOn == nil
}

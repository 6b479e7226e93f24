package consumption

import "math"

// KWh は定格電力（W）と使用時間（分）から消費電力量（kWh）を計算する。
func KWh(watts, minutes float64) float64 {
	return watts * minutes / 60 / 1000
}

// round4 は小数点以下4桁に丸める。
func round4(v float64) float64 {
	return math.Round(v*1e4) / 1e4
}

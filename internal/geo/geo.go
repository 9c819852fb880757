// 包 geo：大圆距离计算，所有"附近"查询共用
package geo

import "math"

// 地球半径（英里），与原数据口径一致
const earthRadiusMiles = 3959.0

// Miles：haversine 公式计算两个经纬度（度）之间的大圆距离（英里）
// 约束：纯函数；NaN/越界输入照常参与运算并传播 NaN，不做拒绝
func Miles(lat1, lon1, lat2, lon2 float64) float64 {
	rlat1 := lat1 * math.Pi / 180
	rlat2 := lat2 * math.Pi / 180
	dlat := (lat2 - lat1) * math.Pi / 180
	dlon := (lon2 - lon1) * math.Pi / 180
	a := math.Sin(dlat/2)*math.Sin(dlat/2) +
		math.Cos(rlat1)*math.Cos(rlat2)*math.Sin(dlon/2)*math.Sin(dlon/2)
	return earthRadiusMiles * 2 * math.Asin(math.Sqrt(a))
}

// RoundMiles：距离保留两位小数，对外回报统一口径
func RoundMiles(d float64) float64 {
	return float64(int64(d*100+0.5)) / 100
}

// ValidCoords：坐标是否为可用数值
// 背景：上游开放数据不保证字段完整，过滤层据此跳过坏行
func ValidCoords(lat, lon float64) bool {
	if math.IsNaN(lat) || math.IsNaN(lon) || math.IsInf(lat, 0) || math.IsInf(lon, 0) {
		return false
	}
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}

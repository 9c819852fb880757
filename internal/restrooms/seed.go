package restrooms

// Seed：内置回退数据集——波士顿市区若干公共厕所
// 背景：上游抓取失败时对调用方透明地使用该数据；条目与线上数据同构
func Seed() []map[string]any {
	return []map[string]any{
		{
			"name":         "Boston Public Library - Main Branch",
			"location":     "700 Boylston Street",
			"address":      "Boston, MA 02116",
			"hours":        "Mon-Sat: 9AM-6PM, Sun: 1PM-5PM",
			"neighborhood": "Back Bay",
			"latitude":     42.3462,
			"longitude":    -71.0726,
		},
		{
			"name":         "Downtown Boston Public Restroom",
			"location":     "Downtown Crossing",
			"address":      "Downtown, Boston, MA",
			"hours":        "Daily: 7AM-10PM",
			"neighborhood": "Downtown",
			"latitude":     42.3554,
			"longitude":    -71.0606,
		},
		{
			"name":         "Faneuil Hall Public Restroom",
			"location":     "100 Hanover Street",
			"address":      "Boston, MA 02109",
			"hours":        "Daily: 10AM-9PM",
			"neighborhood": "Downtown",
			"latitude":     42.3631,
			"longitude":    -71.0551,
		},
		{
			"name":         "Boston Common Public Restroom",
			"location":     "Boston Common",
			"address":      "Boston, MA 02108",
			"hours":        "Daily: 8AM-6PM",
			"neighborhood": "Downtown",
			"latitude":     42.3565,
			"longitude":    -71.0657,
		},
		{
			"name":         "Seaport District Public Restroom",
			"location":     "Seaport Boulevard",
			"address":      "Boston, MA 02210",
			"hours":        "Daily: 9AM-9PM",
			"neighborhood": "Seaport",
			"latitude":     42.3618,
			"longitude":    -71.0432,
		},
		{
			"name":         "Harvard Square Public Restroom",
			"location":     "Harvard Square",
			"address":      "Cambridge, MA 02138",
			"hours":        "Daily: 7AM-11PM",
			"neighborhood": "Cambridge",
			"latitude":     42.3735,
			"longitude":    -71.1194,
		},
		{
			"name":         "Back Bay Station Public Restroom",
			"location":     "145 Dartmouth Street",
			"address":      "Boston, MA 02116",
			"hours":        "Daily: 6AM-10PM",
			"neighborhood": "Back Bay",
			"latitude":     42.3475,
			"longitude":    -71.0751,
		},
		{
			"name":         "South Station Public Restroom",
			"location":     "700 Atlantic Avenue",
			"address":      "Boston, MA 02210",
			"hours":        "Daily: 5AM-11PM",
			"neighborhood": "Downtown",
			"latitude":     42.3525,
			"longitude":    -71.0552,
		},
	}
}

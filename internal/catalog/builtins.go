package catalog

import "eventret/internal/domain"

// Builtins returns the catalogs that ship with eventret.
func Builtins() []*Catalog {
	return []*Catalog{
		{
			Name:        "wwdc",
			Symbol:      "AAPL",
			Description: "Apple WWDC keynote",
			Events: events(
				"2015", "2015-06-08",
				"2016", "2016-06-13",
				"2017", "2017-06-05",
				"2018", "2018-06-04",
				"2019", "2019-06-03",
				"2020", "2020-06-22",
				"2021", "2021-06-07",
				"2022", "2022-06-06",
				"2023", "2023-06-05",
				"2024", "2024-06-10",
			),
		},
		{
			Name:        "iphone",
			Symbol:      "AAPL",
			Description: "Apple September iPhone event",
			Events: events(
				"2019", "2019-09-10",
				"2020", "2020-09-15",
				"2021", "2021-09-14",
				"2022", "2022-09-07",
				"2023", "2023-09-12",
				"2024", "2024-09-09",
			),
		},
	}
}

// events pairs up id, date arguments.
func events(kv ...string) []domain.Event {
	out := make([]domain.Event, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		out = append(out, domain.Event{ID: kv[i], Date: domain.MustParseDay(kv[i+1])})
	}
	return out
}

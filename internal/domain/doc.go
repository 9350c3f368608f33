// Package domain turns per-location environmental readings into hazard
// labels, risk zones and ranked alerts.
//
// # Readings
//
// The collector publishes one JSON reading per location and cycle. Numeric
// signals live under "fields" and may be numbers, numeric strings, null, or
// missing. [Normalize] resolves each one to a rounded finite value:
//
//	field            default  precision
//	temperature      -99.0    1
//	humidity         -1.0     0
//	pressure         -1.0     0
//	wind_speed        0.0     2
//	precip6/precip24  0.0     2
//	gust6             0.0     2
//	river_discharge  -1.0     2
//	eq_mag/eq_dist   -1.0     2
//
// -1 means "no data"; 0 means "none observed".
//
// # Labels
//
// Each reading gets five ordinal labels (no < low < mid < mid-high < high).
// Now-cast breakpoints:
//
//	rain        p24>80|p6>40 high, >50|>25 mid-high, >20|>10 mid, >3|>1 low
//	wind        gust6 >25 high, >18 mid-high, >10 mid, >5 low
//	storm       gust tier + rain tier + pressure tier + text bonus,
//	            bucketed at 12/9/6/3
//	flood       discharge >8000 high, >5000 mid-high, >2000 mid, >500 low
//	earthquake  mag>=6.0&dist<=150 high, 5.5&300 mid-high, 5.0&500 mid,
//	            4.5&800 low
//
// The 7-day forecast uses its own wind and storm tables (wind 30/22/15/8,
// storm bucketed at 14/10/7/3); the two calibrations are kept apart on purpose.
//
// # Resolution
//
// [Resolve] walks [Kinds] (wind, rain, storm, flood, earthquake) and keeps
// the last kind at mid or above. [ResolveForecast] keeps the highest-scoring
// kind instead and asks more of wind.
//
// # Zones and alerts
//
// A [RiskZone] is a circular buffer polygon around the reading, sized by
// hazard and intensity, with a 0..100 safety score and a four-tier
// [Classification]. Alerts are derived from zones, scored by
// [CalculatePriority], and deduplicated by (location, hazard).
package domain

// Package address turns reverse-geocoding results into a short suggested
// address for a draft place.
package address

import "strings"

var (
	regionMarkers     = []string{"область", "region", "oblast", "voblasts"}
	districtMarkers   = []string{"район", "district", "raion", "rayon"}
	settlementMarkers = []string{"город", "посёлок", "поселок", "агрогородок", "деревня", "city", "town", "village"}
)

// Normalize reduces a comma-separated display name to "region, district,
// settlement", keeping whichever of the three are present in that order. With
// none of them it falls back to the first two fragments.
func Normalize(displayName string) string {
	var parts []string
	for _, p := range strings.Split(displayName, ",") {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) == 0 {
		return ""
	}

	var found []string
	for _, markers := range [][]string{regionMarkers, districtMarkers, settlementMarkers} {
		if p, ok := firstWith(parts, markers); ok {
			found = append(found, p)
		}
	}
	if len(found) > 0 {
		return strings.Join(found, ", ")
	}

	if len(parts) > 2 {
		parts = parts[:2]
	}
	return strings.Join(parts, ", ")
}

func firstWith(parts, markers []string) (string, bool) {
	for _, p := range parts {
		lower := strings.ToLower(p)
		for _, m := range markers {
			if strings.Contains(lower, m) {
				return p, true
			}
		}
	}
	return "", false
}

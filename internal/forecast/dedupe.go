package forecast

import (
	"github.com/tejusbharadwaj/neso-solar-consumer/internal/models"
)

type rowKey struct {
	start    int64
	end      int64
	hasEnd   bool
	power    float64
	hasPower bool
}

func keyOf(row models.Row) rowKey {
	k := rowKey{start: row.TimestampUTC.UnixNano()}
	if row.EndUTC != nil {
		k.end = row.EndUTC.UnixNano()
		k.hasEnd = true
	}
	if row.PowerKW != nil {
		k.power = *row.PowerKW
		k.hasPower = true
	}
	return k
}

// Deduplicate drops rows repeating an earlier (start, end, power) triple,
// keeping the first occurrence and the input order.
func Deduplicate(rows []models.Row) []models.Row {
	seen := make(map[rowKey]struct{}, len(rows))
	out := make([]models.Row, 0, len(rows))
	for _, row := range rows {
		k := keyOf(row)
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, row)
	}
	return out
}

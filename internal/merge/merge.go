// Package merge combines the default (remote-origin) content tier with the
// locally authored tier into one working set.
package merge

import "github.com/FerventBolt/tesda-lms-api/internal/models"

// Record is any entity carrying an identity and an origin tag.
type Record interface {
	RecordID() string
	RecordOrigin() models.Origin
}

// Merge concatenates remote then local records. On an id collision the
// local record shadows the remote one; relative order of first appearance
// is preserved.
func Merge[T Record](remote, local []T) []T {
	merged := make([]T, 0, len(remote)+len(local))
	index := make(map[string]int, len(remote)+len(local))

	for _, batch := range [][]T{remote, local} {
		for _, rec := range batch {
			if pos, ok := index[rec.RecordID()]; ok {
				merged[pos] = rec
				continue
			}
			index[rec.RecordID()] = len(merged)
			merged = append(merged, rec)
		}
	}

	return merged
}

// LocalOnly filters a working set down to the records that belong in the
// local tier. Remote-origin records are never written back, otherwise every
// merge would duplicate them into the local store.
func LocalOnly[T Record](records []T) []T {
	local := make([]T, 0, len(records))
	for _, rec := range records {
		if rec.RecordOrigin() == models.OriginLocal {
			local = append(local, rec)
		}
	}
	return local
}

// Find returns the record with the given id, if present.
func Find[T Record](records []T, id string) (T, bool) {
	for _, rec := range records {
		if rec.RecordID() == id {
			return rec, true
		}
	}
	var zero T
	return zero, false
}

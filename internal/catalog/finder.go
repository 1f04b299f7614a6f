package catalog

import (
	"lms/internal/ids"
	"lms/internal/pagerange"

	"gorm.io/gorm"
)

// findByID is the generic single-row lookup shared by every entity's
// exported find(tx, id) wrapper.
func findByID[E any, K any](tx *Tx, id ids.Id[K]) (*E, error) {
	tx.assertRead()

	var entity E
	err := tx.db.First(&entity, "id = ?", id.Raw()).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &entity, nil
}

// findIDsOrphan is the generic findOrphanIds(tx, range) helper: it
// selects the primary key of E restricted by whereNotExists (a raw SQL
// fragment expressing "no referencing row"), ordered by id, with the
// standard Range overfetch-by-one pagination.
func findIDsOrphan[K any](tx *Tx, table string, whereNotExists string, r pagerange.Range) (pagerange.RangeResults[ids.Id[K]], error) {
	tx.assertRead()

	query := tx.db.Table(table).Select("id").Where(whereNotExists).Order("id").Offset(int(r.Offset))
	if r.HasLimit() {
		query = query.Limit(int(r.InternalFetchSize()))
	}

	var raw []uint64
	if err := query.Pluck("id", &raw).Error; err != nil {
		return pagerange.RangeResults[ids.Id[K]]{}, err
	}

	out := make([]ids.Id[K], len(raw))
	for i, v := range raw {
		out[i] = ids.New[K](v)
	}
	return pagerange.Paginate(r, out), nil
}

// findNextIDRange is the generic cursor primitive for batched walks:
// given the last id seen by the caller and a batch count, returns the
// next inclusive [first, last] interval of existing ids, or an invalid
// range when there are no more rows.
func findNextIDRange[K any](tx *Tx, table string, lastSeenID ids.Id[K], count uint32) (ids.IdRange[K], error) {
	tx.assertRead()

	var raw []uint64
	err := tx.db.Table(table).
		Select("id").
		Where("id > ?", lastSeenID.Raw()).
		Order("id").
		Limit(int(count)).
		Pluck("id", &raw).Error
	if err != nil {
		return ids.IdRange[K]{}, err
	}
	if len(raw) == 0 {
		return ids.IdRange[K]{}, nil
	}
	return ids.IdRange[K]{
		First: ids.New[K](raw[0]),
		Last:  ids.New[K](raw[len(raw)-1]),
	}, nil
}

// escapeLikeWildcards escapes user-supplied '%' and '_' before a
// substring LIKE match.
func escapeLikeWildcards(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '%' || c == '_' || c == '\\' {
			out = append(out, '\\')
		}
		out = append(out, c)
	}
	return string(out)
}

package domain

// Default paging applied when a caller leaves take unset.
const (
	DefaultTake = 100
	MaxTake     = 1000
)

// ListQuery holds paging and filtering for list endpoints.
type ListQuery struct {
	Skip        int
	Take        int
	Filter      string
	WithDeleted bool
}

// Normalize clamps paging values.
func (q ListQuery) Normalize() ListQuery {
	if q.Skip < 0 {
		q.Skip = 0
	}
	if q.Take <= 0 {
		q.Take = DefaultTake
	}
	if q.Take > MaxTake {
		q.Take = MaxTake
	}
	return q
}

// Page is a slice of rows plus the total matching count.
type Page[T any] struct {
	Data  []T `json:"data"`
	Total int `json:"total"`
}

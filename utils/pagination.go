package utils

const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100
)

// Page normalises page/limit query values.
func Page(page, limit int) (int, int) {
	if page < 1 {
		page = DefaultPage
	}
	if limit < 1 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	return page, limit
}

// Paginated shapes a list response the way every list endpoint returns it.
func Paginated(key string, list interface{}, total int64, page, limit int) map[string]interface{} {
	page, limit = Page(page, limit)
	return map[string]interface{}{
		key: list,
		"pagination": map[string]interface{}{
			"total": total,
			"page":  page,
			"limit": limit,
		},
	}
}

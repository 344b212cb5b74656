package pagination

// Pagination represents pagination parameters.
type Pagination struct {
	Page  int `form:"page" binding:"omitempty,min=1"`
	Limit int `form:"limit" binding:"omitempty,min=1,max=100"`
}

// Default values.
const (
	DefaultPage  = 1
	DefaultLimit = 20
	MaxLimit     = 100
)

// New creates pagination with default values.
func New() *Pagination {
	return &Pagination{
		Page:  DefaultPage,
		Limit: DefaultLimit,
	}
}

// Normalize clamps page and limit to valid values.
func (p *Pagination) Normalize() {
	if p.Page < 1 {
		p.Page = DefaultPage
	}
	if p.Limit < 1 {
		p.Limit = DefaultLimit
	}
	if p.Limit > MaxLimit {
		p.Limit = MaxLimit
	}
}

// Offset returns the offset for database queries.
func (p *Pagination) Offset() int {
	p.Normalize()
	return (p.Page - 1) * p.Limit
}

// TotalPages calculates the total number of pages.
func (p *Pagination) TotalPages(total int64) int {
	if total == 0 {
		return 0
	}
	p.Normalize()
	pages := int(total) / p.Limit
	if int(total)%p.Limit > 0 {
		pages++
	}
	return pages
}

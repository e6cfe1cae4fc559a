package dto

// Pagina wraps every paginated list response.
type Pagina[T any] struct {
	Data  []T   `json:"data"`
	Total int64 `json:"total"`
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
}

// NovaPagina builds a page, never returning a null data array.
func NovaPagina[T any](data []T, total int64, page, limit int) Pagina[T] {
	if data == nil {
		data = []T{}
	}
	return Pagina[T]{Data: data, Total: total, Page: page, Limit: limit}
}

// Paginacao is embedded in list filters bound from the query string.
type Paginacao struct {
	Page  int `form:"page,default=1"   validate:"min=1"`
	Limit int `form:"limit,default=50" validate:"min=1,max=200"`
}

// Normalizar clamps page and limit to sane values when the filter was built
// in code instead of bound from a request.
func (p *Paginacao) Normalizar() {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit < 1 || p.Limit > 200 {
		p.Limit = 50
	}
}

// Offset returns the row offset for the current page.
func (p Paginacao) Offset() int { return (p.Page - 1) * p.Limit }

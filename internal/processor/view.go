package processor

// Page is one slice of the processed data for table rendering.
type Page struct {
	Rows       []Record `json:"rows"`
	Page       int      `json:"page"`
	Size       int      `json:"size"`
	TotalRows  int      `json:"total_rows"`
	TotalPages int      `json:"total_pages"`
}

// DefaultPageSize is used when Page is called with a non-positive size.
const DefaultPageSize = 50

// Page returns the 1-based page of processed rows. Pages past the end clamp
// to the last page; page numbers below 1 are treated as 1.
func (p *Processor) Page(page, size int) Page {
	if size <= 0 {
		size = DefaultPageSize
	}
	total := len(p.processedData)
	pages := 1
	if total > size {
		pages = (total-1)/size + 1
	}
	if page < 1 {
		page = 1
	}
	if page > pages {
		page = pages
	}

	start := (page - 1) * size
	end := total
	if total-start > size {
		end = start + size
	}

	return Page{
		Rows:       p.processedData[start:end],
		Page:       page,
		Size:       size,
		TotalRows:  total,
		TotalPages: pages,
	}
}

// SetColumnVisible shows or hides a column. It is display state only and is
// not logged. Returns false when the column is unknown.
func (p *Processor) SetColumnVisible(name string, visible bool) bool {
	i := findColumn(p.columns, name)
	if i < 0 {
		return false
	}
	p.columns[i].Visible = visible
	return true
}

// VisibleColumns returns the visible part of the schema in schema order.
func (p *Processor) VisibleColumns() []Column {
	out := make([]Column, 0, len(p.columns))
	for _, c := range p.columns {
		if c.Visible {
			out = append(out, c)
		}
	}
	return out
}

// Package listview builds sortable, paginated tables of database rows for the manage pages
package listview

import (
	"errors"
	"html/template"
	"net/http"
	"net/url"
	"strconv"
)

const (
	DefaultItemsPerPage = 30
	// pageWindow is the number of page links shown on each side of the current page
	pageWindow = 2
)

var (
	ErrNoCountFunc = errors.New("list has no count function")
	ErrNoItemsFunc = errors.New("list has no items function")
)

// Sort holds the ORDER BY expressions used when a column is sorted ascending or descending
type Sort struct {
	Asc  string
	Desc string
}

// Column describes one column of a list
type Column struct {
	ID     string
	Header string
	Class  string
	// Sort is nil if the column can't be sorted
	Sort  *Sort
	Value func(row any) template.HTML
}

// Button is a submit button of a list's form
type Button struct {
	Name    string
	Label   string
	Confirm string
}

// Form wraps the list in a form with a checkbox for each row
type Form struct {
	Action       string
	Hidden       map[string]string
	CheckboxName string
	// CheckboxValue returns the value of the row's checkbox, usually its ID
	CheckboxValue func(row any) string
	Buttons       []Button
}

// AdditionalRow is extra content shown above or below the table
type AdditionalRow struct {
	Below bool
	Value template.HTML
}

// List is the description of a list view
type List struct {
	ID              string
	Title           string
	BaseURL         string
	ItemsPerPage    int
	DefaultSort     string
	DefaultSortDesc bool
	NoItemsLabel    string
	Columns         []Column
	// Params are query parameters (for example an active filter) kept in sort and page links
	Params         url.Values
	GetCount       func() (int, error)
	GetItems       func(start int, limit int, sort string) ([]any, error)
	Form           *Form
	AdditionalRows []AdditionalRow
}

// Header is a column header of a built list
type Header struct {
	Column  *Column
	SortURL string
	Sorted  bool
	Desc    bool
}

// Cell is a single rendered value of a built list
type Cell struct {
	Class string
	Value template.HTML
}

// Row is a rendered row of a built list
type Row struct {
	CheckboxValue string
	Cells         []Cell
}

// PageLink is an entry of the page index. Gap is true for the "..." between non-adjacent pages
type PageLink struct {
	Label   string
	URL     string
	Current bool
	Gap     bool
}

// Built is a list with its rows fetched, ready to be rendered
type Built struct {
	List       *List
	Headers    []Header
	Rows       []Row
	TotalItems int
	Start      int
	Sort       string
	Desc       bool
	Pages      []PageLink
}

// Above returns the additional rows shown above the table
func (b *Built) Above() []AdditionalRow {
	return b.additionalRows(false)
}

// Below returns the additional rows shown below the table
func (b *Built) Below() []AdditionalRow {
	return b.additionalRows(true)
}

func (b *Built) additionalRows(below bool) []AdditionalRow {
	var rows []AdditionalRow
	for _, row := range b.List.AdditionalRows {
		if row.Below == below {
			rows = append(rows, row)
		}
	}
	return rows
}

func (l *List) itemsPerPage() int {
	if l.ItemsPerPage < 1 {
		return DefaultItemsPerPage
	}
	return l.ItemsPerPage
}

func (l *List) column(id string) *Column {
	for c := range l.Columns {
		if l.Columns[c].ID == id {
			return &l.Columns[c]
		}
	}
	return nil
}

// URL returns the list's base URL with its params and the given sort and start values
func (l *List) URL(sort string, desc bool, start int) string {
	values := url.Values{}
	for k, v := range l.Params {
		values[k] = append([]string(nil), v...)
	}
	if sort != "" {
		values.Set("sort", sort)
	}
	if desc {
		values.Set("desc", "1")
	}
	if start > 0 {
		values.Set("start", strconv.Itoa(start))
	}
	if len(values) == 0 {
		return l.BaseURL
	}
	sep := "?"
	if u, err := url.Parse(l.BaseURL); err == nil && u.RawQuery != "" {
		sep = "&"
	}
	return l.BaseURL + sep + values.Encode()
}

// resolveSort returns the requested sort column, or the default if it is missing or unknown
func (l *List) resolveSort(request *http.Request) (string, bool) {
	sort := request.FormValue("sort")
	if col := l.column(sort); col == nil || col.Sort == nil {
		return l.DefaultSort, l.DefaultSortDesc
	}
	_, desc := request.Form["desc"]
	return sort, desc
}

// ClampStart keeps start within [0, count) and moves it to the beginning of its page
func ClampStart(start int, count int, perPage int) int {
	if perPage < 1 {
		perPage = DefaultItemsPerPage
	}
	if start >= count {
		start = count - 1
	}
	if start < 0 {
		return 0
	}
	return start - start%perPage
}

// Build fetches the list's rows using the sort and start values of the request
func (l *List) Build(request *http.Request) (*Built, error) {
	if l.GetCount == nil {
		return nil, ErrNoCountFunc
	}
	if l.GetItems == nil {
		return nil, ErrNoItemsFunc
	}
	sortID, desc := l.resolveSort(request)
	perPage := l.itemsPerPage()

	count, err := l.GetCount()
	if err != nil {
		return nil, err
	}
	start, _ := strconv.Atoi(request.FormValue("start"))
	start = ClampStart(start, count, perPage)

	var orderBy string
	if col := l.column(sortID); col != nil && col.Sort != nil {
		orderBy = col.Sort.Asc
		if desc {
			orderBy = col.Sort.Desc
		}
	}
	items, err := l.GetItems(start, perPage, orderBy)
	if err != nil {
		return nil, err
	}

	built := &Built{
		List:       l,
		TotalItems: count,
		Start:      start,
		Sort:       sortID,
		Desc:       desc,
		Pages:      l.pageIndex(sortID, desc, start, count, perPage),
	}
	for c := range l.Columns {
		col := &l.Columns[c]
		header := Header{Column: col}
		if col.Sort != nil {
			header.Sorted = col.ID == sortID
			header.Desc = header.Sorted && desc
			// clicking the sorted column toggles the direction
			header.SortURL = l.URL(col.ID, header.Sorted && !desc, 0)
		}
		built.Headers = append(built.Headers, header)
	}
	for _, item := range items {
		var row Row
		if l.Form != nil && l.Form.CheckboxValue != nil {
			row.CheckboxValue = l.Form.CheckboxValue(item)
		}
		for _, col := range l.Columns {
			cell := Cell{Class: col.Class}
			if col.Value != nil {
				cell.Value = col.Value(item)
			}
			row.Cells = append(row.Cells, cell)
		}
		built.Rows = append(built.Rows, row)
	}
	return built, nil
}

// pageIndex returns links to the first and last pages and the pages around the current one
func (l *List) pageIndex(sort string, desc bool, start int, count int, perPage int) []PageLink {
	numPages := (count + perPage - 1) / perPage
	if numPages < 2 {
		return nil
	}
	current := start / perPage
	var links []PageLink
	lastAdded := -1
	for p := 0; p < numPages; p++ {
		if p != 0 && p != numPages-1 && (p < current-pageWindow || p > current+pageWindow) {
			continue
		}
		if lastAdded >= 0 && p > lastAdded+1 {
			links = append(links, PageLink{Label: "...", Gap: true})
		}
		links = append(links, PageLink{
			Label:   strconv.Itoa(p + 1),
			URL:     l.URL(sort, desc, p*perPage),
			Current: p == current,
		})
		lastAdded = p
	}
	return links
}

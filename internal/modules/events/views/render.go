package views

import (
	"errors"
	"html/template"
	"io"
	"io/fs"
)

var pagesTmpl *template.Template

var errNotLoaded = errors.New("templates not loaded: call views.LoadTemplates during startup")

// loadTemplatesFromFS loads page templates from the given fs and dir.
// Used by LoadTemplates and by tests to simulate failure scenarios.
func loadTemplatesFromFS(fsys fs.FS, dir string) error {
	sub, err := fs.Sub(fsys, dir)
	if err != nil {
		return err
	}
	pagesTmpl, err = template.ParseFS(sub, "*.html", "partials/*.html")
	if err != nil {
		return err
	}
	return nil
}

// LoadTemplates loads the embedded page templates. Call during startup before
// serving requests; if it returns an error, do not start the server.
func LoadTemplates() error {
	return loadTemplatesFromFS(viewsFS, "templates")
}

type ChartLink struct {
	Path  string
	Title string
}

type IndexData struct {
	Title  string
	Total  int
	Charts []ChartLink
}

func RenderIndex(w io.Writer, data *IndexData) error {
	if pagesTmpl == nil {
		return errNotLoaded
	}
	return pagesTmpl.ExecuteTemplate(w, "index.html", data)
}

// Bar is one horizontal bar; Percent is relative to the largest bucket.
type Bar struct {
	Label   string
	Count   int
	Percent float64
}

type ChartData struct {
	Title      string
	ChartTitle string
	Total      int
	Bars       []Bar
	Charts     []ChartLink
}

func RenderChart(w io.Writer, data *ChartData) error {
	if pagesTmpl == nil {
		return errNotLoaded
	}
	return pagesTmpl.ExecuteTemplate(w, "chart.html", data)
}

type Option struct {
	Value    string
	Label    string
	Selected bool
}

type EventRow struct {
	ID          int64
	Name        string
	Date        string
	Category    string
	Location    string
	Region      string
	Temperature string
	Weather     string
}

// ExploreData is the view model for the filter form and result table.
type ExploreData struct {
	Title    string
	Warnings []string

	AllCategories bool
	Categories    []Option
	AllLocations  bool
	Locations     []Option

	AllTemps bool
	MinTemp  string
	MaxTemp  string
	TempLow  string
	TempHigh string

	AllDates bool
	Start    string
	End      string

	SortFields []Option
	Orders     []Option

	Events []EventRow
	Count  int
	Total  int

	// Query is the encoded current selection, reused by the export links.
	Query template.URL
}

func RenderExplore(w io.Writer, data *ExploreData) error {
	if pagesTmpl == nil {
		return errNotLoaded
	}
	return pagesTmpl.ExecuteTemplate(w, "explore.html", data)
}

// RenderEventsPartial executes only the result table.
func RenderEventsPartial(w io.Writer, data *ExploreData) error {
	if pagesTmpl == nil {
		return errNotLoaded
	}
	return pagesTmpl.ExecuteTemplate(w, "events-table", data)
}

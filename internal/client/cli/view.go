package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/iudanet/esps-console/internal/client/filter"
	"github.com/iudanet/esps-console/internal/client/menu"
	"github.com/iudanet/esps-console/internal/client/poller"
	"github.com/iudanet/esps-console/internal/config"
	"github.com/iudanet/esps-console/internal/models"
)

// readyTimeout ограничивает ожидание первичной загрузки при открытии представления
const readyTimeout = 30 * time.Second

// tableView - смонтированное представление incoming или outgoing
type tableView struct {
	poller    *poller.Poller
	tables    map[models.Source]*tableState
	direction models.Direction
	active    models.Source
}

// tableState - состояние фильтров одной таблицы; живет только пока открыто представление
type tableState struct {
	engine   *filter.Engine
	criteria filter.Criteria
	page     int
	pageSize int
}

var tableColumns = map[models.Source][]string{
	models.SourceEcertIn:   {"tgl_cert", "no_cert", "doc_type", "komo_eng", "port_asal", "port_tuju"},
	models.SourceEphytoIn:  {"tgl_cert", "no_cert", "doc_type", "komo_eng", "neg_asal", "port_tuju", "data_from"},
	models.SourceEahOut:    {"tgl_cert", "no_cert", "doc_type", "komoditi", "neg_tuju", "upt", "send_to"},
	models.SourceEphytoOut: {"tgl_cert", "no_cert", "doc_type", "komoditi", "neg_tuju", "upt", "send_to"},
	models.SourceEcertOut:  {"tgl_cert", "no_cert", "doc_type", "komoditi", "neg_tuju", "upt", "send_to"},
}

func (c *Cli) runOpen(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: open <incoming|outgoing|dashboard|admin/...>")
	}
	if _, err := c.requireSession(); err != nil {
		return err
	}
	if _, err := c.enter(ctx, true); err != nil {
		return err
	}

	key := strings.ToLower(args[0])
	item, ok := menu.Find(menu.Resolve(c.capabilities()), key)
	if !ok {
		return fmt.Errorf("%q is not in your menu", key)
	}

	switch item.Key {
	case menu.KeyIncoming:
		return c.mount(ctx, models.DirectionIncoming)
	case menu.KeyOutgoing:
		return c.mount(ctx, models.DirectionOutgoing)
	case menu.KeyDashboard:
		c.unmount()
		return c.runStatus(ctx)
	default:
		c.unmount()
		if len(item.Children) > 0 {
			c.printMenu([]menu.Item{item})
			return nil
		}
		c.io.Printf("%s is managed in the web administration, it is not available in the console.\n", item.Label)
		return nil
	}
}

// mount запускает polling источников направления и печатает первую таблицу
func (c *Cli) mount(ctx context.Context, dir models.Direction) error {
	c.unmount()

	sources := models.Sources(dir)
	p := poller.New(collectionFetcher{c: c}, sources,
		poller.WithInterval(c.opts.PollInterval),
		poller.WithLogger(c.logger),
		poller.WithRecorder(refreshRecorder{meta: c.meta}),
		poller.WithErrorHandler(func(_ models.Source, err error) { c.handleFetchError(err) }),
	)

	v := &tableView{
		poller:    p,
		direction: dir,
		active:    sources[0],
		tables:    make(map[models.Source]*tableState, len(sources)),
	}
	for _, src := range sources {
		v.tables[src] = &tableState{
			engine:   filter.ForSource(src, c.opts.Labels),
			page:     1,
			pageSize: c.opts.PageSize,
		}
	}
	c.view = v
	p.Start(ctx)

	c.io.Println("Loading...")
	select {
	case <-p.Ready():
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(readyTimeout):
		c.io.Println("Some tables are still loading, use 'table' to check later.")
	}

	c.checkExpired()
	if c.view == nil {
		return errNotLoggedIn
	}
	return c.runTable()
}

func (c *Cli) currentView() (*tableView, *tableState, error) {
	if c.view == nil {
		return nil, nil, fmt.Errorf("no view is open, run 'open incoming' or 'open outgoing'")
	}
	return c.view, c.view.tables[c.view.active], nil
}

// runTab переключает таблицу внутри представления: навигация внутри защищенной
// части, повторная проверка токена не нужна
func (c *Cli) runTab(ctx context.Context, args []string) error {
	v, _, err := c.currentView()
	if err != nil {
		return err
	}
	if len(args) != 1 {
		return fmt.Errorf("usage: tab <%s>", joinSources(v.poller.Sources()))
	}
	src, err := models.ParseSource(strings.ToLower(args[0]))
	if err != nil {
		return err
	}
	if _, ok := v.tables[src]; !ok {
		return fmt.Errorf("table %s is not part of %s, use one of: %s", src, v.direction, joinSources(v.poller.Sources()))
	}
	if _, err := c.enter(ctx, false); err != nil {
		return err
	}

	c.loader.Close()
	v.active = src
	return c.runTable()
}

func (c *Cli) runRefresh(ctx context.Context) error {
	v, _, err := c.currentView()
	if err != nil {
		return err
	}
	if err := v.poller.Refresh(ctx); err != nil {
		return err
	}
	c.checkExpired()
	if c.view == nil {
		return errNotLoggedIn
	}
	return c.runTable()
}

func (c *Cli) runSearch(query string) error {
	_, t, err := c.currentView()
	if err != nil {
		return err
	}
	t.criteria.Query = query
	t.page = 1
	return c.runTable()
}

func (c *Cli) runRange(args []string) error {
	_, t, err := c.currentView()
	if err != nil {
		return err
	}
	switch {
	case len(args) == 1 && strings.EqualFold(args[0], "clear"):
		t.criteria.Range = nil
	case len(args) == 2:
		r, err := filter.ParseDateRange(args[0], args[1])
		if err != nil {
			return err
		}
		t.criteria.Range = r
	default:
		return fmt.Errorf("usage: range <YYYY-MM-DD> <YYYY-MM-DD> | range clear")
	}
	t.page = 1
	return c.runTable()
}

func (c *Cli) runFacet(args []string) error {
	_, t, err := c.currentView()
	if err != nil {
		return err
	}
	if t.engine.FacetField == "" {
		return fmt.Errorf("facet filter is available on outgoing tables only")
	}
	if len(args) != 1 {
		return fmt.Errorf("usage: facet <%s> | facet clear", t.engine.FacetField)
	}
	if strings.EqualFold(args[0], "clear") {
		t.criteria.Facet = ""
	} else {
		t.criteria.Facet = args[0]
	}
	t.page = 1
	return c.runTable()
}

func (c *Cli) runFacets() error {
	v, t, err := c.currentView()
	if err != nil {
		return err
	}
	if t.engine.FacetField == "" {
		return fmt.Errorf("facet filter is available on outgoing tables only")
	}
	coll, _ := v.poller.Snapshot(v.active)
	values := filter.Facets(coll.Records, t.engine.FacetField)
	if len(values) == 0 {
		c.io.Println("No values")
		return nil
	}
	for _, val := range values {
		if label, ok := t.engine.Labels[t.engine.FacetField][val]; ok {
			c.io.Printf("  %s  %s\n", val, label)
			continue
		}
		c.io.Printf("  %s\n", val)
	}
	return nil
}

func (c *Cli) runClear() error {
	_, t, err := c.currentView()
	if err != nil {
		return err
	}
	t.criteria = filter.Criteria{}
	t.page = 1
	return c.runTable()
}

func (c *Cli) runPage(args []string) error {
	_, t, err := c.currentView()
	if err != nil {
		return err
	}
	if len(args) != 1 {
		return fmt.Errorf("usage: page <n>")
	}
	n, err := strconv.Atoi(args[0])
	if err != nil || n < 1 {
		return fmt.Errorf("invalid page %q", args[0])
	}
	t.page = n
	return c.runTable()
}

func (c *Cli) runPageSize(args []string) error {
	_, t, err := c.currentView()
	if err != nil {
		return err
	}
	if len(args) != 1 {
		return fmt.Errorf("usage: pagesize <5|10|20>")
	}
	n, err := strconv.Atoi(args[0])
	if err != nil || !config.ValidPageSize(n) {
		return fmt.Errorf("page size must be one of %v", config.PageSizes)
	}
	t.pageSize = n
	t.page = 1
	return c.runTable()
}

// currentRows применяет фильтры к снимку активной таблицы
func (c *Cli) currentRows() (poller.Collection, []filter.Row, error) {
	v, t, err := c.currentView()
	if err != nil {
		return poller.Collection{}, nil, err
	}
	coll, _ := v.poller.Snapshot(v.active)
	return coll, t.engine.Apply(coll.Records, t.criteria), nil
}

func (c *Cli) runTable() error {
	v, t, err := c.currentView()
	if err != nil {
		return err
	}
	coll, rows, err := c.currentRows()
	if err != nil {
		return err
	}

	c.io.Printf("=== %s / %s ===\n", v.direction, v.active)
	if f := describeCriteria(t.criteria); f != "" {
		c.io.Printf("Filters: %s\n", f)
	}
	switch {
	case !coll.Loaded:
		c.io.Println("Loading...")
		return nil
	case coll.Err != nil:
		c.io.Printf("Failed to load %s, showing no data (%v)\n", v.active, coll.Err)
	}

	pages := (len(rows) + t.pageSize - 1) / t.pageSize
	if pages == 0 {
		pages = 1
	}
	if t.page > pages {
		t.page = pages
	}
	start := (t.page - 1) * t.pageSize
	end := min(start+t.pageSize, len(rows))

	columns := tableColumns[v.active]
	w := tabwriter.NewWriter(c.io, 0, 0, 2, ' ', 0)
	header := append([]string{"KEY"}, columns...)
	fmt.Fprintln(w, strings.ToUpper(strings.Join(header, "\t")))
	for _, row := range rows[start:end] {
		cells := make([]string, 0, len(columns)+1)
		cells = append(cells, row.Key)
		for _, col := range columns {
			cells = append(cells, cell(row.Display[col]))
		}
		fmt.Fprintln(w, strings.Join(cells, "\t"))
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("failed to render table: %w", err)
	}

	c.io.Printf("Page %d/%d, %d of %d record(s), updated %s\n",
		t.page, pages, len(rows), len(coll.Records), coll.UpdatedAt.Local().Format(time.TimeOnly))
	return nil
}

func describeCriteria(cr filter.Criteria) string {
	var parts []string
	if cr.Query != "" {
		parts = append(parts, fmt.Sprintf("search=%q", cr.Query))
	}
	if cr.Range.Active() {
		parts = append(parts, "date="+cr.Range.String())
	}
	if cr.Facet != "" {
		parts = append(parts, "upt="+cr.Facet)
	}
	return strings.Join(parts, " ")
}

func cell(s string) string {
	s = strings.ReplaceAll(s, "\t", " ")
	s = strings.ReplaceAll(s, "\n", " ")
	if s == "" {
		return "-"
	}
	if r := []rune(s); len(r) > 40 {
		return string(r[:39]) + "…"
	}
	return s
}

func joinSources(sources []models.Source) string {
	names := make([]string, len(sources))
	for i, s := range sources {
		names[i] = string(s)
	}
	return strings.Join(names, "|")
}

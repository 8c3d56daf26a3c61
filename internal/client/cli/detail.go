package cli

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/iudanet/esps-console/internal/client/document"
	"github.com/iudanet/esps-console/internal/client/filter"
)

// runShow открывает карточку записи. Карточка держит отсоединенную копию записи,
// поэтому обновление таблицы ее не затрагивает.
func (c *Cli) runShow(ctx context.Context, args []string) error {
	v, _, err := c.currentView()
	if err != nil {
		return err
	}
	if len(args) != 1 {
		return fmt.Errorf("usage: show <key>")
	}
	if _, err := c.enter(ctx, false); err != nil {
		return err
	}

	_, rows, err := c.currentRows()
	if err != nil {
		return err
	}
	row, ok := findRow(rows, args[0])
	if !ok {
		return fmt.Errorf("no row with key %q in the current table", args[0])
	}

	dv := c.loader.Open(row.Raw, v.active)
	c.printDetail(row, dv)
	return nil
}

func findRow(rows []filter.Row, key string) (filter.Row, bool) {
	for _, r := range rows {
		if r.Key == key {
			return r, true
		}
	}
	return filter.Row{}, false
}

func (c *Cli) printDetail(row filter.Row, dv *document.View) {
	c.io.Println("=== Detail ===")

	fields := make([]string, 0, len(row.Display))
	for f := range row.Display {
		if f == "xml" || f == "xmlsigned" {
			continue
		}
		fields = append(fields, f)
	}
	sort.Strings(fields)

	for _, f := range fields {
		c.io.Printf("  %-16s %s\n", strings.ReplaceAll(f, "_", " "), row.Display[f])
	}
	for _, f := range dv.Fields() {
		c.io.Printf("  %-16s [%s] use 'load %s'\n", f, dv.State(f), f)
	}
}

func (c *Cli) currentDetail() (*document.View, error) {
	dv := c.loader.Current()
	if dv == nil {
		return nil, fmt.Errorf("no record is open, run 'show <key>'")
	}
	return dv, nil
}

func (c *Cli) runLoad(ctx context.Context, args []string) error {
	dv, err := c.currentDetail()
	if err != nil {
		return err
	}
	if len(args) != 1 {
		return fmt.Errorf("usage: load <%s>", strings.Join(dv.Fields(), "|"))
	}
	field := strings.ToLower(args[0])

	if dv.State(field) != document.StateLoaded {
		c.io.Printf("Loading %s...\n", field)
	}
	content, err := dv.Load(ctx, field)
	switch {
	case errors.Is(err, document.ErrInFlight):
		c.io.Printf("%s is already loading\n", field)
		return nil
	case errors.Is(err, document.ErrMissingID), errors.Is(err, document.ErrStale):
		return nil
	case err != nil:
		c.checkExpired()
		if errors.Is(err, document.ErrUnknownField) {
			return err
		}
		// уведомление уже показано, ошибка не прерывает работу консоли
		return nil
	}

	c.io.Printf("--- %s ---\n", field)
	_, _ = c.io.Write([]byte(content))
	if !strings.HasSuffix(content, "\n") {
		c.io.Println()
	}
	c.io.Printf("--- end of %s ---\n", field)
	return nil
}

func (c *Cli) runCopy(args []string) error {
	dv, err := c.currentDetail()
	if err != nil {
		return err
	}
	if len(args) != 1 {
		return fmt.Errorf("usage: copy <%s>", strings.Join(dv.Fields(), "|"))
	}
	// об успехе и ошибке сообщает Notifier
	_ = dv.Copy(strings.ToLower(args[0]))
	return nil
}

func (c *Cli) runClose() error {
	if _, err := c.currentDetail(); err != nil {
		return err
	}
	c.loader.Close()
	return nil
}

package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/matst80/slask-fordon/pkg/client"
	"github.com/matst80/slask-fordon/pkg/filterstore"
	"github.com/matst80/slask-fordon/pkg/types"
	"github.com/peterh/liner"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/pflag"
)

var (
	apiUrl    = pflag.StringP("api", "a", "http://localhost:8080", "inventory api base url")
	namespace = pflag.StringP("namespace", "n", filterstore.DefaultNamespace, "namespace of the persisted filters")
	redisAddr = pflag.String("redis", "", "keep filters in redis instead of the user config dir")
	session   = pflag.String("session", "", "session id for filters kept in redis")
	pageSize  = pflag.Int("size", 10, "vehicles per page")
	timeout   = pflag.Duration("timeout", 5*time.Second, "request timeout")
)

var commands = []string{
	"vendor", "category", "chassis", "vehicle", "find", "clear",
	"filters", "list", "facets", "years", "search", "help", "exit",
}

type browser struct {
	store  *filterstore.Store
	api    *client.Client
	liner  *liner.State
	out    io.Writer
	page   int
	closed bool
}

func configDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "slask-fordon")
}

func openStorage() filterstore.Storage {
	if *redisAddr != "" {
		id := *session
		if id == "" {
			id = uuid.NewString()
			log.Printf("using new filter session %s", id)
		}
		return filterstore.Probe(&filterstore.RedisStorage{
			Client:     redis.NewClient(&redis.Options{Addr: *redisAddr}),
			Session:    id,
			Expiration: 30 * 24 * time.Hour,
		})
	}
	dir := configDir()
	if dir == "" {
		return filterstore.NullStorage{}
	}
	return filterstore.Probe(&filterstore.FileStorage{Dir: dir})
}

func (b *browser) ctx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), *timeout)
}

func (b *browser) printFilters(state types.FilterState) {
	fmt.Fprintf(b.out, "vendors: %s\n", strings.Join(state.Vendors, ", "))
	fmt.Fprintf(b.out, "categories: %s\n", strings.Join(state.Categories, ", "))
	fmt.Fprintf(b.out, "chassis: %s\n", strings.Join(state.Chassis, ", "))
	if state.Vehicle != nil {
		fmt.Fprintf(b.out, "vehicle: %s %d\n", state.Vehicle.Model, state.Vehicle.Year)
	}
	if state.SearchTerm != "" {
		fmt.Fprintf(b.out, "search: %q\n", state.SearchTerm)
	}
}

func (b *browser) cmdVehicle(args []string) {
	if len(args) == 0 || (len(args) == 1 && args[0] == "clear") {
		b.store.ClearVehicle()
		return
	}
	if len(args) < 2 {
		fmt.Fprintln(b.out, "usage: vehicle <model> <year> | vehicle clear")
		return
	}
	year, err := strconv.Atoi(args[len(args)-1])
	if err != nil || year <= 0 {
		fmt.Fprintf(b.out, "not a year: %s\n", args[len(args)-1])
		return
	}
	b.store.SetVehicle(strings.Join(args[:len(args)-1], " "), year)
}

func (b *browser) cmdFind(args []string) {
	if len(args) == 0 {
		b.store.ClearSearchTerm()
		return
	}
	b.store.SetSearchTerm(strings.Join(args, " "))
}

func (b *browser) cmdList(args []string) {
	if len(args) > 0 {
		if p, err := strconv.Atoi(args[0]); err == nil && p > 0 {
			b.page = p
		}
	}
	ctx, cancel := b.ctx()
	defer cancel()
	res, err := b.api.Vehicles(ctx, b.store.State(), types.PageRequest{Page: b.page, PageSize: *pageSize})
	if err != nil {
		fmt.Fprintf(b.out, "could not list vehicles: %v\n", err)
		return
	}
	switch res.State {
	case types.StateFailed:
		fmt.Fprintln(b.out, "the inventory is unavailable, try again")
		return
	case types.StateEmpty:
		fmt.Fprintln(b.out, "no vehicles match the filters")
		return
	}
	w := tabwriter.NewWriter(b.out, 0, 4, 2, ' ', 0)
	for _, item := range res.Items {
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%s\n", item.Id, item.Title, item.Year, item.Price, item.Status)
	}
	_ = w.Flush()
	fmt.Fprintf(b.out, "page %d of %d, %d vehicles\n", res.Page, res.TotalPages, res.TotalHits)
}

func (b *browser) cmdFacets() {
	ctx, cancel := b.ctx()
	defer cancel()
	facets, err := b.api.Facets(ctx, b.store.State())
	if err != nil {
		fmt.Fprintf(b.out, "could not load facets: %v\n", err)
		return
	}
	for _, f := range facets {
		fmt.Fprintf(b.out, "%s:\n", f.Name)
		for _, o := range f.Options {
			mark := " "
			for _, s := range f.Selected {
				if s == o.Value {
					mark = "*"
				}
			}
			fmt.Fprintf(b.out, "  %s %s (%d)\n", mark, o.Label, o.Count)
		}
	}
}

func (b *browser) cmdYears(args []string) {
	filters := types.YearFilters{Chassis: b.store.State().Chassis}
	if len(args) > 0 {
		filters.Chassis = args
	}
	ctx, cancel := b.ctx()
	defer cancel()
	years, state, err := b.api.YearDistribution(ctx, filters)
	if err != nil {
		fmt.Fprintf(b.out, "year distribution unavailable: %v\n", err)
		return
	}
	if state == types.StateFailed {
		fmt.Fprintln(b.out, "year distribution unavailable, try again")
		return
	}
	if len(years) == 0 {
		fmt.Fprintln(b.out, "no vehicles for these chassis")
		return
	}
	peak := 1
	for _, y := range years {
		peak = max(peak, y.Count)
	}
	for _, y := range years {
		fmt.Fprintf(b.out, "%d %-40s %d\n", y.Year, strings.Repeat("#", y.Count*40/peak), y.Count)
	}
}

func (b *browser) cmdSearch(args []string) {
	if len(args) == 0 {
		fmt.Fprintln(b.out, "usage: search <text> [vehicles|parts|all]")
		return
	}
	domain := types.DomainAll
	if last := types.ParseDomain(args[len(args)-1]); last != types.DomainAll && len(args) > 1 {
		domain = last
		args = args[:len(args)-1]
	}
	ctx, cancel := b.ctx()
	defer cancel()
	res, err := b.api.Search(ctx, types.SearchRequest{Query: strings.Join(args, " "), Domain: domain, Page: 1, PageSize: *pageSize})
	if err != nil {
		fmt.Fprintf(b.out, "search failed: %v\n", err)
		return
	}
	for _, r := range res.Results {
		fmt.Fprintf(b.out, "%s (%d, %s)\n", r.Domain, r.Total, r.State)
		for _, item := range r.Items {
			fmt.Fprintf(b.out, "  %s  %s\n", item.Id, item.Title)
		}
	}
}

func (b *browser) printHelp() {
	fmt.Fprintln(b.out, `vendor <name>          toggle a vendor
category <name>        toggle a category
chassis <code>         toggle a chassis
vehicle <model> <year> pin a vehicle, "vehicle clear" unpins
find [text]            set or clear the search term
clear                  clear all filters
filters                show the active filters
list [page]            list matching vehicles
facets                 show facet counts
years [chassis...]     year distribution of current vehicles
search <text> [domain] free text search over vehicles and parts
exit                   leave`)
}

func (b *browser) completer(line string) []string {
	ret := make([]string, 0)
	for _, c := range commands {
		if strings.HasPrefix(c, strings.ToLower(line)) {
			ret = append(ret, c)
		}
	}
	return ret
}

func (b *browser) exec(line string) {
	parts := strings.Fields(line)
	cmd := strings.ToLower(parts[0])
	args := parts[1:]
	arg := strings.Join(args, " ")

	switch cmd {
	case "exit", "quit":
		b.closed = true
	case "help", "?":
		b.printHelp()
	case "vendor":
		b.store.ToggleVendor(arg)
	case "category":
		b.store.ToggleCategory(arg)
	case "chassis":
		b.store.ToggleChassis(arg)
	case "vehicle":
		b.cmdVehicle(args)
	case "find":
		b.cmdFind(args)
	case "clear":
		b.store.ClearFilters()
	case "filters":
		b.printFilters(b.store.State())
	case "list", "ls":
		b.cmdList(args)
	case "facets":
		b.cmdFacets()
	case "years":
		b.cmdYears(args)
	case "search":
		b.cmdSearch(args)
	default:
		fmt.Fprintf(b.out, "Unknown command: %s (type 'help' for commands)\n", cmd)
	}
}

func historyFile() string {
	dir := configDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "history")
}

func (b *browser) run() error {
	b.liner = liner.NewLiner()
	defer b.liner.Close()
	b.liner.SetCtrlCAborts(true)
	b.liner.SetCompleter(b.completer)

	if f, err := os.Open(historyFile()); err == nil {
		_, _ = b.liner.ReadHistory(f)
		f.Close()
	}
	defer b.saveHistory()

	if !b.store.Persistent() {
		fmt.Fprintln(b.out, "filters will not be kept after exit")
	}
	for !b.closed {
		line, err := b.liner.Prompt("fordon> ")
		if err != nil {
			if err == liner.ErrPromptAborted || err == io.EOF {
				return nil
			}
			return fmt.Errorf("reading input: %w", err)
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		b.liner.AppendHistory(line)
		b.exec(line)
	}
	return nil
}

func (b *browser) saveHistory() {
	path := historyFile()
	if path == "" {
		return
	}
	if f, err := os.Create(path); err == nil {
		_, _ = b.liner.WriteHistory(f)
		f.Close()
	}
}

func main() {
	pflag.Parse()

	b := &browser{
		store: filterstore.New(openStorage(), *namespace),
		api:   client.New(*apiUrl),
		out:   os.Stdout,
		page:  1,
	}
	unsubscribe := b.store.Subscribe(func(state types.FilterState) {
		b.page = 1
		b.printFilters(state)
	})
	defer unsubscribe()

	if err := b.run(); err != nil {
		log.Fatal(err)
	}
}

package main

import (
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/user/dopewars-engine/internal/game"
	"github.com/user/dopewars-engine/internal/tables"
	"github.com/user/dopewars-engine/internal/types"
)

func renderMarket(w io.Writer, view *types.StatusView) {
	titleColor := color.New(color.FgCyan, color.Bold)
	titleColor.Fprintf(w, "🛒 %s, day %d/%d\n", view.City, view.Day, view.MaxDays)

	table := tablewriter.NewTable(w,
		tablewriter.WithHeader([]string{"Item", "Price", "Owned"}),
	)
	for _, q := range view.Market {
		price := game.FormatMoney(q.Price)
		if q.Discounted {
			price += " *"
		}
		_ = table.Append([]string{q.Item, price, strconv.Itoa(q.Owned)})
	}
	_ = table.Render()

	infoColor := color.New(color.FgYellow)
	if ev := view.ActiveEvent; ev != nil {
		infoColor.Fprintf(w, "📰 %s in %s (until day %d)\n", ev.Description, ev.AffectedCity, ev.ExpiresOnDay)
	}
	if view.LoanShark {
		infoColor.Fprintln(w, "🦈 The loan shark is in town")
	}
	fmt.Fprintf(w, "Cash %s, space %d/%d\n",
		game.FormatMoney(view.Player.Cash), view.Player.InventoryUsed, view.Player.InventorySpace)
}

func renderStatus(w io.Writer, view *types.StatusView) {
	p := view.Player
	titleColor := color.New(color.FgCyan, color.Bold)
	titleColor.Fprintf(w, "📊 Day %d/%d in %s\n", view.Day, view.MaxDays, view.City)

	money := tablewriter.NewTable(w,
		tablewriter.WithHeader([]string{"Cash", "Bank", "Debt", "Net worth"}),
	)
	_ = money.Append([]string{
		game.FormatMoney(p.Cash),
		game.FormatMoney(p.BankBalance),
		game.FormatMoney(p.Debt),
		game.FormatMoney(view.NetWorth),
	})
	_ = money.Render()

	if len(p.Inventory) > 0 {
		inv := tablewriter.NewTable(w,
			tablewriter.WithHeader([]string{"Item", "Quantity"}),
		)
		for _, item := range sortedItems(p.Inventory) {
			_ = inv.Append([]string{item, strconv.Itoa(p.Inventory[item])})
		}
		_ = inv.Render()
	}
	fmt.Fprintf(w, "Space %d/%d\n", p.InventoryUsed, p.InventorySpace)

	if len(p.StashHouses) > 0 {
		stash := tablewriter.NewTable(w,
			tablewriter.WithHeader([]string{"Stash", "Used", "Capacity"}),
		)
		for _, sh := range p.StashHouses {
			_ = stash.Append([]string{sh.City, strconv.Itoa(sh.Used), strconv.Itoa(sh.Capacity)})
		}
		_ = stash.Render()
	}

	if p.Alliance != "" {
		fmt.Fprintf(w, "🤝 Alliance: %s\n", p.Alliance)
	}
	if m := view.ActiveMission; m != nil {
		fmt.Fprintf(w, "🎯 Mission: %s\n", m.Title)
	}
	if view.Phase.Terminal() {
		color.New(color.FgRed, color.Bold).Fprintf(w, "🏁 %s\n", view.GameOverMessage)
	}
}

func renderTables(w io.Writer, t *tables.Tables) {
	cities := tablewriter.NewTable(w,
		tablewriter.WithHeader([]string{"City", "Overseas"}),
	)
	for _, c := range t.Cities {
		overseas := ""
		if c.Overseas {
			overseas = "yes"
		}
		_ = cities.Append([]string{c.Name, overseas})
	}
	_ = cities.Render()

	items := tablewriter.NewTable(w,
		tablewriter.WithHeader([]string{"Item", "Base price"}),
	)
	for _, it := range t.Items {
		_ = items.Append([]string{it.Name, game.FormatMoney(it.BasePrice)})
	}
	_ = items.Render()
}

func sortedItems(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

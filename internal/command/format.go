package command

import (
	"fmt"
	"sort"
	"strings"

	"github.com/user/dopewars-engine/internal/game"
	"github.com/user/dopewars-engine/internal/tables"
	"github.com/user/dopewars-engine/internal/types"
)

var money = game.FormatMoney

// formatStatus renders the player's situation
func formatStatus(view *types.StatusView) string {
	p := view.Player

	var b strings.Builder
	fmt.Fprintf(&b, "📊 *DAY %d/%d* in *%s*\n\n", view.Day, view.MaxDays, view.City)
	fmt.Fprintf(&b, "💵 Cash: %s\n", money(p.Cash))
	fmt.Fprintf(&b, "🏦 Bank: %s\n", money(p.BankBalance))
	if p.Debt > 0 {
		fmt.Fprintf(&b, "💀 Debt: %s\n", money(p.Debt))
	}
	fmt.Fprintf(&b, "💰 Net worth: %s\n\n", money(view.NetWorth))

	fmt.Fprintf(&b, "🎒 *Inventory* %d/%d\n", p.InventoryUsed, p.InventorySpace)
	for _, item := range sortedKeys(p.Inventory) {
		fmt.Fprintf(&b, "   %s: %d\n", item, p.Inventory[item])
	}

	if len(p.StashHouses) > 0 {
		b.WriteString("\n🏠 *Stash houses*\n")
		for _, sh := range p.StashHouses {
			fmt.Fprintf(&b, "   %s: %d/%d\n", sh.City, sh.Used, sh.Capacity)
			for _, item := range sortedKeys(sh.Contents) {
				fmt.Fprintf(&b, "      %s: %d\n", item, sh.Contents[item])
			}
		}
	}

	if p.Alliance != "" {
		fmt.Fprintf(&b, "\n🤝 Alliance: %s\n", p.Alliance)
	}
	if view.ActiveMission != nil {
		fmt.Fprintf(&b, "\n🎯 Mission: %s\n   %s\n", view.ActiveMission.Title, describeObjective(*view.ActiveMission))
	}
	if view.Phase.Terminal() {
		fmt.Fprintf(&b, "\n🏁 %s\n", view.GameOverMessage)
	}
	return strings.TrimRight(b.String(), "\n")
}

// formatMarket renders current-city prices
func formatMarket(view *types.StatusView) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🛒 *MARKET: %s* (day %d)\n\n", view.City, view.Day)

	discounted := false
	for _, q := range view.Market {
		mark := ""
		if q.Discounted {
			mark = "*"
			discounted = true
		}
		if q.Owned > 0 {
			fmt.Fprintf(&b, "%s: %s%s (you have %d)\n", q.Item, money(q.Price), mark, q.Owned)
		} else {
			fmt.Fprintf(&b, "%s: %s%s\n", q.Item, money(q.Price), mark)
		}
	}
	if discounted {
		b.WriteString("\n* alliance price\n")
	}
	if ev := view.ActiveEvent; ev != nil {
		fmt.Fprintf(&b, "\n📰 %s in %s (until day %d)\n", ev.Description, ev.AffectedCity, ev.ExpiresOnDay)
	}
	if view.LoanShark {
		b.WriteString("\n🦈 The loan shark is in town. /loan or /repay\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// formatTravel renders the lines a trip produced
func formatTravel(report *types.TravelReport) string {
	var b strings.Builder
	if report.Bust != nil {
		b.WriteString("🚨 ")
	} else {
		b.WriteString("✈️ ")
	}
	fmt.Fprintf(&b, "*%s → %s*\n\n", report.From, report.To)
	for _, line := range report.Log {
		b.WriteString(line)
		b.WriteByte('\n')
	}
	if report.Phase.Terminal() {
		b.WriteString("\n🏁 Start again with /new\n")
	} else {
		fmt.Fprintf(&b, "\n💰 Net worth: %s\n", money(report.NetWorth))
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatCities(t *tables.Tables, current string) string {
	var b strings.Builder
	b.WriteString("🗺️ *CITIES*\n\n")
	for _, c := range t.Cities {
		line := c.Name
		if c.Overseas {
			line += " ✈️"
		}
		if c.Name == current {
			line += " (you are here)"
		}
		b.WriteString(line + "\n")
	}
	b.WriteString("\n✈️ overseas: customs are tougher")
	return b.String()
}

func formatAlliances(t *tables.Tables, current string) string {
	var b strings.Builder
	b.WriteString("🤝 *ALLIANCES*\n")
	for _, a := range t.Alliances {
		fmt.Fprintf(&b, "\n*%s*", a.Name)
		if a.Name == current {
			b.WriteString(" (member)")
		}
		fmt.Fprintf(&b, "\n   Home: %s, specialty: %s\n   Fee: %s, rival: %s\n",
			a.HomeCity, a.SpecialtyItem, money(a.JoinFee), a.Rival)
	}
	b.WriteString("\nJoin with /join <alliance>")
	return b.String()
}

func formatMissions(view *types.StatusView) string {
	var b strings.Builder
	if m := view.ActiveMission; m != nil {
		fmt.Fprintf(&b, "🎯 *ACTIVE:* %s\n   %s\n   Reward: %s\n\n", m.Title, describeObjective(*m), money(m.RewardCash))
	}
	if len(view.AvailableMissions) == 0 {
		fmt.Fprintf(&b, "No missions on offer in %s.", view.City)
		return b.String()
	}

	fmt.Fprintf(&b, "📋 *MISSIONS IN %s*\n", strings.ToUpper(view.City))
	for _, m := range view.AvailableMissions {
		fmt.Fprintf(&b, "\n*%s* [%s]\n   %s\n   %s\n   Reward: %s\n",
			m.Title, m.ID, m.Description, describeObjective(m), money(m.RewardCash))
	}
	b.WriteString("\nAccept with /mission accept <id>")
	return b.String()
}

func describeObjective(m types.Mission) string {
	if d := m.Deliver; d != nil {
		return fmt.Sprintf("Deliver %d %s to %s", d.Quantity, d.Item, d.DestinationCity)
	}
	if c := m.AcquireCash; c != nil {
		return fmt.Sprintf("Hold %s in cash", money(c.TargetCash))
	}
	return ""
}

func formatHelp(durations []int) string {
	opts := make([]string, len(durations))
	for i, d := range durations {
		opts[i] = fmt.Sprint(d)
	}

	var b strings.Builder
	b.WriteString("🎮 *DOPEWARS* COMMANDS\n\n")
	b.WriteString("🎯 *GAME*\n")
	fmt.Fprintf(&b, "/new <%s> - start a new game\n", strings.Join(opts, "|"))
	b.WriteString("/load - load your saved game\n")
	b.WriteString("/save - save now\n")
	b.WriteString("/reset - start over with the same length\n")
	b.WriteString("/end - quit and delete your save\n")
	b.WriteString("/status - your situation\n\n")

	b.WriteString("🛒 *TRADING*\n")
	b.WriteString("/market - prices here\n")
	b.WriteString("/buy <item> <qty>\n")
	b.WriteString("/sell <item> <qty>\n")
	b.WriteString("/travel <city> - move on, one day passes\n")
	b.WriteString("/cities - where you can go\n\n")

	b.WriteString("🏦 *MONEY*\n")
	b.WriteString("/deposit <amount> and /withdraw <amount>\n")
	b.WriteString("/loan and /repay - loan shark business\n")
	b.WriteString("/upgrade - more carrying space\n\n")

	b.WriteString("🏠 *STASH*\n")
	b.WriteString("/stash buy\n")
	b.WriteString("/stash put <item> <qty>\n")
	b.WriteString("/stash take <item> <qty>\n")
	b.WriteString("/stash upgrade\n\n")

	b.WriteString("🤝 *CREW*\n")
	b.WriteString("/alliances and /join <alliance>\n")
	b.WriteString("/missions\n")
	b.WriteString("/mission accept <id>|abandon|complete")
	return b.String()
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

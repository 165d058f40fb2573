package main

import (
	"fmt"
	"sort"
	"strings"

	cl "gymsim/internal/cli"
	"gymsim/internal/gym"
	"gymsim/internal/planner"
	"gymsim/internal/store"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/shopspring/decimal"
)

var (
	accent  = color.New(color.FgCyan, color.Bold)
	success = color.New(color.FgGreen, color.Bold)
	warn    = color.New(color.FgYellow, color.Bold)
	danger  = color.New(color.FgRed, color.Bold)
	neutral = color.New(color.FgHiWhite)

	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("6")).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	numberStyle = cellStyle.Align(lipgloss.Right)
	borderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

func printSuccess(msg string) {
	success.Println(msg)
}

func printWarn(msg string) {
	warn.Println(msg)
}

func printError(msg string) {
	danger.Println(msg)
}

func printInfo(msg string) {
	neutral.Println(msg)
}

// newTable right-aligns the listed columns.
func newTable(headers []string, numeric ...int) *table.Table {
	right := make(map[int]bool, len(numeric))
	for _, c := range numeric {
		right[c] = true
	}
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(borderStyle).
		Headers(headers...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case right[col]:
				return numberStyle
			default:
				return cellStyle
			}
		})
}

func statHeaders(prefix ...string) []string {
	return append(prefix, "STR", "SPD", "DEF", "DEX", "TOTAL")
}

func statCells(v gym.StatVector) []string {
	out := make([]string, 0, gym.NumStats+1)
	for _, s := range gym.AllStats() {
		out = append(out, formatStat(v.Get(s)))
	}
	return append(out, formatStat(v.Sum()))
}

func renderGyms(gyms []gym.Gym) {
	accent.Println("\n== GYMS ==")
	t := newTable([]string{"#", "GYM", "STR", "SPD", "DEF", "DEX", "E/TRAIN", "UNLOCK"}, 0, 2, 3, 4, 5, 6)
	for i, g := range gyms {
		row := []string{fmt.Sprint(i)}
		row = append(row, g.Name)
		for _, s := range gym.AllStats() {
			row = append(row, formatDots(g.Dots.Get(s)))
		}
		row = append(row, humanize.FormatFloat("#,###.", g.EnergyPerTrain), unlockText(g.Unlock))
		t.Row(row...)
	}
	fmt.Println(t.Render())
}

func unlockText(u gym.UnlockRule) string {
	var parts []string
	if u.EnergyToUnlock > 0 {
		parts = append(parts, humanize.FormatFloat("#,###.", u.EnergyToUnlock)+" energy")
	}
	if u.MinTotalStats > 0 {
		parts = append(parts, "total "+humanize.FormatFloat("#,###.", u.MinTotalStats))
	}
	for _, s := range gym.AllStats() {
		if v := u.MinStats.Get(s); v > 0 {
			parts = append(parts, s.String()+" "+humanize.FormatFloat("#,###.", v))
		}
	}
	if u.RequiresBenefit != "" {
		parts = append(parts, "needs "+u.RequiresBenefit)
	}
	if len(parts) == 0 {
		return "-"
	}
	return strings.Join(parts, ", ")
}

func renderBenefits(b cl.Benefits) {
	accent.Println("\n== COMPANY BENEFITS ==")
	t := newTable([]string{"NAME", "UNLOCK SPEED", "BONUS E/DAY", "GAIN MULT"}, 1, 2, 3)
	for _, v := range b.Benefits {
		t.Row(v.Name,
			fmt.Sprintf("x%.2f", v.UnlockSpeed),
			humanize.FormatFloat("#,###.", v.BonusEnergyPerDay),
			fmt.Sprintf("x%.2f", v.GymGainMultiplier),
		)
	}
	fmt.Println(t.Render())

	accent.Println("\n== JUMP EFFECTS ==")
	families := make([]string, 0, len(b.JumpEffects))
	for f := range b.JumpEffects {
		families = append(families, string(f))
	}
	sort.Strings(families)
	t = newTable([]string{"FAMILY", "HAPPY/UNIT", "ENERGY/UNIT", "HAPPY MULT"}, 1, 2, 3)
	for _, f := range families {
		e := b.JumpEffects[gym.JumpFamily(f)]
		mult := "-"
		if e.HappyMultiplier > 0 {
			mult = fmt.Sprintf("x%.2f", e.HappyMultiplier)
		}
		t.Row(f, formatStat(e.HappyPerUnit), formatStat(e.EnergyPerUnit), mult)
	}
	fmt.Println(t.Render())
}

func renderResult(name string, res gym.SimulationResult, catalog gym.Catalog, every int, summaryOnly bool) {
	accent.Printf("\n== %s ==\n", strings.ToUpper(name))

	if !summaryOnly && len(res.Snapshots) > 0 {
		t := newTable(append(statHeaders("DAY", "DATE", "GYM"), "ENERGY", "HAPPY", "JUMPS"), 0, 3, 4, 5, 6, 7, 8, 9)
		last := len(res.Snapshots) - 1
		for i, snap := range res.Snapshots {
			if i != 0 && i != last && (every <= 0 || snap.Day%every != 0) {
				continue
			}
			date := "-"
			if snap.Date != nil {
				date = snap.Date.Format("2006-01-02")
			}
			row := []string{fmt.Sprint(snap.Day), date, gymName(catalog, snap.Gym)}
			row = append(row, statCells(snap.Stats)...)
			row = append(row, formatStat(snap.Energy), formatStat(snap.Happiness), jumpText(snap.Jumps))
			t.Row(row...)
		}
		fmt.Println(t.Render())
	}

	t := newTable(statHeaders(""), 1, 2, 3, 4, 5)
	t.Row(append([]string{"final"}, statCells(res.FinalStats)...)...)
	t.Row(append([]string{"energy spent"}, statCells(res.EnergyByStat)...)...)
	fmt.Println(t.Render())

	fmt.Printf("Final gym:     %s\n", gymName(catalog, res.FinalGym))
	fmt.Printf("Total energy:  %s\n", formatStat(res.TotalEnergy))
	if len(res.GymChanges) > 0 {
		fmt.Println()
		accent.Println("Gym changes")
		t := newTable([]string{"DAY", "FROM", "TO"}, 0)
		for _, c := range res.GymChanges {
			t.Row(fmt.Sprint(c.Day), gymName(catalog, c.From), c.Name)
		}
		fmt.Println(t.Render())
	}
	if res.Costs != nil {
		renderCosts(res.Costs)
	}
	fmt.Println()
}

func renderCosts(c *gym.CostLedger) {
	fmt.Println()
	accent.Println("Costs")
	t := newTable([]string{"CATEGORY", "ITEM", "UNITS", "COST"}, 2, 3)
	for _, line := range c.Lines {
		cost := formatMoney(line.Cost)
		if !line.Priced {
			cost = warn.Sprint("no price")
		}
		t.Row(line.Category, line.ItemID, humanize.Comma(line.Units), cost)
	}
	fmt.Println(t.Render())
	if c.LossReviveUnits > 0 {
		fmt.Printf("Loss revive:   %s units, %s earned\n", humanize.Comma(c.LossReviveUnits), formatMoney(c.LossReviveIncome))
	}
	fmt.Printf("Total cost:    %s\n", formatMoney(c.TotalCost))
	fmt.Printf("Net:           %s\n", colorizeMoney(c.Net))
}

func renderComparison(states []planner.Comparison, catalog gym.Catalog) {
	accent.Println("\n== COMPARISON ==")
	if len(states) == 0 {
		printInfo("Nothing to compare.")
		return
	}
	best := 0
	for i, s := range states {
		if s.Result.FinalStats.Sum() > states[best].Result.FinalStats.Sum() {
			best = i
		}
	}
	bestTotal := states[best].Result.FinalStats.Sum()
	t := newTable(append(statHeaders("STATE"), "VS BEST", "GYM", "NET"), 1, 2, 3, 4, 5, 6, 8)
	for _, s := range states {
		res := s.Result
		row := append([]string{s.Name}, statCells(res.FinalStats)...)
		delta := "-"
		if bestTotal > 0 {
			delta = fmt.Sprintf("%+.2f%%", (res.FinalStats.Sum()/bestTotal-1)*100)
		}
		net := "-"
		if res.Costs != nil {
			net = formatMoney(res.Costs.Net)
		}
		row = append(row, delta, gymName(catalog, res.FinalGym), net)
		t.Row(row...)
	}
	fmt.Println(t.Render())
	printSuccess(fmt.Sprintf("Best: %s", states[best].Name))
}

func renderPlans(plans []store.PlanRecord) {
	accent.Println("\n== PLANS ==")
	if len(plans) == 0 {
		printInfo("No saved plans.")
		return
	}
	t := newTable([]string{"ID", "NAME", "DAYS", "SECTIONS", "UPDATED"}, 2, 3)
	for _, p := range plans {
		t.Row(p.ID, truncate(p.Name, 28), fmt.Sprint(p.Plan.TotalDays), fmt.Sprint(len(p.Plan.Sections)), humanize.Time(p.UpdatedAt))
	}
	fmt.Println(t.Render())
}

func renderRuns(runs []store.RunSummary, catalog gym.Catalog) {
	accent.Println("\n== RUNS ==")
	if len(runs) == 0 {
		printInfo("No runs recorded.")
		return
	}
	t := newTable(append(statHeaders("RAN"), "GYM", "COST", "NET"), 1, 2, 3, 4, 5, 7, 8)
	for _, r := range runs {
		row := append([]string{humanize.Time(r.RanAt)}, statCells(r.FinalStats)...)
		cost, net := "-", "-"
		if r.TotalCost.Valid {
			cost = formatMoney(r.TotalCost.Decimal)
		}
		if r.Net.Valid {
			net = colorizeMoney(r.Net.Decimal)
		}
		row = append(row, gymName(catalog, r.FinalGym), cost, net)
		t.Row(row...)
	}
	fmt.Println(t.Render())
}

func renderPrices(prices []store.PriceEntry) {
	accent.Println("\n== PRICES ==")
	if len(prices) == 0 {
		printInfo("No prices set. Use `gymsim prices set <item> <price>`.")
		return
	}
	t := newTable([]string{"ITEM", "PRICE", "UPDATED"}, 1)
	for _, p := range prices {
		t.Row(p.ItemID, formatMoney(p.Price), humanize.Time(p.UpdatedAt))
	}
	fmt.Println(t.Render())
}

func gymName(catalog gym.Catalog, index int) string {
	if catalog.IsZero() {
		return fmt.Sprint(index)
	}
	return catalog.GymAt(catalog.Clamp(index)).Name
}

func jumpText(jumps []gym.JumpFamily) string {
	if len(jumps) == 0 {
		return ""
	}
	parts := make([]string, len(jumps))
	for i, j := range jumps {
		parts[i] = string(j)
	}
	return strings.Join(parts, "+")
}

func formatStat(v float64) string {
	return humanize.FormatFloat("#,###.", v)
}

func formatDots(v float64) string {
	if v == 0 {
		return "-"
	}
	return fmt.Sprintf("%.1f", v)
}

func formatMoney(d decimal.Decimal) string {
	return "$" + humanize.FormatFloat("#,###.##", d.InexactFloat64())
}

func colorizeMoney(d decimal.Decimal) string {
	text := formatMoney(d)
	switch d.Sign() {
	case 1:
		return success.Sprint("+" + text)
	case -1:
		return danger.Sprint("-" + formatMoney(d.Abs()))
	default:
		return neutral.Sprint(text)
	}
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if n <= 0 || len(s) <= n {
		return s
	}
	if n <= 3 {
		return s[:n]
	}
	return s[:n-3] + "..."
}

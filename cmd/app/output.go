package main

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/atvirokodosprendimai/carcrm/internal/domain"
)

func printJSON(v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(b))
	return nil
}

func printKV(rows [][2]string) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	for _, row := range rows {
		_, _ = fmt.Fprintf(w, "%s\t%s\n", row[0], row[1])
	}
	_ = w.Flush()
}

func printTable(headers []string, rows [][]string) {
	if len(rows) == 0 {
		fmt.Println("no results")
		return
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, strings.Join(headers, "\t"))
	for _, row := range rows {
		_, _ = fmt.Fprintln(w, strings.Join(row, "\t"))
	}
	_ = w.Flush()
}

func formatID(v int64) string {
	return strconv.FormatInt(v, 10)
}

func formatMaybeID(v *int64) string {
	if v == nil {
		return "-"
	}
	return formatID(*v)
}

func formatMaybe(v *string) string {
	if v == nil {
		return "-"
	}
	return *v
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04:05")
}

func printNextCursor(cursor *int64) {
	if cursor != nil {
		fmt.Printf("next cursor: %d\n", *cursor)
	}
}

func printClients(items []domain.Client) {
	rows := make([][]string, 0, len(items))
	for _, item := range items {
		rows = append(rows, []string{
			formatID(item.ID),
			item.Name,
			formatMaybe(item.Email),
			formatMaybe(item.Phone),
			string(item.Urgency),
			formatID(item.OpportunityCount),
			formatTime(item.UpdatedAt),
		})
	}
	printTable([]string{"ID", "NAME", "EMAIL", "PHONE", "URGENCY", "OPPS", "UPDATED_AT"}, rows)
}

func printClientDetail(item domain.ClientDetail) {
	printKV([][2]string{
		{"id", formatID(item.ID)},
		{"name", item.Name},
		{"email", formatMaybe(item.Email)},
		{"phone", formatMaybe(item.Phone)},
		{"urgency", string(item.Urgency)},
		{"created_at", formatTime(item.CreatedAt)},
		{"updated_at", formatTime(item.UpdatedAt)},
	})
	fmt.Println()
	printOpportunities(item.Opportunities)
}

func printUrgentClients(items []domain.UrgentClient) {
	rows := make([][]string, 0, len(items))
	for _, item := range items {
		labels := make([]string, 0, len(item.OpenOpportunities))
		for _, o := range item.OpenOpportunities {
			labels = append(labels, fmt.Sprintf("%s (%s)", o.CarLabel, o.Stage))
		}
		rows = append(rows, []string{
			formatID(item.ID),
			item.Name,
			formatTime(item.UpdatedAt),
			strings.Join(labels, ", "),
		})
	}
	printTable([]string{"ID", "NAME", "UPDATED_AT", "OPEN"}, rows)
}

func printOpportunities(items []domain.Opportunity) {
	rows := make([][]string, 0, len(items))
	for _, item := range items {
		rows = append(rows, []string{
			formatID(item.ID),
			formatID(item.ClientID),
			item.CarLabel,
			formatMaybeID(item.CarModelID),
			string(item.Stage),
			string(item.Urgency),
			formatID(item.NoteCount),
			formatTime(item.UpdatedAt),
		})
	}
	printTable([]string{"ID", "CLIENT", "CAR", "CAR_ID", "STAGE", "URGENCY", "NOTES", "UPDATED_AT"}, rows)
}

func printNotes(items []domain.Note) {
	rows := make([][]string, 0, len(items))
	for _, item := range items {
		rows = append(rows, []string{
			formatID(item.ID),
			formatID(item.OpportunityID),
			item.Title,
			formatTime(item.CreatedAt),
		})
	}
	printTable([]string{"ID", "OPPORTUNITY", "TITLE", "CREATED_AT"}, rows)
}

func printCars(items []domain.Car) {
	rows := make([][]string, 0, len(items))
	for _, item := range items {
		year := "-"
		if item.Year != nil {
			year = strconv.Itoa(*item.Year)
		}
		rows = append(rows, []string{
			formatID(item.ID),
			item.Brand,
			item.Model,
			formatMaybe(item.Version),
			year,
			formatID(item.OpportunityCount),
		})
	}
	printTable([]string{"ID", "BRAND", "MODEL", "VERSION", "YEAR", "OPPS"}, rows)
}

func printAuditLogs(items []domain.AuditLog) {
	rows := make([][]string, 0, len(items))
	for _, item := range items {
		rows = append(rows, []string{
			formatID(item.ID),
			item.Action,
			item.TargetType,
			formatMaybeID(item.TargetID),
			item.Metadata,
			formatTime(item.CreatedAt),
		})
	}
	printTable([]string{"ID", "ACTION", "TARGET_TYPE", "TARGET_ID", "METADATA", "AT"}, rows)
}

func printCounts[K ~string](title string, counts map[K]int64, order []K) {
	rows := make([][2]string, 0, len(counts))
	for _, k := range order {
		rows = append(rows, [2]string{title + "." + strings.ToLower(string(k)), strconv.FormatInt(counts[k], 10)})
	}
	printKV(rows)
}

func printClientStats(s domain.ClientStats) {
	printKV([][2]string{
		{"total", strconv.FormatInt(s.Total, 10)},
		{"with_opportunities", strconv.FormatInt(s.WithOpportunities, 10)},
		{"without_opportunities", strconv.FormatInt(s.WithoutOpportunities, 10)},
		{"total_opportunities", strconv.FormatInt(s.TotalOpportunities, 10)},
	})
	printCounts("urgency", s.ByUrgency, domain.Urgencies())
}

func printOpportunityStats(s domain.OpportunityStats) {
	printKV([][2]string{{"total", strconv.FormatInt(s.Total, 10)}})
	printCounts("stage", s.ByStage, domain.Stages())
	printCounts("urgency", s.ByUrgency, domain.Urgencies())
}

func printNoteStats(s domain.NoteStats) {
	printKV([][2]string{
		{"total", strconv.FormatInt(s.Total, 10)},
		{"today", strconv.FormatInt(s.Today, 10)},
		{"this_week", strconv.FormatInt(s.ThisWeek, 10)},
		{"this_month", strconv.FormatInt(s.ThisMonth, 10)},
	})
}

func printCarStats(s domain.CarStats) {
	printKV([][2]string{{"total", strconv.FormatInt(s.Total, 10)}})
	brands := make([][]string, 0, len(s.ByBrand))
	for _, b := range s.ByBrand {
		brands = append(brands, []string{b.Brand, strconv.FormatInt(b.Count, 10)})
	}
	fmt.Println()
	printTable([]string{"BRAND", "MODELS"}, brands)
	fmt.Println()
	printCars(s.MostUsed)
}

func printBrands(brands []string) {
	sorted := append([]string(nil), brands...)
	sort.Strings(sorted)
	for _, b := range sorted {
		fmt.Println(b)
	}
}

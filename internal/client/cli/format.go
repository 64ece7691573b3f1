package cli

import (
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dmitrijs2005/eventdesk/internal/client/models"
	"github.com/dmitrijs2005/eventdesk/internal/client/optimistic"
)

const dateLayout = "2006-01-02 15:04"

// table writes tab-separated rows aligned in columns.
func (a *App) table(header string, rows [][]string) {
	tw := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, header)
	for _, r := range rows {
		fmt.Fprintln(tw, strings.Join(r, "\t"))
	}
	_ = tw.Flush()
}

func (a *App) date(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.In(a.loc).Format(dateLayout)
}

func price(p float64) string {
	if p <= 0 {
		return "free"
	}
	return fmt.Sprintf("%.2f", p)
}

func idStr(n int64) string {
	if n == 0 {
		return "-"
	}
	return fmt.Sprint(n)
}

func (a *App) printEvents(es []models.Event) {
	if len(es) == 0 {
		a.println("No events")
		return
	}
	rows := make([][]string, 0, len(es))
	for _, e := range es {
		rows = append(rows, []string{
			idStr(e.ID), e.Title, string(e.Status), a.date(e.StartsAt), price(e.Price), fmt.Sprint(e.Attendees),
		})
	}
	a.table("ID\tTITLE\tSTATUS\tSTARTS\tPRICE\tATTENDEES", rows)
}

func (a *App) printTeams(ts []models.Team) {
	if len(ts) == 0 {
		a.println("No teams")
		return
	}
	rows := make([][]string, 0, len(ts))
	for _, t := range ts {
		rows = append(rows, []string{idStr(t.ID), t.Name, fmt.Sprint(t.MemberCount)})
	}
	a.table("ID\tNAME\tMEMBERS", rows)
}

func (a *App) printUsers(us []models.User) {
	if len(us) == 0 {
		a.println("No users")
		return
	}
	rows := make([][]string, 0, len(us))
	for _, u := range us {
		role := "user"
		if u.IsSiteAdmin {
			role = "admin"
		}
		rows = append(rows, []string{idStr(u.ID), u.Username, u.Email, role})
	}
	a.table("ID\tUSERNAME\tEMAIL\tROLE", rows)
}

func (a *App) printTickets(ts []models.Ticket) {
	if len(ts) == 0 {
		a.println("No tickets")
		return
	}
	rows := make([][]string, 0, len(ts))
	for _, t := range ts {
		paid := "no"
		if t.Paid {
			paid = "yes"
		}
		rows = append(rows, []string{idStr(t.ID), t.Code, idStr(t.EventID.Int64()), t.Status, paid})
	}
	a.table("ID\tCODE\tEVENT\tSTATUS\tPAID", rows)
}

// counters renders c as "a=1 b=2" in key order.
func counters(c optimistic.Counters) string {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%d", k, c[k]))
	}
	return strings.Join(parts, " ")
}

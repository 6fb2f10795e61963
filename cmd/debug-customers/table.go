package main

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"
)

func writeTable(w io.Writer, r *report) error {
	reasons := make([]string, 0, len(r.Dropped))
	for reason, n := range r.Dropped {
		reasons = append(reasons, fmt.Sprintf("%s=%d", reason, n))
	}
	sort.Strings(reasons)

	fmt.Fprintf(w, "registered: %d  orders: %d  merged: %d  dropped: %s\n\n",
		r.Registered, r.Orders, r.Merged, strings.Join(reasons, ",")+orNone(len(reasons)))

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tEMAIL\tNAME\tORDERS\tSPENT\tCREATED\tGUEST")
	for _, c := range r.Customers {
		name := strings.TrimSpace(c.FirstName + " " + c.LastName)
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\t%t\n",
			c.ID.String(), c.Email, name, c.OrdersCount, c.TotalSpent, c.DateCreated, c.IsGuest)
	}
	return tw.Flush()
}

func orNone(n int) string {
	if n == 0 {
		return "none"
	}
	return ""
}

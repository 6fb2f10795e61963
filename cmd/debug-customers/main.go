// Command debug-customers fetches customers and orders from WooCommerce,
// reconciles them the same way GET /api/customers does, and prints the result.
// Every record dropped for lack of an email is logged with its WooCommerce id.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"storybook-service/internal/clients/woocommerce"
	"storybook-service/internal/config"
	"storybook-service/internal/models"
	"storybook-service/internal/pii"
	"storybook-service/internal/services"
)

type options struct {
	search    string
	typ       string
	sort      string
	minOrders int
	limit     int
	asJSON    bool
	showPII   bool
	timeout   time.Duration
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "debug-customers",
		Short: "Reconcile WooCommerce customers and guest orders",
		Long: `Fetches registered customers and orders from WooCommerce, merges them by email
and prints the merged list. Dropped records are logged to stderr.
Emails and names are masked unless --show-pii is set.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), opts, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.search, "search", "", "search term passed to WooCommerce")
	flags.StringVar(&opts.typ, "type", "all", "customer type: all, registered or guest")
	flags.StringVar(&opts.sort, "sort", "date_desc", "sort: date_desc, spend_desc or orders_desc")
	flags.IntVar(&opts.minOrders, "min-orders", 0, "only customers with at least this many orders")
	flags.IntVar(&opts.limit, "limit", 0, "print at most this many customers (0 for all)")
	flags.BoolVar(&opts.asJSON, "json", false, "print JSON instead of a table")
	flags.BoolVar(&opts.showPII, "show-pii", false, "print emails and names unmasked")
	flags.DurationVar(&opts.timeout, "timeout", 60*time.Second, "overall timeout")

	return cmd
}

func run(ctx context.Context, opts *options, stdout, stderr io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}

	typ, err := services.ParseCustomerType(opts.typ)
	if err != nil {
		return err
	}
	sortBy, err := services.ParseCustomerSort(opts.sort)
	if err != nil {
		return err
	}

	logger := logrus.New()
	logger.SetOutput(stderr)
	logger.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})

	cfg := config.New()
	if !cfg.WooEnabled() {
		return fmt.Errorf("WOO_BASE_URL, WOO_CONSUMER_KEY and WOO_CONSUMER_SECRET must be set")
	}

	client := woocommerce.NewClient(woocommerce.Config{
		BaseURL:        cfg.Woo.BaseURL,
		ConsumerKey:    cfg.Woo.ConsumerKey,
		ConsumerSecret: cfg.Woo.ConsumerSecret,
		Timeout:        cfg.Woo.Timeout,
		RequestsPerSec: cfg.Woo.RequestsPerSec,
	}, logger)

	ctx, cancel := context.WithTimeout(ctx, opts.timeout)
	defer cancel()

	customers, orders, err := services.NewCustomerService(client, logger).FetchUpstream(ctx, opts.search)
	if err != nil {
		return err
	}

	report := reconcile(customers, orders, typ, sortBy, opts.minOrders, logger)
	if !opts.showPII {
		report.mask()
	}
	if opts.limit > 0 && len(report.Customers) > opts.limit {
		report.Customers = report.Customers[:opts.limit]
	}

	if opts.asJSON {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}
	return writeTable(stdout, report)
}

// report is the CLI output.
type report struct {
	Registered int               `json:"registered"`
	Orders     int               `json:"orders"`
	Dropped    map[string]int    `json:"dropped"`
	Merged     int               `json:"merged"`
	Customers  []models.Customer `json:"customers"`
}

func reconcile(customers []models.WooCustomer, orders []models.WooOrder, typ services.CustomerType, sortBy services.CustomerSort, minOrders int, logger *logrus.Logger) *report {
	r := &report{
		Registered: len(customers),
		Orders:     len(orders),
		Dropped:    map[string]int{},
	}

	merged := services.Reconcile(customers, orders, services.ReconcileOptions{
		Type: typ,
		OnDrop: func(reason services.DropReason, id int64) {
			r.Dropped[string(reason)]++
			logger.WithFields(logrus.Fields{
				"reason": reason,
				"woo_id": id,
			}).Warn("Dropped record")
		},
	})
	r.Merged = len(merged)
	r.Customers = services.FilterAndSort(merged, minOrders, sortBy)
	return r
}

func (r *report) mask() {
	for i := range r.Customers {
		r.Customers[i] = pii.MaskCustomer(r.Customers[i])
	}
}

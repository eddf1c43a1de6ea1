// Command query runs one analytical retrieval against a loaded sales table
// and prints the result rows as JSON lines. Partial results (a page failed
// mid-walk) still print the gathered rows but exit non-zero.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"retailetl/internal/analytics"
	"retailetl/internal/config"
	"retailetl/internal/storage"
	"retailetl/internal/storage/dynamo"
)

func main() {
	var (
		cfgPath   string
		op        string
		country   string
		customer  string
		countries string
		fromStr   string
		toStr     string
		dateStr   string
		minAmount float64
		maxAmount float64
	)

	flag.StringVar(&cfgPath, "config", "configs/pipelines/sample.json", "pipeline config JSON path")
	flag.StringVar(&op, "op", "", "retrieval to run: country, customer, daterange, revenue, histogram, geo")
	flag.StringVar(&country, "country", "", "country name (op=country)")
	flag.StringVar(&customer, "customer", "", "customer id (op=customer)")
	flag.StringVar(&countries, "countries", "", "comma-separated country set (op=histogram)")
	flag.StringVar(&fromStr, "from", "", "range start, YYYY-MM-DD (optional for country/geo, required for daterange)")
	flag.StringVar(&toStr, "to", "", "range end, YYYY-MM-DD")
	flag.StringVar(&dateStr, "date", "", "calendar day, YYYY-MM-DD (op=revenue)")
	flag.Float64Var(&minAmount, "min-amount", -1, "minimum line total (op=histogram)")
	flag.Float64Var(&maxAmount, "max-amount", -1, "maximum line total (op=histogram)")
	flag.Parse()

	p, err := config.Load(cfgPath)
	if err != nil {
		fatalf("load config: %v", err)
	}

	ctx := context.Background()
	client, err := dynamo.NewClient(ctx, p.Store)
	if err != nil {
		fatalf("store client: %v", err)
	}
	engine := analytics.New(dynamo.NewRepository(client, p.Store.Table))

	from, to, err := parseRange(fromStr, toStr)
	if err != nil {
		fatalf("%v", err)
	}

	var res storage.Result
	switch op {
	case "country":
		if country == "" {
			fatalf("-country is required for op=country")
		}
		res = engine.SalesByCountry(ctx, country, from, to)

	case "customer":
		if customer == "" {
			fatalf("-customer is required for op=customer")
		}
		res = engine.OrdersByCustomer(ctx, customer)

	case "daterange":
		if from.IsZero() || to.IsZero() {
			fatalf("-from and -to are required for op=daterange")
		}
		res = engine.OrdersByDateRange(ctx, from, to)

	case "revenue":
		day, err := time.Parse("2006-01-02", dateStr)
		if err != nil {
			fatalf("-date must be YYYY-MM-DD: %v", err)
		}
		total, r := engine.RevenueByDate(ctx, day)
		res = r
		fmt.Printf("revenue %s: %s\n", dateStr, total.String())

	case "histogram":
		var set []string
		if countries != "" {
			set = strings.Split(countries, ",")
		}
		res = engine.HistogramSlice(ctx, set, minAmount, maxAmount)

	case "geo":
		res = engine.GeoSlice(ctx, from, to)

	default:
		fatalf("unknown op %q (known: country, customer, daterange, revenue, histogram, geo)", op)
	}

	enc := json.NewEncoder(os.Stdout)
	for _, rec := range res.Items {
		if err := enc.Encode(rec); err != nil {
			fatalf("encode row: %v", err)
		}
	}
	if !res.Complete() {
		log.Printf("query: result is PARTIAL (%d rows gathered): %v", len(res.Items), res.Cause)
		os.Exit(1)
	}
	log.Printf("query: op=%s rows=%d table=%s", op, len(res.Items), p.Store.Table)
}

// parseRange parses the optional -from/-to pair. The end of the range is
// widened to the end of its day so a date-only bound is inclusive, matching
// the stored timestamp form.
func parseRange(fromStr, toStr string) (time.Time, time.Time, error) {
	var from, to time.Time
	var err error
	if fromStr != "" {
		from, err = time.Parse("2006-01-02", fromStr)
		if err != nil {
			return from, to, fmt.Errorf("-from must be YYYY-MM-DD: %v", err)
		}
	}
	if toStr != "" {
		to, err = time.Parse("2006-01-02", toStr)
		if err != nil {
			return from, to, fmt.Errorf("-to must be YYYY-MM-DD: %v", err)
		}
		to = to.Add(24*time.Hour - time.Second)
	}
	if (fromStr == "") != (toStr == "") {
		return from, to, fmt.Errorf("-from and -to must be given together")
	}
	return from, to, nil
}

func fatalf(format string, a ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", a...)
	os.Exit(1)
}

package main

import (
	"context"
	"flag"
	"log"
	"time"

	"bitbucket.org/mmdatafocus/pos_backend/appctx"
	"bitbucket.org/mmdatafocus/pos_backend/config"
	"bitbucket.org/mmdatafocus/pos_backend/models"
	"bitbucket.org/mmdatafocus/pos_backend/utils"
	"bitbucket.org/mmdatafocus/pos_backend/workflow"
)

// Backfills daily fixed-cost ledger entries over a date range, for stores
// that were offline (or not yet configured) when the days passed. Dates that
// already carry fixed-cost entries are skipped, so reruns are harmless.
//
//	go run ./cmd/daily-summary-backfill -account <id> -start 2026-08-01 -end 2026-08-31
func main() {
	accountId := flag.String("account", "", "account to backfill")
	start := flag.String("start", "", "first date to backfill (YYYY-MM-DD)")
	end := flag.String("end", "", "last date to backfill (YYYY-MM-DD)")
	dryRun := flag.Bool("dry-run", false, "report what would be posted without writing")
	flag.Parse()

	if *accountId == "" {
		log.Fatal("account is required")
	}
	startDate, err := utils.ParseBusinessDate(*start)
	if err != nil {
		log.Fatal("start must be YYYY-MM-DD")
	}
	endDate, err := utils.ParseBusinessDate(*end)
	if err != nil {
		log.Fatal("end must be YYYY-MM-DD")
	}
	if endDate.Before(startDate) {
		log.Fatal("end must not be before start")
	}

	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()

	ctx := appctx.Set(context.Background(), appctx.ContextKeyAccountId, *accountId)
	caps := workflow.DefaultCapabilities()

	posted, skipped := 0, 0
	for d := startDate; !d.After(endDate); d = d.Add(24 * time.Hour) {
		date := utils.FormatBusinessDate(d)

		if *dryRun {
			entries, err := models.GetLedgerEntries(ctx, date, date)
			if err != nil {
				log.Fatalf("%s: %v", date, err)
			}
			if workflow.FixedCostsAlreadyLogged(entries, date) {
				log.Printf("%s: already logged, would skip", date)
				skipped++
			} else {
				log.Printf("%s: would post fixed costs", date)
				posted++
			}
			continue
		}

		entries, err := workflow.LogDailyFixedCosts(ctx, caps, date)
		if err != nil {
			// Already-logged days are expected on return visits.
			log.Printf("%s: skipped (%v)", date, err)
			skipped++
			continue
		}
		log.Printf("%s: posted %d entries", date, len(entries))
		posted++
	}
	log.Printf("done: %d days posted, %d skipped", posted, skipped)
}

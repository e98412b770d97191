package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/SirCraft007/grade-api/app"
	"github.com/SirCraft007/grade-api/database"
	"github.com/SirCraft007/grade-api/services"
	"github.com/SirCraft007/grade-api/services/digitalocean"
)

// Usage:
//
//	go run ./cmd/recompute                         # every user
//	go run ./cmd/recompute --user=3                # one user
//	go run ./cmd/recompute --user=3 --report-prefix=reports
func main() {
	var userID uint
	var reportPrefix string
	for _, arg := range os.Args[1:] {
		switch {
		case strings.HasPrefix(arg, "--user="):
			id, err := strconv.ParseUint(strings.TrimPrefix(arg, "--user="), 10, 64)
			if err != nil || id == 0 {
				log.Fatalf("invalid user id in %q", arg)
			}
			userID = uint(id)
		case strings.HasPrefix(arg, "--report-prefix="):
			reportPrefix = strings.TrimPrefix(arg, "--report-prefix=")
		default:
			log.Fatalf("unknown argument %q", arg)
		}
	}

	a, err := app.Bootstrap()
	if err != nil {
		log.Fatalf("Failed to start: %v", err)
	}
	defer a.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	var uploader *digitalocean.SpacesClient
	if reportPrefix != "" {
		uploader, err = digitalocean.NewSpacesClient(digitalocean.SpacesConfigFromEnv(a.Env))
		if err != nil {
			log.Fatalf("Spaces is not configured: %v", err)
		}
	}

	if userID != 0 {
		summary, err := a.Reconciler.RecomputeUser(ctx, userID)
		if err != nil {
			log.Fatalf("Recompute failed: %v", err)
		}
		fmt.Printf("User %d: average %.3f, points %.3f, exams %d\n",
			userID, summary.TotalAverage, summary.TotalPoints, summary.TotalExams)
		if uploader != nil {
			uploadReport(ctx, a, uploader, reportPrefix, userID)
		}
		return
	}

	result, err := a.Reconciler.RecomputeAll(ctx)
	if err != nil {
		log.Fatalf("Recompute failed: %v", err)
	}
	fmt.Printf("Recomputed %d of %d users in %s\n", result.Succeeded, result.Users, result.Duration)
	for id, msg := range result.Failed {
		fmt.Printf("  user %d: %s\n", id, msg)
	}

	if uploader != nil {
		ids, err := database.NewGradebookRepository(a.Store.GetDB()).ListUserIDs(ctx)
		if err != nil {
			log.Fatalf("Failed to list users: %v", err)
		}
		for _, id := range ids {
			if _, failed := result.Failed[id]; failed {
				continue
			}
			uploadReport(ctx, a, uploader, reportPrefix, id)
		}
	}

	if len(result.Failed) > 0 {
		os.Exit(1)
	}
}

func uploadReport(ctx context.Context, a *app.App, uploader *digitalocean.SpacesClient, prefix string, userID uint) {
	report, err := a.Reports.BuildReport(ctx, userID)
	if err != nil {
		log.Fatalf("Failed to build report for user %d: %v", userID, err)
	}
	data, err := services.MarshalReport(report)
	if err != nil {
		log.Fatal(err)
	}

	key := digitalocean.ReportKey(prefix, userID, report.GeneratedAt)
	url, err := uploader.UploadBytes(ctx, key, data, "application/json")
	if err != nil {
		log.Fatalf("Failed to upload report for user %d: %v", userID, err)
	}
	fmt.Println("Report uploaded:", url)
}

package main

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/SirCraft007/grade-api/app"
	"github.com/SirCraft007/grade-api/database"
	"github.com/SirCraft007/grade-api/services"
	"github.com/SirCraft007/grade-api/services/digitalocean"
)

// Usage:
//
//	go run ./cmd/seed                          # admin user only
//	go run ./cmd/seed --file=grades.json       # admin user plus a local export
//	go run ./cmd/seed --spaces-key=exports/a.json
func main() {
	var file, spacesKey string
	for _, arg := range os.Args[1:] {
		switch {
		case strings.HasPrefix(arg, "--file="):
			file = strings.TrimPrefix(arg, "--file=")
		case strings.HasPrefix(arg, "--spaces-key="):
			spacesKey = strings.TrimPrefix(arg, "--spaces-key=")
		default:
			log.Fatalf("unknown argument %q", arg)
		}
	}

	a, err := app.Bootstrap()
	if err != nil {
		log.Fatalf("Failed to start: %v", err)
	}
	defer a.Close()

	separator := strings.Repeat("=", 60)
	fmt.Println(separator)
	fmt.Println("Grade API - Database Seeding")
	fmt.Println(separator)

	admin, err := database.NewSeeder(a.Store.GetDB()).SeedAdminUser()
	if err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}
	if admin == nil {
		fmt.Println("Admin user creation skipped (ADMIN_USERNAME / ADMIN_PASSWORD not set).")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	var data []byte
	switch {
	case file != "":
		data, err = os.ReadFile(file)
	case spacesKey != "":
		var client *digitalocean.SpacesClient
		client, err = digitalocean.NewSpacesClient(digitalocean.SpacesConfigFromEnv(a.Env))
		if err == nil {
			data, err = client.DownloadFile(ctx, spacesKey)
		}
	default:
		if _, err := a.Reconciler.RecomputeUser(ctx, admin.ID); err != nil {
			log.Fatalf("Failed to initialize totals: %v", err)
		}
		fmt.Println("Seeding completed. No export given.")
		return
	}
	if err != nil {
		log.Fatalf("Failed to read export: %v", err)
	}

	export, err := services.ParseGradeExport(bytes.NewReader(data))
	if err != nil {
		log.Fatalf("Failed to parse export: %v", err)
	}

	result, err := a.Imports.Import(ctx, admin.ID, export)
	if err != nil {
		log.Fatalf("Import failed: %v", err)
	}

	fmt.Println(separator)
	fmt.Printf("Imported %d grades, created %d subjects for %s\n",
		result.GradesImported, result.SubjectsCreated, admin.Username)
	if result.Summary != nil {
		fmt.Printf("Total average %.3f, points %.3f, exams %d\n",
			result.Summary.TotalAverage, result.Summary.TotalPoints, result.Summary.TotalExams)
	}
	fmt.Println(separator)
}

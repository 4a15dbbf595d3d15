package main

import (
	"context"
	"encoding/csv"
	"flag"
	"io"
	"os"
	"strings"

	"govdocs/apperror"
	"govdocs/cache"
	"govdocs/config"
	"govdocs/database"
	"govdocs/identity"
	"govdocs/logger"
	"govdocs/models"
	"govdocs/services/catalog"

	"github.com/sirupsen/logrus"
)

// Imports a catalog CSV with the header
//
//	category,subcategory,documents,fields
//
// where documents and fields are ";"-separated label lists. Existing
// categories and subcategories are reused; label lists are replaced.
func main() {
	path := flag.String("file", "catalog.csv", "CSV file to import")
	flag.Parse()

	cfg := config.LoadConfig()
	log := logger.New(cfg.LogLevel, cfg.LogFormat)

	db, err := database.ConnectDb(cfg, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to database")
	}

	file, err := os.Open(*path)
	if err != nil {
		log.WithError(err).Fatal("Failed to open CSV file")
	}
	defer file.Close()

	svc := catalog.NewService(db, cache.New(cfg.Redis, log), log)
	stats, err := importCatalog(context.Background(), svc, file, log)
	if err != nil {
		log.WithError(err).Fatal("Import failed")
	}
	log.WithFields(logrus.Fields{
		"categories":    stats.categories,
		"subcategories": stats.subcategories,
		"rows":          stats.rows,
		"skipped":       stats.skipped,
	}).Info("Catalog import completed")
}

type importStats struct {
	rows, skipped, categories, subcategories int
}

func splitLabels(s string) []string {
	var out []string
	for _, l := range strings.Split(s, ";") {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	return out
}

func importCatalog(ctx context.Context, svc *catalog.Service, r io.Reader, log *logrus.Logger) (importStats, error) {
	var stats importStats
	admin := identity.Identity{Role: identity.Admin}

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return stats, err
	}
	if len(records) < 2 {
		return stats, apperror.Validation(map[string]string{"file": "CSV file is empty or has only headers"})
	}

	headerIndex := make(map[string]int)
	for i, h := range records[0] {
		headerIndex[strings.ToLower(strings.TrimSpace(h))] = i
	}
	field := func(row []string, name string) string {
		if i, ok := headerIndex[name]; ok && i < len(row) {
			return strings.TrimSpace(row[i])
		}
		return ""
	}

	existing, err := svc.ListCategories(ctx)
	if err != nil {
		return stats, err
	}
	categories := map[string]models.Category{}
	for _, c := range existing {
		categories[strings.ToLower(c.Name)] = c
	}
	subcategories := map[uint]map[string]models.Subcategory{}

	for i, row := range records[1:] {
		stats.rows++
		catName, subName := field(row, "category"), field(row, "subcategory")
		if catName == "" || subName == "" {
			log.WithField("row", i+2).Warn("Skipping row without category or subcategory")
			stats.skipped++
			continue
		}

		cat, ok := categories[strings.ToLower(catName)]
		if !ok {
			created, err := svc.CreateCategory(ctx, admin, catName)
			if err != nil {
				return stats, err
			}
			cat = *created
			categories[strings.ToLower(catName)] = cat
			stats.categories++
		}

		subs, ok := subcategories[cat.ID]
		if !ok {
			list, err := svc.ListSubcategories(ctx, cat.ID)
			if err != nil {
				return stats, err
			}
			subs = map[string]models.Subcategory{}
			for _, s := range list {
				subs[strings.ToLower(s.Name)] = s
			}
			subcategories[cat.ID] = subs
		}
		sub, ok := subs[strings.ToLower(subName)]
		if !ok {
			created, err := svc.CreateSubcategory(ctx, admin, cat.ID, subName)
			if err != nil {
				return stats, err
			}
			sub = *created
			subs[strings.ToLower(subName)] = sub
			stats.subcategories++
		}

		if _, err := svc.DefineRequiredDocuments(ctx, admin, cat.ID, sub.ID, splitLabels(field(row, "documents"))); err != nil {
			return stats, err
		}
		if _, err := svc.DefineRequiredFields(ctx, admin, cat.ID, sub.ID, splitLabels(field(row, "fields"))); err != nil {
			return stats, err
		}
	}
	return stats, nil
}

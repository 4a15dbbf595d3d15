package main

import (
	"context"
	"strings"
	"testing"

	"govdocs/database/dbtest"
	"govdocs/services/catalog"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleCSV = `Category,Subcategory,Documents,Fields
Identity,Aadhaar Update,Address Proof; Photo,Aadhar Number
identity,PAN Card,Photo,Father Name;Date of Birth
Revenue,Income Certificate,Salary Slip,
,Orphan Row,Photo,
`

func TestImportCatalog(t *testing.T) {
	db := dbtest.New(t)
	log, hook := test.NewNullLogger()
	svc := catalog.NewService(db, nil, log)
	ctx := context.Background()

	stats, err := importCatalog(ctx, svc, strings.NewReader(sampleCSV), log)
	require.NoError(t, err)
	assert.Equal(t, importStats{rows: 4, skipped: 1, categories: 2, subcategories: 3}, stats)
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, 5, hook.LastEntry().Data["row"])

	reqs, err := svc.ListRequirements(ctx)
	require.NoError(t, err)
	byName := map[string]catalog.Requirements{}
	for _, r := range reqs {
		byName[r.SubcategoryName] = r
	}
	assert.Equal(t, []string{"Address Proof", "Photo"}, byName["Aadhaar Update"].Documents)
	assert.Equal(t, []string{"Father Name", "Date of Birth"}, byName["PAN Card"].Fields)
	assert.Equal(t, "Identity", byName["PAN Card"].CategoryName)

	// A second run reuses what exists and replaces label lists.
	again := "category,subcategory,documents,fields\nIdentity,PAN Card,Photo;Signature,Father Name\n"
	stats, err = importCatalog(ctx, svc, strings.NewReader(again), log)
	require.NoError(t, err)
	assert.Equal(t, importStats{rows: 1}, stats)

	r, err := svc.Requirements(ctx, byName["PAN Card"].CategoryID, byName["PAN Card"].SubcategoryID)
	require.NoError(t, err)
	assert.Equal(t, []string{"Photo", "Signature"}, r.Documents)
	assert.Equal(t, []string{"Father Name"}, r.Fields)
}

func TestImportCatalogEmpty(t *testing.T) {
	db := dbtest.New(t)
	log, _ := test.NewNullLogger()

	_, err := importCatalog(context.Background(), catalog.NewService(db, nil, log), strings.NewReader("category,subcategory\n"), log)
	assert.Error(t, err)
}

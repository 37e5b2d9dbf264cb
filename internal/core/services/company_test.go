package services

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/signalkb/internal/core/domain"
)

func TestCompanyService_Import(t *testing.T) {
	f := newFixture(t)
	svc := NewCompanyService(f.companies)
	ctx := context.Background()

	csv := "\ufeffCleaned_Name,Website URL,LinkedIn\n" +
		"Acme Finance PJSC,https://acme.example,https://linkedin.com/company/acme\n" +
		",https://nameless.example,\n" +
		"\"Initech, Ltd\",,\n"

	n, err := svc.Import(ctx, strings.NewReader(csv))
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	acme, err := svc.Get(ctx, "acme-finance")
	require.NoError(t, err)
	assert.Equal(t, "Acme Finance PJSC", acme.Name)
	assert.Equal(t, "https://acme.example", acme.WebsiteURL)
	assert.Equal(t, "https://linkedin.com/company/acme", acme.LinkedInURL)

	initech, err := svc.Get(ctx, "initech")
	require.NoError(t, err)
	assert.Empty(t, initech.WebsiteURL)

	all, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 4)
}

func TestCompanyService_ImportErrors(t *testing.T) {
	tests := []struct {
		name string
		csv  string
	}{
		{name: "empty file", csv: ""},
		{name: "no name column", csv: "website,linkedin\nhttps://a.example,\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewCompanyService(newFixture(t).companies)
			_, err := svc.Import(context.Background(), strings.NewReader(tt.csv))
			assert.ErrorIs(t, err, domain.ErrInvalidInput)
		})
	}
}

func TestCompanyService_Add(t *testing.T) {
	svc := NewCompanyService(newFixture(t).companies)
	ctx := context.Background()

	c, err := svc.Add(ctx, domain.Company{Name: "  Umbrella Holdings LLC "})
	require.NoError(t, err)
	assert.Equal(t, "umbrella-holdings", c.ID)
	assert.Equal(t, "Umbrella Holdings LLC", c.Name)
	assert.False(t, c.CreatedAt.IsZero())

	_, err = svc.Add(ctx, domain.Company{Name: "   "})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestCompanyService_Resolve(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.companies.Save(ctx, domain.Company{ID: "custom-id", Name: "Initech Ltd"}))
	svc := NewCompanyService(f.companies)

	tests := []struct {
		ref    string
		wantID string
	}{
		{ref: "acme", wantID: "acme"},
		{ref: " Acme ", wantID: "acme"},
		{ref: "Globex Corporation LLC", wantID: "globex-corporation"},
		{ref: "globex corporation", wantID: "globex-corporation"},
		{ref: "INITECH", wantID: "custom-id"},
	}
	for _, tt := range tests {
		t.Run(tt.ref, func(t *testing.T) {
			c, err := svc.Resolve(ctx, tt.ref)
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, c.ID)
		})
	}

	for _, ref := range []string{"", "hooli"} {
		_, err := svc.Resolve(ctx, ref)
		assert.ErrorIs(t, err, domain.ErrUnknownCompany, "ref %q", ref)
	}
}

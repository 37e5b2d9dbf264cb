package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanCompanyName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Acme Finance PJSC", "Acme Finance"},
		{"Al Mashreq Al Islami Finance Company P.J.S.C", "Al Mashreq Al Islami Finance Company"},
		{"Siraj Finance LLC", "Siraj Finance"},
		{"Beehive FZ-LLC", "Beehive"},
		{"Sarwa Digital Wealth (Capital) Limited", "Sarwa Digital Wealth (Capital)"},
		{"Tabby FZ LLC", "Tabby"},
		{"Smith & Sons DMCC", "Smith Sons"},
		{"Acme Inc", "Acme"},
		{"Acme, Inc.", "Acme"},
		{"Globex Corp.", "Globex"},
		{"Initech Holdings Co. Ltd", "Initech Holdings"},
		{"Smith & Co", "Smith"},
		{"Corporate Credit Company", "Corporate Credit Company"},
		{"Co-op Bank Incubator", "Co-op Bank Incubator"},
		{"Plain Name", "Plain Name"},
		{"  Spaced   Name  ", "Spaced Name"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, CleanCompanyName(tt.input))
		})
	}
}

func TestCompanyIDFromName(t *testing.T) {
	assert.Equal(t, "acme-finance", CompanyIDFromName("Acme Finance PJSC"))
	assert.Equal(t, "acme-finance", CompanyIDFromName("ACME Finance"))
	assert.Equal(t, "globex", CompanyIDFromName("Globex Corp."))
	assert.Equal(t, "sarwa-digital-wealth-capital", CompanyIDFromName("Sarwa Digital Wealth (Capital) Limited"))
}

func TestCompany_FileStem(t *testing.T) {
	c := Company{ID: "acme-finance", Name: "Acme Finance PJSC"}
	assert.Equal(t, "acme_finance", c.FileStem())

	empty := Company{ID: "x1", Name: "!!!"}
	assert.Equal(t, "x1", empty.FileStem())
}

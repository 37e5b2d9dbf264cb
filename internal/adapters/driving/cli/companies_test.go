package cli

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindURLsImport(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()

	path := filepath.Join(t.TempDir(), "registry.csv")
	csv := "Company Name,Website,LinkedIn URL\nAcme PJSC,https://acme.example,\nGlobex LLC,,https://linkedin.com/company/globex\n"
	require.NoError(t, os.WriteFile(path, []byte(csv), 0600))

	out, _, err := execute(t, "find-urls", "import", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Imported 2 companies")
	assert.Equal(t, csv, ts.companies.imported)
}

func TestFindURLsImport_MissingFile(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	_, _, err := execute(t, "find-urls", "import", filepath.Join(t.TempDir(), "missing.csv"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to open registry")
}

func TestFindURLsImport_RequiresPath(t *testing.T) {
	_, _, err := execute(t, "find-urls", "import")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg(s)")
}

func TestCompaniesList(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()

	t.Run("table", func(t *testing.T) {
		out, _, err := execute(t, "companies", "list")
		require.NoError(t, err)
		assert.Contains(t, out, "acme")
		assert.Contains(t, out, "https://acme.example")
		assert.Contains(t, out, "1 companies")
	})

	t.Run("json", func(t *testing.T) {
		out, _, err := execute(t, "companies", "list", "--json")
		require.NoError(t, err)
		assert.Contains(t, out, `"ID": "acme"`)
	})

	t.Run("empty", func(t *testing.T) {
		ts.companies.companies = nil
		out, _, err := execute(t, "companies", "list")
		require.NoError(t, err)
		assert.Contains(t, out, "No companies registered")
	})

	t.Run("error", func(t *testing.T) {
		ts.companies.err = errors.New("database locked")
		_, _, err := execute(t, "companies", "list")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "database locked")
	})
}

func TestCompaniesAdd(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()

	out, _, err := execute(t, "companies", "add", "Umbrella Holdings LLC",
		"--website", "https://umbrella.example", "--linkedin", "https://linkedin.com/company/umbrella")
	require.NoError(t, err)
	assert.Contains(t, out, "Registered Umbrella Holdings LLC as umbrella-holdings")
	assert.Equal(t, "https://umbrella.example", ts.companies.added.WebsiteURL)
	assert.Equal(t, "https://linkedin.com/company/umbrella", ts.companies.added.LinkedInURL)
}

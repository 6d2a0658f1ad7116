package bootstrap

import (
	"bytes"
	"flag"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zatekoja/visibilityscore/internal/domain/entities"
)

func TestBusinessFlags_FromFlags(t *testing.T) {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	flags := RegisterBusinessFlags(fs)

	err := fs.Parse([]string{
		"-name", "Charcoal N Chill",
		"-city", "Alpharetta",
		"-state", "GA",
		"-categories", "hookah bar, lounge,,",
		"-amenities", "serves_alcohol,outdoor_seating",
		"-website", "https://www.charcoalnchill.com",
	})
	require.NoError(t, err)

	business, err := flags.Business()

	require.NoError(t, err)
	assert.Equal(t, entities.BusinessContext{
		Name:       "Charcoal N Chill",
		City:       "Alpharetta",
		State:      "GA",
		Categories: []string{"hookah bar", "lounge"},
		Amenities:  map[string]bool{"serves_alcohol": true, "outdoor_seating": true},
		Website:    "https://www.charcoalnchill.com",
	}, business)
}

func TestBusinessFlags_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "business.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"name":"Charcoal N Chill","city":"Alpharetta","state":"GA","categories":["hookah bar"]}`), 0o600))

	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	flags := RegisterBusinessFlags(fs)
	require.NoError(t, fs.Parse([]string{"-business-file", path, "-name", "ignored"}))

	business, err := flags.Business()

	require.NoError(t, err)
	assert.Equal(t, "Charcoal N Chill", business.Name)
	assert.Equal(t, []string{"hookah bar"}, business.Categories)
	assert.Nil(t, business.Amenities)
}

func TestBusinessFlags_BadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "business.json")
	require.NoError(t, os.WriteFile(path, []byte(`{not json`), 0o600))

	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	flags := RegisterBusinessFlags(fs)
	require.NoError(t, fs.Parse([]string{"-business-file", path}))

	_, err := flags.Business()
	assert.Error(t, err)

	fs = flag.NewFlagSet("test", flag.ContinueOnError)
	flags = RegisterBusinessFlags(fs)
	require.NoError(t, fs.Parse([]string{"-business-file", filepath.Join(t.TempDir(), "missing.json")}))

	_, err = flags.Business()
	assert.Error(t, err)
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer

	require.NoError(t, WriteJSON(&buf, map[string]int{"score": 91}))

	assert.Equal(t, "{\n  \"score\": 91\n}\n", buf.String())
}

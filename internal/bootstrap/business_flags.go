package bootstrap

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/zatekoja/visibilityscore/internal/domain/entities"
)

// BusinessFlags collects a BusinessContext from command-line flags or a JSON file.
type BusinessFlags struct {
	file       string
	name       string
	city       string
	state      string
	categories string
	amenities  string
	website    string
}

// RegisterBusinessFlags adds the business flags to fs.
func RegisterBusinessFlags(fs *flag.FlagSet) *BusinessFlags {
	b := &BusinessFlags{}
	fs.StringVar(&b.file, "business-file", "", "JSON file holding the business context (overrides the other business flags)")
	fs.StringVar(&b.name, "name", "", "Business name")
	fs.StringVar(&b.city, "city", "", "Business city")
	fs.StringVar(&b.state, "state", "", "Business state")
	fs.StringVar(&b.categories, "categories", "", "Comma-separated category tags")
	fs.StringVar(&b.amenities, "amenities", "", "Comma-separated amenity flags that are true")
	fs.StringVar(&b.website, "website", "", "Business website URL")
	return b
}

// Business returns the parsed business context.
func (b *BusinessFlags) Business() (entities.BusinessContext, error) {
	if b.file != "" {
		data, err := os.ReadFile(b.file)
		if err != nil {
			return entities.BusinessContext{}, fmt.Errorf("failed to read business file: %w", err)
		}
		var business entities.BusinessContext
		if err := json.Unmarshal(data, &business); err != nil {
			return entities.BusinessContext{}, fmt.Errorf("failed to parse business file: %w", err)
		}
		return business, nil
	}

	business := entities.BusinessContext{
		Name:       strings.TrimSpace(b.name),
		City:       strings.TrimSpace(b.city),
		State:      strings.TrimSpace(b.state),
		Categories: splitList(b.categories),
		Website:    strings.TrimSpace(b.website),
	}
	if amenities := splitList(b.amenities); len(amenities) > 0 {
		business.Amenities = make(map[string]bool, len(amenities))
		for _, a := range amenities {
			business.Amenities[a] = true
		}
	}
	return business, nil
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

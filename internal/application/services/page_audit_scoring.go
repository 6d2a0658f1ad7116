package services

import (
	"fmt"
	"math"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/zatekoja/visibilityscore/internal/domain/entities"
	"github.com/zatekoja/visibilityscore/pkg/htmldoc"
	"github.com/zatekoja/visibilityscore/pkg/textmatch"
)

const (
	minOpeningChars   = 20
	openingFallback   = 300
	faqFullScorePairs = 5
	stuffingShare     = 0.08
	stuffingFactor    = 0.7
)

var genericOpeners = []string{
	"welcome",
	"hello",
	"thank you for visiting",
	"thanks for visiting",
	"we are glad",
	"we're glad",
	"home page",
	"about us",
}

var factWords = map[string]struct{}{
	"open": {}, "opens": {}, "located": {}, "serving": {}, "hours": {},
}

var localBusinessTypes = map[string]struct{}{
	"localbusiness": {}, "restaurant": {}, "barorpub": {}, "cafeorcoffeeshop": {},
	"foodestablishment": {}, "nightclub": {}, "bakery": {}, "brewery": {}, "winery": {},
	"fastfoodrestaurant": {}, "icecreamshop": {}, "store": {}, "hotel": {},
	"lodgingbusiness": {}, "entertainmentbusiness": {}, "healthandbeautybusiness": {},
	"sportsactivitylocation": {}, "professionalservice": {}, "automotivebusiness": {},
}

type schemaField struct {
	keys   []string
	label  string
	points int
}

// Base is 30; the fields add up to the remaining 70.
var schemaFields = []schemaField{
	{keys: []string{"name"}, label: "name", points: 10},
	{keys: []string{"address"}, label: "address", points: 15},
	{keys: []string{"telephone"}, label: "telephone", points: 15},
	{keys: []string{"openingHours", "openingHoursSpecification"}, label: "opening hours", points: 15},
	{keys: []string{"url"}, label: "url", points: 5},
	{keys: []string{"geo"}, label: "geo coordinates", points: 5},
	{keys: []string{"image"}, label: "image", points: 5},
}

var (
	phonePattern = regexp.MustCompile(`(?:\+?1[\s.\-]?)?\(?\b\d{3}\)?[\s.\-]?\d{3}[\s.\-]?\d{4}\b`)
	hoursPattern = regexp.MustCompile(`(?i)\b\d{1,2}(?::\d{2})?\s*(?:(?:am|pm)\b|a\.m\.|p\.m\.)|\bopen 24 hours\b|\b\d{1,2}:\d{2}\s*[-–]\s*\d{1,2}:\d{2}\b`)
	digitPattern = regexp.MustCompile(`\d`)
)

// dimensionScore is a sub-score and the fixes that would raise it.
type dimensionScore struct {
	score int
	recs  []entities.Recommendation
}

func (d *dimensionScore) add(dimension entities.AuditDimension, weight float64, missing int, issue, fix string) {
	impact := int(math.Round(weight * float64(missing)))
	if impact <= 0 {
		return
	}
	d.recs = append(d.recs, entities.Recommendation{
		Dimension:    string(dimension),
		Issue:        issue,
		Fix:          fix,
		ImpactPoints: impact,
	})
}

// openingText is the first substantial paragraph, or the head of the visible text.
func openingText(doc *htmldoc.Document) string {
	for _, p := range doc.Paragraphs {
		if utf8.RuneCountInString(strings.TrimSpace(p)) >= minOpeningChars {
			return strings.TrimSpace(p)
		}
	}
	text := doc.VisibleText
	if utf8.RuneCountInString(text) <= openingFallback {
		return text
	}
	return string([]rune(text)[:openingFallback])
}

func mentionsAnyCategory(business entities.BusinessContext, text string) bool {
	for _, c := range business.Categories {
		if strings.TrimSpace(c) != "" && textmatch.MentionedIn(c, text) {
			return true
		}
	}
	return false
}

func hasGenericOpener(opening string) bool {
	lower := strings.ToLower(strings.TrimLeft(opening, " \t\n\"'!¡*-"))
	for _, g := range genericOpeners {
		if strings.HasPrefix(lower, g) {
			return true
		}
	}
	return false
}

func hasConcreteFact(opening string) bool {
	if digitPattern.MatchString(opening) {
		return true
	}
	for _, tok := range textmatch.Tokens(opening) {
		if _, ok := factWords[tok]; ok {
			return true
		}
	}
	return false
}

func scoreAnswerFirstHeuristic(opening string, business entities.BusinessContext) dimensionScore {
	var d dimensionScore
	const w = entities.WeightAnswerFirst
	dim := entities.DimensionAnswerFirst
	raw := 0

	if textmatch.MentionedIn(business.Name, opening) {
		raw += 40
	} else {
		d.add(dim, w, 40, "The opening paragraph does not name the business",
			fmt.Sprintf("Start the first paragraph with %q so assistants can quote it directly", business.Name))
	}

	if mentionsAnyCategory(business, opening) {
		raw += 25
	} else if category := business.PrimaryCategory(); category != "" {
		d.add(dim, w, 25, "The opening paragraph does not say what kind of business this is",
			fmt.Sprintf("Describe the business as a %s in the first sentence", category))
	}

	if business.City != "" && textmatch.MentionedIn(business.City, opening) {
		raw += 20
	} else if business.City != "" {
		d.add(dim, w, 20, "The opening paragraph does not mention the city",
			fmt.Sprintf("Mention %s in the first sentence", business.Location()))
	}

	if hasConcreteFact(opening) {
		raw += 15
	} else {
		d.add(dim, w, 15, "The opening paragraph has no concrete facts",
			"Lead with hours, location or another specific fact a customer would ask about")
	}

	if hasGenericOpener(opening) {
		raw -= 30
		d.add(dim, w, 30, "The page opens with a generic greeting",
			"Replace the greeting with a direct statement of who you are and what you offer")
	}

	d.score = entities.ClampScore(raw)
	return d
}

func answerFirstFromModel(score int) dimensionScore {
	d := dimensionScore{score: entities.ClampScore(score)}
	d.add(entities.DimensionAnswerFirst, entities.WeightAnswerFirst, 100-d.score,
		"The opening content does not answer common questions up front",
		"Rewrite the first paragraph as a direct answer: business name, category, city and a key fact")
	return d
}

func normalizedType(t string) string {
	t = strings.TrimPrefix(t, "https://schema.org/")
	t = strings.TrimPrefix(t, "http://schema.org/")
	return strings.ToLower(strings.TrimPrefix(t, "schema:"))
}

func isLocalBusiness(entity map[string]any) bool {
	for _, t := range htmldoc.EntityTypes(entity) {
		if _, ok := localBusinessTypes[normalizedType(t)]; ok {
			return true
		}
	}
	return false
}

func schemaFieldScore(entity map[string]any) (int, []schemaField) {
	score := 30
	var missing []schemaField
	for _, f := range schemaFields {
		present := false
		for _, key := range f.keys {
			if htmldoc.Present(entity, key) {
				present = true
				break
			}
		}
		if present {
			score += f.points
		} else {
			missing = append(missing, f)
		}
	}
	return score, missing
}

func scoreSchemaCompleteness(doc *htmldoc.Document) dimensionScore {
	var d dimensionScore
	const w = entities.WeightSchemaCompleteness
	dim := entities.DimensionSchemaCompleteness

	if len(doc.StructuredData) == 0 {
		issue := "The page has no structured data"
		if doc.InvalidBlocks > 0 {
			issue = "The page's JSON-LD blocks could not be parsed"
		}
		d.add(dim, w, 100, issue,
			"Add a LocalBusiness JSON-LD block with name, address, telephone, opening hours, url, geo and image")
		return d
	}

	best := -1
	var bestMissing []schemaField
	for _, entity := range doc.StructuredData {
		if !isLocalBusiness(entity) {
			continue
		}
		score, missing := schemaFieldScore(entity)
		if score > best {
			best, bestMissing = score, missing
		}
	}

	if best < 0 {
		d.score = 20
		d.add(dim, w, 80, "Structured data does not describe a local business",
			"Add a LocalBusiness (or more specific type such as Restaurant) JSON-LD block")
		return d
	}

	d.score = entities.ClampScore(best)
	for _, f := range bestMissing {
		d.add(dim, w, f.points,
			fmt.Sprintf("LocalBusiness schema is missing %s", f.label),
			fmt.Sprintf("Populate the %s property in the LocalBusiness JSON-LD", f.keys[0]))
	}
	return d
}

// countFAQPairs counts questions with a non-empty accepted answer across FAQPage blocks.
func countFAQPairs(doc *htmldoc.Document) (pairs int, hasFAQ bool) {
	for _, entity := range doc.StructuredData {
		if !htmldoc.HasType(entity, "FAQPage") {
			continue
		}
		hasFAQ = true
		for _, q := range questionsOf(entity["mainEntity"]) {
			if htmldoc.StringField(q, "name") != "" && htmldoc.StringField(q, "acceptedAnswer") != "" {
				pairs++
			}
		}
	}
	return pairs, hasFAQ
}

func questionsOf(v any) []map[string]any {
	switch t := v.(type) {
	case map[string]any:
		return []map[string]any{t}
	case []any:
		out := make([]map[string]any, 0, len(t))
		for _, item := range t {
			if m, ok := item.(map[string]any); ok {
				out = append(out, m)
			}
		}
		return out
	}
	return nil
}

func scoreFAQ(doc *htmldoc.Document) (dimensionScore, bool) {
	var d dimensionScore
	pairs, hasFAQ := countFAQPairs(doc)

	switch {
	case pairs >= faqFullScorePairs:
		d.score = 100
	case pairs > 0:
		d.score = 20 * pairs
	}

	if !hasFAQ {
		d.add(entities.DimensionFAQSchema, entities.WeightFAQSchema, 100-d.score,
			"The page has no FAQ structured data",
			fmt.Sprintf("Add an FAQPage JSON-LD block with at least %d questions and answers", faqFullScorePairs))
	} else if d.score < 100 {
		d.add(entities.DimensionFAQSchema, entities.WeightFAQSchema, 100-d.score,
			fmt.Sprintf("FAQ schema has %d complete question/answer pairs", pairs),
			fmt.Sprintf("Add answered questions until the FAQPage has at least %d", faqFullScorePairs))
	}
	return d, hasFAQ
}

func tieredScore(count, one, many int) int {
	switch {
	case count >= 2:
		return many
	case count == 1:
		return one
	}
	return 0
}

func scoreKeywordDensity(doc *htmldoc.Document, business entities.BusinessContext) dimensionScore {
	var d dimensionScore
	const w = entities.WeightKeywordDensity
	dim := entities.DimensionKeywordDensity
	text := doc.VisibleText

	nameCount := textmatch.Count(business.Name, text)
	termWords := nameCount * len(textmatch.Tokens(business.Name))

	categoryCount := 0
	for _, c := range business.Categories {
		n := textmatch.Count(c, text)
		categoryCount += n
		termWords += n * len(textmatch.Tokens(c))
	}

	cityCount := 0
	if business.City != "" {
		cityCount = textmatch.Count(business.City, text)
		termWords += cityCount * len(textmatch.Tokens(business.City))
	}

	nameScore := tieredScore(nameCount, 25, 40)
	categoryScore := tieredScore(categoryCount, 15, 30)
	cityScore := tieredScore(cityCount, 15, 30)
	raw := nameScore + categoryScore + cityScore

	if nameScore < 40 {
		d.add(dim, w, 40-nameScore, fmt.Sprintf("The business name appears %d time(s) in the page text", nameCount),
			fmt.Sprintf("Use %q naturally at least twice in the body copy", business.Name))
	}
	if categoryScore < 30 && business.PrimaryCategory() != "" {
		d.add(dim, w, 30-categoryScore, "The business category is rarely mentioned",
			fmt.Sprintf("Describe the business as a %s in more than one place", business.PrimaryCategory()))
	}
	if cityScore < 30 && business.City != "" {
		d.add(dim, w, 30-cityScore, "The city is rarely mentioned",
			fmt.Sprintf("Mention %s in the body copy and footer", business.Location()))
	}

	totalWords := len(textmatch.Tokens(text))
	if totalWords > 0 && float64(termWords)/float64(totalWords) > stuffingShare {
		penalized := int(math.Round(float64(raw) * stuffingFactor))
		d.add(dim, w, raw-penalized, "Name, category and city terms are over-repeated",
			"Reduce keyword repetition and write for readers")
		raw = penalized
	}

	d.score = entities.ClampScore(raw)
	return d
}

func cityStatePattern(city, state string) *regexp.Regexp {
	if strings.TrimSpace(city) == "" || strings.TrimSpace(state) == "" {
		return nil
	}
	return regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(strings.TrimSpace(city)) + `(?:\s*,\s*|\s+)` + regexp.QuoteMeta(strings.TrimSpace(state)) + `\b`)
}

func scoreEntityClarity(doc *htmldoc.Document, business entities.BusinessContext) dimensionScore {
	var d dimensionScore
	const w = entities.WeightEntityClarity
	dim := entities.DimensionEntityClarity
	raw := 0

	heading := doc.H1
	if heading == "" {
		heading = doc.Title
	}
	if textmatch.MentionedIn(business.Name, heading) {
		raw += 25
	} else {
		d.add(dim, w, 25, "The main heading does not contain the business name",
			fmt.Sprintf("Put %q in the page's H1", business.Name))
	}

	if re := cityStatePattern(business.City, business.State); re != nil && re.MatchString(doc.VisibleText) {
		raw += 25
	} else {
		d.add(dim, w, 25, "The page does not state the city and state together",
			fmt.Sprintf("Show the full location, e.g. %q, in visible text", business.Location()))
	}

	if phonePattern.MatchString(doc.VisibleText) {
		raw += 25
	} else {
		d.add(dim, w, 25, "No phone number is visible on the page",
			"Display the business phone number as text, not only inside an image or button")
	}

	if hoursPattern.MatchString(doc.VisibleText) {
		raw += 25
	} else {
		d.add(dim, w, 25, "Opening hours are not posted on the page",
			"List opening hours in visible text")
	}

	d.score = raw
	return d
}

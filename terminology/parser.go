package terminology

import (
	"sort"
	"strings"

	"github.com/openrx/medsearch-api/terminology/entities"
)

// BuildCatalog turns the raw display-name list into the canonical catalog:
// deduplicated case-insensitively, sorted alphabetically by name, with
// brand/generic parsing and category heuristics applied. The result is a
// pure function of the input list, so rebuilding from the same upstream
// payload yields an identical catalog.
func BuildCatalog(terms []string) []entities.Medication {
	seen := make(map[string]struct{}, len(terms))
	catalog := make([]entities.Medication, 0, len(terms))

	for _, term := range terms {
		name := strings.TrimSpace(term)
		if name == "" {
			continue
		}

		key := Normalize(name)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		catalog = append(catalog, newMedication(name))
	}

	sort.Slice(catalog, func(i, j int) bool {
		a, b := Normalize(catalog[i].Name), Normalize(catalog[j].Name)
		if a != b {
			return a < b
		}
		return catalog[i].Name < catalog[j].Name
	})

	return catalog
}

// newMedication parses one display name into a Medication. Display names
// come in two shapes: "Name" and "Name (other)", where the parenthesized
// part is the generic when it is written in lower case and a brand name
// otherwise.
func newMedication(name string) entities.Medication {
	med := entities.Medication{
		ID:   entities.MedicationID(name),
		Name: name,
	}

	if inner, ok := parenthesized(name); ok {
		if isLowerCased(inner) {
			med.GenericName = inner
		} else {
			med.BrandNames = []string{inner}
		}
	}

	med.Flags = deriveFlags(med)
	med.Categories = deriveCategories(med)
	return med
}

// parenthesized extracts the trailing "(...)" part of "Base (Inner)".
func parenthesized(name string) (string, bool) {
	open := strings.Index(name, "(")
	if open <= 0 || !strings.HasSuffix(name, ")") {
		return "", false
	}
	inner := strings.TrimSpace(name[open+1 : len(name)-1])
	if strings.TrimSpace(name[:open]) == "" || inner == "" {
		return "", false
	}
	return inner, true
}

func isLowerCased(s string) bool {
	return s == strings.ToLower(s)
}

// matchText is the haystack for the keyword heuristics below.
func matchText(med entities.Medication) string {
	parts := []string{med.Name, med.GenericName}
	parts = append(parts, med.BrandNames...)
	return Normalize(strings.Join(parts, " "))
}

var narcoticKeywords = []string{
	"morphine", "oxycodone", "fentanyl", "codeine", "hydrocodone",
	"methadone", "hydromorphone", "oxymorphone", "tapentadol", "tramadol",
	"buprenorphine", "opium",
}

var psychotropicKeywords = []string{
	"azepam", "azolam", "zolpidem", "zopiclone", "haloperidol",
	"risperidone", "quetiapine", "olanzapine", "aripiprazole",
	"chlorpromazine", "clozapine", "lithium", "sertraline", "fluoxetine",
	"paroxetine", "citalopram", "venlafaxine", "mirtazapine", "amitriptyline",
}

var controlledKeywords = []string{
	"amphetamine", "methylphenidate", "ketamine", "pregabalin",
	"phenobarbital", "modafinil",
}

var monitoringKeywords = []string{
	"warfarin", "lithium", "clozapine", "digoxin", "methotrexate",
	"amiodarone", "vancomycin", "gentamicin", "tacrolimus", "cyclosporine",
	"insulin", "heparin", "phenytoin", "carbamazepine", "valproate",
	"theophylline",
}

func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

// deriveFlags applies the keyword heuristics for regulatory flags.
// Narcotics and psychotropics are controlled by definition.
func deriveFlags(med entities.Medication) entities.Flags {
	text := matchText(med)

	flags := entities.Flags{
		IsNarcotic:         containsAny(text, narcoticKeywords),
		IsPsychotropic:     containsAny(text, psychotropicKeywords),
		RequiresMonitoring: containsAny(text, monitoringKeywords),
	}
	flags.IsControlled = flags.IsNarcotic || flags.IsPsychotropic ||
		containsAny(text, controlledKeywords)
	return flags
}

// categoryRule maps a name fragment to a broad/specific category pair.
// Rules are checked in order; the first match wins.
type categoryRule struct {
	fragment string
	broad    string
	specific string
}

var categoryRules = []categoryRule{
	{"cillin", "anti-infective", "penicillin antibiotic"},
	{"mycin", "anti-infective", "antibiotic"},
	{"cycline", "anti-infective", "tetracycline antibiotic"},
	{"floxacin", "anti-infective", "fluoroquinolone antibiotic"},
	{"cef", "anti-infective", "cephalosporin antibiotic"},
	{"ceph", "anti-infective", "cephalosporin antibiotic"},
	{"vir", "anti-infective", "antiviral"},
	{"azepam", "psychotropic", "benzodiazepine"},
	{"azolam", "psychotropic", "benzodiazepine"},
	{"olol", "cardiovascular", "beta blocker"},
	{"pril", "cardiovascular", "ace inhibitor"},
	{"sartan", "cardiovascular", "angiotensin receptor blocker"},
	{"statin", "cardiovascular", "statin"},
	{"dipine", "cardiovascular", "calcium channel blocker"},
	{"parin", "cardiovascular", "anticoagulant"},
	{"warfarin", "cardiovascular", "anticoagulant"},
	{"tadine", "antihistamine", ""},
	{"tirizine", "antihistamine", ""},
	{"dryl", "antihistamine", ""},
	{"profen", "analgesic", "nsaid"},
	{"aspirin", "analgesic", "nsaid"},
	{"naproxen", "analgesic", "nsaid"},
	{"acetaminophen", "analgesic", ""},
	{"paracetamol", "analgesic", ""},
	{"prazole", "gastrointestinal", "proton pump inhibitor"},
	{"tidine", "gastrointestinal", "h2 blocker"},
	{"formin", "endocrine", "antidiabetic"},
	{"gliptin", "endocrine", "antidiabetic"},
	{"insulin", "endocrine", "antidiabetic"},
}

// deriveCategories applies the name-fragment category heuristics.
// Narcotics classify as opioid analgesics regardless of fragments.
func deriveCategories(med entities.Medication) *entities.Categories {
	if med.Flags.IsNarcotic {
		return &entities.Categories{Broad: "analgesic", Specific: "opioid"}
	}

	text := matchText(med)
	for _, rule := range categoryRules {
		if strings.Contains(text, rule.fragment) {
			return &entities.Categories{Broad: rule.broad, Specific: rule.specific}
		}
	}
	return nil
}

package terminology

import (
	"testing"

	"github.com/openrx/medsearch-api/terminology/entities"
)

func TestBuildCatalogDedupesAndSorts(t *testing.T) {
	catalog := BuildCatalog([]string{
		"Lorazepam",
		"  Chlorpromazine ",
		"LORAZEPAM",
		"Loratadine",
		"",
		"Aspirin",
	})

	want := []string{"Aspirin", "Chlorpromazine", "Loratadine", "Lorazepam"}
	if len(catalog) != len(want) {
		t.Fatalf("Expected %d medications, got %d", len(want), len(catalog))
	}
	for i, name := range want {
		if catalog[i].Name != name {
			t.Errorf("Position %d: expected %q, got %q", i, name, catalog[i].Name)
		}
	}
}

func TestBuildCatalogIsDeterministic(t *testing.T) {
	terms := []string{"Zolpidem", "Aspirin", "Warfarin", "Metformin"}

	a := BuildCatalog(terms)
	b := BuildCatalog(terms)

	if len(a) != len(b) {
		t.Fatalf("Catalog sizes differ: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i].ID != b[i].ID || a[i].Name != b[i].Name {
			t.Errorf("Catalogs diverge at %d: %+v vs %+v", i, a[i], b[i])
		}
	}
}

func TestMedicationIDStable(t *testing.T) {
	if entities.MedicationID("Aspirin") != entities.MedicationID("aspirin") {
		t.Error("IDs should be case-insensitive")
	}
	if entities.MedicationID("Aspirin") == entities.MedicationID("Ibuprofen") {
		t.Error("Different names should produce different ids")
	}
}

func TestParenthesizedGenericAndBrand(t *testing.T) {
	catalog := BuildCatalog([]string{
		"Tylenol (acetaminophen)",
		"lisinopril (Zestril)",
	})

	var tylenol, lisinopril entities.Medication
	for _, med := range catalog {
		switch med.Name {
		case "Tylenol (acetaminophen)":
			tylenol = med
		case "lisinopril (Zestril)":
			lisinopril = med
		}
	}

	if tylenol.GenericName != "acetaminophen" {
		t.Errorf("Expected generic acetaminophen, got %q", tylenol.GenericName)
	}
	if len(lisinopril.BrandNames) != 1 || lisinopril.BrandNames[0] != "Zestril" {
		t.Errorf("Expected brand Zestril, got %v", lisinopril.BrandNames)
	}
}

func TestDeriveFlags(t *testing.T) {
	catalog := BuildCatalog([]string{
		"Oxycodone",
		"Lorazepam",
		"Warfarin Sodium",
		"Loratadine",
	})

	byName := make(map[string]entities.Medication)
	for _, med := range catalog {
		byName[med.Name] = med
	}

	oxy := byName["Oxycodone"]
	if !oxy.Flags.IsNarcotic || !oxy.Flags.IsControlled {
		t.Errorf("Oxycodone should be a controlled narcotic, got %+v", oxy.Flags)
	}

	lora := byName["Lorazepam"]
	if !lora.Flags.IsPsychotropic || !lora.Flags.IsControlled {
		t.Errorf("Lorazepam should be a controlled psychotropic, got %+v", lora.Flags)
	}
	if lora.Flags.IsNarcotic {
		t.Error("Lorazepam is not a narcotic")
	}

	warf := byName["Warfarin Sodium"]
	if !warf.Flags.RequiresMonitoring {
		t.Errorf("Warfarin should require monitoring, got %+v", warf.Flags)
	}
	if warf.Flags.IsControlled {
		t.Error("Warfarin is not controlled")
	}

	claratyne := byName["Loratadine"]
	if claratyne.Flags != (entities.Flags{}) {
		t.Errorf("Loratadine should carry no flags, got %+v", claratyne.Flags)
	}
}

func TestDeriveCategories(t *testing.T) {
	catalog := BuildCatalog([]string{
		"Amoxicillin",
		"Atenolol",
		"Morphine Sulfate",
		"Plainol",
	})

	byName := make(map[string]entities.Medication)
	for _, med := range catalog {
		byName[med.Name] = med
	}

	if c := byName["Amoxicillin"].Categories; c == nil || c.Broad != "anti-infective" {
		t.Errorf("Amoxicillin should be an anti-infective, got %+v", c)
	}
	if c := byName["Atenolol"].Categories; c == nil || c.Specific != "beta blocker" {
		t.Errorf("Atenolol should be a beta blocker, got %+v", c)
	}
	if c := byName["Morphine Sulfate"].Categories; c == nil || c.Specific != "opioid" {
		t.Errorf("Morphine should classify as an opioid, got %+v", c)
	}
	if c := byName["Plainol"].Categories; c != nil {
		t.Errorf("Unrecognized name should have no categories, got %+v", c)
	}
}

func TestNormalize(t *testing.T) {
	cases := map[string]string{
		"  Aspirin  ":  "aspirin",
		"LORAZEPAM":    "lorazepam",
		"Théophylline": "theophylline",
		"":             "",
	}
	for in, want := range cases {
		if got := Normalize(in); got != want {
			t.Errorf("Normalize(%q) = %q, want %q", in, got, want)
		}
	}
}

package ledger

import (
	"fmt"
	"math/rand"
	"strings"
	"time"
)

// Medical supply catalog grouped by category. Order matters: item ids are
// assigned sequentially (MED-0001, MED-0002, ...) walking the catalog.
var catalog = []struct {
	category string
	items    []string
}{
	{"Blood Products", []string{
		"O+ Blood Pack", "O- Blood Pack", "A+ Blood Pack", "A- Blood Pack",
		"B+ Blood Pack", "B- Blood Pack", "AB+ Blood Pack", "AB- Blood Pack",
		"Platelet Concentrate", "Fresh Frozen Plasma",
	}},
	{"Emergency Medications", []string{
		"Epinephrine Auto-Injector", "Morphine Sulfate", "Atropine Sulfate",
		"Naloxone (Narcan)", "Adenosine", "Amiodarone", "Dopamine",
		"Norepinephrine", "Lidocaine", "Diazepam",
	}},
	{"IV Fluids & Solutions", []string{
		"Normal Saline (0.9%)", "Lactated Ringers", "D5W (5% Dextrose)",
		"D5NS", "Half Normal Saline", "Plasma Expander", "Albumin 5%",
		"Mannitol", "Hypertonic Saline",
	}},
	{"Surgical & Trauma Supplies", []string{
		"Trauma Surgery Kit", "Emergency Suture Kit", "Chest Tube Kit",
		"Emergency Airway Kit", "Burn Treatment Kit", "Hemostatic Agents",
		"Emergency Thoracotomy Kit", "Vascular Access Kit",
	}},
	{"Vaccines & Biologics", []string{
		"COVID-19 Vaccine", "Hepatitis B Vaccine", "Tetanus Toxoid",
		"Rabies Vaccine", "Influenza Vaccine", "Immunoglobulin",
		"Anti-Venom Serum", "Botulism Antitoxin",
	}},
	{"Medical Equipment", []string{
		"Portable Defibrillator", "Oxygen Tank (Portable)", "Blood Glucose Monitor",
		"Digital Thermometer", "Pulse Oximeter", "Blood Pressure Cuff",
		"Portable Ventilator", "Emergency Surgical Tools",
	}},
	{"Diagnostic Supplies", []string{
		"Rapid COVID Test", "Blood Test Strips", "Pregnancy Test",
		"Drug Screen Kit", "Malaria Test Kit", "Cardiac Biomarker Test",
		"Hemoglobin Test Kit", "Infection Marker Test",
	}},
}

var suppliers = []string{"MedSupply Corp", "HealthTech Ltd", "BioMed Solutions", "PharmaCare Inc"}
var units = []string{"units", "vials", "packs", "doses", "kits"}

// Seed generates the initial inventory. The rand source is injected so tests
// can seed it for reproducible catalogs.
func Seed(rng *rand.Rand) []Item {
	now := time.Now()
	var items []Item
	counter := 1

	for _, group := range catalog {
		for _, name := range group.items {
			tempReq := temperatureRequirement(name)

			priority := "Low"
			switch {
			case containsAny(name, "blood", "epinephrine", "trauma", "emergency"):
				priority = "Critical"
			case containsAny(name, "vaccine", "antitoxin", "surgical"):
				priority = "High"
			default:
				if rng.Intn(2) == 0 {
					priority = "Medium"
				}
			}

			location := fmt.Sprintf("Storage Unit %c", 'D'+rune(rng.Intn(3)))
			if tempReq != "Room Temp" {
				location = fmt.Sprintf("Cold Storage %c", 'A'+rune(rng.Intn(3)))
			}

			quality := "Good"
			if rng.Intn(4) == 3 {
				quality = "Warning"
			}

			items = append(items, Item{
				ID:                     fmt.Sprintf("MED-%04d", counter),
				Category:               group.category,
				Name:                   name,
				CurrentStock:           5 + rng.Intn(146),
				ReservedStock:          rng.Intn(5),
				MinStockLevel:          10 + rng.Intn(21),
				MaxStockLevel:          100 + rng.Intn(101),
				UnitOfMeasure:          units[rng.Intn(len(units))],
				TemperatureRequirement: tempReq,
				ExpiryDate:             now.AddDate(0, 0, 30+rng.Intn(1066)),
				BatchNumber:            fmt.Sprintf("BT%05d", 10000+rng.Intn(90000)),
				Supplier:               suppliers[rng.Intn(len(suppliers))],
				UnitCost:               5 + rng.Float64()*495,
				Location:               location,
				Priority:               priority,
				LastRestocked:          now.AddDate(0, 0, -(1 + rng.Intn(60))),
				QualityStatus:          quality,
			})
			counter++
		}
	}

	return items
}

// temperatureRequirement derives the cold-chain band from the item name.
func temperatureRequirement(name string) string {
	switch {
	case strings.Contains(name, "Blood") || strings.Contains(name, "Vaccine") || strings.Contains(name, "Plasma"):
		return "2-8°C"
	case strings.Contains(name, "Frozen") || strings.Contains(name, "Anti-Venom"):
		return "-20°C"
	default:
		return "Room Temp"
	}
}

func containsAny(name string, words ...string) bool {
	lower := strings.ToLower(name)
	for _, word := range words {
		if strings.Contains(lower, word) {
			return true
		}
	}
	return false
}
